package cart

import (
	"strings"
)

type Key struct {
	ProductID  string `json:"productId"`
	VariantID  string `json:"variantId,omitempty"`
	BusinessID string `json:"businessId"`
}

type LineItem struct {
	ProductID    string   `json:"productId"`
	VariantID    string   `json:"variantId,omitempty"`
	BusinessID   string   `json:"businessId"`
	BusinessName string   `json:"businessName,omitempty"`
	Name         string   `json:"name"`
	UnitPrice    float64  `json:"unitPrice"`
	Quantity     int      `json:"quantity"`
	Size         string   `json:"size,omitempty"`
	Modifiers    []string `json:"modifiers,omitempty"`
	ImageURL     string   `json:"imageUrl,omitempty"`
}

func (i LineItem) Key() Key {
	return Key{
		ProductID:  strings.TrimSpace(i.ProductID),
		VariantID:  strings.TrimSpace(i.VariantID),
		BusinessID: strings.TrimSpace(i.BusinessID),
	}
}

func (i LineItem) Total() float64 {
	return i.UnitPrice * float64(i.Quantity)
}

// Cart holds line items from any number of businesses, in insertion order.
type Cart struct {
	Items    []LineItem `json:"items"`
	Location string     `json:"location,omitempty"`
}

// Add merges item into the cart. A line with the same key has its quantity
// raised by item.Quantity (at least 1); otherwise the item is appended.
func (c *Cart) Add(item LineItem) {
	qty := item.Quantity
	if qty < 1 {
		qty = 1
	}
	key := item.Key()
	for i := range c.Items {
		if c.Items[i].Key() == key {
			c.Items[i].Quantity += qty
			return
		}
	}
	item.ProductID = key.ProductID
	item.VariantID = key.VariantID
	item.BusinessID = key.BusinessID
	item.Quantity = qty
	c.Items = append(c.Items, item)
}

// Remove takes one unit off the line identified by key and drops the line
// when it reaches zero. Unknown keys are ignored.
func (c *Cart) Remove(key Key) {
	for i := range c.Items {
		if c.Items[i].Key() != key {
			continue
		}
		c.Items[i].Quantity--
		if c.Items[i].Quantity <= 0 {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
		}
		return
	}
}

func (c *Cart) Clear() {
	c.Items = nil
}

// RemoveBusiness drops every line belonging to businessID.
func (c *Cart) RemoveBusiness(businessID string) {
	kept := c.Items[:0]
	for _, item := range c.Items {
		if item.BusinessID != businessID {
			kept = append(kept, item)
		}
	}
	c.Items = kept
	if len(c.Items) == 0 {
		c.Items = nil
	}
}

// Subtotal sums price × quantity across all businesses.
func (c *Cart) Subtotal() float64 {
	var total float64
	for _, item := range c.Items {
		total += item.Total()
	}
	return total
}

func (c *Cart) Count() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

// ForBusiness returns a copy of the lines owned by businessID.
func (c *Cart) ForBusiness(businessID string) []LineItem {
	out := make([]LineItem, 0)
	for _, item := range c.Items {
		if item.BusinessID == businessID {
			out = append(out, item)
		}
	}
	return out
}

type Group struct {
	BusinessID   string     `json:"businessId"`
	BusinessName string     `json:"businessName"`
	Items        []LineItem `json:"items"`
	Subtotal     float64    `json:"subtotal"`
}

// Groups partitions the cart by business, ordered by first appearance.
func (c *Cart) Groups() []Group {
	index := make(map[string]int)
	groups := make([]Group, 0)
	for _, item := range c.Items {
		pos, ok := index[item.BusinessID]
		if !ok {
			pos = len(groups)
			index[item.BusinessID] = pos
			groups = append(groups, Group{BusinessID: item.BusinessID, BusinessName: item.BusinessName})
		}
		groups[pos].Items = append(groups[pos].Items, item)
		groups[pos].Subtotal += item.Total()
	}
	return groups
}

func Subtotal(items []LineItem) float64 {
	var total float64
	for _, item := range items {
		total += item.Total()
	}
	return total
}
