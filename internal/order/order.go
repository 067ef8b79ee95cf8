package order

import (
	"fmt"
	"time"

	"storefront-order-service/internal/cart"
	"storefront-order-service/internal/inventory"
	"storefront-order-service/internal/pricing"
)

const (
	ActionCreated       = "created"
	ActionStatusChanged = "status_changed"
	ActionPaymentSet    = "payment_method_set"
	ActionNotesUpdated  = "notes_updated"
	ActionDuplicated    = "duplicated_from"
)

type Customer struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type BusinessRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
}

type HistoryEntry struct {
	ID     string    `json:"id"`
	Action string    `json:"action"`
	From   Status    `json:"from,omitempty"`
	To     Status    `json:"to,omitempty"`
	Actor  string    `json:"actor,omitempty"`
	Note   string    `json:"note,omitempty"`
	At     time.Time `json:"timestamp"`
}

// Order is a checkout snapshot. Items and Pricing are fixed at creation;
// only Status, PaymentMethod, Notes, History and the bookkeeping timestamps
// change afterwards.
type Order struct {
	ID              string            `json:"id"`
	Number          int64             `json:"orderNumber"`
	Customer        Customer          `json:"customer"`
	Items           []cart.LineItem   `json:"items"`
	Business        BusinessRef       `json:"business"`
	Pricing         pricing.Breakdown `json:"pricing"`
	Status          Status            `json:"status"`
	PaymentMethod   *string           `json:"paymentMethod"`
	Notes           string            `json:"notes"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
	StockDeductedAt *time.Time        `json:"stockDeductedAt,omitempty"`
	History         []HistoryEntry    `json:"history"`
}

type Draft struct {
	Customer      Customer
	Items         []cart.LineItem
	Business      BusinessRef
	Pricing       pricing.Breakdown
	Status        Status
	PaymentMethod *string
	Notes         string
}

func FormatID(number int64) string {
	return fmt.Sprintf("ORD-%06d", number)
}

func (o *Order) StockLines() []inventory.Line {
	lines := make([]inventory.Line, 0, len(o.Items))
	for _, item := range o.Items {
		lines = append(lines, inventory.Line{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return lines
}

// Clone returns a deep copy so callers never share slices with a repository.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	out := *o
	out.Items = make([]cart.LineItem, len(o.Items))
	for i, item := range o.Items {
		item.Modifiers = append([]string(nil), item.Modifiers...)
		out.Items[i] = item
	}
	out.History = append([]HistoryEntry(nil), o.History...)
	if o.PaymentMethod != nil {
		pm := *o.PaymentMethod
		out.PaymentMethod = &pm
	}
	if o.StockDeductedAt != nil {
		ts := *o.StockDeductedAt
		out.StockDeductedAt = &ts
	}
	return &out
}

func (o *Order) ItemCount() int {
	n := 0
	for _, item := range o.Items {
		n += item.Quantity
	}
	return n
}
