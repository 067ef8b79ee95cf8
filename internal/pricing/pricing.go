// Package pricing derives fee breakdowns from cart subtotals and converts
// base-currency amounts into the currency of the selected location.
//
// Stored amounts are never rounded; Round2 exists for display only.
package pricing

import (
	"errors"
	"math"
	"sort"
	"strings"
)

var ErrUnknownLocation = errors.New("unknown location")

type Breakdown struct {
	Subtotal    float64 `json:"subtotal"`
	PlatformFee float64 `json:"platformFee"`
	ServiceFee  float64 `json:"serviceFee"`
	DeliveryFee float64 `json:"deliveryFee"`
	Discount    float64 `json:"discount"`
	GrandTotal  float64 `json:"total"`
}

// Commission is the platform's share of an order.
func (b Breakdown) Commission() float64 {
	return b.PlatformFee + b.ServiceFee
}

// Scale multiplies every amount by rate.
func (b Breakdown) Scale(rate float64) Breakdown {
	return Breakdown{
		Subtotal:    b.Subtotal * rate,
		PlatformFee: b.PlatformFee * rate,
		ServiceFee:  b.ServiceFee * rate,
		DeliveryFee: b.DeliveryFee * rate,
		Discount:    b.Discount * rate,
		GrandTotal:  b.GrandTotal * rate,
	}
}

type DeliveryTier struct {
	MinSubtotal float64 `yaml:"minSubtotal" json:"minSubtotal"`
	Fee         float64 `yaml:"fee" json:"fee"`
}

type Location struct {
	Name     string  `yaml:"name" json:"name"`
	Currency string  `yaml:"currency" json:"currency"`
	Rate     float64 `yaml:"rate" json:"rate"`
}

type Config struct {
	CommissionPercent float64             `yaml:"commissionPercent"`
	ServiceFee        float64             `yaml:"serviceFee"`
	DeliveryFee       float64             `yaml:"deliveryFee"`
	DeliveryTiers     []DeliveryTier      `yaml:"deliveryTiers"`
	BaseCurrency      string              `yaml:"baseCurrency"`
	DefaultLocation   string              `yaml:"defaultLocation"`
	Locations         map[string]Location `yaml:"locations"`
}

// Compute prices a subtotal. Negative input is not validated.
func (c Config) Compute(subtotal float64, discount float64) Breakdown {
	out := Breakdown{
		Subtotal:    subtotal,
		PlatformFee: subtotal * c.CommissionPercent / 100,
		ServiceFee:  c.ServiceFee,
		DeliveryFee: c.deliveryFeeFor(subtotal),
		Discount:    discount,
	}
	out.GrandTotal = out.Subtotal + out.PlatformFee + out.ServiceFee + out.DeliveryFee - out.Discount
	return out
}

func (c Config) deliveryFeeFor(subtotal float64) float64 {
	if len(c.DeliveryTiers) == 0 {
		return c.DeliveryFee
	}
	tiers := make([]DeliveryTier, len(c.DeliveryTiers))
	copy(tiers, c.DeliveryTiers)
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].MinSubtotal > tiers[j].MinSubtotal })
	for _, tier := range tiers {
		if subtotal >= tier.MinSubtotal {
			return tier.Fee
		}
	}
	return c.DeliveryFee
}

// Rate returns the conversion rate and currency for a location code. An empty
// code falls back to DefaultLocation, and with no locations configured the
// base currency is returned at rate 1.
func (c Config) Rate(location string) (float64, string, error) {
	code := strings.TrimSpace(location)
	if code == "" {
		code = c.DefaultLocation
	}
	if code == "" {
		return 1, c.baseCurrency(), nil
	}
	loc, ok := c.Locations[code]
	if !ok {
		return 0, "", ErrUnknownLocation
	}
	if loc.Rate <= 0 {
		return 1, c.baseCurrency(), nil
	}
	currency := loc.Currency
	if currency == "" {
		currency = c.baseCurrency()
	}
	return loc.Rate, currency, nil
}

func (c Config) Convert(amount float64, location string) (float64, string, error) {
	rate, currency, err := c.Rate(location)
	if err != nil {
		return 0, "", err
	}
	return amount * rate, currency, nil
}

func (c Config) baseCurrency() string {
	if c.BaseCurrency == "" {
		return "USD"
	}
	return c.BaseCurrency
}

func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Rounded applies display rounding to every field.
func (b Breakdown) Rounded() Breakdown {
	return Breakdown{
		Subtotal:    Round2(b.Subtotal),
		PlatformFee: Round2(b.PlatformFee),
		ServiceFee:  Round2(b.ServiceFee),
		DeliveryFee: Round2(b.DeliveryFee),
		Discount:    Round2(b.Discount),
		GrandTotal:  Round2(b.GrandTotal),
	}
}
