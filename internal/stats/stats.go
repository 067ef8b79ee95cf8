// Package stats summarizes sales, order counts and platform commission over
// the today/week/month windows. Cancelled orders never count.
package stats

import (
	"time"

	"storefront-order-service/internal/order"
)

type Bucket struct {
	Sales      float64 `json:"totalSales"`
	Orders     int     `json:"orderCount"`
	Commission float64 `json:"totalCommission"`
}

func (b *Bucket) add(total, commission float64, n int) {
	b.Sales += total
	b.Commission += commission
	b.Orders += n
}

type Summary struct {
	BusinessID string    `json:"businessId,omitempty"`
	Today      Bucket    `json:"today"`
	Week       Bucket    `json:"week"`
	Month      Bucket    `json:"month"`
	ComputedAt time.Time `json:"computedAt"`
}

func counts(o *order.Order) bool {
	return o.Status != order.StatusCancelled
}

// Compute recomputes a summary from scratch over every order, evaluating the
// windows in now's location. An empty businessID covers all businesses.
func Compute(orders []*order.Order, businessID string, now time.Time) Summary {
	out := Summary{BusinessID: businessID, ComputedAt: now}
	for _, o := range orders {
		if !counts(o) {
			continue
		}
		if businessID != "" && o.Business.ID != businessID {
			continue
		}
		created := o.CreatedAt.In(now.Location())
		total := o.Pricing.GrandTotal
		commission := o.Pricing.Commission()
		if order.BucketMonth.Contains(created, now) {
			out.Month.add(total, commission, 1)
		}
		if order.BucketWeek.Contains(created, now) {
			out.Week.add(total, commission, 1)
		}
		if order.BucketToday.Contains(created, now) {
			out.Today.add(total, commission, 1)
		}
	}
	return out
}
