package stats

import (
	"context"
	"sync"
	"time"

	"storefront-order-service/internal/order"
)

type dayKey struct {
	business string
	day      string
}

type contribution struct {
	key        dayKey
	total      float64
	commission float64
}

// Aggregator keeps per-business daily totals up to date as orders change,
// so a summary costs one lookup per day in the window instead of a pass over
// every order.
type Aggregator struct {
	mu     sync.RWMutex
	loc    *time.Location
	days   map[dayKey]*Bucket
	orders map[string]contribution
	// seen holds the last applied change sequence per order, including
	// orders that no longer count.
	seen map[string]uint64
}

func NewAggregator(loc *time.Location) *Aggregator {
	if loc == nil {
		loc = time.UTC
	}
	return &Aggregator{
		loc:    loc,
		days:   make(map[dayKey]*Bucket),
		orders: make(map[string]contribution),
		seen:   make(map[string]uint64),
	}
}

func (a *Aggregator) dayOf(t time.Time) string {
	return t.In(a.loc).Format("2006-01-02")
}

// Rebuild discards all state and reloads it from orders.
func (a *Aggregator) Rebuild(orders []*order.Order) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.days = make(map[dayKey]*Bucket)
	a.orders = make(map[string]contribution)
	a.seen = make(map[string]uint64)
	for _, o := range orders {
		a.applyLocked(o)
	}
}

// OrderChanged makes the aggregator an order.Listener. A change older than
// the last one applied for the same order is ignored.
func (a *Aggregator) OrderChanged(_ context.Context, change order.Change) {
	if change.Order == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	id := change.Order.ID
	if change.Seq != 0 {
		if change.Seq <= a.seen[id] {
			return
		}
		a.seen[id] = change.Seq
	}
	a.applyLocked(change.Order)
}

func (a *Aggregator) applyLocked(o *order.Order) {
	if prev, ok := a.orders[o.ID]; ok {
		a.shift(prev, -1)
		delete(a.orders, o.ID)
	}
	if !counts(o) {
		return
	}
	c := contribution{
		key:        dayKey{business: o.Business.ID, day: a.dayOf(o.CreatedAt)},
		total:      o.Pricing.GrandTotal,
		commission: o.Pricing.Commission(),
	}
	a.shift(c, 1)
	a.orders[o.ID] = c
}

func (a *Aggregator) shift(c contribution, sign int) {
	for _, key := range []dayKey{c.key, {business: "", day: c.key.day}} {
		b := a.days[key]
		if b == nil {
			b = &Bucket{}
			a.days[key] = b
		}
		b.add(float64(sign)*c.total, float64(sign)*c.commission, sign)
		if b.Orders == 0 {
			delete(a.days, key)
		}
	}
}

// Summary reports the windows ending at now. An empty businessID covers all
// businesses.
func (a *Aggregator) Summary(businessID string, now time.Time) Summary {
	now = now.In(a.loc)
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := Summary{BusinessID: businessID, ComputedAt: now}
	windows := []struct {
		bucket order.Bucket
		dest   *Bucket
	}{
		{order.BucketToday, &out.Today},
		{order.BucketWeek, &out.Week},
		{order.BucketMonth, &out.Month},
	}
	for _, w := range windows {
		for day := w.bucket.Since(now); !day.After(now); day = day.AddDate(0, 0, 1) {
			if b := a.days[dayKey{business: businessID, day: day.Format("2006-01-02")}]; b != nil {
				w.dest.add(b.Sales, b.Commission, b.Orders)
			}
		}
	}
	return out
}
