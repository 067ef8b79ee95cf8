package order

import (
	"fmt"
	"strings"
	"time"
)

type Bucket string

const (
	BucketAll   Bucket = ""
	BucketToday Bucket = "today"
	BucketWeek  Bucket = "week"
	BucketMonth Bucket = "month"
)

func ParseBucket(raw string) (Bucket, error) {
	switch b := Bucket(strings.ToLower(strings.TrimSpace(raw))); b {
	case BucketAll, BucketToday, BucketWeek, BucketMonth:
		return b, nil
	default:
		return "", fmt.Errorf("invalid date bucket %q", raw)
	}
}

// Since returns the inclusive lower bound of the bucket relative to now, in
// now's location: today starts at local midnight, week covers the last 7
// calendar days and month the last 30, both including today.
func (b Bucket) Since(now time.Time) time.Time {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch b {
	case BucketToday:
		return midnight
	case BucketWeek:
		return midnight.AddDate(0, 0, -6)
	case BucketMonth:
		return midnight.AddDate(0, 0, -29)
	default:
		return time.Time{}
	}
}

func (b Bucket) Contains(t time.Time, now time.Time) bool {
	if b == BucketAll {
		return true
	}
	return !t.Before(b.Since(now)) && !t.After(now)
}

type Filter struct {
	BusinessID string
	Status     Status
	Search     string
	Bucket     Bucket
}

// Match reports whether o passes every non-empty criterion of f. Search is a
// case-insensitive substring match over customer name and phone, order id,
// order number and item names.
func (f Filter) Match(o *Order, now time.Time) bool {
	if f.BusinessID != "" && o.Business.ID != f.BusinessID {
		return false
	}
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	if !f.Bucket.Contains(o.CreatedAt.In(now.Location()), now) {
		return false
	}
	needle := strings.ToLower(strings.TrimSpace(f.Search))
	if needle == "" {
		return true
	}
	haystack := []string{o.Customer.Name, o.Customer.Phone, o.ID, fmt.Sprintf("%d", o.Number)}
	for _, item := range o.Items {
		haystack = append(haystack, item.Name)
	}
	for _, h := range haystack {
		if strings.Contains(strings.ToLower(h), needle) {
			return true
		}
	}
	return false
}

func Apply(orders []*Order, f Filter, now time.Time) []*Order {
	out := make([]*Order, 0, len(orders))
	for _, o := range orders {
		if f.Match(o, now) {
			out = append(out, o)
		}
	}
	return out
}
