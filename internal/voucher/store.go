package voucher

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

type Store interface {
	Get(ctx context.Context, code string) (Voucher, int, error)
	// Redeem records one use, failing once MaxUsesTotal is reached.
	Redeem(ctx context.Context, code string) error
	// Release gives back a use recorded by Redeem.
	Release(ctx context.Context, code string) error
}

// MemoryStore holds the configured vouchers and counts redemptions per
// process.
type MemoryStore struct {
	mu       sync.Mutex
	vouchers map[string]Voucher
	uses     map[string]int
}

func NewMemoryStore(vouchers []Voucher) *MemoryStore {
	s := &MemoryStore{vouchers: make(map[string]Voucher), uses: make(map[string]int)}
	for _, v := range vouchers {
		v.Code = NormalizeCode(v.Code)
		s.vouchers[v.Code] = v
	}
	return s
}

func (s *MemoryStore) Get(_ context.Context, code string) (Voucher, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vouchers[NormalizeCode(code)]
	if !ok {
		return Voucher{}, 0, newError(ErrVoucherNotFound, "Voucher not found", http.StatusNotFound, nil)
	}
	return v, s.uses[v.Code], nil
}

func (s *MemoryStore) Redeem(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	code = NormalizeCode(code)
	v, ok := s.vouchers[code]
	if !ok {
		return newError(ErrVoucherNotFound, "Voucher not found", http.StatusNotFound, nil)
	}
	if v.MaxUsesTotal != nil && s.uses[code] >= *v.MaxUsesTotal {
		return ValidationError(ErrVoucherUsageLimitReached, "Voucher usage limit reached", map[string]any{
			"maxUsesTotal": *v.MaxUsesTotal,
		})
	}
	s.uses[code]++
	return nil
}

func (s *MemoryStore) Release(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	code = NormalizeCode(code)
	if s.uses[code] > 0 {
		s.uses[code]--
	}
	return nil
}

type fileFormat struct {
	Vouchers []Voucher `yaml:"vouchers"`
}

// LoadFile reads a YAML document with a top-level vouchers list.
func LoadFile(path string) ([]Voucher, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

func Parse(raw []byte) ([]Voucher, error) {
	var doc fileFormat
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse vouchers: %w", err)
	}
	for i, v := range doc.Vouchers {
		if NormalizeCode(v.Code) == "" {
			return nil, fmt.Errorf("voucher %d: code is required", i)
		}
		if v.DiscountType != DiscountPercentage && v.DiscountType != DiscountFixed {
			return nil, fmt.Errorf("voucher %s: unknown discount type %q", v.Code, v.DiscountType)
		}
	}
	return doc.Vouchers, nil
}

// Service resolves codes against the store using an injected clock.
type Service struct {
	store Store
	loc   *time.Location
	now   func() time.Time
}

func NewService(store Store, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{store: store, loc: loc, now: time.Now}
}

// Quote prices code for one business's items without redeeming it.
func (s *Service) Quote(ctx context.Context, code, businessID string, items []Item) (*DiscountResult, error) {
	v, uses, err := s.store.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	var subtotal float64
	for _, item := range items {
		subtotal += item.Subtotal
	}
	res, verr := Compute(v, ComputeParams{
		BusinessID: businessID,
		Subtotal:   subtotal,
		Items:      items,
		Uses:       uses,
		Now:        s.now(),
		Location:   s.loc,
	})
	if verr != nil {
		return nil, verr
	}
	return res, nil
}

// Group is one business's share of an order.
type Group struct {
	BusinessID string
	Items      []Item
}

// QuoteGroups prices code for several business groups of one checkout. Each
// discounted group takes one use, so a code with fewer uses left than
// matching groups only discounts the first ones. It fails with the first
// rejection when no group qualifies.
func (s *Service) QuoteGroups(ctx context.Context, code string, groups []Group) (map[string]*DiscountResult, error) {
	v, uses, err := s.store.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make(map[string]*DiscountResult)
	var firstErr error
	for _, g := range groups {
		var subtotal float64
		for _, item := range g.Items {
			subtotal += item.Subtotal
		}
		res, verr := Compute(v, ComputeParams{
			BusinessID: g.BusinessID,
			Subtotal:   subtotal,
			Items:      g.Items,
			Uses:       uses + len(out),
			Now:        now,
			Location:   s.loc,
		})
		if verr != nil {
			if firstErr == nil {
				firstErr = verr
			}
			continue
		}
		out[g.BusinessID] = res
	}
	if len(out) == 0 {
		return nil, firstErr
	}
	return out, nil
}

func (s *Service) Redeem(ctx context.Context, code string) error {
	return s.store.Redeem(ctx, code)
}

func (s *Service) Release(ctx context.Context, code string) error {
	return s.store.Release(ctx, code)
}
