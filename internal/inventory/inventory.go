// Package inventory tracks per-product stock counters. Counters may go
// negative: nothing here refuses a decrement.
package inventory

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrNotFound = errors.New("inventory record not found")

type Record struct {
	ProductID string    `json:"productId"`
	Stock     int       `json:"stock"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Store interface {
	Adjust(ctx context.Context, productID string, delta int) error
	Get(ctx context.Context, productID string) (Record, error)
}

// Line is one stock movement: quantity units of a product.
type Line struct {
	ProductID string
	Quantity  int
}

// Aggregate folds lines of the same product together so each product is
// adjusted once.
func Aggregate(lines []Line) []Line {
	index := make(map[string]int)
	out := make([]Line, 0, len(lines))
	for _, l := range lines {
		if l.ProductID == "" || l.Quantity == 0 {
			continue
		}
		if pos, ok := index[l.ProductID]; ok {
			out[pos].Quantity += l.Quantity
			continue
		}
		index[l.ProductID] = len(out)
		out = append(out, l)
	}
	return out
}

// Apply adjusts every line by sign×quantity. Products without a record are
// skipped. On any other failure it reverts the adjustments already made and
// returns the original error.
func Apply(ctx context.Context, store Store, lines []Line, sign int) error {
	applied := make([]Line, 0, len(lines))
	for _, l := range Aggregate(lines) {
		err := store.Adjust(ctx, l.ProductID, sign*l.Quantity)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			for _, done := range applied {
				_ = store.Adjust(ctx, done.ProductID, -sign*done.Quantity)
			}
			return err
		}
		applied = append(applied, l)
	}
	return nil
}

type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record), now: time.Now}
}

// Set seeds a counter.
func (s *MemoryStore) Set(productID string, stock int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[productID] = Record{ProductID: productID, Stock: stock, UpdatedAt: s.now()}
}

// Adjust creates missing records at zero before applying delta.
func (s *MemoryStore) Adjust(_ context.Context, productID string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.records[productID]
	rec.ProductID = productID
	rec.Stock += delta
	rec.UpdatedAt = s.now()
	s.records[productID] = rec
	return nil
}

func (s *MemoryStore) Get(_ context.Context, productID string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[productID]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}
