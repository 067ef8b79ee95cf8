package catalog

import (
	"context"
	"sort"
	"sync"
	"time"

	"storefront-order-service/internal/inventory"
)

// MemoryRepository keeps the catalog in process. It also serves as the
// inventory store, with product stock as the counter.
type MemoryRepository struct {
	mu         sync.RWMutex
	businesses map[string]Business
	products   map[string]Product
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		businesses: make(map[string]Business),
		products:   make(map[string]Product),
	}
}

func (r *MemoryRepository) ListBusinesses(_ context.Context, onlyActive bool) ([]Business, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Business, 0, len(r.businesses))
	for _, b := range r.businesses {
		if onlyActive && !b.Active {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryRepository) GetBusiness(_ context.Context, id string) (Business, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.businesses[id]
	if !ok {
		return Business{}, ErrNotFound
	}
	return b, nil
}

func (r *MemoryRepository) SaveBusiness(_ context.Context, b Business) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.businesses[b.ID] = b
	return nil
}

func (r *MemoryRepository) DeleteBusiness(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.businesses[id]; !ok {
		return ErrNotFound
	}
	delete(r.businesses, id)
	return nil
}

func (r *MemoryRepository) ListProducts(_ context.Context, businessID string) ([]Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Product, 0)
	for _, p := range r.products {
		if businessID != "" && p.BusinessID != businessID {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryRepository) GetProduct(_ context.Context, id string) (Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (r *MemoryRepository) SaveProduct(_ context.Context, p Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.Variants = append([]Variant(nil), p.Variants...)
	r.products[p.ID] = p
	return nil
}

func (r *MemoryRepository) DeleteProduct(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[id]; !ok {
		return ErrNotFound
	}
	delete(r.products, id)
	return nil
}

func (r *MemoryRepository) Adjust(_ context.Context, productID string, delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[productID]
	if !ok {
		return inventory.ErrNotFound
	}
	p.Stock += delta
	p.UpdatedAt = time.Now()
	r.products[productID] = p
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, productID string) (inventory.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.products[productID]
	if !ok {
		return inventory.Record{}, inventory.ErrNotFound
	}
	return inventory.Record{ProductID: p.ID, Stock: p.Stock, UpdatedAt: p.UpdatedAt}, nil
}

var _ inventory.Store = (*MemoryRepository)(nil)
