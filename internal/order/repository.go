package order

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var ErrNotFound = errors.New("order not found")

type Repository interface {
	// NextNumber reserves the next sequential order number.
	NextNumber(ctx context.Context) (int64, error)
	Insert(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	// Update persists the mutable fields of o.
	Update(ctx context.Context, o *Order) error
	List(ctx context.Context) ([]*Order, error)
}

type MemoryRepository struct {
	mu      sync.RWMutex
	counter int64
	orders  map[string]*Order
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{orders: make(map[string]*Order)}
}

func (r *MemoryRepository) NextNumber(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counter++
	return r.counter, nil
}

func (r *MemoryRepository) Insert(_ context.Context, o *Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.orders[o.ID]; exists {
		return errors.New("order already exists")
	}
	r.orders[o.ID] = o.Clone()
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) (*Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return o.Clone(), nil
}

func (r *MemoryRepository) Update(_ context.Context, o *Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.orders[o.ID]
	if !ok {
		return ErrNotFound
	}
	next := current.Clone()
	next.Status = o.Status
	next.PaymentMethod = o.Clone().PaymentMethod
	next.Notes = o.Notes
	next.UpdatedAt = o.UpdatedAt
	next.StockDeductedAt = o.Clone().StockDeductedAt
	next.History = append([]HistoryEntry(nil), o.History...)
	r.orders[o.ID] = next
	return nil
}

// List returns orders newest first.
func (r *MemoryRepository) List(_ context.Context) ([]*Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Order, 0, len(r.orders))
	for _, o := range r.orders {
		out = append(out, o.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number > out[j].Number })
	return out, nil
}
