package order

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"storefront-order-service/internal/cart"
	"storefront-order-service/internal/inventory"
	"storefront-order-service/internal/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrEmptyOrder       = errors.New("order requires at least one item")
	ErrBusinessRequired = errors.New("order requires a business")
)

const (
	ChangeCreated = "created"
	ChangeStatus  = "status"
	ChangeUpdated = "updated"
)

// Change describes one committed mutation. Seq grows with every commit, so
// listeners can drop a change that arrives after a newer one.
type Change struct {
	Seq      uint64
	Kind     string
	Order    *Order
	Previous Status
	Actor    string
}

// Listener observes committed order mutations. It is called outside the
// service lock and must not block for long.
type Listener interface {
	OrderChanged(ctx context.Context, change Change)
}

type ListenerFunc func(ctx context.Context, change Change)

func (f ListenerFunc) OrderChanged(ctx context.Context, change Change) {
	f(ctx, change)
}

// Service owns the order list and drives the status machine. Mutations are
// serialized so each one is atomic from the caller's point of view.
type Service struct {
	repo      Repository
	stock     inventory.Store
	logger    *zap.Logger
	now       func() time.Time
	mu        sync.Mutex
	seq       uint64
	listeners []Listener
}

func NewService(repo Repository, stock inventory.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, stock: stock, logger: logger, now: time.Now}
}

// WithClock replaces the wall clock, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

func (s *Service) Now() time.Time {
	return s.now()
}

func (s *Service) AddOrder(ctx context.Context, draft Draft) (*Order, error) {
	if len(draft.Items) == 0 {
		return nil, ErrEmptyOrder
	}
	if strings.TrimSpace(draft.Business.ID) == "" {
		return nil, ErrBusinessRequired
	}
	status := StatusPending
	if draft.Status != "" {
		parsed, err := ParseStatus(string(draft.Status))
		if err != nil {
			return nil, err
		}
		status = parsed
	}

	s.mu.Lock()
	number, err := s.repo.NextNumber(ctx)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	now := s.now()
	items := make([]cart.LineItem, len(draft.Items))
	copy(items, draft.Items)
	o := &Order{
		ID:            FormatID(number),
		Number:        number,
		Customer:      draft.Customer,
		Items:         items,
		Business:      draft.Business,
		Pricing:       draft.Pricing,
		Status:        status,
		PaymentMethod: draft.PaymentMethod,
		Notes:         draft.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
		History:       []HistoryEntry{s.entry(ActionCreated, "", status, "", "")},
	}
	if err := s.repo.Insert(ctx, o); err != nil {
		s.mu.Unlock()
		s.logger.Error("order insert failed", zap.String("orderId", o.ID), zap.Error(err))
		return nil, err
	}
	seq := s.nextSeqLocked()
	listeners := s.listenersLocked()
	s.mu.Unlock()

	metrics.OrdersCreated.WithLabelValues(o.Business.ID).Inc()
	s.logger.Info("order created",
		zap.String("orderId", o.ID),
		zap.String("businessId", o.Business.ID),
		zap.Float64("total", o.Pricing.GrandTotal),
	)
	s.notify(ctx, listeners, Change{Seq: seq, Kind: ChangeCreated, Order: o.Clone()})
	return o, nil
}

// Duplicate re-submits the items and pricing of an existing order as a new
// pending order.
func (s *Service) Duplicate(ctx context.Context, id string, actor string) (*Order, error) {
	src, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	o, err := s.AddOrder(ctx, Draft{
		Customer: src.Customer,
		Items:    src.Items,
		Business: src.Business,
		Pricing:  src.Pricing,
		Status:   StatusPending,
		Notes:    src.Notes,
	})
	if err != nil {
		return nil, err
	}
	return s.update(ctx, o.ID, actor, func(o *Order) error {
		o.History = append(o.History, s.entry(ActionDuplicated, "", "", actor, src.ID))
		return nil
	})
}

// ChangeStatus moves an order to status. A missing order is a silent no-op
// and returns (nil, nil).
func (s *Service) ChangeStatus(ctx context.Context, id string, status Status, actor string, note string) (*Order, error) {
	return s.transition(ctx, id, actor, note, func(current Status) (Transition, error) {
		return Resolve(current, status)
	})
}

// Fire applies event to the order's current state.
func (s *Service) Fire(ctx context.Context, id string, event Event, actor string, note string) (*Order, error) {
	return s.transition(ctx, id, actor, note, func(current Status) (Transition, error) {
		return Fire(current, event)
	})
}

func (s *Service) transition(ctx context.Context, id string, actor string, note string, pick func(Status) (Transition, error)) (*Order, error) {
	s.mu.Lock()
	o, err := s.repo.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		s.mu.Unlock()
		s.logger.Debug("status change for unknown order ignored", zap.String("orderId", id))
		return nil, nil
	}
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	t, err := pick(o.Status)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	now := s.now()
	undo, err := s.applyEffects(ctx, o, t, now)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	previous := o.Status
	o.Status = t.To
	o.UpdatedAt = now
	o.History = append(o.History, s.entry(ActionStatusChanged, previous, t.To, actor, note))

	if err := s.repo.Update(ctx, o); err != nil {
		if undo != nil {
			undo()
		}
		s.mu.Unlock()
		s.logger.Error("order status update failed", zap.String("orderId", id), zap.Error(err))
		return nil, err
	}
	seq := s.nextSeqLocked()
	listeners := s.listenersLocked()
	s.mu.Unlock()

	metrics.OrderTransitions.WithLabelValues(string(previous), string(t.To)).Inc()
	s.logger.Info("order status changed",
		zap.String("orderId", id),
		zap.String("from", string(previous)),
		zap.String("to", string(t.To)),
		zap.String("actor", actor),
	)
	s.notify(ctx, listeners, Change{Seq: seq, Kind: ChangeStatus, Order: o.Clone(), Previous: previous, Actor: actor})
	return o, nil
}

// applyEffects runs the inventory side effects of t and returns a function
// that reverts them.
func (s *Service) applyEffects(ctx context.Context, o *Order, t Transition, now time.Time) (func(), error) {
	var undo []func()
	for _, effect := range t.Effects {
		switch effect {
		case EffectDeductStock:
			if o.StockDeductedAt != nil {
				continue
			}
			if err := s.adjust(ctx, o, -1, "deduct"); err != nil {
				for _, u := range undo {
					u()
				}
				return nil, err
			}
			deductedAt := now
			o.StockDeductedAt = &deductedAt
			undo = append(undo, func() { _ = s.adjust(context.WithoutCancel(ctx), o, 1, "deduct_undo") })
		case EffectRestoreStock:
			if o.StockDeductedAt == nil {
				continue
			}
			if err := s.adjust(ctx, o, 1, "restore"); err != nil {
				for _, u := range undo {
					u()
				}
				return nil, err
			}
			o.StockDeductedAt = nil
			undo = append(undo, func() { _ = s.adjust(context.WithoutCancel(ctx), o, -1, "restore_undo") })
		}
	}
	if len(undo) == 0 {
		return nil, nil
	}
	return func() {
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
	}, nil
}

func (s *Service) adjust(ctx context.Context, o *Order, sign int, direction string) error {
	if s.stock == nil {
		return nil
	}
	if err := inventory.Apply(ctx, s.stock, o.StockLines(), sign); err != nil {
		metrics.InventoryAdjustments.WithLabelValues(direction, "error").Inc()
		s.logger.Error("inventory adjustment failed",
			zap.String("orderId", o.ID),
			zap.String("direction", direction),
			zap.Error(err),
		)
		return err
	}
	metrics.InventoryAdjustments.WithLabelValues(direction, "ok").Inc()
	return nil
}

func (s *Service) SetPaymentMethod(ctx context.Context, id string, method string, actor string) (*Order, error) {
	method = strings.TrimSpace(method)
	return s.update(ctx, id, actor, func(o *Order) error {
		if method == "" {
			o.PaymentMethod = nil
		} else {
			o.PaymentMethod = &method
		}
		o.History = append(o.History, s.entry(ActionPaymentSet, "", "", actor, method))
		return nil
	})
}

func (s *Service) SetNotes(ctx context.Context, id string, notes string, actor string) (*Order, error) {
	return s.update(ctx, id, actor, func(o *Order) error {
		o.Notes = notes
		o.History = append(o.History, s.entry(ActionNotesUpdated, "", "", actor, ""))
		return nil
	})
}

func (s *Service) update(ctx context.Context, id string, actor string, fn func(o *Order) error) (*Order, error) {
	s.mu.Lock()
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if err := fn(o); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	o.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, o); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	seq := s.nextSeqLocked()
	listeners := s.listenersLocked()
	s.mu.Unlock()

	s.notify(ctx, listeners, Change{Seq: seq, Kind: ChangeUpdated, Order: o.Clone(), Previous: o.Status, Actor: actor})
	return o, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	return s.repo.Get(ctx, id)
}

// List returns the orders matching f, newest first.
func (s *Service) List(ctx context.Context, f Filter) ([]*Order, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return Apply(all, f, s.now()), nil
}

func (s *Service) entry(action string, from, to Status, actor, note string) HistoryEntry {
	return HistoryEntry{
		ID:     uuid.NewString(),
		Action: action,
		From:   from,
		To:     to,
		Actor:  actor,
		Note:   note,
		At:     s.now(),
	}
}

func (s *Service) nextSeqLocked() uint64 {
	s.seq++
	return s.seq
}

func (s *Service) listenersLocked() []Listener {
	return append([]Listener(nil), s.listeners...)
}

func (s *Service) notify(ctx context.Context, listeners []Listener, change Change) {
	for _, l := range listeners {
		l.OrderChanged(ctx, change)
	}
}
