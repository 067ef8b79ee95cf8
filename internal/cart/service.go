package cart

import (
	"context"
	"errors"
	"strings"

	"storefront-order-service/internal/metrics"
	"storefront-order-service/internal/pricing"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrSessionRequired = errors.New("cart session is required")
	ErrInvalidItem     = errors.New("cart item requires productId, businessId and a non-negative price")
)

type Summary struct {
	SessionID string            `json:"sessionId"`
	Items     []LineItem        `json:"items"`
	Groups    []Group           `json:"groups"`
	Count     int               `json:"count"`
	Location  string            `json:"location,omitempty"`
	Currency  string            `json:"currency"`
	Pricing   pricing.Breakdown `json:"pricing"`
	Display   pricing.Breakdown `json:"display"`
}

// Service is the session-scoped cart state container. Mutations of one
// session run one at a time within this process.
type Service struct {
	store   Store
	pricing pricing.Config
	logger  *zap.Logger
	locks   *sessionLocks
}

func NewService(store Store, cfg pricing.Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, pricing: cfg, logger: logger, locks: newSessionLocks()}
}

func NewSessionID() string {
	return uuid.NewString()
}

func (s *Service) Pricing() pricing.Config {
	return s.pricing
}

func (s *Service) Get(ctx context.Context, sessionID string) (*Cart, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrSessionRequired
	}
	return s.store.Load(ctx, sessionID)
}

func (s *Service) Add(ctx context.Context, sessionID string, item LineItem) (Summary, error) {
	key := item.Key()
	if key.ProductID == "" || key.BusinessID == "" || item.UnitPrice < 0 {
		return Summary{}, ErrInvalidItem
	}
	return s.mutate(ctx, sessionID, "add", func(c *Cart) error {
		c.Add(item)
		return nil
	})
}

func (s *Service) Remove(ctx context.Context, sessionID string, key Key) (Summary, error) {
	return s.mutate(ctx, sessionID, "remove", func(c *Cart) error {
		c.Remove(key)
		return nil
	})
}

func (s *Service) Clear(ctx context.Context, sessionID string) (Summary, error) {
	if strings.TrimSpace(sessionID) == "" {
		return Summary{}, ErrSessionRequired
	}
	unlock := s.locks.lock(sessionID)
	defer unlock()
	if err := s.store.Delete(ctx, sessionID); err != nil {
		return Summary{}, err
	}
	metrics.CartOperations.WithLabelValues("clear").Inc()
	return s.summarize(sessionID, &Cart{})
}

func (s *Service) SetLocation(ctx context.Context, sessionID string, location string) (Summary, error) {
	if _, _, err := s.pricing.Rate(location); err != nil {
		return Summary{}, err
	}
	return s.mutate(ctx, sessionID, "location", func(c *Cart) error {
		c.Location = strings.TrimSpace(location)
		return nil
	})
}

func (s *Service) Summary(ctx context.Context, sessionID string) (Summary, error) {
	c, err := s.Get(ctx, sessionID)
	if err != nil {
		return Summary{}, err
	}
	return s.summarize(sessionID, c)
}

// Settle runs fn on the session cart while holding the session lock and
// saves whatever fn left in the cart, even when fn fails part way. Checkout
// uses it so two requests for one session cannot both place the same lines.
func (s *Service) Settle(ctx context.Context, sessionID string, fn func(c *Cart) error) (Summary, error) {
	if strings.TrimSpace(sessionID) == "" {
		return Summary{}, ErrSessionRequired
	}
	unlock := s.locks.lock(sessionID)
	defer unlock()

	c, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return Summary{}, err
	}
	before := c.Count()
	fnErr := fn(c)
	if c.Count() != before {
		if err := s.save(ctx, sessionID, "checkout", c); err != nil {
			return Summary{}, err
		}
	}
	summary, err := s.summarize(sessionID, c)
	if fnErr != nil {
		return summary, fnErr
	}
	return summary, err
}

func (s *Service) mutate(ctx context.Context, sessionID string, op string, fn func(c *Cart) error) (Summary, error) {
	if strings.TrimSpace(sessionID) == "" {
		return Summary{}, ErrSessionRequired
	}
	unlock := s.locks.lock(sessionID)
	defer unlock()

	c, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return Summary{}, err
	}
	if err := fn(c); err != nil {
		return Summary{}, err
	}
	if err := s.save(ctx, sessionID, op, c); err != nil {
		return Summary{}, err
	}
	return s.summarize(sessionID, c)
}

func (s *Service) save(ctx context.Context, sessionID string, op string, c *Cart) error {
	if err := s.store.Save(ctx, sessionID, c); err != nil {
		s.logger.Error("cart save failed", zap.String("sessionId", sessionID), zap.String("op", op), zap.Error(err))
		return err
	}
	metrics.CartOperations.WithLabelValues(op).Inc()
	return nil
}

func (s *Service) summarize(sessionID string, c *Cart) (Summary, error) {
	breakdown := s.pricing.Compute(c.Subtotal(), 0)
	rate, currency, err := s.pricing.Rate(c.Location)
	if err != nil {
		// A stale location from an older pricing config falls back to base.
		s.logger.Warn("cart location no longer configured", zap.String("location", c.Location))
		rate, currency, _ = s.pricing.Rate("")
	}
	items := c.Items
	if items == nil {
		items = []LineItem{}
	}
	return Summary{
		SessionID: sessionID,
		Items:     items,
		Groups:    c.Groups(),
		Count:     c.Count(),
		Location:  c.Location,
		Currency:  currency,
		Pricing:   breakdown,
		Display:   breakdown.Scale(rate).Rounded(),
	}, nil
}
