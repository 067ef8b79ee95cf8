// Package checkout turns a session cart into one pending order per business
// and prepares the WhatsApp message the customer sends.
package checkout

import (
	"context"
	"errors"
	"strings"

	"storefront-order-service/internal/cart"
	"storefront-order-service/internal/catalog"
	"storefront-order-service/internal/order"
	"storefront-order-service/internal/validation"
	"storefront-order-service/internal/voucher"
	"storefront-order-service/internal/whatsapp"

	"go.uber.org/zap"
)

var ErrEmptyCart = errors.New("cart is empty")

type Businesses interface {
	GetBusiness(ctx context.Context, id string) (catalog.Business, error)
}

type Request struct {
	Customer      order.Customer `json:"customer"`
	PaymentMethod string         `json:"paymentMethod"`
	Notes         string         `json:"notes"`
	// BusinessID limits checkout to one business; empty checks out all.
	BusinessID  string `json:"businessId"`
	VoucherCode string `json:"voucherCode"`
}

type Placed struct {
	Order         *order.Order            `json:"order"`
	Message       string                  `json:"message"`
	WhatsAppLink  string                  `json:"whatsappLink,omitempty"`
	Discount      *voucher.DiscountResult `json:"discount,omitempty"`
	TrackingToken string                  `json:"trackingToken,omitempty"`
}

type Result struct {
	Orders []Placed     `json:"orders"`
	Cart   cart.Summary `json:"cart"`
}

type Service struct {
	carts         *cart.Service
	businesses    Businesses
	orders        *order.Service
	vouchers      *voucher.Service
	fallbackPhone string
	logger        *zap.Logger
}

func NewService(carts *cart.Service, businesses Businesses, orders *order.Service, fallbackPhone string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{carts: carts, businesses: businesses, orders: orders, fallbackPhone: fallbackPhone, logger: logger}
}

// WithVouchers enables discount codes at checkout.
func (s *Service) WithVouchers(v *voucher.Service) *Service {
	s.vouchers = v
	return s
}

func validate(req Request) error {
	f := validation.Fields{}
	f.Require("customer.name", req.Customer.Name)
	f.Require("customer.phone", req.Customer.Phone)
	return f.Err()
}

// Checkout snapshots each business group of the cart into an order priced
// from its own subtotal, then drops those lines from the cart. The session
// stays locked for the whole run. Groups that were already placed stay
// placed if a later one fails.
func (s *Service) Checkout(ctx context.Context, sessionID string, req Request) (Result, error) {
	if err := validate(req); err != nil {
		return Result{}, err
	}
	var result Result
	summary, err := s.carts.Settle(ctx, sessionID, func(c *cart.Cart) error {
		placed, err := s.place(ctx, c, req)
		result.Orders = placed
		return err
	})
	result.Cart = summary
	return result, err
}

func (s *Service) place(ctx context.Context, c *cart.Cart, req Request) ([]Placed, error) {
	groups := c.Groups()
	if req.BusinessID != "" {
		selected := groups[:0]
		for _, g := range groups {
			if g.BusinessID == req.BusinessID {
				selected = append(selected, g)
			}
		}
		groups = selected
	}
	if len(groups) == 0 {
		return nil, ErrEmptyCart
	}

	discounts, err := s.quoteVoucher(ctx, req.VoucherCode, groups)
	if err != nil {
		return nil, err
	}

	cfg := s.carts.Pricing()
	rate, currency, err := cfg.Rate(c.Location)
	if err != nil {
		rate, currency, _ = cfg.Rate("")
	}

	var payment *string
	if pm := strings.TrimSpace(req.PaymentMethod); pm != "" {
		payment = &pm
	}
	customer := order.Customer{
		Name:    strings.TrimSpace(req.Customer.Name),
		Phone:   strings.TrimSpace(req.Customer.Phone),
		Address: strings.TrimSpace(req.Customer.Address),
	}

	placed := make([]Placed, 0, len(groups))
	for _, g := range groups {
		ref := order.BusinessRef{ID: g.BusinessID, Name: g.BusinessName}
		phone := s.fallbackPhone
		if b, err := s.businesses.GetBusiness(ctx, g.BusinessID); err == nil {
			ref.Name = b.Name
			ref.Phone = b.WhatsApp
			if ref.Phone == "" {
				ref.Phone = b.Phone
			}
			if whatsapp.Digits(ref.Phone) != "" {
				phone = ref.Phone
			}
		} else if !errors.Is(err, catalog.ErrNotFound) {
			return placed, err
		}

		discount := discounts[g.BusinessID]
		amount := 0.0
		if discount != nil {
			if err := s.vouchers.Redeem(ctx, discount.Code); err != nil {
				return placed, err
			}
			amount = discount.DiscountAmount
		}
		o, err := s.orders.AddOrder(ctx, order.Draft{
			Customer:      customer,
			Items:         g.Items,
			Business:      ref,
			Pricing:       cfg.Compute(cart.Subtotal(g.Items), amount),
			PaymentMethod: payment,
			Notes:         strings.TrimSpace(req.Notes),
		})
		if err != nil {
			if discount != nil {
				if rerr := s.vouchers.Release(context.WithoutCancel(ctx), discount.Code); rerr != nil {
					s.logger.Warn("voucher release failed", zap.String("code", discount.Code), zap.Error(rerr))
				}
			}
			return placed, err
		}

		p := Placed{Order: o, Message: whatsapp.RenderOrderMessage(o, currency, rate), Discount: discount}
		if link, err := whatsapp.Link(phone, p.Message); err == nil {
			p.WhatsAppLink = link
		} else {
			s.logger.Warn("no whatsapp number for business", zap.String("businessId", g.BusinessID))
		}
		placed = append(placed, p)
		c.RemoveBusiness(g.BusinessID)
	}
	return placed, nil
}

// quoteVoucher prices code against every group before any order is placed.
// Groups the code does not apply to, or that exceed its remaining uses, pay
// full price; a code that applies to none of them is an error.
func (s *Service) quoteVoucher(ctx context.Context, code string, groups []cart.Group) (map[string]*voucher.DiscountResult, error) {
	if strings.TrimSpace(code) == "" {
		return nil, nil
	}
	if s.vouchers == nil {
		return nil, voucher.ValidationError(voucher.ErrVoucherNotFound, "Vouchers are not enabled", nil)
	}
	quoted := make([]voucher.Group, 0, len(groups))
	for _, g := range groups {
		items := make([]voucher.Item, 0, len(g.Items))
		for _, it := range g.Items {
			items = append(items, voucher.Item{ProductID: it.ProductID, Subtotal: it.Total()})
		}
		quoted = append(quoted, voucher.Group{BusinessID: g.BusinessID, Items: items})
	}
	return s.vouchers.QuoteGroups(ctx, code, quoted)
}
