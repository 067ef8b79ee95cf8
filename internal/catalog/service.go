package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"storefront-order-service/internal/cart"
	"storefront-order-service/internal/media"
	"storefront-order-service/internal/storage"
	"storefront-order-service/internal/validation"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	productImageSize   = 800
	productThumbSize   = 200
	productImageQual   = 85
	cascadeConcurrency = 4
)

var ErrVariantNotFound = errors.New("product variant not found")

type BusinessInput struct {
	Name     string `json:"name"`
	Kind     string `json:"type"`
	Phone    string `json:"phone"`
	WhatsApp string `json:"whatsapp"`
	Address  string `json:"address"`
	Region   string `json:"region"`
	ImageURL string `json:"imageUrl"`
	Active   *bool  `json:"active"`
}

type ProductInput struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Price       float64   `json:"price"`
	Variants    []Variant `json:"variants"`
	Stock       int       `json:"stock"`
	Active      *bool     `json:"active"`
}

type Service struct {
	repo   Repository
	blobs  storage.Blobs
	logger *zap.Logger
	now    func() time.Time
}

// NewService wires the catalog. blobs may be nil when uploads are disabled.
func NewService(repo Repository, blobs storage.Blobs, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, blobs: blobs, logger: logger, now: time.Now}
}

func (s *Service) ListBusinesses(ctx context.Context, onlyActive bool) ([]Business, error) {
	return s.repo.ListBusinesses(ctx, onlyActive)
}

func (s *Service) GetBusiness(ctx context.Context, id string) (Business, error) {
	return s.repo.GetBusiness(ctx, id)
}

func validateBusiness(in BusinessInput) error {
	f := validation.Fields{}
	f.Require("name", in.Name)
	f.Require("phone", in.Phone)
	kind := strings.TrimSpace(in.Kind)
	f.Check(kind == "" || kind == KindRestaurant || kind == KindShop, "type", "must be restaurant or shop")
	return f.Err()
}

func (in BusinessInput) apply(b *Business) {
	b.Name = strings.TrimSpace(in.Name)
	b.Kind = strings.TrimSpace(in.Kind)
	if b.Kind == "" {
		b.Kind = KindRestaurant
	}
	b.Phone = strings.TrimSpace(in.Phone)
	b.WhatsApp = strings.TrimSpace(in.WhatsApp)
	b.Address = strings.TrimSpace(in.Address)
	b.Region = strings.TrimSpace(in.Region)
	if v := strings.TrimSpace(in.ImageURL); v != "" {
		b.ImageURL = v
	}
	if in.Active != nil {
		b.Active = *in.Active
	}
}

func (s *Service) CreateBusiness(ctx context.Context, in BusinessInput) (Business, error) {
	if err := validateBusiness(in); err != nil {
		return Business{}, err
	}
	now := s.now()
	b := Business{ID: uuid.NewString(), Active: true, CreatedAt: now, UpdatedAt: now}
	in.apply(&b)
	if err := s.repo.SaveBusiness(ctx, b); err != nil {
		return Business{}, err
	}
	s.logger.Info("business created", zap.String("businessId", b.ID), zap.String("name", b.Name))
	return b, nil
}

func (s *Service) UpdateBusiness(ctx context.Context, id string, in BusinessInput) (Business, error) {
	if err := validateBusiness(in); err != nil {
		return Business{}, err
	}
	b, err := s.repo.GetBusiness(ctx, id)
	if err != nil {
		return Business{}, err
	}
	in.apply(&b)
	b.UpdatedAt = s.now()
	if err := s.repo.SaveBusiness(ctx, b); err != nil {
		return Business{}, err
	}
	return b, nil
}

// DeleteBusiness removes every product of the business one by one, then the
// business itself. A failure part way leaves the remaining products in place.
func (s *Service) DeleteBusiness(ctx context.Context, id string) error {
	if _, err := s.repo.GetBusiness(ctx, id); err != nil {
		return err
	}
	products, err := s.repo.ListProducts(ctx, id)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cascadeConcurrency)
	for _, p := range products {
		productID := p.ID
		g.Go(func() error {
			if err := s.repo.DeleteProduct(gctx, productID); err != nil && !errors.Is(err, ErrNotFound) {
				return fmt.Errorf("delete product %s: %w", productID, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := s.repo.DeleteBusiness(ctx, id); err != nil {
		return err
	}
	if s.blobs != nil {
		if err := s.blobs.DeletePrefix(ctx, storage.BusinessPrefix(id)); err != nil {
			s.logger.Warn("business media cleanup failed", zap.String("businessId", id), zap.Error(err))
		}
	}
	s.logger.Info("business deleted", zap.String("businessId", id), zap.Int("products", len(products)))
	return nil
}

// ListProducts returns the products of a business; onlyActive hides
// products switched off by the owner.
func (s *Service) ListProducts(ctx context.Context, businessID string, onlyActive bool) ([]Product, error) {
	products, err := s.repo.ListProducts(ctx, businessID)
	if err != nil || !onlyActive {
		return products, err
	}
	out := products[:0]
	for _, p := range products {
		if p.Active {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Service) GetProduct(ctx context.Context, id string) (Product, error) {
	return s.repo.GetProduct(ctx, id)
}

func validateProduct(in ProductInput) error {
	f := validation.Fields{}
	f.Require("name", in.Name)
	f.Check(in.Price >= 0, "price", "must be zero or more")
	for i, v := range in.Variants {
		field := "variants." + strconv.Itoa(i)
		f.Check(strings.TrimSpace(v.Name) != "", field+".name", "is required")
		f.Check(v.Price >= 0, field+".price", "must be zero or more")
	}
	return f.Err()
}

func (in ProductInput) apply(p *Product) {
	p.Name = strings.TrimSpace(in.Name)
	p.Description = strings.TrimSpace(in.Description)
	p.Category = strings.TrimSpace(in.Category)
	p.Price = in.Price
	p.Variants = make([]Variant, 0, len(in.Variants))
	for _, v := range in.Variants {
		if strings.TrimSpace(v.ID) == "" {
			v.ID = uuid.NewString()
		}
		v.Name = strings.TrimSpace(v.Name)
		p.Variants = append(p.Variants, v)
	}
	if in.Active != nil {
		p.Active = *in.Active
	}
}

func (s *Service) CreateProduct(ctx context.Context, businessID string, in ProductInput) (Product, error) {
	if _, err := s.repo.GetBusiness(ctx, businessID); err != nil {
		return Product{}, err
	}
	if err := validateProduct(in); err != nil {
		return Product{}, err
	}
	now := s.now()
	p := Product{ID: uuid.NewString(), BusinessID: businessID, Stock: in.Stock, Active: true, CreatedAt: now, UpdatedAt: now}
	in.apply(&p)
	if err := s.repo.SaveProduct(ctx, p); err != nil {
		return Product{}, err
	}
	return p, nil
}

// UpdateProduct edits the descriptive fields. Stock is left alone; it moves
// only through inventory adjustments.
func (s *Service) UpdateProduct(ctx context.Context, id string, in ProductInput) (Product, error) {
	if err := validateProduct(in); err != nil {
		return Product{}, err
	}
	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return Product{}, err
	}
	in.apply(&p)
	p.UpdatedAt = s.now()
	if err := s.repo.SaveProduct(ctx, p); err != nil {
		return Product{}, err
	}
	return p, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.dropImage(ctx, p.ImageURL)
	s.dropImage(ctx, p.ThumbURL)
	return nil
}

func (s *Service) dropImage(ctx context.Context, url string) {
	if s.blobs == nil || url == "" {
		return
	}
	if err := s.blobs.DeleteURL(ctx, url); err != nil && !errors.Is(err, storage.ErrUnmanagedURL) {
		s.logger.Warn("product image cleanup failed", zap.String("url", url), zap.Error(err))
	}
}

// UploadProductImage crops the photo to a square, stores main and thumbnail
// renditions, and points the product at them.
func (s *Service) UploadProductImage(ctx context.Context, productID string, data []byte, crop media.Crop) (Product, error) {
	if s.blobs == nil {
		return Product{}, validation.New(validation.ErrUnsupportedFile, "Image uploads are disabled", http.StatusServiceUnavailable)
	}
	if !media.Accepts(media.Sniff(data)) {
		return Product{}, validation.New(validation.ErrUnsupportedFile, "Unsupported image type", http.StatusUnsupportedMediaType)
	}
	p, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return Product{}, err
	}
	out, err := media.Process(data, crop, productImageSize, productThumbSize, productImageQual)
	if err != nil {
		if errors.Is(err, media.ErrInvalidCrop) {
			f := validation.Fields{"crop": err.Error()}
			return Product{}, f.Err()
		}
		return Product{}, validation.New(validation.ErrUnsupportedFile, err.Error(), http.StatusUnsupportedMediaType)
	}

	stamp := strconv.FormatInt(s.now().UnixNano(), 36)
	mainURL, err := s.blobs.Put(ctx, storage.ProductImageKey(p.BusinessID, p.ID, "main", stamp), out.Main, "image/jpeg")
	if err != nil {
		return Product{}, err
	}
	thumbURL, err := s.blobs.Put(ctx, storage.ProductImageKey(p.BusinessID, p.ID, "thumb", stamp), out.Thumb, "image/jpeg")
	if err != nil {
		s.dropImage(ctx, mainURL)
		return Product{}, err
	}

	oldMain, oldThumb := p.ImageURL, p.ThumbURL
	p.ImageURL, p.ThumbURL = mainURL, thumbURL
	p.UpdatedAt = s.now()
	if err := s.repo.SaveProduct(ctx, p); err != nil {
		s.dropImage(ctx, mainURL)
		s.dropImage(ctx, thumbURL)
		return Product{}, err
	}
	s.dropImage(ctx, oldMain)
	s.dropImage(ctx, oldThumb)
	s.logger.Info("product image updated",
		zap.String("productId", p.ID),
		zap.Int("sourceWidth", out.Meta.Width),
		zap.Int("sourceHeight", out.Meta.Height),
		zap.String("sourceFormat", out.Meta.Format),
	)
	return p, nil
}

// Quote builds a cart line from the stored product so clients cannot set
// their own prices.
func (s *Service) Quote(ctx context.Context, productID, variantID string, quantity int) (cart.LineItem, error) {
	p, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return cart.LineItem{}, err
	}
	if !p.Active {
		return cart.LineItem{}, ErrNotFound
	}
	b, err := s.repo.GetBusiness(ctx, p.BusinessID)
	if err != nil {
		return cart.LineItem{}, err
	}
	price, name, ok := p.PriceFor(variantID)
	if !ok {
		return cart.LineItem{}, ErrVariantNotFound
	}
	return cart.LineItem{
		ProductID:    p.ID,
		VariantID:    variantID,
		BusinessID:   b.ID,
		BusinessName: b.Name,
		Name:         name,
		UnitPrice:    price,
		Quantity:     quantity,
		ImageURL:     p.ThumbURL,
	}, nil
}
