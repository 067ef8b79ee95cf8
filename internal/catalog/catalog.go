package catalog

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("catalog entry not found")

const (
	KindRestaurant = "restaurant"
	KindShop       = "shop"
)

// Business is a comercio: a restaurant or shop that owns products and
// receives orders.
type Business struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Kind      string    `json:"type"`
	Phone     string    `json:"phone"`
	WhatsApp  string    `json:"whatsapp"`
	Address   string    `json:"address"`
	Region    string    `json:"region"`
	ImageURL  string    `json:"imageUrl,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Variant struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type Product struct {
	ID          string    `json:"id"`
	BusinessID  string    `json:"businessId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Price       float64   `json:"price"`
	Variants    []Variant `json:"variants,omitempty"`
	Stock       int       `json:"stock"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	ThumbURL    string    `json:"thumbUrl,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// PriceFor returns the unit price of the product or one of its variants.
func (p Product) PriceFor(variantID string) (float64, string, bool) {
	if variantID == "" {
		return p.Price, p.Name, true
	}
	for _, v := range p.Variants {
		if v.ID == variantID {
			return v.Price, p.Name + " (" + v.Name + ")", true
		}
	}
	return 0, "", false
}

type Repository interface {
	ListBusinesses(ctx context.Context, onlyActive bool) ([]Business, error)
	GetBusiness(ctx context.Context, id string) (Business, error)
	SaveBusiness(ctx context.Context, b Business) error
	DeleteBusiness(ctx context.Context, id string) error

	ListProducts(ctx context.Context, businessID string) ([]Product, error)
	GetProduct(ctx context.Context, id string) (Product, error)
	SaveProduct(ctx context.Context, p Product) error
	DeleteProduct(ctx context.Context, id string) error
}
