package catalog

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"storefront-order-service/internal/inventory"
	"storefront-order-service/internal/media"
	"storefront-order-service/internal/storage"
	"storefront-order-service/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *MemoryRepository, *storage.MemoryStore) {
	t.Helper()
	repo := NewMemoryRepository()
	blobs := storage.NewMemoryStore("http://media.test")
	return NewService(repo, blobs, nil), repo, blobs
}

func seedBusiness(t *testing.T, svc *Service) Business {
	t.Helper()
	b, err := svc.CreateBusiness(context.Background(), BusinessInput{Name: "La Bodeguita", Phone: "+53 5555 1234"})
	require.NoError(t, err)
	return b
}

func TestCreateBusinessValidation(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.CreateBusiness(context.Background(), BusinessInput{Kind: "bank"})
	v, ok := validation.As(err)
	require.True(t, ok)
	assert.Equal(t, "is required", v.Fields["name"])
	assert.Equal(t, "is required", v.Fields["phone"])
	assert.Equal(t, "must be restaurant or shop", v.Fields["type"])

	b := seedBusiness(t, svc)
	assert.Equal(t, KindRestaurant, b.Kind)
	assert.True(t, b.Active)
	assert.NotEmpty(t, b.ID)
}

func TestProductCRUDKeepsStock(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestService(t)
	b := seedBusiness(t, svc)

	p, err := svc.CreateProduct(ctx, b.ID, ProductInput{
		Name:     "Ropa vieja",
		Price:    100,
		Stock:    10,
		Variants: []Variant{{Name: "Grande", Price: 130}},
	})
	require.NoError(t, err)
	require.Len(t, p.Variants, 1)
	assert.NotEmpty(t, p.Variants[0].ID)

	require.NoError(t, repo.Adjust(ctx, p.ID, -3))

	updated, err := svc.UpdateProduct(ctx, p.ID, ProductInput{Name: "Ropa vieja criolla", Price: 110, Stock: 99})
	require.NoError(t, err)
	assert.Equal(t, 7, updated.Stock)
	assert.Equal(t, 110.0, updated.Price)

	_, err = svc.CreateProduct(ctx, "missing", ProductInput{Name: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteBusinessCascades(t *testing.T) {
	ctx := context.Background()
	svc, repo, blobs := newTestService(t)
	b := seedBusiness(t, svc)
	other := seedBusiness(t, svc)

	for i := 0; i < 6; i++ {
		_, err := svc.CreateProduct(ctx, b.ID, ProductInput{Name: "Plato", Price: 5})
		require.NoError(t, err)
	}
	kept, err := svc.CreateProduct(ctx, other.ID, ProductInput{Name: "Mojito", Price: 3})
	require.NoError(t, err)
	_, _ = blobs.Put(ctx, storage.ProductImageKey(b.ID, "p", "main", "1"), []byte("x"), "image/jpeg")

	require.NoError(t, svc.DeleteBusiness(ctx, b.ID))

	_, err = repo.GetBusiness(ctx, b.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	left, err := repo.ListProducts(ctx, "")
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, kept.ID, left[0].ID)
	assert.Equal(t, 0, blobs.Len())

	assert.ErrorIs(t, svc.DeleteBusiness(ctx, b.ID), ErrNotFound)
}

type failingDeletes struct {
	*MemoryRepository
}

func (f failingDeletes) DeleteProduct(context.Context, string) error {
	return errors.New("document store unavailable")
}

func TestDeleteBusinessStopsOnProductFailure(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryRepository()
	svc := NewService(failingDeletes{mem}, nil, nil)
	b := seedBusiness(t, svc)
	_, err := svc.CreateProduct(ctx, b.ID, ProductInput{Name: "Plato", Price: 5})
	require.NoError(t, err)

	require.Error(t, svc.DeleteBusiness(ctx, b.ID))
	_, err = mem.GetBusiness(ctx, b.ID)
	assert.NoError(t, err)
}

func TestQuoteUsesStoredPrice(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	b := seedBusiness(t, svc)
	p, err := svc.CreateProduct(ctx, b.ID, ProductInput{
		Name:     "Pizza",
		Price:    100,
		Variants: []Variant{{ID: "xl", Name: "XL", Price: 150}},
	})
	require.NoError(t, err)

	line, err := svc.Quote(ctx, p.ID, "", 2)
	require.NoError(t, err)
	assert.Equal(t, 100.0, line.UnitPrice)
	assert.Equal(t, b.Name, line.BusinessName)
	assert.Equal(t, 2, line.Quantity)

	line, err = svc.Quote(ctx, p.ID, "xl", 1)
	require.NoError(t, err)
	assert.Equal(t, 150.0, line.UnitPrice)
	assert.Equal(t, "Pizza (XL)", line.Name)

	_, err = svc.Quote(ctx, p.ID, "nope", 1)
	assert.ErrorIs(t, err, ErrVariantNotFound)

	off := false
	_, err = svc.UpdateProduct(ctx, p.ID, ProductInput{Name: "Pizza", Price: 100, Active: &off})
	require.NoError(t, err)
	_, err = svc.Quote(ctx, p.ID, "", 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUploadProductImage(t *testing.T) {
	ctx := context.Background()
	svc, _, blobs := newTestService(t)
	tick := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}
	b := seedBusiness(t, svc)
	p, err := svc.CreateProduct(ctx, b.ID, ProductInput{Name: "Flan", Price: 2})
	require.NoError(t, err)

	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	updated, err := svc.UploadProductImage(ctx, p.ID, buf.Bytes(), media.Crop{})
	require.NoError(t, err)
	assert.Contains(t, updated.ImageURL, "http://media.test/comercios/"+b.ID+"/products/"+p.ID+"/main-")
	assert.Contains(t, updated.ThumbURL, "/thumb-")
	assert.Equal(t, 2, blobs.Len())

	again, err := svc.UploadProductImage(ctx, p.ID, buf.Bytes(), media.Crop{})
	require.NoError(t, err)
	assert.NotEqual(t, updated.ImageURL, again.ImageURL)
	assert.Equal(t, 2, blobs.Len())

	_, err = svc.UploadProductImage(ctx, p.ID, []byte("%PDF-1.4"), media.Crop{})
	v, ok := validation.As(err)
	require.True(t, ok)
	assert.Equal(t, validation.ErrUnsupportedFile, v.Code)
}

func TestMemoryRepositoryIsInventoryStore(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestService(t)
	b := seedBusiness(t, svc)
	p, err := svc.CreateProduct(ctx, b.ID, ProductInput{Name: "Cafe", Price: 1, Stock: 4})
	require.NoError(t, err)

	require.NoError(t, inventory.Apply(ctx, repo, []inventory.Line{{ProductID: p.ID, Quantity: 6}, {ProductID: "gone", Quantity: 1}}, -1))
	rec, err := repo.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, -2, rec.Stock)
}
