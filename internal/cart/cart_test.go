package cart

import (
	"context"
	"sync"
	"testing"
	"time"

	"storefront-order-service/internal/pricing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func burger() LineItem {
	return LineItem{ProductID: "p1", BusinessID: "b1", BusinessName: "Paladar", Name: "Burger", UnitPrice: 100}
}

func TestAddSameKeyIncrements(t *testing.T) {
	var c Cart
	c.Add(burger())
	c.Add(burger())

	require.Len(t, c.Items, 1)
	assert.Equal(t, 2, c.Items[0].Quantity)
}

func TestAddDistinguishesVariantAndBusiness(t *testing.T) {
	var c Cart
	c.Add(burger())

	variant := burger()
	variant.VariantID = "large"
	c.Add(variant)

	other := burger()
	other.BusinessID = "b2"
	c.Add(other)

	assert.Len(t, c.Items, 3)
}

func TestAddExplicitQuantity(t *testing.T) {
	var c Cart
	item := burger()
	item.Quantity = 3
	c.Add(item)
	c.Add(item)

	require.Len(t, c.Items, 1)
	assert.Equal(t, 6, c.Items[0].Quantity)
}

func TestRemoveToZeroDeletesLine(t *testing.T) {
	var c Cart
	c.Add(burger())
	c.Add(LineItem{ProductID: "p2", BusinessID: "b1", UnitPrice: 50})
	c.Add(burger())

	c.Remove(burger().Key())
	require.Len(t, c.Items, 2)
	assert.Equal(t, 1, c.Items[0].Quantity)

	c.Remove(burger().Key())
	require.Len(t, c.Items, 1)
	assert.Equal(t, "p2", c.Items[0].ProductID)
}

func TestRemoveUnknownKeyIsNoop(t *testing.T) {
	var c Cart
	c.Add(burger())
	c.Remove(Key{ProductID: "missing", BusinessID: "b1"})
	require.Len(t, c.Items, 1)
	assert.Equal(t, 1, c.Items[0].Quantity)
}

func TestSubtotalAcrossBusinesses(t *testing.T) {
	var c Cart
	first := burger()
	first.Quantity = 2
	c.Add(first)
	c.Add(LineItem{ProductID: "p9", BusinessID: "b2", UnitPrice: 50})

	assert.Equal(t, 250.0, c.Subtotal())
	assert.Equal(t, 3, c.Count())

	groups := c.Groups()
	require.Len(t, groups, 2)
	assert.Equal(t, "b1", groups[0].BusinessID)
	assert.Equal(t, 200.0, groups[0].Subtotal)
	assert.Equal(t, 50.0, groups[1].Subtotal)

	c.RemoveBusiness("b1")
	require.Len(t, c.Items, 1)
	assert.Equal(t, "b2", c.Items[0].BusinessID)

	c.Clear()
	assert.Empty(t, c.Items)
	assert.Zero(t, c.Subtotal())
}

func TestServiceSummary(t *testing.T) {
	ctx := context.Background()
	cfg := pricing.Config{
		CommissionPercent: 5,
		ServiceFee:        1,
		BaseCurrency:      "USD",
		Locations:         map[string]pricing.Location{"hav": {Currency: "CUP", Rate: 100}},
	}
	svc := NewService(NewMemoryStore(), cfg, nil)

	_, err := svc.Add(ctx, "s1", LineItem{ProductID: "p1", BusinessID: "b1", UnitPrice: 100, Quantity: 2})
	require.NoError(t, err)
	summary, err := svc.Add(ctx, "s1", LineItem{ProductID: "p2", BusinessID: "b1", UnitPrice: 50})
	require.NoError(t, err)

	assert.Equal(t, 250.0, summary.Pricing.Subtotal)
	assert.Equal(t, 12.5, summary.Pricing.PlatformFee)
	assert.Equal(t, "USD", summary.Currency)

	summary, err = svc.SetLocation(ctx, "s1", "hav")
	require.NoError(t, err)
	assert.Equal(t, "CUP", summary.Currency)
	assert.Equal(t, 25000.0, summary.Display.Subtotal)

	_, err = svc.SetLocation(ctx, "s1", "mars")
	assert.ErrorIs(t, err, pricing.ErrUnknownLocation)

	summary, err = svc.Remove(ctx, "s1", Key{ProductID: "p2", BusinessID: "b1"})
	require.NoError(t, err)
	assert.Len(t, summary.Items, 1)

	summary, err = svc.Clear(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, summary.Items)
	assert.Zero(t, summary.Pricing.Subtotal)
}

func TestServiceValidation(t *testing.T) {
	svc := NewService(NewMemoryStore(), pricing.Config{}, nil)
	_, err := svc.Add(context.Background(), "s1", LineItem{ProductID: "p1"})
	assert.ErrorIs(t, err, ErrInvalidItem)

	_, err = svc.Summary(context.Background(), " ")
	assert.ErrorIs(t, err, ErrSessionRequired)
}

func TestRedisStoreRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	store := NewRedisStore(client, time.Hour)

	empty, err := store.Load(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty.Items)

	c := &Cart{Location: "hav"}
	c.Add(burger())
	require.NoError(t, store.Save(ctx, "s1", c))
	assert.True(t, mr.Exists("storefront:cart:s1"))
	assert.Equal(t, time.Hour, mr.TTL("storefront:cart:s1"))

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, loaded.Items, 1)
	assert.Equal(t, "hav", loaded.Location)
	assert.Equal(t, "Burger", loaded.Items[0].Name)

	require.NoError(t, store.Delete(ctx, "s1"))
	assert.False(t, mr.Exists("storefront:cart:s1"))
}

// slowStore stretches each load the way a Redis round trip would.
type slowStore struct {
	*MemoryStore
	delay time.Duration
}

func (s slowStore) Load(ctx context.Context, sessionID string) (*Cart, error) {
	time.Sleep(s.delay)
	return s.MemoryStore.Load(ctx, sessionID)
}

func TestConcurrentAddsOnOneSession(t *testing.T) {
	svc := NewService(slowStore{MemoryStore: NewMemoryStore(), delay: 2 * time.Millisecond}, pricing.Config{}, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Add(ctx, "s1", burger())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	c, err := svc.Get(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 20, c.Items[0].Quantity)
	assert.Equal(t, 0, svc.locks.size())
}

func TestSettleSavesPartialWork(t *testing.T) {
	svc := NewService(NewMemoryStore(), pricing.Config{}, nil)
	ctx := context.Background()
	_, err := svc.Add(ctx, "s1", burger())
	require.NoError(t, err)
	other := burger()
	other.ProductID, other.BusinessID = "p9", "b2"
	_, err = svc.Add(ctx, "s1", other)
	require.NoError(t, err)

	failed := assert.AnError
	summary, err := svc.Settle(ctx, "s1", func(c *Cart) error {
		c.RemoveBusiness("b1")
		return failed
	})
	assert.ErrorIs(t, err, failed)
	require.Len(t, summary.Items, 1)
	assert.Equal(t, "b2", summary.Items[0].BusinessID)

	c, err := svc.Get(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, "b2", c.Items[0].BusinessID)
}
