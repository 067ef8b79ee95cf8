package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeGrandTotalIdentity(t *testing.T) {
	cfg := Config{CommissionPercent: 5, ServiceFee: 1.5, DeliveryFee: 3}
	for _, subtotal := range []float64{0, 1, 19.99, 250, 1000.75} {
		b := cfg.Compute(subtotal, 0)
		assert.Equal(t, subtotal*5/100, b.PlatformFee)
		assert.Equal(t, b.Subtotal+b.PlatformFee+b.ServiceFee+b.DeliveryFee-b.Discount, b.GrandTotal)
	}
}

func TestComputeTwoLineCart(t *testing.T) {
	cfg := Config{CommissionPercent: 5, ServiceFee: 2, DeliveryFee: 4}
	subtotal := 100.0*2 + 50.0*1

	b := cfg.Compute(subtotal, 0)
	assert.Equal(t, 250.0, b.Subtotal)
	assert.Equal(t, 12.5, b.PlatformFee)
	assert.Equal(t, 250+12.5+2+4.0, b.GrandTotal)
	assert.Equal(t, 14.5, b.Commission())
}

func TestComputeDiscount(t *testing.T) {
	cfg := Config{CommissionPercent: 10}
	b := cfg.Compute(100, 15)
	assert.Equal(t, 95.0, b.GrandTotal)
}

func TestDeliveryTiers(t *testing.T) {
	cfg := Config{
		DeliveryFee: 5,
		DeliveryTiers: []DeliveryTier{
			{MinSubtotal: 100, Fee: 0},
			{MinSubtotal: 20, Fee: 2},
		},
	}
	cases := []struct {
		subtotal float64
		fee      float64
	}{
		{10, 5},
		{20, 2},
		{99.99, 2},
		{100, 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.fee, cfg.Compute(tc.subtotal, 0).DeliveryFee, "subtotal %v", tc.subtotal)
	}
}

func TestConvert(t *testing.T) {
	cfg := Config{
		BaseCurrency:    "USD",
		DefaultLocation: "hav",
		Locations: map[string]Location{
			"hav": {Name: "La Habana", Currency: "CUP", Rate: 120},
			"mia": {Name: "Miami", Currency: "USD", Rate: 1},
		},
	}

	amount, currency, err := cfg.Convert(2.5, "")
	require.NoError(t, err)
	assert.Equal(t, 300.0, amount)
	assert.Equal(t, "CUP", currency)

	amount, currency, err = cfg.Convert(2.5, "mia")
	require.NoError(t, err)
	assert.Equal(t, 2.5, amount)
	assert.Equal(t, "USD", currency)

	_, _, err = cfg.Convert(1, "nowhere")
	assert.ErrorIs(t, err, ErrUnknownLocation)
}

func TestConvertWithoutLocations(t *testing.T) {
	amount, currency, err := Config{}.Convert(9, "")
	require.NoError(t, err)
	assert.Equal(t, 9.0, amount)
	assert.Equal(t, "USD", currency)
}

func TestScaleAndRound(t *testing.T) {
	b := Config{CommissionPercent: 5}.Compute(10, 0).Scale(3)
	assert.Equal(t, 30.0, b.Subtotal)
	assert.Equal(t, 1.5, b.PlatformFee)
	assert.Equal(t, 1.23, Round2(1.2345))
	assert.Equal(t, 1.24, Round2(1.235001))
}

func TestParseOverlay(t *testing.T) {
	base := Config{CommissionPercent: 5, ServiceFee: 1}
	raw := []byte(`
commissionPercent: 8
deliveryTiers:
  - minSubtotal: 0
    fee: 3
baseCurrency: USD
defaultLocation: hav
locations:
  hav:
    name: La Habana
    currency: CUP
    rate: 120
`)
	cfg, err := Parse(raw, base)
	require.NoError(t, err)
	assert.Equal(t, 8.0, cfg.CommissionPercent)
	assert.Equal(t, 1.0, cfg.ServiceFee)
	assert.Len(t, cfg.DeliveryTiers, 1)
	assert.Equal(t, "CUP", cfg.Locations["hav"].Currency)

	_, err = Parse([]byte("defaultLocation: mars\nlocations:\n  hav: {rate: 1}\n"), base)
	assert.ErrorIs(t, err, ErrUnknownLocation)
}
