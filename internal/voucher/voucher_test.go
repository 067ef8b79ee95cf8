package voucher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestComputePercentageWithCap(t *testing.T) {
	v := Voucher{Code: "VERANO", DiscountType: DiscountPercentage, DiscountValue: 20, MaxDiscountAmount: ptr(5.0), Active: true}
	res, err := Compute(v, ComputeParams{Subtotal: 40, Items: []Item{{ProductID: "a", Subtotal: 40}}, Now: time.Now()})
	require.Nil(t, err)
	assert.Equal(t, 5.0, res.DiscountAmount)
	assert.Equal(t, "VERANO", res.Label)
}

func TestComputeFixedLimitedToEligibleItems(t *testing.T) {
	v := Voucher{Code: "PIZZA", DiscountType: DiscountFixed, DiscountValue: 50, ProductIDs: []string{"pizza"}, Active: true}
	res, err := Compute(v, ComputeParams{
		Subtotal: 30,
		Items:    []Item{{ProductID: "pizza", Subtotal: 12}, {ProductID: "refresco", Subtotal: 18}},
		Now:      time.Now(),
	})
	require.Nil(t, err)
	assert.Equal(t, 12.0, res.DiscountAmount)
	assert.Equal(t, 12.0, res.EligibleSubtotal)

	_, err = Compute(v, ComputeParams{Subtotal: 5, Items: []Item{{ProductID: "refresco", Subtotal: 5}}, Now: time.Now()})
	require.NotNil(t, err)
	assert.Equal(t, ErrVoucherNotApplicableItems, err.Code)
}

func TestComputeRestrictions(t *testing.T) {
	now := time.Date(2026, 5, 4, 22, 30, 0, 0, time.UTC) // Monday
	base := Voucher{Code: "X", DiscountType: DiscountFixed, DiscountValue: 1, Active: true}
	items := []Item{{ProductID: "p", Subtotal: 10}}

	cases := []struct {
		name   string
		mutate func(v *Voucher)
		params ComputeParams
		want   ErrorCode
	}{
		{"inactive", func(v *Voucher) { v.Active = false }, ComputeParams{}, ErrVoucherInactive},
		{"other business", func(v *Voucher) { v.BusinessID = "b1" }, ComputeParams{BusinessID: "b2"}, ErrVoucherNotApplicable},
		{"not yet", func(v *Voucher) { v.ValidFrom = ptr(now.Add(time.Hour)) }, ComputeParams{}, ErrVoucherNotActiveYet},
		{"expired", func(v *Voucher) { v.ValidUntil = ptr(now.Add(-time.Hour)) }, ComputeParams{}, ErrVoucherExpired},
		{"wrong day", func(v *Voucher) { v.DaysOfWeek = []int{0, 6} }, ComputeParams{}, ErrVoucherNotAvailableToday},
		{"outside window", func(v *Voucher) { v.StartTime, v.EndTime = ptr("08:00"), ptr("12:00") }, ComputeParams{}, ErrVoucherNotAvailableNow},
		{"bad schedule", func(v *Voucher) { v.StartTime, v.EndTime = ptr("8am"), ptr("12:00") }, ComputeParams{}, ErrVoucherScheduleInvalid},
		{"minimum", func(v *Voucher) { v.MinOrderAmount = ptr(100.0) }, ComputeParams{}, ErrVoucherMinOrderNotMet},
		{"used up", func(v *Voucher) { v.MaxUsesTotal = ptr(2) }, ComputeParams{Uses: 2}, ErrVoucherUsageLimitReached},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := base
			tc.mutate(&v)
			p := tc.params
			p.Now = now
			p.Subtotal = 10
			p.Items = items
			_, err := Compute(v, p)
			require.NotNil(t, err)
			assert.Equal(t, tc.want, err.Code)
		})
	}

	overnight := base
	overnight.StartTime, overnight.EndTime = ptr("22:00"), ptr("02:00")
	_, err := Compute(overnight, ComputeParams{Subtotal: 10, Items: items, Now: now})
	assert.Nil(t, err)
}

func TestParseAndService(t *testing.T) {
	raw := []byte(`
vouchers:
  - code: bienvenida
    label: Bienvenida
    discountType: PERCENTAGE
    discountValue: 10
    maxUsesTotal: 1
    active: true
`)
	vouchers, err := Parse(raw)
	require.NoError(t, err)
	require.Len(t, vouchers, 1)

	svc := NewService(NewMemoryStore(vouchers), time.UTC)
	ctx := context.Background()
	res, err := svc.Quote(ctx, " Bienvenida ", "b1", []Item{{ProductID: "p", Subtotal: 50}})
	require.NoError(t, err)
	assert.Equal(t, 5.0, res.DiscountAmount)
	assert.Equal(t, "BIENVENIDA", res.Code)

	require.NoError(t, svc.Redeem(ctx, res.Code))
	_, err = svc.Quote(ctx, "bienvenida", "b1", []Item{{ProductID: "p", Subtotal: 50}})
	verr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, ErrVoucherUsageLimitReached, verr.Code)

	_, err = svc.Quote(ctx, "nope", "b1", nil)
	verr, ok = err.(*Error)
	require.True(t, ok)
	assert.Equal(t, ErrVoucherNotFound, verr.Code)

	_, err = Parse([]byte("vouchers:\n  - code: x\n    discountType: HALF\n"))
	assert.Error(t, err)
}

func TestQuoteGroupsRespectsRemainingUses(t *testing.T) {
	store := NewMemoryStore([]Voucher{{Code: "UNA", DiscountType: DiscountFixed, DiscountValue: 3, MaxUsesTotal: ptr(1), Active: true}})
	svc := NewService(store, time.UTC)
	ctx := context.Background()
	groups := []Group{
		{BusinessID: "b1", Items: []Item{{ProductID: "a", Subtotal: 10}}},
		{BusinessID: "b2", Items: []Item{{ProductID: "b", Subtotal: 10}}},
	}

	quotes, err := svc.QuoteGroups(ctx, "una", groups)
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, 3.0, quotes["b1"].DiscountAmount)

	require.NoError(t, svc.Redeem(ctx, "UNA"))
	err = svc.Redeem(ctx, "UNA")
	verr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, ErrVoucherUsageLimitReached, verr.Code)

	_, err = svc.QuoteGroups(ctx, "una", groups)
	verr, ok = err.(*Error)
	require.True(t, ok)
	assert.Equal(t, ErrVoucherUsageLimitReached, verr.Code)

	require.NoError(t, svc.Release(ctx, "UNA"))
	quotes, err = svc.QuoteGroups(ctx, "una", groups)
	require.NoError(t, err)
	assert.Len(t, quotes, 1)
}
