package coupon

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wichananm65/shop-admin-backend/internal/apperror"
	"github.com/wichananm65/shop-admin-backend/internal/store"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type orderCount int

func (n orderCount) CountByCoupon(context.Context, string) (int, error) { return int(n), nil }

func newService(t *testing.T) *Service {
	t.Helper()
	stores := store.NewService(store.NewInMemoryRepository(store.Store{ID: "s-1", Name: "Main", Domain: "main.test"}))
	catalog := CatalogFuncs{
		Products: func(ctx context.Context, ids []string) error {
			for _, id := range ids {
				if id != "p-1" && id != "p-2" {
					return apperror.NotFound("product %s not found", id)
				}
			}
			return nil
		},
	}
	svc := NewService(NewInMemoryRepository(), stores, catalog)
	svc.now = func() time.Time { return now }
	return svc
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCreate_Rules(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	base := Coupon{StoreID: "s-1", Code: "SAVE10", Type: Percentage, Value: dec("10"),
		StartsAt: now.Add(-time.Hour), EndsAt: now.Add(time.Hour), IsActive: true}

	c, err := svc.Create(ctx, base)
	require.NoError(t, err)
	assert.Equal(t, 0, c.UsedCount)

	_, err = svc.Create(ctx, base)
	assert.True(t, apperror.Is(err, apperror.KindConflict), "duplicate code: %v", err)

	over := base
	over.Code, over.Value = "HALFPLUS", dec("150")
	_, err = svc.Create(ctx, over)
	assert.True(t, apperror.Is(err, apperror.KindBadRequest))

	backwards := base
	backwards.Code, backwards.StartsAt, backwards.EndsAt = "BACK", now, now.Add(-time.Minute)
	_, err = svc.Create(ctx, backwards)
	assert.True(t, apperror.Is(err, apperror.KindBadRequest))

	unknown := base
	unknown.Code, unknown.ApplicableProductIDs = "ONLY", []string{"p-9"}
	_, err = svc.Create(ctx, unknown)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestUpdate_PercentageCeiling(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	c, err := svc.Create(ctx, Coupon{StoreID: "s-1", Code: "TEN", Type: FixedAmount, Value: dec("150"),
		StartsAt: now, EndsAt: now.Add(time.Hour), IsActive: true})
	require.NoError(t, err)

	pct := Percentage
	_, err = svc.Update(ctx, c.ID, Patch{Type: &pct})
	assert.True(t, apperror.Is(err, apperror.KindBadRequest), "fixed 150 cannot become a 150 percent discount")
}

func TestValidate_Outcomes(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	one := 1
	minPurchase := dec("50")

	_, err := svc.Create(ctx, Coupon{StoreID: "s-1", Code: "PCT", Type: Percentage, Value: dec("15"),
		StartsAt: now.Add(-time.Hour), EndsAt: now.Add(time.Hour), IsActive: true})
	require.NoError(t, err)
	_, err = svc.Create(ctx, Coupon{StoreID: "s-1", Code: "FIX", Type: FixedAmount, Value: dec("30"),
		MinPurchase: &minPurchase, StartsAt: now.Add(-time.Hour), EndsAt: now.Add(time.Hour), IsActive: true})
	require.NoError(t, err)
	once, err := svc.Create(ctx, Coupon{StoreID: "s-1", Code: "ONCE", Type: FixedAmount, Value: dec("5"),
		MaxUses: &one, StartsAt: now.Add(-time.Hour), EndsAt: now.Add(time.Hour), IsActive: true})
	require.NoError(t, err)
	_, err = svc.Create(ctx, Coupon{StoreID: "s-1", Code: "P1", Type: FreeShipping,
		ApplicableProductIDs: []string{"p-1"}, StartsAt: now.Add(-time.Hour), EndsAt: now.Add(time.Hour), IsActive: true})
	require.NoError(t, err)

	res, err := svc.Validate(ctx, Cart{Code: "NOPE", StoreID: "s-1", Total: dec("10")})
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, MsgInvalidCode, res.Message)

	res, _ = svc.Validate(ctx, Cart{Code: "PCT", StoreID: "s-1", Total: dec("33.33")})
	assert.True(t, res.Valid)
	assert.Equal(t, "5", res.DiscountAmount.String())
	assert.Equal(t, "28.33", res.DiscountedTotal.String())

	res, _ = svc.Validate(ctx, Cart{Code: "FIX", StoreID: "s-1", Total: dec("40")})
	assert.False(t, res.Valid)
	require.NotNil(t, res.MinPurchase)
	assert.Equal(t, "50", res.MinPurchase.String())

	res, _ = svc.Validate(ctx, Cart{Code: "FIX", StoreID: "s-1", Total: dec("60")})
	assert.True(t, res.Valid)
	assert.Equal(t, "30", res.DiscountAmount.String())

	_, err = svc.Apply(ctx, once.ID)
	require.NoError(t, err)
	res, _ = svc.Validate(ctx, Cart{Code: "ONCE", StoreID: "s-1", Total: dec("60")})
	assert.Equal(t, MsgMaxUses, res.Message)

	res, _ = svc.Validate(ctx, Cart{Code: "P1", StoreID: "s-1", Total: dec("60"), ProductIDs: []string{"p-2"}})
	assert.Equal(t, MsgNotApplicable, res.Message)
	res, _ = svc.Validate(ctx, Cart{Code: "P1", StoreID: "s-1", Total: dec("60"), ProductIDs: []string{"p-2", "p-1"}})
	assert.True(t, res.Valid)
	assert.True(t, res.DiscountAmount.IsZero())

	_, err = svc.Create(ctx, Coupon{StoreID: "s-1", Code: "B2G1", Type: BuyXGetY, Value: dec("1"),
		StartsAt: now.Add(-time.Hour), EndsAt: now.Add(time.Hour), IsActive: true})
	require.NoError(t, err)
	res, _ = svc.Validate(ctx, Cart{Code: "B2G1", StoreID: "s-1", Total: dec("60")})
	assert.True(t, res.Valid)
	assert.True(t, res.DiscountAmount.IsZero())
	assert.Equal(t, MsgNoBundleRule, res.Message)
}

func TestValidate_Expired(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, Coupon{StoreID: "s-1", Code: "OLD", Type: FixedAmount, Value: dec("5"),
		StartsAt: now.Add(-48 * time.Hour), EndsAt: now.Add(-24 * time.Hour), IsActive: true})
	require.NoError(t, err)

	res, err := svc.Validate(ctx, Cart{Code: "OLD", StoreID: "s-1", Total: dec("100")})
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, MsgOutsideWindow, res.Message)
	assert.Nil(t, res.Coupon)
}

func TestDiscount_PercentageNeverExceedsTotal(t *testing.T) {
	totals := []string{"0", "0.01", "1", "19.99", "250", "99999.99"}
	for _, v := range []string{"0.5", "10", "33.3", "99.99", "100"} {
		c := Coupon{Type: Percentage, Value: dec(v)}
		for _, tot := range totals {
			d := Discount(c, dec(tot))
			assert.False(t, d.IsNegative(), "value %s total %s", v, tot)
			assert.True(t, d.LessThanOrEqual(dec(tot)), "value %s total %s gave %s", v, tot, d)
		}
	}
}

func TestRemove_DeactivatesUsedCoupon(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	c, err := svc.Create(ctx, Coupon{StoreID: "s-1", Code: "USED", Type: FixedAmount, Value: dec("5"),
		StartsAt: now, EndsAt: now.Add(time.Hour), IsActive: true})
	require.NoError(t, err)

	svc.TrackOrders(orderCount(2))
	deleted, err := svc.Remove(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
	got, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	svc.TrackOrders(orderCount(0))
	deleted, err = svc.Remove(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
	_, err = svc.Get(ctx, c.ID)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestApply_StopsAtMaxUses(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	two := 2
	c, err := svc.Create(ctx, Coupon{StoreID: "s-1", Code: "TWICE", Type: FixedAmount, Value: dec("5"),
		MaxUses: &two, StartsAt: now.Add(-time.Hour), EndsAt: now.Add(time.Hour), IsActive: true})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := svc.Apply(ctx, c.ID)
		require.NoError(t, err)
	}
	_, err = svc.Apply(ctx, c.ID)
	assert.True(t, apperror.Is(err, apperror.KindConflict), "third use: %v", err)
	got, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.UsedCount)
}

func TestRedeem_ChecksStoreAndWindow(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	c, err := svc.Create(ctx, Coupon{StoreID: "s-1", Code: "WEEK", Type: Percentage, Value: dec("10"),
		StartsAt: now, EndsAt: now.Add(7 * 24 * time.Hour), IsActive: true})
	require.NoError(t, err)

	_, err = svc.Redeem(ctx, c.ID, "s-9", now)
	assert.True(t, apperror.Is(err, apperror.KindBadRequest))
	_, err = svc.Redeem(ctx, c.ID, "s-1", now.Add(-time.Minute))
	assert.True(t, apperror.Is(err, apperror.KindBadRequest))
	_, err = svc.Redeem(ctx, "missing", "s-1", now)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	got, err := svc.Redeem(ctx, c.ID, "s-1", now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, got.UsedCount)
}
