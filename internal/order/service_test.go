package order

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wichananm65/shop-admin-backend/internal/apperror"
	"github.com/wichananm65/shop-admin-backend/internal/coupon"
	"github.com/wichananm65/shop-admin-backend/internal/currency"
	"github.com/wichananm65/shop-admin-backend/internal/database"
	"github.com/wichananm65/shop-admin-backend/internal/inventory"
	"github.com/wichananm65/shop-admin-backend/internal/paymentprovider"
	"github.com/wichananm65/shop-admin-backend/internal/product"
	"github.com/wichananm65/shop-admin-backend/internal/shipping"
	"github.com/wichananm65/shop-admin-backend/internal/store"
)

var fixedNow = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

type fakeLedger struct {
	items     map[string]ItemRefund
	processed decimal.Decimal
	refunds   int
}

func (f *fakeLedger) ItemRefunds(context.Context, string) (map[string]ItemRefund, error) {
	return f.items, nil
}

func (f *fakeLedger) ProcessedTotal(context.Context, string) (decimal.Decimal, error) {
	return f.processed, nil
}

func (f *fakeLedger) CountByOrder(context.Context, string) (int, error) {
	return f.refunds, nil
}

type paymentCount int

func (n *paymentCount) CountByOrder(context.Context, string) (int, error) { return int(*n), nil }

type fixture struct {
	svc      *Service
	repo     *InMemoryRepository
	products *product.InMemoryRepository
	coupons  *coupon.Service
	ledger   *fakeLedger
	payments *paymentCount
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	stores := store.NewService(store.NewInMemoryRepository(
		store.Store{ID: "s-1", Name: "Main", Domain: "main.test"},
		store.Store{ID: "s-2", Name: "Outlet", Domain: "outlet.test"}))
	currencies := currency.NewService(currency.NewInMemoryRepository(
		currency.Currency{ID: "usd", Code: "USD", Name: "US Dollar", DecimalPlaces: 2, IsActive: true}))

	products := product.NewInMemoryRepository()
	_, err := products.CreateProduct(ctx, product.Product{ID: "p-1", StoreID: "s-1", Title: "Kibble"})
	require.NoError(t, err)
	_, err = products.CreateVariant(ctx, product.Variant{ID: "v-1", ProductID: "p-1", SKU: "KIB-1", InventoryQuantity: 10})
	require.NoError(t, err)
	_, err = products.CreateProduct(ctx, product.Product{ID: "p-2", StoreID: "s-1", Title: "Bed", AllowBackorder: true})
	require.NoError(t, err)
	_, err = products.CreateVariant(ctx, product.Variant{ID: "v-2", ProductID: "p-2", SKU: "BED-1"})
	require.NoError(t, err)

	couponRepo := coupon.NewInMemoryRepository()
	coupons := coupon.NewService(couponRepo, stores, nil)

	repo := NewInMemoryRepository()
	tx := database.NewMemoryTransactor(repo, products, couponRepo)
	providers := paymentprovider.NewService(paymentprovider.NewInMemoryRepository(
		paymentprovider.Provider{ID: "pp-1", StoreID: "s-1", Name: "Card", IsActive: true}), stores, currencies)
	methods := shipping.NewService(shipping.NewInMemoryRepository(
		shipping.Method{ID: "sm-1", StoreID: "s-1", Name: "Post", IsActive: true}), tx, stores, currencies)

	ledger := &fakeLedger{items: map[string]ItemRefund{}}
	payments := new(paymentCount)
	svc := NewService(Deps{
		Repo:            repo,
		Tx:              tx,
		Stores:          stores,
		Currencies:      currencies,
		Coupons:         coupons,
		Providers:       providers,
		ShippingMethods: methods,
		Variants:        product.NewService(products, stores, currencies, nil),
		Inventory:       inventory.NewService(products, nil, nil),
		Refunds:         ledger,
		Payments:        payments,
		Now:             func() time.Time { return fixedNow },
	})
	return &fixture{svc: svc, repo: repo, products: products, coupons: coupons, ledger: ledger, payments: payments}
}

func (f *fixture) stock(t *testing.T, variantID string) int {
	t.Helper()
	qty, _, err := f.products.Inventory(context.Background(), variantID)
	require.NoError(t, err)
	return qty
}

func str(s string) *string { return &s }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func line(variantID string, qty int, price string) Item {
	return Item{VariantID: str(variantID), ItemSnapshot: ItemSnapshot{Title: "line", Price: dec(price), Quantity: qty}}
}

func TestCreate_HappyPathThenPaid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	o, err := f.svc.Create(ctx, Order{StoreID: "s-1", CurrencyID: "usd", LineItems: []Item{line("v-1", 3, "10.00")}})
	require.NoError(t, err)
	assert.Equal(t, 1, o.OrderNumber)
	assert.True(t, o.SubtotalPrice.Equal(dec("30")), "subtotal %s", o.SubtotalPrice)
	assert.True(t, o.TotalPrice.Equal(dec("30")))
	assert.Equal(t, FinancialPending, o.FinancialStatus)
	assert.Equal(t, 10, f.stock(t, "v-1"), "pending orders do not hold stock")

	paid, err := f.svc.TransitionFinancialStatus(ctx, o.ID, FinancialPaid)
	require.NoError(t, err)
	assert.True(t, paid.InventoryCommitted)
	assert.Equal(t, 7, f.stock(t, "v-1"))

	// same status again is a no-op
	_, err = f.svc.TransitionFinancialStatus(ctx, o.ID, FinancialPaid)
	require.NoError(t, err)
	assert.Equal(t, 7, f.stock(t, "v-1"))

	next, err := f.svc.Create(ctx, Order{StoreID: "s-1", CurrencyID: "usd", LineItems: []Item{line("v-1", 1, "10.00")}})
	require.NoError(t, err)
	assert.Equal(t, 2, next.OrderNumber)
}

func TestCreate_OversellBlocked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, _, err := f.products.AdjustInventory(ctx, "v-1", -8)
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, Order{StoreID: "s-1", CurrencyID: "usd", LineItems: []Item{line("v-1", 3, "10.00")}})
	assert.True(t, apperror.Is(err, apperror.KindConflict), "got %v", err)
	assert.Equal(t, 2, f.stock(t, "v-1"))

	list, err := f.svc.List(ctx, Filter{StoreID: "s-1"})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestInventoryNeverNegativeWithoutBackorder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var conflicts int
	for i := 0; i < 6; i++ {
		_, err := f.svc.Create(ctx, Order{StoreID: "s-1", CurrencyID: "usd", FinancialStatus: FinancialPaid,
			LineItems: []Item{line("v-1", 3, "1.00")}})
		if err != nil {
			require.True(t, apperror.Is(err, apperror.KindConflict), "got %v", err)
			conflicts++
		}
		require.GreaterOrEqual(t, f.stock(t, "v-1"), 0)
	}
	assert.Equal(t, 3, conflicts)
	assert.Equal(t, 1, f.stock(t, "v-1"))

	// backorder variants may go below zero
	_, err := f.svc.Create(ctx, Order{StoreID: "s-1", CurrencyID: "usd", FinancialStatus: FinancialPaid,
		LineItems: []Item{line("v-2", 4, "50.00")}})
	require.NoError(t, err)
	assert.Equal(t, -4, f.stock(t, "v-2"))
}

func TestCreate_References(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := func() Order {
		return Order{StoreID: "s-1", CurrencyID: "usd", LineItems: []Item{line("v-1", 1, "5.00")}}
	}

	cases := map[string]func(o *Order){
		"store":    func(o *Order) { o.StoreID = "nope" },
		"currency": func(o *Order) { o.CurrencyID = "eur" },
		"coupon":   func(o *Order) { o.CouponID = str("c-x") },
		"provider": func(o *Order) { o.PaymentProviderID = str("pp-x") },
		"shipping": func(o *Order) { o.ShippingMethodID = str("sm-x") },
		"variant":  func(o *Order) { o.LineItems[0].VariantID = str("v-x") },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			o := base()
			mutate(&o)
			_, err := f.svc.Create(ctx, o)
			assert.True(t, apperror.Is(err, apperror.KindNotFound), "got %v", err)
		})
	}

	bad := base()
	bad.LineItems[0].Quantity = 0
	_, err := f.svc.Create(ctx, bad)
	assert.True(t, apperror.Is(err, apperror.KindBadRequest))

	_, err = f.svc.Create(ctx, Order{StoreID: "s-1", CurrencyID: "usd"})
	assert.True(t, apperror.Is(err, apperror.KindBadRequest))

	numbered := base()
	numbered.OrderNumber = 42
	_, err = f.svc.Create(ctx, numbered)
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, numbered)
	assert.True(t, apperror.Is(err, apperror.KindConflict))
}

func TestCreate_CouponUsage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, err := f.coupons.Create(ctx, coupon.Coupon{StoreID: "s-1", Code: "TEN", Type: coupon.FixedAmount,
		Value: dec("10"), StartsAt: fixedNow.Add(-time.Hour), EndsAt: fixedNow.Add(time.Hour), IsActive: true})
	require.NoError(t, err)

	o, err := f.svc.Create(ctx, Order{StoreID: "s-1", CurrencyID: "usd", CouponID: &c.ID,
		TotalDiscounts: dec("10"), TotalTax: dec("2.50"),
		PaymentProviderID: str("pp-1"), ShippingMethodID: str("sm-1"),
		LineItems: []Item{line("v-1", 2, "25.00")}})
	require.NoError(t, err)
	assert.True(t, o.TotalPrice.Equal(dec("42.50")), "total %s", o.TotalPrice)

	got, err := f.coupons.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.UsedCount)
}

func TestCreate_CouponMustBeRedeemable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	one := 1
	newCoupon := func(storeID, code string, active bool, ends time.Time, maxUses *int) string {
		c, err := f.coupons.Create(ctx, coupon.Coupon{StoreID: storeID, Code: code, Type: coupon.FixedAmount,
			Value: dec("5"), MaxUses: maxUses, StartsAt: fixedNow.Add(-48 * time.Hour), EndsAt: ends, IsActive: active})
		require.NoError(t, err)
		return c.ID
	}
	capped := newCoupon("s-1", "ONCE", true, fixedNow.Add(time.Hour), &one)
	place := func(couponID string) error {
		_, err := f.svc.Create(ctx, Order{StoreID: "s-1", CurrencyID: "usd", FinancialStatus: FinancialPaid,
			CouponID: &couponID, LineItems: []Item{line("v-1", 1, "20.00")}})
		return err
	}

	require.NoError(t, place(capped))
	assert.Equal(t, 9, f.stock(t, "v-1"))
	err := place(capped)
	assert.True(t, apperror.Is(err, apperror.KindConflict), "second use of a single-use coupon: %v", err)
	assert.Equal(t, 9, f.stock(t, "v-1"), "rejected order must not keep its stock")
	got, err := f.coupons.Get(ctx, capped)
	require.NoError(t, err)
	assert.Equal(t, 1, got.UsedCount)

	cases := map[string]string{
		"inactive":    newCoupon("s-1", "OFF", false, fixedNow.Add(time.Hour), nil),
		"expired":     newCoupon("s-1", "OLD", true, fixedNow.Add(-time.Hour), nil),
		"other store": newCoupon("s-2", "ELSEWHERE", true, fixedNow.Add(time.Hour), nil),
	}
	for name, id := range cases {
		err := place(id)
		assert.True(t, apperror.Is(err, apperror.KindBadRequest), "%s: %v", name, err)
		c, err := f.coupons.Get(ctx, id)
		require.NoError(t, err)
		assert.Zero(t, c.UsedCount, name)
	}
	assert.Equal(t, 9, f.stock(t, "v-1"))
}

func TestCreate_IgnoresClientInventoryFlag(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o, err := f.svc.Create(ctx, Order{StoreID: "s-1", CurrencyID: "usd", InventoryCommitted: true,
		LineItems: []Item{line("v-1", 3, "10.00")}})
	require.NoError(t, err)
	assert.Equal(t, FinancialPending, o.FinancialStatus)
	assert.False(t, o.InventoryCommitted)
	assert.Equal(t, 10, f.stock(t, "v-1"))

	require.NoError(t, f.svc.Remove(ctx, o.ID))
	assert.Equal(t, 10, f.stock(t, "v-1"), "removing a pending order must not add stock")
}

func TestUpdate_TotalStaysAboveRefunds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o, err := f.svc.Create(ctx, Order{StoreID: "s-1", CurrencyID: "usd", FinancialStatus: FinancialPaid,
		LineItems: []Item{line("v-1", 4, "25.00")}})
	require.NoError(t, err)
	f.ledger.items[o.LineItems[0].ID] = ItemRefund{Lines: 1, Quantity: 2, Amount: dec("60")}
	f.ledger.processed = dec("60")
	o, err = f.svc.ApplyRefunds(ctx, o.ID)
	require.NoError(t, err)
	require.Equal(t, FinancialPartiallyRefunded, o.FinancialStatus)

	_, err = f.svc.Update(ctx, o.ID, Patch{TotalDiscounts: decPtr("90")})
	assert.True(t, apperror.Is(err, apperror.KindBadRequest), "total below refunded: %v", err)
	stored, err := f.svc.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, stored.TotalPrice.Equal(dec("100")), "total %s", stored.TotalPrice)

	up, err := f.svc.Update(ctx, o.ID, Patch{TotalDiscounts: decPtr("40")})
	require.NoError(t, err)
	assert.True(t, up.TotalPrice.Equal(dec("60")), "total %s", up.TotalPrice)
	assert.Equal(t, FinancialRefunded, up.FinancialStatus)
	assert.True(t, up.InventoryCommitted)
	assert.Equal(t, 6, f.stock(t, "v-1"))
}

func TestUpdate_ReplaceItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o, err := f.svc.Create(ctx, Order{StoreID: "s-1", CurrencyID: "usd", FinancialStatus: FinancialPaid,
		TotalTax: dec("1.00"), LineItems: []Item{line("v-1", 2, "10.00"), line("v-2", 1, "30.00")}})
	require.NoError(t, err)
	assert.Equal(t, 8, f.stock(t, "v-1"))
	assert.Equal(t, -1, f.stock(t, "v-2"))

	keep := o.LineItems[0]
	keep.Quantity = 4
	items := []ItemInput{{ID: keep.ID, VariantID: keep.VariantID, ItemSnapshot: keep.ItemSnapshot}}
	up, err := f.svc.Update(ctx, o.ID, Patch{LineItems: &items})
	require.NoError(t, err)
	require.Len(t, up.LineItems, 1)
	assert.True(t, up.SubtotalPrice.Equal(dec("40")))
	assert.True(t, up.TotalPrice.Equal(dec("41")), "stored tax carried over: %s", up.TotalPrice)
	assert.Equal(t, 6, f.stock(t, "v-1"))
	assert.Equal(t, 0, f.stock(t, "v-2"))

	stored, err := f.svc.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Len(t, stored.LineItems, 1)
}

func TestUpdate_RefundedItemsAreFrozen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o, err := f.svc.Create(ctx, Order{StoreID: "s-1", CurrencyID: "usd",
		LineItems: []Item{line("v-1", 2, "10.00"), line("v-2", 1, "30.00")}})
	require.NoError(t, err)
	refunded := o.LineItems[1]
	f.ledger.items[refunded.ID] = ItemRefund{Lines: 1, Quantity: 1, Amount: dec("30")}

	only := []ItemInput{{ID: o.LineItems[0].ID, VariantID: o.LineItems[0].VariantID, ItemSnapshot: o.LineItems[0].ItemSnapshot}}
	_, err = f.svc.Update(ctx, o.ID, Patch{LineItems: &only})
	assert.True(t, apperror.Is(err, apperror.KindBadRequest), "removing a refunded item: %v", err)

	changed := refunded.ItemSnapshot
	changed.Quantity = 5
	edit := []ItemInput{
		{ID: o.LineItems[0].ID, VariantID: o.LineItems[0].VariantID, ItemSnapshot: o.LineItems[0].ItemSnapshot},
		{ID: refunded.ID, VariantID: refunded.VariantID, ItemSnapshot: changed},
	}
	_, err = f.svc.Update(ctx, o.ID, Patch{LineItems: &edit})
	assert.True(t, apperror.Is(err, apperror.KindBadRequest))

	note := "gift wrap"
	up, err := f.svc.Update(ctx, o.ID, Patch{CustomerNotes: &note})
	require.NoError(t, err)
	assert.Equal(t, "gift wrap", up.CustomerNotes)
	assert.Len(t, up.LineItems, 2)
}

func TestTransition_ReleaseSkipsRestockedQuantity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o, err := f.svc.Create(ctx, Order{StoreID: "s-1", CurrencyID: "usd", FinancialStatus: FinancialPaid,
		LineItems: []Item{line("v-1", 3, "10.00")}})
	require.NoError(t, err)
	assert.Equal(t, 7, f.stock(t, "v-1"))

	// one unit already came back through a restocked refund line
	_, _, err = f.products.AdjustInventory(ctx, "v-1", 1)
	require.NoError(t, err)
	f.ledger.items[o.LineItems[0].ID] = ItemRefund{Lines: 1, Quantity: 1, Amount: dec("10"), Restocked: 1}

	voided, err := f.svc.TransitionFinancialStatus(ctx, o.ID, FinancialVoided)
	require.NoError(t, err)
	assert.False(t, voided.InventoryCommitted)
	assert.Equal(t, 10, f.stock(t, "v-1"))

	_, err = f.svc.TransitionFinancialStatus(ctx, o.ID, FinancialStatus("LOST"))
	assert.True(t, apperror.Is(err, apperror.KindBadRequest))
}

func TestApplyRefunds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o, err := f.svc.Create(ctx, Order{StoreID: "s-1", CurrencyID: "usd", FinancialStatus: FinancialPaid,
		LineItems: []Item{line("v-1", 4, "25.00")}})
	require.NoError(t, err)

	f.ledger.processed = dec("40")
	got, err := f.svc.ApplyRefunds(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, FinancialPartiallyRefunded, got.FinancialStatus)

	f.ledger.processed = dec("100")
	got, err = f.svc.ApplyRefunds(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, FinancialRefunded, got.FinancialStatus)
	assert.True(t, got.InventoryCommitted, "refund-driven moves keep the commitment")
	assert.Equal(t, 6, f.stock(t, "v-1"))
}

func TestDeriveRefundStatus(t *testing.T) {
	total := dec("100")
	cases := []struct {
		current  FinancialStatus
		refunded string
		want     FinancialStatus
	}{
		{FinancialPaid, "0", FinancialPaid},
		{FinancialPending, "0", FinancialPending},
		{FinancialPaid, "0.01", FinancialPartiallyRefunded},
		{FinancialPaid, "99.99", FinancialPartiallyRefunded},
		{FinancialPaid, "100", FinancialRefunded},
		{FinancialPartiallyRefunded, "100.00", FinancialRefunded},
	}
	for _, tc := range cases {
		got := DeriveRefundStatus(tc.current, total, dec(tc.refunded))
		assert.Equal(t, tc.want, got, "%s with %s refunded", tc.current, tc.refunded)
		assert.Equal(t, got, DeriveRefundStatus(got, total, dec(tc.refunded)), "recomputing must be stable")
	}
}

func TestRemove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o, err := f.svc.Create(ctx, Order{StoreID: "s-1", CurrencyID: "usd", FinancialStatus: FinancialPaid,
		LineItems: []Item{line("v-1", 2, "10.00")}})
	require.NoError(t, err)

	f.ledger.refunds = 1
	assert.True(t, apperror.Is(f.svc.Remove(ctx, o.ID), apperror.KindBadRequest))
	f.ledger.refunds = 0
	*f.payments = 1
	assert.True(t, apperror.Is(f.svc.Remove(ctx, o.ID), apperror.KindBadRequest))
	*f.payments = 0

	require.NoError(t, f.svc.Remove(ctx, o.ID))
	assert.Equal(t, 10, f.stock(t, "v-1"))
	_, err = f.svc.Get(ctx, o.ID)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}
