package refund

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wichananm65/shop-admin-backend/internal/apperror"
	"github.com/wichananm65/shop-admin-backend/internal/coupon"
	"github.com/wichananm65/shop-admin-backend/internal/currency"
	"github.com/wichananm65/shop-admin-backend/internal/database"
	"github.com/wichananm65/shop-admin-backend/internal/inventory"
	"github.com/wichananm65/shop-admin-backend/internal/order"
	"github.com/wichananm65/shop-admin-backend/internal/paymentprovider"
	"github.com/wichananm65/shop-admin-backend/internal/product"
	"github.com/wichananm65/shop-admin-backend/internal/shipping"
	"github.com/wichananm65/shop-admin-backend/internal/store"
)

type fixture struct {
	svc      *Service
	orders   *order.Service
	repo     *InMemoryRepository
	products *product.InMemoryRepository
	clock    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	stores := store.NewService(store.NewInMemoryRepository(store.Store{ID: "s-1", Name: "Main", Domain: "main.test"}))
	currencies := currency.NewService(currency.NewInMemoryRepository(
		currency.Currency{ID: "usd", Code: "USD", Name: "US Dollar", DecimalPlaces: 2, IsActive: true}))

	products := product.NewInMemoryRepository()
	_, err := products.CreateProduct(ctx, product.Product{ID: "p-1", StoreID: "s-1", Title: "Kibble"})
	require.NoError(t, err)
	_, err = products.CreateVariant(ctx, product.Variant{ID: "v-1", ProductID: "p-1", SKU: "KIB-1", InventoryQuantity: 10})
	require.NoError(t, err)

	couponRepo := coupon.NewInMemoryRepository()
	orderRepo := order.NewInMemoryRepository()
	repo := NewInMemoryRepository()
	tx := database.NewMemoryTransactor(orderRepo, products, couponRepo, repo)
	stock := inventory.NewService(products, nil, nil)

	orders := order.NewService(order.Deps{
		Repo:            orderRepo,
		Tx:              tx,
		Stores:          stores,
		Currencies:      currencies,
		Coupons:         coupon.NewService(couponRepo, stores, nil),
		Providers:       paymentprovider.NewService(paymentprovider.NewInMemoryRepository(), stores, currencies),
		ShippingMethods: shipping.NewService(shipping.NewInMemoryRepository(), tx, stores, currencies),
		Variants:        product.NewService(products, stores, currencies, nil),
		Inventory:       stock,
		Refunds:         repo,
	})

	f := &fixture{orders: orders, repo: repo, products: products, clock: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	f.svc = NewService(repo, tx, orders, stock, nil, nil)
	f.svc.now = func() time.Time { return f.clock }
	return f
}

// paidOrder is 4 units at 25.00 with the given discount, already paid.
func (f *fixture) paidOrder(t *testing.T, discount string) order.Order {
	t.Helper()
	return f.paidOrderOf(t, discount, 4, "25.00")
}

func (f *fixture) paidOrderOf(t *testing.T, discount string, qty int, price string) order.Order {
	t.Helper()
	ctx := context.Background()
	variant := "v-1"
	o, err := f.orders.Create(ctx, order.Order{StoreID: "s-1", CurrencyID: "usd",
		TotalDiscounts: decimal.RequireFromString(discount),
		LineItems: []order.Item{{VariantID: &variant,
			ItemSnapshot: order.ItemSnapshot{Title: "Kibble", Price: decimal.RequireFromString(price), Quantity: qty}}}})
	require.NoError(t, err)
	o, err = f.orders.TransitionFinancialStatus(ctx, o.ID, order.FinancialPaid)
	require.NoError(t, err)
	return o
}

func (f *fixture) stock(t *testing.T) int {
	t.Helper()
	qty, _, err := f.products.Inventory(context.Background(), "v-1")
	require.NoError(t, err)
	return qty
}

func (f *fixture) status(t *testing.T, orderID string) order.FinancialStatus {
	t.Helper()
	o, err := f.orders.Get(context.Background(), orderID)
	require.NoError(t, err)
	return o.FinancialStatus
}

func lineFor(o order.Order, qty int, amount string) LineInput {
	return LineInput{OrderItemID: o.LineItems[0].ID, Quantity: qty, Amount: decimal.RequireFromString(amount)}
}

func TestCreate_PartialThenFull(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.paidOrderOf(t, "0", 10, "10.00")
	require.Equal(t, 0, f.stock(t))

	first, err := f.svc.Create(ctx, CreateInput{OrderID: o.ID, LineItems: []LineInput{lineFor(o, 4, "40")}})
	require.NoError(t, err)
	assert.False(t, first.Pending())
	assert.True(t, first.Amount.Equal(decimal.NewFromInt(40)))
	assert.Equal(t, order.FinancialPartiallyRefunded, f.status(t, o.ID))

	_, err = f.svc.Create(ctx, CreateInput{OrderID: o.ID, LineItems: []LineInput{lineFor(o, 6, "60")}})
	require.NoError(t, err)
	assert.Equal(t, order.FinancialRefunded, f.status(t, o.ID))
	assert.Equal(t, 0, f.stock(t), "nothing restocked without the flag")
}

func TestCreate_Ceilings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.paidOrder(t, "10")

	tests := []struct {
		name string
		line LineInput
		kind apperror.Kind
	}{
		{"unknown item", LineInput{OrderItemID: "nope", Quantity: 1, Amount: decimal.NewFromInt(1)}, apperror.KindNotFound},
		{"zero quantity", lineFor(o, 0, "1"), apperror.KindBadRequest},
		{"more than ordered", lineFor(o, 5, "10"), apperror.KindBadRequest},
		{"zero amount", lineFor(o, 1, "0"), apperror.KindBadRequest},
		{"amount over price times quantity", lineFor(o, 1, "25.01"), apperror.KindBadRequest},
		{"over order total", lineFor(o, 4, "100"), apperror.KindBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, CreateInput{OrderID: o.ID, LineItems: []LineInput{tt.line}})
			assert.True(t, apperror.Is(err, tt.kind), "got %v", err)
		})
	}

	_, err := f.svc.Create(ctx, CreateInput{OrderID: "o-x", LineItems: []LineInput{lineFor(o, 1, "1")}})
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
	_, err = f.svc.Create(ctx, CreateInput{OrderID: o.ID})
	assert.True(t, apperror.Is(err, apperror.KindBadRequest))

	n, _ := f.repo.CountByOrder(ctx, o.ID)
	assert.Zero(t, n)
	assert.Equal(t, order.FinancialPaid, f.status(t, o.ID))
}

func TestCreate_CumulativeQuantity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.paidOrder(t, "0")

	_, err := f.svc.Create(ctx, CreateInput{OrderID: o.ID, LineItems: []LineInput{lineFor(o, 3, "30")}})
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, CreateInput{OrderID: o.ID, LineItems: []LineInput{lineFor(o, 2, "20")}})
	assert.True(t, apperror.Is(err, apperror.KindBadRequest))

	// two lines in one request count against each other
	_, err = f.svc.Create(ctx, CreateInput{OrderID: o.ID, LineItems: []LineInput{lineFor(o, 1, "10"), lineFor(o, 1, "10")}})
	assert.True(t, apperror.Is(err, apperror.KindBadRequest))

	_, err = f.svc.Create(ctx, CreateInput{OrderID: o.ID, LineItems: []LineInput{lineFor(o, 1, "10")}})
	require.NoError(t, err)
}

func TestCreate_RestockThenVoidReleasesRemainder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.paidOrder(t, "0")

	l := lineFor(o, 1, "25")
	l.Restocked = true
	_, err := f.svc.Create(ctx, CreateInput{OrderID: o.ID, LineItems: []LineInput{l}})
	require.NoError(t, err)
	assert.Equal(t, 7, f.stock(t))

	_, err = f.orders.TransitionFinancialStatus(ctx, o.ID, order.FinancialVoided)
	require.NoError(t, err)
	assert.Equal(t, 10, f.stock(t), "void returns only the units not already restocked")
}

func TestUpdate_OnlyNote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.paidOrder(t, "0")
	r, err := f.svc.Create(ctx, CreateInput{OrderID: o.ID, Note: "damaged", LineItems: []LineInput{lineFor(o, 1, "25")}})
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, r.ID, map[string]any{"amount": "1", "note": "x"})
	assert.True(t, apperror.Is(err, apperror.KindBadRequest))

	out, err := f.svc.Update(ctx, r.ID, map[string]any{"note": "damaged in transit"})
	require.NoError(t, err)
	assert.Equal(t, "damaged in transit", out.Note)
	assert.True(t, out.Amount.Equal(r.Amount))
	assert.Len(t, out.LineItems, 1)

	_, err = f.svc.RemoveLineItem(ctx, r.LineItems[0].ID)
	assert.True(t, apperror.Is(err, apperror.KindBadRequest))
	_, err = f.svc.UpdateLineItem(ctx, r.LineItems[0].ID, true)
	assert.True(t, apperror.Is(err, apperror.KindBadRequest))
	assert.True(t, apperror.Is(f.svc.Remove(ctx, r.ID), apperror.KindBadRequest))
	_, err = f.svc.Process(ctx, r.ID)
	assert.True(t, apperror.Is(err, apperror.KindBadRequest))
}

func TestPendingRefund_Lifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.paidOrder(t, "0")

	r, err := f.svc.Create(ctx, CreateInput{OrderID: o.ID, Pending: true, LineItems: []LineInput{lineFor(o, 1, "25")}})
	require.NoError(t, err)
	assert.True(t, r.Pending())
	assert.Equal(t, order.FinancialPaid, f.status(t, o.ID))

	r, err = f.svc.AddLineItem(ctx, r.ID, lineFor(o, 2, "50"))
	require.NoError(t, err)
	require.Len(t, r.LineItems, 2)
	assert.True(t, r.Amount.Equal(decimal.NewFromInt(75)))

	// pending lines already claim their quantity
	_, err = f.svc.AddLineItem(ctx, r.ID, lineFor(o, 2, "10"))
	assert.True(t, apperror.Is(err, apperror.KindBadRequest))

	r, err = f.svc.RemoveLineItem(ctx, r.LineItems[0].ID)
	require.NoError(t, err)
	assert.True(t, r.Amount.Equal(decimal.NewFromInt(50)))

	r, err = f.svc.UpdateLineItem(ctx, r.LineItems[0].ID, true)
	require.NoError(t, err)
	assert.True(t, r.LineItems[0].Restocked)

	ledger, err := f.repo.ItemRefunds(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, ledger[o.LineItems[0].ID].Quantity)
	assert.Zero(t, ledger[o.LineItems[0].ID].Restocked, "pending lines are not restocked yet")
	assert.Equal(t, 6, f.stock(t))

	r, err = f.svc.Process(ctx, r.ID)
	require.NoError(t, err)
	assert.False(t, r.Pending())
	assert.Equal(t, 8, f.stock(t))
	assert.Equal(t, order.FinancialPartiallyRefunded, f.status(t, o.ID))
}

func TestRemove_PendingRefund(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.paidOrder(t, "0")

	r, err := f.svc.Create(ctx, CreateInput{OrderID: o.ID, Pending: true, LineItems: []LineInput{lineFor(o, 4, "100")}})
	require.NoError(t, err)
	require.NoError(t, f.svc.Remove(ctx, r.ID))
	_, err = f.svc.Get(ctx, r.ID)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	_, err = f.svc.Create(ctx, CreateInput{OrderID: o.ID, LineItems: []LineInput{lineFor(o, 4, "100")}})
	require.NoError(t, err)
	assert.Equal(t, order.FinancialRefunded, f.status(t, o.ID))
	assert.True(t, apperror.Is(f.orders.Remove(ctx, o.ID), apperror.KindBadRequest))
}

func TestStatisticsByStore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.paidOrder(t, "0")

	for i, l := range []LineInput{lineFor(o, 1, "10"), lineFor(o, 1, "20"), lineFor(o, 2, "30")} {
		f.clock = time.Date(2024, 5, 1+i, 12, 0, 0, 0, time.UTC)
		_, err := f.svc.Create(ctx, CreateInput{OrderID: o.ID, LineItems: []LineInput{l}})
		require.NoError(t, err)
	}

	st, err := f.svc.StatisticsByStore(ctx, "s-1", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, st.Count)
	assert.True(t, st.TotalAmount.Equal(decimal.NewFromInt(60)))
	assert.True(t, st.AverageAmount.Equal(decimal.NewFromInt(20)))
	require.Len(t, st.Recent, 3)
	assert.True(t, st.Recent[0].Amount.Equal(decimal.NewFromInt(30)))

	from := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	st, err = f.svc.StatisticsByStore(ctx, "s-1", &from, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Count)
	assert.True(t, st.AverageAmount.Equal(decimal.NewFromInt(25)))
}

func TestHandler_CreateAndRejectEdit(t *testing.T) {
	f := newFixture(t)
	o := f.paidOrder(t, "0")
	app := fiber.New()
	NewHandler(f.svc).RegisterProtectedRoutes(app)

	body := `{"note":"late","lineItems":[{"orderItemId":"` + o.LineItems[0].ID + `","quantity":1,"amount":"25","restocked":true}]}`
	req := httptest.NewRequest("POST", "/api/v1/orders/"+o.ID+"/refunds", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if res.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected 201 got %d", res.StatusCode)
	}

	refunds, _ := f.repo.ListByOrder(context.Background(), o.ID)
	if len(refunds) != 1 {
		t.Fatalf("expected one refund got %d", len(refunds))
	}
	req2 := httptest.NewRequest("PATCH", "/api/v1/refunds/"+refunds[0].ID, strings.NewReader(`{"amount":"1"}`))
	req2.Header.Set("Content-Type", "application/json")
	res2, _ := app.Test(req2)
	if res2.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400 got %d", res2.StatusCode)
	}

	req3 := httptest.NewRequest("GET", "/api/v1/stores/s-1/refunds/statistics?from=nope", nil)
	res3, _ := app.Test(req3)
	if res3.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400 for bad date got %d", res3.StatusCode)
	}
}
