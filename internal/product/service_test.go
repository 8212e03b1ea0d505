package product

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wichananm65/shop-admin-backend/internal/apperror"
	"github.com/wichananm65/shop-admin-backend/internal/category"
	"github.com/wichananm65/shop-admin-backend/internal/currency"
	"github.com/wichananm65/shop-admin-backend/internal/store"
)

type countRefs int

func (c countRefs) CountByVariant(ctx context.Context, id string) (int, error) {
	return int(c), nil
}

func newService(t *testing.T) *Service {
	t.Helper()
	stores := store.NewService(store.NewInMemoryRepository(store.Store{ID: "s-1", Name: "Main", Domain: "main.test"}))
	currencies := currency.NewService(currency.NewInMemoryRepository(currency.Currency{ID: "usd", Code: "USD", Name: "US Dollar", DecimalPlaces: 2, IsActive: true}))
	taxonomy := category.NewService(category.NewInMemoryRepository(), stores)
	return NewService(NewInMemoryRepository(), stores, currencies, taxonomy)
}

func TestCreateVariant_Validation(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	p, err := svc.CreateProduct(ctx, Product{StoreID: "s-1", Title: "Leash"})
	require.NoError(t, err)
	assert.Equal(t, []string{}, p.CategoryIDs)

	v, err := svc.CreateVariant(ctx, Variant{ProductID: p.ID, SKU: "LEASH-1", InventoryQuantity: 5,
		Prices: []Price{{CurrencyID: "usd", Price: decimal.RequireFromString("9.99")}}})
	require.NoError(t, err)
	assert.Len(t, v.Prices, 1)

	_, err = svc.CreateVariant(ctx, Variant{ProductID: p.ID, SKU: "LEASH-1"})
	assert.True(t, apperror.Is(err, apperror.KindConflict), "duplicate sku: %v", err)

	_, err = svc.CreateVariant(ctx, Variant{ProductID: p.ID, SKU: "LEASH-2",
		Prices: []Price{{CurrencyID: "gbp", Price: decimal.NewFromInt(1)}}})
	assert.True(t, apperror.Is(err, apperror.KindNotFound), "unknown currency: %v", err)

	_, err = svc.SetPrice(ctx, v.ID, Price{CurrencyID: "usd", Price: decimal.NewFromInt(-1)})
	assert.True(t, apperror.Is(err, apperror.KindBadRequest))
}

func TestCreateProduct_UnknownReferences(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, Product{StoreID: "nope", Title: "Bowl"})
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	_, err = svc.CreateProduct(ctx, Product{StoreID: "s-1", Title: "Bowl", CategoryIDs: []string{"c-x"}})
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
	assert.Contains(t, err.Error(), "category c-x")
}

func TestDeleteVariant_ReferencedByOrders(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	p, err := svc.CreateProduct(ctx, Product{StoreID: "s-1", Title: "Bed"})
	require.NoError(t, err)
	v, err := svc.CreateVariant(ctx, Variant{ProductID: p.ID, SKU: "BED-L"})
	require.NoError(t, err)

	svc.GuardVariantDelete(countRefs(1))
	err = svc.DeleteVariant(ctx, v.ID)
	assert.True(t, apperror.Is(err, apperror.KindBadRequest))
	err = svc.DeleteProduct(ctx, p.ID)
	assert.True(t, apperror.Is(err, apperror.KindBadRequest))

	svc.GuardVariantDelete(countRefs(0))
	require.NoError(t, svc.DeleteVariant(ctx, v.ID))
	_, err = svc.GetVariant(ctx, v.ID)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestInMemoryRepository_SnapshotRestoresInventory(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()
	_, err := repo.CreateProduct(ctx, Product{ID: "p-1", StoreID: "s-1", Title: "Toy"})
	require.NoError(t, err)
	_, err = repo.CreateVariant(ctx, Variant{ID: "v-1", ProductID: "p-1", SKU: "TOY", InventoryQuantity: 2})
	require.NoError(t, err)

	restore := repo.Snapshot()
	qty, backorder, err := repo.AdjustInventory(ctx, "v-1", -3)
	require.NoError(t, err)
	assert.Equal(t, -1, qty)
	assert.False(t, backorder)

	restore()
	qty, _, err = repo.Inventory(ctx, "v-1")
	require.NoError(t, err)
	assert.Equal(t, 2, qty)
}
