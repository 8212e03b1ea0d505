package product

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var (
	ErrNotFound        = errors.New("product not found")
	ErrVariantNotFound = errors.New("variant not found")
	ErrDuplicateSKU    = errors.New("sku already exists")
)

type Repository interface {
	ListProducts(ctx context.Context, storeID string) ([]Product, error)
	GetProduct(ctx context.Context, id string) (Product, error)
	CreateProduct(ctx context.Context, p Product) (Product, error)
	UpdateProduct(ctx context.Context, p Product) (Product, error)
	DeleteProduct(ctx context.Context, id string) error

	ListVariants(ctx context.Context, productID string) ([]Variant, error)
	GetVariant(ctx context.Context, id string) (Variant, error)
	CreateVariant(ctx context.Context, v Variant) (Variant, error)
	UpdateVariant(ctx context.Context, v Variant) (Variant, error)
	DeleteVariant(ctx context.Context, id string) error
	SetPrice(ctx context.Context, variantID string, p Price) error

	// AdjustInventory adds delta to the variant's counter and returns the
	// new quantity with the owning product's backorder flag.
	AdjustInventory(ctx context.Context, variantID string, delta int) (int, bool, error)
	// Inventory reads the counter and backorder flag without changing them.
	Inventory(ctx context.Context, variantID string) (int, bool, error)

	CountByCurrency(ctx context.Context, currencyID string) (int, error)
}

// InMemoryRepository is a simple in-memory implementation useful for tests and
// local runs.
type InMemoryRepository struct {
	mu       sync.RWMutex
	products map[string]Product
	variants map[string]Variant
	prices   map[string]map[string]Price
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		products: map[string]Product{},
		variants: map[string]Variant{},
		prices:   map[string]map[string]Price{},
	}
}

func (r *InMemoryRepository) ListProducts(ctx context.Context, storeID string) ([]Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Product, 0)
	for _, p := range r.products {
		if p.StoreID == storeID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *InMemoryRepository) GetProduct(ctx context.Context, id string) (Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	p.Variants = r.variantsOf(id)
	return p, nil
}

func (r *InMemoryRepository) CreateProduct(ctx context.Context, p Product) (Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.Variants = nil
	r.products[p.ID] = p
	return p, nil
}

func (r *InMemoryRepository) UpdateProduct(ctx context.Context, p Product) (Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[p.ID]; !ok {
		return Product{}, ErrNotFound
	}
	p.Variants = nil
	r.products[p.ID] = p
	return p, nil
}

func (r *InMemoryRepository) DeleteProduct(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[id]; !ok {
		return ErrNotFound
	}
	for vid, v := range r.variants {
		if v.ProductID == id {
			delete(r.variants, vid)
			delete(r.prices, vid)
		}
	}
	delete(r.products, id)
	return nil
}

func (r *InMemoryRepository) ListVariants(ctx context.Context, productID string) ([]Variant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.variantsOf(productID), nil
}

func (r *InMemoryRepository) GetVariant(ctx context.Context, id string) (Variant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.variants[id]
	if !ok {
		return Variant{}, ErrVariantNotFound
	}
	v.Prices = r.pricesOf(id)
	return v, nil
}

func (r *InMemoryRepository) CreateVariant(ctx context.Context, v Variant) (Variant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[v.ProductID]; !ok {
		return Variant{}, ErrNotFound
	}
	if r.skuTaken(v.SKU, "") {
		return Variant{}, ErrDuplicateSKU
	}
	r.variants[v.ID] = v
	r.prices[v.ID] = map[string]Price{}
	for _, p := range v.Prices {
		r.prices[v.ID][p.CurrencyID] = p
	}
	v.Prices = r.pricesOf(v.ID)
	return v, nil
}

func (r *InMemoryRepository) UpdateVariant(ctx context.Context, v Variant) (Variant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.variants[v.ID]; !ok {
		return Variant{}, ErrVariantNotFound
	}
	if r.skuTaken(v.SKU, v.ID) {
		return Variant{}, ErrDuplicateSKU
	}
	v.Prices = nil
	r.variants[v.ID] = v
	v.Prices = r.pricesOf(v.ID)
	return v, nil
}

func (r *InMemoryRepository) DeleteVariant(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.variants[id]; !ok {
		return ErrVariantNotFound
	}
	delete(r.variants, id)
	delete(r.prices, id)
	return nil
}

func (r *InMemoryRepository) SetPrice(ctx context.Context, variantID string, p Price) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.variants[variantID]; !ok {
		return ErrVariantNotFound
	}
	if r.prices[variantID] == nil {
		r.prices[variantID] = map[string]Price{}
	}
	r.prices[variantID][p.CurrencyID] = p
	return nil
}

func (r *InMemoryRepository) AdjustInventory(ctx context.Context, variantID string, delta int) (int, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.variants[variantID]
	if !ok {
		return 0, false, ErrVariantNotFound
	}
	v.InventoryQuantity += delta
	r.variants[variantID] = v
	return v.InventoryQuantity, r.products[v.ProductID].AllowBackorder, nil
}

func (r *InMemoryRepository) Inventory(ctx context.Context, variantID string) (int, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.variants[variantID]
	if !ok {
		return 0, false, ErrVariantNotFound
	}
	return v.InventoryQuantity, r.products[v.ProductID].AllowBackorder, nil
}

func (r *InMemoryRepository) CountByCurrency(ctx context.Context, currencyID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, byCurrency := range r.prices {
		if _, ok := byCurrency[currencyID]; ok {
			n++
		}
	}
	return n, nil
}

func (r *InMemoryRepository) variantsOf(productID string) []Variant {
	out := make([]Variant, 0)
	for _, v := range r.variants {
		if v.ProductID == productID {
			v.Prices = r.pricesOf(v.ID)
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out
}

func (r *InMemoryRepository) pricesOf(variantID string) []Price {
	out := make([]Price, 0, len(r.prices[variantID]))
	for _, p := range r.prices[variantID] {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CurrencyID < out[j].CurrencyID })
	return out
}

func (r *InMemoryRepository) skuTaken(sku, exceptID string) bool {
	for id, v := range r.variants {
		if id != exceptID && v.SKU == sku {
			return true
		}
	}
	return false
}

// Snapshot implements database.Snapshotter.
func (r *InMemoryRepository) Snapshot() func() {
	r.mu.RLock()
	products := make(map[string]Product, len(r.products))
	for k, v := range r.products {
		products[k] = v
	}
	variants := make(map[string]Variant, len(r.variants))
	for k, v := range r.variants {
		variants[k] = v
	}
	prices := make(map[string]map[string]Price, len(r.prices))
	for k, m := range r.prices {
		cp := make(map[string]Price, len(m))
		for c, p := range m {
			cp[c] = p
		}
		prices[k] = cp
	}
	r.mu.RUnlock()
	return func() {
		r.mu.Lock()
		r.products, r.variants, r.prices = products, variants, prices
		r.mu.Unlock()
	}
}
