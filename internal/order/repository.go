package order

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var (
	ErrNotFound        = errors.New("order not found")
	ErrDuplicateNumber = errors.New("order number already used in store")
)

// Repository persists orders and their line items. Get returns the order
// with its items; Update writes the order row only.
type Repository interface {
	List(ctx context.Context, f Filter) ([]Order, error)
	Get(ctx context.Context, id string) (Order, error)
	NextNumber(ctx context.Context, storeID string) (int, error)
	NumberTaken(ctx context.Context, storeID string, number int) (bool, error)
	Create(ctx context.Context, o Order) (Order, error)
	Update(ctx context.Context, o Order) (Order, error)
	SaveItems(ctx context.Context, orderID string, items []Item, removed []string) error
	Delete(ctx context.Context, id string) error
	CountByCurrency(ctx context.Context, currencyID string) (int, error)
	CountByCoupon(ctx context.Context, couponID string) (int, error)
	CountByVariant(ctx context.Context, variantID string) (int, error)
}

type InMemoryRepository struct {
	mu     sync.RWMutex
	orders map[string]Order
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{orders: map[string]Order{}}
}

func clone(o Order) Order {
	o.LineItems = append([]Item(nil), o.LineItems...)
	return o
}

func (r *InMemoryRepository) List(ctx context.Context, f Filter) ([]Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Order, 0)
	for _, o := range r.orders {
		if f.StoreID != "" && o.StoreID != f.StoreID {
			continue
		}
		if f.FinancialStatus != "" && o.FinancialStatus != f.FinancialStatus {
			continue
		}
		if f.FulfillmentStatus != "" && o.FulfillmentStatus != f.FulfillmentStatus {
			continue
		}
		out = append(out, clone(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []Order{}, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *InMemoryRepository) Get(ctx context.Context, id string) (Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	return clone(o), nil
}

func (r *InMemoryRepository) NextNumber(ctx context.Context, storeID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	max := 0
	for _, o := range r.orders {
		if o.StoreID == storeID && o.OrderNumber > max {
			max = o.OrderNumber
		}
	}
	return max + 1, nil
}

func (r *InMemoryRepository) NumberTaken(ctx context.Context, storeID string, number int) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.numberTaken(storeID, number), nil
}

func (r *InMemoryRepository) numberTaken(storeID string, number int) bool {
	for _, o := range r.orders {
		if o.StoreID == storeID && o.OrderNumber == number {
			return true
		}
	}
	return false
}

func (r *InMemoryRepository) Create(ctx context.Context, o Order) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.numberTaken(o.StoreID, o.OrderNumber) {
		return Order{}, ErrDuplicateNumber
	}
	r.orders[o.ID] = clone(o)
	return o, nil
}

func (r *InMemoryRepository) Update(ctx context.Context, o Order) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.orders[o.ID]
	if !ok {
		return Order{}, ErrNotFound
	}
	o.LineItems = cur.LineItems
	r.orders[o.ID] = o
	return clone(o), nil
}

func (r *InMemoryRepository) SaveItems(ctx context.Context, orderID string, items []Item, removed []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok {
		return ErrNotFound
	}
	o.LineItems = append([]Item(nil), items...)
	r.orders[orderID] = o
	return nil
}

func (r *InMemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[id]; !ok {
		return ErrNotFound
	}
	delete(r.orders, id)
	return nil
}

func (r *InMemoryRepository) CountByCurrency(ctx context.Context, currencyID string) (int, error) {
	return r.count(func(o Order) bool { return o.CurrencyID == currencyID }), nil
}

func (r *InMemoryRepository) CountByCoupon(ctx context.Context, couponID string) (int, error) {
	return r.count(func(o Order) bool { return o.CouponID != nil && *o.CouponID == couponID }), nil
}

// CountByVariant counts order items, not orders.
func (r *InMemoryRepository) CountByVariant(ctx context.Context, variantID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, o := range r.orders {
		for _, it := range o.LineItems {
			if it.VariantID != nil && *it.VariantID == variantID {
				n++
			}
		}
	}
	return n, nil
}

func (r *InMemoryRepository) count(match func(Order) bool) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, o := range r.orders {
		if match(o) {
			n++
		}
	}
	return n
}

func (r *InMemoryRepository) Snapshot() func() {
	r.mu.RLock()
	saved := make(map[string]Order, len(r.orders))
	for k, v := range r.orders {
		saved[k] = clone(v)
	}
	r.mu.RUnlock()
	return func() {
		r.mu.Lock()
		r.orders = saved
		r.mu.Unlock()
	}
}
