package coupon

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var (
	ErrNotFound      = errors.New("coupon not found")
	ErrDuplicateCode = errors.New("coupon code already exists in store")
	// ErrUsageExhausted is returned by IncrementUsage once maxUses is reached.
	ErrUsageExhausted = errors.New("coupon usage limit reached")
)

type Repository interface {
	ListByStore(ctx context.Context, storeID string, includeInactive bool) ([]Coupon, error)
	Get(ctx context.Context, id string) (Coupon, error)
	GetByCode(ctx context.Context, storeID, code string) (Coupon, error)
	Create(ctx context.Context, c Coupon) (Coupon, error)
	Update(ctx context.Context, c Coupon) (Coupon, error)
	Delete(ctx context.Context, id string) error
	IncrementUsage(ctx context.Context, id string) (Coupon, error)
}

type InMemoryRepository struct {
	mu      sync.RWMutex
	storage map[string]Coupon
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{storage: map[string]Coupon{}}
}

func (r *InMemoryRepository) ListByStore(ctx context.Context, storeID string, includeInactive bool) ([]Coupon, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Coupon, 0)
	for _, c := range r.storage {
		if c.StoreID != storeID || (!includeInactive && !c.IsActive) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *InMemoryRepository) Get(ctx context.Context, id string) (Coupon, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.storage[id]
	if !ok {
		return Coupon{}, ErrNotFound
	}
	return c, nil
}

func (r *InMemoryRepository) GetByCode(ctx context.Context, storeID, code string) (Coupon, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.storage {
		if c.StoreID == storeID && c.Code == code {
			return c, nil
		}
	}
	return Coupon{}, ErrNotFound
}

func (r *InMemoryRepository) Create(ctx context.Context, c Coupon) (Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.codeTaken(c.StoreID, c.Code, "") {
		return Coupon{}, ErrDuplicateCode
	}
	r.storage[c.ID] = c
	return c, nil
}

func (r *InMemoryRepository) Update(ctx context.Context, c Coupon) (Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.storage[c.ID]; !ok {
		return Coupon{}, ErrNotFound
	}
	if r.codeTaken(c.StoreID, c.Code, c.ID) {
		return Coupon{}, ErrDuplicateCode
	}
	r.storage[c.ID] = c
	return c, nil
}

func (r *InMemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.storage[id]; !ok {
		return ErrNotFound
	}
	delete(r.storage, id)
	return nil
}

func (r *InMemoryRepository) IncrementUsage(ctx context.Context, id string) (Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.storage[id]
	if !ok {
		return Coupon{}, ErrNotFound
	}
	if c.MaxUses != nil && c.UsedCount >= *c.MaxUses {
		return Coupon{}, ErrUsageExhausted
	}
	c.UsedCount++
	r.storage[id] = c
	return c, nil
}

func (r *InMemoryRepository) codeTaken(storeID, code, exceptID string) bool {
	for id, c := range r.storage {
		if id != exceptID && c.StoreID == storeID && c.Code == code {
			return true
		}
	}
	return false
}

func (r *InMemoryRepository) Snapshot() func() {
	r.mu.RLock()
	saved := make(map[string]Coupon, len(r.storage))
	for k, v := range r.storage {
		saved[k] = v
	}
	r.mu.RUnlock()
	return func() {
		r.mu.Lock()
		r.storage = saved
		r.mu.Unlock()
	}
}
