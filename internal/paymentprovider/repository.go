package paymentprovider

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var ErrNotFound = errors.New("payment provider not found")

type Repository interface {
	ListByStore(ctx context.Context, storeID string) ([]Provider, error)
	Get(ctx context.Context, id string) (Provider, error)
	Create(ctx context.Context, p Provider) (Provider, error)
	Update(ctx context.Context, p Provider) (Provider, error)
	Delete(ctx context.Context, id string) error
	CountByCurrency(ctx context.Context, currencyID string) (int, error)
}

type InMemoryRepository struct {
	mu      sync.RWMutex
	storage map[string]Provider
}

func NewInMemoryRepository(seed ...Provider) *InMemoryRepository {
	r := &InMemoryRepository{storage: map[string]Provider{}}
	for _, p := range seed {
		r.storage[p.ID] = p
	}
	return r
}

func (r *InMemoryRepository) ListByStore(ctx context.Context, storeID string) ([]Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Provider, 0)
	for _, p := range r.storage {
		if p.StoreID == storeID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *InMemoryRepository) Get(ctx context.Context, id string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.storage[id]
	if !ok {
		return Provider{}, ErrNotFound
	}
	return p, nil
}

func (r *InMemoryRepository) Create(ctx context.Context, p Provider) (Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.storage[p.ID] = p
	return p, nil
}

func (r *InMemoryRepository) Update(ctx context.Context, p Provider) (Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.storage[p.ID]; !ok {
		return Provider{}, ErrNotFound
	}
	r.storage[p.ID] = p
	return p, nil
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

func (r *InMemoryRepository) CountByCurrency(ctx context.Context, currencyID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, p := range r.storage {
		if p.CurrencyID != nil && *p.CurrencyID == currencyID {
			n++
		}
	}
	return n, nil
}

func (r *InMemoryRepository) Snapshot() func() {
	r.mu.RLock()
	saved := make(map[string]Provider, len(r.storage))
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
