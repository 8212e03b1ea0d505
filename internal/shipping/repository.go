package shipping

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var ErrNotFound = errors.New("shipping method not found")

type Repository interface {
	ListByStore(ctx context.Context, storeID string) ([]Method, error)
	Get(ctx context.Context, id string) (Method, error)
	Create(ctx context.Context, m Method) (Method, error)
	Update(ctx context.Context, m Method) (Method, error)
	Delete(ctx context.Context, id string) error
}

type InMemoryRepository struct {
	mu      sync.RWMutex
	storage map[string]Method
}

func NewInMemoryRepository(seed ...Method) *InMemoryRepository {
	r := &InMemoryRepository{storage: map[string]Method{}}
	for _, m := range seed {
		r.storage[m.ID] = m
	}
	return r
}

func (r *InMemoryRepository) ListByStore(ctx context.Context, storeID string) ([]Method, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Method, 0)
	for _, m := range r.storage {
		if m.StoreID == storeID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *InMemoryRepository) Get(ctx context.Context, id string) (Method, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.storage[id]
	if !ok {
		return Method{}, ErrNotFound
	}
	return m, nil
}

func (r *InMemoryRepository) Create(ctx context.Context, m Method) (Method, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m.Prices = append([]Price(nil), m.Prices...)
	r.storage[m.ID] = m
	return m, nil
}

func (r *InMemoryRepository) Update(ctx context.Context, m Method) (Method, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.storage[m.ID]; !ok {
		return Method{}, ErrNotFound
	}
	m.Prices = append([]Price(nil), m.Prices...)
	r.storage[m.ID] = m
	return m, nil
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

func (r *InMemoryRepository) Snapshot() func() {
	r.mu.RLock()
	saved := make(map[string]Method, len(r.storage))
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
