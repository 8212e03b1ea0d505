package currency

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var (
	ErrNotFound      = errors.New("currency not found")
	ErrDuplicateCode = errors.New("currency code already exists")
)

type Repository interface {
	List(ctx context.Context, includeInactive bool) ([]Currency, error)
	Get(ctx context.Context, id string) (Currency, error)
	GetByCode(ctx context.Context, code string) (Currency, error)
	Create(ctx context.Context, c Currency) (Currency, error)
	Update(ctx context.Context, c Currency) (Currency, error)
	Delete(ctx context.Context, id string) error
}

type InMemoryRepository struct {
	mu      sync.RWMutex
	storage map[string]Currency
}

func NewInMemoryRepository(seed ...Currency) *InMemoryRepository {
	r := &InMemoryRepository{storage: make(map[string]Currency, len(seed))}
	for _, c := range seed {
		r.storage[c.ID] = c
	}
	return r
}

func (r *InMemoryRepository) List(ctx context.Context, includeInactive bool) ([]Currency, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Currency, 0, len(r.storage))
	for _, c := range r.storage {
		if c.IsActive || includeInactive {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r *InMemoryRepository) Get(ctx context.Context, id string) (Currency, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.storage[id]
	if !ok {
		return Currency{}, ErrNotFound
	}
	return c, nil
}

func (r *InMemoryRepository) GetByCode(ctx context.Context, code string) (Currency, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.storage {
		if c.Code == code {
			return c, nil
		}
	}
	return Currency{}, ErrNotFound
}

func (r *InMemoryRepository) Create(ctx context.Context, c Currency) (Currency, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.storage {
		if existing.Code == c.Code {
			return Currency{}, ErrDuplicateCode
		}
	}
	r.storage[c.ID] = c
	return c, nil
}

func (r *InMemoryRepository) Update(ctx context.Context, c Currency) (Currency, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.storage[c.ID]; !ok {
		return Currency{}, ErrNotFound
	}
	for id, existing := range r.storage {
		if id != c.ID && existing.Code == c.Code {
			return Currency{}, ErrDuplicateCode
		}
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

func (r *InMemoryRepository) Snapshot() func() {
	r.mu.RLock()
	saved := make(map[string]Currency, len(r.storage))
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
