package store

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var (
	ErrNotFound        = errors.New("store not found")
	ErrDuplicateDomain = errors.New("store domain already exists")
)

type Repository interface {
	List(ctx context.Context) ([]Store, error)
	Get(ctx context.Context, id string) (Store, error)
	Create(ctx context.Context, s Store) (Store, error)
	Update(ctx context.Context, s Store) (Store, error)
	Delete(ctx context.Context, id string) error
}

// InMemoryRepository is a map-backed Repository used by tests and local runs.
type InMemoryRepository struct {
	mu      sync.RWMutex
	storage map[string]Store
}

func NewInMemoryRepository(seed ...Store) *InMemoryRepository {
	r := &InMemoryRepository{storage: make(map[string]Store, len(seed))}
	for _, s := range seed {
		r.storage[s.ID] = s
	}
	return r
}

func (r *InMemoryRepository) List(ctx context.Context) ([]Store, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Store, 0, len(r.storage))
	for _, s := range r.storage {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *InMemoryRepository) Get(ctx context.Context, id string) (Store, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.storage[id]
	if !ok {
		return Store{}, ErrNotFound
	}
	return s, nil
}

func (r *InMemoryRepository) Create(ctx context.Context, s Store) (Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.domainTaken(s.Domain, "") {
		return Store{}, ErrDuplicateDomain
	}
	r.storage[s.ID] = s
	return s, nil
}

func (r *InMemoryRepository) Update(ctx context.Context, s Store) (Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.storage[s.ID]; !ok {
		return Store{}, ErrNotFound
	}
	if r.domainTaken(s.Domain, s.ID) {
		return Store{}, ErrDuplicateDomain
	}
	r.storage[s.ID] = s
	return s, nil
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

func (r *InMemoryRepository) domainTaken(domain, exceptID string) bool {
	for id, s := range r.storage {
		if id != exceptID && s.Domain == domain {
			return true
		}
	}
	return false
}

// Snapshot implements database.Snapshotter.
func (r *InMemoryRepository) Snapshot() func() {
	r.mu.RLock()
	saved := make(map[string]Store, len(r.storage))
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
