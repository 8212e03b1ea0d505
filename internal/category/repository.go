package category

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var (
	ErrNotFound           = errors.New("category not found")
	ErrCollectionNotFound = errors.New("collection not found")
)

// Repository provides access to category and collection rows.
type Repository interface {
	ListCategories(ctx context.Context, storeID string) ([]Category, error)
	GetCategory(ctx context.Context, id string) (Category, error)
	CreateCategory(ctx context.Context, c Category) (Category, error)
	UpdateCategory(ctx context.Context, c Category) (Category, error)
	DeleteCategory(ctx context.Context, id string) error

	ListCollections(ctx context.Context, storeID string) ([]Collection, error)
	GetCollection(ctx context.Context, id string) (Collection, error)
	CreateCollection(ctx context.Context, c Collection) (Collection, error)
	UpdateCollection(ctx context.Context, c Collection) (Collection, error)
	DeleteCollection(ctx context.Context, id string) error
}

type InMemoryRepository struct {
	mu          sync.RWMutex
	categories  map[string]Category
	collections map[string]Collection
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		categories:  map[string]Category{},
		collections: map[string]Collection{},
	}
}

func (r *InMemoryRepository) ListCategories(ctx context.Context, storeID string) ([]Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Category, 0)
	for _, c := range r.categories {
		if c.StoreID == storeID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *InMemoryRepository) GetCategory(ctx context.Context, id string) (Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.categories[id]
	if !ok {
		return Category{}, ErrNotFound
	}
	return c, nil
}

func (r *InMemoryRepository) CreateCategory(ctx context.Context, c Category) (Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.categories[c.ID] = c
	return c, nil
}

func (r *InMemoryRepository) UpdateCategory(ctx context.Context, c Category) (Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.categories[c.ID]; !ok {
		return Category{}, ErrNotFound
	}
	r.categories[c.ID] = c
	return c, nil
}

func (r *InMemoryRepository) DeleteCategory(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.categories[id]; !ok {
		return ErrNotFound
	}
	delete(r.categories, id)
	return nil
}

func (r *InMemoryRepository) ListCollections(ctx context.Context, storeID string) ([]Collection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Collection, 0)
	for _, c := range r.collections {
		if c.StoreID == storeID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *InMemoryRepository) GetCollection(ctx context.Context, id string) (Collection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.collections[id]
	if !ok {
		return Collection{}, ErrCollectionNotFound
	}
	return c, nil
}

func (r *InMemoryRepository) CreateCollection(ctx context.Context, c Collection) (Collection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.collections[c.ID] = c
	return c, nil
}

func (r *InMemoryRepository) UpdateCollection(ctx context.Context, c Collection) (Collection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.collections[c.ID]; !ok {
		return Collection{}, ErrCollectionNotFound
	}
	r.collections[c.ID] = c
	return c, nil
}

func (r *InMemoryRepository) DeleteCollection(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.collections[id]; !ok {
		return ErrCollectionNotFound
	}
	delete(r.collections, id)
	return nil
}

func (r *InMemoryRepository) Snapshot() func() {
	r.mu.RLock()
	cats := make(map[string]Category, len(r.categories))
	for k, v := range r.categories {
		cats[k] = v
	}
	cols := make(map[string]Collection, len(r.collections))
	for k, v := range r.collections {
		cols[k] = v
	}
	r.mu.RUnlock()
	return func() {
		r.mu.Lock()
		r.categories, r.collections = cats, cols
		r.mu.Unlock()
	}
}
