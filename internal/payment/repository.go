package payment

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var ErrNotFound = errors.New("payment transaction not found")

type Repository interface {
	ListByOrder(ctx context.Context, orderID string) ([]Transaction, error)
	Get(ctx context.Context, id string) (Transaction, error)
	Create(ctx context.Context, t Transaction) (Transaction, error)
	Update(ctx context.Context, t Transaction) (Transaction, error)
	Delete(ctx context.Context, id string) error
	CountByOrder(ctx context.Context, orderID string) (int, error)
	CountByCurrency(ctx context.Context, currencyID string) (int, error)
}

type InMemoryRepository struct {
	mu      sync.RWMutex
	storage map[string]Transaction
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{storage: map[string]Transaction{}}
}

func (r *InMemoryRepository) ListByOrder(ctx context.Context, orderID string) ([]Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Transaction, 0)
	for _, t := range r.storage {
		if t.OrderID == orderID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *InMemoryRepository) Get(ctx context.Context, id string) (Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.storage[id]
	if !ok {
		return Transaction{}, ErrNotFound
	}
	return t, nil
}

func (r *InMemoryRepository) Create(ctx context.Context, t Transaction) (Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.storage[t.ID] = t
	return t, nil
}

func (r *InMemoryRepository) Update(ctx context.Context, t Transaction) (Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.storage[t.ID]; !ok {
		return Transaction{}, ErrNotFound
	}
	r.storage[t.ID] = t
	return t, nil
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

func (r *InMemoryRepository) CountByOrder(ctx context.Context, orderID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, t := range r.storage {
		if t.OrderID == orderID {
			n++
		}
	}
	return n, nil
}

func (r *InMemoryRepository) CountByCurrency(ctx context.Context, currencyID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, t := range r.storage {
		if t.CurrencyID == currencyID {
			n++
		}
	}
	return n, nil
}

func (r *InMemoryRepository) Snapshot() func() {
	r.mu.RLock()
	saved := make(map[string]Transaction, len(r.storage))
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
