package refund

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/wichananm65/shop-admin-backend/internal/order"
)

var (
	ErrNotFound     = errors.New("refund not found")
	ErrLineNotFound = errors.New("refund line item not found")
)

// Repository stores refunds with their line items. Update writes the
// refund row only; lines change through SaveLine and DeleteLine. It also
// serves as the order package's refund ledger.
type Repository interface {
	Get(ctx context.Context, id string) (Refund, error)
	ListByOrder(ctx context.Context, orderID string) ([]Refund, error)
	ListByStore(ctx context.Context, storeID string) ([]Refund, error)
	Create(ctx context.Context, r Refund) (Refund, error)
	Update(ctx context.Context, r Refund) (Refund, error)
	Delete(ctx context.Context, id string) error
	GetLine(ctx context.Context, id string) (LineItem, error)
	SaveLine(ctx context.Context, l LineItem) error
	DeleteLine(ctx context.Context, id string) error
	ItemRefunds(ctx context.Context, orderID string) (map[string]order.ItemRefund, error)
	ProcessedTotal(ctx context.Context, orderID string) (decimal.Decimal, error)
	CountByOrder(ctx context.Context, orderID string) (int, error)
}

type InMemoryRepository struct {
	mu      sync.RWMutex
	refunds map[string]Refund
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{refunds: map[string]Refund{}}
}

func clone(r Refund) Refund {
	r.LineItems = append([]LineItem(nil), r.LineItems...)
	return r
}

func (m *InMemoryRepository) Get(ctx context.Context, id string) (Refund, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.refunds[id]
	if !ok {
		return Refund{}, ErrNotFound
	}
	return clone(r), nil
}

func (m *InMemoryRepository) list(keep func(Refund) bool) []Refund {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Refund, 0)
	for _, r := range m.refunds {
		if keep(r) {
			out = append(out, clone(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *InMemoryRepository) ListByOrder(ctx context.Context, orderID string) ([]Refund, error) {
	return m.list(func(r Refund) bool { return r.OrderID == orderID }), nil
}

func (m *InMemoryRepository) ListByStore(ctx context.Context, storeID string) ([]Refund, error) {
	return m.list(func(r Refund) bool { return r.StoreID == storeID }), nil
}

func (m *InMemoryRepository) Create(ctx context.Context, r Refund) (Refund, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refunds[r.ID] = clone(r)
	return r, nil
}

func (m *InMemoryRepository) Update(ctx context.Context, r Refund) (Refund, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.refunds[r.ID]
	if !ok {
		return Refund{}, ErrNotFound
	}
	r.LineItems = cur.LineItems
	m.refunds[r.ID] = r
	return clone(r), nil
}

func (m *InMemoryRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.refunds[id]; !ok {
		return ErrNotFound
	}
	delete(m.refunds, id)
	return nil
}

func (m *InMemoryRepository) GetLine(ctx context.Context, id string) (LineItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.refunds {
		for _, l := range r.LineItems {
			if l.ID == id {
				return l, nil
			}
		}
	}
	return LineItem{}, ErrLineNotFound
}

func (m *InMemoryRepository) SaveLine(ctx context.Context, l LineItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.refunds[l.RefundID]
	if !ok {
		return ErrNotFound
	}
	lines := append([]LineItem(nil), r.LineItems...)
	for i := range lines {
		if lines[i].ID == l.ID {
			lines[i] = l
			r.LineItems = lines
			m.refunds[r.ID] = r
			return nil
		}
	}
	r.LineItems = append(lines, l)
	m.refunds[r.ID] = r
	return nil
}

func (m *InMemoryRepository) DeleteLine(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.refunds {
		for i, l := range r.LineItems {
			if l.ID != id {
				continue
			}
			lines := append([]LineItem(nil), r.LineItems[:i]...)
			r.LineItems = append(lines, r.LineItems[i+1:]...)
			m.refunds[r.ID] = r
			return nil
		}
	}
	return ErrLineNotFound
}

func (m *InMemoryRepository) ItemRefunds(ctx context.Context, orderID string) (map[string]order.ItemRefund, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := map[string]order.ItemRefund{}
	for _, r := range m.refunds {
		if r.OrderID != orderID {
			continue
		}
		for _, l := range r.LineItems {
			agg := out[l.OrderItemID]
			agg.Lines++
			agg.Quantity += l.Quantity
			agg.Amount = agg.Amount.Add(l.Amount)
			if l.Restocked && !r.Pending() {
				agg.Restocked += l.Quantity
			}
			out[l.OrderItemID] = agg
		}
	}
	return out, nil
}

func (m *InMemoryRepository) ProcessedTotal(ctx context.Context, orderID string) (decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := decimal.Zero
	for _, r := range m.refunds {
		if r.OrderID == orderID && !r.Pending() {
			total = total.Add(sumLines(r.LineItems))
		}
	}
	return total, nil
}

func (m *InMemoryRepository) CountByOrder(ctx context.Context, orderID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, r := range m.refunds {
		if r.OrderID == orderID {
			n++
		}
	}
	return n, nil
}

func (m *InMemoryRepository) Snapshot() func() {
	m.mu.RLock()
	saved := make(map[string]Refund, len(m.refunds))
	for k, v := range m.refunds {
		saved[k] = clone(v)
	}
	m.mu.RUnlock()
	return func() {
		m.mu.Lock()
		m.refunds = saved
		m.mu.Unlock()
	}
}
