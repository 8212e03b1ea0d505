package refund

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wichananm65/shop-admin-backend/internal/apperror"
	"github.com/wichananm65/shop-admin-backend/internal/auth"
	"github.com/wichananm65/shop-admin-backend/internal/database"
	"github.com/wichananm65/shop-admin-backend/internal/order"
	"github.com/wichananm65/shop-admin-backend/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

const recentLimit = 5

// Orders is the part of *order.Service refunds depend on.
type Orders interface {
	Get(ctx context.Context, id string) (order.Order, error)
	ApplyRefunds(ctx context.Context, id string) (order.Order, error)
}

type Restocker interface {
	Restock(ctx context.Context, variantID string, quantity int) error
}

type Service struct {
	repo    Repository
	tx      database.Transactor
	orders  Orders
	stock   Restocker
	logger  *slog.Logger
	metrics *telemetry.Metrics
	now     func() time.Time
}

func NewService(repo Repository, tx database.Transactor, orders Orders, stock Restocker, logger *slog.Logger, metrics *telemetry.Metrics) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, tx: tx, orders: orders, stock: stock, logger: logger, metrics: metrics, now: time.Now}
}

type LineInput struct {
	OrderItemID string          `json:"orderItemId"`
	Quantity    int             `json:"quantity"`
	Amount      decimal.Decimal `json:"amount"`
	Restocked   bool            `json:"restocked"`
}

// CreateInput is a new refund. Pending keeps it as an editable draft
// instead of processing it straight away.
type CreateInput struct {
	OrderID   string      `json:"-"`
	Note      string      `json:"note"`
	Pending   bool        `json:"pending"`
	LineItems []LineInput `json:"lineItems"`
}

func (s *Service) Get(ctx context.Context, id string) (Refund, error) {
	r, err := s.repo.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Refund{}, apperror.NotFound("refund %s not found", id)
	}
	return r, database.MapError(err)
}

func (s *Service) ListByOrder(ctx context.Context, orderID string) ([]Refund, error) {
	if _, err := s.orders.Get(ctx, orderID); err != nil {
		return nil, err
	}
	out, err := s.repo.ListByOrder(ctx, orderID)
	return out, database.MapError(err)
}

func (s *Service) ListByStore(ctx context.Context, storeID string) ([]Refund, error) {
	out, err := s.repo.ListByStore(ctx, storeID)
	return out, database.MapError(err)
}

// StatisticsByStore counts refunds created in [from, to]. Either bound may
// be nil.
func (s *Service) StatisticsByStore(ctx context.Context, storeID string, from, to *time.Time) (Statistics, error) {
	all, err := s.ListByStore(ctx, storeID)
	if err != nil {
		return Statistics{}, err
	}
	st := Statistics{TotalAmount: decimal.Zero, AverageAmount: decimal.Zero, Recent: []Refund{}}
	for _, r := range all {
		if from != nil && r.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && r.CreatedAt.After(*to) {
			continue
		}
		st.Count++
		st.TotalAmount = st.TotalAmount.Add(r.Amount)
		st.Recent = append(st.Recent, r)
	}
	if st.Count > 0 {
		st.AverageAmount = st.TotalAmount.DivRound(decimal.NewFromInt(int64(st.Count)), 2)
	}
	sort.SliceStable(st.Recent, func(i, j int) bool { return st.Recent[i].CreatedAt.After(st.Recent[j].CreatedAt) })
	if len(st.Recent) > recentLimit {
		st.Recent = st.Recent[:recentLimit]
	}
	return st, nil
}

// Create validates every line against the order and what has already been
// refunded for it, then persists the refund. Unless in.Pending is set the
// refund is processed in the same transaction.
func (s *Service) Create(ctx context.Context, in CreateInput) (out Refund, err error) {
	ctx, span := telemetry.StartSpan(ctx, "refund.Create", attribute.String("order_id", in.OrderID))
	defer func() { telemetry.EndSpan(span, err) }()

	if len(in.LineItems) == 0 {
		return Refund{}, apperror.BadRequest("a refund needs at least one line item")
	}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		o, err := s.orders.Get(ctx, in.OrderID)
		if err != nil {
			return err
		}
		ledger, err := s.repo.ItemRefunds(ctx, o.ID)
		if err != nil {
			return database.MapError(err)
		}
		if err := checkLines(o, ledger, in.LineItems); err != nil {
			return err
		}

		r := Refund{ID: uuid.NewString(), OrderID: o.ID, StoreID: o.StoreID, Note: in.Note, CreatedAt: s.now().UTC()}
		for _, li := range in.LineItems {
			r.LineItems = append(r.LineItems, LineItem{
				ID:          uuid.NewString(),
				RefundID:    r.ID,
				OrderItemID: li.OrderItemID,
				Quantity:    li.Quantity,
				Amount:      li.Amount,
				Restocked:   li.Restocked,
			})
		}
		r.Amount = sumLines(r.LineItems)

		created, err := s.repo.Create(ctx, r)
		if err != nil {
			return database.MapError(err)
		}
		if !in.Pending {
			if created, err = s.process(ctx, o, created); err != nil {
				return err
			}
		}
		out = created
		return nil
	})
	if err != nil {
		return Refund{}, err
	}
	s.logger.InfoContext(ctx, "refund created",
		"refund_id", out.ID, "order_id", out.OrderID, "amount", out.Amount.String(),
		"pending", out.Pending(), "actor", auth.ActorFrom(ctx))
	return out, nil
}

// Process moves a pending refund to processed.
func (s *Service) Process(ctx context.Context, id string) (out Refund, err error) {
	ctx, span := telemetry.StartSpan(ctx, "refund.Process", attribute.String("refund_id", id))
	defer func() { telemetry.EndSpan(span, err) }()

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		r, err := s.pending(ctx, id)
		if err != nil {
			return err
		}
		o, err := s.orders.Get(ctx, r.OrderID)
		if err != nil {
			return err
		}
		out, err = s.process(ctx, o, r)
		return err
	})
	return out, err
}

// Update changes the note. Every other field is immutable.
func (s *Service) Update(ctx context.Context, id string, fields map[string]any) (out Refund, err error) {
	ctx, span := telemetry.StartSpan(ctx, "refund.Update", attribute.String("refund_id", id))
	defer func() { telemetry.EndSpan(span, err) }()

	var note *string
	for k, v := range fields {
		if k != "note" {
			return Refund{}, apperror.BadRequest("field %q of a refund cannot be changed; only note is editable", k)
		}
		str, ok := v.(string)
		if !ok {
			return Refund{}, apperror.BadRequest("note must be a string")
		}
		note = &str
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		r, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		if note != nil {
			r.Note = *note
		}
		if out, err = s.repo.Update(ctx, r); err != nil {
			return database.MapError(err)
		}
		return nil
	})
	return out, err
}

// AddLineItem appends a line to a pending refund.
func (s *Service) AddLineItem(ctx context.Context, refundID string, in LineInput) (out Refund, err error) {
	ctx, span := telemetry.StartSpan(ctx, "refund.AddLineItem", attribute.String("refund_id", refundID))
	defer func() { telemetry.EndSpan(span, err) }()

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		r, err := s.pending(ctx, refundID)
		if err != nil {
			return err
		}
		o, err := s.orders.Get(ctx, r.OrderID)
		if err != nil {
			return err
		}
		ledger, err := s.repo.ItemRefunds(ctx, o.ID)
		if err != nil {
			return database.MapError(err)
		}
		if err := checkLines(o, ledger, []LineInput{in}); err != nil {
			return err
		}
		l := LineItem{ID: uuid.NewString(), RefundID: r.ID, OrderItemID: in.OrderItemID,
			Quantity: in.Quantity, Amount: in.Amount, Restocked: in.Restocked}
		if err := s.repo.SaveLine(ctx, l); err != nil {
			return database.MapError(err)
		}
		r.LineItems = append(r.LineItems, l)
		out, err = s.saveAmount(ctx, r)
		return err
	})
	return out, err
}

// UpdateLineItem toggles restocking on a line of a pending refund.
func (s *Service) UpdateLineItem(ctx context.Context, lineID string, restocked bool) (out Refund, err error) {
	ctx, span := telemetry.StartSpan(ctx, "refund.UpdateLineItem", attribute.String("line_id", lineID))
	defer func() { telemetry.EndSpan(span, err) }()

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		l, r, err := s.pendingLine(ctx, lineID)
		if err != nil {
			return err
		}
		l.Restocked = restocked
		if err := s.repo.SaveLine(ctx, l); err != nil {
			return database.MapError(err)
		}
		out, err = s.Get(ctx, r.ID)
		return err
	})
	return out, err
}

// RemoveLineItem drops a line from a pending refund. The last line cannot
// be removed; remove the refund instead.
func (s *Service) RemoveLineItem(ctx context.Context, lineID string) (out Refund, err error) {
	ctx, span := telemetry.StartSpan(ctx, "refund.RemoveLineItem", attribute.String("line_id", lineID))
	defer func() { telemetry.EndSpan(span, err) }()

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		l, r, err := s.pendingLine(ctx, lineID)
		if err != nil {
			return err
		}
		if len(r.LineItems) == 1 {
			return apperror.BadRequest("refund %s needs at least one line item; remove the refund instead", r.ID)
		}
		if err := s.repo.DeleteLine(ctx, l.ID); err != nil {
			return database.MapError(err)
		}
		kept := r.LineItems[:0:0]
		for _, other := range r.LineItems {
			if other.ID != l.ID {
				kept = append(kept, other)
			}
		}
		r.LineItems = kept
		out, err = s.saveAmount(ctx, r)
		return err
	})
	return out, err
}

// Remove deletes a pending refund.
func (s *Service) Remove(ctx context.Context, id string) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "refund.Remove", attribute.String("refund_id", id))
	defer func() { telemetry.EndSpan(span, err) }()

	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.pending(ctx, id); err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, id); err != nil {
			return database.MapError(err)
		}
		s.logger.InfoContext(ctx, "refund removed", "refund_id", id, "actor", auth.ActorFrom(ctx))
		return nil
	})
}

// process stamps ProcessedAt, returns restocked units to inventory and
// recomputes the order's financial status. Units are only returned while the
// order holds them; otherwise they were never taken or were already released.
func (s *Service) process(ctx context.Context, o order.Order, r Refund) (Refund, error) {
	if o.InventoryCommitted {
		for _, l := range r.LineItems {
			if !l.Restocked {
				continue
			}
			it, ok := o.Item(l.OrderItemID)
			if !ok || it.VariantID == nil {
				continue
			}
			if err := s.stock.Restock(ctx, *it.VariantID, l.Quantity); err != nil {
				return Refund{}, err
			}
		}
	}

	now := s.now().UTC()
	r.ProcessedAt = &now
	updated, err := s.repo.Update(ctx, r)
	if err != nil {
		return Refund{}, database.MapError(err)
	}
	if _, err := s.orders.ApplyRefunds(ctx, r.OrderID); err != nil {
		return Refund{}, err
	}
	s.metrics.RefundProcessed(ctx, r.Amount.InexactFloat64())
	s.logger.InfoContext(ctx, "refund processed",
		"refund_id", r.ID, "order_id", r.OrderID, "amount", r.Amount.String())
	return updated, nil
}

func (s *Service) saveAmount(ctx context.Context, r Refund) (Refund, error) {
	r.Amount = sumLines(r.LineItems)
	out, err := s.repo.Update(ctx, r)
	if err != nil {
		return Refund{}, database.MapError(err)
	}
	out.LineItems = r.LineItems
	return out, nil
}

func (s *Service) pending(ctx context.Context, id string) (Refund, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return Refund{}, err
	}
	if !r.Pending() {
		return Refund{}, apperror.BadRequest("refund %s is already processed", id)
	}
	return r, nil
}

func (s *Service) pendingLine(ctx context.Context, lineID string) (LineItem, Refund, error) {
	l, err := s.repo.GetLine(ctx, lineID)
	if errors.Is(err, ErrLineNotFound) {
		return LineItem{}, Refund{}, apperror.NotFound("refund line item %s not found", lineID)
	}
	if err != nil {
		return LineItem{}, Refund{}, database.MapError(err)
	}
	r, err := s.pending(ctx, l.RefundID)
	if err != nil {
		return LineItem{}, Refund{}, err
	}
	return l, r, nil
}

// checkLines enforces the refund ceilings. ledger holds what every existing
// refund of the order already claims; lines earlier in the same request
// count too.
func checkLines(o order.Order, ledger map[string]order.ItemRefund, in []LineInput) error {
	claimed := map[string]order.ItemRefund{}
	for id, agg := range ledger {
		claimed[id] = agg
	}
	refunded := decimal.Zero
	for _, agg := range ledger {
		refunded = refunded.Add(agg.Amount)
	}

	requested := decimal.Zero
	for _, l := range in {
		it, ok := o.Item(l.OrderItemID)
		if !ok {
			return apperror.NotFound("order item %s not found in order %s", l.OrderItemID, o.ID)
		}
		if l.Quantity <= 0 {
			return apperror.BadRequest("refund quantity must be positive")
		}
		if l.Quantity > it.Quantity {
			return apperror.BadRequest("refund quantity %d exceeds ordered quantity %d for item %s", l.Quantity, it.Quantity, it.ID)
		}
		if !l.Amount.IsPositive() {
			return apperror.BadRequest("refund amount must be positive")
		}
		if ceiling := it.Price.Mul(decimal.NewFromInt(int64(l.Quantity))); l.Amount.GreaterThan(ceiling) {
			return apperror.BadRequest("refund amount %s exceeds %s for %d units of item %s", l.Amount, ceiling, l.Quantity, it.ID)
		}

		prior := claimed[it.ID]
		if prior.Quantity+l.Quantity > it.Quantity {
			return apperror.BadRequest("cannot refund %d more units of item %s: %d of %d already refunded",
				l.Quantity, it.ID, prior.Quantity, it.Quantity)
		}
		if prior.Amount.Add(l.Amount).GreaterThan(it.LineTotal()) {
			return apperror.BadRequest("refund amount for item %s exceeds its refundable remainder %s",
				it.ID, it.LineTotal().Sub(prior.Amount))
		}
		prior.Quantity += l.Quantity
		prior.Amount = prior.Amount.Add(l.Amount)
		claimed[it.ID] = prior
		requested = requested.Add(l.Amount)
	}

	if refunded.Add(requested).GreaterThan(o.TotalPrice) {
		return apperror.BadRequest("refund total %s exceeds the refundable remainder %s of order %s",
			requested, o.TotalPrice.Sub(refunded), o.ID)
	}
	return nil
}
