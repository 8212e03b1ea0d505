package payment

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wichananm65/shop-admin-backend/internal/apperror"
	"github.com/wichananm65/shop-admin-backend/internal/auth"
	"github.com/wichananm65/shop-admin-backend/internal/currency"
	"github.com/wichananm65/shop-admin-backend/internal/database"
	"github.com/wichananm65/shop-admin-backend/internal/idempotency"
	"github.com/wichananm65/shop-admin-backend/internal/order"
	"github.com/wichananm65/shop-admin-backend/internal/paymentprovider"
	"github.com/wichananm65/shop-admin-backend/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// Orders is the part of *order.Service the tracker drives.
type Orders interface {
	Get(ctx context.Context, id string) (order.Order, error)
	UpdateStatus(ctx context.Context, id string, p order.StatusPatch) (order.Order, error)
}

type ProviderFinder interface {
	Get(ctx context.Context, id string) (paymentprovider.Provider, error)
}

type CurrencyFinder interface {
	Get(ctx context.Context, id string) (currency.Currency, error)
}

type Service struct {
	repo       Repository
	tx         database.Transactor
	orders     Orders
	providers  ProviderFinder
	currencies CurrencyFinder
	keys       idempotency.Store
	logger     *slog.Logger
	metrics    *telemetry.Metrics
	now        func() time.Time
}

type Option func(*Service)

// WithIdempotency makes Create honour request keys.
func WithIdempotency(store idempotency.Store) Option {
	return func(s *Service) { s.keys = store }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(repo Repository, tx database.Transactor, orders Orders, providers ProviderFinder, currencies CurrencyFinder, opts ...Option) *Service {
	s := &Service{
		repo:       repo,
		tx:         tx,
		orders:     orders,
		providers:  providers,
		currencies: currencies,
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) ListByOrder(ctx context.Context, orderID string) ([]Transaction, error) {
	if _, err := s.orders.Get(ctx, orderID); err != nil {
		return nil, err
	}
	out, err := s.repo.ListByOrder(ctx, orderID)
	return out, database.MapError(err)
}

func (s *Service) Get(ctx context.Context, id string) (Transaction, error) {
	t, err := s.repo.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Transaction{}, apperror.NotFound("payment transaction %s not found", id)
	}
	return t, database.MapError(err)
}

// Create records a transaction and projects its status onto the order. With
// a non-empty key, a repeated call returns the first transaction and
// replayed=true without writing anything.
func (s *Service) Create(ctx context.Context, in Transaction, key string) (out Transaction, replayed bool, err error) {
	ctx, span := telemetry.StartSpan(ctx, "payment.Create", attribute.String("order_id", in.OrderID))
	defer func() { telemetry.EndSpan(span, err) }()

	if in.Status == "" {
		in.Status = order.PaymentPending
	}
	if err := validate(in); err != nil {
		return Transaction{}, false, err
	}
	in.ID = uuid.NewString()

	if key != "" && s.keys != nil {
		held, reserved, kerr := s.keys.Reserve(ctx, key, in.ID)
		if kerr != nil {
			return Transaction{}, false, apperror.Internal(kerr, "idempotency store unavailable")
		}
		if !reserved {
			prev, gerr := s.Get(ctx, held)
			if apperror.Is(gerr, apperror.KindNotFound) {
				return Transaction{}, false, apperror.Conflict("a request with idempotency key %s is still in progress", key)
			}
			return prev, gerr == nil, gerr
		}
		defer func() {
			if err != nil {
				if rerr := s.keys.Release(ctx, key); rerr != nil {
					s.logger.WarnContext(ctx, "release idempotency key", "key", key, "error", rerr)
				}
			}
		}()
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.orders.Get(ctx, in.OrderID); err != nil {
			return err
		}
		if err := s.checkReferences(ctx, in.PaymentProviderID, in.CurrencyID); err != nil {
			return err
		}
		now := s.now().UTC()
		in.CreatedAt, in.UpdatedAt = now, now
		if in.Metadata == nil {
			in.Metadata = map[string]any{}
		}
		created, err := s.repo.Create(ctx, in)
		if err != nil {
			return database.MapError(err)
		}
		if err := s.project(ctx, created); err != nil {
			return err
		}
		out = created
		return nil
	})
	if err != nil {
		return Transaction{}, false, err
	}

	s.metrics.PaymentRecorded(ctx, string(out.Status))
	s.logger.InfoContext(ctx, "payment transaction recorded",
		"transaction_id", out.ID, "order_id", out.OrderID, "status", out.Status,
		"amount", out.Amount.String(), "actor", auth.ActorFrom(ctx))
	return out, false, nil
}

type Patch struct {
	PaymentProviderID *string              `json:"paymentProviderId"`
	CurrencyID        *string              `json:"currencyId"`
	Amount            *decimal.Decimal     `json:"amount"`
	Status            *order.PaymentStatus `json:"status"`
	ExternalID        *string              `json:"externalId"`
	PaymentMethod     *string              `json:"paymentMethod"`
	ErrorMessage      *string              `json:"errorMessage"`
	Metadata          map[string]any       `json:"metadata"`
}

// Update re-validates changed references; a status change re-applies the
// order projection.
func (s *Service) Update(ctx context.Context, id string, p Patch) (out Transaction, err error) {
	ctx, span := telemetry.StartSpan(ctx, "payment.Update", attribute.String("transaction_id", id))
	defer func() { telemetry.EndSpan(span, err) }()

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		cur, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		prevStatus := cur.Status

		var provider, curr string
		if p.PaymentProviderID != nil {
			provider, cur.PaymentProviderID = *p.PaymentProviderID, *p.PaymentProviderID
		}
		if p.CurrencyID != nil {
			curr, cur.CurrencyID = *p.CurrencyID, *p.CurrencyID
		}
		if err := s.checkReferences(ctx, provider, curr); err != nil {
			return err
		}
		if p.Amount != nil {
			cur.Amount = *p.Amount
		}
		if p.Status != nil {
			cur.Status = *p.Status
		}
		if p.ExternalID != nil {
			cur.ExternalID = *p.ExternalID
		}
		if p.PaymentMethod != nil {
			cur.PaymentMethod = *p.PaymentMethod
		}
		if p.ErrorMessage != nil {
			cur.ErrorMessage = *p.ErrorMessage
		}
		if p.Metadata != nil {
			cur.Metadata = p.Metadata
		}
		if err := validate(cur); err != nil {
			return err
		}
		cur.UpdatedAt = s.now().UTC()

		if out, err = s.repo.Update(ctx, cur); err != nil {
			return database.MapError(err)
		}
		if out.Status != prevStatus {
			return s.project(ctx, out)
		}
		return nil
	})
	return out, err
}

// Remove deletes a transaction that never completed.
func (s *Service) Remove(ctx context.Context, id string) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		cur, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		if cur.Status == order.PaymentCompleted {
			return apperror.BadRequest("cannot delete completed payment transaction %s", id)
		}
		if err := s.repo.Delete(ctx, id); err != nil {
			return database.MapError(err)
		}
		s.logger.InfoContext(ctx, "payment transaction removed", "transaction_id", id, "actor", auth.ActorFrom(ctx))
		return nil
	})
}

func (s *Service) project(ctx context.Context, t Transaction) error {
	financial := FinancialStatus(t.Status)
	status := t.Status
	_, err := s.orders.UpdateStatus(ctx, t.OrderID, order.StatusPatch{
		FinancialStatus: &financial,
		PaymentStatus:   &status,
	})
	return err
}

func (s *Service) checkReferences(ctx context.Context, providerID, currencyID string) error {
	if providerID != "" {
		if _, err := s.providers.Get(ctx, providerID); err != nil {
			return err
		}
	}
	if currencyID != "" {
		if _, err := s.currencies.Get(ctx, currencyID); err != nil {
			return err
		}
	}
	return nil
}

func validate(t Transaction) error {
	if t.OrderID == "" {
		return apperror.BadRequest("orderId is required")
	}
	if t.PaymentProviderID == "" {
		return apperror.BadRequest("paymentProviderId is required")
	}
	if t.CurrencyID == "" {
		return apperror.BadRequest("currencyId is required")
	}
	if !t.Amount.IsPositive() {
		return apperror.BadRequest("amount must be positive")
	}
	if !t.Status.Valid() {
		return apperror.BadRequest("unknown payment status %q", t.Status)
	}
	return nil
}
