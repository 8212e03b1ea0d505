package shipping

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wichananm65/shop-admin-backend/internal/apperror"
	"github.com/wichananm65/shop-admin-backend/internal/currency"
	"github.com/wichananm65/shop-admin-backend/internal/database"
	"github.com/wichananm65/shop-admin-backend/internal/store"
)

type StoreFinder interface {
	Get(ctx context.Context, id string) (store.Store, error)
}

type CurrencyFinder interface {
	Get(ctx context.Context, id string) (currency.Currency, error)
}

type Service struct {
	repo       Repository
	tx         database.Transactor
	stores     StoreFinder
	currencies CurrencyFinder
	now        func() time.Time
}

func NewService(r Repository, tx database.Transactor, stores StoreFinder, currencies CurrencyFinder) *Service {
	return &Service{repo: r, tx: tx, stores: stores, currencies: currencies, now: time.Now}
}

func (s *Service) ListByStore(ctx context.Context, storeID string) ([]Method, error) {
	out, err := s.repo.ListByStore(ctx, storeID)
	return out, database.MapError(err)
}

func (s *Service) Get(ctx context.Context, id string) (Method, error) {
	m, err := s.repo.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Method{}, apperror.NotFound("shipping method %s not found", id)
	}
	return m, database.MapError(err)
}

func (s *Service) Create(ctx context.Context, in Method) (Method, error) {
	if in.Name = strings.TrimSpace(in.Name); in.Name == "" {
		return Method{}, apperror.BadRequest("shipping method name is required")
	}
	var out Method
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.stores.Get(ctx, in.StoreID); err != nil {
			return err
		}
		if err := s.checkPrices(ctx, in.Prices); err != nil {
			return err
		}
		now := s.now().UTC()
		in.ID = uuid.NewString()
		in.CreatedAt, in.UpdatedAt = now, now
		var err error
		out, err = s.repo.Create(ctx, in)
		return database.MapError(err)
	})
	return out, err
}

type Patch struct {
	Name     *string `json:"name"`
	IsActive *bool   `json:"isActive"`
	// Prices are upserted by currency; currencies not listed keep their price.
	Prices []Price `json:"prices"`
}

func (s *Service) Update(ctx context.Context, id string, p Patch) (Method, error) {
	var out Method
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		cur, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		if p.Name != nil {
			if cur.Name = strings.TrimSpace(*p.Name); cur.Name == "" {
				return apperror.BadRequest("shipping method name is required")
			}
		}
		if p.IsActive != nil {
			cur.IsActive = *p.IsActive
		}
		if err := s.checkPrices(ctx, p.Prices); err != nil {
			return err
		}
		cur.Prices = mergePrices(cur.Prices, p.Prices)
		cur.UpdatedAt = s.now().UTC()
		out, err = s.repo.Update(ctx, cur)
		return database.MapError(err)
	})
	return out, err
}

func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.repo.Delete(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return apperror.NotFound("shipping method %s not found", id)
	}
	return database.MapError(err)
}

func (s *Service) checkPrices(ctx context.Context, prices []Price) error {
	seen := map[string]bool{}
	for _, p := range prices {
		if p.Price.LessThan(decimal.Zero) {
			return apperror.BadRequest("shipping price must not be negative")
		}
		if seen[p.CurrencyID] {
			return apperror.BadRequest("currency %s listed twice", p.CurrencyID)
		}
		seen[p.CurrencyID] = true
		if _, err := s.currencies.Get(ctx, p.CurrencyID); err != nil {
			return err
		}
	}
	return nil
}

func mergePrices(cur, upserts []Price) []Price {
	out := append([]Price(nil), cur...)
	for _, u := range upserts {
		replaced := false
		for i := range out {
			if out[i].CurrencyID == u.CurrencyID {
				out[i] = u
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, u)
		}
	}
	return out
}
