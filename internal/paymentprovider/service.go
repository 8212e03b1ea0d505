package paymentprovider

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
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
	stores     StoreFinder
	currencies CurrencyFinder
	now        func() time.Time
}

func NewService(r Repository, stores StoreFinder, currencies CurrencyFinder) *Service {
	return &Service{repo: r, stores: stores, currencies: currencies, now: time.Now}
}

func (s *Service) ListByStore(ctx context.Context, storeID string) ([]Provider, error) {
	out, err := s.repo.ListByStore(ctx, storeID)
	return out, database.MapError(err)
}

func (s *Service) Get(ctx context.Context, id string) (Provider, error) {
	p, err := s.repo.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Provider{}, apperror.NotFound("payment provider %s not found", id)
	}
	return p, database.MapError(err)
}

func (s *Service) Create(ctx context.Context, in Provider) (Provider, error) {
	if in.Name = strings.TrimSpace(in.Name); in.Name == "" {
		return Provider{}, apperror.BadRequest("payment provider name is required")
	}
	if _, err := s.stores.Get(ctx, in.StoreID); err != nil {
		return Provider{}, err
	}
	if in.CurrencyID != nil {
		if _, err := s.currencies.Get(ctx, *in.CurrencyID); err != nil {
			return Provider{}, err
		}
	}
	now := s.now().UTC()
	in.ID = uuid.NewString()
	in.CreatedAt, in.UpdatedAt = now, now
	out, err := s.repo.Create(ctx, in)
	return out, database.MapError(err)
}

type Patch struct {
	Name       *string `json:"name"`
	Type       *string `json:"type"`
	CurrencyID *string `json:"currencyId"`
	IsActive   *bool   `json:"isActive"`
}

func (s *Service) Update(ctx context.Context, id string, p Patch) (Provider, error) {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return Provider{}, err
	}
	if p.Name != nil {
		if cur.Name = strings.TrimSpace(*p.Name); cur.Name == "" {
			return Provider{}, apperror.BadRequest("payment provider name is required")
		}
	}
	if p.Type != nil {
		cur.Type = *p.Type
	}
	if p.CurrencyID != nil {
		if _, err := s.currencies.Get(ctx, *p.CurrencyID); err != nil {
			return Provider{}, err
		}
		cur.CurrencyID = p.CurrencyID
	}
	if p.IsActive != nil {
		cur.IsActive = *p.IsActive
	}
	cur.UpdatedAt = s.now().UTC()
	out, err := s.repo.Update(ctx, cur)
	return out, database.MapError(err)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.repo.Delete(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return apperror.NotFound("payment provider %s not found", id)
	}
	return database.MapError(err)
}
