package currency

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wichananm65/shop-admin-backend/internal/apperror"
	"github.com/wichananm65/shop-admin-backend/internal/database"
)

// UsageCounter reports how many rows of some other table reference a
// currency. Deletion is refused while any counter is non-zero.
type UsageCounter interface {
	CountByCurrency(ctx context.Context, currencyID string) (int, error)
}

type usage struct {
	what    string
	counter UsageCounter
}

type Service struct {
	repo   Repository
	usages []usage
	now    func() time.Time
}

func NewService(r Repository) *Service {
	return &Service{repo: r, now: time.Now}
}

// GuardDelete registers a table that blocks deletion while it references a
// currency. what names the rows in the error message, e.g. "orders".
func (s *Service) GuardDelete(what string, c UsageCounter) {
	s.usages = append(s.usages, usage{what: what, counter: c})
}

func (s *Service) List(ctx context.Context, includeInactive bool) ([]Currency, error) {
	out, err := s.repo.List(ctx, includeInactive)
	return out, database.MapError(err)
}

func (s *Service) Get(ctx context.Context, id string) (Currency, error) {
	c, err := s.repo.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Currency{}, apperror.NotFound("currency %s not found", id)
	}
	return c, database.MapError(err)
}

func (s *Service) GetByCode(ctx context.Context, code string) (Currency, error) {
	code = normalizeCode(code)
	c, err := s.repo.GetByCode(ctx, code)
	if errors.Is(err, ErrNotFound) {
		return Currency{}, apperror.NotFound("currency with code %s not found", code)
	}
	return c, database.MapError(err)
}

func (s *Service) Create(ctx context.Context, in Currency) (Currency, error) {
	in.Code = normalizeCode(in.Code)
	if err := validate(in); err != nil {
		return Currency{}, err
	}
	now := s.now().UTC()
	in.ID = uuid.NewString()
	in.CreatedAt, in.UpdatedAt = now, now

	out, err := s.repo.Create(ctx, in)
	if errors.Is(err, ErrDuplicateCode) {
		return Currency{}, apperror.Conflict("a currency with code %s already exists", in.Code)
	}
	return out, database.MapError(err)
}

type Patch struct {
	Code          *string `json:"code"`
	Name          *string `json:"name"`
	Symbol        *string `json:"symbol"`
	DecimalPlaces *int    `json:"decimalPlaces"`
	IsActive      *bool   `json:"isActive"`
}

func (s *Service) Update(ctx context.Context, id string, p Patch) (Currency, error) {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return Currency{}, err
	}
	if p.Code != nil {
		cur.Code = normalizeCode(*p.Code)
	}
	if p.Name != nil {
		cur.Name = *p.Name
	}
	if p.Symbol != nil {
		cur.Symbol = *p.Symbol
	}
	if p.DecimalPlaces != nil {
		cur.DecimalPlaces = *p.DecimalPlaces
	}
	if p.IsActive != nil {
		cur.IsActive = *p.IsActive
	}
	if err := validate(cur); err != nil {
		return Currency{}, err
	}
	cur.UpdatedAt = s.now().UTC()

	out, err := s.repo.Update(ctx, cur)
	if errors.Is(err, ErrDuplicateCode) {
		return Currency{}, apperror.Conflict("a currency with code %s already exists", cur.Code)
	}
	return out, database.MapError(err)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	for _, u := range s.usages {
		n, err := u.counter.CountByCurrency(ctx, id)
		if err != nil {
			return database.MapError(err)
		}
		if n > 0 {
			return apperror.BadRequest("cannot delete currency %s: it is used by %d %s, deactivate it instead", id, n, u.what)
		}
	}
	return database.MapError(s.repo.Delete(ctx, id))
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func validate(c Currency) error {
	if len(c.Code) != 3 {
		return apperror.BadRequest("currency code must be a 3 letter ISO code")
	}
	if c.Name == "" {
		return apperror.BadRequest("currency name is required")
	}
	if c.DecimalPlaces < 0 || c.DecimalPlaces > 4 {
		return apperror.BadRequest("decimal places must be between 0 and 4")
	}
	return nil
}
