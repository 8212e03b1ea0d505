package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wichananm65/shop-admin-backend/internal/apperror"
	"github.com/wichananm65/shop-admin-backend/internal/database"
)

// Service provides business logic for stores.
type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(r Repository) *Service {
	return &Service{repo: r, now: time.Now}
}

func (s *Service) List(ctx context.Context) ([]Store, error) {
	out, err := s.repo.List(ctx)
	return out, database.MapError(err)
}

// Get returns the store or a NotFound error naming it.
func (s *Service) Get(ctx context.Context, id string) (Store, error) {
	st, err := s.repo.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Store{}, apperror.NotFound("store %s not found", id)
	}
	return st, database.MapError(err)
}

func (s *Service) Create(ctx context.Context, in Store) (Store, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Domain = strings.ToLower(strings.TrimSpace(in.Domain))
	if in.Name == "" || in.Domain == "" {
		return Store{}, apperror.BadRequest("name and domain are required")
	}
	now := s.now().UTC()
	in.ID = uuid.NewString()
	in.CreatedAt, in.UpdatedAt = now, now

	out, err := s.repo.Create(ctx, in)
	if errors.Is(err, ErrDuplicateDomain) {
		return Store{}, apperror.Conflict("store with domain %s already exists", in.Domain)
	}
	return out, database.MapError(err)
}

// Patch holds the optional fields of a store update.
type Patch struct {
	Name   *string `json:"name"`
	Domain *string `json:"domain"`
}

func (s *Service) Update(ctx context.Context, id string, p Patch) (Store, error) {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return Store{}, err
	}
	if p.Name != nil {
		cur.Name = strings.TrimSpace(*p.Name)
	}
	if p.Domain != nil {
		cur.Domain = strings.ToLower(strings.TrimSpace(*p.Domain))
	}
	if cur.Name == "" || cur.Domain == "" {
		return Store{}, apperror.BadRequest("name and domain are required")
	}
	cur.UpdatedAt = s.now().UTC()

	out, err := s.repo.Update(ctx, cur)
	switch {
	case errors.Is(err, ErrDuplicateDomain):
		return Store{}, apperror.Conflict("store with domain %s already exists", cur.Domain)
	case errors.Is(err, ErrNotFound):
		return Store{}, apperror.NotFound("store %s not found", id)
	}
	return out, database.MapError(err)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.repo.Delete(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return apperror.NotFound("store %s not found", id)
	}
	return database.MapError(err)
}
