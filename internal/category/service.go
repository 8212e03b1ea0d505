package category

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wichananm65/shop-admin-backend/internal/apperror"
	"github.com/wichananm65/shop-admin-backend/internal/database"
	"github.com/wichananm65/shop-admin-backend/internal/store"
)

// StoreFinder is satisfied by *store.Service.
type StoreFinder interface {
	Get(ctx context.Context, id string) (store.Store, error)
}

// Service provides business logic for categories and collections.
type Service struct {
	repo   Repository
	stores StoreFinder
	now    func() time.Time
}

func NewService(r Repository, stores StoreFinder) *Service {
	return &Service{repo: r, stores: stores, now: time.Now}
}

func (s *Service) ListCategories(ctx context.Context, storeID string) ([]Category, error) {
	out, err := s.repo.ListCategories(ctx, storeID)
	return out, database.MapError(err)
}

func (s *Service) GetCategory(ctx context.Context, id string) (Category, error) {
	c, err := s.repo.GetCategory(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Category{}, apperror.NotFound("category %s not found", id)
	}
	return c, database.MapError(err)
}

func (s *Service) CreateCategory(ctx context.Context, storeID, name string) (Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Category{}, apperror.BadRequest("category name is required")
	}
	if _, err := s.stores.Get(ctx, storeID); err != nil {
		return Category{}, err
	}
	c := Category{ID: uuid.NewString(), StoreID: storeID, Name: name, CreatedAt: s.now().UTC()}
	out, err := s.repo.CreateCategory(ctx, c)
	return out, database.MapError(err)
}

func (s *Service) RenameCategory(ctx context.Context, id, name string) (Category, error) {
	c, err := s.GetCategory(ctx, id)
	if err != nil {
		return Category{}, err
	}
	if c.Name = strings.TrimSpace(name); c.Name == "" {
		return Category{}, apperror.BadRequest("category name is required")
	}
	out, err := s.repo.UpdateCategory(ctx, c)
	return out, database.MapError(err)
}

func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	err := s.repo.DeleteCategory(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return apperror.NotFound("category %s not found", id)
	}
	return database.MapError(err)
}

func (s *Service) ListCollections(ctx context.Context, storeID string) ([]Collection, error) {
	out, err := s.repo.ListCollections(ctx, storeID)
	return out, database.MapError(err)
}

func (s *Service) GetCollection(ctx context.Context, id string) (Collection, error) {
	c, err := s.repo.GetCollection(ctx, id)
	if errors.Is(err, ErrCollectionNotFound) {
		return Collection{}, apperror.NotFound("collection %s not found", id)
	}
	return c, database.MapError(err)
}

func (s *Service) CreateCollection(ctx context.Context, storeID, name string) (Collection, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Collection{}, apperror.BadRequest("collection name is required")
	}
	if _, err := s.stores.Get(ctx, storeID); err != nil {
		return Collection{}, err
	}
	c := Collection{ID: uuid.NewString(), StoreID: storeID, Name: name, CreatedAt: s.now().UTC()}
	out, err := s.repo.CreateCollection(ctx, c)
	return out, database.MapError(err)
}

func (s *Service) RenameCollection(ctx context.Context, id, name string) (Collection, error) {
	c, err := s.GetCollection(ctx, id)
	if err != nil {
		return Collection{}, err
	}
	if c.Name = strings.TrimSpace(name); c.Name == "" {
		return Collection{}, apperror.BadRequest("collection name is required")
	}
	out, err := s.repo.UpdateCollection(ctx, c)
	return out, database.MapError(err)
}

func (s *Service) DeleteCollection(ctx context.Context, id string) error {
	err := s.repo.DeleteCollection(ctx, id)
	if errors.Is(err, ErrCollectionNotFound) {
		return apperror.NotFound("collection %s not found", id)
	}
	return database.MapError(err)
}

// CheckCategories returns NotFound for the first id that does not exist.
func (s *Service) CheckCategories(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if _, err := s.GetCategory(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// CheckCollections returns NotFound for the first id that does not exist.
func (s *Service) CheckCollections(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if _, err := s.GetCollection(ctx, id); err != nil {
			return err
		}
	}
	return nil
}
