package product

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

// TaxonomyChecker is satisfied by *category.Service.
type TaxonomyChecker interface {
	CheckCategories(ctx context.Context, ids []string) error
	CheckCollections(ctx context.Context, ids []string) error
}

// VariantReferences counts order items pointing at a variant.
type VariantReferences interface {
	CountByVariant(ctx context.Context, variantID string) (int, error)
}

type Service struct {
	repo       Repository
	stores     StoreFinder
	currencies CurrencyFinder
	taxonomy   TaxonomyChecker
	refs       VariantReferences
	now        func() time.Time
}

func NewService(repo Repository, stores StoreFinder, currencies CurrencyFinder, taxonomy TaxonomyChecker) *Service {
	return &Service{repo: repo, stores: stores, currencies: currencies, taxonomy: taxonomy, now: time.Now}
}

// GuardVariantDelete makes variant and product deletion fail while order
// items still reference a variant.
func (s *Service) GuardVariantDelete(refs VariantReferences) {
	s.refs = refs
}

func (s *Service) ListProducts(ctx context.Context, storeID string) ([]Product, error) {
	out, err := s.repo.ListProducts(ctx, storeID)
	return out, database.MapError(err)
}

func (s *Service) GetProduct(ctx context.Context, id string) (Product, error) {
	p, err := s.repo.GetProduct(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Product{}, apperror.NotFound("product %s not found", id)
	}
	return p, database.MapError(err)
}

func (s *Service) CreateProduct(ctx context.Context, in Product) (Product, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return Product{}, apperror.BadRequest("product title is required")
	}
	if _, err := s.stores.Get(ctx, in.StoreID); err != nil {
		return Product{}, err
	}
	if err := s.checkTaxonomy(ctx, in); err != nil {
		return Product{}, err
	}
	now := s.now().UTC()
	in.ID = uuid.NewString()
	in.CreatedAt, in.UpdatedAt = now, now
	in.CategoryIDs = nonNil(in.CategoryIDs)
	in.CollectionIDs = nonNil(in.CollectionIDs)

	out, err := s.repo.CreateProduct(ctx, in)
	return out, database.MapError(err)
}

type ProductPatch struct {
	Title          *string   `json:"title"`
	AllowBackorder *bool     `json:"allowBackorder"`
	CategoryIDs    *[]string `json:"categoryIds"`
	CollectionIDs  *[]string `json:"collectionIds"`
}

func (s *Service) UpdateProduct(ctx context.Context, id string, p ProductPatch) (Product, error) {
	cur, err := s.GetProduct(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if p.Title != nil {
		if cur.Title = strings.TrimSpace(*p.Title); cur.Title == "" {
			return Product{}, apperror.BadRequest("product title is required")
		}
	}
	if p.AllowBackorder != nil {
		cur.AllowBackorder = *p.AllowBackorder
	}
	if p.CategoryIDs != nil {
		cur.CategoryIDs = nonNil(*p.CategoryIDs)
	}
	if p.CollectionIDs != nil {
		cur.CollectionIDs = nonNil(*p.CollectionIDs)
	}
	if err := s.checkTaxonomy(ctx, cur); err != nil {
		return Product{}, err
	}
	cur.UpdatedAt = s.now().UTC()

	out, err := s.repo.UpdateProduct(ctx, cur)
	return out, database.MapError(err)
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	for _, v := range p.Variants {
		if err := s.ensureUnreferenced(ctx, v.ID); err != nil {
			return err
		}
	}
	return database.MapError(s.repo.DeleteProduct(ctx, id))
}

// CheckProducts returns NotFound for the first id that does not exist.
func (s *Service) CheckProducts(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if _, err := s.GetProduct(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) ListVariants(ctx context.Context, productID string) ([]Variant, error) {
	if _, err := s.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	out, err := s.repo.ListVariants(ctx, productID)
	return out, database.MapError(err)
}

func (s *Service) GetVariant(ctx context.Context, id string) (Variant, error) {
	v, err := s.repo.GetVariant(ctx, id)
	if errors.Is(err, ErrVariantNotFound) {
		return Variant{}, apperror.NotFound("variant %s not found", id)
	}
	return v, database.MapError(err)
}

func (s *Service) CreateVariant(ctx context.Context, in Variant) (Variant, error) {
	in.SKU = strings.TrimSpace(in.SKU)
	if in.SKU == "" {
		return Variant{}, apperror.BadRequest("sku is required")
	}
	if _, err := s.GetProduct(ctx, in.ProductID); err != nil {
		return Variant{}, err
	}
	for _, p := range in.Prices {
		if err := s.checkPrice(ctx, p); err != nil {
			return Variant{}, err
		}
	}
	now := s.now().UTC()
	in.ID = uuid.NewString()
	in.CreatedAt, in.UpdatedAt = now, now

	out, err := s.repo.CreateVariant(ctx, in)
	if errors.Is(err, ErrDuplicateSKU) {
		return Variant{}, apperror.Conflict("a variant with sku %s already exists", in.SKU)
	}
	return out, database.MapError(err)
}

type VariantPatch struct {
	SKU               *string `json:"sku"`
	Title             *string `json:"title"`
	InventoryQuantity *int    `json:"inventoryQuantity"`
}

func (s *Service) UpdateVariant(ctx context.Context, id string, p VariantPatch) (Variant, error) {
	cur, err := s.GetVariant(ctx, id)
	if err != nil {
		return Variant{}, err
	}
	if p.SKU != nil {
		if cur.SKU = strings.TrimSpace(*p.SKU); cur.SKU == "" {
			return Variant{}, apperror.BadRequest("sku is required")
		}
	}
	if p.Title != nil {
		cur.Title = *p.Title
	}
	if p.InventoryQuantity != nil {
		cur.InventoryQuantity = *p.InventoryQuantity
	}
	cur.UpdatedAt = s.now().UTC()

	out, err := s.repo.UpdateVariant(ctx, cur)
	if errors.Is(err, ErrDuplicateSKU) {
		return Variant{}, apperror.Conflict("a variant with sku %s already exists", cur.SKU)
	}
	return out, database.MapError(err)
}

func (s *Service) DeleteVariant(ctx context.Context, id string) error {
	if _, err := s.GetVariant(ctx, id); err != nil {
		return err
	}
	if err := s.ensureUnreferenced(ctx, id); err != nil {
		return err
	}
	return database.MapError(s.repo.DeleteVariant(ctx, id))
}

// SetPrice upserts the variant's price in one currency.
func (s *Service) SetPrice(ctx context.Context, variantID string, p Price) (Variant, error) {
	if _, err := s.GetVariant(ctx, variantID); err != nil {
		return Variant{}, err
	}
	if err := s.checkPrice(ctx, p); err != nil {
		return Variant{}, err
	}
	if err := s.repo.SetPrice(ctx, variantID, p); err != nil {
		return Variant{}, database.MapError(err)
	}
	return s.GetVariant(ctx, variantID)
}

func (s *Service) checkPrice(ctx context.Context, p Price) error {
	if p.Price.LessThan(decimal.Zero) {
		return apperror.BadRequest("price must not be negative")
	}
	_, err := s.currencies.Get(ctx, p.CurrencyID)
	return err
}

func (s *Service) checkTaxonomy(ctx context.Context, p Product) error {
	if s.taxonomy == nil {
		return nil
	}
	if err := s.taxonomy.CheckCategories(ctx, p.CategoryIDs); err != nil {
		return err
	}
	return s.taxonomy.CheckCollections(ctx, p.CollectionIDs)
}

func (s *Service) ensureUnreferenced(ctx context.Context, variantID string) error {
	if s.refs == nil {
		return nil
	}
	n, err := s.refs.CountByVariant(ctx, variantID)
	if err != nil {
		return database.MapError(err)
	}
	if n > 0 {
		return apperror.BadRequest("cannot delete variant %s: it is referenced by %d order items", variantID, n)
	}
	return nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
