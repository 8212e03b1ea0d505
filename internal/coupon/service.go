package coupon

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wichananm65/shop-admin-backend/internal/apperror"
	"github.com/wichananm65/shop-admin-backend/internal/database"
	"github.com/wichananm65/shop-admin-backend/internal/store"
	"github.com/wichananm65/shop-admin-backend/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

type StoreFinder interface {
	Get(ctx context.Context, id string) (store.Store, error)
}

// Catalog validates applicability ids. *product.Service covers products and
// *category.Service the rest; main wires them through CatalogFuncs.
type Catalog interface {
	CheckProducts(ctx context.Context, ids []string) error
	CheckCategories(ctx context.Context, ids []string) error
	CheckCollections(ctx context.Context, ids []string) error
}

// CatalogFuncs adapts three check functions to Catalog.
type CatalogFuncs struct {
	Products    func(ctx context.Context, ids []string) error
	Categories  func(ctx context.Context, ids []string) error
	Collections func(ctx context.Context, ids []string) error
}

func (f CatalogFuncs) CheckProducts(ctx context.Context, ids []string) error {
	return callCheck(ctx, f.Products, ids)
}

func (f CatalogFuncs) CheckCategories(ctx context.Context, ids []string) error {
	return callCheck(ctx, f.Categories, ids)
}

func (f CatalogFuncs) CheckCollections(ctx context.Context, ids []string) error {
	return callCheck(ctx, f.Collections, ids)
}

func callCheck(ctx context.Context, fn func(context.Context, []string) error, ids []string) error {
	if fn == nil || len(ids) == 0 {
		return nil
	}
	return fn(ctx, ids)
}

// OrderCounter counts orders that used a coupon.
type OrderCounter interface {
	CountByCoupon(ctx context.Context, couponID string) (int, error)
}

type Service struct {
	repo    Repository
	stores  StoreFinder
	catalog Catalog
	orders  OrderCounter
	now     func() time.Time
}

func NewService(repo Repository, stores StoreFinder, catalog Catalog) *Service {
	return &Service{repo: repo, stores: stores, catalog: catalog, now: time.Now}
}

// TrackOrders makes Remove deactivate, instead of delete, coupons that
// orders reference.
func (s *Service) TrackOrders(orders OrderCounter) {
	s.orders = orders
}

func (s *Service) ListByStore(ctx context.Context, storeID string, includeInactive bool) ([]Coupon, error) {
	out, err := s.repo.ListByStore(ctx, storeID, includeInactive)
	return out, database.MapError(err)
}

func (s *Service) Get(ctx context.Context, id string) (Coupon, error) {
	c, err := s.repo.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Coupon{}, apperror.NotFound("coupon %s not found", id)
	}
	return c, database.MapError(err)
}

func (s *Service) GetByCode(ctx context.Context, storeID, code string) (Coupon, error) {
	c, err := s.repo.GetByCode(ctx, storeID, code)
	if errors.Is(err, ErrNotFound) {
		return Coupon{}, apperror.NotFound("coupon with code '%s' not found in this store", code)
	}
	return c, database.MapError(err)
}

func (s *Service) Create(ctx context.Context, in Coupon) (out Coupon, err error) {
	ctx, span := telemetry.StartSpan(ctx, "coupon.Create", attribute.String("store_id", in.StoreID))
	defer func() { telemetry.EndSpan(span, err) }()

	in.Code = strings.TrimSpace(in.Code)
	if _, err := s.stores.Get(ctx, in.StoreID); err != nil {
		return Coupon{}, err
	}
	if err := s.check(ctx, in); err != nil {
		return Coupon{}, err
	}
	now := s.now().UTC()
	in.ID = uuid.NewString()
	in.UsedCount = 0
	in.CreatedAt, in.UpdatedAt = now, now
	in.ApplicableProductIDs = nonNil(in.ApplicableProductIDs)
	in.ApplicableCategoryIDs = nonNil(in.ApplicableCategoryIDs)
	in.ApplicableCollectionIDs = nonNil(in.ApplicableCollectionIDs)

	out, err = s.repo.Create(ctx, in)
	if errors.Is(err, ErrDuplicateCode) {
		return Coupon{}, apperror.Conflict("a coupon with code '%s' already exists in this store", in.Code)
	}
	return out, database.MapError(err)
}

type Patch struct {
	Code                    *string          `json:"code"`
	Description             *string          `json:"description"`
	Type                    *Type            `json:"type"`
	Value                   *decimal.Decimal `json:"value"`
	MinPurchase             *decimal.Decimal `json:"minPurchase"`
	MaxUses                 *int             `json:"maxUses"`
	StartsAt                *time.Time       `json:"startDate"`
	EndsAt                  *time.Time       `json:"endDate"`
	IsActive                *bool            `json:"isActive"`
	ApplicableProductIDs    *[]string        `json:"applicableProductIds"`
	ApplicableCategoryIDs   *[]string        `json:"applicableCategoryIds"`
	ApplicableCollectionIDs *[]string        `json:"applicableCollectionIds"`
}

func (s *Service) Update(ctx context.Context, id string, p Patch) (out Coupon, err error) {
	ctx, span := telemetry.StartSpan(ctx, "coupon.Update", attribute.String("coupon_id", id))
	defer func() { telemetry.EndSpan(span, err) }()

	cur, err := s.Get(ctx, id)
	if err != nil {
		return Coupon{}, err
	}
	if p.Code != nil {
		cur.Code = strings.TrimSpace(*p.Code)
	}
	if p.Description != nil {
		cur.Description = *p.Description
	}
	if p.Type != nil {
		cur.Type = *p.Type
	}
	if p.Value != nil {
		cur.Value = *p.Value
	}
	if p.MinPurchase != nil {
		cur.MinPurchase = p.MinPurchase
	}
	if p.MaxUses != nil {
		cur.MaxUses = p.MaxUses
	}
	if p.StartsAt != nil {
		cur.StartsAt = *p.StartsAt
	}
	if p.EndsAt != nil {
		cur.EndsAt = *p.EndsAt
	}
	if p.IsActive != nil {
		cur.IsActive = *p.IsActive
	}
	if p.ApplicableProductIDs != nil {
		cur.ApplicableProductIDs = nonNil(*p.ApplicableProductIDs)
	}
	if p.ApplicableCategoryIDs != nil {
		cur.ApplicableCategoryIDs = nonNil(*p.ApplicableCategoryIDs)
	}
	if p.ApplicableCollectionIDs != nil {
		cur.ApplicableCollectionIDs = nonNil(*p.ApplicableCollectionIDs)
	}
	if err := s.check(ctx, cur); err != nil {
		return Coupon{}, err
	}
	cur.UpdatedAt = s.now().UTC()

	out, err = s.repo.Update(ctx, cur)
	if errors.Is(err, ErrDuplicateCode) {
		return Coupon{}, apperror.Conflict("a coupon with code '%s' already exists in this store", cur.Code)
	}
	return out, database.MapError(err)
}

// Remove deletes the coupon, or only deactivates it when orders used it.
// The returned bool is true when the coupon was deleted.
func (s *Service) Remove(ctx context.Context, id string) (deleted bool, err error) {
	ctx, span := telemetry.StartSpan(ctx, "coupon.Remove", attribute.String("coupon_id", id))
	defer func() { telemetry.EndSpan(span, err) }()

	cur, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if s.orders != nil {
		n, err := s.orders.CountByCoupon(ctx, id)
		if err != nil {
			return false, database.MapError(err)
		}
		if n > 0 {
			cur.IsActive = false
			cur.UpdatedAt = s.now().UTC()
			_, err := s.repo.Update(ctx, cur)
			return false, database.MapError(err)
		}
	}
	return true, database.MapError(s.repo.Delete(ctx, id))
}

// Apply records one use of the coupon. A coupon whose maxUses is reached
// is a Conflict.
func (s *Service) Apply(ctx context.Context, id string) (out Coupon, err error) {
	ctx, span := telemetry.StartSpan(ctx, "coupon.Apply", attribute.String("coupon_id", id))
	defer func() { telemetry.EndSpan(span, err) }()

	out, err = s.repo.IncrementUsage(ctx, id)
	switch {
	case errors.Is(err, ErrNotFound):
		return Coupon{}, apperror.NotFound("coupon %s not found", id)
	case errors.Is(err, ErrUsageExhausted):
		return Coupon{}, apperror.Conflict("coupon %s has reached its maximum number of uses", id)
	}
	return out, database.MapError(err)
}

// Redeem applies the coupon to an order of storeID placed at the given
// time. The coupon must belong to that store, be active and be inside its
// validity window; the usage cap is enforced by Apply.
func (s *Service) Redeem(ctx context.Context, id, storeID string, at time.Time) (Coupon, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return Coupon{}, err
	}
	switch {
	case c.StoreID != storeID:
		return Coupon{}, apperror.BadRequest("coupon %s does not belong to store %s", id, storeID)
	case !c.IsActive:
		return Coupon{}, apperror.BadRequest("coupon %s is not active", id)
	case at.Before(c.StartsAt) || at.After(c.EndsAt):
		return Coupon{}, apperror.BadRequest("coupon %s has expired or is not yet valid", id)
	}
	return s.Apply(ctx, id)
}

// Validate checks a coupon against a cart. Only storage failures are
// returned as errors.
func (s *Service) Validate(ctx context.Context, cart Cart) (ValidationResult, error) {
	c, err := s.repo.GetByCode(ctx, cart.StoreID, strings.TrimSpace(cart.Code))
	if errors.Is(err, ErrNotFound) {
		return ValidationResult{Message: MsgInvalidCode}, nil
	}
	if err != nil {
		return ValidationResult{}, database.MapError(err)
	}
	return Evaluate(c, cart, s.now()), nil
}

// Evaluate is the pure part of Validate.
func Evaluate(c Coupon, cart Cart, now time.Time) ValidationResult {
	if !c.IsActive {
		return ValidationResult{Message: MsgInactive}
	}
	if now.Before(c.StartsAt) || now.After(c.EndsAt) {
		return ValidationResult{Message: MsgOutsideWindow}
	}
	if c.MaxUses != nil && *c.MaxUses > 0 && c.UsedCount >= *c.MaxUses {
		return ValidationResult{Message: MsgMaxUses}
	}
	if c.MinPurchase != nil && cart.Total.LessThan(*c.MinPurchase) {
		return ValidationResult{
			Message:     "This coupon requires a minimum purchase of " + c.MinPurchase.String(),
			MinPurchase: c.MinPurchase,
		}
	}
	if c.Restricted() &&
		!intersects(c.ApplicableProductIDs, cart.ProductIDs) &&
		!intersects(c.ApplicableCategoryIDs, cart.CategoryIDs) &&
		!intersects(c.ApplicableCollectionIDs, cart.CollectionIDs) {
		return ValidationResult{Message: MsgNotApplicable}
	}

	discount := Discount(c, cart.Total)
	res := ValidationResult{
		Valid:           true,
		Coupon:          &c,
		DiscountAmount:  discount,
		DiscountedTotal: cart.Total.Sub(discount),
	}
	if c.Type == BuyXGetY {
		res.Message = MsgNoBundleRule
	}
	return res
}

func (s *Service) check(ctx context.Context, c Coupon) error {
	if c.Code == "" {
		return apperror.BadRequest("coupon code is required")
	}
	if !c.Type.Valid() {
		return apperror.BadRequest("unknown discount type %q", c.Type)
	}
	if c.Type != FreeShipping && !c.Value.IsPositive() {
		return apperror.BadRequest("discount value must be positive")
	}
	if c.Type == Percentage && c.Value.GreaterThan(decimal.NewFromInt(100)) {
		return apperror.BadRequest("Percentage discount cannot exceed 100%%")
	}
	if c.StartsAt.After(c.EndsAt) {
		return apperror.BadRequest("Start date must be before end date")
	}
	if c.MinPurchase != nil && c.MinPurchase.IsNegative() {
		return apperror.BadRequest("minimum purchase must not be negative")
	}
	if c.MaxUses != nil && *c.MaxUses < 1 {
		return apperror.BadRequest("maxUses must be at least 1")
	}
	if s.catalog == nil {
		return nil
	}
	if err := s.catalog.CheckProducts(ctx, c.ApplicableProductIDs); err != nil {
		return err
	}
	if err := s.catalog.CheckCategories(ctx, c.ApplicableCategoryIDs); err != nil {
		return err
	}
	return s.catalog.CheckCollections(ctx, c.ApplicableCollectionIDs)
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
