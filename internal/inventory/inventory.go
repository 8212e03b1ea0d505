// Package inventory applies order quantities to variant stock. Callers run
// it inside the order's transaction so a rejected commit rolls back every
// decrement already made.
package inventory

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/wichananm65/shop-admin-backend/internal/apperror"
	"github.com/wichananm65/shop-admin-backend/internal/database"
	"github.com/wichananm65/shop-admin-backend/internal/product"
	"github.com/wichananm65/shop-admin-backend/internal/telemetry"
)

// Line is one variant quantity. Lines without a variant are skipped.
type Line struct {
	VariantID string
	Quantity  int
}

// Store is the variant counter. *product.PostgresRepository and
// *product.InMemoryRepository both satisfy it.
type Store interface {
	AdjustInventory(ctx context.Context, variantID string, delta int) (qty int, allowBackorder bool, err error)
	Inventory(ctx context.Context, variantID string) (qty int, allowBackorder bool, err error)
}

type Service struct {
	store   Store
	logger  *slog.Logger
	metrics *telemetry.Metrics
}

func NewService(store Store, logger *slog.Logger, metrics *telemetry.Metrics) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger, metrics: metrics}
}

// Commit decrements every line. A variant that ends below zero without
// backorder fails the whole call with Conflict.
func (s *Service) Commit(ctx context.Context, lines []Line) error {
	for _, l := range merge(lines) {
		qty, backorder, err := s.store.AdjustInventory(ctx, l.VariantID, -l.Quantity)
		if err != nil {
			return s.mapErr(l.VariantID, err)
		}
		if qty < 0 && !backorder {
			s.metrics.InventoryConflict(ctx, l.VariantID)
			s.logger.WarnContext(ctx, "inventory commit rejected", "variant_id", l.VariantID, "requested", l.Quantity, "remaining", qty)
			return apperror.Conflict("insufficient inventory for variant %s", l.VariantID)
		}
	}
	return nil
}

// Release gives quantities back, e.g. when an order leaves a holding status.
func (s *Service) Release(ctx context.Context, lines []Line) error {
	for _, l := range merge(lines) {
		if _, _, err := s.store.AdjustInventory(ctx, l.VariantID, l.Quantity); err != nil {
			return s.mapErr(l.VariantID, err)
		}
	}
	return nil
}

// Restock adds a single refunded quantity back to a variant.
func (s *Service) Restock(ctx context.Context, variantID string, quantity int) error {
	return s.Release(ctx, []Line{{VariantID: variantID, Quantity: quantity}})
}

// CheckAvailability is the read-only counterpart of Commit.
func (s *Service) CheckAvailability(ctx context.Context, lines []Line) error {
	for _, l := range merge(lines) {
		qty, backorder, err := s.store.Inventory(ctx, l.VariantID)
		if err != nil {
			return s.mapErr(l.VariantID, err)
		}
		if !backorder && l.Quantity > qty {
			s.metrics.InventoryConflict(ctx, l.VariantID)
			return apperror.Conflict("insufficient inventory for variant %s", l.VariantID)
		}
	}
	return nil
}

func (s *Service) mapErr(variantID string, err error) error {
	if errors.Is(err, product.ErrVariantNotFound) {
		return apperror.NotFound("variant %s not found", variantID)
	}
	return database.MapError(err)
}

// merge sums quantities per variant and orders the result by variant id so
// concurrent commits touch rows in the same order.
func merge(lines []Line) []Line {
	sum := map[string]int{}
	for _, l := range lines {
		if l.VariantID == "" || l.Quantity == 0 {
			continue
		}
		sum[l.VariantID] += l.Quantity
	}
	out := make([]Line, 0, len(sum))
	for id, q := range sum {
		out = append(out, Line{VariantID: id, Quantity: q})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VariantID < out[j].VariantID })
	return out
}
