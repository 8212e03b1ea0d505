package coupon

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/wichananm65/shop-admin-backend/internal/database"
)

const couponColumns = `id, store_id, code, description, type, value, min_purchase, max_uses, used_count,
        starts_at, ends_at, is_active, applicable_product_ids, applicable_category_ids,
        applicable_collection_ids, created_at, updated_at`

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCoupon(s scanner) (Coupon, error) {
	var c Coupon
	var minPurchase decimal.NullDecimal
	var maxUses sql.NullInt64
	err := s.Scan(&c.ID, &c.StoreID, &c.Code, &c.Description, &c.Type, &c.Value, &minPurchase, &maxUses,
		&c.UsedCount, &c.StartsAt, &c.EndsAt, &c.IsActive, pq.Array(&c.ApplicableProductIDs),
		pq.Array(&c.ApplicableCategoryIDs), pq.Array(&c.ApplicableCollectionIDs), &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Coupon{}, err
	}
	if minPurchase.Valid {
		c.MinPurchase = &minPurchase.Decimal
	}
	if maxUses.Valid {
		n := int(maxUses.Int64)
		c.MaxUses = &n
	}
	return c, nil
}

func (r *PostgresRepository) ListByStore(ctx context.Context, storeID string, includeInactive bool) ([]Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE store_id = $1`
	if !includeInactive {
		query += ` AND is_active`
	}
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx, query+` ORDER BY created_at DESC`, storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Coupon, 0)
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (Coupon, error) {
	c, err := scanCoupon(database.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+couponColumns+` FROM coupons WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Coupon{}, ErrNotFound
	}
	return c, err
}

func (r *PostgresRepository) GetByCode(ctx context.Context, storeID, code string) (Coupon, error) {
	c, err := scanCoupon(database.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+couponColumns+` FROM coupons WHERE store_id = $1 AND code = $2`, storeID, code))
	if errors.Is(err, sql.ErrNoRows) {
		return Coupon{}, ErrNotFound
	}
	return c, err
}

func (r *PostgresRepository) Create(ctx context.Context, c Coupon) (Coupon, error) {
	_, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO coupons (`+couponColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		c.ID, c.StoreID, c.Code, c.Description, c.Type, c.Value, nullDecimal(c.MinPurchase), c.MaxUses, c.UsedCount,
		c.StartsAt, c.EndsAt, c.IsActive, pq.Array(c.ApplicableProductIDs), pq.Array(c.ApplicableCategoryIDs),
		pq.Array(c.ApplicableCollectionIDs), c.CreatedAt, c.UpdatedAt)
	if database.IsUniqueViolation(err) {
		return Coupon{}, ErrDuplicateCode
	}
	return c, err
}

func (r *PostgresRepository) Update(ctx context.Context, c Coupon) (Coupon, error) {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE coupons SET code = $2, description = $3, type = $4, value = $5, min_purchase = $6, max_uses = $7,
            starts_at = $8, ends_at = $9, is_active = $10, applicable_product_ids = $11,
            applicable_category_ids = $12, applicable_collection_ids = $13, updated_at = $14
        WHERE id = $1`,
		c.ID, c.Code, c.Description, c.Type, c.Value, nullDecimal(c.MinPurchase), c.MaxUses,
		c.StartsAt, c.EndsAt, c.IsActive, pq.Array(c.ApplicableProductIDs), pq.Array(c.ApplicableCategoryIDs),
		pq.Array(c.ApplicableCollectionIDs), c.UpdatedAt)
	if database.IsUniqueViolation(err) {
		return Coupon{}, ErrDuplicateCode
	}
	if err != nil {
		return Coupon{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Coupon{}, ErrNotFound
	}
	return c, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, `DELETE FROM coupons WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementUsage only bumps used_count while it is below max_uses, so two
// concurrent orders cannot both take the last use.
func (r *PostgresRepository) IncrementUsage(ctx context.Context, id string) (Coupon, error) {
	q := database.Conn(ctx, r.db)
	c, err := scanCoupon(q.QueryRowContext(ctx,
		`UPDATE coupons SET used_count = used_count + 1, updated_at = now()
        WHERE id = $1 AND (max_uses IS NULL OR used_count < max_uses)
        RETURNING `+couponColumns, id))
	if !errors.Is(err, sql.ErrNoRows) {
		return c, err
	}
	var exists bool
	if err := q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM coupons WHERE id = $1)`, id).Scan(&exists); err != nil {
		return Coupon{}, err
	}
	if !exists {
		return Coupon{}, ErrNotFound
	}
	return Coupon{}, ErrUsageExhausted
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}
