package product

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/wichananm65/shop-admin-backend/internal/database"
)

const (
	productColumns = `id, store_id, title, allow_backorder, category_ids, collection_ids, created_at, updated_at`
	variantColumns = `id, product_id, sku, title, inventory_quantity, created_at, updated_at`

	adjustInventorySQL = `UPDATE variants v
        SET inventory_quantity = v.inventory_quantity + $2, updated_at = now()
        FROM products p
        WHERE v.id = $1 AND p.id = v.product_id
        RETURNING v.inventory_quantity, p.allow_backorder`

	inventorySQL = `SELECT v.inventory_quantity, p.allow_backorder
        FROM variants v JOIN products p ON p.id = v.product_id
        WHERE v.id = $1`
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(s scanner) (Product, error) {
	var p Product
	err := s.Scan(&p.ID, &p.StoreID, &p.Title, &p.AllowBackorder,
		pq.Array(&p.CategoryIDs), pq.Array(&p.CollectionIDs), &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func scanVariant(s scanner) (Variant, error) {
	var v Variant
	err := s.Scan(&v.ID, &v.ProductID, &v.SKU, &v.Title, &v.InventoryQuantity, &v.CreatedAt, &v.UpdatedAt)
	return v, err
}

func (r *PostgresRepository) ListProducts(ctx context.Context, storeID string) ([]Product, error) {
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE store_id = $1 ORDER BY created_at`, storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) GetProduct(ctx context.Context, id string) (Product, error) {
	p, err := scanProduct(database.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, err
	}
	if p.Variants, err = r.ListVariants(ctx, id); err != nil {
		return Product{}, err
	}
	return p, nil
}

func (r *PostgresRepository) CreateProduct(ctx context.Context, p Product) (Product, error) {
	_, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO products (`+productColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		p.ID, p.StoreID, p.Title, p.AllowBackorder, pq.Array(p.CategoryIDs), pq.Array(p.CollectionIDs), p.CreatedAt, p.UpdatedAt)
	return p, err
}

func (r *PostgresRepository) UpdateProduct(ctx context.Context, p Product) (Product, error) {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE products SET title = $2, allow_backorder = $3, category_ids = $4, collection_ids = $5, updated_at = $6 WHERE id = $1`,
		p.ID, p.Title, p.AllowBackorder, pq.Array(p.CategoryIDs), pq.Array(p.CollectionIDs), p.UpdatedAt)
	if err != nil {
		return Product{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (r *PostgresRepository) DeleteProduct(ctx context.Context, id string) error {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) ListVariants(ctx context.Context, productID string) ([]Variant, error) {
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx,
		`SELECT `+variantColumns+` FROM variants WHERE product_id = $1 ORDER BY sku`, productID)
	if err != nil {
		return nil, err
	}
	out := make([]Variant, 0)
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, v)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		if out[i].Prices, err = r.listPrices(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *PostgresRepository) GetVariant(ctx context.Context, id string) (Variant, error) {
	v, err := scanVariant(database.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+variantColumns+` FROM variants WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Variant{}, ErrVariantNotFound
	}
	if err != nil {
		return Variant{}, err
	}
	if v.Prices, err = r.listPrices(ctx, id); err != nil {
		return Variant{}, err
	}
	return v, nil
}

func (r *PostgresRepository) CreateVariant(ctx context.Context, v Variant) (Variant, error) {
	q := database.Conn(ctx, r.db)
	_, err := q.ExecContext(ctx,
		`INSERT INTO variants (`+variantColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		v.ID, v.ProductID, v.SKU, v.Title, v.InventoryQuantity, v.CreatedAt, v.UpdatedAt)
	if database.IsUniqueViolation(err) {
		return Variant{}, ErrDuplicateSKU
	}
	if err != nil {
		return Variant{}, err
	}
	for _, p := range v.Prices {
		if err := r.SetPrice(ctx, v.ID, p); err != nil {
			return Variant{}, err
		}
	}
	return v, nil
}

func (r *PostgresRepository) UpdateVariant(ctx context.Context, v Variant) (Variant, error) {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE variants SET sku = $2, title = $3, inventory_quantity = $4, updated_at = $5 WHERE id = $1`,
		v.ID, v.SKU, v.Title, v.InventoryQuantity, v.UpdatedAt)
	if database.IsUniqueViolation(err) {
		return Variant{}, ErrDuplicateSKU
	}
	if err != nil {
		return Variant{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Variant{}, ErrVariantNotFound
	}
	if v.Prices, err = r.listPrices(ctx, v.ID); err != nil {
		return Variant{}, err
	}
	return v, nil
}

func (r *PostgresRepository) DeleteVariant(ctx context.Context, id string) error {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, `DELETE FROM variants WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrVariantNotFound
	}
	return nil
}

func (r *PostgresRepository) SetPrice(ctx context.Context, variantID string, p Price) error {
	_, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO variant_prices (variant_id, currency_id, price) VALUES ($1,$2,$3)
        ON CONFLICT (variant_id, currency_id) DO UPDATE SET price = EXCLUDED.price`,
		variantID, p.CurrencyID, p.Price)
	return err
}

func (r *PostgresRepository) listPrices(ctx context.Context, variantID string) ([]Price, error) {
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx,
		`SELECT currency_id, price FROM variant_prices WHERE variant_id = $1 ORDER BY currency_id`, variantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Price, 0)
	for rows.Next() {
		var p Price
		if err := rows.Scan(&p.CurrencyID, &p.Price); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// AdjustInventory is a single UPDATE ... RETURNING, so the row stays locked
// until the surrounding transaction ends.
func (r *PostgresRepository) AdjustInventory(ctx context.Context, variantID string, delta int) (int, bool, error) {
	var qty int
	var backorder bool
	err := database.Conn(ctx, r.db).QueryRowContext(ctx, adjustInventorySQL, variantID, delta).Scan(&qty, &backorder)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, ErrVariantNotFound
	}
	return qty, backorder, err
}

func (r *PostgresRepository) Inventory(ctx context.Context, variantID string) (int, bool, error) {
	query := inventorySQL
	if database.InTx(ctx) {
		query += ` FOR UPDATE OF v`
	}
	var qty int
	var backorder bool
	err := database.Conn(ctx, r.db).QueryRowContext(ctx, query, variantID).Scan(&qty, &backorder)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, ErrVariantNotFound
	}
	return qty, backorder, err
}

func (r *PostgresRepository) CountByCurrency(ctx context.Context, currencyID string) (int, error) {
	var n int
	err := database.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM variant_prices WHERE currency_id = $1`, currencyID).Scan(&n)
	return n, err
}
