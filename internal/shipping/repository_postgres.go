package shipping

import (
	"context"
	"database/sql"
	"errors"

	"github.com/wichananm65/shop-admin-backend/internal/database"
)

const methodColumns = `id, store_id, name, is_active, created_at, updated_at`

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) ListByStore(ctx context.Context, storeID string) ([]Method, error) {
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx,
		`SELECT `+methodColumns+` FROM shipping_methods WHERE store_id = $1 ORDER BY name`, storeID)
	if err != nil {
		return nil, err
	}
	out := make([]Method, 0)
	for rows.Next() {
		var m Method
		if err := rows.Scan(&m.ID, &m.StoreID, &m.Name, &m.IsActive, &m.CreatedAt, &m.UpdatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Prices, err = r.prices(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (Method, error) {
	var m Method
	err := database.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+methodColumns+` FROM shipping_methods WHERE id = $1`, id).
		Scan(&m.ID, &m.StoreID, &m.Name, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Method{}, ErrNotFound
	}
	if err != nil {
		return Method{}, err
	}
	m.Prices, err = r.prices(ctx, id)
	return m, err
}

func (r *PostgresRepository) Create(ctx context.Context, m Method) (Method, error) {
	_, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO shipping_methods (`+methodColumns+`) VALUES ($1,$2,$3,$4,$5,$6)`,
		m.ID, m.StoreID, m.Name, m.IsActive, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return Method{}, err
	}
	return m, r.replacePrices(ctx, m.ID, m.Prices)
}

func (r *PostgresRepository) Update(ctx context.Context, m Method) (Method, error) {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE shipping_methods SET name = $2, is_active = $3, updated_at = $4 WHERE id = $1`,
		m.ID, m.Name, m.IsActive, m.UpdatedAt)
	if err != nil {
		return Method{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Method{}, ErrNotFound
	}
	return m, r.replacePrices(ctx, m.ID, m.Prices)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, `DELETE FROM shipping_methods WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) replacePrices(ctx context.Context, methodID string, prices []Price) error {
	q := database.Conn(ctx, r.db)
	if _, err := q.ExecContext(ctx, `DELETE FROM shipping_method_prices WHERE shipping_method_id = $1`, methodID); err != nil {
		return err
	}
	for _, p := range prices {
		if _, err := q.ExecContext(ctx,
			`INSERT INTO shipping_method_prices (shipping_method_id, currency_id, price) VALUES ($1,$2,$3)`,
			methodID, p.CurrencyID, p.Price); err != nil {
			return err
		}
	}
	return nil
}

func (r *PostgresRepository) prices(ctx context.Context, methodID string) ([]Price, error) {
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx,
		`SELECT currency_id, price FROM shipping_method_prices WHERE shipping_method_id = $1 ORDER BY currency_id`, methodID)
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
