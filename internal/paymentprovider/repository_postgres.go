package paymentprovider

import (
	"context"
	"database/sql"
	"errors"

	"github.com/wichananm65/shop-admin-backend/internal/database"
)

const providerColumns = `id, store_id, name, type, currency_id, is_active, created_at, updated_at`

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProvider(s scanner) (Provider, error) {
	var p Provider
	var currencyID sql.NullString
	err := s.Scan(&p.ID, &p.StoreID, &p.Name, &p.Type, &currencyID, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if currencyID.Valid {
		p.CurrencyID = &currencyID.String
	}
	return p, err
}

func (r *PostgresRepository) ListByStore(ctx context.Context, storeID string) ([]Provider, error) {
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx,
		`SELECT `+providerColumns+` FROM payment_providers WHERE store_id = $1 ORDER BY name`, storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Provider, 0)
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (Provider, error) {
	p, err := scanProvider(database.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+providerColumns+` FROM payment_providers WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Provider{}, ErrNotFound
	}
	return p, err
}

func (r *PostgresRepository) Create(ctx context.Context, p Provider) (Provider, error) {
	_, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO payment_providers (`+providerColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		p.ID, p.StoreID, p.Name, p.Type, p.CurrencyID, p.IsActive, p.CreatedAt, p.UpdatedAt)
	return p, err
}

func (r *PostgresRepository) Update(ctx context.Context, p Provider) (Provider, error) {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE payment_providers SET name = $2, type = $3, currency_id = $4, is_active = $5, updated_at = $6 WHERE id = $1`,
		p.ID, p.Name, p.Type, p.CurrencyID, p.IsActive, p.UpdatedAt)
	if err != nil {
		return Provider{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Provider{}, ErrNotFound
	}
	return p, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, `DELETE FROM payment_providers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) CountByCurrency(ctx context.Context, currencyID string) (int, error) {
	var n int
	err := database.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM payment_providers WHERE currency_id = $1`, currencyID).Scan(&n)
	return n, err
}
