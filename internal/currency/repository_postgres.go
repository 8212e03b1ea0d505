package currency

import (
	"context"
	"database/sql"
	"errors"

	"github.com/wichananm65/shop-admin-backend/internal/database"
)

const currencyColumns = `id, code, name, symbol, decimal_places, is_active, created_at, updated_at`

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCurrency(s scanner) (Currency, error) {
	var c Currency
	err := s.Scan(&c.ID, &c.Code, &c.Name, &c.Symbol, &c.DecimalPlaces, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *PostgresRepository) List(ctx context.Context, includeInactive bool) ([]Currency, error) {
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx,
		`SELECT `+currencyColumns+` FROM currencies WHERE is_active OR $1 ORDER BY code`, includeInactive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Currency, 0)
	for rows.Next() {
		c, err := scanCurrency(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (Currency, error) {
	c, err := scanCurrency(database.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+currencyColumns+` FROM currencies WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Currency{}, ErrNotFound
	}
	return c, err
}

func (r *PostgresRepository) GetByCode(ctx context.Context, code string) (Currency, error) {
	c, err := scanCurrency(database.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+currencyColumns+` FROM currencies WHERE code = $1`, code))
	if errors.Is(err, sql.ErrNoRows) {
		return Currency{}, ErrNotFound
	}
	return c, err
}

func (r *PostgresRepository) Create(ctx context.Context, c Currency) (Currency, error) {
	_, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO currencies (`+currencyColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		c.ID, c.Code, c.Name, c.Symbol, c.DecimalPlaces, c.IsActive, c.CreatedAt, c.UpdatedAt)
	if database.IsUniqueViolation(err) {
		return Currency{}, ErrDuplicateCode
	}
	return c, err
}

func (r *PostgresRepository) Update(ctx context.Context, c Currency) (Currency, error) {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE currencies SET code = $2, name = $3, symbol = $4, decimal_places = $5, is_active = $6, updated_at = $7 WHERE id = $1`,
		c.ID, c.Code, c.Name, c.Symbol, c.DecimalPlaces, c.IsActive, c.UpdatedAt)
	if database.IsUniqueViolation(err) {
		return Currency{}, ErrDuplicateCode
	}
	if err != nil {
		return Currency{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Currency{}, ErrNotFound
	}
	return c, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, `DELETE FROM currencies WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
