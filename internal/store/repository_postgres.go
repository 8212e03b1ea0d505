package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/wichananm65/shop-admin-backend/internal/database"
)

const storeColumns = `id, name, domain, created_at, updated_at`

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) List(ctx context.Context) ([]Store, error) {
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx, `SELECT `+storeColumns+` FROM stores ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Store, 0)
	for rows.Next() {
		var s Store
		if err := rows.Scan(&s.ID, &s.Name, &s.Domain, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (Store, error) {
	var s Store
	err := database.Conn(ctx, r.db).QueryRowContext(ctx, `SELECT `+storeColumns+` FROM stores WHERE id = $1`, id).
		Scan(&s.ID, &s.Name, &s.Domain, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Store{}, ErrNotFound
	}
	return s, err
}

func (r *PostgresRepository) Create(ctx context.Context, s Store) (Store, error) {
	_, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO stores (id, name, domain, created_at, updated_at) VALUES ($1,$2,$3,$4,$5)`,
		s.ID, s.Name, s.Domain, s.CreatedAt, s.UpdatedAt)
	if database.IsUniqueViolation(err) {
		return Store{}, ErrDuplicateDomain
	}
	return s, err
}

func (r *PostgresRepository) Update(ctx context.Context, s Store) (Store, error) {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE stores SET name = $2, domain = $3, updated_at = $4 WHERE id = $1`,
		s.ID, s.Name, s.Domain, s.UpdatedAt)
	if database.IsUniqueViolation(err) {
		return Store{}, ErrDuplicateDomain
	}
	if err != nil {
		return Store{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Store{}, ErrNotFound
	}
	return s, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, `DELETE FROM stores WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
