package category

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/wichananm65/shop-admin-backend/internal/database"
)

// PostgresRepository implements Repository using Postgres. Categories and
// collections share a row shape and differ only by table.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type row struct {
	ID, StoreID, Name string
	CreatedAt         time.Time
}

func (r *PostgresRepository) list(ctx context.Context, table, storeID string) ([]row, error) {
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx,
		`SELECT id, store_id, name, created_at FROM `+table+` WHERE store_id = $1 ORDER BY name`, storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]row, 0)
	for rows.Next() {
		var x row
		if err := rows.Scan(&x.ID, &x.StoreID, &x.Name, &x.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, x)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) get(ctx context.Context, table, id string) (row, error) {
	var x row
	err := database.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT id, store_id, name, created_at FROM `+table+` WHERE id = $1`, id).
		Scan(&x.ID, &x.StoreID, &x.Name, &x.CreatedAt)
	return x, err
}

func (r *PostgresRepository) insert(ctx context.Context, table string, x row) error {
	_, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO `+table+` (id, store_id, name, created_at) VALUES ($1,$2,$3,$4)`,
		x.ID, x.StoreID, x.Name, x.CreatedAt)
	return err
}

func (r *PostgresRepository) rename(ctx context.Context, table, id, name string) (bool, error) {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, `UPDATE `+table+` SET name = $2 WHERE id = $1`, id, name)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *PostgresRepository) delete(ctx context.Context, table, id string) (bool, error) {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *PostgresRepository) ListCategories(ctx context.Context, storeID string) ([]Category, error) {
	rows, err := r.list(ctx, "categories", storeID)
	if err != nil {
		return nil, err
	}
	out := make([]Category, 0, len(rows))
	for _, x := range rows {
		out = append(out, Category{ID: x.ID, StoreID: x.StoreID, Name: x.Name, CreatedAt: x.CreatedAt})
	}
	return out, nil
}

func (r *PostgresRepository) GetCategory(ctx context.Context, id string) (Category, error) {
	x, err := r.get(ctx, "categories", id)
	if errors.Is(err, sql.ErrNoRows) {
		return Category{}, ErrNotFound
	}
	if err != nil {
		return Category{}, err
	}
	return Category{ID: x.ID, StoreID: x.StoreID, Name: x.Name, CreatedAt: x.CreatedAt}, nil
}

func (r *PostgresRepository) CreateCategory(ctx context.Context, c Category) (Category, error) {
	err := r.insert(ctx, "categories", row{ID: c.ID, StoreID: c.StoreID, Name: c.Name, CreatedAt: c.CreatedAt})
	return c, err
}

func (r *PostgresRepository) UpdateCategory(ctx context.Context, c Category) (Category, error) {
	ok, err := r.rename(ctx, "categories", c.ID, c.Name)
	if err != nil {
		return Category{}, err
	}
	if !ok {
		return Category{}, ErrNotFound
	}
	return c, nil
}

func (r *PostgresRepository) DeleteCategory(ctx context.Context, id string) error {
	ok, err := r.delete(ctx, "categories", id)
	if err == nil && !ok {
		return ErrNotFound
	}
	return err
}

func (r *PostgresRepository) ListCollections(ctx context.Context, storeID string) ([]Collection, error) {
	rows, err := r.list(ctx, "collections", storeID)
	if err != nil {
		return nil, err
	}
	out := make([]Collection, 0, len(rows))
	for _, x := range rows {
		out = append(out, Collection{ID: x.ID, StoreID: x.StoreID, Name: x.Name, CreatedAt: x.CreatedAt})
	}
	return out, nil
}

func (r *PostgresRepository) GetCollection(ctx context.Context, id string) (Collection, error) {
	x, err := r.get(ctx, "collections", id)
	if errors.Is(err, sql.ErrNoRows) {
		return Collection{}, ErrCollectionNotFound
	}
	if err != nil {
		return Collection{}, err
	}
	return Collection{ID: x.ID, StoreID: x.StoreID, Name: x.Name, CreatedAt: x.CreatedAt}, nil
}

func (r *PostgresRepository) CreateCollection(ctx context.Context, c Collection) (Collection, error) {
	err := r.insert(ctx, "collections", row{ID: c.ID, StoreID: c.StoreID, Name: c.Name, CreatedAt: c.CreatedAt})
	return c, err
}

func (r *PostgresRepository) UpdateCollection(ctx context.Context, c Collection) (Collection, error) {
	ok, err := r.rename(ctx, "collections", c.ID, c.Name)
	if err != nil {
		return Collection{}, err
	}
	if !ok {
		return Collection{}, ErrCollectionNotFound
	}
	return c, nil
}

func (r *PostgresRepository) DeleteCollection(ctx context.Context, id string) error {
	ok, err := r.delete(ctx, "collections", id)
	if err == nil && !ok {
		return ErrCollectionNotFound
	}
	return err
}
