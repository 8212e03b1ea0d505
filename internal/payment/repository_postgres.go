package payment

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/wichananm65/shop-admin-backend/internal/database"
)

const transactionColumns = `id, order_id, payment_provider_id, currency_id, amount, status,
        external_id, payment_method, error_message, metadata, created_at, updated_at`

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s scanner) (Transaction, error) {
	var t Transaction
	var meta []byte
	err := s.Scan(&t.ID, &t.OrderID, &t.PaymentProviderID, &t.CurrencyID, &t.Amount, &t.Status,
		&t.ExternalID, &t.PaymentMethod, &t.ErrorMessage, &meta, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return Transaction{}, err
	}
	t.Metadata = map[string]any{}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &t.Metadata); err != nil {
			return Transaction{}, err
		}
	}
	return t, nil
}

func encodeMetadata(m map[string]any) ([]byte, error) {
	if m == nil {
		m = map[string]any{}
	}
	return json.Marshal(m)
}

func (r *PostgresRepository) ListByOrder(ctx context.Context, orderID string) ([]Transaction, error) {
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM payment_transactions WHERE order_id = $1 ORDER BY created_at`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (Transaction, error) {
	t, err := scanTransaction(database.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM payment_transactions WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Transaction{}, ErrNotFound
	}
	return t, err
}

func (r *PostgresRepository) Create(ctx context.Context, t Transaction) (Transaction, error) {
	meta, err := encodeMetadata(t.Metadata)
	if err != nil {
		return Transaction{}, err
	}
	_, err = database.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO payment_transactions (`+transactionColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		t.ID, t.OrderID, t.PaymentProviderID, t.CurrencyID, t.Amount, t.Status,
		t.ExternalID, t.PaymentMethod, t.ErrorMessage, meta, t.CreatedAt, t.UpdatedAt)
	return t, err
}

func (r *PostgresRepository) Update(ctx context.Context, t Transaction) (Transaction, error) {
	meta, err := encodeMetadata(t.Metadata)
	if err != nil {
		return Transaction{}, err
	}
	res, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE payment_transactions SET payment_provider_id = $2, currency_id = $3, amount = $4, status = $5,
            external_id = $6, payment_method = $7, error_message = $8, metadata = $9, updated_at = $10
        WHERE id = $1`,
		t.ID, t.PaymentProviderID, t.CurrencyID, t.Amount, t.Status,
		t.ExternalID, t.PaymentMethod, t.ErrorMessage, meta, t.UpdatedAt)
	if err != nil {
		return Transaction{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Transaction{}, ErrNotFound
	}
	return t, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, `DELETE FROM payment_transactions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) CountByOrder(ctx context.Context, orderID string) (int, error) {
	var n int
	err := database.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM payment_transactions WHERE order_id = $1`, orderID).Scan(&n)
	return n, err
}

func (r *PostgresRepository) CountByCurrency(ctx context.Context, currencyID string) (int, error) {
	var n int
	err := database.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM payment_transactions WHERE currency_id = $1`, currencyID).Scan(&n)
	return n, err
}
