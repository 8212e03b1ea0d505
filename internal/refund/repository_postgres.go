package refund

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/wichananm65/shop-admin-backend/internal/database"
	"github.com/wichananm65/shop-admin-backend/internal/order"
)

const (
	refundColumns = `id, order_id, store_id, amount, note, processed_at, created_at`
	lineColumns   = `id, refund_id, order_item_id, quantity, amount, restocked`

	itemRefundsSQL = `SELECT l.order_item_id, COUNT(*), SUM(l.quantity), SUM(l.amount),
            COALESCE(SUM(l.quantity) FILTER (WHERE l.restocked AND r.processed_at IS NOT NULL), 0)
        FROM refund_line_items l JOIN refunds r ON r.id = l.refund_id
        WHERE r.order_id = $1
        GROUP BY l.order_item_id`
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

func scanRefund(s scanner) (Refund, error) {
	var r Refund
	var processed sql.NullTime
	err := s.Scan(&r.ID, &r.OrderID, &r.StoreID, &r.Amount, &r.Note, &processed, &r.CreatedAt)
	if processed.Valid {
		r.ProcessedAt = &processed.Time
	}
	r.LineItems = []LineItem{}
	return r, err
}

func scanLine(s scanner) (LineItem, error) {
	var l LineItem
	err := s.Scan(&l.ID, &l.RefundID, &l.OrderItemID, &l.Quantity, &l.Amount, &l.Restocked)
	return l, err
}

func nullTime(r Refund) sql.NullTime {
	if r.ProcessedAt == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *r.ProcessedAt, Valid: true}
}

// Get locks the refund row when called inside a transaction.
func (p *PostgresRepository) Get(ctx context.Context, id string) (Refund, error) {
	query := `SELECT ` + refundColumns + ` FROM refunds WHERE id = $1`
	if database.InTx(ctx) {
		query += ` FOR UPDATE`
	}
	q := database.Conn(ctx, p.db)
	r, err := scanRefund(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Refund{}, ErrNotFound
	}
	if err != nil {
		return Refund{}, err
	}

	rows, err := q.QueryContext(ctx, `SELECT `+lineColumns+` FROM refund_line_items WHERE refund_id = $1 ORDER BY id`, id)
	if err != nil {
		return Refund{}, err
	}
	defer rows.Close()
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return Refund{}, err
		}
		r.LineItems = append(r.LineItems, l)
	}
	return r, rows.Err()
}

func (p *PostgresRepository) ListByOrder(ctx context.Context, orderID string) ([]Refund, error) {
	return p.list(ctx, `order_id`, orderID)
}

func (p *PostgresRepository) ListByStore(ctx context.Context, storeID string) ([]Refund, error) {
	return p.list(ctx, `store_id`, storeID)
}

func (p *PostgresRepository) list(ctx context.Context, column, value string) ([]Refund, error) {
	q := database.Conn(ctx, p.db)
	rows, err := q.QueryContext(ctx,
		`SELECT `+refundColumns+` FROM refunds WHERE `+column+` = $1 ORDER BY created_at DESC`, value)
	if err != nil {
		return nil, err
	}
	out := make([]Refund, 0)
	index := map[string]int{}
	ids := make([]string, 0)
	for rows.Next() {
		r, err := scanRefund(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		index[r.ID] = len(out)
		ids = append(ids, r.ID)
		out = append(out, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return out, nil
	}

	lines, err := q.QueryContext(ctx,
		`SELECT `+lineColumns+` FROM refund_line_items WHERE refund_id = ANY($1) ORDER BY id`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer lines.Close()
	for lines.Next() {
		l, err := scanLine(lines)
		if err != nil {
			return nil, err
		}
		i := index[l.RefundID]
		out[i].LineItems = append(out[i].LineItems, l)
	}
	return out, lines.Err()
}

func (p *PostgresRepository) Create(ctx context.Context, r Refund) (Refund, error) {
	q := database.Conn(ctx, p.db)
	_, err := q.ExecContext(ctx,
		`INSERT INTO refunds (`+refundColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		r.ID, r.OrderID, r.StoreID, r.Amount, r.Note, nullTime(r), r.CreatedAt)
	if err != nil {
		return Refund{}, err
	}
	for _, l := range r.LineItems {
		if err := p.SaveLine(ctx, l); err != nil {
			return Refund{}, err
		}
	}
	return r, nil
}

func (p *PostgresRepository) Update(ctx context.Context, r Refund) (Refund, error) {
	res, err := database.Conn(ctx, p.db).ExecContext(ctx,
		`UPDATE refunds SET amount = $2, note = $3, processed_at = $4 WHERE id = $1`,
		r.ID, r.Amount, r.Note, nullTime(r))
	if err != nil {
		return Refund{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Refund{}, ErrNotFound
	}
	return r, nil
}

func (p *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := database.Conn(ctx, p.db).ExecContext(ctx, `DELETE FROM refunds WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresRepository) GetLine(ctx context.Context, id string) (LineItem, error) {
	l, err := scanLine(database.Conn(ctx, p.db).QueryRowContext(ctx,
		`SELECT `+lineColumns+` FROM refund_line_items WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return LineItem{}, ErrLineNotFound
	}
	return l, err
}

func (p *PostgresRepository) SaveLine(ctx context.Context, l LineItem) error {
	_, err := database.Conn(ctx, p.db).ExecContext(ctx,
		`INSERT INTO refund_line_items (`+lineColumns+`) VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT (id) DO UPDATE SET quantity = EXCLUDED.quantity, amount = EXCLUDED.amount, restocked = EXCLUDED.restocked`,
		l.ID, l.RefundID, l.OrderItemID, l.Quantity, l.Amount, l.Restocked)
	return err
}

func (p *PostgresRepository) DeleteLine(ctx context.Context, id string) error {
	res, err := database.Conn(ctx, p.db).ExecContext(ctx, `DELETE FROM refund_line_items WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrLineNotFound
	}
	return nil
}

// ItemRefunds is summed from the line items on every call; nothing is
// cached on the order item.
func (p *PostgresRepository) ItemRefunds(ctx context.Context, orderID string) (map[string]order.ItemRefund, error) {
	rows, err := database.Conn(ctx, p.db).QueryContext(ctx, itemRefundsSQL, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]order.ItemRefund{}
	for rows.Next() {
		var id string
		var agg order.ItemRefund
		if err := rows.Scan(&id, &agg.Lines, &agg.Quantity, &agg.Amount, &agg.Restocked); err != nil {
			return nil, err
		}
		out[id] = agg
	}
	return out, rows.Err()
}

func (p *PostgresRepository) ProcessedTotal(ctx context.Context, orderID string) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := database.Conn(ctx, p.db).QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM refunds WHERE order_id = $1 AND processed_at IS NOT NULL`, orderID).Scan(&total)
	return total, err
}

func (p *PostgresRepository) CountByOrder(ctx context.Context, orderID string) (int, error) {
	var n int
	err := database.Conn(ctx, p.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM refunds WHERE order_id = $1`, orderID).Scan(&n)
	return n, err
}
