package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/wichananm65/shop-admin-backend/internal/database"
)

const (
	orderColumns = `id, store_id, order_number, financial_status, fulfillment_status, shipping_status,
        payment_status, subtotal_price, total_tax, total_discounts, total_price, currency_id, coupon_id,
        payment_provider_id, shipping_method_id, customer_info, shipping_address, billing_address,
        tracking_number, customer_notes, internal_notes, source, inventory_committed, created_at, updated_at`

	itemColumns = `id, order_id, variant_id, title, price, quantity, total_discount`
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

func scanOrder(s scanner) (Order, error) {
	var o Order
	var coupon, provider, shipping sql.NullString
	var customer, shipAddr, billAddr []byte
	err := s.Scan(&o.ID, &o.StoreID, &o.OrderNumber, &o.FinancialStatus, &o.FulfillmentStatus, &o.ShippingStatus,
		&o.PaymentStatus, &o.SubtotalPrice, &o.TotalTax, &o.TotalDiscounts, &o.TotalPrice, &o.CurrencyID, &coupon,
		&provider, &shipping, &customer, &shipAddr, &billAddr,
		&o.TrackingNumber, &o.CustomerNotes, &o.InternalNotes, &o.Source, &o.InventoryCommitted, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return Order{}, err
	}
	o.CouponID = nullable(coupon)
	o.PaymentProviderID = nullable(provider)
	o.ShippingMethodID = nullable(shipping)
	if o.CustomerInfo, err = decodeJSON(customer); err != nil {
		return Order{}, err
	}
	if o.ShippingAddress, err = decodeJSON(shipAddr); err != nil {
		return Order{}, err
	}
	if o.BillingAddress, err = decodeJSON(billAddr); err != nil {
		return Order{}, err
	}
	o.LineItems = []Item{}
	return o, nil
}

func scanItem(s scanner) (Item, error) {
	var it Item
	var variant sql.NullString
	err := s.Scan(&it.ID, &it.OrderID, &variant, &it.Title, &it.Price, &it.Quantity, &it.TotalDiscount)
	it.VariantID = nullable(variant)
	return it, err
}

func (r *PostgresRepository) List(ctx context.Context, f Filter) ([]Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE true`
	args := []any{}
	add := func(cond string, v any) {
		args = append(args, v)
		query += fmt.Sprintf(" AND %s = $%d", cond, len(args))
	}
	if f.StoreID != "" {
		add("store_id", f.StoreID)
	}
	if f.FinancialStatus != "" {
		add("financial_status", f.FinancialStatus)
	}
	if f.FulfillmentStatus != "" {
		add("fulfillment_status", f.FulfillmentStatus)
	}
	query += ` ORDER BY created_at DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	q := database.Conn(ctx, r.db)
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	out := make([]Order, 0)
	index := map[string]int{}
	ids := make([]string, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		index[o.ID] = len(out)
		ids = append(ids, o.ID)
		out = append(out, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return out, nil
	}

	items, err := q.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM order_items WHERE order_id = ANY($1) ORDER BY id`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer items.Close()
	for items.Next() {
		it, err := scanItem(items)
		if err != nil {
			return nil, err
		}
		i := index[it.OrderID]
		out[i].LineItems = append(out[i].LineItems, it)
	}
	return out, items.Err()
}

// Get locks the order row when called inside a transaction.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	if database.InTx(ctx) {
		query += ` FOR UPDATE`
	}
	q := database.Conn(ctx, r.db)
	o, err := scanOrder(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, err
	}

	rows, err := q.QueryContext(ctx, `SELECT `+itemColumns+` FROM order_items WHERE order_id = $1 ORDER BY id`, id)
	if err != nil {
		return Order{}, err
	}
	defer rows.Close()
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return Order{}, err
		}
		o.LineItems = append(o.LineItems, it)
	}
	return o, rows.Err()
}

func (r *PostgresRepository) NextNumber(ctx context.Context, storeID string) (int, error) {
	var n int
	err := database.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT COALESCE(MAX(order_number), 0) + 1 FROM orders WHERE store_id = $1`, storeID).Scan(&n)
	return n, err
}

func (r *PostgresRepository) NumberTaken(ctx context.Context, storeID string, number int) (bool, error) {
	var taken bool
	err := database.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM orders WHERE store_id = $1 AND order_number = $2)`, storeID, number).Scan(&taken)
	return taken, err
}

func (r *PostgresRepository) Create(ctx context.Context, o Order) (Order, error) {
	customer, shipAddr, billAddr, err := encodeAddresses(o)
	if err != nil {
		return Order{}, err
	}
	q := database.Conn(ctx, r.db)
	_, err = q.ExecContext(ctx,
		`INSERT INTO orders (`+orderColumns+`) VALUES
            ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25)`,
		o.ID, o.StoreID, o.OrderNumber, o.FinancialStatus, o.FulfillmentStatus, o.ShippingStatus,
		o.PaymentStatus, o.SubtotalPrice, o.TotalTax, o.TotalDiscounts, o.TotalPrice, o.CurrencyID, o.CouponID,
		o.PaymentProviderID, o.ShippingMethodID, customer, shipAddr, billAddr,
		o.TrackingNumber, o.CustomerNotes, o.InternalNotes, o.Source, o.InventoryCommitted, o.CreatedAt, o.UpdatedAt)
	if database.IsUniqueViolation(err) {
		return Order{}, ErrDuplicateNumber
	}
	if err != nil {
		return Order{}, err
	}
	for _, it := range o.LineItems {
		if err := insertItem(ctx, q, it); err != nil {
			return Order{}, err
		}
	}
	return o, nil
}

func (r *PostgresRepository) Update(ctx context.Context, o Order) (Order, error) {
	customer, shipAddr, billAddr, err := encodeAddresses(o)
	if err != nil {
		return Order{}, err
	}
	res, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE orders SET financial_status = $2, fulfillment_status = $3, shipping_status = $4, payment_status = $5,
            subtotal_price = $6, total_tax = $7, total_discounts = $8, total_price = $9, currency_id = $10,
            coupon_id = $11, payment_provider_id = $12, shipping_method_id = $13, customer_info = $14,
            shipping_address = $15, billing_address = $16, tracking_number = $17, customer_notes = $18,
            internal_notes = $19, source = $20, inventory_committed = $21, updated_at = $22
        WHERE id = $1`,
		o.ID, o.FinancialStatus, o.FulfillmentStatus, o.ShippingStatus, o.PaymentStatus,
		o.SubtotalPrice, o.TotalTax, o.TotalDiscounts, o.TotalPrice, o.CurrencyID,
		o.CouponID, o.PaymentProviderID, o.ShippingMethodID, customer,
		shipAddr, billAddr, o.TrackingNumber, o.CustomerNotes,
		o.InternalNotes, o.Source, o.InventoryCommitted, o.UpdatedAt)
	if err != nil {
		return Order{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Order{}, ErrNotFound
	}
	return o, nil
}

func (r *PostgresRepository) SaveItems(ctx context.Context, orderID string, items []Item, removed []string) error {
	q := database.Conn(ctx, r.db)
	if len(removed) > 0 {
		if _, err := q.ExecContext(ctx,
			`DELETE FROM order_items WHERE order_id = $1 AND id = ANY($2)`, orderID, pq.Array(removed)); err != nil {
			return err
		}
	}
	for _, it := range items {
		it.OrderID = orderID
		if err := insertItem(ctx, q, it); err != nil {
			return err
		}
	}
	return nil
}

func insertItem(ctx context.Context, q database.Querier, it Item) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO order_items (`+itemColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7)
        ON CONFLICT (id) DO UPDATE SET variant_id = EXCLUDED.variant_id, title = EXCLUDED.title,
            price = EXCLUDED.price, quantity = EXCLUDED.quantity, total_discount = EXCLUDED.total_discount`,
		it.ID, it.OrderID, it.VariantID, it.Title, it.Price, it.Quantity, it.TotalDiscount)
	return err
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) CountByCurrency(ctx context.Context, currencyID string) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM orders WHERE currency_id = $1`, currencyID)
}

func (r *PostgresRepository) CountByCoupon(ctx context.Context, couponID string) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM orders WHERE coupon_id = $1`, couponID)
}

func (r *PostgresRepository) CountByVariant(ctx context.Context, variantID string) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM order_items WHERE variant_id = $1`, variantID)
}

func (r *PostgresRepository) count(ctx context.Context, query, arg string) (int, error) {
	var n int
	err := database.Conn(ctx, r.db).QueryRowContext(ctx, query, arg).Scan(&n)
	return n, err
}

func nullable(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

func decodeJSON(b []byte) (map[string]any, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// encodeAddresses marshals the JSONB columns. Nil addresses stay NULL.
func encodeAddresses(o Order) (customer []byte, ship, bill any, err error) {
	info := o.CustomerInfo
	if info == nil {
		info = map[string]any{}
	}
	if customer, err = json.Marshal(info); err != nil {
		return nil, nil, nil, err
	}
	if o.ShippingAddress != nil {
		b, err := json.Marshal(o.ShippingAddress)
		if err != nil {
			return nil, nil, nil, err
		}
		ship = b
	}
	if o.BillingAddress != nil {
		b, err := json.Marshal(o.BillingAddress)
		if err != nil {
			return nil, nil, nil, err
		}
		bill = b
	}
	return customer, ship, bill, nil
}
