package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied in order on startup. Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS stores (
        id TEXT PRIMARY KEY,
        name TEXT NOT NULL,
        domain TEXT NOT NULL UNIQUE,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
        updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
    )`,
	`CREATE TABLE IF NOT EXISTS currencies (
        id TEXT PRIMARY KEY,
        code TEXT NOT NULL UNIQUE,
        name TEXT NOT NULL,
        symbol TEXT NOT NULL DEFAULT '',
        decimal_places INT NOT NULL DEFAULT 2,
        is_active BOOLEAN NOT NULL DEFAULT true,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
        updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
    )`,
	`CREATE TABLE IF NOT EXISTS categories (
        id TEXT PRIMARY KEY,
        store_id TEXT NOT NULL REFERENCES stores(id),
        name TEXT NOT NULL,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now()
    )`,
	`CREATE TABLE IF NOT EXISTS collections (
        id TEXT PRIMARY KEY,
        store_id TEXT NOT NULL REFERENCES stores(id),
        name TEXT NOT NULL,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now()
    )`,
	`CREATE TABLE IF NOT EXISTS products (
        id TEXT PRIMARY KEY,
        store_id TEXT NOT NULL REFERENCES stores(id),
        title TEXT NOT NULL,
        allow_backorder BOOLEAN NOT NULL DEFAULT false,
        category_ids TEXT[] NOT NULL DEFAULT '{}',
        collection_ids TEXT[] NOT NULL DEFAULT '{}',
        created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
        updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
    )`,
	`CREATE TABLE IF NOT EXISTS variants (
        id TEXT PRIMARY KEY,
        product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
        sku TEXT NOT NULL UNIQUE,
        title TEXT NOT NULL DEFAULT '',
        inventory_quantity INT NOT NULL DEFAULT 0,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
        updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
    )`,
	`CREATE TABLE IF NOT EXISTS variant_prices (
        variant_id TEXT NOT NULL REFERENCES variants(id) ON DELETE CASCADE,
        currency_id TEXT NOT NULL REFERENCES currencies(id),
        price NUMERIC(14,4) NOT NULL,
        PRIMARY KEY (variant_id, currency_id)
    )`,
	`CREATE TABLE IF NOT EXISTS shipping_methods (
        id TEXT PRIMARY KEY,
        store_id TEXT NOT NULL REFERENCES stores(id),
        name TEXT NOT NULL,
        is_active BOOLEAN NOT NULL DEFAULT true,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
        updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
    )`,
	`CREATE TABLE IF NOT EXISTS shipping_method_prices (
        shipping_method_id TEXT NOT NULL REFERENCES shipping_methods(id) ON DELETE CASCADE,
        currency_id TEXT NOT NULL REFERENCES currencies(id),
        price NUMERIC(14,4) NOT NULL,
        PRIMARY KEY (shipping_method_id, currency_id)
    )`,
	`CREATE TABLE IF NOT EXISTS payment_providers (
        id TEXT PRIMARY KEY,
        store_id TEXT NOT NULL REFERENCES stores(id),
        name TEXT NOT NULL,
        type TEXT NOT NULL DEFAULT '',
        currency_id TEXT REFERENCES currencies(id),
        is_active BOOLEAN NOT NULL DEFAULT true,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
        updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
    )`,
	`CREATE TABLE IF NOT EXISTS coupons (
        id TEXT PRIMARY KEY,
        store_id TEXT NOT NULL REFERENCES stores(id),
        code TEXT NOT NULL,
        description TEXT NOT NULL DEFAULT '',
        type TEXT NOT NULL,
        value NUMERIC(14,4) NOT NULL,
        min_purchase NUMERIC(14,4),
        max_uses INT,
        used_count INT NOT NULL DEFAULT 0,
        starts_at TIMESTAMPTZ NOT NULL,
        ends_at TIMESTAMPTZ NOT NULL,
        is_active BOOLEAN NOT NULL DEFAULT true,
        applicable_product_ids TEXT[] NOT NULL DEFAULT '{}',
        applicable_category_ids TEXT[] NOT NULL DEFAULT '{}',
        applicable_collection_ids TEXT[] NOT NULL DEFAULT '{}',
        created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
        updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
        UNIQUE (store_id, code)
    )`,
	`CREATE TABLE IF NOT EXISTS orders (
        id TEXT PRIMARY KEY,
        store_id TEXT NOT NULL REFERENCES stores(id),
        order_number INT NOT NULL,
        financial_status TEXT NOT NULL,
        fulfillment_status TEXT NOT NULL,
        shipping_status TEXT NOT NULL,
        payment_status TEXT NOT NULL,
        subtotal_price NUMERIC(14,4) NOT NULL DEFAULT 0,
        total_tax NUMERIC(14,4) NOT NULL DEFAULT 0,
        total_discounts NUMERIC(14,4) NOT NULL DEFAULT 0,
        total_price NUMERIC(14,4) NOT NULL DEFAULT 0,
        currency_id TEXT NOT NULL REFERENCES currencies(id),
        coupon_id TEXT REFERENCES coupons(id),
        payment_provider_id TEXT REFERENCES payment_providers(id),
        shipping_method_id TEXT REFERENCES shipping_methods(id),
        customer_info JSONB NOT NULL DEFAULT '{}',
        shipping_address JSONB,
        billing_address JSONB,
        tracking_number TEXT NOT NULL DEFAULT '',
        customer_notes TEXT NOT NULL DEFAULT '',
        internal_notes TEXT NOT NULL DEFAULT '',
        source TEXT NOT NULL DEFAULT '',
        inventory_committed BOOLEAN NOT NULL DEFAULT false,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
        updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
        UNIQUE (store_id, order_number)
    )`,
	`CREATE TABLE IF NOT EXISTS order_items (
        id TEXT PRIMARY KEY,
        order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
        variant_id TEXT REFERENCES variants(id),
        title TEXT NOT NULL,
        price NUMERIC(14,4) NOT NULL,
        quantity INT NOT NULL,
        total_discount NUMERIC(14,4) NOT NULL DEFAULT 0
    )`,
	`CREATE TABLE IF NOT EXISTS payment_transactions (
        id TEXT PRIMARY KEY,
        order_id TEXT NOT NULL REFERENCES orders(id),
        payment_provider_id TEXT NOT NULL REFERENCES payment_providers(id),
        currency_id TEXT NOT NULL REFERENCES currencies(id),
        amount NUMERIC(14,4) NOT NULL,
        status TEXT NOT NULL,
        external_id TEXT NOT NULL DEFAULT '',
        payment_method TEXT NOT NULL DEFAULT '',
        error_message TEXT NOT NULL DEFAULT '',
        metadata JSONB NOT NULL DEFAULT '{}',
        created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
        updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
    )`,
	`CREATE TABLE IF NOT EXISTS refunds (
        id TEXT PRIMARY KEY,
        order_id TEXT NOT NULL REFERENCES orders(id),
        store_id TEXT NOT NULL REFERENCES stores(id),
        amount NUMERIC(14,4) NOT NULL DEFAULT 0,
        note TEXT NOT NULL DEFAULT '',
        processed_at TIMESTAMPTZ,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now()
    )`,
	`CREATE TABLE IF NOT EXISTS refund_line_items (
        id TEXT PRIMARY KEY,
        refund_id TEXT NOT NULL REFERENCES refunds(id) ON DELETE CASCADE,
        order_item_id TEXT NOT NULL REFERENCES order_items(id),
        quantity INT NOT NULL,
        amount NUMERIC(14,4) NOT NULL,
        restocked BOOLEAN NOT NULL DEFAULT false
    )`,
	`CREATE INDEX IF NOT EXISTS order_items_order_id_idx ON order_items (order_id)`,
	`CREATE INDEX IF NOT EXISTS refunds_order_id_idx ON refunds (order_id)`,
	`CREATE INDEX IF NOT EXISTS refunds_store_id_idx ON refunds (store_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS refund_line_items_order_item_id_idx ON refund_line_items (order_item_id)`,
	`CREATE INDEX IF NOT EXISTS payment_transactions_order_id_idx ON payment_transactions (order_id)`,
}

// EnsureSchema creates every table the services need.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	return nil
}
