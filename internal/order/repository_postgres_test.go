package order

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/wichananm65/shop-admin-backend/internal/database"
)

var orderRow = []string{"id", "store_id", "order_number", "financial_status", "fulfillment_status", "shipping_status",
	"payment_status", "subtotal_price", "total_tax", "total_discounts", "total_price", "currency_id", "coupon_id",
	"payment_provider_id", "shipping_method_id", "customer_info", "shipping_address", "billing_address",
	"tracking_number", "customer_notes", "internal_notes", "source", "inventory_committed", "created_at", "updated_at"}

func TestGet_LocksRowInsideTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)
	tx := database.NewSQLTransactor(db, sql.LevelSerializable)
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM orders WHERE id = \$1 FOR UPDATE`).WithArgs("o-1").WillReturnRows(
		sqlmock.NewRows(orderRow).AddRow("o-1", "s-1", 7, "PAID", "UNFULFILLED", "PENDING", "COMPLETED",
			"30.00", "0", "0", "30.00", "usd", nil, "pp-1", nil, []byte(`{"email":"a@b.test"}`), nil, nil,
			"", "", "", "web", true, now, now))
	mock.ExpectQuery(`SELECT .* FROM order_items WHERE order_id = \$1`).WithArgs("o-1").WillReturnRows(
		sqlmock.NewRows([]string{"id", "order_id", "variant_id", "title", "price", "quantity", "total_discount"}).
			AddRow("i-1", "o-1", "v-1", "Kibble", "10.00", 3, "0"))
	mock.ExpectCommit()

	var got Order
	err = tx.WithinTx(context.Background(), func(ctx context.Context) error {
		got, err = repo.Get(ctx, "o-1")
		return err
	})
	if err != nil {
		t.Fatalf("expected nil err, got %v", err)
	}
	if got.OrderNumber != 7 || got.FinancialStatus != FinancialPaid || !got.InventoryCommitted {
		t.Fatalf("unexpected order %+v", got)
	}
	if got.CouponID != nil || got.PaymentProviderID == nil || *got.PaymentProviderID != "pp-1" {
		t.Fatalf("nullable references not mapped: %+v", got)
	}
	if got.CustomerInfo["email"] != "a@b.test" || got.ShippingAddress != nil {
		t.Fatalf("json columns not decoded: %+v", got)
	}
	if len(got.LineItems) != 1 || !got.LineItems[0].Price.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("unexpected items %+v", got.LineItems)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestGet_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectQuery("SELECT .* FROM orders WHERE id").WithArgs("nope").WillReturnError(sql.ErrNoRows)

	if _, err := repo.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreate_DuplicateNumber(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectExec("INSERT INTO orders").WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err = repo.Create(context.Background(), Order{ID: "o-1", StoreID: "s-1", OrderNumber: 1, CurrencyID: "usd"})
	if !errors.Is(err, ErrDuplicateNumber) {
		t.Fatalf("expected ErrDuplicateNumber, got %v", err)
	}
}

func TestNextNumber(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectQuery(`SELECT COALESCE\(MAX\(order_number\), 0\) \+ 1 FROM orders`).WithArgs("s-1").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(12))

	n, err := repo.NextNumber(context.Background(), "s-1")
	if err != nil || n != 12 {
		t.Fatalf("expected 12, got %d (%v)", n, err)
	}
}
