package coupon

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestIncrementUsage_CapReached(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectQuery(`UPDATE coupons SET used_count = used_count \+ 1.* AND \(max_uses IS NULL OR used_count < max_uses\)`).
		WithArgs("c-1").WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM coupons WHERE id = \$1\)`).
		WithArgs("c-1").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	if _, err := repo.IncrementUsage(context.Background(), "c-1"); !errors.Is(err, ErrUsageExhausted) {
		t.Fatalf("expected ErrUsageExhausted, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestIncrementUsage_UnknownCoupon(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectQuery(`UPDATE coupons SET used_count`).WithArgs("nope").WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`SELECT EXISTS`).WithArgs("nope").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	if _, err := repo.IncrementUsage(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
