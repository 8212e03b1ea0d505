package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/wichananm65/shop-admin-backend/internal/apperror"
)

// Postgres SQLSTATE codes that get a specific kind.
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// MapError classifies a driver error. Errors that already carry a kind are
// returned unchanged.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return apperror.Wrap(apperror.KindConflict, err, "unique constraint %s violated", pgErr.ConstraintName)
		case codeForeignKeyViolation:
			return apperror.Wrap(apperror.KindBadRequest, err, "invalid reference: %s", pgErr.ConstraintName)
		case codeSerializationFailure, codeDeadlockDetected:
			return apperror.Wrap(apperror.KindConflict, err, "concurrent update detected, retry the request")
		}
	}
	return apperror.Internal(err, "database error")
}

// IsUniqueViolation reports whether err is a Postgres unique violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation
}

// InTx reports whether ctx carries an open SQL transaction.
func InTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(*sql.Tx)
	return ok
}
