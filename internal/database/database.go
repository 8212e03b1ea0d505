// Package database opens the Postgres connection and runs multi-step
// mutations inside one transaction. The active *sql.Tx travels in the
// context so repositories from different packages join the same unit of
// work without knowing about each other.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Querier is the subset of *sql.DB and *sql.Tx used by repositories.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Transactor runs fn as one atomic unit. Calls nested inside fn join the
// outer unit instead of opening a new one.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type txKey struct{}

// Open connects through the pgx stdlib driver and pings the server.
func Open(ctx context.Context, url string) (*sql.DB, error) {
	if url == "" {
		return nil, fmt.Errorf("database url is empty")
	}
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Conn returns the transaction stored in ctx, or db when there is none.
func Conn(ctx context.Context, db *sql.DB) Querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return db
}

// ParseIsolation maps the config spelling to a database/sql level.
func ParseIsolation(s string) (sql.IsolationLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "serializable":
		return sql.LevelSerializable, nil
	case "repeatable-read", "repeatable_read":
		return sql.LevelRepeatableRead, nil
	case "read-committed", "read_committed":
		return sql.LevelReadCommitted, nil
	}
	return sql.LevelDefault, fmt.Errorf("unknown isolation level %q", s)
}

// SQLTransactor opens database transactions at a fixed isolation level.
type SQLTransactor struct {
	db        *sql.DB
	isolation sql.IsolationLevel
}

func NewSQLTransactor(db *sql.DB, isolation sql.IsolationLevel) *SQLTransactor {
	return &SQLTransactor{db: db, isolation: isolation}
}

func (t *SQLTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	tx, err := t.db.BeginTx(ctx, &sql.TxOptions{Isolation: t.isolation})
	if err != nil {
		return MapError(err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return MapError(err)
	}
	return nil
}
