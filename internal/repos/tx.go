package repos

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrNoStock is returned by guarded stock updates that matched no row.
	ErrNoStock = errors.New("stock guard rejected update")
	// ErrDuplicate wraps inserts rejected by a unique index.
	ErrDuplicate = errors.New("duplicate key")
)

// IsNoRows reports whether err means the row does not exist.
func IsNoRows(err error) bool { return errors.Is(err, sql.ErrNoRows) }

func isUniqueViolation(err error) bool {
	var pgErr *pq.Error
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

// WithTx runs fn inside a transaction. fn's error, a panic or ctx cancellation rolls back.
// On sqlite every statement inside fn must go through tx: the pool holds a single connection.
func WithTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// forUpdate appends a row lock clause where the driver has one.
func forUpdate(q sqlx.ExtContext, query string) string {
	if q.DriverName() == "postgres" {
		return query + " FOR UPDATE OF p"
	}
	return query
}
