package core

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shrek82/jorm-hashids/dialect"
)

// Tx is a database transaction. It is an Executor, so queries started from it
// run inside the transaction. Reads still go through the middleware chain.
type Tx struct {
	db    *DB
	sqlTx *sql.Tx
}

var _ Executor = (*Tx)(nil)

// Model starts a query for the given model inside the transaction.
func (tx *Tx) Model(value any) *Query {
	return tx.db.newQuery(tx).Model(value)
}

// Raw starts a raw query inside the transaction.
func (tx *Tx) Raw(sqlStr string, args ...any) *Query {
	return tx.db.newQuery(tx).Raw(sqlStr, args...)
}

// Table starts a query on a bare table name inside the transaction.
func (tx *Tx) Table(name string) *Query {
	return tx.db.newQuery(tx).Table(name)
}

// Exec runs a raw statement inside the transaction.
func (tx *Tx) Exec(sqlStr string, args ...any) (sql.Result, error) {
	if sqlStr == "" {
		return nil, ErrInvalidSQL
	}
	start := time.Now()
	res, err := tx.sqlTx.ExecContext(context.Background(), sqlStr, args...)
	tx.db.logSQL(sqlStr, time.Since(start), args...)
	return res, dialect.TranslateError(tx.db.dialect, err)
}

// Commit commits the transaction.
func (tx *Tx) Commit() error {
	return tx.finish("COMMIT", tx.sqlTx.Commit)
}

// Rollback rolls back the transaction.
func (tx *Tx) Rollback() error {
	return tx.finish("ROLLBACK", tx.sqlTx.Rollback)
}

func (tx *Tx) finish(stmt string, fn func() error) error {
	start := time.Now()
	err := fn()
	tx.db.logSQL(stmt, time.Since(start))
	if err != nil {
		return fmt.Errorf("%s: %w", stmt, err)
	}
	return nil
}

func (tx *Tx) QueryContext(ctx context.Context, sqlStr string, args ...any) (*sql.Rows, error) {
	return tx.sqlTx.QueryContext(ctx, sqlStr, args...)
}

func (tx *Tx) QueryRowContext(ctx context.Context, sqlStr string, args ...any) *sql.Row {
	return tx.sqlTx.QueryRowContext(ctx, sqlStr, args...)
}

func (tx *Tx) ExecContext(ctx context.Context, sqlStr string, args ...any) (sql.Result, error) {
	return tx.sqlTx.ExecContext(ctx, sqlStr, args...)
}
