package pool

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Pool is the connection handle queries execute against outside a transaction.
type Pool interface {
	Close() error
	PingContext(ctx context.Context) error
	ExecContext(ctx context.Context, sqlStr string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, sqlStr string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, sqlStr string, args ...any) *sql.Row
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
	Stats() sql.DBStats
}

var _ Pool = (*StdPool)(nil)

// Limits bounds the connections a pool keeps. Zero values keep the
// database/sql defaults.
type Limits struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func (l Limits) apply(db *sql.DB) {
	if l.MaxOpenConns > 0 {
		db.SetMaxOpenConns(l.MaxOpenConns)
	}
	if l.MaxIdleConns > 0 {
		db.SetMaxIdleConns(l.MaxIdleConns)
	}
	if l.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(l.ConnMaxLifetime)
	}
}

// StdPool is a Pool backed by *sql.DB.
type StdPool struct {
	*sql.DB
	driver string
}

// Open opens driver with dsn, applies limits and pings the database once.
// The handle is closed again when the ping fails.
func Open(ctx context.Context, driver, dsn string, limits Limits) (*StdPool, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	limits.apply(db)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return &StdPool{DB: db, driver: driver}, nil
}

// Driver returns the database/sql driver name the pool was opened with.
func (p *StdPool) Driver() string {
	return p.driver
}
