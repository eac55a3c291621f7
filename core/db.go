package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shrek82/jorm-hashids/dialect"
	"github.com/shrek82/jorm-hashids/logger"
	"github.com/shrek82/jorm-hashids/model"
	"github.com/shrek82/jorm-hashids/pool"
)

// Options defines the configuration for the DB connection pool.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// Logger replaces the default stdout logger when set.
	Logger logger.Logger
}

// DB is the main entry point for the ORM.
// It manages the database connection pool and provides methods to create queries.
type DB struct {
	pool    pool.Pool
	dialect dialect.Dialect

	mu          sync.RWMutex
	logger      logger.Logger
	middlewares []QueryMiddleware
}

// Open initializes a new DB instance with the given driver and DSN.
func Open(driver, dsn string, opts *Options) (*DB, error) {
	d, ok := dialect.Get(driver)
	if !ok {
		return nil, fmt.Errorf("unknown dialect %s", driver)
	}

	var limits pool.Limits
	l := logger.NewStdLogger()
	if opts != nil {
		limits = pool.Limits{
			MaxOpenConns:    opts.MaxOpenConns,
			MaxIdleConns:    opts.MaxIdleConns,
			ConnMaxLifetime: opts.ConnMaxLifetime,
		}
		if opts.Logger != nil {
			l = opts.Logger
		}
	}

	p, err := pool.Open(context.Background(), driver, dsn, limits)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	return &DB{
		pool:    p,
		dialect: d,
		logger:  l,
	}, nil
}

// Close shuts down the middlewares and closes the database connection.
func (db *DB) Close() error {
	db.mu.Lock()
	mws := db.middlewares
	db.middlewares = nil
	db.mu.Unlock()

	var errs []error
	for _, mw := range mws {
		if err := mw.Shutdown(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", mw.Name(), err))
		}
	}
	errs = append(errs, db.pool.Close())
	return errors.Join(errs...)
}

// Stats returns the connection pool statistics.
func (db *DB) Stats() sql.DBStats {
	return db.pool.Stats()
}

// SetLogger sets a custom logger for the DB.
func (db *DB) SetLogger(l logger.Logger) {
	db.mu.Lock()
	db.logger = l
	db.mu.Unlock()
}

// Logger returns the logger queries write to.
func (db *DB) Logger() logger.Logger {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.logger
}

// Dialect returns the SQL dialect of the connection.
func (db *DB) Dialect() dialect.Dialect {
	return db.dialect
}

// Use initialises and appends query middlewares. Reads issued afterwards
// (First, Find, Count, Scan, Values, Pluck) run through them in order.
func (db *DB) Use(mws ...QueryMiddleware) error {
	for _, mw := range mws {
		if err := mw.Init(db); err != nil {
			return fmt.Errorf("init middleware %s: %w", mw.Name(), err)
		}
		db.mu.Lock()
		db.middlewares = append(db.middlewares, mw)
		db.mu.Unlock()
	}
	return nil
}

func (db *DB) chain() []QueryMiddleware {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return append([]QueryMiddleware(nil), db.middlewares...)
}

func (db *DB) newQuery(exec Executor) *Query {
	return NewQuery(db, exec, NewBuilder(db.dialect))
}

// Model starts a new query builder for the given model instance.
func (db *DB) Model(value any) *Query {
	return db.newQuery(db.pool).Model(value)
}

// Table starts a new query builder for the given table name.
func (db *DB) Table(name string) *Query {
	return db.newQuery(db.pool).Table(name)
}

// Raw starts a new query with a raw SQL statement.
func (db *DB) Raw(sql string, args ...any) *Query {
	return db.newQuery(db.pool).Raw(sql, args...)
}

// logSQL logs the SQL execution if a logger is set.
func (db *DB) logSQL(sql string, duration time.Duration, args ...any) {
	if l := db.Logger(); l != nil {
		l.SQL(sql, duration, args...)
	}
}

// Exec executes a raw SQL statement without returning any rows.
func (db *DB) Exec(sqlStr string, args ...any) (sql.Result, error) {
	if sqlStr == "" {
		return nil, ErrInvalidSQL
	}
	start := time.Now()
	res, err := db.pool.ExecContext(context.Background(), sqlStr, args...)
	db.logSQL(sqlStr, time.Since(start), args...)
	return res, dialect.TranslateError(db.dialect, err)
}

// Begin starts a transaction. The caller must Commit or Rollback it.
func (db *DB) Begin() (*Tx, error) {
	start := time.Now()
	sqlTx, err := db.pool.BeginTx(context.Background(), nil)
	db.logSQL("BEGIN", time.Since(start))
	if err != nil {
		return nil, err
	}
	return &Tx{db: db, sqlTx: sqlTx}, nil
}

// Transaction executes a function within a database transaction.
// The transaction is committed when fn returns nil and rolled back otherwise.
func (db *DB) Transaction(fn func(tx *Tx) error) (err error) {
	tx, err := db.Begin()
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	return fn(tx)
}

// AutoMigrate creates the table for the given model if it doesn't exist.
// Only physical columns are created; derived fields have no storage.
func (db *DB) AutoMigrate(values ...any) error {
	ctx := context.Background()
	for _, value := range values {
		m, err := model.GetModel(value)
		if err != nil {
			return err
		}

		sqlStr, args := db.dialect.HasTableSQL(m.TableName)
		var count int
		if err := db.pool.QueryRowContext(ctx, sqlStr, args...).Scan(&count); err != nil {
			return err
		}
		if count > 0 {
			continue
		}

		createSQL, createArgs := db.dialect.CreateTableSQL(m)
		start := time.Now()
		_, err = db.pool.ExecContext(ctx, createSQL, createArgs...)
		db.logSQL(createSQL, time.Since(start), createArgs...)
		if err != nil {
			return fmt.Errorf("create table %s: %w", m.TableName, err)
		}
	}
	return nil
}
