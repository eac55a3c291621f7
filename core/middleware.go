package core

import (
	"context"
)

// Component is the base interface for all JORM components/middleware.
type Component interface {
	Name() string
	Init(db *DB) error
	Shutdown() error
}

// Result represents the result of a query execution.
// Middlewares always receive a non-nil Result from next.
type Result struct {
	RowsAffected int64
	Data         any // rows for Values, the destination for Find/First/Scan, the count for Count
	Error        error
}

// QueryFunc is the function type for the next step in the middleware chain.
type QueryFunc func(ctx context.Context, q *Query) (*Result, error)

// QueryMiddleware is the interface for query interceptors.
type QueryMiddleware interface {
	Component
	Process(ctx context.Context, q *Query, next QueryFunc) (*Result, error)
}

// chain wraps final with mws, the first middleware outermost.
func chain(mws []QueryMiddleware, final QueryFunc) QueryFunc {
	next := final
	for i := len(mws) - 1; i >= 0; i-- {
		mw, inner := mws[i], next
		next = func(ctx context.Context, q *Query) (*Result, error) {
			return mw.Process(ctx, q, inner)
		}
	}
	return next
}
