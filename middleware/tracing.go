package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/shrek82/jorm-hashids/core"
)

// ContextKey is the type of the context keys Tracing reads.
type ContextKey string

const (
	RequestIDKey ContextKey = "request_id"
	UserIPKey    ContextKey = "user_ip"
	TraceIDKey   ContextKey = "trace_id"
	QueryIDKey   ContextKey = "query_id"
)

// TracingMiddleware copies request identifiers from the context onto the
// query logger, and gives every query a query_id.
type TracingMiddleware struct {
	newID func() string
}

func NewTracing() *TracingMiddleware {
	return &TracingMiddleware{newID: uuid.NewString}
}

func (m *TracingMiddleware) Name() string {
	return "Tracing"
}

func (m *TracingMiddleware) Init(db *core.DB) error {
	return nil
}

func (m *TracingMiddleware) Shutdown() error {
	return nil
}

func (m *TracingMiddleware) Process(ctx context.Context, q *core.Query, next core.QueryFunc) (*core.Result, error) {
	fields := make(map[string]any, 4)
	for _, key := range []ContextKey{RequestIDKey, UserIPKey, TraceIDKey} {
		if v := ctx.Value(key); v != nil {
			fields[string(key)] = v
		}
	}

	queryID, _ := ctx.Value(QueryIDKey).(string)
	if queryID == "" {
		queryID = m.newID()
		ctx = context.WithValue(ctx, QueryIDKey, queryID)
	}
	fields[string(QueryIDKey)] = queryID

	q.WithFields(fields)
	return next(ctx, q)
}
