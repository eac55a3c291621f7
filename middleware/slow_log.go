package middleware

import (
	"context"
	"io"
	"time"

	"github.com/shrek82/jorm-hashids/core"
	"github.com/shrek82/jorm-hashids/logger"
)

// SlowLogMiddleware logs queries that take longer than the specified threshold.
type SlowLogMiddleware struct {
	Threshold time.Duration
	LogPath   string
	logger    logger.Logger
	closeFn   func() error
}

// NewSlowLog creates a new SlowLogMiddleware.
// threshold: queries taking longer than this will be logged.
// logPath: path to a size-rotated log file. If empty, the DB logger is used.
func NewSlowLog(threshold time.Duration, logPath string) *SlowLogMiddleware {
	return &SlowLogMiddleware{
		Threshold: threshold,
		LogPath:   logPath,
	}
}

// SetOutput sends slow query lines to w instead.
func (m *SlowLogMiddleware) SetOutput(w io.Writer) {
	l := logger.NewStdLogger()
	l.SetLevel(logger.LogLevelWarn)
	l.SetOutput(w)
	m.logger = l
}

func (m *SlowLogMiddleware) Name() string {
	return "SlowLog"
}

func (m *SlowLogMiddleware) Init(db *core.DB) error {
	if m.logger != nil {
		return nil
	}

	if m.LogPath == "" {
		m.logger = db.Logger()
		return nil
	}

	l, closeFn, err := logger.NewFileLogger(logger.RotationConfig{File: m.LogPath})
	if err != nil {
		return err
	}
	m.logger = l
	m.closeFn = closeFn
	return nil
}

func (m *SlowLogMiddleware) Shutdown() error {
	if m.closeFn != nil {
		return m.closeFn()
	}
	return nil
}

func (m *SlowLogMiddleware) Process(ctx context.Context, q *core.Query, next core.QueryFunc) (*core.Result, error) {
	start := time.Now()
	res, err := next(ctx, q)
	duration := time.Since(start)

	if duration >= m.Threshold && m.logger != nil {
		sql, args := q.LastSQL, q.LastArgs
		if sql == "" {
			sql, args = q.GetSelectSQL()
		}
		var rows int64
		if res != nil {
			rows = res.RowsAffected
		}
		m.logger.Warn("[SLOW SQL] duration=%v | sql=%s | args=%v | rows=%d | err=%v", duration, sql, args, rows, err)
	}

	return res, err
}
