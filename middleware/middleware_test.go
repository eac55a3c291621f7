package middleware

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shrek82/jorm-hashids/core"
	"github.com/shrek82/jorm-hashids/hashids"
	"github.com/shrek82/jorm-hashids/logger"
)

type widget struct {
	ID     int64         `jorm:"pk auto"`
	Hashid hashids.Field `jorm:"salt:middleware"`
}

func openDB(t *testing.T, l logger.Logger) *core.DB {
	t.Helper()
	db, err := core.Open("sqlite3", ":memory:", &core.Options{MaxOpenConns: 1, Logger: l})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.AutoMigrate(&widget{}))
	_, err = db.Model(&widget{}).Insert(&widget{})
	require.NoError(t, err)
	return db
}

func TestSlowLog(t *testing.T) {
	db := openDB(t, logger.NewSilentLogger())

	buf := &bytes.Buffer{}
	slow := NewSlowLog(0, "")
	slow.SetOutput(buf)
	require.NoError(t, db.Use(slow))

	_, err := db.Model(&widget{}).Filter("hashid", "nope").Count()
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "[SLOW SQL]")
	assert.Contains(t, out, "sql=SELECT COUNT(*) FROM `widget` WHERE (1 = 0)")
	assert.Contains(t, out, "rows=1")
}

func TestSlowLogThreshold(t *testing.T) {
	db := openDB(t, logger.NewSilentLogger())

	buf := &bytes.Buffer{}
	slow := NewSlowLog(time.Hour, "")
	slow.SetOutput(buf)
	require.NoError(t, db.Use(slow))

	_, err := db.Model(&widget{}).Values("hashid")
	require.NoError(t, err)
	assert.Empty(t, buf.String())
}

func TestSlowLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slow", "slow.log")
	db := openDB(t, logger.NewSilentLogger())

	slow := NewSlowLog(0, path)
	require.NoError(t, db.Use(slow))

	var ids []string
	require.NoError(t, db.Model(&widget{}).Pluck("hashid", &ids))
	require.NoError(t, slow.Shutdown())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "SELECT `id` FROM `widget`")
}

func TestTracing(t *testing.T) {
	buf := &bytes.Buffer{}
	l := logger.NewStdLogger()
	l.SetFormat(logger.LogFormatJSON)
	l.SetOutput(buf)
	db := openDB(t, l)

	tracing := NewTracing()
	tracing.newID = func() string { return "generated" }
	require.NoError(t, db.Use(tracing))

	buf.Reset()
	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")
	_, err := db.Model(&widget{}).WithContext(ctx).Count()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"request_id":"req-1"`)
	assert.Contains(t, buf.String(), `"query_id":"generated"`)

	buf.Reset()
	ctx = context.WithValue(context.Background(), QueryIDKey, "caller")
	_, err = db.Model(&widget{}).WithContext(ctx).Count()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"query_id":"caller"`)
	assert.NotContains(t, buf.String(), "request_id")
}

func TestTracingDefaultIDs(t *testing.T) {
	a, b := NewTracing().newID(), NewTracing().newID()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}
