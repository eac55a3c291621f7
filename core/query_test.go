package core_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shrek82/jorm-hashids/core"
	"github.com/shrek82/jorm-hashids/hashids"
	"github.com/shrek82/jorm-hashids/logger"
	"github.com/shrek82/jorm-hashids/model"
)

type account struct {
	ID        int64     `jorm:"pk auto"`
	Email     string    `jorm:"size:100 unique notnull"`
	Balance   int       `jorm:"default:0"`
	CreatedAt time.Time `jorm:"auto_time"`
	Ref       hashids.Field

	inserted bool
	found    bool
}

func (a *account) BeforeInsert() error {
	if a.Email == "" {
		return errors.New("email required")
	}
	return nil
}

func (a *account) AfterInsert(id int64) error {
	a.inserted = id > 0
	return nil
}

func (a *account) AfterFind() error {
	a.found = true
	return nil
}

func openAccounts(t *testing.T) *core.DB {
	t.Helper()
	db := openSQLite(t)
	require.NoError(t, db.AutoMigrate(&account{}))
	return db
}

func TestInsertAndFirst(t *testing.T) {
	db := openAccounts(t)

	a := &account{Email: "a@example.com", Balance: 10}
	id, err := db.Model(a).Insert(a)
	require.NoError(t, err)
	assert.Equal(t, id, a.ID)
	assert.True(t, a.inserted)
	assert.False(t, a.CreatedAt.IsZero())

	var got account
	require.NoError(t, db.Model(&account{}).Filter("email", "a@example.com").First(&got))
	assert.Equal(t, id, got.ID)
	assert.Equal(t, 10, got.Balance)
	assert.True(t, got.found)

	_, err = db.Model(&account{}).Insert(&account{})
	assert.EqualError(t, err, "email required")
}

func TestInsertDuplicateKey(t *testing.T) {
	db := openAccounts(t)

	_, err := db.Model(&account{}).Insert(&account{Email: "dup@example.com"})
	require.NoError(t, err)
	_, err = db.Model(&account{}).Insert(&account{Email: "dup@example.com"})
	assert.ErrorIs(t, err, core.ErrDuplicateKey)
}

func TestBatchInsert(t *testing.T) {
	db := openAccounts(t)

	n, err := db.Model(&account{}).BatchInsert([]*account{{Email: "x@example.com"}, {Email: "y@example.com"}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = db.Model(&account{}).BatchInsert([]account{})
	require.NoError(t, err)
	assert.Zero(t, n)

	seed(t, db, 0)
	n, err = db.Model(&testModel{}).BatchInsert([]testModel{{}, {}, {}})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	count, err := db.Model(&testModel{}).Count()
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestFindPointerSlice(t *testing.T) {
	db := openAccounts(t)
	for _, email := range []string{"b@example.com", "a@example.com"} {
		_, err := db.Model(&account{}).Insert(&account{Email: email})
		require.NoError(t, err)
	}

	var rows []*account
	require.NoError(t, db.Model(&account{}).OrderBy("email").Find(&rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "a@example.com", rows[0].Email)
	assert.True(t, rows[0].found)

	var page []account
	require.NoError(t, db.Model(&account{}).OrderBy("email").Limit(1).Offset(1).Find(&page))
	require.Len(t, page, 1)
	assert.Equal(t, "b@example.com", page[0].Email)
}

func TestUpdate(t *testing.T) {
	db := openAccounts(t)
	a := &account{Email: "a@example.com"}
	b := &account{Email: "b@example.com"}
	for _, r := range []*account{a, b} {
		_, err := db.Model(r).Insert(r)
		require.NoError(t, err)
	}

	n, err := db.Model(&account{}).Filter("id", a.ID).Update(map[string]any{"Balance": 7})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	a.Email = "a2@example.com"
	n, err = db.Model(a).Update(a)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var got account
	require.NoError(t, db.Model(&account{}).Filter("id", b.ID).First(&got))
	assert.Equal(t, "b@example.com", got.Email)

	_, err = db.Model(&account{}).Filter("id", a.ID).Update(map[string]any{"ref": "x"})
	assert.ErrorIs(t, err, core.ErrImmutableField)

	_, err = db.Model(&account{}).Update(map[string]any{})
	assert.ErrorIs(t, err, core.ErrInvalidQuery)
}

func TestDelete(t *testing.T) {
	db := openAccounts(t)
	a := &account{Email: "a@example.com"}
	_, err := db.Model(a).Insert(a)
	require.NoError(t, err)

	m, err := model.GetModel(a)
	require.NoError(t, err)
	ref, err := m.Get(a, "ref")
	require.NoError(t, err)

	n, err := db.Model(&account{}).Filter("ref", ref).Delete()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	count, err := db.Model(&account{}).Count()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestTransaction(t *testing.T) {
	db := openAccounts(t)

	err := db.Transaction(func(tx *core.Tx) error {
		_, err := tx.Model(&account{}).Insert(&account{Email: "tx@example.com"})
		require.NoError(t, err)
		return errors.New("abort")
	})
	assert.EqualError(t, err, "abort")

	count, err := db.Model(&account{}).Count()
	require.NoError(t, err)
	assert.Zero(t, count)

	err = db.Transaction(func(tx *core.Tx) error {
		_, err := tx.Model(&account{}).Insert(&account{Email: "tx@example.com"})
		return err
	})
	require.NoError(t, err)

	count, err = db.Model(&account{}).Count()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestTransactionLogsAndTranslates(t *testing.T) {
	db := openAccounts(t)
	buf := &bytes.Buffer{}
	l := logger.NewStdLogger()
	l.SetOutput(buf)
	db.SetLogger(l)

	err := db.Transaction(func(tx *core.Tx) error {
		if _, err := tx.Exec("INSERT INTO account (email, balance, created_at) VALUES (?, ?, ?)", "t@example.com", 1, time.Now()); err != nil {
			return err
		}
		_, err := tx.Exec("INSERT INTO account (email, balance, created_at) VALUES (?, ?, ?)", "t@example.com", 2, time.Now())
		return err
	})
	assert.ErrorIs(t, err, core.ErrDuplicateKey)

	out := buf.String()
	assert.Contains(t, out, "BEGIN")
	assert.Contains(t, out, "INSERT INTO account")
	assert.Contains(t, out, "ROLLBACK")
	assert.NotContains(t, out, "COMMIT")

	count, err := db.Model(&account{}).Count()
	require.NoError(t, err)
	assert.Zero(t, count)

	tx, err := db.Begin()
	require.NoError(t, err)
	_, err = tx.Exec("")
	assert.ErrorIs(t, err, core.ErrInvalidSQL)
	_, err = tx.Model(&account{}).Insert(&account{Email: "manual@example.com"})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	assert.Contains(t, buf.String(), "COMMIT")
	assert.Error(t, tx.Rollback())

	count, err = db.Model(&account{}).Count()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestRawScan(t *testing.T) {
	db := openAccounts(t)
	_, err := db.Exec("INSERT INTO account (email, balance, created_at) VALUES (?, ?, ?)", "raw@example.com", 3, time.Now())
	require.NoError(t, err)

	var rows []account
	require.NoError(t, db.Raw("SELECT * FROM account WHERE balance = ?", 3).Scan(&rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "raw@example.com", rows[0].Email)

	assert.ErrorIs(t, db.Table("account").Scan(&rows), core.ErrInvalidSQL)

	_, err = db.Exec("")
	assert.ErrorIs(t, err, core.ErrInvalidSQL)
}

type recorder struct {
	calls  []string
	failOn string
}

func (r *recorder) Name() string { return "recorder" }

func (r *recorder) Init(db *core.DB) error { return nil }

func (r *recorder) Shutdown() error { return nil }

func (r *recorder) Process(ctx context.Context, q *core.Query, next core.QueryFunc) (*core.Result, error) {
	if q.TableName() == r.failOn {
		return nil, errors.New("blocked")
	}
	res, err := next(ctx, q)
	r.calls = append(r.calls, q.LastSQL)
	return res, err
}

func TestMiddlewareChain(t *testing.T) {
	db := openSQLite(t)
	ids := seed(t, db, 2)

	rec := &recorder{failOn: "blocked_table"}
	require.NoError(t, db.Use(rec))

	_, err := db.Model(&testModel{}).Values("hashid")
	require.NoError(t, err)
	var hs []string
	require.NoError(t, db.Model(&testModel{}).Pluck("hashid", &hs))
	_, err = db.Model(&testModel{}).Filter("hashid", encode(t, ids[0])).Count()
	require.NoError(t, err)

	require.Len(t, rec.calls, 3)
	assert.Equal(t, "SELECT COUNT(*) FROM `test_model` WHERE (`id` = ?)", rec.calls[2])

	_, err = db.Table("blocked_table").Count()
	assert.EqualError(t, err, "blocked")

	// writes bypass the chain
	_, err = db.Model(&testModel{}).Insert(&testModel{})
	require.NoError(t, err)
	assert.Len(t, rec.calls, 3)
}

func TestOpen(t *testing.T) {
	db := openSQLite(t)
	assert.Equal(t, 1, db.Stats().MaxOpenConnections)

	_, err := core.Open("oracle", "", nil)
	assert.Error(t, err)

	_, err = core.Open("mysql", "nobody@tcp(127.0.0.1:1)/none?timeout=100ms", nil)
	assert.ErrorIs(t, err, core.ErrConnectionFailed)
}
