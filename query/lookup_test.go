package query

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shrek82/jorm-hashids/hashids"
	"github.com/shrek82/jorm-hashids/model"
)

type item struct {
	ID     int64 `jorm:"pk auto"`
	Name   string
	Hashid hashids.Field `jorm:"salt:query-test"`
}

func backtick(name string) string { return "`" + name + "`" }

func setup(t *testing.T) (*model.Model, hashids.Encoder) {
	t.Helper()
	m, err := model.GetModel(&item{})
	require.NoError(t, err)
	return m, hashids.MustNew(hashids.Config{Salt: "query-test"})
}

func encode(t *testing.T, enc hashids.Encoder, n int64) string {
	t.Helper()
	s, err := enc.Encode(n)
	require.NoError(t, err)
	return s
}

func TestParseLookup(t *testing.T) {
	cases := map[string]struct {
		name string
		op   Operator
	}{
		"hashid":           {"hashid", Exact},
		"hashid__exact":    {"hashid", Exact},
		"hashid__in":       {"hashid", In},
		"hashid__lt":       {"hashid", Lt},
		"hashid__lte":      {"hashid", Lte},
		"hashid__gt":       {"hashid", Gt},
		"hashid__gte":      {"hashid", Gte},
		"created__at__gte": {"created__at", Gte},
	}
	for expr, want := range cases {
		name, op, err := ParseLookup(expr)
		require.NoError(t, err, expr)
		assert.Equal(t, want.name, name, expr)
		assert.Equal(t, want.op, op, expr)
	}

	_, _, err := ParseLookup("hashid__contains")
	assert.ErrorIs(t, err, ErrUnsupportedLookup)
}

func TestTranslateDerivedGolden(t *testing.T) {
	m, enc := setup(t)

	cases := []struct {
		name  string
		op    Operator
		value any
	}{
		{"exact", Exact, encode(t, enc, 5)},
		{"exact_invalid", Exact, "!!!"},
		{"exact_nil", Exact, nil},
		{"in_mixed", In, []string{encode(t, enc, 1), "nope!", encode(t, enc, 2)}},
		{"in_all_invalid", In, []string{"nope!", ""}},
		{"in_empty", In, []string{}},
		{"in_rows", In, []map[string]any{{"hashid": encode(t, enc, 3)}, {"hashid": encode(t, enc, 4)}}},
		{"lt", Lt, encode(t, enc, 2)},
		{"lte", Lte, encode(t, enc, 2)},
		{"gt", Gt, encode(t, enc, 1)},
		{"gte", Gte, encode(t, enc, 1)},
	}

	var sb strings.Builder
	for _, c := range cases {
		p, err := Translate(m, "hashid", c.op, c.value)
		require.NoError(t, err, c.name)
		sql, args := p.SQL(backtick)
		fmt.Fprintf(&sb, "%s: %s %v\n", c.name, sql, args)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "derived_lookups", []byte(sb.String()))
}

func TestTranslateOrderingRejectsInvalid(t *testing.T) {
	m, _ := setup(t)

	for _, op := range []Operator{Lt, Lte, Gt, Gte} {
		_, err := Translate(m, "hashid", op, "!!!")
		assert.ErrorIs(t, err, ErrInvalidHashid, string(op))
	}
}

func TestTranslateDecodesToSourceValue(t *testing.T) {
	m, enc := setup(t)

	p, err := Translate(m, "Hashid", Exact, encode(t, enc, 77))
	require.NoError(t, err)
	assert.Equal(t, "id", p.Column)
	assert.Equal(t, []any{int64(77)}, p.Args)
	assert.False(t, p.None)

	// ordering is by the integer, not by the encoded strings
	p, err = Translate(m, "hashid", Lt, encode(t, enc, 10))
	require.NoError(t, err)
	assert.Equal(t, Predicate{Column: "id", Op: Lt, Args: []any{int64(10)}}, p)
}

func TestTranslateOperandErrors(t *testing.T) {
	m, _ := setup(t)

	_, err := Translate(m, "hashid", Exact, 12)
	assert.ErrorIs(t, err, ErrInvalidOperand)

	_, err = Translate(m, "hashid", In, "not-a-slice")
	assert.ErrorIs(t, err, ErrInvalidOperand)

	_, err = Translate(m, "hashid", In, []any{"x", 3})
	assert.ErrorIs(t, err, ErrInvalidOperand)

	_, err = Translate(m, "hashid", Gt, nil)
	assert.ErrorIs(t, err, ErrInvalidOperand)

	_, err = Translate(m, "missing", Exact, "x")
	assert.ErrorIs(t, err, model.ErrUnknownField)

	_, err = Translate(m, "hashid", Operator("contains"), "x")
	assert.ErrorIs(t, err, ErrUnsupportedLookup)
}

func TestTranslatePhysicalColumn(t *testing.T) {
	m, _ := setup(t)

	p, err := Translate(m, "id", Exact, 3)
	require.NoError(t, err)
	sql, args := p.SQL(backtick)
	assert.Equal(t, "`id` = ?", sql)
	assert.Equal(t, []any{3}, args)

	p, err = Translate(m, "id", In, []int64{1, 2, 3})
	require.NoError(t, err)
	sql, args = p.SQL(backtick)
	assert.Equal(t, "`id` IN (?, ?, ?)", sql)
	assert.Equal(t, []any{int64(1), int64(2), int64(3)}, args)

	p, err = Translate(m, "id", In, []int64{})
	require.NoError(t, err)
	sql, _ = p.SQL(backtick)
	assert.Equal(t, "1 = 0", sql)

	p, err = Translate(m, "name", Gte, "m")
	require.NoError(t, err)
	sql, _ = p.SQL(nil)
	assert.Equal(t, "name >= ?", sql)

	p, err = Translate(m, "name", Exact, nil)
	require.NoError(t, err)
	sql, _ = p.SQL(backtick)
	assert.Equal(t, "`name` IS NULL", sql)
}
