package core

import (
	"sort"
	"strings"
	"sync"

	"github.com/shrek82/jorm-hashids/dialect"
)

// Builder defines the interface for building SQL statements.
// Conditions are written with "?" placeholders, rewritten for the dialect
// when the statement is built.
type Builder interface {
	// SetTable sets the target table for the SQL statement.
	SetTable(name string) Builder
	// Select specifies the column expressions to retrieve.
	Select(columns ...string) Builder
	// Where adds an AND condition to the WHERE clause.
	Where(cond string, args ...any) Builder
	// OrderBy adds columns for the ORDER BY clause (e.g., "id DESC").
	OrderBy(columns ...string) Builder
	// Limit sets the maximum number of rows to return.
	Limit(n int) Builder
	// Offset sets the number of rows to skip.
	Offset(n int) Builder
	// BuildSelect generates the final SELECT statement and its arguments.
	BuildSelect() (string, []any)
	// BuildInsert generates the final INSERT statement and its arguments.
	BuildInsert(columns []string) (string, []any)
	// BuildUpdate generates the final UPDATE statement and its arguments.
	BuildUpdate(data map[string]any) (string, []any)
	// BuildDelete generates the final DELETE statement and its arguments.
	BuildDelete() (string, []any)
}

type sqlBuilder struct {
	dialect    dialect.Dialect
	table      string
	selectCols []string
	whereExpr  string
	whereArgs  []any
	orderBy    []string
	limitSet   bool
	limit      int
	offsetSet  bool
	offset     int
	sb         strings.Builder
}

var builderPool = sync.Pool{
	New: func() any {
		return &sqlBuilder{}
	},
}

// NewBuilder creates a new sqlBuilder instance with the given dialect.
func NewBuilder(d dialect.Dialect) Builder {
	b := builderPool.Get().(*sqlBuilder)
	b.Reset(d)
	return b
}

// PutBuilder returns a sqlBuilder to the pool for reuse.
func PutBuilder(b Builder) {
	if sb, ok := b.(*sqlBuilder); ok {
		sb.Reset(nil)
		builderPool.Put(sb)
	}
}

// Reset clears all builder state and prepares it for a new query with the given dialect.
func (b *sqlBuilder) Reset(d dialect.Dialect) {
	b.dialect = d
	b.table = ""
	b.selectCols = b.selectCols[:0]
	b.whereExpr = ""
	b.whereArgs = b.whereArgs[:0]
	b.orderBy = b.orderBy[:0]
	b.limitSet = false
	b.limit = 0
	b.offsetSet = false
	b.offset = 0
	b.sb.Reset()
}

func (b *sqlBuilder) SetTable(name string) Builder {
	b.table = name
	return b
}

func (b *sqlBuilder) Select(columns ...string) Builder {
	b.selectCols = append(b.selectCols, columns...)
	return b
}

func (b *sqlBuilder) Where(cond string, args ...any) Builder {
	if cond == "" {
		return b
	}
	if b.whereExpr == "" {
		b.whereExpr = "(" + cond + ")"
	} else {
		b.whereExpr = b.whereExpr + " AND (" + cond + ")"
	}
	b.whereArgs = append(b.whereArgs, args...)
	return b
}

func (b *sqlBuilder) OrderBy(columns ...string) Builder {
	b.orderBy = append(b.orderBy, columns...)
	return b
}

func (b *sqlBuilder) Limit(n int) Builder {
	b.limitSet = true
	b.limit = n
	return b
}

func (b *sqlBuilder) Offset(n int) Builder {
	b.offsetSet = true
	b.offset = n
	return b
}

// replacePlaceholders rewrites each "?" as the dialect's placeholder.
func (b *sqlBuilder) replacePlaceholders(sql string) string {
	if !strings.Contains(sql, "?") {
		return sql
	}

	b.sb.Reset()
	index := 1
	for {
		idx := strings.IndexByte(sql, '?')
		if idx == -1 {
			b.sb.WriteString(sql)
			break
		}
		b.sb.WriteString(sql[:idx])
		b.sb.WriteString(b.dialect.Placeholder(index))
		sql = sql[idx+1:]
		index++
	}
	return b.sb.String()
}

func (b *sqlBuilder) writeWhere(args []any) []any {
	if b.whereExpr != "" {
		b.sb.WriteString(" WHERE ")
		b.sb.WriteString(b.whereExpr)
		args = append(args, b.whereArgs...)
	}
	return args
}

func (b *sqlBuilder) BuildSelect() (string, []any) {
	b.sb.Reset()
	args := make([]any, 0, len(b.whereArgs)+2)

	b.sb.WriteString("SELECT ")
	if len(b.selectCols) > 0 {
		b.sb.WriteString(strings.Join(b.selectCols, ", "))
	} else {
		b.sb.WriteString("*")
	}

	b.sb.WriteString(" FROM ")
	b.sb.WriteString(b.dialect.Quote(b.table))

	args = b.writeWhere(args)

	if len(b.orderBy) > 0 {
		b.sb.WriteString(" ORDER BY ")
		b.sb.WriteString(strings.Join(b.orderBy, ", "))
	}

	if b.limitSet {
		b.sb.WriteString(" LIMIT ?")
		args = append(args, b.limit)
	}

	if b.offsetSet {
		b.sb.WriteString(" OFFSET ?")
		args = append(args, b.offset)
	}

	return b.replacePlaceholders(b.sb.String()), args
}

func (b *sqlBuilder) BuildInsert(columns []string) (string, []any) {
	return b.dialect.InsertSQL(b.table, columns)
}

func (b *sqlBuilder) BuildUpdate(data map[string]any) (string, []any) {
	b.sb.Reset()
	args := make([]any, 0, len(data)+len(b.whereArgs))

	b.sb.WriteString("UPDATE ")
	b.sb.WriteString(b.dialect.Quote(b.table))
	b.sb.WriteString(" SET ")

	// Sorted for deterministic SQL.
	columns := make([]string, 0, len(data))
	for col := range data {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	for i, col := range columns {
		if i > 0 {
			b.sb.WriteString(", ")
		}
		b.sb.WriteString(b.dialect.Quote(col))
		b.sb.WriteString(" = ?")
		args = append(args, data[col])
	}

	args = b.writeWhere(args)
	return b.replacePlaceholders(b.sb.String()), args
}

func (b *sqlBuilder) BuildDelete() (string, []any) {
	b.sb.Reset()
	args := make([]any, 0, len(b.whereArgs))

	b.sb.WriteString("DELETE FROM ")
	b.sb.WriteString(b.dialect.Quote(b.table))

	args = b.writeWhere(args)
	return b.replacePlaceholders(b.sb.String()), args
}
