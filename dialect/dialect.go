package dialect

import (
	"database/sql"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/shrek82/jorm-hashids/model"
)

// Dialect represents the interface for database-specific SQL generation and type mapping.
// Each database (MySQL, SQLite, etc.) must implement this interface to be supported.
type Dialect interface {
	// DataTypeOf returns the database-specific data type for a Go reflect.Type
	DataTypeOf(typ reflect.Type) string
	// Quote wraps a name (table or column) in database-specific quotes
	Quote(name string) string
	// Placeholder returns the bind placeholder for the 1-based argument index
	Placeholder(index int) string
	// InsertSQL generates the INSERT statement for the given table and columns
	InsertSQL(table string, columns []string) (string, []any)
	// BatchInsertSQL generates a multi-row INSERT statement
	BatchInsertSQL(table string, columns []string, count int) (string, []any)
	// CreateTableSQL generates the CREATE TABLE statement for the given model
	CreateTableSQL(m *model.Model) (string, []any)
	// HasTableSQL generates the SQL to check if a table exists
	HasTableSQL(tableName string) (string, []any)
}

// ReturningDialect is implemented by dialects that report generated keys
// through a RETURNING clause rather than LastInsertId.
type ReturningDialect interface {
	ReturningSQL(column string) string
}

var dialects = make(map[string]Dialect)

// Register registers a new dialect for a given driver name
func Register(name string, d Dialect) {
	dialects[name] = d
}

// Get retrieves a registered dialect by driver name
func Get(name string) (Dialect, bool) {
	d, ok := dialects[name]
	return d, ok
}

var (
	timeType      = reflect.TypeOf(time.Time{})
	nullInt64Type = reflect.TypeOf(sql.NullInt64{})
	nullInt32Type = reflect.TypeOf(sql.NullInt32{})
	nullInt16Type = reflect.TypeOf(sql.NullInt16{})
	nullStrType   = reflect.TypeOf(sql.NullString{})
	nullFloatType = reflect.TypeOf(sql.NullFloat64{})
	nullBoolType  = reflect.TypeOf(sql.NullBool{})
	nullTimeType  = reflect.TypeOf(sql.NullTime{})
)

// storageKind maps a Go type to the kind of its column, looking through
// pointers and the database/sql Null wrappers.
func storageKind(typ reflect.Type) reflect.Kind {
	for typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	switch typ {
	case nullInt64Type:
		return reflect.Int64
	case nullInt32Type, nullInt16Type:
		return reflect.Int32
	case nullStrType:
		return reflect.String
	case nullFloatType:
		return reflect.Float64
	case nullBoolType:
		return reflect.Bool
	case timeType, nullTimeType:
		return reflect.Struct
	}
	if typ.Kind() == reflect.Struct {
		return reflect.Invalid
	}
	return typ.Kind()
}

func invalidType(typ reflect.Type) string {
	panic(fmt.Sprintf("invalid sql type %s (%s)", typ.Name(), typ.Kind()))
}

// columnType honours an explicit type: option before mapping the Go type.
func columnType(d Dialect, field *model.Field) string {
	if field.SQLType != "" {
		return field.SQLType
	}
	return d.DataTypeOf(field.Type)
}

func quoteAll(d Dialect, columns []string) string {
	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = d.Quote(col)
	}
	return strings.Join(quoted, ", ")
}

// columnConstraints renders the NOT NULL, UNIQUE and DEFAULT parts of a column.
func columnConstraints(field *model.Field) string {
	var sb strings.Builder
	if field.NotNull {
		sb.WriteString(" NOT NULL")
	}
	if field.Unique && !field.IsPK {
		sb.WriteString(" UNIQUE")
	}
	if field.Default != "" {
		sb.WriteString(" DEFAULT ")
		sb.WriteString(field.Default)
	}
	return sb.String()
}

func batchInsertSQL(d Dialect, table string, columns []string, count int) string {
	var rowPlaceholders []string
	argIndex := 1
	for i := 0; i < count; i++ {
		placeholders := make([]string, len(columns))
		for j := range columns {
			placeholders[j] = d.Placeholder(argIndex)
			argIndex++
		}
		rowPlaceholders = append(rowPlaceholders, "("+strings.Join(placeholders, ", ")+")")
	}

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		d.Quote(table),
		quoteAll(d, columns),
		strings.Join(rowPlaceholders, ", "),
	)
}
