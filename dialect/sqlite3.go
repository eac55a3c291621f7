package dialect

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	sqlite3driver "github.com/mattn/go-sqlite3"
	"github.com/shrek82/jorm-hashids/model"
)

// SQLite dialect implementation
type sqlite3 struct{}

func init() {
	Register("sqlite3", &sqlite3{})
}

func (d *sqlite3) DataTypeOf(typ reflect.Type) string {
	switch storageKind(typ) {
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uintptr,
		reflect.Int64, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "real"
	case reflect.String:
		return "text"
	case reflect.Struct:
		return "datetime"
	}
	return invalidType(typ)
}

func (d *sqlite3) Quote(name string) string {
	return fmt.Sprintf("`%s`", name)
}

func (d *sqlite3) Placeholder(index int) string {
	return "?"
}

func (d *sqlite3) InsertSQL(table string, columns []string) (string, []any) {
	if len(columns) == 0 {
		return fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", d.Quote(table)), nil
	}
	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = "?"
	}
	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.Quote(table),
		quoteAll(d, columns),
		strings.Join(placeholders, ", "),
	)
	return sql, nil
}

func (d *sqlite3) BatchInsertSQL(table string, columns []string, count int) (string, []any) {
	return batchInsertSQL(d, table, columns, count), nil
}

func (d *sqlite3) CreateTableSQL(m *model.Model) (string, []any) {
	var columns []string
	for _, field := range m.Fields {
		column := fmt.Sprintf("%s %s", d.Quote(field.Column), columnType(d, field))
		if field.IsPK {
			column += " PRIMARY KEY"
		}
		if field.IsAuto {
			column += " AUTOINCREMENT"
		}
		column += columnConstraints(field)
		columns = append(columns, column)
	}
	sql := fmt.Sprintf("CREATE TABLE %s (%s)", d.Quote(m.TableName), strings.Join(columns, ", "))
	return sql, nil
}

func (d *sqlite3) HasTableSQL(tableName string) (string, []any) {
	return "SELECT count(*) FROM sqlite_master WHERE type='table' AND name = ?", []any{tableName}
}

func (d *sqlite3) TranslateError(err error) error {
	var se sqlite3driver.Error
	if errors.As(err, &se) &&
		(se.ExtendedCode == sqlite3driver.ErrConstraintUnique || se.ExtendedCode == sqlite3driver.ErrConstraintPrimaryKey) {
		return fmt.Errorf("%w: %v", ErrDuplicateKey, err)
	}
	return err
}
