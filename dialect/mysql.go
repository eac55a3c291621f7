package dialect

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/shrek82/jorm-hashids/model"
)

const mysqlDuplicateEntry = 1062

// MySQL dialect implementation
type mysql struct{}

func init() {
	Register("mysql", &mysql{})
}

func (d *mysql) DataTypeOf(typ reflect.Type) string {
	switch storageKind(typ) {
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uintptr:
		return "int"
	case reflect.Int64, reflect.Uint64:
		return "bigint"
	case reflect.Float32, reflect.Float64:
		return "double"
	case reflect.String:
		return "varchar(255)"
	case reflect.Struct:
		return "datetime"
	}
	return invalidType(typ)
}

func (d *mysql) Quote(name string) string {
	return fmt.Sprintf("`%s`", name)
}

func (d *mysql) Placeholder(index int) string {
	return "?"
}

func (d *mysql) InsertSQL(table string, columns []string) (string, []any) {
	if len(columns) == 0 {
		return fmt.Sprintf("INSERT INTO %s () VALUES ()", d.Quote(table)), nil
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

func (d *mysql) BatchInsertSQL(table string, columns []string, count int) (string, []any) {
	return batchInsertSQL(d, table, columns, count), nil
}

func (d *mysql) CreateTableSQL(m *model.Model) (string, []any) {
	var columns []string
	for _, field := range m.Fields {
		dataType := columnType(d, field)
		if field.Size > 0 && strings.HasPrefix(dataType, "varchar") {
			dataType = fmt.Sprintf("varchar(%d)", field.Size)
		}
		column := fmt.Sprintf("%s %s", d.Quote(field.Column), dataType)
		if field.IsPK {
			column += " PRIMARY KEY"
		}
		if field.IsAuto {
			column += " AUTO_INCREMENT"
		}
		column += columnConstraints(field)
		columns = append(columns, column)
	}
	sql := fmt.Sprintf("CREATE TABLE %s (%s)", d.Quote(m.TableName), strings.Join(columns, ", "))
	return sql, nil
}

func (d *mysql) HasTableSQL(tableName string) (string, []any) {
	return "SELECT count(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?", []any{tableName}
}

func (d *mysql) TranslateError(err error) error {
	var me *mysqldriver.MySQLError
	if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
		return fmt.Errorf("%w: %v", ErrDuplicateKey, err)
	}
	return err
}
