package dialect

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/lib/pq"
	"github.com/shrek82/jorm-hashids/model"
)

// PostgreSQL dialect implementation
type postgres struct{}

func init() {
	Register("postgres", &postgres{})
}

func (d *postgres) DataTypeOf(typ reflect.Type) string {
	switch storageKind(typ) {
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uintptr:
		return "integer"
	case reflect.Int64, reflect.Uint64:
		return "bigint"
	case reflect.Float32:
		return "real"
	case reflect.Float64:
		return "double precision"
	case reflect.String:
		return "varchar(255)"
	case reflect.Struct:
		return "timestamp with time zone"
	}
	return invalidType(typ)
}

func (d *postgres) Quote(name string) string {
	// PostgreSQL uses double quotes for identifiers
	return fmt.Sprintf(`"%s"`, name)
}

func (d *postgres) Placeholder(index int) string {
	return fmt.Sprintf("$%d", index)
}

func (d *postgres) InsertSQL(table string, columns []string) (string, []any) {
	if len(columns) == 0 {
		return fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", d.Quote(table)), nil
	}
	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = d.Placeholder(i + 1)
	}
	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.Quote(table),
		quoteAll(d, columns),
		strings.Join(placeholders, ", "),
	)
	return sql, nil
}

// ReturningSQL makes INSERT report the generated key; lib/pq has no LastInsertId.
func (d *postgres) ReturningSQL(column string) string {
	return " RETURNING " + d.Quote(column)
}

func (d *postgres) BatchInsertSQL(table string, columns []string, count int) (string, []any) {
	return batchInsertSQL(d, table, columns, count), nil
}

func (d *postgres) CreateTableSQL(m *model.Model) (string, []any) {
	var columns []string
	for _, field := range m.Fields {
		dataType := columnType(d, field)
		if field.Size > 0 && strings.HasPrefix(dataType, "varchar") {
			dataType = fmt.Sprintf("varchar(%d)", field.Size)
		}
		if field.IsAuto {
			// serial types carry their own sequence
			if dataType == "bigint" {
				dataType = "BIGSERIAL"
			} else {
				dataType = "SERIAL"
			}
		}
		column := fmt.Sprintf("%s %s", d.Quote(field.Column), dataType)
		if field.IsPK {
			column += " PRIMARY KEY"
		}
		column += columnConstraints(field)
		columns = append(columns, column)
	}
	sql := fmt.Sprintf("CREATE TABLE %s (%s)", d.Quote(m.TableName), strings.Join(columns, ", "))
	return sql, nil
}

func (d *postgres) HasTableSQL(tableName string) (string, []any) {
	return "SELECT count(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = $1", []any{tableName}
}

func (d *postgres) TranslateError(err error) error {
	var pe *pq.Error
	if errors.As(err, &pe) && pe.Code.Name() == "unique_violation" {
		return fmt.Errorf("%w: %v", ErrDuplicateKey, err)
	}
	return err
}
