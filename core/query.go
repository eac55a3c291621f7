package core

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"time"

	"github.com/shrek82/jorm-hashids/dialect"
	"github.com/shrek82/jorm-hashids/logger"
	"github.com/shrek82/jorm-hashids/model"
)

// Executor defines the interface for executing SQL queries and commands.
// It is implemented by pool.Pool and *Tx.
type Executor interface {
	QueryContext(ctx context.Context, sqlStr string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, sqlStr string, args ...any) *sql.Row
	ExecContext(ctx context.Context, sqlStr string, args ...any) (sql.Result, error)
}

// Query is the chainable query builder and executor.
//
// Chain methods record the first error they hit; the terminal call
// (First, Find, Count, Values, Insert, ...) returns it without touching the database.
type Query struct {
	db       *DB
	executor Executor
	builder  Builder
	ctx      context.Context
	model    *model.Model
	log      logger.Logger
	err      error
	table    string
	filtered bool
	rawSQL   string
	rawArgs  []any

	// LastSQL and LastArgs hold the most recent statement the query ran.
	LastSQL  string
	LastArgs []any
}

// NewQuery creates a new Query instance.
func NewQuery(db *DB, executor Executor, builder Builder) *Query {
	return &Query{
		db:       db,
		executor: executor,
		builder:  builder,
		ctx:      context.Background(),
		log:      db.Logger(),
	}
}

// Model sets the target model for the query and parses its metadata.
func (q *Query) Model(value any) *Query {
	m, err := model.GetModel(value)
	if err != nil {
		q.err = err
		return q
	}
	q.model = m
	q.table = m.TableName
	q.builder.SetTable(m.TableName)
	return q
}

// Table sets the target table name for the query.
func (q *Query) Table(name string) *Query {
	q.table = name
	q.builder.SetTable(name)
	return q
}

// Where adds a raw WHERE condition with "?" placeholders.
func (q *Query) Where(cond string, args ...any) *Query {
	q.filtered = true
	q.builder.Where(cond, args...)
	return q
}

// Limit sets the LIMIT clause.
func (q *Query) Limit(n int) *Query {
	q.builder.Limit(n)
	return q
}

// Offset sets the OFFSET clause.
func (q *Query) Offset(n int) *Query {
	q.builder.Offset(n)
	return q
}

// OrderBy adds an ORDER BY clause.
func (q *Query) OrderBy(columns ...string) *Query {
	q.builder.OrderBy(columns...)
	return q
}

// WithContext sets the context for the query execution.
func (q *Query) WithContext(ctx context.Context) *Query {
	q.ctx = ctx
	return q
}

// WithFields attaches fields to every log line the query writes.
func (q *Query) WithFields(fields map[string]any) *Query {
	if q.log != nil {
		q.log = q.log.WithFields(fields)
	}
	return q
}

// Context returns the context the query runs with.
func (q *Query) Context() context.Context {
	return q.ctx
}

// TableName returns the table the query targets.
func (q *Query) TableName() string {
	return q.table
}

// Err returns the error recorded by the chain so far.
func (q *Query) Err() error {
	return q.err
}

// Raw sets a raw SQL query and its arguments.
func (q *Query) Raw(sql string, args ...any) *Query {
	q.rawSQL = sql
	q.rawArgs = args
	return q
}

// GetSelectSQL returns the SELECT the query would run.
func (q *Query) GetSelectSQL() (string, []any) {
	if q.rawSQL != "" {
		return q.rawSQL, q.rawArgs
	}
	return q.builder.BuildSelect()
}

// execute runs final through the DB's middlewares.
func (q *Query) execute(final QueryFunc) (*Result, error) {
	res, err := chain(q.db.chain(), final)(q.ctx, q)
	if res == nil {
		res = &Result{Error: err}
	}
	return res, err
}

func (q *Query) logSQL(sqlStr string, start time.Time, args []any) {
	q.LastSQL, q.LastArgs = sqlStr, args
	if q.log != nil {
		q.log.SQL(sqlStr, time.Since(start), args...)
	}
}

func (q *Query) exec(ctx context.Context, sqlStr string, args []any) (sql.Result, error) {
	start := time.Now()
	res, err := q.executor.ExecContext(ctx, sqlStr, args...)
	q.logSQL(sqlStr, start, args)
	if err != nil {
		return nil, dialect.TranslateError(q.db.dialect, err)
	}
	return res, nil
}

func (q *Query) queryContext(ctx context.Context, sqlStr string, args []any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := q.executor.QueryContext(ctx, sqlStr, args...)
	q.logSQL(sqlStr, start, args)
	return rows, err
}

// First retrieves the first record matching the query into dest.
func (q *Query) First(dest any) error {
	defer PutBuilder(q.builder)
	if q.err != nil {
		return q.err
	}
	q.builder.Limit(1)
	_, err := q.execute(func(ctx context.Context, cur *Query) (*Result, error) {
		sqlStr, args := cur.builder.BuildSelect()
		err := cur.queryRow(ctx, sqlStr, args, dest)
		if err != nil {
			return &Result{Error: err}, err
		}
		return &Result{RowsAffected: 1, Data: dest}, nil
	})
	return err
}

// Find retrieves all records matching the query into dest (must be a pointer to a slice).
func (q *Query) Find(dest any) error {
	defer PutBuilder(q.builder)
	if q.err != nil {
		return q.err
	}
	_, err := q.execute(func(ctx context.Context, cur *Query) (*Result, error) {
		sqlStr, args := cur.builder.BuildSelect()
		n, err := cur.queryRows(ctx, sqlStr, args, dest)
		return &Result{RowsAffected: n, Data: dest, Error: err}, err
	})
	return err
}

// Count returns the number of records matching the query.
func (q *Query) Count() (int64, error) {
	defer PutBuilder(q.builder)
	if q.err != nil {
		return 0, q.err
	}
	q.builder.Select("COUNT(*)")
	res, err := q.execute(func(ctx context.Context, cur *Query) (*Result, error) {
		sqlStr, args := cur.builder.BuildSelect()
		var count int64
		start := time.Now()
		err := cur.executor.QueryRowContext(ctx, sqlStr, args...).Scan(&count)
		cur.logSQL(sqlStr, start, args)
		return &Result{RowsAffected: 1, Data: count, Error: err}, err
	})
	if err != nil {
		return 0, err
	}
	count, _ := res.Data.(int64)
	return count, nil
}

// Scan executes a raw query and scans the result into dest (a pointer to a slice).
func (q *Query) Scan(dest any) error {
	defer PutBuilder(q.builder)
	if q.err != nil {
		return q.err
	}
	if q.rawSQL == "" {
		return fmt.Errorf("%w: raw sql is empty", ErrInvalidSQL)
	}
	_, err := q.execute(func(ctx context.Context, cur *Query) (*Result, error) {
		n, err := cur.queryRows(ctx, cur.rawSQL, cur.rawArgs, dest)
		return &Result{RowsAffected: n, Data: dest, Error: err}, err
	})
	return err
}

func (q *Query) queryRow(ctx context.Context, sqlStr string, args []any, dest any) error {
	rows, err := q.queryContext(ctx, sqlStr, args)
	if err != nil {
		return err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return err
		}
		return ErrRecordNotFound
	}

	if err := scanRow(rows, dest); err != nil {
		return err
	}

	if h, ok := dest.(AfterFinder); ok {
		return h.AfterFind()
	}
	return nil
}

func (q *Query) queryRows(ctx context.Context, sqlStr string, args []any, dest any) (int64, error) {
	destValue := reflect.ValueOf(dest)
	if destValue.Kind() != reflect.Ptr || destValue.Elem().Kind() != reflect.Slice {
		return 0, fmt.Errorf("dest must be a pointer to a slice")
	}

	rows, err := q.queryContext(ctx, sqlStr, args)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	sliceValue := destValue.Elem()
	itemType := sliceValue.Type().Elem()
	isPtr := itemType.Kind() == reflect.Ptr
	if isPtr {
		itemType = itemType.Elem()
	}

	var n int64
	for rows.Next() {
		item := reflect.New(itemType)
		if err := scanRow(rows, item.Interface()); err != nil {
			return n, err
		}

		if h, ok := item.Interface().(AfterFinder); ok {
			if err := h.AfterFind(); err != nil {
				return n, err
			}
		}

		if isPtr {
			sliceValue.Set(reflect.Append(sliceValue, item))
		} else {
			sliceValue.Set(reflect.Append(sliceValue, item.Elem()))
		}
		n++
	}

	return n, rows.Err()
}

// scanRow copies the current row into dest by column name. Columns the model
// does not know are discarded; derived fields have no column and stay untouched.
func scanRow(rows *sql.Rows, dest any) error {
	columns, err := rows.Columns()
	if err != nil {
		return err
	}

	m, err := model.GetModel(dest)
	if err != nil {
		return err
	}

	values := make([]any, len(columns))
	for i, col := range columns {
		if field, ok := m.FieldMap[col]; ok {
			values[i] = reflect.New(field.Type).Interface()
		} else {
			var ignore any
			values[i] = &ignore
		}
	}

	if err := rows.Scan(values...); err != nil {
		return err
	}

	destValue := reflect.Indirect(reflect.ValueOf(dest))
	for i, col := range columns {
		if field, ok := m.FieldMap[col]; ok {
			destValue.FieldByIndex(field.Index).Set(reflect.ValueOf(values[i]).Elem())
		}
	}
	return nil
}

var (
	timeType      = reflect.TypeOf(time.Time{})
	nullInt64Type = reflect.TypeOf(sql.NullInt64{})
)

// insertValues collects the columns written on insert, stamping auto time fields.
func insertValues(m *model.Model, val reflect.Value, now time.Time) ([]string, []any) {
	columns := make([]string, 0, len(m.Fields))
	args := make([]any, 0, len(m.Fields))
	for _, field := range m.Fields {
		if field.IsAuto {
			continue
		}
		fVal := val.FieldByIndex(field.Index)
		if (field.AutoTime || field.AutoUpdate) && fVal.CanSet() && fVal.Type() == timeType {
			fVal.Set(reflect.ValueOf(now))
		}
		columns = append(columns, field.Column)
		args = append(args, fVal.Interface())
	}
	return columns, args
}

// setInt writes a generated key into an integer-like field.
func setInt(fv reflect.Value, id int64) {
	if !fv.CanSet() {
		return
	}
	switch fv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		fv.SetInt(id)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		fv.SetUint(uint64(id))
	case reflect.Ptr:
		nv := reflect.New(fv.Type().Elem())
		setInt(nv.Elem(), id)
		fv.Set(nv)
	case reflect.Struct:
		if fv.Type() == nullInt64Type {
			fv.Set(reflect.ValueOf(sql.NullInt64{Int64: id, Valid: true}))
		}
	}
}

func (q *Query) modelFor(value any) (*model.Model, error) {
	m, err := model.GetModel(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidModel, err)
	}
	if q.table == "" {
		q.table = m.TableName
		q.builder.SetTable(m.TableName)
	}
	return m, nil
}

// Insert inserts value and returns its primary key. A generated key is
// written back into value when it is a pointer. Derived fields are never written.
func (q *Query) Insert(value any) (int64, error) {
	defer PutBuilder(q.builder)
	if q.err != nil {
		return 0, q.err
	}
	m, err := q.modelFor(value)
	if err != nil {
		return 0, err
	}

	if h, ok := value.(BeforeInserter); ok {
		if err := h.BeforeInsert(); err != nil {
			return 0, err
		}
	}

	val := reflect.Indirect(reflect.ValueOf(value))
	columns, args := insertValues(m, val, time.Now())
	sqlStr, _ := q.builder.BuildInsert(columns)

	id, err := q.insertRow(m, val, sqlStr, args)
	if err != nil {
		return 0, err
	}

	if h, ok := value.(AfterInserter); ok {
		if err := h.AfterInsert(id); err != nil {
			return id, err
		}
	}
	return id, nil
}

func (q *Query) insertRow(m *model.Model, val reflect.Value, sqlStr string, args []any) (int64, error) {
	pk := m.PKField
	if pk != nil && !pk.IsAuto {
		if _, err := q.exec(q.ctx, sqlStr, args); err != nil {
			return 0, err
		}
		id, _, err := model.IntValue(val.FieldByIndex(pk.Index).Interface())
		return id, err
	}

	var id int64
	if rd, ok := q.db.dialect.(dialect.ReturningDialect); ok && pk != nil {
		sqlStr += rd.ReturningSQL(pk.Column)
		start := time.Now()
		err := q.executor.QueryRowContext(q.ctx, sqlStr, args...).Scan(&id)
		q.logSQL(sqlStr, start, args)
		if err != nil {
			return 0, dialect.TranslateError(q.db.dialect, err)
		}
	} else {
		res, err := q.exec(q.ctx, sqlStr, args)
		if err != nil {
			return 0, err
		}
		if id, err = res.LastInsertId(); err != nil {
			return 0, err
		}
	}

	if pk != nil {
		setInt(val.FieldByIndex(pk.Index), id)
	}
	return id, nil
}

// BatchInsert inserts multiple records into the database.
// values must be a slice of structs or pointers to structs.
// AfterInsert is not called: batch generated keys are driver-dependent.
func (q *Query) BatchInsert(values any) (int64, error) {
	defer PutBuilder(q.builder)
	if q.err != nil {
		return 0, q.err
	}

	sliceVal := reflect.ValueOf(values)
	if sliceVal.Kind() != reflect.Slice {
		return 0, fmt.Errorf("values must be a slice")
	}
	if sliceVal.Len() == 0 {
		return 0, nil
	}

	m, err := q.modelFor(sliceVal.Index(0).Interface())
	if err != nil {
		return 0, err
	}

	var columns []string
	var args []any
	now := time.Now()
	for i := 0; i < sliceVal.Len(); i++ {
		item := sliceVal.Index(i)
		if h, ok := item.Interface().(BeforeInserter); ok {
			if err := h.BeforeInsert(); err != nil {
				return 0, err
			}
		}
		var rowArgs []any
		columns, rowArgs = insertValues(m, reflect.Indirect(item), now)
		args = append(args, rowArgs...)
	}

	// A model with only an auto key has nothing to put in a VALUES list.
	if len(columns) == 0 {
		sqlStr, _ := q.builder.BuildInsert(nil)
		var total int64
		for i := 0; i < sliceVal.Len(); i++ {
			if _, err := q.insertRow(m, reflect.Indirect(sliceVal.Index(i)), sqlStr, nil); err != nil {
				return total, err
			}
			total++
		}
		return total, nil
	}

	sqlStr, _ := q.db.dialect.BatchInsertSQL(q.table, columns, sliceVal.Len())
	res, err := q.exec(q.ctx, sqlStr, args)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Update updates records matching the query.
//
// value can be a map[string]any keyed by column or field name, or a struct.
// A map naming a derived field fails with ErrImmutableField. A struct
// update with no condition is scoped to the struct's primary key.
func (q *Query) Update(value any) (int64, error) {
	defer PutBuilder(q.builder)
	if q.err != nil {
		return 0, q.err
	}

	if h, ok := value.(BeforeUpdater); ok {
		if err := h.BeforeUpdate(); err != nil {
			return 0, err
		}
	}

	var data map[string]any
	var err error
	if v, ok := value.(map[string]any); ok {
		data, err = q.updateMap(v)
	} else {
		data, err = q.updateStruct(value)
	}
	if err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return 0, fmt.Errorf("%w: nothing to update", ErrInvalidQuery)
	}

	sqlStr, args := q.builder.BuildUpdate(data)
	res, err := q.exec(q.ctx, sqlStr, args)
	if err != nil {
		return 0, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	if h, ok := value.(AfterUpdater); ok {
		if err := h.AfterUpdate(); err != nil {
			return affected, err
		}
	}
	return affected, nil
}

func (q *Query) updateMap(values map[string]any) (map[string]any, error) {
	if q.model == nil {
		return values, nil
	}
	data := make(map[string]any, len(values))
	for name, v := range values {
		field, ok := q.model.Lookup(name)
		if !ok {
			data[name] = v
			continue
		}
		if field.Derived {
			return nil, fmt.Errorf("%w: %s.%s", ErrImmutableField, q.model.TableName, field.Column)
		}
		data[field.Column] = v
	}
	return data, nil
}

func (q *Query) updateStruct(value any) (map[string]any, error) {
	m, err := q.modelFor(value)
	if err != nil {
		return nil, err
	}
	val := reflect.Indirect(reflect.ValueOf(value))

	data := make(map[string]any, len(m.Fields))
	now := time.Now()
	for _, field := range m.Fields {
		if field.IsPK || field.IsAuto {
			continue
		}
		fVal := val.FieldByIndex(field.Index)
		if field.AutoUpdate && fVal.CanSet() && fVal.Type() == timeType {
			fVal.Set(reflect.ValueOf(now))
		}
		data[field.Column] = fVal.Interface()
	}

	if !q.filtered && m.PKField != nil {
		q.Where(q.db.dialect.Quote(m.PKField.Column)+" = ?", val.FieldByIndex(m.PKField.Index).Interface())
	}
	return data, nil
}

// Delete deletes records matching the query.
func (q *Query) Delete() (int64, error) {
	defer PutBuilder(q.builder)
	if q.err != nil {
		return 0, q.err
	}

	sqlStr, args := q.builder.BuildDelete()
	res, err := q.exec(q.ctx, sqlStr, args)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
