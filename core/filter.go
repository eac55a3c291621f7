package core

import (
	"context"
	"fmt"
	"reflect"

	"github.com/shrek82/jorm-hashids/hashids"
	"github.com/shrek82/jorm-hashids/query"
)

// Filter adds a condition written as "name__op", where op is one of exact,
// in, lt, lte, gt, gte (a bare name means exact). name may be a derived
// hashid field, in which case value is decoded and compared against the
// backing column.
//
//	db.Model(&User{}).Filter("hashid", "Mj3").First(&u)
//	db.Model(&User{}).Filter("hashid__in", []string{"Mj3", "Zq9"}).Find(&users)
func (q *Query) Filter(lookup string, value any) *Query {
	if q.err != nil {
		return q
	}
	if q.model == nil {
		q.err = fmt.Errorf("%w: Filter(%q) needs Model", ErrInvalidQuery, lookup)
		return q
	}

	name, op, err := query.ParseLookup(lookup)
	if err != nil {
		q.err = err
		return q
	}

	pred, err := query.Translate(q.model, name, op, value)
	if err != nil {
		q.err = err
		return q
	}
	if pred.None && q.log != nil {
		if f, ok := q.model.Lookup(name); ok && f.Derived {
			q.log.Info("%s.%s__%s: no operand decodes with %s, matching no rows",
				q.model.TableName, f.Column, op, hashids.Describe(f.Encoder))
		}
	}

	cond, args := pred.SQL(q.db.dialect.Quote)
	return q.Where(cond, args...)
}

// projections resolves Values/Pluck arguments: field names or query.Expr.
// No arguments selects every physical and derived field under its column name.
func (q *Query) projections(exprs []any) ([]query.Projection, error) {
	if q.model == nil {
		return nil, fmt.Errorf("%w: Values needs Model", ErrInvalidQuery)
	}

	if len(exprs) == 0 {
		for _, f := range q.model.Fields {
			exprs = append(exprs, f.Column)
		}
		for _, f := range q.model.Derived {
			exprs = append(exprs, f.Column)
		}
	}

	projs := make([]query.Projection, 0, len(exprs))
	for _, e := range exprs {
		var expr query.Expr
		switch v := e.(type) {
		case string:
			expr = query.F(v)
		case query.Expr:
			expr = v
		default:
			return nil, fmt.Errorf("%w: cannot project %T", ErrInvalidQuery, e)
		}
		p, err := query.Project(q.model, expr)
		if err != nil {
			return nil, err
		}
		projs = append(projs, p)
	}
	return projs, nil
}

// selectValues runs the projected SELECT and converts every scanned value.
func (q *Query) selectValues(ctx context.Context, projs []query.Projection) ([]map[string]any, error) {
	for _, p := range projs {
		q.builder.Select(q.db.dialect.Quote(p.Column))
	}
	sqlStr, args := q.builder.BuildSelect()

	rows, err := q.queryContext(ctx, sqlStr, args)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []map[string]any
	for rows.Next() {
		raw := make([]any, len(projs))
		ptrs := make([]any, len(projs))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(map[string]any, len(projs))
		for i, p := range projs {
			v, err := p.Convert(raw[i])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", p.Key, err)
			}
			row[p.Key] = v
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Values returns one map per matching row, keyed by field name or alias.
//
// exprs are field names or query.Expr values built with query.F and
// query.Cast. A derived field comes back as its encoded string, or as the
// backing integer when cast to query.Integer.
func (q *Query) Values(exprs ...any) ([]map[string]any, error) {
	defer PutBuilder(q.builder)
	if q.err != nil {
		return nil, q.err
	}
	projs, err := q.projections(exprs)
	if err != nil {
		return nil, err
	}

	res, err := q.execute(func(ctx context.Context, cur *Query) (*Result, error) {
		rows, err := cur.selectValues(ctx, projs)
		return &Result{RowsAffected: int64(len(rows)), Data: rows, Error: err}, err
	})
	if err != nil {
		return nil, err
	}
	rows, _ := res.Data.([]map[string]any)
	return rows, nil
}

// Pluck collects a single projected field into dest, a pointer to a slice.
// Null values become the element type's zero value.
//
//	var ids []string
//	db.Model(&User{}).OrderBy("id").Pluck("hashid", &ids)
func (q *Query) Pluck(expr any, dest any) error {
	defer PutBuilder(q.builder)
	if q.err != nil {
		return q.err
	}

	destValue := reflect.ValueOf(dest)
	if destValue.Kind() != reflect.Ptr || destValue.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("dest must be a pointer to a slice")
	}
	projs, err := q.projections([]any{expr})
	if err != nil {
		return err
	}

	res, err := q.execute(func(ctx context.Context, cur *Query) (*Result, error) {
		rows, err := cur.selectValues(ctx, projs)
		return &Result{RowsAffected: int64(len(rows)), Data: rows, Error: err}, err
	})
	if err != nil {
		return err
	}
	rows, _ := res.Data.([]map[string]any)

	slice := destValue.Elem()
	elemType := slice.Type().Elem()
	out := reflect.MakeSlice(slice.Type(), 0, len(rows))
	key := projs[0].Key
	for _, row := range rows {
		ev, err := elementValue(elemType, row[key])
		if err != nil {
			return fmt.Errorf("pluck %s: %w", key, err)
		}
		out = reflect.Append(out, ev)
	}
	slice.Set(out)
	return nil
}

func elementValue(typ reflect.Type, v any) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(typ), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(typ) {
		return rv, nil
	}
	// reflect converts integers to strings as runes; refuse that.
	if typ.Kind() == reflect.String && rv.Kind() != reflect.String {
		return reflect.Value{}, fmt.Errorf("cannot store %T in %s", v, typ)
	}
	if rv.Type().ConvertibleTo(typ) {
		return rv.Convert(typ), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot store %T in %s", v, typ)
}
