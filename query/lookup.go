package query

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/shrek82/jorm-hashids/hashids"
	"github.com/shrek82/jorm-hashids/model"
)

const lookupSep = "__"

var (
	// ErrUnsupportedLookup is returned for an operator the field does not support.
	ErrUnsupportedLookup = errors.New("unsupported lookup")
	// ErrInvalidHashid is returned when an ordering lookup gets an operand that does not decode.
	ErrInvalidHashid = errors.New("invalid hashid")
	// ErrInvalidOperand is returned when an operand has the wrong type for the field.
	ErrInvalidOperand = errors.New("invalid operand")
	// ErrUnknownField is returned when a lookup names no field of the model.
	ErrUnknownField = model.ErrUnknownField
)

// ParseLookup splits "name__op" into the field name and operator.
// A bare name means Exact.
func ParseLookup(expr string) (string, Operator, error) {
	idx := strings.LastIndex(expr, lookupSep)
	if idx <= 0 {
		return expr, Exact, nil
	}
	name, op := expr[:idx], Operator(expr[idx+len(lookupSep):])
	switch op {
	case Exact, In, Lt, Lte, Gt, Gte:
		return name, op, nil
	}
	return "", "", fmt.Errorf("%w: %q in %q", ErrUnsupportedLookup, op, expr)
}

// Translate rewrites "name op value" into a predicate on a physical column.
//
// For a derived field the operand is decoded and compared against the source
// column. An operand that does not decode matches nothing under exact and in,
// and is an ErrInvalidHashid error under the ordering operators.
func Translate(m *model.Model, name string, op Operator, value any) (Predicate, error) {
	field, ok := m.Lookup(name)
	if !ok {
		return Predicate{}, fmt.Errorf("%w: %s.%s", ErrUnknownField, m.TableName, name)
	}
	if _, known := sqlOperators[op]; !known && op != In {
		return Predicate{}, fmt.Errorf("%w: %q", ErrUnsupportedLookup, op)
	}

	if !field.Derived {
		return translateColumn(field.Column, op, value)
	}

	column := field.Source.Column
	switch op {
	case Exact:
		if value == nil {
			return Predicate{Column: column, Op: Exact, Null: true}, nil
		}
		s, ok := value.(string)
		if !ok {
			return Predicate{}, fmt.Errorf("%w: %s expects a string, got %T", ErrInvalidOperand, field.Column, value)
		}
		n, ok := hashids.DecodeOne(field.Encoder, s)
		if !ok {
			return NoRows(column, op), nil
		}
		return Predicate{Column: column, Op: Exact, Args: []any{n}}, nil

	case In:
		items, err := operandList(value)
		if err != nil {
			return Predicate{}, err
		}
		args := make([]any, 0, len(items))
		for _, item := range items {
			if item == nil {
				continue
			}
			s, ok := item.(string)
			if !ok {
				return Predicate{}, fmt.Errorf("%w: %s expects strings, got %T", ErrInvalidOperand, field.Column, item)
			}
			if n, ok := hashids.DecodeOne(field.Encoder, s); ok {
				args = append(args, n)
			}
		}
		if len(args) == 0 {
			return NoRows(column, op), nil
		}
		return Predicate{Column: column, Op: In, Args: args}, nil

	default:
		s, ok := value.(string)
		if !ok {
			return Predicate{}, fmt.Errorf("%w: %s expects a string, got %T", ErrInvalidOperand, field.Column, value)
		}
		n, ok := hashids.DecodeOne(field.Encoder, s)
		if !ok {
			return Predicate{}, fmt.Errorf("%w: %s__%s cannot order against %q", ErrInvalidHashid, field.Column, op, s)
		}
		return Predicate{Column: column, Op: op, Args: []any{n}}, nil
	}
}

func translateColumn(column string, op Operator, value any) (Predicate, error) {
	switch op {
	case Exact:
		if value == nil {
			return Predicate{Column: column, Op: Exact, Null: true}, nil
		}
		return Predicate{Column: column, Op: Exact, Args: []any{value}}, nil
	case In:
		items, err := operandList(value)
		if err != nil {
			return Predicate{}, err
		}
		if len(items) == 0 {
			return NoRows(column, op), nil
		}
		return Predicate{Column: column, Op: In, Args: items}, nil
	}
	if value == nil {
		return Predicate{}, fmt.Errorf("%w: %s__%s against nil", ErrInvalidOperand, column, op)
	}
	return Predicate{Column: column, Op: op, Args: []any{value}}, nil
}

// operandList flattens the operand of an in lookup. Single-key rows, as
// returned by a one-column Values call, are unwrapped to their value.
func operandList(value any) ([]any, error) {
	v := reflect.ValueOf(value)
	if !v.IsValid() || (v.Kind() != reflect.Slice && v.Kind() != reflect.Array) {
		return nil, fmt.Errorf("%w: in expects a slice, got %T", ErrInvalidOperand, value)
	}
	items := make([]any, 0, v.Len())
	for i := 0; i < v.Len(); i++ {
		item := v.Index(i).Interface()
		if row, ok := item.(map[string]any); ok && len(row) == 1 {
			for _, inner := range row {
				item = inner
			}
		}
		items = append(items, item)
	}
	return items, nil
}
