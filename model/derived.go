package model

import (
	"database/sql/driver"
	"fmt"
	"reflect"
	"strconv"
)

// Get returns the current value of the named field on record.
//
// A derived field is encoded from the live value of its source column, so
// mutating the source is reflected by the next Get. A null source yields nil.
func (m *Model) Get(record any, name string) (any, error) {
	field, ok := m.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownField, m.Type.Name(), name)
	}

	val, err := m.structValue(record)
	if err != nil {
		return nil, err
	}

	if !field.Derived {
		return val.FieldByIndex(field.Index).Interface(), nil
	}
	return field.Encode(val.FieldByIndex(field.Source.Index).Interface())
}

// Set assigns value to the named physical field of record, which must be a pointer.
// Derived fields always fail with ErrImmutableField and leave record untouched.
func (m *Model) Set(record any, name string, value any) error {
	field, ok := m.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownField, m.Type.Name(), name)
	}
	if field.Derived {
		return fmt.Errorf("%w: %s.%s derives from %s", ErrImmutableField, m.Type.Name(), field.Name, field.Source.Column)
	}

	rv := reflect.ValueOf(record)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("record must be a non-nil pointer to %s", m.Type.Name())
	}
	val, err := m.structValue(record)
	if err != nil {
		return err
	}

	fv := val.FieldByIndex(field.Index)
	if value == nil {
		fv.Set(reflect.Zero(fv.Type()))
		return nil
	}
	nv := reflect.ValueOf(value)
	if !nv.Type().ConvertibleTo(fv.Type()) {
		return fmt.Errorf("cannot assign %s to %s.%s (%s)", nv.Type(), m.Type.Name(), field.Name, fv.Type())
	}
	fv.Set(nv.Convert(fv.Type()))
	return nil
}

func (m *Model) structValue(record any) (reflect.Value, error) {
	val := reflect.ValueOf(record)
	for val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return reflect.Value{}, fmt.Errorf("record is nil")
		}
		val = val.Elem()
	}
	if val.Type() != m.Type {
		return reflect.Value{}, fmt.Errorf("record is %s, model is %s", val.Type(), m.Type)
	}
	return val, nil
}

// Encode turns a raw source value into the derived value: nil for null,
// the encoded string otherwise. raw may come from the struct or from a scanned row.
func (f *Field) Encode(raw any) (any, error) {
	if !f.Derived {
		return raw, nil
	}
	n, ok, err := IntValue(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Name, err)
	}
	if !ok {
		return nil, nil
	}
	s, err := f.Encoder.Encode(n)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Name, err)
	}
	return s, nil
}

// IntValue normalises an integer-like value to int64. ok is false for null.
func IntValue(raw any) (n int64, ok bool, err error) {
	if v, isValuer := raw.(driver.Valuer); isValuer {
		if rv := reflect.ValueOf(raw); rv.Kind() == reflect.Ptr && rv.IsNil() {
			return 0, false, nil
		}
		dv, err := v.Value()
		if err != nil {
			return 0, false, err
		}
		raw = dv
	}

	switch v := raw.(type) {
	case nil:
		return 0, false, nil
	case []byte:
		return parseInt(string(v))
	case string:
		return parseInt(v)
	}

	rv := reflect.ValueOf(raw)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return 0, false, nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint()), true, nil
	}
	return 0, false, fmt.Errorf("value of type %T is not an integer", raw)
}

func parseInt(s string) (int64, bool, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("value %q is not an integer: %w", s, err)
	}
	return n, true, nil
}
