package query

import (
	"fmt"

	"github.com/shrek82/jorm-hashids/model"
)

// Output selects how a projected field is materialised.
type Output int

const (
	// AsField yields the field as itself: derived fields as their encoded string.
	AsField Output = iota
	// Integer yields an int64; for a derived field, the backing integer.
	Integer
)

// Expr names a field to extract, optionally cast and aliased.
type Expr struct {
	Field  string
	Output Output
	Alias  string
}

// F selects a field as itself.
func F(name string) Expr {
	return Expr{Field: name}
}

// Cast selects a field with the given output type.
func Cast(name string, out Output) Expr {
	return Expr{Field: name, Output: out}
}

// As sets the key the value is returned under.
func (e Expr) As(alias string) Expr {
	e.Alias = alias
	return e
}

// Key is the result key: the alias when set, the field name otherwise.
func (e Expr) Key() string {
	if e.Alias != "" {
		return e.Alias
	}
	return e.Field
}

// Projection is a resolved Expr: the physical column to select and the
// conversion applied to every scanned value.
type Projection struct {
	Key     string
	Column  string
	Convert func(raw any) (any, error)
}

// Project resolves e against m. A derived field always selects its source
// column; it is encoded on the way out unless cast to Integer.
func Project(m *model.Model, e Expr) (Projection, error) {
	field, ok := m.Lookup(e.Field)
	if !ok {
		return Projection{}, fmt.Errorf("%w: %s.%s", model.ErrUnknownField, m.TableName, e.Field)
	}

	p := Projection{Key: e.Key(), Column: field.Column}
	if field.Derived {
		p.Column = field.Source.Column
	}

	switch e.Output {
	case AsField:
		switch {
		case field.Derived:
			p.Convert = field.Encode
		case field.IsInteger():
			p.Convert = toInteger
		default:
			p.Convert = passThrough
		}
	case Integer:
		p.Convert = toInteger
	default:
		return Projection{}, fmt.Errorf("unknown output type %d for %s", e.Output, e.Field)
	}
	return p, nil
}

func passThrough(raw any) (any, error) {
	if b, ok := raw.([]byte); ok {
		return string(b), nil
	}
	return raw, nil
}

func toInteger(raw any) (any, error) {
	n, ok, err := model.IntValue(raw)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return n, nil
}
