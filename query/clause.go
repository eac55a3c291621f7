package query

import (
	"strings"
)

// Operator is a lookup comparison, written after a double underscore in a filter.
type Operator string

const (
	Exact Operator = "exact"
	In    Operator = "in"
	Lt    Operator = "lt"
	Lte   Operator = "lte"
	Gt    Operator = "gt"
	Gte   Operator = "gte"
)

var sqlOperators = map[Operator]string{
	Exact: "=",
	Lt:    "<",
	Lte:   "<=",
	Gt:    ">",
	Gte:   ">=",
}

// Predicate is a comparison against a physical column, ready to be rendered.
type Predicate struct {
	Column string
	Op     Operator
	Args   []any
	// None marks a predicate that matches no row.
	None bool
	// Null marks an exact comparison against NULL.
	Null bool
}

// NoRows returns a predicate matching no row.
func NoRows(column string, op Operator) Predicate {
	return Predicate{Column: column, Op: op, None: true}
}

// SQL renders the predicate with "?" placeholders.
func (p Predicate) SQL(quote func(string) string) (string, []any) {
	if p.None {
		return "1 = 0", nil
	}

	col := p.Column
	if quote != nil {
		col = quote(col)
	}
	if p.Null {
		return col + " IS NULL", nil
	}

	if p.Op == In {
		placeholders := make([]string, len(p.Args))
		for i := range placeholders {
			placeholders[i] = "?"
		}
		return col + " IN (" + strings.Join(placeholders, ", ") + ")", p.Args
	}
	return col + " " + sqlOperators[p.Op] + " ?", p.Args
}
