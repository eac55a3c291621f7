package jorm

import (
	"fmt"

	"github.com/shrek82/jorm-hashids/core"
	"github.com/shrek82/jorm-hashids/hashids"
	"github.com/shrek82/jorm-hashids/model"
	"github.com/shrek82/jorm-hashids/query"
)

// Re-export core types and functions
type DB = core.DB
type Tx = core.Tx
type Query = core.Query
type Options = core.Options

var Open = core.Open

// Re-export hashid field and projection helpers
type Hashid = hashids.Field
type Expr = query.Expr

const Integer = query.Integer

var (
	F    = query.F
	Cast = query.Cast
)

// Get reads the named field of record. Derived fields are computed from their
// source column at call time.
func Get(record any, name string) (any, error) {
	m, err := model.GetModel(record)
	if err != nil {
		return nil, err
	}
	return m.Get(record, name)
}

// HashidOf returns the encoded value of the named hashid field, or "" when the
// source column is null.
func HashidOf(record any, name string) (string, error) {
	m, err := model.GetModel(record)
	if err != nil {
		return "", err
	}
	if f, ok := m.Lookup(name); !ok || !f.Derived {
		return "", fmt.Errorf("%w: %s.%s is not a hashid field", model.ErrUnknownField, m.Type.Name(), name)
	}

	v, err := m.Get(record, name)
	if err != nil || v == nil {
		return "", err
	}
	return v.(string), nil
}
