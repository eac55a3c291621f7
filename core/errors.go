package core

import (
	"errors"

	"github.com/shrek82/jorm-hashids/dialect"
	"github.com/shrek82/jorm-hashids/model"
)

var (
	// ErrRecordNotFound is returned when a query expects at least one record but none were found.
	ErrRecordNotFound = errors.New("record not found")
	// ErrInvalidModel is returned when a value cannot serve as a model for the operation.
	ErrInvalidModel = errors.New("invalid model")
	// ErrInvalidQuery is returned when a query is malformed or cannot be executed.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrConnectionFailed is returned when the database connection cannot be established or is lost.
	ErrConnectionFailed = errors.New("connection failed")
	// ErrInvalidSQL is returned when a raw SQL statement is empty or malformed.
	ErrInvalidSQL = errors.New("invalid sql")

	// ErrDuplicateKey is returned when a database unique constraint is violated.
	ErrDuplicateKey = dialect.ErrDuplicateKey
	// ErrImmutableField is returned when an update names a derived field.
	ErrImmutableField = model.ErrImmutableField
)
