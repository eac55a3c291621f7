package dialect

import (
	"errors"
)

// ErrDuplicateKey is returned when a statement violates a unique or primary key constraint.
var ErrDuplicateKey = errors.New("duplicate key")

// ErrorTranslator is implemented by dialects that recognise driver errors.
type ErrorTranslator interface {
	TranslateError(err error) error
}

// TranslateError maps a driver error to a dialect sentinel when d knows it.
// Unknown errors are returned unchanged.
func TranslateError(d Dialect, err error) error {
	if err == nil {
		return nil
	}
	if t, ok := d.(ErrorTranslator); ok {
		return t.TranslateError(err)
	}
	return err
}
