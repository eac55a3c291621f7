package model

import (
	"reflect"

	"github.com/shrek82/jorm-hashids/hashids"
)

// Field represents a database column mapped from a struct field
type Field struct {
	Name       string       // Struct field name
	Column     string       // DB column name
	Type       reflect.Type // Field type
	Index      []int        // Struct field index path, embedded structs included
	IsPK       bool         // Is primary key
	IsAuto     bool         // Is auto-increment
	AutoTime   bool         // Set time on insert
	AutoUpdate bool         // Set time on update
	Size       int          // Column size hint
	NotNull    bool         // NOT NULL constraint
	Unique     bool         // UNIQUE constraint
	Default    string       // DEFAULT expression
	SQLType    string       // Explicit column type from the type: option
	Tag        string       // Raw tag string

	// Derived fields have no column of their own. Their value is computed
	// from Source through Encoder on every read.
	Derived bool
	Source  *Field
	Encoder hashids.Encoder
}

var derivedType = reflect.TypeOf(hashids.Field{})

func isDerivedType(typ reflect.Type) bool {
	return typ == derivedType
}

// IsInteger reports whether the field stores an integer, nullable or not.
func (f *Field) IsInteger() bool {
	return isIntegerType(f.Type)
}
