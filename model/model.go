package model

import (
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/shrek82/jorm-hashids/hashids"
)

var (
	// ErrInvalidTag is returned when a jorm tag option has a malformed value.
	ErrInvalidTag = errors.New("invalid jorm tag")
	// ErrUnknownField is returned when a name matches no field of the model.
	ErrUnknownField = errors.New("unknown field")
	// ErrImmutableField is returned on any attempt to assign a derived field.
	ErrImmutableField = errors.New("derived field cannot be assigned")
)

// Tabler lets a model override its table name.
type Tabler interface {
	TableName() string
}

// Model represents table metadata
type Model struct {
	TableName string
	Type      reflect.Type
	// Physical columns, in struct order, and by column name.
	Fields   []*Field
	FieldMap map[string]*Field
	PKField  *Field
	// Derived fields have no column and never appear in Fields.
	Derived    []*Field
	DerivedMap map[string]*Field
}

var modelCache sync.Map

// GetModel returns the model metadata for a given value.
//
// Derived fields resolve their encoder here, against the hashid defaults in
// effect at the time of the first call for a type. A model whose declaration
// fails is not cached.
func GetModel(value any) (*Model, error) {
	if value == nil {
		return nil, fmt.Errorf("value is nil")
	}

	var typ reflect.Type
	if t, ok := value.(reflect.Type); ok {
		typ = t
	} else {
		typ = reflect.TypeOf(value)
	}
	for typ.Kind() == reflect.Ptr || typ.Kind() == reflect.Slice {
		typ = typ.Elem()
	}

	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("value must be a struct or pointer to struct, got %s", typ.Kind())
	}

	if cached, ok := modelCache.Load(typ); ok {
		return cached.(*Model), nil
	}

	m, err := parseModel(typ)
	if err != nil {
		return nil, err
	}

	actual, _ := modelCache.LoadOrStore(typ, m)
	return actual.(*Model), nil
}

func parseModel(typ reflect.Type) (*Model, error) {
	m := &Model{
		TableName:  camelToSnake(typ.Name()),
		Type:       typ,
		FieldMap:   make(map[string]*Field),
		DerivedMap: make(map[string]*Field),
	}
	if t, ok := reflect.New(typ).Interface().(Tabler); ok {
		m.TableName = t.TableName()
	}

	tags := make(map[*Field]*Tag)
	if err := m.collectFields(typ, nil, tags); err != nil {
		return nil, err
	}

	for _, field := range m.Derived {
		if err := m.resolveDerived(field, tags[field]); err != nil {
			return nil, fmt.Errorf("%s.%s: %w", typ.Name(), field.Name, err)
		}
	}

	return m, nil
}

func (m *Model) collectFields(typ reflect.Type, parent []int, tags map[*Field]*Tag) error {
	for i := 0; i < typ.NumField(); i++ {
		structField := typ.Field(i)
		if !structField.IsExported() {
			continue
		}

		index := append(append([]int(nil), parent...), i)
		tagStr := structField.Tag.Get("jorm")
		tag := ParseTag(tagStr)
		if tag.Ignore {
			continue
		}
		if len(tag.Invalid) > 0 {
			return fmt.Errorf("%w: %s.%s: %s", ErrInvalidTag, typ.Name(), structField.Name, strings.Join(tag.Invalid, ", "))
		}

		if structField.Anonymous && structField.Type.Kind() == reflect.Struct && !isDerivedType(structField.Type) {
			if err := m.collectFields(structField.Type, index, tags); err != nil {
				return err
			}
			continue
		}

		columnName := tag.Column
		if columnName == "" {
			columnName = camelToSnake(structField.Name)
		}

		field := &Field{
			Name:       structField.Name,
			Column:     columnName,
			Type:       structField.Type,
			Index:      index,
			IsPK:       tag.PrimaryKey,
			IsAuto:     tag.AutoInc,
			AutoTime:   tag.AutoTime,
			AutoUpdate: tag.AutoUpdate,
			Size:       tag.Size,
			NotNull:    tag.NotNull,
			Unique:     tag.Unique,
			Default:    tag.Default,
			SQLType:    tag.Type,
			Tag:        tagStr,
		}

		if isDerivedType(structField.Type) {
			field.Derived = true
			tags[field] = tag
			m.Derived = append(m.Derived, field)
			m.DerivedMap[columnName] = field
			continue
		}

		m.Fields = append(m.Fields, field)
		m.FieldMap[columnName] = field

		if field.IsPK {
			m.PKField = field
		}
	}

	if parent == nil && m.PKField == nil {
		// An untagged integer id is a generated key, like an explicit "pk auto".
		if f, ok := m.FieldMap["id"]; ok && isIntegerType(f.Type) {
			f.IsPK = true
			f.IsAuto = true
			m.PKField = f
		}
	}
	return nil
}

func (m *Model) resolveDerived(field *Field, tag *Tag) error {
	source := m.PKField
	if tag.Source != "" {
		var ok bool
		if source, ok = m.FieldMap[tag.Source]; !ok {
			return fmt.Errorf("%w: source column %q not found", hashids.ErrConfig, tag.Source)
		}
	}
	if source == nil {
		return fmt.Errorf("%w: no primary key to derive from; set source", hashids.ErrConfig)
	}
	if !isIntegerType(source.Type) {
		return fmt.Errorf("%w: source column %q is %s, not an integer", hashids.ErrConfig, source.Column, source.Type)
	}

	opts := hashids.Options{
		Salt:      tag.Salt,
		MinLength: tag.MinLength,
		Alphabet:  tag.Alphabet,
	}
	if tag.Encoder != "" {
		enc, ok := hashids.Lookup(tag.Encoder)
		if !ok {
			return fmt.Errorf("%w: encoder %q is not registered", hashids.ErrConfig, tag.Encoder)
		}
		opts.Encoder = enc
	}

	enc, err := hashids.Resolve(opts, hashids.Defaults())
	if err != nil {
		return err
	}

	field.Source = source
	field.Encoder = enc
	return nil
}

// Lookup finds a physical or derived field by column name, then by struct field name.
func (m *Model) Lookup(name string) (*Field, bool) {
	if f, ok := m.FieldMap[name]; ok {
		return f, true
	}
	if f, ok := m.DerivedMap[name]; ok {
		return f, true
	}
	for _, f := range m.Fields {
		if f.Name == name {
			return f, true
		}
	}
	for _, f := range m.Derived {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

var (
	nullInt64Type = reflect.TypeOf(sql.NullInt64{})
	nullInt32Type = reflect.TypeOf(sql.NullInt32{})
	nullInt16Type = reflect.TypeOf(sql.NullInt16{})
)

func isIntegerType(typ reflect.Type) bool {
	for typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	switch typ {
	case nullInt64Type, nullInt32Type, nullInt16Type:
		return true
	}
	switch typ.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func camelToSnake(s string) string {
	if s == "ID" {
		return "id"
	}
	var res []rune
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(rune(s[i-1])) || (i+1 < len(s) && unicode.IsLower(rune(s[i+1])))) {
				res = append(res, '_')
			}
			res = append(res, unicode.ToLower(r))
		} else {
			res = append(res, r)
		}
	}
	return string(res)
}
