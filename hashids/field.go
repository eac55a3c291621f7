package hashids

// Field marks a struct field as a derived hashid column.
//
// It carries no data: the encoded value is computed from the backing integer
// column on every read, and the field cannot be assigned through the ORM.
//
//	type User struct {
//		ID     int64         `jorm:"pk auto"`
//		Hashid hashids.Field `jorm:"salt:s3cret min_length:8"`
//	}
type Field struct{}
