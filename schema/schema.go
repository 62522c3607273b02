// Package schema describes the shape of columnar data handed to the packer:
// value types, fields, schemas, and the column descriptor that decomposes one
// logical array into its physical buffers.
//
// A value type here carries no interpretation of the bytes; it only
// determines which physical buffers a column has (validity bitmap, offsets,
// data), which is all the packing layer needs.
package schema

import (
	"fmt"
	"strings"

	"github.com/arloliu/shufflepack/errs"
)

// ValueType identifies the logical type of one column, used only to derive
// its physical buffer layout.
type ValueType uint8

const (
	TypeNull ValueType = iota
	TypeBool
	TypeInt8
	TypeInt16
	TypeInt32
	TypeInt64
	TypeUint8
	TypeUint16
	TypeUint32
	TypeUint64
	TypeFloat32
	TypeFloat64
	TypeDate32
	TypeTimestamp
	TypeDecimal128
	TypeBinary
	TypeString
	TypeLargeBinary
	TypeLargeString
)

var valueTypeNames = map[ValueType]string{
	TypeNull:        "Null",
	TypeBool:        "Bool",
	TypeInt8:        "Int8",
	TypeInt16:       "Int16",
	TypeInt32:       "Int32",
	TypeInt64:       "Int64",
	TypeUint8:       "Uint8",
	TypeUint16:      "Uint16",
	TypeUint32:      "Uint32",
	TypeUint64:      "Uint64",
	TypeFloat32:     "Float32",
	TypeFloat64:     "Float64",
	TypeDate32:      "Date32",
	TypeTimestamp:   "Timestamp",
	TypeDecimal128:  "Decimal128",
	TypeBinary:      "Binary",
	TypeString:      "String",
	TypeLargeBinary: "LargeBinary",
	TypeLargeString: "LargeString",
}

func (t ValueType) String() string {
	if name, ok := valueTypeNames[t]; ok {
		return name
	}

	return "Unknown"
}

// Valid reports whether t is a supported value type.
func (t ValueType) Valid() bool {
	_, ok := valueTypeNames[t]
	return ok
}

// FixedWidth reports the byte width of one value for fixed-width types, 0
// for variable-width and Null types.
func (t ValueType) FixedWidth() int {
	switch t {
	case TypeBool, TypeInt8, TypeUint8:
		return 1
	case TypeInt16, TypeUint16:
		return 2
	case TypeInt32, TypeUint32, TypeFloat32, TypeDate32:
		return 4
	case TypeInt64, TypeUint64, TypeFloat64, TypeTimestamp:
		return 8
	case TypeDecimal128:
		return 16
	default:
		return 0
	}
}

// HasOffsets reports whether columns of this type carry an offsets buffer
// (variable-width types).
func (t ValueType) HasOffsets() bool {
	switch t {
	case TypeBinary, TypeString, TypeLargeBinary, TypeLargeString:
		return true
	default:
		return false
	}
}

// OffsetWidth reports the byte width of one offset entry: 4 for the 32-bit
// binary types, 8 for the Large variants, 0 for fixed-width types.
func (t ValueType) OffsetWidth() int {
	switch t {
	case TypeBinary, TypeString:
		return 4
	case TypeLargeBinary, TypeLargeString:
		return 8
	default:
		return 0
	}
}

// BufferCount reports how many physical buffers a column of this type
// carries: validity+data for fixed-width types, validity+offsets+data for
// variable-width types, none for Null.
func (t ValueType) BufferCount() int {
	switch {
	case t == TypeNull:
		return 0
	case t.HasOffsets():
		return 3
	default:
		return 2
	}
}

// ShuffleType maps a logical value type onto the type the shuffle wire
// layout understands. Supported types map to themselves; anything else is an
// invalid-argument error.
func ShuffleType(t ValueType) (ValueType, error) {
	if !t.Valid() {
		return TypeNull, fmt.Errorf("%w: unsupported shuffle value type %d", errs.ErrInvalidArgument, uint8(t))
	}

	return t, nil
}

// ShuffleTypes maps every field's type via ShuffleType, failing on the first
// unsupported field.
func ShuffleTypes(fields []Field) ([]ValueType, error) {
	types := make([]ValueType, len(fields))
	for i, f := range fields {
		t, err := ShuffleType(f.Type)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		types[i] = t
	}

	return types, nil
}

// Field is one named, typed column of a schema.
type Field struct {
	Name     string
	Type     ValueType
	Nullable bool
}

// Schema is an ordered, immutable sequence of fields. Schemas are shared by
// reference; packing operations never own or mutate them.
type Schema struct {
	fields []Field
}

// NewSchema creates a schema from the given fields. The field slice is
// copied.
func NewSchema(fields []Field) *Schema {
	s := &Schema{fields: make([]Field, len(fields))}
	copy(s.fields, fields)

	return s
}

// NumFields returns the number of fields in the schema.
func (s *Schema) NumFields() int {
	return len(s.fields)
}

// Field returns the field at index i.
func (s *Schema) Field(i int) Field {
	return s.fields[i]
}

// Fields returns a copy of the schema's field list.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)

	return out
}

// BufferCount returns the total number of physical buffers implied by all
// fields.
func (s *Schema) BufferCount() int {
	n := 0
	for _, f := range s.fields {
		n += f.Type.BufferCount()
	}

	return n
}

func (s *Schema) String() string {
	var sb strings.Builder
	sb.WriteString("schema<")
	for i, f := range s.fields {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s: %s", f.Name, f.Type)
	}
	sb.WriteString(">")

	return sb.String()
}
