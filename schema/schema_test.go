package schema

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/shufflepack/errs"
)

func TestValueType_Layout(t *testing.T) {
	tests := []struct {
		name        string
		vType       ValueType
		fixedWidth  int
		hasOffsets  bool
		offsetWidth int
		bufferCount int
	}{
		{name: "null", vType: TypeNull, bufferCount: 0},
		{name: "bool", vType: TypeBool, fixedWidth: 1, bufferCount: 2},
		{name: "int16", vType: TypeInt16, fixedWidth: 2, bufferCount: 2},
		{name: "int32", vType: TypeInt32, fixedWidth: 4, bufferCount: 2},
		{name: "int64", vType: TypeInt64, fixedWidth: 8, bufferCount: 2},
		{name: "float64", vType: TypeFloat64, fixedWidth: 8, bufferCount: 2},
		{name: "date32", vType: TypeDate32, fixedWidth: 4, bufferCount: 2},
		{name: "timestamp", vType: TypeTimestamp, fixedWidth: 8, bufferCount: 2},
		{name: "decimal128", vType: TypeDecimal128, fixedWidth: 16, bufferCount: 2},
		{name: "binary", vType: TypeBinary, hasOffsets: true, offsetWidth: 4, bufferCount: 3},
		{name: "string", vType: TypeString, hasOffsets: true, offsetWidth: 4, bufferCount: 3},
		{name: "large binary", vType: TypeLargeBinary, hasOffsets: true, offsetWidth: 8, bufferCount: 3},
		{name: "large string", vType: TypeLargeString, hasOffsets: true, offsetWidth: 8, bufferCount: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.True(t, tt.vType.Valid())
			require.Equal(t, tt.fixedWidth, tt.vType.FixedWidth())
			require.Equal(t, tt.hasOffsets, tt.vType.HasOffsets())
			require.Equal(t, tt.offsetWidth, tt.vType.OffsetWidth())
			require.Equal(t, tt.bufferCount, tt.vType.BufferCount())
		})
	}
}

func TestValueType_String(t *testing.T) {
	require.Equal(t, "Int64", TypeInt64.String())
	require.Equal(t, "LargeBinary", TypeLargeBinary.String())
	require.Equal(t, "Unknown", ValueType(0xEE).String())
	require.False(t, ValueType(0xEE).Valid())
}

func TestShuffleType(t *testing.T) {
	got, err := ShuffleType(TypeString)
	require.NoError(t, err)
	require.Equal(t, TypeString, got)

	_, err = ShuffleType(ValueType(0xEE))
	require.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestShuffleTypes(t *testing.T) {
	fields := []Field{
		{Name: "id", Type: TypeInt64},
		{Name: "name", Type: TypeString, Nullable: true},
	}

	types, err := ShuffleTypes(fields)
	require.NoError(t, err)
	require.Equal(t, []ValueType{TypeInt64, TypeString}, types)

	fields = append(fields, Field{Name: "bad", Type: ValueType(0xEE)})
	_, err = ShuffleTypes(fields)
	require.ErrorIs(t, err, errs.ErrInvalidArgument)
	require.Contains(t, err.Error(), `"bad"`)
}

func TestSchema_Basics(t *testing.T) {
	fields := []Field{
		{Name: "id", Type: TypeInt64},
		{Name: "payload", Type: TypeLargeBinary, Nullable: true},
		{Name: "score", Type: TypeFloat64, Nullable: true},
	}
	s := NewSchema(fields)

	require.Equal(t, 3, s.NumFields())
	require.Equal(t, fields[1], s.Field(1))
	// 2 (int64) + 3 (large binary) + 2 (float64)
	require.Equal(t, 7, s.BufferCount())
	require.Equal(t, "schema<id: Int64, payload: LargeBinary, score: Float64>", s.String())
}

func TestSchema_FieldsAreCopied(t *testing.T) {
	fields := []Field{{Name: "id", Type: TypeInt32}}
	s := NewSchema(fields)

	// Mutating either the input or the returned copy must not leak into the
	// schema.
	fields[0].Name = "changed"
	require.Equal(t, "id", s.Field(0).Name)

	out := s.Fields()
	out[0].Name = "changed"
	require.Equal(t, "id", s.Field(0).Name)
}
