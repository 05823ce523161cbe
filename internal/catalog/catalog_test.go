package catalog

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseType(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"int", "int"},
		{"bigint", "bigint"},
		{"smallint", "smallint"},
		{"decimal", "decimal"},
		{"text", "text"},
		{"bool", "bool"},
		{"timestamp", "timestamp"},
		{"timestamptz", "timestamptz"},
		{"uuid", "uuid"},
		{"nullable<int>", "nullable<int>"},
		{"sequence<text>", "sequence<text>"},
		{"sequence<nullable<int>>", "sequence<nullable<int>>"},
		{"nullable<sequence<uuid>>", "nullable<sequence<uuid>>"},
		{" text ", "text"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			typ, err := ParseType(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, typ.String())
		})
	}
}

func TestParseTypeUnknown(t *testing.T) {
	for _, input := range []string{"", "varchar", "nullable<varchar>", "sequence<>", "nullable<nullable<int>>"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseType(input)
			assert.ErrorIs(t, err, ErrUnknownType)
		})
	}
}

func TestResolveGoNames(t *testing.T) {
	cat := Default()

	tests := []struct {
		declared string
		goName   string
	}{
		{"int", "int32"},
		{"bigint", "int64"},
		{"smallint", "int16"},
		{"decimal", "string"},
		{"text", "string"},
		{"bool", "bool"},
		{"timestamp", "time.Time"},
		{"uuid", "uuid.UUID"},
		{"nullable<int>", "*int32"},
		{"sequence<text>", "[]string"},
		{"sequence<nullable<bigint>>", "[]*int64"},
	}

	for _, tt := range tests {
		t.Run(tt.declared, func(t *testing.T) {
			host, err := cat.Resolve(MustParseType(tt.declared))
			require.NoError(t, err)
			assert.Equal(t, tt.goName, host.GoName)
		})
	}
}

// TestRoundTrip verifies that encoding a host value into a query
// parameter and decoding it back from an identically-typed column
// yields an equal value, for every supported type and nullable variant.
func TestRoundTrip(t *testing.T) {
	cat := Default()
	id := uuid.New()
	now := time.Date(2025, 3, 9, 12, 30, 0, 0, time.UTC)

	tests := []struct {
		declared string
		value    any
	}{
		{"int", int32(42)},
		{"bigint", int64(1 << 40)},
		{"smallint", int16(-7)},
		{"decimal", "12345.678901234567890"},
		{"text", "Ann"},
		{"bool", true},
		{"timestamp", now},
		{"timestamptz", now},
		{"uuid", id},
		{"nullable<int>", int32(7)},
		{"nullable<int>", nil},
		{"nullable<text>", nil},
		{"nullable<uuid>", id},
		{"sequence<int>", []any{int32(1), int32(2), int32(3)}},
		{"sequence<nullable<text>>", []any{"a", nil, "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.declared, func(t *testing.T) {
			host, err := cat.Resolve(MustParseType(tt.declared))
			require.NoError(t, err)

			param, err := host.Encode(tt.value)
			require.NoError(t, err)

			back, err := host.Decode(param)
			require.NoError(t, err)
			assert.Equal(t, tt.value, back)
		})
	}
}

func TestDecodeDriverShapes(t *testing.T) {
	cat := Default()

	tests := []struct {
		declared string
		raw      any
		expected any
	}{
		{"int", int64(42), int32(42)},
		{"bigint", int32(9), int64(9)},
		{"text", []byte("hello"), "hello"},
		{"decimal", []byte("1.5"), "1.5"},
		{"uuid", "6ba7b810-9dad-11d1-80b4-00c04fd430c8", uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")},
		{"sequence<int>", []int64{1, 2}, []any{int32(1), int32(2)}},
		{"sequence<text>", []string{"x"}, []any{"x"}},
		{"nullable<bool>", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.declared, func(t *testing.T) {
			host, err := cat.Resolve(MustParseType(tt.declared))
			require.NoError(t, err)

			got, err := host.Decode(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestDecodeMismatch(t *testing.T) {
	cat := Default()

	host, err := cat.Resolve(MustParseType("int"))
	require.NoError(t, err)

	_, err = host.Decode("not a number")
	assert.Error(t, err)

	_, err = host.Decode(int64(1 << 40))
	assert.Error(t, err, "overflowing values must not decode silently")
}
