package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFieldType(t *testing.T) {
	tests := []struct {
		input  string
		want   FieldType
		wantOK bool
	}{
		{"int", Int, true},
		{"INT", Int, true},
		{"Float", Float, true},
		{"double", Double, true},
		{"text", Text, true},
		{"BLOB", Blob, true},
		{"varchar(50)", Varchar(50), true},
		{"VARCHAR(255)", Varchar(255), true},
		{" varchar( 8 ) ", Varchar(8), true},
		{"varchar", Incorrect, false},
		{"varchar(abc)", Incorrect, false},
		{"varchar(-1)", Incorrect, false},
		{"bigint", Incorrect, false},
		{"", Incorrect, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseFieldType(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFieldTypeString_RoundTrip(t *testing.T) {
	for _, ft := range []FieldType{Int, Float, Double, Text, Blob, Varchar(0), Varchar(50)} {
		parsed, ok := ParseFieldType(ft.String())
		assert.True(t, ok, ft.String())
		assert.Equal(t, ft, parsed)
	}
	assert.Equal(t, "varchar(50)", Varchar(50).String())
}

func TestInferFieldType(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  FieldType
	}{
		{"integer", "42", Int},
		{"negative integer", "-7", Int},
		{"float", "3.14", Float},
		{"exponent float", "1e10", Float},
		// float32 overflows, float64 does not
		{"double only", "1e300", Double},
		{"varchar marker", "VARCHAR(10)", Varchar(10)},
		{"blob marker", "BLOB", Blob},
		{"text", "Alice", Text},
		{"text with spaces", "hello world", Text},
		{"empty", "", Incorrect},
		{"invalid utf8", string([]byte{0xff, 0xfe}), Incorrect},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferFieldType(tt.value))
		})
	}
}

func TestFieldType_Accepts(t *testing.T) {
	tests := []struct {
		name  string
		typ   FieldType
		value string
		want  bool
	}{
		{"int accepts int", Int, "1", true},
		{"int rejects text", Int, "abc", false},
		{"int rejects float", Int, "1.5", false},
		{"float accepts float", Float, "1.5", true},
		{"float rejects int", Float, "1", false},
		{"double rejects float32 range", Double, "1.5", false},
		{"double accepts float64 range", Double, "1e300", true},
		{"varchar accepts short text", Varchar(50), "Alice", true},
		{"varchar rejects long text", Varchar(3), "Alice", false},
		{"varchar counts runes", Varchar(2), "日本", true},
		{"varchar rejects number", Varchar(50), "12", false},
		{"text accepts text", Text, "anything goes", true},
		{"blob accepts text", Blob, "payload", true},
		{"blob accepts marker", Blob, "BLOB", true},
		{"text rejects empty", Text, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.typ.Accepts(tt.value))
		})
	}
}

func TestFieldType_Comparable(t *testing.T) {
	assert.Equal(t, Varchar(10), Varchar(10))
	assert.NotEqual(t, Varchar(10), Varchar(11))
	assert.True(t, Int == FieldType{Kind: KindInt})
	assert.False(t, Incorrect.Valid())
	assert.True(t, Blob.Valid())
}
