package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// FieldKind enumerates the storage types a column can declare.
type FieldKind uint8

// Field kinds. The numeric values are the type tags of the schema side-car
// encoding and must not be reordered.
const (
	KindIncorrect FieldKind = iota
	KindInt
	KindFloat
	KindDouble
	KindVarchar
	KindText
	KindBlob
)

// FieldType is a storage type. MaxLength is only meaningful for Varchar.
// Values are comparable with ==.
type FieldType struct {
	Kind      FieldKind
	MaxLength uint32
}

// Predefined field types.
var (
	Int       = FieldType{Kind: KindInt}
	Float     = FieldType{Kind: KindFloat}
	Double    = FieldType{Kind: KindDouble}
	Text      = FieldType{Kind: KindText}
	Blob      = FieldType{Kind: KindBlob}
	Incorrect = FieldType{Kind: KindIncorrect}
)

// Varchar returns a varchar type with the given maximum length.
func Varchar(maxLength uint32) FieldType {
	return FieldType{Kind: KindVarchar, MaxLength: maxLength}
}

var varcharPattern = regexp.MustCompile(`(?i)^varchar\s*\(\s*(\d+)\s*\)$`)

// ParseFieldType parses a type name such as "int" or "VARCHAR(50)".
// Matching is case-insensitive.
func ParseFieldType(s string) (FieldType, bool) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "int":
		return Int, true
	case "float":
		return Float, true
	case "double":
		return Double, true
	case "text":
		return Text, true
	case "blob":
		return Blob, true
	}
	if n, ok := parseVarcharLength(name); ok {
		return Varchar(n), true
	}
	return Incorrect, false
}

func parseVarcharLength(s string) (uint32, bool) {
	m := varcharPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseUint(m[1], 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(n), true
}

// InferFieldType guesses the storage type of a textual value.
//
// The checks run in a fixed order: integer, single-precision float,
// double-precision float, a literal VARCHAR(N) or BLOB marker, then plain
// text. Every float32-parseable value is also a valid float64, so Double is
// only inferred for values outside float32 range. Empty strings and invalid
// UTF-8 infer as Incorrect.
func InferFieldType(value string) FieldType {
	if _, err := strconv.ParseInt(value, 10, 64); err == nil {
		return Int
	}
	if _, err := strconv.ParseFloat(value, 32); err == nil {
		return Float
	}
	if _, err := strconv.ParseFloat(value, 64); err == nil {
		return Double
	}
	if n, ok := parseVarcharLength(value); ok {
		return Varchar(n)
	}
	if strings.EqualFold(value, "blob") {
		return Blob
	}
	if value != "" && utf8.ValidString(value) {
		return Text
	}
	return Incorrect
}

// Accepts reports whether value may be stored in a column of type t.
// The inferred type must equal t, except that plain text is accepted by
// Text, Blob and Varchar columns (the latter up to MaxLength runes).
func (t FieldType) Accepts(value string) bool {
	inferred := InferFieldType(value)
	if inferred == t {
		return true
	}
	if inferred.Kind != KindText {
		return false
	}
	switch t.Kind {
	case KindText, KindBlob:
		return true
	case KindVarchar:
		return uint32(utf8.RuneCountInString(value)) <= t.MaxLength
	default:
		return false
	}
}

// String returns the canonical type name accepted by ParseFieldType.
func (t FieldType) String() string {
	switch t.Kind {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindDouble:
		return "double"
	case KindVarchar:
		return fmt.Sprintf("varchar(%d)", t.MaxLength)
	case KindText:
		return "text"
	case KindBlob:
		return "blob"
	default:
		return "incorrect"
	}
}

// Valid reports whether t is one of the storable kinds.
func (t FieldType) Valid() bool {
	return t.Kind >= KindInt && t.Kind <= KindBlob
}
