package core

import "fmt"

// Field describes a column's storage type and nullability.
// PrimaryKey and ForeignKey are advisory flags; nothing enforces them.
type Field struct {
	Type       FieldType
	Nullable   bool
	PrimaryKey bool
	ForeignKey bool
}

// FieldInfo is one named schema entry.
type FieldInfo struct {
	Field Field
	Name  string
}

// Schema is the ordered column list of a table. The order is the column
// order of the table's data file.
type Schema []FieldInfo

// Names returns the column names in schema order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, f := range s {
		names[i] = f.Name
	}
	return names
}

// Index returns the position of the named column, or -1.
func (s Schema) Index(name string) int {
	for i, f := range s {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Lookup returns the named column.
func (s Schema) Lookup(name string) (FieldInfo, bool) {
	if i := s.Index(name); i >= 0 {
		return s[i], true
	}
	return FieldInfo{}, false
}

// Without returns a copy of s with the named column removed.
func (s Schema) Without(name string) Schema {
	out := make(Schema, 0, len(s))
	for _, f := range s {
		if f.Name != name {
			out = append(out, f)
		}
	}
	return out
}

// Validate checks that the schema has at least one column, that names are
// non-empty and unique, and that every type is storable.
func (s Schema) Validate() error {
	if len(s) == 0 {
		return &Error{Kind: KindValidation, Op: "validate schema", Err: fmt.Errorf("schema has no columns")}
	}
	seen := make(map[string]struct{}, len(s))
	for _, f := range s {
		if f.Name == "" {
			return &Error{Kind: KindValidation, Op: "validate schema", Err: fmt.Errorf("empty column name")}
		}
		if _, dup := seen[f.Name]; dup {
			return &Error{Kind: KindValidation, Op: "validate schema", Column: f.Name, Err: fmt.Errorf("duplicate column")}
		}
		seen[f.Name] = struct{}{}
		if !f.Field.Type.Valid() {
			return &Error{Kind: KindValidation, Op: "validate schema", Column: f.Name, Err: fmt.Errorf("invalid type %s", f.Field.Type)}
		}
	}
	return nil
}

// ForeignKey is a foreign-key request made when a table is created. The
// source column is the column of the new table named TargetField.
type ForeignKey struct {
	TargetTable string
	TargetField string
}

// Relation is one accepted foreign key as stored in the relations log.
type Relation struct {
	FromTable string `json:"from_table"`
	ToTable   string `json:"to_table"`
	Field     string `json:"field"`
}

// Row is one stored record in schema column order.
type Row []string
