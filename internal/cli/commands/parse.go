package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapdb/pkg/core"
)

// parseColumn parses a column spec of the form name:type[:null][:pk].
func parseColumn(spec string) (core.FieldInfo, error) {
	parts := strings.Split(spec, ":")
	if len(parts) < 2 || parts[0] == "" {
		return core.FieldInfo{}, fmt.Errorf("invalid column %q (expected name:type[:null][:pk])", spec)
	}

	ft, ok := core.ParseFieldType(parts[1])
	if !ok {
		return core.FieldInfo{}, fmt.Errorf("column %q: unknown type %q", parts[0], parts[1])
	}

	col := core.FieldInfo{Name: parts[0], Field: core.Field{Type: ft}}
	for _, mod := range parts[2:] {
		switch strings.ToLower(mod) {
		case "null", "nullable":
			col.Field.Nullable = true
		case "pk", "primary":
			col.Field.PrimaryKey = true
		default:
			return core.FieldInfo{}, fmt.Errorf("column %q: unknown modifier %q", parts[0], mod)
		}
	}
	return col, nil
}

// parseSchema parses column specs and foreign-key references (table.field)
// into a schema. Columns named by a foreign key are flagged as such.
func parseSchema(columns, fkRefs []string) (core.Schema, []core.ForeignKey, error) {
	schema := make(core.Schema, 0, len(columns))
	for _, spec := range columns {
		col, err := parseColumn(spec)
		if err != nil {
			return nil, nil, err
		}
		schema = append(schema, col)
	}

	fks := make([]core.ForeignKey, 0, len(fkRefs))
	for _, ref := range fkRefs {
		fk, err := parseForeignKey(ref)
		if err != nil {
			return nil, nil, err
		}
		if i := schema.Index(fk.TargetField); i >= 0 {
			schema[i].Field.ForeignKey = true
		}
		fks = append(fks, fk)
	}
	return schema, fks, nil
}

// parseForeignKey parses a table.field reference.
func parseForeignKey(ref string) (core.ForeignKey, error) {
	table, field, ok := strings.Cut(ref, ".")
	if !ok || table == "" || field == "" {
		return core.ForeignKey{}, fmt.Errorf("invalid foreign key %q (expected table.field)", ref)
	}
	return core.ForeignKey{TargetTable: table, TargetField: field}, nil
}

// parseAssignments parses column=value pairs. Values may be empty and may
// contain '='.
func parseAssignments(args []string) (map[string]string, error) {
	values := make(map[string]string, len(args))
	for _, arg := range args {
		col, val, ok := strings.Cut(arg, "=")
		if !ok || col == "" {
			return nil, fmt.Errorf("invalid assignment %q (expected column=value)", arg)
		}
		if _, dup := values[col]; dup {
			return nil, fmt.Errorf("column %q assigned twice", col)
		}
		values[col] = val
	}
	return values, nil
}
