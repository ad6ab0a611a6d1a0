package relations

import (
	"fmt"

	"github.com/leapstack-labs/leapdb/pkg/core"
)

// SchemaLoader returns the stored schema of a table.
type SchemaLoader func(table string) (core.Schema, error)

// Validate type-checks foreign keys requested for a new table. For each key
// the column named TargetField must exist in both the source schema and the
// target table's schema with equal types. Either every key passes and the
// relations to record are returned, or none are.
func Validate(fromTable string, source core.Schema, fks []core.ForeignKey, load SchemaLoader) ([]core.Relation, error) {
	recs := make([]core.Relation, 0, len(fks))
	for _, fk := range fks {
		target, err := load(fk.TargetTable)
		if err != nil {
			return nil, err
		}

		from, ok := source.Lookup(fk.TargetField)
		if !ok {
			return nil, &core.Error{
				Kind:   core.KindReferential,
				Op:     "validate foreign key",
				Table:  fromTable,
				Column: fk.TargetField,
				Err:    fmt.Errorf("no such column on %s", fromTable),
			}
		}
		to, ok := target.Lookup(fk.TargetField)
		if !ok {
			return nil, &core.Error{
				Kind:   core.KindReferential,
				Op:     "validate foreign key",
				Table:  fk.TargetTable,
				Column: fk.TargetField,
				Err:    fmt.Errorf("no such column on target table %s", fk.TargetTable),
			}
		}
		if from.Field.Type != to.Field.Type {
			return nil, &core.Error{
				Kind:     core.KindReferential,
				Op:       "validate foreign key",
				Table:    fk.TargetTable,
				Column:   fk.TargetField,
				Expected: to.Field.Type.String(),
				Value:    from.Field.Type.String(),
			}
		}

		recs = append(recs, core.Relation{FromTable: fromTable, ToTable: fk.TargetTable, Field: fk.TargetField})
	}
	return recs, nil
}
