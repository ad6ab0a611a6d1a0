package relations

import (
	"testing"

	"github.com/leapstack-labs/leapdb/internal/storage/schemafile"
	"github.com/leapstack-labs/leapdb/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loaderFor(schemas map[string]core.Schema) SchemaLoader {
	return func(table string) (core.Schema, error) {
		s, ok := schemas[table]
		if !ok {
			return schemafile.Read("/nonexistent/" + table + "_info")
		}
		return s, nil
	}
}

func TestValidate(t *testing.T) {
	users := core.Schema{
		{Name: "id", Field: core.Field{Type: core.Int}},
		{Name: "name", Field: core.Field{Type: core.Varchar(50)}},
	}
	load := loaderFor(map[string]core.Schema{"users": users})

	tests := []struct {
		name     string
		source   core.Schema
		fks      []core.ForeignKey
		wantKind core.ErrorKind
		want     []core.Relation
	}{
		{
			name:   "matching types",
			source: core.Schema{{Name: "id", Field: core.Field{Type: core.Int}}},
			fks:    []core.ForeignKey{{TargetTable: "users", TargetField: "id"}},
			want:   []core.Relation{{FromTable: "orders", ToTable: "users", Field: "id"}},
		},
		{
			name:     "type mismatch",
			source:   core.Schema{{Name: "id", Field: core.Field{Type: core.Varchar(10)}}},
			fks:      []core.ForeignKey{{TargetTable: "users", TargetField: "id"}},
			wantKind: core.KindReferential,
		},
		{
			name:     "varchar length mismatch",
			source:   core.Schema{{Name: "name", Field: core.Field{Type: core.Varchar(20)}}},
			fks:      []core.ForeignKey{{TargetTable: "users", TargetField: "name"}},
			wantKind: core.KindReferential,
		},
		{
			name:     "missing source column",
			source:   core.Schema{{Name: "total", Field: core.Field{Type: core.Float}}},
			fks:      []core.ForeignKey{{TargetTable: "users", TargetField: "id"}},
			wantKind: core.KindReferential,
		},
		{
			name:     "missing target column",
			source:   core.Schema{{Name: "email", Field: core.Field{Type: core.Text}}},
			fks:      []core.ForeignKey{{TargetTable: "users", TargetField: "email"}},
			wantKind: core.KindReferential,
		},
		{
			name:     "missing target table",
			source:   core.Schema{{Name: "id", Field: core.Field{Type: core.Int}}},
			fks:      []core.ForeignKey{{TargetTable: "ghosts", TargetField: "id"}},
			wantKind: core.KindSchema,
		},
		{
			name:   "all or nothing",
			source: core.Schema{{Name: "id", Field: core.Field{Type: core.Int}}},
			fks: []core.ForeignKey{
				{TargetTable: "users", TargetField: "id"},
				{TargetTable: "users", TargetField: "name"},
			},
			wantKind: core.KindReferential,
		},
		{
			name:   "no keys",
			source: core.Schema{{Name: "id", Field: core.Field{Type: core.Int}}},
			want:   []core.Relation{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := Validate("orders", tt.source, tt.fks, load)
			if tt.wantKind != 0 {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, core.KindOf(err))
				assert.Nil(t, recs)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, recs)
		})
	}
}
