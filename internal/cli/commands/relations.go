package commands

import (
	"github.com/leapstack-labs/leapdb/internal/cli/output"
	"github.com/leapstack-labs/leapdb/pkg/core"
	"github.com/spf13/cobra"
)

// NewRelationsCommand creates the relations command.
func NewRelationsCommand() *cobra.Command {
	var tableFilter string

	cmd := &cobra.Command{
		Use:   "relations",
		Short: "List recorded foreign-key relations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, cleanup := NewCommandContext(cmd)
			defer cleanup()

			db, err := cc.OpenDatabase()
			if err != nil {
				return err
			}
			recs, err := db.Relations().List()
			if err != nil {
				return err
			}
			recs = filterRelations(recs, tableFilter)

			if cc.Renderer.Mode() == output.ModeJSON {
				return cc.Renderer.JSON(recs)
			}
			rows := make([][]string, 0, len(recs))
			for _, rec := range recs {
				rows = append(rows, []string{rec.FromTable, rec.ToTable, rec.Field})
			}
			return cc.Renderer.Table([]string{"from_table", "to_table", "field"}, rows)
		},
	}

	cmd.Flags().StringVar(&tableFilter, "table", "", "Only relations naming this table")

	return cmd
}

func filterRelations(recs []core.Relation, table string) []core.Relation {
	out := make([]core.Relation, 0, len(recs))
	for _, rec := range recs {
		if table == "" || rec.FromTable == table || rec.ToTable == table {
			out = append(out, rec)
		}
	}
	return out
}
