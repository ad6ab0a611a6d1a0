package commands

import (
	"fmt"

	"github.com/leapstack-labs/leapdb/internal/cli/output"
	"github.com/leapstack-labs/leapdb/pkg/core"
	"github.com/spf13/cobra"
)

// NewInsertCommand creates the insert command.
func NewInsertCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "insert <table> <column=value>...",
		Short: "Append a row to a table",
		Long: `Append a row to a table.

Every column must be given. Empty values are only accepted by nullable
columns.`,
		Example:           `  leapdb insert users id=1 name=ann email=`,
		Args:              requireTableArg(1),
		ValidArgsFunction: completeTables,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, cleanup := NewCommandContext(cmd)
			defer cleanup()

			record, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}
			db, err := cc.OpenDatabase()
			if err != nil {
				return err
			}
			t := db.Table(args[0])
			return cc.Recorder.Record(cmd.Context(), db.Name, t.TableName, core.OpInsert, func() (int64, error) {
				if err := t.Insert(record); err != nil {
					return 0, err
				}
				cc.Renderer.Success("Inserted 1 row into %s", t.TableName)
				return 1, nil
			})
		},
	}
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand() *cobra.Command {
	var where, set []string

	cmd := &cobra.Command{
		Use:   "update <table> --where column=value... --set column=value...",
		Short: "Update matching rows",
		Long: `Update every row whose columns equal all --where values.

An empty --where matches nothing. With --strict, matching no rows is an
error.`,
		Example:           `  leapdb update users --where name=ann --set email=ann@example.com`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeTables,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, cleanup := NewCommandContext(cmd)
			defer cleanup()

			whereVals, err := parseAssignments(where)
			if err != nil {
				return err
			}
			changes, err := parseAssignments(set)
			if err != nil {
				return err
			}
			if len(changes) == 0 {
				return fmt.Errorf("nothing to update: pass at least one --set column=value")
			}
			db, err := cc.OpenDatabase()
			if err != nil {
				return err
			}
			t := db.Table(args[0])
			return cc.Recorder.Record(cmd.Context(), db.Name, t.TableName, core.OpUpdate, func() (int64, error) {
				n, err := t.Update(whereVals, changes)
				if err != nil {
					return 0, err
				}
				cc.Renderer.Success("Updated %d row(s) in %s", n, t.TableName)
				return int64(n), nil
			})
		},
	}

	cmd.Flags().StringArrayVarP(&where, "where", "w", nil, "Match condition column=value (repeatable)")
	cmd.Flags().StringArrayVarP(&set, "set", "s", nil, "New value column=value (repeatable)")

	return cmd
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand() *cobra.Command {
	var where []string

	cmd := &cobra.Command{
		Use:               "delete <table> --where column=value...",
		Short:             "Delete matching rows",
		Example:           `  leapdb delete users --where id=2`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeTables,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, cleanup := NewCommandContext(cmd)
			defer cleanup()

			whereVals, err := parseAssignments(where)
			if err != nil {
				return err
			}
			db, err := cc.OpenDatabase()
			if err != nil {
				return err
			}
			t := db.Table(args[0])
			return cc.Recorder.Record(cmd.Context(), db.Name, t.TableName, core.OpDeleteRecord, func() (int64, error) {
				n, err := t.DeleteRecord(whereVals)
				if err != nil {
					return 0, err
				}
				cc.Renderer.Success("Deleted %d row(s) from %s", n, t.TableName)
				return int64(n), nil
			})
		},
	}

	cmd.Flags().StringArrayVarP(&where, "where", "w", nil, "Match condition column=value (repeatable)")

	return cmd
}

// NewDropColumnCommand creates the drop-column command.
func NewDropColumnCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "drop-column <table> <column>",
		Short:             "Remove a column from a table",
		Long:              `Remove a column from a table's data and schema, and every relation naming it.`,
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: completeTables,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, cleanup := NewCommandContext(cmd)
			defer cleanup()

			db, err := cc.OpenDatabase()
			if err != nil {
				return err
			}
			t := db.Table(args[0])
			return cc.Recorder.Record(cmd.Context(), db.Name, t.TableName, core.OpDeleteColumn, func() (int64, error) {
				if err := t.DeleteColumn(args[1]); err != nil {
					return 0, err
				}
				cc.Renderer.Success("Dropped column %s from %s", args[1], t.TableName)
				return 0, nil
			})
		},
	}
}

// NewScanCommand creates the scan command.
func NewScanCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:               "scan <table>",
		Aliases:           []string{"select"},
		Short:             "Print the rows of a table",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeTables,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, cleanup := NewCommandContext(cmd)
			defer cleanup()

			db, err := cc.OpenDatabase()
			if err != nil {
				return err
			}
			t := db.Table(args[0])
			schema, err := t.Schema()
			if err != nil {
				return err
			}

			var rows [][]string
			for row, err := range t.Scan() {
				if err != nil {
					return err
				}
				rows = append(rows, row)
				if limit > 0 && len(rows) == limit {
					break
				}
			}
			return cc.Renderer.Table(schema.Names(), rows)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum rows to print (0 for all)")

	return cmd
}

// NewFindCommand creates the find command.
func NewFindCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "find <table> <value>",
		Short:             "Print the first row holding a value in any column",
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: completeTables,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, cleanup := NewCommandContext(cmd)
			defer cleanup()

			db, err := cc.OpenDatabase()
			if err != nil {
				return err
			}
			t := db.Table(args[0])
			schema, err := t.Schema()
			if err != nil {
				return err
			}
			row, ok, err := t.FindByValue(args[1])
			if err != nil {
				return err
			}
			if !ok {
				if cc.Renderer.Mode() == output.ModeJSON {
					return cc.Renderer.JSON(nil)
				}
				cc.Renderer.Muted("No row holds %q", args[1])
				return nil
			}
			return cc.Renderer.Table(schema.Names(), [][]string{row})
		},
	}
}
