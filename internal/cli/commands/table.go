package commands

import (
	"fmt"
	"strconv"

	"github.com/leapstack-labs/leapdb/internal/cli/output"
	"github.com/leapstack-labs/leapdb/pkg/core"
	"github.com/spf13/cobra"
)

// NewCreateTableCommand creates the create-table command.
func NewCreateTableCommand() *cobra.Command {
	var fkRefs []string

	cmd := &cobra.Command{
		Use:   "create-table <table> <column:type[:null][:pk]>...",
		Short: "Create a table",
		Long: `Create a table with the given columns.

Types: int, float, double, text, blob, varchar(N).
Modifiers: null (empty values allowed), pk (advisory primary key).

A foreign key names a column of the new table and the table it references
(--fk users.id). The column must exist in both tables with the same type;
the relation is recorded in the database's relations ledger.`,
		Example: `  leapdb create-table users id:int:pk name:varchar(50) email:text:null
  leapdb create-table orders id:int total:float --fk users.id`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, cleanup := NewCommandContext(cmd)
			defer cleanup()

			schema, fks, err := parseSchema(args[1:], fkRefs)
			if err != nil {
				return err
			}
			db, err := cc.OpenDatabase()
			if err != nil {
				return err
			}

			name := args[0]
			return cc.Recorder.Record(cmd.Context(), db.Name, name, core.OpCreateTable, func() (int64, error) {
				if _, err := db.CreateTable(name, schema, fks); err != nil {
					return 0, err
				}
				cc.Renderer.Success("Created table %s (%d columns, %d foreign keys)", name, len(schema), len(fks))
				return 0, nil
			})
		},
	}

	cmd.Flags().StringArrayVar(&fkRefs, "fk", nil, "Foreign key as table.field (repeatable)")

	return cmd
}

// NewDropTableCommand creates the drop-table command.
func NewDropTableCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "drop-table <table>",
		Short:             "Delete a table and its relations",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeTables,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, cleanup := NewCommandContext(cmd)
			defer cleanup()

			db, err := cc.OpenDatabase()
			if err != nil {
				return err
			}
			name := args[0]
			return cc.Recorder.Record(cmd.Context(), db.Name, name, core.OpDropTable, func() (int64, error) {
				if err := db.DropTable(name); err != nil {
					return 0, err
				}
				cc.Renderer.Success("Dropped table %s", name)
				return 0, nil
			})
		},
	}
}

// NewTablesCommand creates the tables command.
func NewTablesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List the tables of the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, cleanup := NewCommandContext(cmd)
			defer cleanup()

			db, err := cc.OpenDatabase()
			if err != nil {
				return err
			}
			names, err := db.Tables()
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(names))
			for _, name := range names {
				t := db.Table(name)
				schema, err := t.Schema()
				if err != nil {
					cc.Logger.Warn("unreadable schema", "table", name, "error", err)
					rows = append(rows, []string{name, "?", "?"})
					continue
				}
				count, err := t.Count()
				if err != nil {
					cc.Logger.Warn("unreadable data", "table", name, "error", err)
					rows = append(rows, []string{name, strconv.Itoa(len(schema)), "?"})
					continue
				}
				rows = append(rows, []string{name, strconv.Itoa(len(schema)), strconv.Itoa(count)})
			}
			return cc.Renderer.Table([]string{"table", "columns", "rows"}, rows)
		},
	}
}

// columnInfo is the describe output for one column.
type columnInfo struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Nullable   bool   `json:"nullable"`
	PrimaryKey bool   `json:"primary_key"`
	ForeignKey bool   `json:"foreign_key"`
}

type describeOutput struct {
	Table     string          `json:"table"`
	Columns   []columnInfo    `json:"columns"`
	Relations []core.Relation `json:"relations"`
}

// NewDescribeCommand creates the describe command.
func NewDescribeCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "describe <table>",
		Aliases:           []string{"schema"},
		Short:             "Show a table's columns and relations",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeTables,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, cleanup := NewCommandContext(cmd)
			defer cleanup()

			db, err := cc.OpenDatabase()
			if err != nil {
				return err
			}
			out, err := describeTable(db.Table(args[0]).Schema, db.Relations().List, args[0])
			if err != nil {
				return err
			}
			return renderDescribe(cc, out)
		},
	}
}

func describeTable(schema func() (core.Schema, error), relations func() ([]core.Relation, error), name string) (*describeOutput, error) {
	s, err := schema()
	if err != nil {
		return nil, err
	}
	recs, err := relations()
	if err != nil {
		return nil, err
	}

	out := &describeOutput{Table: name, Columns: make([]columnInfo, 0, len(s)), Relations: []core.Relation{}}
	for _, f := range s {
		out.Columns = append(out.Columns, columnInfo{
			Name:       f.Name,
			Type:       f.Field.Type.String(),
			Nullable:   f.Field.Nullable,
			PrimaryKey: f.Field.PrimaryKey,
			ForeignKey: f.Field.ForeignKey,
		})
	}
	for _, rec := range recs {
		if rec.FromTable == name || rec.ToTable == name {
			out.Relations = append(out.Relations, rec)
		}
	}
	return out, nil
}

func renderDescribe(cc *CommandContext, out *describeOutput) error {
	r := cc.Renderer
	if r.Mode() == output.ModeJSON {
		return r.JSON(out)
	}

	r.Header("Table: " + out.Table)
	rows := make([][]string, 0, len(out.Columns))
	for _, c := range out.Columns {
		rows = append(rows, []string{c.Name, c.Type, yesNo(c.Nullable), keyFlags(c)})
	}
	if err := r.Table([]string{"column", "type", "nullable", "key"}, rows); err != nil {
		return err
	}
	if len(out.Relations) > 0 {
		r.Header("Relations")
		for _, rec := range out.Relations {
			r.Muted("  %s.%s -> %s.%s", rec.FromTable, rec.Field, rec.ToTable, rec.Field)
		}
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "YES"
	}
	return "NO"
}

func keyFlags(c columnInfo) string {
	switch {
	case c.PrimaryKey && c.ForeignKey:
		return "PK, FK"
	case c.PrimaryKey:
		return "PK"
	case c.ForeignKey:
		return "FK"
	default:
		return ""
	}
}

// requireTableArg returns a cobra.PositionalArgs requiring a table name
// followed by at least n further arguments.
func requireTableArg(n int) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) < 1+n {
			return fmt.Errorf("requires a table name and at least %d more argument(s)", n)
		}
		return nil
	}
}
