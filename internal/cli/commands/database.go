package commands

import (
	"fmt"

	"github.com/leapstack-labs/leapdb/internal/cli/config"
	"github.com/leapstack-labs/leapdb/internal/database"
	"github.com/leapstack-labs/leapdb/pkg/core"
	"github.com/spf13/cobra"
)

// NewCreateDatabaseCommand creates the create-db command.
func NewCreateDatabaseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "create-db [name]",
		Short: "Create a database",
		Long: `Create a database directory under the data directory.

Without a name the configured database is created.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, cleanup := NewCommandContext(cmd)
			defer cleanup()

			name := cc.Cfg.Database
			if len(args) > 0 {
				name = args[0]
			}
			return cc.Recorder.Record(cmd.Context(), name, "", core.OpCreateDatabase, func() (int64, error) {
				if _, err := database.Create(cc.Cfg.DataDir, name, cc.dbOptions()...); err != nil {
					return 0, err
				}
				cc.Renderer.Success("Created database %s", name)
				return 0, nil
			})
		},
	}
}

// NewDropDatabaseCommand creates the drop-db command.
func NewDropDatabaseCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "drop-db <name>",
		Short: "Delete a database and all of its tables",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, cleanup := NewCommandContext(cmd)
			defer cleanup()

			name := args[0]
			if !force {
				return fmt.Errorf("refusing to drop database %s without --force", name)
			}
			return cc.Recorder.Record(cmd.Context(), name, "", core.OpDropDatabase, func() (int64, error) {
				if err := database.Drop(cc.Cfg.DataDir, name); err != nil {
					return 0, err
				}
				cc.Renderer.Success("Dropped database %s", name)
				return 0, nil
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Confirm deletion")

	return cmd
}

// NewDatabasesCommand creates the databases command.
func NewDatabasesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "databases",
		Short: "List databases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, cleanup := NewCommandContext(cmd)
			defer cleanup()

			names, err := database.List(cc.Cfg.DataDir)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(names))
			for _, name := range names {
				current := ""
				if name == cc.Cfg.Database {
					current = "*"
				}
				rows = append(rows, []string{name, current})
			}
			return cc.Renderer.Table([]string{"database", "current"}, rows)
		},
	}
}

// completeTables offers table names of the configured database.
func completeTables(cmd *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	cfg := config.FromContext(cmd.Context())
	db, err := database.Open(cfg.DataDir, cfg.Database)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	names, err := db.Tables()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}
