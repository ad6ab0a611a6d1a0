package commands

import (
	"strconv"
	"time"

	"github.com/leapstack-labs/leapdb/internal/cli/output"
	"github.com/leapstack-labs/leapdb/internal/history"
	"github.com/leapstack-labs/leapdb/pkg/core"
	"github.com/spf13/cobra"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var (
		tableFilter string
		limit       int
		prune       int
		all         bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded operations",
		Long: `Show the mutating operations recorded in the history database,
newest first. Use --prune N to keep only the newest N entries.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, cleanup := NewCommandContext(cmd)
			defer cleanup()

			store, err := history.Open(cc.Cfg.HistoryPath, cc.Logger)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if cmd.Flags().Changed("prune") {
				n, err := store.Prune(cmd.Context(), prune)
				if err != nil {
					return err
				}
				cc.Renderer.Success("Pruned %d history entries", n)
				return nil
			}

			filter := core.HistoryFilter{Table: tableFilter, Limit: limit}
			if !all {
				filter.Database = cc.Cfg.Database
			}
			entries, err := store.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return renderHistory(cc.Renderer, entries)
		},
	}

	cmd.Flags().StringVar(&tableFilter, "table", "", "Only operations on this table")
	cmd.Flags().IntVarP(&limit, "limit", "n", history.DefaultLimit, "Maximum entries to show")
	cmd.Flags().IntVar(&prune, "prune", 0, "Delete all but the newest N entries")
	cmd.Flags().BoolVar(&all, "all", false, "Include every database")

	return cmd
}

func renderHistory(r *output.Renderer, entries []*core.HistoryEntry) error {
	if r.Mode() == output.ModeJSON {
		if entries == nil {
			entries = []*core.HistoryEntry{}
		}
		return r.JSON(entries)
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		duration := ""
		if e.CompletedAt != nil {
			duration = e.CompletedAt.Sub(e.StartedAt).Round(time.Millisecond).String()
		}
		rows = append(rows, []string{
			e.StartedAt.Local().Format(time.DateTime),
			e.Database,
			e.Table,
			string(e.Operation),
			string(e.Status),
			strconv.FormatInt(e.Rows, 10),
			duration,
			e.Error,
		})
	}
	return r.Table([]string{"started", "database", "table", "operation", "status", "rows", "duration", "error"}, rows)
}
