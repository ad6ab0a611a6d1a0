package commands

import (
	"log/slog"

	"github.com/leapstack-labs/leapdb/internal/cli/config"
	"github.com/leapstack-labs/leapdb/internal/cli/output"
	"github.com/leapstack-labs/leapdb/internal/database"
	"github.com/leapstack-labs/leapdb/internal/history"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
	Recorder *history.Recorder
}

// NewCommandContext builds the dependencies shared by every command. The
// returned cleanup function closes the history store and must be called.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func()) {
	cfg := config.FromContext(cmd.Context())
	logger := config.GetLogger(cmd.Context())
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))

	cc := &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
		Recorder: history.NewRecorder(nil, logger),
	}
	cleanup := func() {}

	if cfg.History {
		store, err := history.Open(cfg.HistoryPath, logger)
		if err != nil {
			logger.Warn("history disabled", slog.String("path", cfg.HistoryPath), slog.Any("error", err))
		} else {
			cc.Recorder = history.NewRecorder(store, logger)
			cleanup = func() { _ = store.Close() }
		}
	}
	return cc, cleanup
}

// dbOptions returns the database options derived from the config.
func (cc *CommandContext) dbOptions() []database.Option {
	return []database.Option{
		database.WithLogger(cc.Logger),
		database.WithStrictMatch(cc.Cfg.StrictMatch),
	}
}

// OpenDatabase opens the configured database.
func (cc *CommandContext) OpenDatabase() (*database.Database, error) {
	return database.Open(cc.Cfg.DataDir, cc.Cfg.Database, cc.dbOptions()...)
}
