package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/leapdb/internal/cli/config"
	"github.com/leapstack-labs/leapdb/internal/database"
	"github.com/leapstack-labs/leapdb/pkg/core"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new LeapDB project",
		Long: `Initialize a new LeapDB project.

This creates:
  - leapdb.yaml configuration file
  - the data directory holding one directory per database
  - the configured database with an empty relations ledger`,
		Example: `  # Initialize in current directory
  leapdb init

  # Initialize in a new directory with a named database
  leapdb init my-project --database shop

  # Force overwrite existing config
  leapdb init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			cc, cleanup := NewCommandContext(cmd)
			defer cleanup()

			name := cc.Cfg.Database
			if name == "" {
				name = config.DefaultDatabase
			}
			return runInit(cc, dir, name, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")

	return cmd
}

// projectFile is the subset of Config written by init.
type projectFile struct {
	DataDir     string `yaml:"data_dir"`
	Database    string `yaml:"database"`
	HistoryPath string `yaml:"history_path"`
	History     bool   `yaml:"history"`
	StrictMatch bool   `yaml:"strict_match"`
}

func runInit(cc *CommandContext, dir, name string, force bool) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	configPath := filepath.Join(dir, config.ConfigFileNames[0])
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", config.ConfigFileNames[0])
	}

	def := config.Default()
	data, err := yaml.Marshal(projectFile{
		DataDir:     def.DataDir,
		Database:    name,
		HistoryPath: def.HistoryPath,
		History:     def.History,
		StrictMatch: def.StrictMatch,
	})
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", configPath, err)
	}

	_, err = database.Create(filepath.Join(dir, def.DataDir), name, database.WithLogger(cc.Logger))
	if err != nil && !core.IsKind(err, core.KindExists) {
		return err
	}

	cc.Renderer.Success("Initialized LeapDB project in %s", dir)
	cc.Renderer.Muted("  config:   %s", configPath)
	cc.Renderer.Muted("  database: %s", filepath.Join(dir, def.DataDir, name))
	return nil
}
