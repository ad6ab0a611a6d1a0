package config

import (
	"fmt"
	"slices"
	"strings"
)

// OutputFormats are the accepted values of the output setting.
var OutputFormats = []string{"auto", "text", "markdown", "json"}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if c.Database == "" {
		return fmt.Errorf("database is required")
	}
	if strings.ContainsAny(c.Database, `/\`) || strings.HasPrefix(c.Database, ".") {
		return fmt.Errorf("invalid database name %q", c.Database)
	}
	if c.History && c.HistoryPath == "" {
		return fmt.Errorf("history_path is required when history is enabled")
	}
	if c.OutputFormat != "" && !slices.Contains(OutputFormats, c.OutputFormat) {
		return fmt.Errorf("invalid output format %q (expected one of %s)", c.OutputFormat, strings.Join(OutputFormats, ", "))
	}
	return nil
}
