// Package config provides configuration management for the LeapDB CLI.
//
// Values are layered with koanf: defaults, then leapdb.yaml, then LEAPDB_*
// environment variables, then explicitly set command-line flags.
package config

// Defaults.
const (
	DefaultDataDir     = "data"
	DefaultDatabase    = "main"
	DefaultHistoryPath = ".leapdb/history.db"
	DefaultOutput      = "auto"
	DefaultLogLevel    = "warn"
)

// ConfigFileNames are searched, in order, in the project root.
var ConfigFileNames = []string{"leapdb.yaml", "leapdb.yml"}

// Config holds all CLI configuration options.
type Config struct {
	DataDir      string `koanf:"data_dir" yaml:"data_dir"`
	Database     string `koanf:"database" yaml:"database"`
	HistoryPath  string `koanf:"history_path" yaml:"history_path"`
	History      bool   `koanf:"history" yaml:"history"`
	StrictMatch  bool   `koanf:"strict_match" yaml:"strict_match"`
	Verbose      bool   `koanf:"verbose" yaml:"verbose,omitempty"`
	OutputFormat string `koanf:"output" yaml:"output,omitempty"`
	LogLevel     string `koanf:"log_level" yaml:"log_level,omitempty"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-" yaml:"-"`
}

// Default returns a Config holding the default values, unresolved.
func Default() *Config {
	return &Config{
		DataDir:      DefaultDataDir,
		Database:     DefaultDatabase,
		HistoryPath:  DefaultHistoryPath,
		History:      true,
		OutputFormat: DefaultOutput,
		LogLevel:     DefaultLogLevel,
	}
}
