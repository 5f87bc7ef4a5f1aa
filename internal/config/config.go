// ABOUTME: Configuration loading and parsing for parley
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete parley configuration
type Config struct {
	Backend   BackendConfig   `yaml:"backend"`
	Database  DatabaseConfig  `yaml:"database"`
	Workspace WorkspaceConfig `yaml:"workspace"`
	Tools     ToolsConfig     `yaml:"tools"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// BackendConfig describes how to reach the conversation backend. The backend
// is launched as a child process and spoken to over stdio.
type BackendConfig struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`

	StartupTimeout time.Duration `yaml:"-"`
	RequestTimeout time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	StartupTimeoutRaw string `yaml:"startup_timeout"`
	RequestTimeoutRaw string `yaml:"request_timeout"`
}

// DatabaseConfig holds chat history persistence configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// WorkspaceConfig identifies the project directory and user a session runs as
type WorkspaceConfig struct {
	Path     string `yaml:"path"`
	Username string `yaml:"username"`
}

// ToolsConfig points at the optional tool manifest. When empty, every shipped
// tool is enabled with stock confirmation copy.
type ToolsConfig struct {
	ManifestPath string `yaml:"manifest_path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// applyDefaults fills the optional fields a minimal config may omit.
func applyDefaults(cfg *Config) {
	if cfg.Workspace.Path == "" {
		if wd, err := os.Getwd(); err == nil {
			cfg.Workspace.Path = wd
		}
	}
	if cfg.Workspace.Username == "" {
		cfg.Workspace.Username = os.Getenv("USER")
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Backend.StartupTimeout == 0 {
		cfg.Backend.StartupTimeout = 30 * time.Second
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Backend.Command == "" {
		return fmt.Errorf("backend.command is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error (got %q)", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json (got %q)", c.Logging.Format)
	}
	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Backend.StartupTimeoutRaw != "" {
		cfg.Backend.StartupTimeout, err = time.ParseDuration(cfg.Backend.StartupTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing startup_timeout %q: %w", cfg.Backend.StartupTimeoutRaw, err)
		}
	}

	if cfg.Backend.RequestTimeoutRaw != "" {
		cfg.Backend.RequestTimeout, err = time.ParseDuration(cfg.Backend.RequestTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing request_timeout %q: %w", cfg.Backend.RequestTimeoutRaw, err)
		}
	}

	return nil
}
