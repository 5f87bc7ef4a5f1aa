// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML loading, env var expansion, and duration parsing

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
backend:
  command: "copilot-language-server"
  args: ["--stdio"]
  startup_timeout: "10s"
  request_timeout: "2m"

database:
  path: "./test.db"

workspace:
  path: "/home/alice/project"
  username: "alice"

tools:
  manifest_path: "./tools.toml"

logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Backend.Command != "copilot-language-server" {
		t.Errorf("Backend.Command = %q, want %q", cfg.Backend.Command, "copilot-language-server")
	}
	if len(cfg.Backend.Args) != 1 || cfg.Backend.Args[0] != "--stdio" {
		t.Errorf("Backend.Args = %v, want [--stdio]", cfg.Backend.Args)
	}
	if cfg.Backend.StartupTimeout != 10*time.Second {
		t.Errorf("Backend.StartupTimeout = %v, want %v", cfg.Backend.StartupTimeout, 10*time.Second)
	}
	if cfg.Backend.RequestTimeout != 2*time.Minute {
		t.Errorf("Backend.RequestTimeout = %v, want %v", cfg.Backend.RequestTimeout, 2*time.Minute)
	}

	if cfg.Database.Path != "./test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "./test.db")
	}

	if cfg.Workspace.Path != "/home/alice/project" {
		t.Errorf("Workspace.Path = %q, want %q", cfg.Workspace.Path, "/home/alice/project")
	}
	if cfg.Workspace.Username != "alice" {
		t.Errorf("Workspace.Username = %q, want %q", cfg.Workspace.Username, "alice")
	}

	if cfg.Tools.ManifestPath != "./tools.toml" {
		t.Errorf("Tools.ManifestPath = %q, want %q", cfg.Tools.ManifestPath, "./tools.toml")
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want %q", cfg.Logging.Format, "json")
	}
}

func TestLoad_Defaults(t *testing.T) {
	configPath := writeConfig(t, `
backend:
  command: "backend"

database:
  path: "./test.db"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want default %q", cfg.Logging.Level, "info")
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Logging.Format = %q, want default %q", cfg.Logging.Format, "text")
	}
	if cfg.Backend.StartupTimeout != 30*time.Second {
		t.Errorf("Backend.StartupTimeout = %v, want default %v", cfg.Backend.StartupTimeout, 30*time.Second)
	}
	if cfg.Workspace.Path == "" {
		t.Error("Workspace.Path not defaulted to the working directory")
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_BACKEND_CMD", "backend-from-env")
	t.Setenv("TEST_DB_PATH", "/tmp/env.db")

	configPath := writeConfig(t, `
backend:
  command: "${TEST_BACKEND_CMD}"

database:
  path: "${TEST_DB_PATH}"

workspace:
  username: "alice"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Backend.Command != "backend-from-env" {
		t.Errorf("Backend.Command = %q, want %q", cfg.Backend.Command, "backend-from-env")
	}
	if cfg.Database.Path != "/tmp/env.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/env.db")
	}
}

func TestLoad_EnvVarExpansion_UnsetVar(t *testing.T) {
	os.Unsetenv("UNSET_VAR_FOR_TEST")

	configPath := writeConfig(t, `
backend:
  command: "backend"
  args: ["${UNSET_VAR_FOR_TEST}"]

database:
  path: "./test.db"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// Unset env vars should expand to empty string
	if len(cfg.Backend.Args) != 1 || cfg.Backend.Args[0] != "" {
		t.Errorf("Backend.Args = %v, want single empty string for unset env var", cfg.Backend.Args)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, `
backend:
  command: "backend"
  args "missing colon"
`)

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	configPath := writeConfig(t, `
backend:
  command: "backend"
  startup_timeout: "invalid-duration"

database:
  path: "./test.db"
`)

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid duration, got nil")
	}
}

func TestLoad_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name          string
		configContent string
		wantErrSubstr string
	}{
		{
			name: "missing backend command",
			configContent: `
backend:
  command: ""
database:
  path: "./test.db"
`,
			wantErrSubstr: "backend.command is required",
		},
		{
			name: "missing database path",
			configContent: `
backend:
  command: "backend"
database:
  path: ""
`,
			wantErrSubstr: "database.path is required",
		},
		{
			name: "bad log level",
			configContent: `
backend:
  command: "backend"
database:
  path: "./test.db"
logging:
  level: "loud"
`,
			wantErrSubstr: "logging.level must be one of",
		},
		{
			name: "bad log format",
			configContent: `
backend:
  command: "backend"
database:
  path: "./test.db"
logging:
  format: "xml"
`,
			wantErrSubstr: "logging.format must be",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := writeConfig(t, tt.configContent)

			_, err := Load(configPath)
			if err == nil {
				t.Errorf("Load() expected error containing %q, got nil", tt.wantErrSubstr)
				return
			}

			if !strings.Contains(err.Error(), tt.wantErrSubstr) {
				t.Errorf("Load() error = %q, want error containing %q", err.Error(), tt.wantErrSubstr)
			}
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("FOO", "bar")
	t.Setenv("BAZ", "qux")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "single env var",
			input:    "${FOO}",
			expected: "bar",
		},
		{
			name:     "env var with surrounding text",
			input:    "prefix-${FOO}-suffix",
			expected: "prefix-bar-suffix",
		},
		{
			name:     "multiple env vars",
			input:    "${FOO}/${BAZ}",
			expected: "bar/qux",
		},
		{
			name:     "no env vars",
			input:    "no-vars-here",
			expected: "no-vars-here",
		},
		{
			name:     "unset env var",
			input:    "${UNSET_VAR}",
			expected: "",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := expandEnvVars(tt.input)
			if result != tt.expected {
				t.Errorf("expandEnvVars(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}
