// Package config handles configuration loading for parley.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	workspace:
//	  username: "${USER}"
//
// Syntax: ${VAR_NAME}
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	backend:
//	  startup_timeout: "30s"
//	  request_timeout: "2m"
//
// Supported units: ns, us, ms, s, m, h
//
// # Configuration Sections
//
// Backend process:
//
//	backend:
//	  command: "copilot-language-server"
//	  args: ["--stdio"]
//	  startup_timeout: "30s"
//
// Chat history database:
//
//	database:
//	  path: "~/.parley/history.db"
//
// Workspace identity:
//
//	workspace:
//	  path: "/home/alice/project"   # defaults to the working directory
//	  username: "${USER}"
//
// Tool manifest:
//
//	tools:
//	  manifest_path: "./tools.toml"  # optional; all tools enabled when empty
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
package config
