// Copyright 2026 The Driftline Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for driftline commands.
//
// Configuration is loaded from a single YAML file specified by:
//   - DRIFTLINE_CONFIG environment variable, or
//   - --config flag passed to the command
//
// There are no fallbacks or automatic discovery. This ensures
// deterministic, auditable configuration with no hidden overrides. The
// only expansion performed is ${HOME} and similar path variables for
// portability.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/driftline/driftline/lib/ref"
)

// Config is the configuration for a driftline sync engine instance.
type Config struct {
	// Homeserver is the base URL of the Matrix homeserver,
	// e.g. "https://matrix.example.org". Required.
	Homeserver string `yaml:"homeserver"`

	// UserID is the fully-qualified Matrix user ID
	// (e.g. "@alice:example.org"). Optional: when empty, the engine
	// asks the server who the token belongs to before starting.
	UserID string `yaml:"user_id"`

	// TokenFile is the path to a file containing the bearer access
	// token, or "-" to read the token from stdin. Required. The token
	// never appears in the config file itself.
	TokenFile string `yaml:"token_file"`

	// StateFile is where the sync cursor and negotiated filter ID are
	// persisted so a restarted engine resumes incrementally. Empty
	// keeps the cursor in memory only.
	StateFile string `yaml:"state_file"`

	// FilterFile is an optional JSONC sync-filter definition that
	// replaces the built-in default filter.
	FilterFile string `yaml:"filter_file"`

	// LongPollTimeoutMS is the requested server hold time for
	// incremental syncs, in milliseconds. Default: 30000.
	LongPollTimeoutMS int `yaml:"long_poll_timeout_ms"`

	// LogLevel is one of debug, info, warn, error. Default: info.
	LogLevel string `yaml:"log_level"`
}

// Default returns the default configuration. These defaults ensure all
// fields have sensible zero-values, not a fallback - the config file is
// required.
func Default() *Config {
	return &Config{
		LongPollTimeoutMS: 30000,
		LogLevel:          "info",
	}
}

// Load loads configuration from the DRIFTLINE_CONFIG environment
// variable. If DRIFTLINE_CONFIG is not set, this fails; there are no
// fallback locations.
func Load() (*Config, error) {
	configPath := os.Getenv("DRIFTLINE_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("DRIFTLINE_CONFIG environment variable not set; " +
			"set it to the path of your driftline.yaml config file, or use --config flag")
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path. The config
// file is the single source of truth; environment variables do not
// override config values.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.expandVariables()
	return cfg, nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in path
// fields.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}
	c.TokenFile = expandVars(c.TokenFile, vars)
	c.StateFile = expandVars(c.StateFile, vars)
	c.FilterFile = expandVars(c.FilterFile, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Homeserver == "" {
		errs = append(errs, fmt.Errorf("homeserver is required"))
	}
	if c.TokenFile == "" {
		errs = append(errs, fmt.Errorf("token_file is required"))
	}
	if c.UserID != "" {
		if _, err := ref.ParseUserID(c.UserID); err != nil {
			errs = append(errs, fmt.Errorf("user_id: %w", err))
		}
	}
	if c.LongPollTimeoutMS <= 0 {
		errs = append(errs, fmt.Errorf("long_poll_timeout_ms must be positive"))
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level must be one of: debug, info, warn, error"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// EnsureStateDir creates the parent directory of the state file if one
// is configured.
func (c *Config) EnsureStateDir() error {
	if c.StateFile == "" {
		return nil
	}
	directory := filepath.Dir(c.StateFile)
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", directory, err)
	}
	return nil
}
