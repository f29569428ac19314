// Package config provides configuration for the bitproto toolchain.
// Settings come from bitproto.yaml, overridable through BITPROTO_*
// environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the toolchain configuration.
type Config struct {
	Compile CompileConfig `yaml:"compile"`
	Lint    LintConfig    `yaml:"lint"`
	Logging LoggingConfig `yaml:"logging"`
}

// CompileConfig configures schema loading.
type CompileConfig struct {
	// ImportPaths are extra directories searched for imports that do
	// not resolve relative to the importing file.
	ImportPaths []string `yaml:"import_paths"`
}

// LintConfig configures the lint engine.
type LintConfig struct {
	Enabled bool `yaml:"enabled"`
	// Disabled lists rule IDs to suppress, e.g. "lint/enum-zero".
	Disabled []string `yaml:"disabled"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Lint: LintConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the configuration from path. An empty path returns the
// defaults; env overrides apply either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies BITPROTO_* environment variables on top of
// the file values.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("BITPROTO_IMPORT_PATHS"); v != "" {
		c.Compile.ImportPaths = strings.Split(v, string(os.PathListSeparator))
	}
	if v := os.Getenv("BITPROTO_LINT_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Lint.Enabled = b
		}
	}
	if v := os.Getenv("BITPROTO_LINT_DISABLED"); v != "" {
		c.Lint.Disabled = strings.Split(v, ",")
	}
	if v := os.Getenv("BITPROTO_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("BITPROTO_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}
	for _, dir := range c.Compile.ImportPaths {
		if dir == "" {
			return fmt.Errorf("import path entries cannot be empty")
		}
	}
	return nil
}
