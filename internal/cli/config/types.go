// Package config provides configuration management for the leapglot CLI.
//
// The analysis settings mirror internal/config.ProjectConfig; this package
// adds the CLI-only keys (output mode, logging, history) and the layered
// loader.
package config

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	intconfig "github.com/leapstack-labs/leapglot/internal/config"
)

// Output modes accepted by the output key.
var outputModes = []string{"auto", "text", "markdown", "json"}

// Default CLI configuration values.
const (
	DefaultOutput   = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultLogLevel = "warn"
)

// Config holds all CLI configuration options.
type Config struct {
	Fixtures         []string `koanf:"fixtures"`
	Prelude          bool     `koanf:"prelude"`
	MaxExpansions    int      `koanf:"max_expansions"`
	MaxRedefinitions int      `koanf:"max_redefinitions"`
	MaxSteps         int      `koanf:"max_steps"`
	Entry            string   `koanf:"entry"`

	Verbose      bool   `koanf:"verbose"`
	LogLevel     string `koanf:"log_level"`
	OutputFormat string `koanf:"output"`
	HistoryPath  string `koanf:"history_path"`
	Record       bool   `koanf:"record"`

	// ProjectRoot is the directory relative paths resolve against.
	ProjectRoot string `koanf:"-"`
}

// Project returns the analysis settings.
func (c *Config) Project() intconfig.ProjectConfig {
	return intconfig.ProjectConfig{
		Fixtures:         c.Fixtures,
		Prelude:          c.Prelude,
		MaxExpansions:    c.MaxExpansions,
		MaxRedefinitions: c.MaxRedefinitions,
		MaxSteps:         c.MaxSteps,
		Entry:            c.Entry,
	}
}

// Level returns the log level. Verbose wins over log_level.
func (c *Config) Level() slog.Level {
	if c.Verbose {
		return slog.LevelDebug
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelWarn
	}
	return lvl
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	p := c.Project()
	if err := p.Validate(); err != nil {
		return err
	}
	if !slices.Contains(outputModes, c.OutputFormat) {
		return fmt.Errorf("invalid output format %q (expected one of %s)", c.OutputFormat, strings.Join(outputModes, ", "))
	}
	if c.LogLevel != "" {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
			return fmt.Errorf("invalid log_level %q", c.LogLevel)
		}
	}
	return nil
}
