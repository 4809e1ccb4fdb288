// Package config holds the project settings shared by the CLI and the
// fixture loader.
package config

import (
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapglot/pkg/analyzer"
)

// ProjectConfig is the analysis part of leapglot.yaml.
type ProjectConfig struct {
	// Fixtures lists YAML or Starlark fixture files.
	Fixtures []string `koanf:"fixtures"`
	// Prelude declares the built-in C type and main shims.
	Prelude          bool   `koanf:"prelude"`
	MaxExpansions    int    `koanf:"max_expansions"`
	MaxRedefinitions int    `koanf:"max_redefinitions"`
	MaxSteps         int    `koanf:"max_steps"`
	Entry            string `koanf:"entry"`
}

// Validate checks the limits.
func (c *ProjectConfig) Validate() error {
	if c.MaxExpansions < 0 {
		return fmt.Errorf("max_expansions must not be negative, got %d", c.MaxExpansions)
	}
	if c.MaxRedefinitions < 0 {
		return fmt.Errorf("max_redefinitions must not be negative, got %d", c.MaxRedefinitions)
	}
	if c.MaxSteps < 0 {
		return fmt.Errorf("max_steps must not be negative, got %d", c.MaxSteps)
	}
	return nil
}

// AnalyzerOptions translates the config into analyzer options.
func (c *ProjectConfig) AnalyzerOptions(logger *slog.Logger) []analyzer.Option {
	return []analyzer.Option{
		analyzer.WithLogger(logger),
		analyzer.WithMaxSteps(c.MaxSteps),
		analyzer.WithMaxExpansions(c.MaxExpansions),
		analyzer.WithMaxRedefinitions(c.MaxRedefinitions),
		analyzer.WithEntry(c.Entry),
	}
}
