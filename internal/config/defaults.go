package config

import (
	"github.com/leapstack-labs/leapglot/pkg/braceexec"
	"github.com/leapstack-labs/leapglot/pkg/preprocess"
	"github.com/leapstack-labs/leapglot/pkg/scriptexec"
	"github.com/leapstack-labs/leapglot/pkg/shim"
)

// Default configuration values.
const (
	DefaultMaxSteps         = scriptexec.DefaultMaxSteps
	DefaultMaxExpansions    = preprocess.DefaultMaxExpansions
	DefaultMaxRedefinitions = shim.DefaultMaxRedefinitions
	DefaultEntry            = braceexec.DefaultEntry
	DefaultHistoryFile      = ".leapglot/history.db"
)

// Defaults returns a ProjectConfig with every field set to its default.
func Defaults() ProjectConfig {
	return ProjectConfig{
		Prelude:          true,
		MaxExpansions:    DefaultMaxExpansions,
		MaxRedefinitions: DefaultMaxRedefinitions,
		MaxSteps:         DefaultMaxSteps,
		Entry:            DefaultEntry,
	}
}

// ApplyDefaults fills zero limits.
func ApplyDefaults(c *ProjectConfig) {
	if c == nil {
		return
	}
	if c.MaxExpansions == 0 {
		c.MaxExpansions = DefaultMaxExpansions
	}
	if c.MaxRedefinitions == 0 {
		c.MaxRedefinitions = DefaultMaxRedefinitions
	}
	if c.MaxSteps == 0 {
		c.MaxSteps = DefaultMaxSteps
	}
	if c.Entry == "" {
		c.Entry = DefaultEntry
	}
}
