package token

import (
	"fmt"
	"strings"
)

// Grammar tags an artifact with the grammar that owns it.
type Grammar uint8

// Grammar tags.
const (
	// Shared marks artifacts meaningful to both grammars.
	Shared Grammar = iota
	// Brace is the statically typed, brace-delimited, preprocessor-driven grammar (A).
	Brace
	// Script is the dynamically typed, block-oriented grammar (B).
	Script
)

// String returns the grammar name.
func (g Grammar) String() string {
	switch g {
	case Shared:
		return "shared"
	case Brace:
		return "brace"
	case Script:
		return "script"
	default:
		return "unknown"
	}
}

// Label returns the short label used in reports ("A", "B" or "A+B").
func (g Grammar) Label() string {
	switch g {
	case Brace:
		return "A"
	case Script:
		return "B"
	default:
		return "A+B"
	}
}

// ParseGrammar converts a name or label to a Grammar.
func ParseGrammar(s string) (Grammar, bool) {
	switch strings.ToLower(s) {
	case "shared", "a+b", "both":
		return Shared, true
	case "brace", "a", "c":
		return Brace, true
	case "script", "b", "ruby":
		return Script, true
	default:
		return Shared, false
	}
}

// MarshalText implements encoding.TextMarshaler.
func (g Grammar) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (g *Grammar) UnmarshalText(b []byte) error {
	v, ok := ParseGrammar(string(b))
	if !ok {
		return fmt.Errorf("unknown grammar %q", string(b))
	}
	*g = v
	return nil
}
