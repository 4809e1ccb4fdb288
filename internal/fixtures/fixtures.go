// Package fixtures loads predefined macros and shims from YAML and
// Starlark files, and provides the built-in prelude.
package fixtures

import (
	"fmt"
	"path/filepath"

	"github.com/leapstack-labs/leapglot/pkg/analyzer"
	"github.com/leapstack-labs/leapglot/pkg/preprocess"
	"github.com/leapstack-labs/leapglot/pkg/shim"
	"github.com/leapstack-labs/leapglot/pkg/value"
)

// MacroSpec declares a brace-grammar macro. A nil Params makes it
// object-like; an empty non-nil Params makes it function-like with no
// parameters.
type MacroSpec struct {
	Name   string   `mapstructure:"name"`
	Params []string `mapstructure:"params"`
	Body   string   `mapstructure:"body"`
}

// ShimSpec declares a script-grammar shim.
type ShimSpec struct {
	Name     string `mapstructure:"name"`
	Behavior string `mapstructure:"behavior"`
	Arity    string `mapstructure:"arity"`
	Value    any    `mapstructure:"value"`
}

// Set is the raw content of one or more fixture files.
type Set struct {
	Macros []MacroSpec `mapstructure:"macros"`
	Shims  []ShimSpec  `mapstructure:"shims"`
}

// Fixtures converts the declarations into analyzer fixtures.
func (s *Set) Fixtures() (analyzer.Fixtures, error) {
	var fx analyzer.Fixtures
	for _, m := range s.Macros {
		if m.Name == "" {
			return fx, fmt.Errorf("macro without a name")
		}
		macro, err := preprocess.NewMacro(m.Name, m.Params, m.Body)
		if err != nil {
			return fx, err
		}
		fx.Macros = append(fx.Macros, macro)
	}
	for _, sh := range s.Shims {
		def, err := sh.Definition()
		if err != nil {
			return fx, err
		}
		fx.Shims = append(fx.Shims, def)
	}
	return fx, nil
}

// Definition converts the spec into a shim definition.
func (s ShimSpec) Definition() (shim.Definition, error) {
	if s.Name == "" {
		return shim.Definition{}, fmt.Errorf("shim without a name")
	}
	behavior := shim.PassThrough
	if s.Behavior != "" {
		b, err := shim.ParseBehavior(s.Behavior)
		if err != nil {
			return shim.Definition{}, fmt.Errorf("shim %s: %w", s.Name, err)
		}
		behavior = b
	}
	arity, err := shim.ParseArity(s.Arity)
	if err != nil {
		return shim.Definition{}, fmt.Errorf("shim %s: %w", s.Name, err)
	}
	constant, err := toValue(s.Value)
	if err != nil {
		return shim.Definition{}, fmt.Errorf("shim %s: %w", s.Name, err)
	}
	if behavior != shim.Constant && !constant.IsNil() {
		return shim.Definition{}, fmt.Errorf("shim %s: value is only allowed for constant-value shims", s.Name)
	}
	return shim.Definition{
		Name:     s.Name,
		Arity:    arity,
		Behavior: behavior,
		Constant: constant,
		Source:   shim.SourceFixture,
	}, nil
}

// toValue converts a decoded YAML or Starlark scalar into a script value.
func toValue(v any) (value.Value, error) {
	switch x := v.(type) {
	case nil:
		return value.Nil, nil
	case bool:
		return value.Bool(x), nil
	case int:
		return value.Int(int64(x)), nil
	case int64:
		return value.Int(x), nil
	case uint64:
		return value.Int(int64(x)), nil
	case float64:
		return value.Float(x), nil
	case string:
		return value.Str(x), nil
	case []any:
		elems := make([]value.Value, 0, len(x))
		for _, e := range x {
			ev, err := toValue(e)
			if err != nil {
				return value.Nil, err
			}
			elems = append(elems, ev)
		}
		return value.Array(elems...), nil
	}
	return value.Nil, fmt.Errorf("unsupported value %v (%T)", v, v)
}

// LoadError represents an error loading a fixture file.
type LoadError struct {
	File    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("fixtures/%s: %s", filepath.Base(e.File), e.Message)
}
