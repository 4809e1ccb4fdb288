package fixtures

import (
	"github.com/leapstack-labs/leapglot/pkg/analyzer"
	"github.com/leapstack-labs/leapglot/pkg/shim"
)

// preludeTypes are C type keywords that read as pass-through calls in
// the script grammar.
var preludeTypes = []string{"int", "char", "void", "long", "short", "unsigned", "signed", "float", "double"}

// Prelude returns the built-in fixtures: the C type names as variadic
// pass-through shims and main as a yield-to-block shim.
func Prelude() analyzer.Fixtures {
	fx := analyzer.Fixtures{Shims: make([]shim.Definition, 0, len(preludeTypes)+1)}
	for _, name := range preludeTypes {
		fx.Shims = append(fx.Shims, shim.Definition{
			Name:     name,
			Arity:    shim.Variadic(),
			Behavior: shim.PassThrough,
			Source:   shim.SourceFixture,
		})
	}
	fx.Shims = append(fx.Shims, shim.Definition{
		Name:     "main",
		Arity:    shim.Variadic(),
		Behavior: shim.YieldToBlock,
		Source:   shim.SourceFixture,
	})
	return fx
}
