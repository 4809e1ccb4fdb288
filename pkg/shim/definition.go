package shim

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapglot/pkg/token"
	"github.com/leapstack-labs/leapglot/pkg/value"
)

// ArityKind says whether a shim takes a fixed number of arguments.
type ArityKind uint8

// Arity kinds.
const (
	ArityVariadic ArityKind = iota
	ArityFixed
)

// Arity is the accepted argument count of a shim.
type Arity struct {
	Kind ArityKind `json:"kind"`
	N    int       `json:"n,omitempty"`
}

// Variadic accepts any number of arguments.
func Variadic() Arity { return Arity{Kind: ArityVariadic} }

// Fixed accepts exactly n arguments.
func Fixed(n int) Arity { return Arity{Kind: ArityFixed, N: n} }

// Accepts reports whether argc arguments satisfy the arity.
func (a Arity) Accepts(argc int) bool {
	return a.Kind == ArityVariadic || argc == a.N
}

func (a Arity) String() string {
	if a.Kind == ArityVariadic {
		return "variadic"
	}
	return fmt.Sprintf("fixed(%d)", a.N)
}

// MarshalText implements encoding.TextMarshaler.
func (a Arity) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// ParseArity parses "variadic", "*", "fixed(N)" or a bare number.
func ParseArity(s string) (Arity, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch s {
	case "", "variadic", "*":
		return Variadic(), nil
	}
	var n int
	if _, err := fmt.Sscanf(s, "fixed(%d)", &n); err == nil {
		return Fixed(n), nil
	}
	if _, err := fmt.Sscanf(s, "%d", &n); err == nil && n >= 0 {
		return Fixed(n), nil
	}
	return Arity{}, fmt.Errorf("invalid arity %q", s)
}

// Behavior is what a shim call does.
type Behavior uint8

// Behaviors.
const (
	// PassThrough evaluates its arguments for their side effects and
	// returns the last one.
	PassThrough Behavior = iota
	// Constant returns a fixed value.
	Constant
	// YieldToBlock invokes its bound block, or the call-site block when
	// none is bound.
	YieldToBlock
	// RedefineSelf replaces itself with a YieldToBlock shim bound to the
	// call-site block.
	RedefineSelf
)

var behaviorNames = [...]string{"pass-through-args", "constant-value", "yield-to-block", "redefine-self-on-call"}

func (b Behavior) String() string {
	if int(b) < len(behaviorNames) {
		return behaviorNames[b]
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (b Behavior) MarshalText() ([]byte, error) { return []byte(b.String()), nil }

// ParseBehavior converts a behavior name. Short forms without the suffix
// ("pass-through", "constant", "yield", "redefine") are accepted.
func ParseBehavior(s string) (Behavior, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range behaviorNames {
		if s == n {
			return Behavior(i), nil
		}
	}
	switch s {
	case "pass-through", "passthrough":
		return PassThrough, nil
	case "constant", "const":
		return Constant, nil
	case "yield":
		return YieldToBlock, nil
	case "redefine", "redefine-self":
		return RedefineSelf, nil
	}
	return 0, fmt.Errorf("unknown shim behavior %q", s)
}

// Source records where a definition came from.
type Source uint8

// Definition sources.
const (
	SourceFixture Source = iota
	SourceProgram
	SourceImplicit
)

func (s Source) String() string {
	switch s {
	case SourceFixture:
		return "fixture"
	case SourceProgram:
		return "source"
	case SourceImplicit:
		return "implicit"
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (s Source) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Definition is one shim.
type Definition struct {
	Name     string       `json:"name"`
	Arity    Arity        `json:"arity"`
	Behavior Behavior     `json:"behavior"`
	Constant value.Value  `json:"constant"`
	Block    *value.Block `json:"-"`
	Span     token.Span   `json:"span"`
	Source   Source       `json:"source"`
}

// AcceptsBlock reports whether a call to the shim consumes a block literal.
func (d Definition) AcceptsBlock() bool {
	return d.Behavior == YieldToBlock || d.Behavior == RedefineSelf
}

func (d Definition) String() string {
	s := fmt.Sprintf("%s %s %s", d.Name, d.Behavior, d.Arity)
	if d.Behavior == Constant {
		s += " = " + d.Constant.Inspect()
	}
	return s
}

// ForDef builds the definition for a source-level method definition.
// Parameters use their written form: "*rest" makes the shim variadic and
// "&blk" does not count towards the arity. A method whose body only
// re-binds itself with define_method is a redefine-self shim; any other
// method yields to its own body.
func ForDef(name string, params []string, body any, selfRedefining bool, span token.Span) Definition {
	if selfRedefining {
		return Definition{Name: name, Arity: Variadic(), Behavior: RedefineSelf, Span: span, Source: SourceProgram}
	}
	n, variadic := 0, false
	for _, p := range params {
		switch {
		case strings.HasPrefix(p, "*"):
			variadic = true
		case strings.HasPrefix(p, "&"):
		default:
			n++
		}
	}
	arity := Fixed(n)
	if variadic {
		arity = Variadic()
	}
	return Definition{
		Name:     name,
		Arity:    arity,
		Behavior: YieldToBlock,
		Block:    &value.Block{Name: name, Params: params, Variadic: variadic, Body: body, Span: span},
		Span:     span,
		Source:   SourceProgram,
	}
}
