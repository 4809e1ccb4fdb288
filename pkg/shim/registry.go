// Package shim implements the registry of script-grammar definitions that
// reinterpret brace-grammar syntax as script calls.
//
// The registry is an index-addressed table. Every change is an explicit
// transition (Declare, Redefine) so the declare, redefine, invoke cycle can
// be exercised without an interpreter.
package shim

import (
	"log/slog"
	"sort"

	"github.com/leapstack-labs/leapglot/pkg/core"
	"github.com/leapstack-labs/leapglot/pkg/token"
	"github.com/leapstack-labs/leapglot/pkg/value"
)

// DefaultMaxRedefinitions bounds the number of Redefine transitions per run.
const DefaultMaxRedefinitions = 1000

// Config configures a Registry.
type Config struct {
	// MaxRedefinitions bounds Redefine calls; zero means the default.
	MaxRedefinitions int
	// Logger is optional; defaults to a discard handler.
	Logger *slog.Logger
}

// Registry holds shim definitions.
type Registry struct {
	defs          []Definition
	index         map[string]int
	redefinitions int
	max           int
	logger        *slog.Logger
}

// New returns an empty registry.
func New(cfg Config) *Registry {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	maxRedef := cfg.MaxRedefinitions
	if maxRedef <= 0 {
		maxRedef = DefaultMaxRedefinitions
	}
	return &Registry{index: make(map[string]int), max: maxRedef, logger: logger}
}

// Declare adds def, replacing any definition with the same name in place.
// It returns the definition's index.
func (r *Registry) Declare(def Definition) (int, error) {
	if def.Name == "" {
		return -1, core.Errorf(core.KindRuntime, token.Script, def.Span, "shim name is required")
	}
	if i, ok := r.index[def.Name]; ok {
		r.defs[i] = def
		r.logger.Debug("shim replaced", "name", def.Name, "behavior", def.Behavior.String(), "index", i)
		return i, nil
	}
	r.defs = append(r.defs, def)
	i := len(r.defs) - 1
	r.index[def.Name] = i
	r.logger.Debug("shim declared", "name", def.Name, "behavior", def.Behavior.String(), "index", i)
	return i, nil
}

// Redefine binds name to block as a yield-to-block shim. An undeclared name
// is declared implicitly.
func (r *Registry) Redefine(name string, block *value.Block) error {
	if block == nil {
		return core.Errorf(core.KindRuntime, token.Script, token.Span{}, "redefinition of %s requires a block", name)
	}
	r.redefinitions++
	if r.redefinitions > r.max {
		return core.Errorf(core.KindExpansionLimit, token.Script, block.Span,
			"shim redefinition limit of %d exceeded while redefining %s", r.max, name)
	}
	def := Definition{
		Name:     name,
		Arity:    Variadic(),
		Behavior: YieldToBlock,
		Block:    block,
		Span:     block.Span,
		Source:   SourceImplicit,
	}
	if i, ok := r.index[name]; ok {
		def.Source = r.defs[i].Source
	}
	_, err := r.Declare(def)
	return err
}

// Redefinitions returns the number of Redefine transitions so far.
func (r *Registry) Redefinitions() int { return r.redefinitions }

// ResolutionKind is the outcome of resolving a call.
type ResolutionKind uint8

// Resolution kinds.
const (
	ResolvePassThrough ResolutionKind = iota
	ResolveConstant
	ResolveYield
	ResolveRedefine
	ResolveNone
)

var resolutionNames = [...]string{"pass-through", "constant", "yield", "redefine", "none"}

func (k ResolutionKind) String() string {
	if int(k) < len(resolutionNames) {
		return resolutionNames[k]
	}
	return "unknown"
}

// Resolution describes how a call resolves.
type Resolution struct {
	Kind ResolutionKind
	// Index is the definition's table index, -1 for implicit declarations.
	Index int
	Def   Definition
	// Implicit is set when an undeclared name is redefined by its call-site block.
	Implicit bool
}

// Declared reports whether name is in the registry.
func (r *Registry) Declared(name string) bool {
	_, ok := r.index[name]
	return ok
}

// Resolve looks up how a call to name with argc arguments resolves. It does
// not change the registry.
func (r *Registry) Resolve(name string, argc int, hasBlock bool) (Resolution, error) {
	i, ok := r.index[name]
	if !ok {
		if hasBlock {
			return Resolution{Kind: ResolveRedefine, Index: -1, Implicit: true, Def: Definition{Name: name, Arity: Variadic(), Behavior: RedefineSelf, Source: SourceImplicit}}, nil
		}
		return Resolution{}, core.Errorf(core.KindUnresolvedShim, token.Script, token.Span{},
			"undefined local variable or method '%s'", name)
	}
	def := r.defs[i]
	if !def.Arity.Accepts(argc) {
		return Resolution{}, core.Errorf(core.KindArityMismatch, token.Script, token.Span{},
			"wrong number of arguments calling '%s' (given %d, expected %d)", name, argc, def.Arity.N)
	}
	res := Resolution{Index: i, Def: def}
	switch def.Behavior {
	case PassThrough:
		res.Kind = ResolvePassThrough
	case Constant:
		res.Kind = ResolveConstant
	case YieldToBlock:
		res.Kind = ResolveYield
		if def.Block == nil && !hasBlock {
			res.Kind = ResolveNone
		}
	case RedefineSelf:
		res.Kind = ResolveNone
		if hasBlock {
			res.Kind = ResolveRedefine
		}
	}
	return res, nil
}

// CallFunc runs a block. bound is the block to run, args its arguments and
// blockArg the call-site block visible to yield inside it.
type CallFunc func(bound *value.Block, args []value.Value, blockArg *value.Block) (value.Value, error)

// Invoke resolves and performs a call. Pass-through calls return their last
// argument, constant calls their value, yield calls the result of call and
// redefinitions nil.
func (r *Registry) Invoke(name string, args []value.Value, block *value.Block, call CallFunc) (value.Value, error) {
	res, err := r.Resolve(name, len(args), block != nil)
	if err != nil {
		return value.Nil, err
	}
	switch res.Kind {
	case ResolvePassThrough:
		if len(args) == 0 {
			return value.Nil, nil
		}
		return args[len(args)-1], nil
	case ResolveConstant:
		return res.Def.Constant, nil
	case ResolveYield:
		if call == nil {
			return value.Nil, nil
		}
		if res.Def.Block == nil {
			return call(block, nil, nil)
		}
		return call(res.Def.Block, args, block)
	case ResolveRedefine:
		return value.Nil, r.Redefine(name, block)
	}
	return value.Nil, nil
}

// Lookup returns the definition for name.
func (r *Registry) Lookup(name string) (Definition, bool) {
	i, ok := r.index[name]
	if !ok {
		return Definition{}, false
	}
	return r.defs[i], true
}

// At returns the definition at index i.
func (r *Registry) At(i int) (Definition, bool) {
	if i < 0 || i >= len(r.defs) {
		return Definition{}, false
	}
	return r.defs[i], true
}

// AcceptsBlock reports whether a call to name consumes a trailing block.
// Undeclared names accept one, since a block there declares them.
func (r *Registry) AcceptsBlock(name string) bool {
	i, ok := r.index[name]
	if !ok {
		return true
	}
	return r.defs[i].AcceptsBlock()
}

// Names returns the declared names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.index))
	for n := range r.index {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Definitions returns the table in index order.
func (r *Registry) Definitions() []Definition {
	out := make([]Definition, len(r.defs))
	copy(out, r.defs)
	return out
}

// Len returns the number of definitions.
func (r *Registry) Len() int { return len(r.defs) }

// Clone returns an independent copy with a fresh redefinition count.
func (r *Registry) Clone() *Registry {
	c := &Registry{
		defs:   make([]Definition, len(r.defs)),
		index:  make(map[string]int, len(r.index)),
		max:    r.max,
		logger: r.logger,
	}
	copy(c.defs, r.defs)
	for k, v := range r.index {
		c.index[k] = v
	}
	return c
}
