// Package scriptexec executes a script-grammar program with Ruby semantics
// and records its observable effects.
//
// Receiverless calls resolve through the shim registry before any builtin,
// so a declared shim always wins. Method bodies are scope gates; blocks
// chain to the scope they were written in, which makes a write inside a
// block visible to the caller as soon as the block returns.
package scriptexec

import (
	"context"
	"errors"
	"log/slog"

	"github.com/leapstack-labs/leapglot/pkg/core"
	"github.com/leapstack-labs/leapglot/pkg/memory"
	"github.com/leapstack-labs/leapglot/pkg/script"
	"github.com/leapstack-labs/leapglot/pkg/shim"
	"github.com/leapstack-labs/leapglot/pkg/token"
	"github.com/leapstack-labs/leapglot/pkg/trace"
	"github.com/leapstack-labs/leapglot/pkg/value"
)

// Defaults.
const (
	DefaultMaxSteps = 1_000_000
	maxCallDepth    = 10_000
)

// Options configures a run.
type Options struct {
	// MaxSteps bounds executed statements and loop iterations.
	MaxSteps int
	// Logger is optional; defaults to a discard handler.
	Logger *slog.Logger
}

// frame is the method activation a piece of code runs in: it owns the
// block that yield and block_given? see.
type frame struct {
	block  *value.Block
	method string
}

// env is the lexical context of evaluation. Closures capture it.
type env struct {
	scope *memory.Scope
	fr    *frame
}

type jumpKind uint8

const (
	jumpReturn jumpKind = iota
	jumpNext
	jumpBreak
)

// jump carries return, next and break out of nested evaluation.
type jump struct {
	kind jumpKind
	val  value.Value
	span token.Span
}

func (j *jump) Error() string {
	switch j.kind {
	case jumpNext:
		return "next used outside of a block or loop"
	case jumpBreak:
		return "break from proc-closure"
	}
	return "unexpected return"
}

func asJump(err error, kind jumpKind) (*jump, bool) {
	var j *jump
	if errors.As(err, &j) && j.kind == kind {
		return j, true
	}
	return nil, false
}

// Interpreter runs one program against a memory store and shim registry.
type Interpreter struct {
	ctx      context.Context
	prog     *script.Program
	store    *memory.Store
	shims    *shim.Registry
	trace    *trace.Trace
	steps    int
	maxSteps int
	depth    int
	logger   *slog.Logger
}

// New creates an interpreter. shims is mutated by definitions and
// redefinitions; pass a clone to keep the original intact.
func New(ctx context.Context, prog *script.Program, store *memory.Store, shims *shim.Registry, opts Options) *Interpreter {
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = DefaultMaxSteps
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if shims == nil {
		shims = shim.New(shim.Config{Logger: opts.Logger})
	}
	return &Interpreter{
		ctx:      ctx,
		prog:     prog,
		store:    store,
		shims:    shims,
		trace:    trace.New(token.Script),
		maxSteps: opts.MaxSteps,
		logger:   opts.Logger,
	}
}

// Run executes prog's top-level statements in the global scope and returns
// the trace. The trace holds every effect recorded before an error.
func Run(ctx context.Context, prog *script.Program, store *memory.Store, shims *shim.Registry, opts Options) (*trace.Trace, error) {
	in := New(ctx, prog, store, shims, opts)
	err := in.run()
	in.logger.Debug("script execution finished",
		"effects", in.trace.Len(), "steps", in.steps, "redefinitions", in.shims.Redefinitions(), "error", err)
	return in.trace, err
}

// Trace returns the effects recorded so far.
func (in *Interpreter) Trace() *trace.Trace { return in.trace }

// Steps returns the number of steps executed.
func (in *Interpreter) Steps() int { return in.steps }

func (in *Interpreter) run() error {
	top := &env{scope: in.store.Global(), fr: &frame{method: "main"}}
	_, err := in.execBody(in.prog.Stmts, top)
	if err == nil {
		return nil
	}
	if _, ok := asJump(err, jumpReturn); ok {
		return nil
	}
	var j *jump
	if errors.As(err, &j) {
		return runtimeErr(j.span, "%s", j.Error())
	}
	return err
}

func (in *Interpreter) step(span token.Span) error {
	in.steps++
	if in.steps > in.maxSteps {
		return core.Errorf(core.KindStepLimit, token.Script, span, "step limit of %d exceeded", in.maxSteps)
	}
	if in.steps&1023 == 0 {
		if err := in.ctx.Err(); err != nil {
			return core.Wrap(err, core.KindStepLimit, token.Script)
		}
	}
	return nil
}

func runtimeErr(span token.Span, format string, args ...any) error {
	return core.Errorf(core.KindRuntime, token.Script, span, format, args...)
}

// withSpan attaches span to a positionless *core.Error.
func withSpan(err error, span token.Span) error {
	var ce *core.Error
	if errors.As(err, &ce) && !ce.Span.IsValid() {
		cp := *ce
		cp.Span = span
		return &cp
	}
	return err
}

// execBody evaluates statements in order and returns the last value.
func (in *Interpreter) execBody(stmts []script.Node, e *env) (value.Value, error) {
	last := value.Nil
	for _, s := range stmts {
		if err := in.step(s.Span()); err != nil {
			return value.Nil, err
		}
		v, err := in.eval(s, e)
		if err != nil {
			return value.Nil, err
		}
		last = v
	}
	return last, nil
}

// ---------- Blocks & methods ----------

// newClosure captures blk in the current environment.
func (in *Interpreter) newClosure(blk *script.BlockLit, e *env) *value.Block {
	params := make([]string, len(blk.Params))
	variadic := false
	for i, p := range blk.Params {
		params[i] = p.String()
		variadic = variadic || p.Splat
	}
	return &value.Block{Params: params, Variadic: variadic, Body: blk.Body, Env: e, Span: blk.Span()}
}

// callBlock runs b. Blocks without an environment are method bodies and
// get a fresh gated scope; closures run in a child of their defining scope.
// blockArg is the block visible to yield inside b.
func (in *Interpreter) callBlock(b *value.Block, args []value.Value, blockArg *value.Block) (value.Value, error) {
	if b == nil {
		return value.Nil, nil
	}
	body, ok := b.Body.([]script.Node)
	if !ok {
		return value.Nil, runtimeErr(b.Span, "block has no body")
	}
	in.depth++
	defer func() { in.depth-- }()
	if in.depth > maxCallDepth {
		return value.Nil, runtimeErr(b.Span, "stack level too deep")
	}

	var e *env
	closure, isClosure := b.Env.(*env)
	if isClosure {
		e = &env{scope: in.store.NewScope(closure.scope, memory.ScopeBlock), fr: closure.fr}
	} else {
		e = &env{scope: in.store.NewScope(nil, memory.ScopeFunction), fr: &frame{block: blockArg, method: b.Name}}
	}
	bindParams(e.scope, b, args, blockArg, isClosure)

	v, err := in.execBody(body, e)
	if err == nil {
		return v, nil
	}
	if j, ok := asJump(err, jumpNext); ok && isClosure {
		return j.val, nil
	}
	if j, ok := asJump(err, jumpReturn); ok {
		return j.val, nil
	}
	return value.Nil, err
}

// bindParams assigns arguments to parameters in their written form.
// A closure called with one array and several parameters destructures it.
func bindParams(scope *memory.Scope, b *value.Block, args []value.Value, blockArg *value.Block, closure bool) {
	plain := 0
	for _, p := range b.Params {
		if p != "" && p[0] != '*' && p[0] != '&' {
			plain++
		}
	}
	if closure && plain > 1 && len(args) == 1 && args[0].Kind == value.KindArray {
		args = args[0].Elems
	}
	i := 0
	for _, p := range b.Params {
		switch {
		case len(p) > 1 && p[:2] == "**":
			scope.Declare(p[2:], "", value.Nil, b.Span, token.Script)
		case len(p) > 0 && p[0] == '*':
			var rest []value.Value
			for ; i < len(args) && len(args)-i > plain; i++ {
				rest = append(rest, args[i])
			}
			if len(p) > 1 {
				scope.Declare(p[1:], "", value.Array(rest...), b.Span, token.Script)
			}
		case len(p) > 0 && p[0] == '&':
			v := value.Nil
			if blockArg != nil {
				v = value.Closure(blockArg)
			}
			scope.Declare(p[1:], "", v, b.Span, token.Script)
		default:
			v := value.Nil
			if i < len(args) {
				v = args[i]
			}
			i++
			plain--
			scope.Declare(p, "", v, b.Span, token.Script)
		}
	}
}
