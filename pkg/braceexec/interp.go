// Package braceexec executes a brace-grammar program with C semantics and
// records its observable effects.
//
// Integers are 64-bit with truncating division; relational and logical
// operators yield 0 or 1; zero is false. Only the runtime surface the
// analyzer needs is modelled: printf, puts, putchar and exit.
package braceexec

import (
	"context"
	"log/slog"

	"github.com/leapstack-labs/leapglot/pkg/brace"
	"github.com/leapstack-labs/leapglot/pkg/core"
	"github.com/leapstack-labs/leapglot/pkg/memory"
	"github.com/leapstack-labs/leapglot/pkg/token"
	"github.com/leapstack-labs/leapglot/pkg/trace"
	"github.com/leapstack-labs/leapglot/pkg/value"
)

// Defaults.
const (
	DefaultMaxSteps = 1_000_000
	DefaultEntry    = "main"
	maxCallDepth    = 10_000
)

// Options configures a run.
type Options struct {
	// MaxSteps bounds executed statements and loop iterations.
	MaxSteps int
	// Entry is the function called after globals are initialised.
	Entry string
	// Logger is optional; defaults to a discard handler.
	Logger *slog.Logger
}

type ctrl uint8

const (
	ctrlNone ctrl = iota
	ctrlBreak
	ctrlContinue
	ctrlReturn
	ctrlExit
)

// Interpreter runs one program against a memory store.
type Interpreter struct {
	ctx      context.Context
	prog     *brace.Program
	store    *memory.Store
	trace    *trace.Trace
	funcs    map[string]*brace.FuncDecl
	steps    int
	maxSteps int
	depth    int
	ret      value.Value
	exitCode int64
	logger   *slog.Logger
}

// New creates an interpreter for prog.
func New(ctx context.Context, prog *brace.Program, store *memory.Store, opts Options) *Interpreter {
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = DefaultMaxSteps
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	in := &Interpreter{
		ctx:      ctx,
		prog:     prog,
		store:    store,
		trace:    trace.New(token.Brace),
		funcs:    make(map[string]*brace.FuncDecl),
		maxSteps: opts.MaxSteps,
		logger:   opts.Logger,
	}
	for _, f := range prog.Funcs() {
		in.funcs[f.Name] = f
	}
	return in
}

// Run initialises globals, calls the entry function and returns the trace.
// The trace holds every effect recorded before an error.
func Run(ctx context.Context, prog *brace.Program, store *memory.Store, opts Options) (*trace.Trace, error) {
	entry := opts.Entry
	if entry == "" {
		entry = DefaultEntry
	}
	in := New(ctx, prog, store, opts)
	err := in.run(entry)
	in.logger.Debug("brace execution finished",
		"effects", in.trace.Len(), "steps", in.steps, "error", err)
	return in.trace, err
}

// Trace returns the effects recorded so far.
func (in *Interpreter) Trace() *trace.Trace { return in.trace }

// Steps returns the number of steps executed.
func (in *Interpreter) Steps() int { return in.steps }

func (in *Interpreter) run(entry string) error {
	global := in.store.Global()
	for _, d := range in.prog.Globals() {
		if _, err := in.execDecl(d, global); err != nil {
			return err
		}
	}
	fn, ok := in.funcs[entry]
	if !ok {
		return core.Errorf(core.KindRuntime, token.Brace, in.prog.Span(), "undefined reference to '%s'", entry)
	}
	var args []value.Value
	for i := range fn.Params {
		if i == 0 {
			args = append(args, value.Int(1)) // argc
		} else {
			args = append(args, value.Int(0))
		}
	}
	_, err := in.callFunc(fn, args, fn.Span())
	if err == errExit {
		return nil
	}
	return err
}

// step charges one unit of the step budget.
func (in *Interpreter) step(span token.Span) error {
	in.steps++
	if in.steps > in.maxSteps {
		return core.Errorf(core.KindStepLimit, token.Brace, span, "step limit of %d exceeded", in.maxSteps)
	}
	if in.steps&1023 == 0 {
		if err := in.ctx.Err(); err != nil {
			return core.Wrap(err, core.KindStepLimit, token.Brace)
		}
	}
	return nil
}

func runtimeErr(span token.Span, format string, args ...any) error {
	return core.Errorf(core.KindRuntime, token.Brace, span, format, args...)
}

// ---------- Statements ----------

func (in *Interpreter) execBlock(stmts []brace.Stmt, scope *memory.Scope) (ctrl, error) {
	for _, s := range stmts {
		c, err := in.exec(s, scope)
		if err != nil || c != ctrlNone {
			return c, err
		}
	}
	return ctrlNone, nil
}

func (in *Interpreter) exec(s brace.Stmt, scope *memory.Scope) (ctrl, error) {
	if err := in.step(s.Span()); err != nil {
		return ctrlNone, err
	}
	switch s := s.(type) {
	case *brace.DeclStmt:
		return in.execDecl(s, scope)

	case *brace.Block:
		return in.execBlock(s.Stmts, in.store.NewScope(scope, memory.ScopeBlock))

	case *brace.ExprStmt:
		_, err := in.eval(s.X, scope)
		return ctrlNone, err

	case *brace.EmptyStmt:
		return ctrlNone, nil

	case *brace.IfStmt:
		taken, err := in.cond(s.Cond, scope)
		if err != nil {
			return ctrlNone, err
		}
		switch {
		case taken:
			return in.exec(s.Then, scope)
		case s.Else != nil:
			return in.exec(s.Else, scope)
		}
		return ctrlNone, nil

	case *brace.WhileStmt:
		for {
			ok, err := in.cond(s.Cond, scope)
			if err != nil || !ok {
				return ctrlNone, err
			}
			c, err := in.exec(s.Body, scope)
			if err != nil {
				return ctrlNone, err
			}
			if c == ctrlBreak {
				return ctrlNone, nil
			}
			if c == ctrlReturn || c == ctrlExit {
				return c, nil
			}
		}

	case *brace.DoWhileStmt:
		for {
			c, err := in.exec(s.Body, scope)
			if err != nil {
				return ctrlNone, err
			}
			if c == ctrlBreak {
				return ctrlNone, nil
			}
			if c == ctrlReturn || c == ctrlExit {
				return c, nil
			}
			ok, err := in.cond(s.Cond, scope)
			if err != nil || !ok {
				return ctrlNone, err
			}
		}

	case *brace.ForStmt:
		loop := in.store.NewScope(scope, memory.ScopeBlock)
		if s.Init != nil {
			if _, err := in.exec(s.Init, loop); err != nil {
				return ctrlNone, err
			}
		}
		for {
			if s.Cond != nil {
				ok, err := in.cond(s.Cond, loop)
				if err != nil || !ok {
					return ctrlNone, err
				}
			} else if err := in.step(s.Span()); err != nil {
				return ctrlNone, err
			}
			c, err := in.exec(s.Body, loop)
			if err != nil {
				return ctrlNone, err
			}
			if c == ctrlBreak {
				return ctrlNone, nil
			}
			if c == ctrlReturn || c == ctrlExit {
				return c, nil
			}
			if s.Post != nil {
				if _, err := in.eval(s.Post, loop); err != nil {
					return ctrlNone, err
				}
			}
		}

	case *brace.ReturnStmt:
		in.ret = value.Int(0)
		if s.Value != nil {
			v, err := in.eval(s.Value, scope)
			if err != nil {
				return ctrlNone, err
			}
			in.ret = v
		}
		return ctrlReturn, nil

	case *brace.BreakStmt:
		return ctrlBreak, nil

	case *brace.ContinueStmt:
		return ctrlContinue, nil
	}
	return ctrlNone, runtimeErr(s.Span(), "unsupported statement %T", s)
}

// cond evaluates a branch condition and records the decision.
func (in *Interpreter) cond(x brace.Expr, scope *memory.Scope) (bool, error) {
	v, err := in.eval(x, scope)
	if err != nil {
		return false, err
	}
	taken := v.Truthy(token.Brace)
	in.trace.Branch(taken, x.Span())
	return taken, nil
}

func (in *Interpreter) execDecl(d *brace.DeclStmt, scope *memory.Scope) (ctrl, error) {
	for _, decl := range d.Decls {
		typ := declType(d.Type, decl.Pointer, decl.Array)
		var v value.Value
		switch {
		case decl.Array && decl.Init == nil:
			n := int64(0)
			if decl.ArraySize != nil {
				sz, err := in.eval(decl.ArraySize, scope)
				if err != nil {
					return ctrlNone, err
				}
				n, _ = sz.AsInt()
			}
			if n < 0 || n > 1<<20 {
				return ctrlNone, runtimeErr(decl.Span(), "size of array '%s' is invalid", decl.Name)
			}
			elems := make([]value.Value, n)
			for i := range elems {
				elems[i] = zeroOf(d.Type, 0)
			}
			v = value.Array(elems...)
		case decl.Init != nil:
			init, err := in.eval(decl.Init, scope)
			if err != nil {
				return ctrlNone, err
			}
			v = convert(init, d.Type, decl.Pointer)
		default:
			v = zeroOf(d.Type, decl.Pointer)
		}
		scope.Declare(decl.Name, typ, v, decl.Span(), token.Brace)
	}
	return ctrlNone, nil
}
