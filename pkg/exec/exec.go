// Package exec runs both grammars' programs against one memory store.
//
// Execution is strictly sequential: the brace program runs to completion,
// memory is snapshotted and reset, then the script program runs and memory
// is snapshotted again. The two runs never interleave.
package exec

import (
	"context"
	"log/slog"

	"github.com/leapstack-labs/leapglot/pkg/brace"
	"github.com/leapstack-labs/leapglot/pkg/braceexec"
	"github.com/leapstack-labs/leapglot/pkg/memory"
	"github.com/leapstack-labs/leapglot/pkg/script"
	"github.com/leapstack-labs/leapglot/pkg/scriptexec"
	"github.com/leapstack-labs/leapglot/pkg/shim"
	"github.com/leapstack-labs/leapglot/pkg/token"
	"github.com/leapstack-labs/leapglot/pkg/trace"
)

// Options configures RunBoth.
type Options struct {
	// MaxSteps bounds each side's execution (0 means the executor default).
	MaxSteps int
	// Entry is the brace entry function (default "main").
	Entry string
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Side is one grammar's execution result.
type Side struct {
	Grammar token.Grammar   `json:"grammar"`
	Trace   *trace.Trace    `json:"trace"`
	Memory  memory.Snapshot `json:"memory"`
	Err     error           `json:"-"`
	// Skipped is set when there was no program to run.
	Skipped bool `json:"skipped,omitempty"`
}

// Outcome holds both sides of a run.
type Outcome struct {
	Brace  Side `json:"brace"`
	Script Side `json:"script"`
	// Redefinitions counts shim redefinitions made by the script side.
	Redefinitions int `json:"redefinitions"`
}

// Side returns the result for grammar g.
func (o *Outcome) Side(g token.Grammar) *Side {
	if g == token.Brace {
		return &o.Brace
	}
	return &o.Script
}

// RunBoth executes a, then b. Either program may be nil when its grammar
// failed to parse; that side is reported as skipped with an empty trace.
// shims is cloned so the caller's registry is left untouched.
func RunBoth(ctx context.Context, a *brace.Program, b *script.Program, shims *shim.Registry, opts Options) *Outcome {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	store := memory.New(logger)
	out := &Outcome{
		Brace:  Side{Grammar: token.Brace},
		Script: Side{Grammar: token.Script},
	}

	if a != nil {
		out.Brace.Trace, out.Brace.Err = braceexec.Run(ctx, a, store, braceexec.Options{
			MaxSteps: opts.MaxSteps,
			Entry:    opts.Entry,
			Logger:   logger,
		})
	} else {
		out.Brace.Trace, out.Brace.Skipped = trace.New(token.Brace), true
	}
	out.Brace.Memory = store.Snapshot()
	store.Reset()

	if b != nil {
		if shims == nil {
			shims = shim.New(shim.Config{Logger: logger})
		} else {
			shims = shims.Clone()
		}
		out.Script.Trace, out.Script.Err = scriptexec.Run(ctx, b, store, shims, scriptexec.Options{
			MaxSteps: opts.MaxSteps,
			Logger:   logger,
		})
		out.Redefinitions = shims.Redefinitions()
	} else {
		out.Script.Trace, out.Script.Skipped = trace.New(token.Script), true
	}
	out.Script.Memory = store.Snapshot()

	logger.Debug("executed both grammars",
		"brace_effects", out.Brace.Trace.Len(),
		"script_effects", out.Script.Trace.Len(),
		"brace_error", out.Brace.Err,
		"script_error", out.Script.Err)
	return out
}
