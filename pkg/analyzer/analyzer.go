// Package analyzer is the pipeline entry point: it parses a buffer under
// both grammars, runs both programs against one memory store and compares
// their effects.
package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapglot/pkg/core"
	"github.com/leapstack-labs/leapglot/pkg/divergence"
	"github.com/leapstack-labs/leapglot/pkg/exec"
	"github.com/leapstack-labs/leapglot/pkg/memory"
	"github.com/leapstack-labs/leapglot/pkg/parser"
	"github.com/leapstack-labs/leapglot/pkg/preprocess"
	"github.com/leapstack-labs/leapglot/pkg/shim"
	"github.com/leapstack-labs/leapglot/pkg/source"
	"github.com/leapstack-labs/leapglot/pkg/token"
	"github.com/leapstack-labs/leapglot/pkg/trace"
)

// Fixtures are predefined macros (brace grammar) and shims (script grammar).
type Fixtures struct {
	Macros []*preprocess.Macro `json:"macros,omitempty"`
	Shims  []shim.Definition   `json:"shims,omitempty"`
}

// Merge returns f with o's entries appended. Later shims replace earlier
// ones of the same name when declared.
func (f Fixtures) Merge(o Fixtures) Fixtures {
	return Fixtures{
		Macros: append(append([]*preprocess.Macro{}, f.Macros...), o.Macros...),
		Shims:  append(append([]shim.Definition{}, f.Shims...), o.Shims...),
	}
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithMaxSteps bounds each grammar's execution.
func WithMaxSteps(n int) Option {
	return func(a *Analyzer) { a.maxSteps = n }
}

// WithMaxExpansions bounds macro invocations.
func WithMaxExpansions(n int) Option {
	return func(a *Analyzer) { a.maxExpansions = n }
}

// WithMaxRedefinitions bounds shim redefinitions.
func WithMaxRedefinitions(n int) Option {
	return func(a *Analyzer) { a.maxRedefinitions = n }
}

// WithEntry sets the brace entry function.
func WithEntry(name string) Option {
	return func(a *Analyzer) { a.entry = name }
}

// Analyzer runs the polyglot pipeline. It keeps no state between runs and
// is safe for concurrent use.
type Analyzer struct {
	maxSteps         int
	maxExpansions    int
	maxRedefinitions int
	entry            string
	logger           *slog.Logger
}

// New creates an Analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Result is everything one run produced.
type Result struct {
	Source  string             `json:"source"`
	Report  *divergence.Report `json:"report"`
	TraceA  *trace.Trace       `json:"trace_a"`
	TraceB  *trace.Trace       `json:"trace_b"`
	MemoryA memory.Snapshot    `json:"memory_a"`
	MemoryB memory.Snapshot    `json:"memory_b"`
	Errors  []*core.Error      `json:"errors"`
	// Elided lists the spans inert to the brace grammar.
	Elided []preprocess.ElidedSpan `json:"elided_a,omitempty"`
	// Redefinitions counts shim redefinitions made by the script run.
	Redefinitions int `json:"redefinitions"`
	// Tokens holds both grammars' token streams.
	Tokens Tokens `json:"-"`
	// Comments holds both grammars' comments.
	Comments Comments `json:"-"`
}

// Tokens are the token streams of both grammars.
type Tokens struct {
	Brace  []token.Token
	Script []token.Token
}

// Comments are the comments each grammar saw.
type Comments struct {
	Brace  []token.Comment
	Script []token.Comment
}

// Polyglot reports whether the buffer was accepted.
func (r *Result) Polyglot() bool {
	return r.Report != nil && r.Report.Verdict.Polyglot()
}

// MarshalIndent renders r as indented JSON. The output is byte-identical
// across runs of the same input.
func (r *Result) MarshalIndent() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// Analyze runs the pipeline over buf. Only an ExpansionLimitExceeded error
// aborts the run; every other failure lands in the report.
func (a *Analyzer) Analyze(ctx context.Context, buf *source.Buffer, fx Fixtures) (*Result, error) {
	shims := shim.New(shim.Config{MaxRedefinitions: a.maxRedefinitions, Logger: a.logger})
	for _, def := range fx.Shims {
		if _, err := shims.Declare(def); err != nil {
			return nil, fmt.Errorf("fixture shim %q: %w", def.Name, err)
		}
	}

	parsed := parser.ParseBoth(ctx, buf, parser.Options{
		Macros:        fx.Macros,
		Shims:         shims,
		MaxExpansions: a.maxExpansions,
		Logger:        a.logger,
	})
	if core.IsFatal(parsed.BraceErr) {
		return nil, parsed.BraceErr
	}

	out := exec.RunBoth(ctx, parsed.Brace, parsed.Script, shims, exec.Options{
		MaxSteps: a.maxSteps,
		Entry:    a.entry,
		Logger:   a.logger,
	})
	if core.IsFatal(out.Script.Err) {
		return nil, out.Script.Err
	}

	errs := divergence.Errors{
		Brace:  firstErr(parsed.BraceErr, out.Brace.Err),
		Script: firstErr(parsed.ScriptErr, out.Script.Err),
	}

	res := &Result{
		Source:        buf.Name(),
		Report:        divergence.Analyze(out.Brace.Trace, out.Script.Trace, out.Brace.Memory, out.Script.Memory, errs),
		TraceA:        out.Brace.Trace,
		TraceB:        out.Script.Trace,
		MemoryA:       out.Brace.Memory,
		MemoryB:       out.Script.Memory,
		Errors:        []*core.Error{},
		Redefinitions: out.Redefinitions,
		Tokens:        Tokens{Brace: parsed.BraceTokens(), Script: parsed.ScriptTokens},
		Comments:      Comments{Script: parsed.ScriptComments},
	}
	if parsed.Preprocessed != nil {
		res.Comments.Brace = parsed.Preprocessed.Comments
		res.Elided = parsed.Preprocessed.Elided
	}
	if errs.Brace != nil {
		res.Errors = append(res.Errors, core.Wrap(errs.Brace, core.KindRuntime, token.Brace))
	}
	if errs.Script != nil {
		res.Errors = append(res.Errors, core.Wrap(errs.Script, core.KindRuntime, token.Script))
	}

	a.logger.Debug("analysis complete",
		"source", buf.Name(),
		"verdict", res.Report.Verdict,
		"entries", len(res.Report.Entries))
	return res, nil
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
