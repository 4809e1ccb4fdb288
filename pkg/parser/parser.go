// Package parser runs both grammar front ends over one buffer.
//
// The brace side is preprocess.Run followed by brace.Parse; the script side
// is script.Lex followed by script.Parse. The two sides share nothing but
// the buffer, so they run on separate goroutines. A failure on one side is
// recorded in the Result and never stops the other.
package parser

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/leapglot/pkg/brace"
	"github.com/leapstack-labs/leapglot/pkg/grammar"
	"github.com/leapstack-labs/leapglot/pkg/preprocess"
	"github.com/leapstack-labs/leapglot/pkg/script"
	"github.com/leapstack-labs/leapglot/pkg/shim"
	"github.com/leapstack-labs/leapglot/pkg/source"
	"github.com/leapstack-labs/leapglot/pkg/token"
)

// Options configures ParseBoth.
type Options struct {
	// Macros are predefined for the brace grammar.
	Macros []*preprocess.Macro
	// Shims decide which script calls accept a trailing block.
	Shims *shim.Registry
	// MaxExpansions bounds macro invocations (0 means the preprocess default).
	MaxExpansions int
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Result holds both grammars' views of a buffer.
type Result struct {
	Preprocessed *preprocess.Result
	Brace        *brace.Program
	BraceErr     error

	ScriptTokens   []token.Token
	ScriptComments []token.Comment
	Script         *script.Program
	ScriptErr      error
}

// Err returns the front-end error of grammar g.
func (r *Result) Err(g token.Grammar) error {
	if g == token.Brace {
		return r.BraceErr
	}
	return r.ScriptErr
}

// BothFailed reports whether neither grammar produced an AST.
func (r *Result) BothFailed() bool {
	return r.BraceErr != nil && r.ScriptErr != nil
}

// BraceTokens returns the preprocessed brace token stream.
func (r *Result) BraceTokens() []token.Token {
	if r.Preprocessed == nil {
		return nil
	}
	return r.Preprocessed.Tokens
}

// ParseBoth runs the brace and script front ends concurrently.
func ParseBoth(ctx context.Context, buf *source.Buffer, opts Options) *Result {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	res := &Result{}
	start := time.Now()

	// Each side reports failure through res; the group only joins them.
	eg, egctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		if err := egctx.Err(); err != nil {
			res.BraceErr = err
			return nil
		}
		res.Preprocessed, res.BraceErr = preprocess.Run(buf, preprocess.Options{
			Macros:        opts.Macros,
			MaxExpansions: opts.MaxExpansions,
			Logger:        logger,
		})
		if res.BraceErr != nil {
			return nil
		}
		prog, err := brace.Parse(res.Preprocessed.Tokens, grammar.Brace)
		if err != nil {
			// A partial tree must never reach the executor.
			res.BraceErr = err
			return nil
		}
		res.Brace = prog
		return nil
	})
	eg.Go(func() error {
		if err := egctx.Err(); err != nil {
			res.ScriptErr = err
			return nil
		}
		res.ScriptTokens, res.ScriptComments, res.ScriptErr = script.Lex(buf)
		if res.ScriptErr != nil {
			return nil
		}
		prog, err := script.Parse(buf, res.ScriptTokens, grammar.Script, Acceptor(opts.Shims))
		if err != nil {
			res.ScriptErr = err
			return nil
		}
		res.Script = prog
		return nil
	})
	_ = eg.Wait()

	logger.Debug("parsed both grammars",
		"source", buf.Name(),
		"brace_error", res.BraceErr,
		"script_error", res.ScriptErr,
		"duration", time.Since(start))
	return res
}

// nonBlockBuiltins never take a trailing block, so a block written after
// them belongs to an enclosing call.
var nonBlockBuiltins = map[string]bool{
	"puts":         true,
	"print":        true,
	"p":            true,
	"printf":       true,
	"format":       true,
	"sprintf":      true,
	"block_given?": true,
}

// Acceptor returns the block-acceptance rule for script parsing: declared
// shims decide for themselves, output builtins refuse, everything else
// accepts.
func Acceptor(shims *shim.Registry) script.BlockAcceptor {
	return func(name string) bool {
		if shims != nil && shims.Declared(name) {
			return shims.AcceptsBlock(name)
		}
		return !nonBlockBuiltins[name]
	}
}
