// Package preprocess builds the brace grammar's view of a buffer: it runs
// the directive and macro pass and records which spans are inert to the
// brace grammar.
//
// Expansion is a single left-to-right pass. A macro's replacement is never
// rescanned for further invocations, so expansion always terminates.
// Every output token keeps a span into the original buffer (the invocation
// span for expanded tokens) plus, for expanded tokens, the span of the
// replacement text it came from.
package preprocess

import (
	"log/slog"

	"github.com/leapstack-labs/leapglot/pkg/brace"
	"github.com/leapstack-labs/leapglot/pkg/core"
	"github.com/leapstack-labs/leapglot/pkg/source"
	"github.com/leapstack-labs/leapglot/pkg/token"
)

// DefaultMaxExpansions bounds the number of macro invocations per run.
const DefaultMaxExpansions = 10000

// Options configures a preprocessing run.
type Options struct {
	// Macros are predefined before the buffer is scanned.
	Macros []*Macro
	// MaxExpansions bounds macro invocations (0 means DefaultMaxExpansions).
	MaxExpansions int
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

type preprocessor struct {
	buf    *source.Buffer
	table  *Table
	res    *Result
	max    int
	logger *slog.Logger

	conds     []condFrame
	skipStart int
}

// Run preprocesses buf. On error the partial Result is still returned so
// callers can report comments and elided spans seen so far.
//
// Errors are *core.Error of kind KindPreprocess (fatal to the brace grammar
// only) or KindExpansionLimit (fatal to the whole run).
func Run(buf *source.Buffer, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	maxExp := opts.MaxExpansions
	if maxExp <= 0 {
		maxExp = DefaultMaxExpansions
	}

	p := &preprocessor{
		buf:    buf,
		table:  NewTable(),
		res:    &Result{},
		max:    maxExp,
		logger: logger,
	}
	p.res.Macros = p.table
	for _, m := range opts.Macros {
		p.table.Define(m)
	}

	toks, comments, err := brace.Lex(buf)
	p.addComments(comments)
	if err != nil {
		p.finish()
		return p.res, err
	}

	if err := p.scan(toks); err != nil {
		p.finish()
		return p.res, err
	}
	p.finish()

	logger.Debug("preprocessed buffer",
		"tokens", len(p.res.Tokens),
		"macros", p.table.Len(),
		"expansions", p.res.Expansions)
	return p.res, nil
}

func (p *preprocessor) finish() {
	if n := len(p.res.Tokens); n == 0 || p.res.Tokens[n-1].Type != token.EOF {
		end := p.buf.Len()
		p.res.Tokens = append(p.res.Tokens, token.Token{
			Type:    token.EOF,
			Span:    p.buf.Span(end, end),
			Grammar: token.Brace,
		})
	}
	p.res.sortElided()
}

func (p *preprocessor) addComments(comments []token.Comment) {
	for _, c := range comments {
		p.res.Comments = append(p.res.Comments, c)
		p.res.Elided = append(p.res.Elided, ElidedSpan{Span: c.Span, Reason: ElideComment})
	}
}

func (p *preprocessor) scan(toks []token.Token) error {
	for i := 0; i < len(toks); {
		tok := toks[i]
		switch {
		case tok.Type == token.EOF:
			if len(p.conds) > 0 {
				open := p.conds[len(p.conds)-1]
				p.endSkip(p.buf.Len())
				return core.Errorf(core.KindPreprocess, token.Brace, open.span, "unterminated conditional directive")
			}
			p.res.Tokens = append(p.res.Tokens, tok)
			return nil
		case tok.Type == token.DIRECTIVE:
			if err := p.directive(tok); err != nil {
				return err
			}
			i++
		case !p.active():
			i++
		default:
			out, next, err := p.expandAt(toks, i)
			if err != nil {
				return err
			}
			p.res.Tokens = append(p.res.Tokens, out...)
			i = next
		}
	}
	return nil
}

// expandAt expands the token at toks[i] if it invokes a macro. It returns
// the output tokens and the index of the next unconsumed token.
func (p *preprocessor) expandAt(toks []token.Token, i int) ([]token.Token, int, error) {
	tok := toks[i]
	if tok.Type != token.IDENT {
		return []token.Token{tok}, i + 1, nil
	}
	m, ok := p.table.Lookup(tok.Literal)
	if !ok {
		return []token.Token{tok}, i + 1, nil
	}
	if !m.FunctionLike {
		if err := p.count(tok.Span); err != nil {
			return nil, 0, err
		}
		return p.substitute(m, tok, tok.Span, nil), i + 1, nil
	}
	// A function-like macro name not followed by ( is an ordinary identifier.
	if i+1 >= len(toks) || toks[i+1].Type != token.LPAREN {
		return []token.Token{tok}, i + 1, nil
	}
	args, closeIdx, err := p.collectArgs(toks, tok, i+1)
	if err != nil {
		return nil, 0, err
	}
	span := tok.Span.Join(toks[closeIdx].Span)
	if len(m.Params) == 0 && len(args) == 1 && len(args[0]) == 0 {
		args = nil
	}
	if len(args) != len(m.Params) {
		return nil, 0, core.Errorf(core.KindPreprocess, token.Brace, span,
			"macro %q expects %d arguments, got %d", m.Name, len(m.Params), len(args))
	}
	if err := p.count(span); err != nil {
		return nil, 0, err
	}
	// Arguments are expanded before substitution; they come from the
	// buffer, not from a replacement, so this is not a rescan.
	expanded := make([][]token.Token, len(args))
	for k, arg := range args {
		out, err := p.expandList(arg)
		if err != nil {
			return nil, 0, err
		}
		expanded[k] = out
	}
	return p.substitute(m, tok, span, expanded), closeIdx + 1, nil
}

func (p *preprocessor) expandList(toks []token.Token) ([]token.Token, error) {
	var out []token.Token
	for i := 0; i < len(toks); {
		exp, next, err := p.expandAt(toks, i)
		if err != nil {
			return nil, err
		}
		out = append(out, exp...)
		i = next
	}
	return out, nil
}

func (p *preprocessor) count(span token.Span) error {
	p.res.Expansions++
	if p.res.Expansions > p.max {
		return core.Errorf(core.KindExpansionLimit, token.Brace, span,
			"macro expansion limit of %d exceeded", p.max)
	}
	return nil
}

// collectArgs splits a parenthesised argument list starting at toks[lp].
func (p *preprocessor) collectArgs(toks []token.Token, name token.Token, lp int) ([][]token.Token, int, error) {
	var (
		args  [][]token.Token
		cur   = []token.Token{}
		depth int
	)
	for j := lp + 1; j < len(toks); j++ {
		t := toks[j]
		switch t.Type {
		case token.EOF, token.DIRECTIVE:
			return nil, 0, core.Errorf(core.KindPreprocess, token.Brace, name.Span,
				"unterminated argument list invoking macro %q", name.Literal)
		case token.LPAREN:
			depth++
			cur = append(cur, t)
		case token.RPAREN:
			if depth == 0 {
				return append(args, cur), j, nil
			}
			depth--
			cur = append(cur, t)
		case token.COMMA:
			if depth == 0 {
				args = append(args, cur)
				cur = []token.Token{}
				continue
			}
			cur = append(cur, t)
		default:
			cur = append(cur, t)
		}
	}
	return nil, 0, core.Errorf(core.KindPreprocess, token.Brace, name.Span,
		"unterminated argument list invoking macro %q", name.Literal)
}

// substitute produces the replacement for one invocation. Replacement tokens
// take the invocation span and record their origin; argument tokens keep
// their own spans.
func (p *preprocessor) substitute(m *Macro, call token.Token, span token.Span, args [][]token.Token) []token.Token {
	out := make([]token.Token, 0, len(m.Replacement))
	for _, rt := range m.Replacement {
		if m.FunctionLike && rt.Type == token.IDENT {
			if idx := m.paramIndex(rt.Literal); idx >= 0 {
				for k, at := range args[idx] {
					if k == 0 {
						at.SpaceBefore = rt.SpaceBefore
						at.NewlineBefore = false
					}
					out = append(out, at)
				}
				continue
			}
		}
		nt := rt
		nt.Span = span
		nt.Grammar = token.Brace
		nt.NewlineBefore = false
		nt.Origin = nil
		if !m.Predefined {
			origin := rt.Span
			nt.Origin = &origin
		}
		out = append(out, nt)
	}
	if len(out) > 0 {
		out[0].SpaceBefore = call.SpaceBefore
		out[0].NewlineBefore = call.NewlineBefore
	}
	return out
}
