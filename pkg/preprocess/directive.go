package preprocess

import (
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapglot/pkg/brace"
	"github.com/leapstack-labs/leapglot/pkg/core"
	"github.com/leapstack-labs/leapglot/pkg/grammar"
	"github.com/leapstack-labs/leapglot/pkg/token"
)

// condFrame is one open #if/#ifdef/#ifndef group.
type condFrame struct {
	span         token.Span
	parentActive bool
	taken        bool // some branch of the group was taken
	active       bool // the current branch is taken
	sawElse      bool
}

func (p *preprocessor) active() bool {
	return len(p.conds) == 0 || p.conds[len(p.conds)-1].active
}

func (p *preprocessor) startSkip(offset int) {
	p.skipStart = offset
}

func (p *preprocessor) endSkip(offset int) {
	if offset > p.skipStart {
		p.res.Elided = append(p.res.Elided, ElidedSpan{
			Span:   p.buf.Span(p.skipStart, offset),
			Reason: ElideConditional,
		})
	}
}

// directive handles one directive line.
func (p *preprocessor) directive(tok token.Token) error {
	p.res.Elided = append(p.res.Elided, ElidedSpan{Span: tok.Span, Reason: ElideDirective})

	text := tok.Literal
	base := tok.Span.Start.Offset
	i := 1 // skip '#'
	for i < len(text) && (text[i] == ' ' || text[i] == '\t') {
		i++
	}
	nameStart := i
	for i < len(text) && (isWordByte(text[i])) {
		i++
	}
	name := text[nameStart:i]
	restStart := base + i
	restEnd := tok.Span.End.Offset

	switch name {
	case "if", "ifdef", "ifndef", "elif", "else", "endif":
		return p.conditional(tok, name, restStart, restEnd)
	}
	if !p.active() {
		return nil
	}

	switch {
	case name == "":
		if strings.TrimSpace(text[nameStart:]) == "" {
			// null directive
			return nil
		}
		return core.Errorf(core.KindPreprocess, token.Brace, tok.Span,
			"invalid preprocessing directive #%c", text[nameStart])
	case name[0] >= '0' && name[0] <= '9':
		p.res.Markers = append(p.res.Markers, Marker{Kind: MarkerLine, Span: tok.Span, Arg: strings.TrimSpace(text[nameStart:])})
		return nil
	}

	switch name {
	case "define":
		return p.define(tok, restStart, restEnd)
	case "undef":
		body, err := p.lexBody(restStart, restEnd)
		if err != nil {
			return err
		}
		if len(body) == 0 || body[0].Type != token.IDENT {
			return core.Errorf(core.KindPreprocess, token.Brace, tok.Span, "no macro name given in #undef directive")
		}
		p.table.Undef(body[0].Literal)
		p.logger.Debug("macro undefined", "name", body[0].Literal)
		return nil
	case "include":
		p.res.Markers = append(p.res.Markers, Marker{Kind: MarkerInclude, Span: tok.Span, Arg: strings.TrimSpace(text[i:])})
		return nil
	case "line":
		p.res.Markers = append(p.res.Markers, Marker{Kind: MarkerLine, Span: tok.Span, Arg: strings.TrimSpace(text[i:])})
		return nil
	case "pragma":
		p.res.Markers = append(p.res.Markers, Marker{Kind: MarkerPragma, Span: tok.Span, Arg: strings.TrimSpace(text[i:])})
		return nil
	case "warning":
		p.res.Markers = append(p.res.Markers, Marker{Kind: MarkerWarning, Span: tok.Span, Arg: strings.TrimSpace(text[i:])})
		return nil
	case "error":
		return core.Errorf(core.KindPreprocess, token.Brace, tok.Span, "#error %s", strings.TrimSpace(text[i:]))
	}
	return core.Errorf(core.KindPreprocess, token.Brace, tok.Span, "invalid preprocessing directive #%s", name)
}

func (p *preprocessor) lexBody(start, end int) ([]token.Token, error) {
	toks, comments, err := brace.LexRange(p.buf, start, end)
	p.res.Comments = append(p.res.Comments, comments...)
	if err != nil {
		return nil, err
	}
	return toks[:len(toks)-1], nil
}

// define parses `#define NAME tokens` and `#define NAME(a, b) tokens`.
// A function-like macro requires ( immediately after the name.
func (p *preprocessor) define(tok token.Token, start, end int) error {
	body, err := p.lexBody(start, end)
	if err != nil {
		return err
	}
	if len(body) == 0 || body[0].Type != token.IDENT {
		return core.Errorf(core.KindPreprocess, token.Brace, tok.Span, "macro names must be identifiers")
	}
	m := &Macro{Name: body[0].Literal, Span: tok.Span}
	rest := body[1:]

	if len(rest) > 0 && rest[0].Type == token.LPAREN && !rest[0].SpaceBefore {
		m.FunctionLike = true
		m.Params = []string{}
		j := 1
		for {
			if j >= len(rest) {
				return core.Errorf(core.KindPreprocess, token.Brace, tok.Span, "missing ')' in macro parameter list")
			}
			if rest[j].Type == token.RPAREN && len(m.Params) == 0 {
				j++
				break
			}
			if rest[j].Type != token.IDENT {
				return core.Errorf(core.KindPreprocess, token.Brace, rest[j].Span,
					"expected parameter name, found %s", rest[j].Type)
			}
			m.Params = append(m.Params, rest[j].Literal)
			j++
			if j < len(rest) && rest[j].Type == token.COMMA {
				j++
				continue
			}
			if j < len(rest) && rest[j].Type == token.RPAREN {
				j++
				break
			}
			return core.Errorf(core.KindPreprocess, token.Brace, tok.Span, "missing ')' in macro parameter list")
		}
		rest = rest[j:]
	}
	m.Replacement = rest
	p.table.Define(m)
	p.res.Defined = append(p.res.Defined, m)
	p.logger.Debug("macro defined", "name", m.Name, "function_like", m.FunctionLike)
	return nil
}

// conditional handles #if, #ifdef, #ifndef, #elif, #else and #endif.
func (p *preprocessor) conditional(tok token.Token, name string, start, end int) error {
	switch name {
	case "if", "ifdef", "ifndef":
		parent := p.active()
		val := false
		if parent {
			var err error
			val, err = p.evalCondition(tok, name, start, end)
			if err != nil {
				return err
			}
		}
		p.conds = append(p.conds, condFrame{span: tok.Span, parentActive: parent, taken: val, active: val})
		if parent && !val {
			p.startSkip(tok.Span.End.Offset)
		}
		return nil
	}

	if len(p.conds) == 0 {
		return core.Errorf(core.KindPreprocess, token.Brace, tok.Span, "#%s without #if", name)
	}
	top := &p.conds[len(p.conds)-1]
	was := top.active

	switch name {
	case "elif", "else":
		if top.sawElse {
			return core.Errorf(core.KindPreprocess, token.Brace, tok.Span, "#%s after #else", name)
		}
		switch {
		case !top.parentActive || top.taken:
			top.active = false
		case name == "else":
			top.active = true
		default:
			val, err := p.evalCondition(tok, "if", start, end)
			if err != nil {
				return err
			}
			top.active = val
		}
		top.taken = top.taken || top.active
		top.sawElse = name == "else"
		if top.parentActive {
			switch {
			case was && !top.active:
				p.startSkip(tok.Span.End.Offset)
			case !was && top.active:
				p.endSkip(tok.Span.Start.Offset)
			}
		}
	case "endif":
		if top.parentActive && !was {
			p.endSkip(tok.Span.Start.Offset)
		}
		p.conds = p.conds[:len(p.conds)-1]
	}
	return nil
}

func (p *preprocessor) evalCondition(tok token.Token, name string, start, end int) (bool, error) {
	body, err := p.lexBody(start, end)
	if err != nil {
		return false, err
	}
	if name == "ifdef" || name == "ifndef" {
		if len(body) == 0 || body[0].Type != token.IDENT {
			return false, core.Errorf(core.KindPreprocess, token.Brace, tok.Span, "no macro name given in #%s directive", name)
		}
		_, defined := p.table.Lookup(body[0].Literal)
		return defined == (name == "ifdef"), nil
	}
	if len(body) == 0 {
		return false, core.Errorf(core.KindPreprocess, token.Brace, tok.Span, "#if with no expression")
	}
	ev := &condEval{toks: body, table: p.table, span: tok.Span}
	v := ev.parse(1)
	if ev.err == nil && ev.i < len(ev.toks) {
		ev.fail("unexpected %s in #if expression", ev.toks[ev.i].Type)
	}
	if ev.err != nil {
		return false, ev.err
	}
	return v != 0, nil
}

// condEval evaluates an #if expression with the brace grammar's operator
// precedence. Identifiers that are not object-like integer macros are 0.
type condEval struct {
	toks  []token.Token
	i     int
	table *Table
	span  token.Span
	err   error
}

func (e *condEval) fail(format string, args ...any) {
	if e.err == nil {
		e.err = core.Errorf(core.KindPreprocess, token.Brace, e.span, format, args...)
	}
}

func (e *condEval) peek() token.Token {
	if e.i < len(e.toks) {
		return e.toks[e.i]
	}
	return token.Token{Type: token.EOF}
}

func (e *condEval) next() token.Token {
	t := e.peek()
	if e.i < len(e.toks) {
		e.i++
	}
	return t
}

func (e *condEval) parse(minPrec int) int64 {
	left := e.prefix()
	for e.err == nil {
		op := e.peek().Type
		prec := grammar.Brace.Precedence(op)
		if prec < minPrec || prec <= grammar.BracePrecTernary || prec >= grammar.BracePrecPostfix {
			break
		}
		e.next()
		right := e.parse(prec + 1)
		left = e.binary(op, left, right)
	}
	return left
}

func (e *condEval) prefix() int64 {
	t := e.next()
	switch t.Type {
	case token.INT:
		v, err := strconv.ParseInt(t.Literal, 0, 64)
		if err != nil {
			e.fail("invalid integer %q in #if expression", t.Literal)
		}
		return v
	case token.CHAR:
		if t.Literal == "" {
			return 0
		}
		return int64(t.Literal[0])
	case token.IDENT:
		if t.Literal == "defined" {
			return e.defined()
		}
		if m, ok := e.table.Lookup(t.Literal); ok && !m.FunctionLike && len(m.Replacement) == 1 && m.Replacement[0].Type == token.INT {
			v, _ := strconv.ParseInt(m.Replacement[0].Literal, 0, 64)
			return v
		}
		return 0
	case token.BANG:
		return b2i(e.parse(grammar.BracePrecUnary) == 0)
	case token.MINUS:
		return -e.parse(grammar.BracePrecUnary)
	case token.PLUS:
		return e.parse(grammar.BracePrecUnary)
	case token.TILDE:
		return ^e.parse(grammar.BracePrecUnary)
	case token.LPAREN:
		v := e.parse(1)
		if e.next().Type != token.RPAREN {
			e.fail("missing ')' in #if expression")
		}
		return v
	}
	e.fail("unexpected %s in #if expression", t.Type)
	return 0
}

func (e *condEval) defined() int64 {
	paren := false
	if e.peek().Type == token.LPAREN {
		paren = true
		e.next()
	}
	name := e.next()
	if name.Type != token.IDENT {
		e.fail("operator \"defined\" requires an identifier")
		return 0
	}
	if paren && e.next().Type != token.RPAREN {
		e.fail("missing ')' after \"defined\"")
	}
	_, ok := e.table.Lookup(name.Literal)
	return b2i(ok)
}

func (e *condEval) binary(op token.TokenType, a, b int64) int64 {
	switch op {
	case token.OR_OR:
		return b2i(a != 0 || b != 0)
	case token.AND_AND:
		return b2i(a != 0 && b != 0)
	case token.PIPE:
		return a | b
	case token.CARET:
		return a ^ b
	case token.AMP:
		return a & b
	case token.EQ:
		return b2i(a == b)
	case token.NE:
		return b2i(a != b)
	case token.LT:
		return b2i(a < b)
	case token.GT:
		return b2i(a > b)
	case token.LE:
		return b2i(a <= b)
	case token.GE:
		return b2i(a >= b)
	case token.SHL:
		return a << uint64(b&63)
	case token.SHR:
		return a >> uint64(b&63)
	case token.PLUS:
		return a + b
	case token.MINUS:
		return a - b
	case token.STAR:
		return a * b
	case token.SLASH, token.PERCENT:
		if b == 0 {
			e.fail("division by zero in #if expression")
			return 0
		}
		if op == token.SLASH {
			return a / b
		}
		return a % b
	}
	e.fail("operator %s not allowed in #if expression", op)
	return 0
}

func b2i(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func isWordByte(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_'
}
