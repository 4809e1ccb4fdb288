package script

import (
	"fmt"
	"strconv"

	"github.com/leapstack-labs/leapglot/pkg/grammar"
	"github.com/leapstack-labs/leapglot/pkg/token"
)

// Expression parsing uses a Pratt parser driven by grammar.Script.
// `**` is right-associative and binds tighter than unary minus; `.` `::`
// and `[]` bind tightest.

func (p *Parser) parseExpr(minPrec int) Node {
	left := p.parsePrefixExpr()
	if left == nil {
		return nil
	}
	for !p.failed() {
		op := p.cur()
		prec := p.g.Precedence(op.Type)
		if prec == 0 || prec < minPrec || op.Type == token.LPAREN {
			break
		}
		left = p.parseInfixExpr(left, op, prec)
		if left == nil {
			return nil
		}
	}
	return left
}

func (p *Parser) parseInfixExpr(left Node, op token.Token, prec int) Node {
	start := left.Span()
	p.nextToken()

	switch {
	case op.Type.IsAssign():
		switch left.(type) {
		case *Ident, *GlobalVar, *IndexExpr:
		default:
			p.addError(op.Span, "cannot assign to this expression")
			return nil
		}
		value := p.parseExpr(prec)
		if value == nil {
			return nil
		}
		return &AssignExpr{node: node{p.spanFrom(start)}, Op: op.Type, Target: left, Value: value}

	case op.Type == token.QUESTION:
		then := p.parseExpr(grammar.ScriptPrecTernary)
		if then == nil || !p.expect(token.COLON, "':'") {
			return nil
		}
		els := p.parseExpr(prec)
		if els == nil {
			return nil
		}
		return &CondExpr{node: node{p.spanFrom(start)}, Cond: left, Then: then, Else: els}

	case op.Type == token.DOT || op.Type == token.DCOLON:
		name := p.cur()
		if name.Type != token.IDENT {
			p.addError(name.Span, fmt.Sprintf(ErrExpectedName, describe(name)))
			return nil
		}
		p.nextToken()
		call := &CallExpr{Receiver: left, Name: name.Literal}
		if !p.parseCallArgs(call) {
			return nil
		}
		call.span = p.spanFrom(start)
		p.maybeBlock(call)
		return call

	case op.Type == token.LBRACKET:
		restore := p.enterGroup()
		idx := p.parseExpr(grammar.ScriptPrecAndOr)
		restore()
		if idx == nil || !p.expect(token.RBRACKET, "']'") {
			return nil
		}
		return &IndexExpr{node: node{p.spanFrom(start)}, X: left, Index: idx}
	}

	next := prec + 1
	if p.g.IsRightAssoc(op.Type) {
		next = prec
	}
	right := p.parseExpr(next)
	if right == nil {
		return nil
	}
	return &BinaryExpr{node: node{p.spanFrom(start)}, Op: op.Type, Left: left, Right: right}
}

func (p *Parser) parsePrefixExpr() Node {
	tok := p.cur()
	if prec := p.g.PrefixPrecedence(tok.Type); prec > 0 {
		p.nextToken()
		x := p.parseExpr(prec)
		if x == nil {
			return nil
		}
		return &UnaryExpr{node: node{p.spanFrom(tok.Span)}, Op: tok.Type, X: x}
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() Node {
	tok := p.cur()
	switch tok.Type {
	case token.IDENT:
		return p.parseIdentifier()

	case token.GVAR:
		p.nextToken()
		g := &GlobalVar{node: node{tok.Span}, Name: tok.Literal}
		if p.cur().Type.IsAssign() {
			return p.parseAssignTo(g)
		}
		return g

	case token.INT:
		p.nextToken()
		v, err := strconv.ParseInt(tok.Literal, 0, 64)
		if err != nil {
			p.addError(tok.Span, fmt.Sprintf("integer literal %s out of range", tok.Literal))
			return nil
		}
		return &IntLit{node: node{tok.Span}, Value: v}

	case token.FLOAT:
		p.nextToken()
		v, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			p.addError(tok.Span, fmt.Sprintf("invalid float literal %s", tok.Literal))
			return nil
		}
		return &FloatLit{node: node{tok.Span}, Value: v}

	case token.STRING:
		s := ""
		for p.check(token.STRING) {
			s += p.cur().Literal
			p.nextToken()
		}
		return &StringLit{node: node{p.spanFrom(tok.Span)}, Value: s}

	case token.DSTRING:
		p.nextToken()
		return p.parseInterpolation(tok)

	case token.SYMBOL:
		p.nextToken()
		return &SymbolLit{node: node{tok.Span}, Name: tok.Literal}

	case token.REGEX:
		p.nextToken()
		return &RegexLit{node: node{tok.Span}, Source: tok.Literal}

	case grammar.TokenNil:
		p.nextToken()
		return &NilLit{node{tok.Span}}

	case grammar.TokenTrue, grammar.TokenFalse:
		p.nextToken()
		return &BoolLit{node: node{tok.Span}, Value: tok.Type == grammar.TokenTrue}

	case token.LPAREN:
		p.nextToken()
		if p.match(token.RPAREN) {
			return &NilLit{node{p.spanFrom(tok.Span)}}
		}
		restore := p.enterGroup()
		x := p.parseStatement()
		restore()
		if x == nil || !p.expect(token.RPAREN, "')'") {
			return nil
		}
		return x

	case token.LBRACKET:
		p.nextToken()
		restore := p.enterGroup()
		defer restore()
		arr := &ArrayLit{}
		for !p.failed() && !p.check(token.RBRACKET) {
			e := p.parseArg()
			if e == nil {
				return nil
			}
			arr.Elems = append(arr.Elems, e)
			if !p.match(token.COMMA) {
				break
			}
		}
		if !p.expect(token.RBRACKET, "']'") {
			return nil
		}
		arr.span = p.spanFrom(tok.Span)
		return arr

	case grammar.TokenDef:
		return p.parseDef()

	case token.IF, grammar.TokenUnless:
		return p.parseIf()

	case token.WHILE, grammar.TokenUntil:
		return p.parseWhile()

	case token.RETURN, grammar.TokenNext, token.BREAK:
		p.nextToken()
		v, ok := p.parseJumpValue()
		if !ok {
			return nil
		}
		span := p.spanFrom(tok.Span)
		switch tok.Type {
		case token.RETURN:
			return &ReturnStmt{node: node{span}, Value: v}
		case grammar.TokenNext:
			return &NextStmt{node: node{span}, Value: v}
		}
		return &BreakStmt{node: node{span}, Value: v}

	case grammar.TokenYield:
		p.nextToken()
		y := &YieldExpr{}
		call := &CallExpr{Name: "yield"}
		if !p.parseCallArgs(call) {
			return nil
		}
		y.Args = call.Args
		y.span = p.spanFrom(tok.Span)
		return y
	}

	p.addError(tok.Span, fmt.Sprintf(ErrExpectedExpr, describe(tok)))
	return nil
}

// parseIdentifier parses a local variable, an assignment or a call.
func (p *Parser) parseIdentifier() Node {
	tok := p.cur()
	name := tok.Literal

	if p.peekN(1).Type.IsAssign() {
		p.nextToken()
		p.declareLocal(name)
		return p.parseAssignTo(&Ident{node: node{tok.Span}, Name: name})
	}
	if p.isLocal(name) {
		p.nextToken()
		return &Ident{node: node{tok.Span}, Name: name}
	}

	p.nextToken()
	call := &CallExpr{Name: name}
	if !p.parseCallArgs(call) {
		return nil
	}
	call.span = p.spanFrom(tok.Span)
	p.maybeBlock(call)
	return call
}

func (p *Parser) parseAssignTo(target Node) Node {
	op := p.cur()
	p.nextToken()
	value := p.parseExpr(grammar.ScriptPrecAssign)
	if value == nil {
		return nil
	}
	return &AssignExpr{node: node{p.spanFrom(target.Span())}, Op: op.Type, Target: target, Value: value}
}

// parseCallArgs parses a parenthesized or command argument list, if any.
func (p *Parser) parseCallArgs(call *CallExpr) bool {
	switch {
	case p.check(token.LPAREN) && !p.cur().SpaceBefore:
		p.nextToken()
		call.Parens = true
		restore := p.enterGroup()
		defer restore()
		for !p.failed() && !p.check(token.RPAREN) {
			arg := p.parseArg()
			if arg == nil {
				return false
			}
			call.Args = append(call.Args, arg)
			if !p.match(token.COMMA) {
				break
			}
		}
		return p.expect(token.RPAREN, "')'")

	case p.startsCommandArg():
		call.Command = true
		p.callDepth++
		defer func() { p.callDepth-- }()
		for !p.failed() {
			arg := p.parseArg()
			if arg == nil {
				return false
			}
			call.Args = append(call.Args, arg)
			if !p.match(token.COMMA) {
				break
			}
		}
		return !p.failed()
	}
	return true
}

// startsCommandArg decides whether the current token begins the first
// argument of a call written without parentheses.
func (p *Parser) startsCommandArg() bool {
	t := p.cur()
	if t.NewlineBefore {
		return false
	}
	switch t.Type {
	case token.IDENT, token.GVAR, token.INT, token.FLOAT, token.STRING, token.DSTRING,
		token.SYMBOL, token.REGEX, grammar.TokenNil, grammar.TokenTrue, grammar.TokenFalse,
		grammar.TokenYield:
		return true
	case token.LBRACKET, token.LPAREN:
		return t.SpaceBefore
	case token.MINUS, token.PLUS, token.STAR, token.POW, token.AMP, token.BANG, token.TILDE:
		return t.SpaceBefore && !p.peekN(1).SpaceBefore
	}
	return false
}

// parseArg parses one call argument, including *splat, **opts and &blk.
func (p *Parser) parseArg() Node {
	tok := p.cur()
	switch tok.Type {
	case token.STAR, token.POW, token.AMP:
		p.nextToken()
		x := p.parseExpr(grammar.ScriptPrecTernary)
		if x == nil {
			return nil
		}
		span := p.spanFrom(tok.Span)
		switch tok.Type {
		case token.STAR:
			return &SplatExpr{node: node{span}, X: x}
		case token.POW:
			return &DoubleSplatExpr{node: node{span}, X: x}
		}
		return &BlockPass{node: node{span}, X: x}
	}
	return p.parseExpr(grammar.ScriptPrecAssign)
}

// parseInterpolation splits a DSTRING body into literal text and
// expressions. Expression bodies are re-lexed from the source buffer so
// their spans point into the original text.
func (p *Parser) parseInterpolation(tok token.Token) Node {
	n := &InterpString{node: node{tok.Span}}
	body := tok.Literal
	base := tok.Span.Start.Offset + 1

	text := func(from, to int) {
		if to > from {
			n.Parts = append(n.Parts, &StringLit{node: node{p.bufSpan(base+from, base+to, tok.Span)}, Value: Unescape(body[from:to])})
		}
	}

	textStart := 0
	for i := 0; i < len(body); {
		switch {
		case body[i] == '\\':
			i += 2
		case body[i] == '#' && i+1 < len(body) && body[i+1] == '{':
			text(textStart, i)
			end := matchingBrace(body, i+2)
			if end < 0 {
				p.addError(tok.Span, "unterminated string interpolation")
				return nil
			}
			expr := p.parseEmbedded(base+i+2, base+end, tok.Span)
			if expr == nil {
				return nil
			}
			n.Parts = append(n.Parts, expr)
			i = end + 1
			textStart = i
		default:
			i++
		}
	}
	text(textStart, len(body))
	return n
}

func (p *Parser) bufSpan(start, end int, fallback token.Span) token.Span {
	if p.buf == nil {
		return fallback
	}
	return p.buf.Span(start, end)
}

// parseEmbedded parses the statements of one #{...} body; the value of the
// last statement is interpolated.
func (p *Parser) parseEmbedded(start, end int, at token.Span) Node {
	if p.buf == nil {
		p.addError(at, "string interpolation requires the source buffer")
		return nil
	}
	toks, _, err := LexRange(p.buf, p.g, start, end)
	if err != nil {
		p.errors = append(p.errors, err)
		return nil
	}
	sub := NewParser(p.buf, toks, p.g, p.accepts)
	sub.scopes = append([]*localScope(nil), p.scopes...)
	sub.defs = p.defs
	stmts := sub.parseStatements()
	if len(sub.errors) > 0 {
		p.errors = append(p.errors, sub.errors...)
		return nil
	}
	if !sub.check(token.EOF) {
		p.addError(sub.cur().Span, fmt.Sprintf(ErrUnexpectedToken, describe(sub.cur()), "'}'"))
		return nil
	}
	if len(stmts) == 0 {
		return &StringLit{node: node{p.buf.Span(start, end)}}
	}
	return stmts[len(stmts)-1]
}

// matchingBrace returns the index of the `}` closing the interpolation
// whose body starts at i, or -1.
func matchingBrace(s string, i int) int {
	depth := 1
	for ; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		case '"', '\'':
			q := s[i]
			for i++; i < len(s) && s[i] != q; i++ {
				if s[i] == '\\' {
					i++
				}
			}
		}
	}
	return -1
}
