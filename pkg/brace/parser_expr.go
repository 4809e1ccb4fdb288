package brace

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapglot/pkg/grammar"
	"github.com/leapstack-labs/leapglot/pkg/token"
)

// Expression parsing uses a Pratt parser driven by the grammar's
// precedence table (see grammar.Brace). Assignment and ?: are
// right-associative; postfix (), [] and ++/-- bind tightest.

// parseExpression parses a full expression.
func (p *Parser) parseExpression() Expr {
	return p.parseExpr(grammar.BracePrecAssign)
}

// parseExpr implements precedence climbing.
func (p *Parser) parseExpr(minPrec int) Expr {
	left := p.parsePrefixExpr()
	if left == nil {
		return nil
	}
	for !p.failed() {
		op := p.cur()
		prec := p.g.Precedence(op.Type)
		if prec == 0 || prec < minPrec {
			break
		}
		left = p.parseInfixExpr(left, op, prec)
		if left == nil {
			return nil
		}
	}
	return left
}

func (p *Parser) parseInfixExpr(left Expr, op token.Token, prec int) Expr {
	start := left.Span()
	p.nextToken()

	switch {
	case op.Type.IsAssign():
		value := p.parseExpr(prec)
		if value == nil {
			return nil
		}
		return &AssignExpr{node: node{p.spanFrom(start)}, Op: op.Type, Target: left, Value: value}

	case op.Type == token.QUESTION:
		then := p.parseExpression()
		if !p.expect(token.COLON) {
			return nil
		}
		els := p.parseExpr(prec)
		if then == nil || els == nil {
			return nil
		}
		return &CondExpr{node: node{p.spanFrom(start)}, Cond: left, Then: then, Else: els}

	case op.Type == token.LPAREN:
		call := &CallExpr{Fun: left}
		if !p.check(token.RPAREN) {
			for !p.failed() {
				arg := p.parseExpr(grammar.BracePrecAssign)
				if arg == nil {
					return nil
				}
				call.Args = append(call.Args, arg)
				if !p.match(token.COMMA) {
					break
				}
			}
		}
		if !p.expect(token.RPAREN) {
			return nil
		}
		call.span = p.spanFrom(start)
		return call

	case op.Type == token.LBRACKET:
		idx := p.parseExpression()
		if !p.expect(token.RBRACKET) || idx == nil {
			return nil
		}
		return &IndexExpr{node: node{p.spanFrom(start)}, X: left, Index: idx}

	case op.Type == token.INC || op.Type == token.DEC:
		return &PostfixExpr{node: node{p.spanFrom(start)}, Op: op.Type, X: left}
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

// parsePrefixExpr parses unary operators and primary expressions.
func (p *Parser) parsePrefixExpr() Expr {
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

func (p *Parser) parsePrimary() Expr {
	tok := p.cur()
	switch tok.Type {
	case token.IDENT:
		p.nextToken()
		return &Ident{node: node{tok.Span}, Name: tok.Literal}

	case token.INT:
		p.nextToken()
		v, err := strconv.ParseInt(tok.Literal, 0, 64)
		if err != nil {
			u, uerr := strconv.ParseUint(tok.Literal, 0, 64)
			if uerr != nil {
				p.addError(tok.Span, fmt.Sprintf("invalid integer literal %q", tok.Literal))
				return nil
			}
			v = int64(u)
		}
		return &IntLit{node: node{tok.Span}, Value: v}

	case token.FLOAT:
		p.nextToken()
		v, err := strconv.ParseFloat(strings.TrimRight(tok.Literal, "fFlL"), 64)
		if err != nil {
			p.addError(tok.Span, fmt.Sprintf("invalid floating literal %q", tok.Literal))
			return nil
		}
		return &FloatLit{node: node{tok.Span}, Value: v}

	case token.CHAR:
		p.nextToken()
		var v int64
		if tok.Literal != "" {
			v = int64(int8(tok.Literal[0]))
		}
		return &CharLit{node: node{tok.Span}, Value: v}

	case token.STRING:
		// Adjacent string literals concatenate.
		var sb strings.Builder
		for p.check(token.STRING) {
			sb.WriteString(p.cur().Literal)
			p.nextToken()
		}
		return &StringLit{node: node{p.spanFrom(tok.Span)}, Value: sb.String()}

	case token.LPAREN:
		p.nextToken()
		if p.isTypeName(p.cur()) {
			ts := p.parseTypeSpec()
			ptr := p.parsePointers()
			if !p.expect(token.RPAREN) {
				return nil
			}
			x := p.parseExpr(grammar.BracePrecUnary)
			if x == nil {
				return nil
			}
			return &CastExpr{node: node{p.spanFrom(tok.Span)}, Type: ts, Pointer: ptr, X: x}
		}
		x := p.parseExpression()
		if x == nil {
			return nil
		}
		if !p.expect(token.RPAREN) {
			return nil
		}
		return x
	}

	p.addError(tok.Span, fmt.Sprintf(ErrExpectedExpr, describe(tok)))
	return nil
}
