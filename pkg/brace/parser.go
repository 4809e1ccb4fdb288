package brace

import (
	"fmt"
	"strconv"

	"github.com/leapstack-labs/leapglot/pkg/core"
	"github.com/leapstack-labs/leapglot/pkg/grammar"
	"github.com/leapstack-labs/leapglot/pkg/token"
)

// Grammar overview (C subset):
//
//	program     → { external }
//	external    → typespec declarator ( func_rest | var_rest )
//	            | IDENT '(' params ')' block            (implicit int)
//	statement   → block | if | while | do_while | for | return
//	            | break | continue | declaration | expr ';' | ';'
//	expression  → Pratt parsing with grammar.Brace precedence
//
// An unbraced if/while/for body is exactly one statement.

// Parser parses a preprocessed brace token stream.
type Parser struct {
	toks   []token.Token
	pos    int
	prev   token.Token // last consumed token
	g      *grammar.Grammar
	errors []error
}

// NewParser creates a parser over toks, which must end with EOF. Words are
// classified as keywords with g (grammar.Brace when nil).
func NewParser(toks []token.Token, g *grammar.Grammar) *Parser {
	if g == nil {
		g = grammar.Brace
	}
	classified := make([]token.Token, 0, len(toks)+1)
	for _, t := range toks {
		classified = append(classified, g.Classify(t))
	}
	if len(classified) == 0 || classified[len(classified)-1].Type != token.EOF {
		classified = append(classified, token.Token{Type: token.EOF, Grammar: token.Brace})
	}
	return &Parser{toks: classified, g: g}
}

// Parse parses a preprocessed token stream into a Program. The first syntax
// error is returned as a *core.Error of kind KindParse.
func Parse(toks []token.Token, g *grammar.Grammar) (*Program, error) {
	p := NewParser(toks, g)
	prog := p.ParseProgram()
	if len(p.errors) > 0 {
		return prog, p.errors[0]
	}
	return prog, nil
}

// Errors returns all recorded errors.
func (p *Parser) Errors() []error {
	return p.errors
}

// ---------- Token Helpers ----------

func (p *Parser) cur() token.Token {
	return p.toks[p.pos]
}

func (p *Parser) peekN(n int) token.Token {
	if p.pos+n < len(p.toks) {
		return p.toks[p.pos+n]
	}
	return p.toks[len(p.toks)-1]
}

// nextToken advances to the next token.
func (p *Parser) nextToken() {
	p.prev = p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
}

func (p *Parser) check(t token.TokenType) bool {
	return p.cur().Type == t
}

func (p *Parser) match(t token.TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	return false
}

func (p *Parser) expect(t token.TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	p.addError(p.cur().Span, fmt.Sprintf(ErrUnexpectedToken, describe(p.cur()), t))
	return false
}

func (p *Parser) failed() bool {
	return len(p.errors) > 0
}

func (p *Parser) addError(span token.Span, msg string) {
	p.errors = append(p.errors, core.Errorf(core.KindParse, token.Brace, span, "%s", msg))
}

func (p *Parser) spanFrom(start token.Span) token.Span {
	return start.Join(p.prev.Span)
}

func (p *Parser) isTypeName(t token.Token) bool {
	return t.Type == token.IDENT && p.g.IsTypeName(t.Literal)
}

func describe(t token.Token) string {
	if t.Type == token.EOF {
		return "end of input"
	}
	if t.Literal != "" {
		return strconv.Quote(t.Literal)
	}
	return t.Type.String()
}

// Common error messages
const (
	ErrUnexpectedToken = "unexpected %s, expected %s"
	ErrExpectedExpr    = "expected expression, found %s"
	ErrExpectedName    = "expected identifier, found %s"
)

// ---------- Program ----------

// ParseProgram parses the whole token stream.
func (p *Parser) ParseProgram() *Program {
	prog := &Program{}
	start := p.cur().Span
	for !p.check(token.EOF) && !p.failed() {
		if p.match(token.SEMICOLON) {
			continue
		}
		if item := p.parseExternal(); item != nil {
			prog.Items = append(prog.Items, item)
		}
	}
	prog.span = p.spanFrom(start)
	return prog
}

// parseExternal parses a global declaration or a function.
func (p *Parser) parseExternal() Node {
	start := p.cur().Span
	ts := p.parseTypeSpec()
	if len(ts.Names) == 0 {
		// K&R implicit int: main() { ... }
		if !(p.check(token.IDENT) && p.peekN(1).Type == token.LPAREN) {
			p.addError(p.cur().Span, fmt.Sprintf("expected declaration, found %s", describe(p.cur())))
			return nil
		}
		ts = TypeSpec{Names: []string{"int"}}
	}

	ptr := p.parsePointers()
	if !p.check(token.IDENT) {
		p.addError(p.cur().Span, fmt.Sprintf(ErrExpectedName, describe(p.cur())))
		return nil
	}
	nameTok := p.cur()
	p.nextToken()

	if p.check(token.LPAREN) {
		return p.parseFuncRest(start, ts, ptr, nameTok.Literal)
	}
	decl := p.parseDeclRest(start, ts, ptr, nameTok)
	if decl == nil {
		return nil
	}
	return decl
}

// parseTypeSpec consumes consecutive type words.
func (p *Parser) parseTypeSpec() TypeSpec {
	var ts TypeSpec
	for p.isTypeName(p.cur()) {
		ts.Names = append(ts.Names, p.cur().Literal)
		p.nextToken()
	}
	return ts
}

func (p *Parser) parsePointers() int {
	n := 0
	for p.match(token.STAR) {
		n++
	}
	return n
}

func (p *Parser) parseFuncRest(start token.Span, ts TypeSpec, ptr int, name string) Node {
	fn := &FuncDecl{Type: ts, Pointer: ptr, Name: name}
	p.expect(token.LPAREN)
	fn.Params = p.parseParams()
	if !p.expect(token.RPAREN) {
		return nil
	}
	switch {
	case p.match(token.SEMICOLON):
	case p.check(token.LBRACE):
		fn.Body = p.parseBlock()
	default:
		p.addError(p.cur().Span, fmt.Sprintf(ErrUnexpectedToken, describe(p.cur()), "function body"))
		return nil
	}
	fn.span = p.spanFrom(start)
	return fn
}

func (p *Parser) parseParams() []*Param {
	var params []*Param
	if p.check(token.RPAREN) {
		return nil
	}
	if p.cur().Literal == "void" && p.peekN(1).Type == token.RPAREN {
		p.nextToken()
		return nil
	}
	for !p.failed() {
		if p.check(token.DOT) {
			// variadic ...
			for p.check(token.DOT) {
				p.nextToken()
			}
			break
		}
		ts := p.parseTypeSpec()
		if len(ts.Names) == 0 {
			p.addError(p.cur().Span, fmt.Sprintf("expected parameter type, found %s", describe(p.cur())))
			return params
		}
		prm := &Param{Type: ts, Pointer: p.parsePointers()}
		if p.check(token.IDENT) {
			prm.Name = p.cur().Literal
			p.nextToken()
		}
		if p.match(token.LBRACKET) {
			prm.Array = true
			for !p.check(token.RBRACKET) && !p.check(token.EOF) {
				p.nextToken()
			}
			p.expect(token.RBRACKET)
		}
		params = append(params, prm)
		if !p.match(token.COMMA) {
			break
		}
	}
	return params
}

// parseDeclRest parses the remaining declarators after the first name.
func (p *Parser) parseDeclRest(start token.Span, ts TypeSpec, ptr int, first token.Token) *DeclStmt {
	decl := &DeclStmt{Type: ts}
	d := p.parseDeclaratorTail(first, ptr)
	decl.Decls = append(decl.Decls, d)
	for p.match(token.COMMA) && !p.failed() {
		dstart := p.cur().Span
		n := p.parsePointers()
		if !p.check(token.IDENT) {
			p.addError(p.cur().Span, fmt.Sprintf(ErrExpectedName, describe(p.cur())))
			return nil
		}
		name := p.cur()
		p.nextToken()
		d := p.parseDeclaratorTail(name, n)
		d.span = dstart.Join(d.span)
		decl.Decls = append(decl.Decls, d)
	}
	if !p.expect(token.SEMICOLON) {
		return nil
	}
	decl.span = p.spanFrom(start)
	return decl
}

func (p *Parser) parseDeclaratorTail(name token.Token, ptr int) *Declarator {
	d := &Declarator{Name: name.Literal, Pointer: ptr}
	if p.match(token.LBRACKET) {
		d.Array = true
		if !p.check(token.RBRACKET) {
			d.ArraySize = p.parseExpr(grammar.BracePrecAssign)
		}
		p.expect(token.RBRACKET)
	}
	if p.match(token.ASSIGN) {
		d.Init = p.parseExpr(grammar.BracePrecAssign)
	}
	d.span = p.spanFrom(name.Span)
	return d
}

// ---------- Statements ----------

func (p *Parser) parseBlock() *Block {
	start := p.cur().Span
	b := &Block{}
	if !p.expect(token.LBRACE) {
		return b
	}
	for !p.check(token.RBRACE) && !p.check(token.EOF) && !p.failed() {
		if s := p.parseStatement(); s != nil {
			b.Stmts = append(b.Stmts, s)
		}
	}
	p.expect(token.RBRACE)
	b.span = p.spanFrom(start)
	return b
}

func (p *Parser) parseStatement() Stmt {
	start := p.cur().Span
	switch tok := p.cur(); {
	case tok.Type == token.LBRACE:
		return p.parseBlock()
	case tok.Type == token.SEMICOLON:
		p.nextToken()
		return &EmptyStmt{node{start}}
	case tok.Type == token.IF:
		return p.parseIf()
	case tok.Type == token.WHILE:
		p.nextToken()
		s := &WhileStmt{}
		s.Cond = p.parseParenExpr()
		s.Body = p.parseStatement()
		s.span = p.spanFrom(start)
		return s
	case tok.Type == token.DO:
		p.nextToken()
		s := &DoWhileStmt{}
		s.Body = p.parseStatement()
		if !p.expect(token.WHILE) {
			return nil
		}
		s.Cond = p.parseParenExpr()
		p.expect(token.SEMICOLON)
		s.span = p.spanFrom(start)
		return s
	case tok.Type == grammar.TokenFor:
		return p.parseFor()
	case tok.Type == token.RETURN:
		p.nextToken()
		s := &ReturnStmt{}
		if !p.check(token.SEMICOLON) {
			s.Value = p.parseExpression()
		}
		p.expect(token.SEMICOLON)
		s.span = p.spanFrom(start)
		return s
	case tok.Type == token.BREAK:
		p.nextToken()
		p.expect(token.SEMICOLON)
		return &BreakStmt{node{p.spanFrom(start)}}
	case tok.Type == grammar.TokenContinue:
		p.nextToken()
		p.expect(token.SEMICOLON)
		return &ContinueStmt{node{p.spanFrom(start)}}
	case p.isTypeName(tok):
		return p.parseLocalDecl()
	}

	x := p.parseExpression()
	if x == nil {
		return nil
	}
	p.expect(token.SEMICOLON)
	return &ExprStmt{node: node{p.spanFrom(start)}, X: x}
}

func (p *Parser) parseLocalDecl() Stmt {
	start := p.cur().Span
	ts := p.parseTypeSpec()
	ptr := p.parsePointers()
	if !p.check(token.IDENT) {
		p.addError(p.cur().Span, fmt.Sprintf(ErrExpectedName, describe(p.cur())))
		return nil
	}
	name := p.cur()
	p.nextToken()
	d := p.parseDeclRest(start, ts, ptr, name)
	if d == nil {
		return nil
	}
	return d
}

func (p *Parser) parseIf() Stmt {
	start := p.cur().Span
	p.nextToken()
	s := &IfStmt{}
	s.Cond = p.parseParenExpr()
	s.Then = p.parseStatement()
	if p.match(token.ELSE) {
		s.Else = p.parseStatement()
	}
	s.span = p.spanFrom(start)
	return s
}

func (p *Parser) parseFor() Stmt {
	start := p.cur().Span
	p.nextToken()
	s := &ForStmt{}
	if !p.expect(token.LPAREN) {
		return nil
	}
	switch {
	case p.match(token.SEMICOLON):
	case p.isTypeName(p.cur()):
		s.Init = p.parseLocalDecl()
	default:
		istart := p.cur().Span
		x := p.parseExpression()
		p.expect(token.SEMICOLON)
		s.Init = &ExprStmt{node: node{p.spanFrom(istart)}, X: x}
	}
	if !p.check(token.SEMICOLON) {
		s.Cond = p.parseExpression()
	}
	p.expect(token.SEMICOLON)
	if !p.check(token.RPAREN) {
		s.Post = p.parseExpression()
	}
	p.expect(token.RPAREN)
	s.Body = p.parseStatement()
	s.span = p.spanFrom(start)
	return s
}

func (p *Parser) parseParenExpr() Expr {
	if !p.expect(token.LPAREN) {
		return nil
	}
	x := p.parseExpression()
	p.expect(token.RPAREN)
	return x
}
