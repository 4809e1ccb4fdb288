package script

import (
	"fmt"
	"strconv"

	"github.com/leapstack-labs/leapglot/pkg/core"
	"github.com/leapstack-labs/leapglot/pkg/grammar"
	"github.com/leapstack-labs/leapglot/pkg/source"
	"github.com/leapstack-labs/leapglot/pkg/token"
)

// Grammar overview (Ruby subset):
//
//	program    → { statement (NEWLINE | ';') }
//	statement  → expr { ('if' | 'unless' | 'while' | 'until') expr }
//	expr       → Pratt parsing with grammar.Script precedence
//	primary    → literal | local | call | def | if | unless | while
//	           | until | return | next | break | yield | '(' expr ')'
//	call       → IDENT [ '(' args ')' | args ] [ block ]
//	block      → '{' [ '|' params '|' ] stmts '}' | 'do' [ '|' params '|' ] stmts 'end'
//
// A bare identifier that is not a known local is a call. It takes
// unparenthesized arguments when the next token on the same line starts an
// expression; for - * ** & ! ~ that requires a space before the operator
// and none after it.

// BlockAcceptor reports whether a receiverless call to name consumes a
// trailing block literal.
type BlockAcceptor func(name string) bool

type localScope struct {
	vars map[string]bool
	gate bool
}

// Parser parses a script token stream.
type Parser struct {
	buf     *source.Buffer
	toks    []token.Token
	pos     int
	prev    token.Token
	g       *grammar.Grammar
	accepts BlockAcceptor
	scopes  []*localScope
	defs    map[string]bool
	defList []string

	noDo      int       // inside a while/until condition
	callDepth int       // nesting of unparenthesized argument lists
	declined  *CallExpr // nearest call that passed on a trailing block

	errors []error
}

// NewParser creates a parser over toks, which must end with EOF. buf is
// used to re-lex string interpolation bodies; accepts may be nil, in which
// case every call accepts a block.
func NewParser(buf *source.Buffer, toks []token.Token, g *grammar.Grammar, accepts BlockAcceptor) *Parser {
	if g == nil {
		g = grammar.Script
	}
	if len(toks) == 0 || toks[len(toks)-1].Type != token.EOF {
		toks = append(toks[:len(toks):len(toks)], token.Token{Type: token.EOF, Grammar: token.Script})
	}
	return &Parser{
		buf:     buf,
		toks:    toks,
		g:       g,
		accepts: accepts,
		scopes:  []*localScope{{vars: map[string]bool{}, gate: true}},
		defs:    map[string]bool{},
	}
}

// Parse parses a script token stream into a Program. The first syntax error
// is returned as a *core.Error of kind KindParse.
func Parse(buf *source.Buffer, toks []token.Token, g *grammar.Grammar, accepts BlockAcceptor) (*Program, error) {
	p := NewParser(buf, toks, g, accepts)
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

func (p *Parser) nextToken() {
	p.prev = p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
}

func (p *Parser) check(t token.TokenType) bool {
	return p.cur().Type == t
}

func (p *Parser) checkAny(ts []token.TokenType) bool {
	for _, t := range ts {
		if p.check(t) {
			return true
		}
	}
	return false
}

func (p *Parser) match(t token.TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	return false
}

func (p *Parser) expect(t token.TokenType, what string) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	p.addError(p.cur().Span, fmt.Sprintf(ErrUnexpectedToken, describe(p.cur()), what))
	return false
}

func (p *Parser) failed() bool {
	return len(p.errors) > 0
}

func (p *Parser) addError(span token.Span, msg string) {
	p.errors = append(p.errors, core.Errorf(core.KindParse, token.Script, span, "%s", msg))
}

func (p *Parser) spanFrom(start token.Span) token.Span {
	return start.Join(p.prev.Span)
}

func (p *Parser) skipTerminators() {
	for p.check(token.NEWLINE) || p.check(token.SEMICOLON) {
		p.nextToken()
	}
}

func describe(t token.Token) string {
	switch t.Type {
	case token.EOF:
		return "end-of-input"
	case token.NEWLINE:
		return "end of line"
	}
	if t.Literal != "" {
		return strconv.Quote(t.Literal)
	}
	return t.Type.String()
}

// Common error messages
const (
	ErrUnexpectedToken = "unexpected %s, expecting %s"
	ErrExpectedExpr    = "unexpected %s, expecting expression"
	ErrExpectedName    = "unexpected %s, expecting identifier"
)

// ---------- Locals ----------

func (p *Parser) pushScope(gate bool) {
	p.scopes = append(p.scopes, &localScope{vars: map[string]bool{}, gate: gate})
}

func (p *Parser) popScope() {
	p.scopes = p.scopes[:len(p.scopes)-1]
}

func (p *Parser) declareLocal(name string) {
	p.scopes[len(p.scopes)-1].vars[name] = true
}

// isLocal reports whether name is a local variable visible here. Lookups
// stop at the nearest def scope.
func (p *Parser) isLocal(name string) bool {
	for i := len(p.scopes) - 1; i >= 0; i-- {
		s := p.scopes[i]
		if s.vars[name] {
			return true
		}
		if s.gate {
			return false
		}
	}
	return false
}

// enterGroup isolates block attachment inside parentheses, brackets and
// block bodies. The returned func restores the outer state.
func (p *Parser) enterGroup() func() {
	depth, declined, noDo := p.callDepth, p.declined, p.noDo
	p.callDepth, p.declined, p.noDo = 0, nil, 0
	return func() {
		p.callDepth, p.declined, p.noDo = depth, declined, noDo
	}
}

// ---------- Program & statements ----------

// ParseProgram parses the whole token stream.
func (p *Parser) ParseProgram() *Program {
	start := p.cur().Span
	prog := &Program{}
	prog.Stmts = p.parseStatements()
	if !p.failed() && !p.check(token.EOF) {
		p.addError(p.cur().Span, fmt.Sprintf(ErrUnexpectedToken, describe(p.cur()), "end-of-input"))
	}
	prog.span = start.Join(p.prev.Span)
	prog.Defs = p.defList
	return prog
}

// parseStatements parses statements until EOF or one of terms.
func (p *Parser) parseStatements(terms ...token.TokenType) []Node {
	var stmts []Node
	for !p.failed() {
		p.skipTerminators()
		if p.check(token.EOF) || p.checkAny(terms) {
			break
		}
		stmt := p.parseStatement()
		if stmt == nil {
			break
		}
		stmts = append(stmts, stmt)
		if !p.check(token.NEWLINE) && !p.check(token.SEMICOLON) && !p.check(token.EOF) && !p.checkAny(terms) {
			p.addError(p.cur().Span, fmt.Sprintf(ErrUnexpectedToken, describe(p.cur()), "end of statement"))
			break
		}
	}
	return stmts
}

// parseStatement parses an expression followed by modifiers.
func (p *Parser) parseStatement() Node {
	p.declined = nil
	defer func() { p.declined = nil }()

	x := p.parseExpr(grammar.ScriptPrecAndOr)
	if x == nil {
		return nil
	}
	for !p.failed() {
		tok := p.cur()
		switch tok.Type {
		case token.IF, grammar.TokenUnless:
			p.nextToken()
			cond := p.parseExpr(grammar.ScriptPrecAndOr)
			if cond == nil {
				return nil
			}
			x = &IfExpr{node: node{x.Span().Join(cond.Span())}, Cond: cond, Then: []Node{x},
				Unless: tok.Type == grammar.TokenUnless, Modifier: true}
		case token.WHILE, grammar.TokenUntil:
			p.nextToken()
			cond := p.parseExpr(grammar.ScriptPrecAndOr)
			if cond == nil {
				return nil
			}
			x = &WhileExpr{node: node{x.Span().Join(cond.Span())}, Cond: cond, Body: []Node{x},
				Until: tok.Type == grammar.TokenUntil, Modifier: true}
		default:
			return x
		}
	}
	return nil
}

func (p *Parser) parseDef() Node {
	start := p.cur().Span
	p.nextToken() // def

	nameTok := p.cur()
	if nameTok.Type != token.IDENT {
		p.addError(nameTok.Span, fmt.Sprintf(ErrExpectedName, describe(nameTok)))
		return nil
	}
	p.nextToken()
	name := nameTok.Literal
	if !p.defs[name] {
		p.defList = append(p.defList, name)
	}
	p.defs[name] = true

	p.pushScope(true)
	defer p.popScope()

	var params []Param
	switch {
	case p.check(token.LPAREN):
		p.nextToken()
		params = p.parseParams(token.RPAREN)
		if !p.expect(token.RPAREN, "')'") {
			return nil
		}
	case !p.check(token.NEWLINE) && !p.check(token.SEMICOLON):
		params = p.parseParams(token.NEWLINE)
	}
	if p.failed() {
		return nil
	}

	body := p.parseStatements(grammar.TokenEnd)
	if !p.expect(grammar.TokenEnd, "'end'") {
		return nil
	}
	return &DefStmt{
		node:           node{p.spanFrom(start)},
		Name:           name,
		Params:         params,
		Body:           body,
		SelfRedefining: isSelfRedefining(name, body),
	}
}

// isSelfRedefining matches a body of exactly `define_method(:name, &blk)`.
func isSelfRedefining(name string, body []Node) bool {
	if len(body) != 1 {
		return false
	}
	call, ok := body[0].(*CallExpr)
	if !ok || call.Receiver != nil || call.Name != "define_method" || len(call.Args) == 0 {
		return false
	}
	sym, ok := call.Args[0].(*SymbolLit)
	return ok && sym.Name == name && call.BlockArg() != nil
}

// parseParams parses a parameter list up to (not including) closing.
func (p *Parser) parseParams(closing token.TokenType) []Param {
	var params []Param
	for !p.failed() && !p.check(closing) {
		var prm Param
		switch {
		case p.match(token.STAR):
			prm.Splat = true
		case p.match(token.POW):
			prm.DoubleSplat = true
		case p.match(token.AMP):
			prm.Block = true
		}
		tok := p.cur()
		switch {
		case tok.Type == token.IDENT:
			prm.Name = tok.Literal
			p.nextToken()
		case prm.Splat && (tok.Type == token.COMMA || tok.Type == closing):
			// anonymous splat
		default:
			p.addError(tok.Span, fmt.Sprintf(ErrExpectedName, describe(tok)))
			return nil
		}
		if p.check(token.ASSIGN) {
			p.addError(p.cur().Span, "default parameter values are not supported")
			return nil
		}
		if prm.Name != "" {
			p.declareLocal(prm.Name)
		}
		params = append(params, prm)
		if !p.match(token.COMMA) {
			break
		}
	}
	return params
}

func (p *Parser) parseIf() Node {
	tok := p.cur()
	p.nextToken()
	unless := tok.Type == grammar.TokenUnless

	cond := p.parseExpr(grammar.ScriptPrecAndOr)
	if cond == nil {
		return nil
	}
	p.match(grammar.TokenThen)
	n := &IfExpr{Cond: cond, Unless: unless}
	n.Then = p.parseStatements(token.ELSE, grammar.TokenElsif, grammar.TokenEnd)
	if p.failed() {
		return nil
	}

	switch {
	case !unless && p.check(grammar.TokenElsif):
		nested := p.parseIf()
		if nested == nil {
			return nil
		}
		n.Else = []Node{nested}
	case p.match(token.ELSE):
		n.Else = p.parseStatements(grammar.TokenEnd)
		if !p.expect(grammar.TokenEnd, "'end'") {
			return nil
		}
	default:
		if !p.expect(grammar.TokenEnd, "'end'") {
			return nil
		}
	}
	n.span = p.spanFrom(tok.Span)
	return n
}

func (p *Parser) parseWhile() Node {
	tok := p.cur()
	p.nextToken()

	p.noDo++
	cond := p.parseExpr(grammar.ScriptPrecAndOr)
	p.noDo--
	if cond == nil {
		return nil
	}
	p.match(token.DO)
	body := p.parseStatements(grammar.TokenEnd)
	if !p.expect(grammar.TokenEnd, "'end'") {
		return nil
	}
	return &WhileExpr{node: node{p.spanFrom(tok.Span)}, Cond: cond, Body: body, Until: tok.Type == grammar.TokenUntil}
}

// parseJumpValue parses the optional value of return, next and break.
func (p *Parser) parseJumpValue() (Node, bool) {
	if !p.startsExpression(p.cur()) || p.cur().NewlineBefore {
		return nil, true
	}
	v := p.parseExpr(grammar.ScriptPrecAssign)
	return v, v != nil
}

// startsExpression reports whether t can begin an operand.
func (p *Parser) startsExpression(t token.Token) bool {
	switch t.Type {
	case token.IDENT, token.GVAR, token.INT, token.FLOAT, token.STRING, token.DSTRING,
		token.SYMBOL, token.REGEX, token.LPAREN, token.LBRACKET, token.MINUS, token.PLUS,
		token.BANG, token.TILDE, grammar.TokenNil, grammar.TokenTrue, grammar.TokenFalse,
		grammar.TokenNot, grammar.TokenYield:
		return true
	}
	return false
}

// ---------- Blocks ----------

func (p *Parser) blockAccepted(call *CallExpr) bool {
	if call.Receiver != nil || p.defs[call.Name] || p.accepts == nil {
		return true
	}
	return p.accepts(call.Name)
}

func (p *Parser) atBlock() bool {
	return p.check(token.LBRACE) || (p.check(token.DO) && p.noDo == 0)
}

// maybeBlock attaches a trailing block to call, or leaves it for an
// enclosing call when call does not accept one. The outermost call takes a
// block nobody accepted on behalf of the nearest call that declined it.
func (p *Parser) maybeBlock(call *CallExpr) {
	if call.Block != nil || !p.atBlock() {
		return
	}
	accepted := p.blockAccepted(call)
	if !accepted && p.callDepth > 0 {
		if p.declined == nil {
			p.declined = call
		}
		return
	}
	target := call
	if !accepted && p.declined != nil {
		target = p.declined
	}
	p.declined = nil
	blk := p.parseBlock()
	if blk == nil {
		return
	}
	target.Block = blk
	target.span = target.span.Join(blk.Span())
	if target != call {
		call.span = call.span.Join(blk.Span())
	}
}

func (p *Parser) parseBlock() *BlockLit {
	open := p.cur()
	p.nextToken()
	closing := grammar.TokenEnd
	if open.Type == token.LBRACE {
		closing = token.RBRACE
	}

	restore := p.enterGroup()
	defer restore()
	p.pushScope(false)
	defer p.popScope()

	blk := &BlockLit{Braces: open.Type == token.LBRACE}
	switch {
	case p.match(token.OR_OR):
	case p.match(token.PIPE):
		blk.Params = p.parseParams(token.PIPE)
		if !p.expect(token.PIPE, "'|'") {
			return nil
		}
	}
	blk.Body = p.parseStatements(closing)
	if p.failed() {
		return nil
	}
	want := "'end'"
	if closing == token.RBRACE {
		want = "'}'"
	}
	if !p.expect(closing, want) {
		return nil
	}
	blk.span = p.spanFrom(open.Span)
	return blk
}
