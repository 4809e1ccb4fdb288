// Package script implements the script grammar front end: a Ruby-subset
// lexer, AST and parser.
//
// Every construct is an expression, so the AST has a single Node family.
// Nodes share nothing with the brace AST except token.Span.
package script

import "github.com/leapstack-labs/leapglot/pkg/token"

// Node is the base interface for all script AST nodes.
type Node interface {
	Span() token.Span
}

type node struct {
	span token.Span
}

// Span implements Node.
func (n *node) Span() token.Span { return n.span }

// Program is a parsed script.
type Program struct {
	node
	Stmts []Node
	// Defs lists the method names defined anywhere in the program.
	Defs []string
}

// ---------- Definitions & control flow ----------

// Param is a method or block parameter.
type Param struct {
	Name        string
	Splat       bool // *args
	DoubleSplat bool // **opts
	Block       bool // &blk
}

func (p Param) String() string {
	switch {
	case p.Splat:
		return "*" + p.Name
	case p.DoubleSplat:
		return "**" + p.Name
	case p.Block:
		return "&" + p.Name
	}
	return p.Name
}

// DefStmt is `def name(params) ... end`.
type DefStmt struct {
	node
	Name   string
	Params []Param
	Body   []Node
	// SelfRedefining is set when the body only re-binds the method to its
	// block argument with define_method(:name, &blk).
	SelfRedefining bool
}

// IfExpr is `if`/`unless`, as a statement or a modifier. elsif chains nest
// in Else.
type IfExpr struct {
	node
	Cond     Node
	Then     []Node
	Else     []Node
	Unless   bool
	Modifier bool
}

// WhileExpr is `while`/`until`, as a statement or a modifier.
type WhileExpr struct {
	node
	Cond     Node
	Body     []Node
	Until    bool
	Modifier bool
}

// ReturnStmt is `return [value]`.
type ReturnStmt struct {
	node
	Value Node
}

// NextStmt is `next [value]`.
type NextStmt struct {
	node
	Value Node
}

// BreakStmt is `break [value]`.
type BreakStmt struct {
	node
	Value Node
}

// ---------- Literals & names ----------

// Ident is a local variable reference.
type Ident struct {
	node
	Name string
}

// GlobalVar is a `$name` reference.
type GlobalVar struct {
	node
	Name string
}

// IntLit is an integer literal.
type IntLit struct {
	node
	Value int64
}

// FloatLit is a float literal.
type FloatLit struct {
	node
	Value float64
}

// StringLit is a string literal with escapes decoded.
type StringLit struct {
	node
	Value string
}

// InterpString is a double-quoted string with #{...} parts. Parts are
// *StringLit pieces and interpolated expressions.
type InterpString struct {
	node
	Parts []Node
}

// SymbolLit is `:name`.
type SymbolLit struct {
	node
	Name string
}

// RegexLit is `/source/`.
type RegexLit struct {
	node
	Source string
}

// NilLit is `nil`.
type NilLit struct{ node }

// BoolLit is `true` or `false`.
type BoolLit struct {
	node
	Value bool
}

// ArrayLit is `[a, b]`.
type ArrayLit struct {
	node
	Elems []Node
}

// ---------- Operators ----------

// UnaryExpr is a prefix operator: - + ! ~ not.
type UnaryExpr struct {
	node
	Op token.TokenType
	X  Node
}

// BinaryExpr is an infix operator, including && || and or.
type BinaryExpr struct {
	node
	Op    token.TokenType
	Left  Node
	Right Node
}

// AssignExpr is `target = value` or a compound assignment. Target is an
// *Ident, *GlobalVar or *IndexExpr.
type AssignExpr struct {
	node
	Op     token.TokenType
	Target Node
	Value  Node
}

// CondExpr is `cond ? a : b`.
type CondExpr struct {
	node
	Cond Node
	Then Node
	Else Node
}

// IndexExpr is `x[i]`.
type IndexExpr struct {
	node
	X     Node
	Index Node
}

// SplatExpr is `*x` in an argument list.
type SplatExpr struct {
	node
	X Node
}

// DoubleSplatExpr is `**x` in an argument list.
type DoubleSplatExpr struct {
	node
	X Node
}

// BlockPass is `&blk` in an argument list.
type BlockPass struct {
	node
	X Node
}

// ---------- Calls & blocks ----------

// CallExpr is a method call, with or without a receiver.
type CallExpr struct {
	node
	Receiver Node // nil for receiverless calls
	Name     string
	Args     []Node
	Block    *BlockLit
	Parens   bool // arguments written in parentheses
	Command  bool // arguments written without parentheses
}

// BlockArg returns the &blk argument, if any.
func (c *CallExpr) BlockArg() *BlockPass {
	for _, a := range c.Args {
		if bp, ok := a.(*BlockPass); ok {
			return bp
		}
	}
	return nil
}

// BlockLit is `{ |params| ... }` or `do |params| ... end`.
type BlockLit struct {
	node
	Params []Param
	Body   []Node
	Braces bool
}

// YieldExpr is `yield [args]`.
type YieldExpr struct {
	node
	Args []Node
}
