// Package brace implements the brace grammar front end: a C-subset lexer,
// AST and parser.
//
// The lexer runs before the preprocessor and never classifies keywords;
// the parser consumes the preprocessed token stream and classifies words
// with pkg/grammar.Brace.
package brace

import "github.com/leapstack-labs/leapglot/pkg/token"

// Node is the base interface for all brace AST nodes.
type Node interface {
	// Span returns the source range of the node. For nodes produced from
	// macro expansion this is the invocation range.
	Span() token.Span
}

// Expr is a marker interface for expression nodes.
type Expr interface {
	Node
	exprNode()
}

// Stmt is a marker interface for statement nodes.
type Stmt interface {
	Node
	stmtNode()
}

type node struct {
	span token.Span
}

// Span implements Node.
func (n *node) Span() token.Span { return n.span }

// ---------- Program ----------

// Program is a translation unit: global declarations and functions in
// source order.
type Program struct {
	node
	Items []Node // *DeclStmt or *FuncDecl
}

// Funcs returns the function definitions (prototypes excluded).
func (p *Program) Funcs() []*FuncDecl {
	var out []*FuncDecl
	for _, it := range p.Items {
		if f, ok := it.(*FuncDecl); ok && f.Body != nil {
			out = append(out, f)
		}
	}
	return out
}

// Func returns the definition of the named function.
func (p *Program) Func(name string) (*FuncDecl, bool) {
	for _, f := range p.Funcs() {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// Globals returns the global declarations.
func (p *Program) Globals() []*DeclStmt {
	var out []*DeclStmt
	for _, it := range p.Items {
		if d, ok := it.(*DeclStmt); ok {
			out = append(out, d)
		}
	}
	return out
}

// TypeSpec is a declaration's type, e.g. "unsigned int".
type TypeSpec struct {
	Names []string
}

// String joins the type words.
func (t TypeSpec) String() string {
	s := ""
	for i, n := range t.Names {
		if i > 0 {
			s += " "
		}
		s += n
	}
	return s
}

// Declarator is one name in a declaration: `*p = &x`, `buf[10]`.
type Declarator struct {
	node
	Name      string
	Pointer   int
	Array     bool
	ArraySize Expr
	Init      Expr
}

// FuncDecl is a function definition or prototype (Body == nil).
type FuncDecl struct {
	node
	Type    TypeSpec
	Pointer int
	Name    string
	Params  []*Param
	Body    *Block
}

func (*FuncDecl) stmtNode() {}

// Param is a function parameter.
type Param struct {
	Type    TypeSpec
	Pointer int
	Name    string
	Array   bool
}

// ---------- Statements ----------

// DeclStmt declares one or more variables of one type.
type DeclStmt struct {
	node
	Type  TypeSpec
	Decls []*Declarator
}

// Block is a brace-delimited compound statement.
type Block struct {
	node
	Stmts []Stmt
}

// IfStmt is if/else. An unbraced branch is exactly one statement.
type IfStmt struct {
	node
	Cond Expr
	Then Stmt
	Else Stmt
}

// WhileStmt is a while loop.
type WhileStmt struct {
	node
	Cond Expr
	Body Stmt
}

// DoWhileStmt is a do/while loop.
type DoWhileStmt struct {
	node
	Body Stmt
	Cond Expr
}

// ForStmt is a for loop. Init is a *DeclStmt, an *ExprStmt or nil.
type ForStmt struct {
	node
	Init Stmt
	Cond Expr
	Post Expr
	Body Stmt
}

// ReturnStmt returns from the enclosing function.
type ReturnStmt struct {
	node
	Value Expr
}

// BreakStmt exits the innermost loop.
type BreakStmt struct{ node }

// ContinueStmt starts the next iteration of the innermost loop.
type ContinueStmt struct{ node }

// ExprStmt evaluates an expression for its effects.
type ExprStmt struct {
	node
	X Expr
}

// EmptyStmt is a lone semicolon.
type EmptyStmt struct{ node }

func (*DeclStmt) stmtNode()     {}
func (*Block) stmtNode()        {}
func (*IfStmt) stmtNode()       {}
func (*WhileStmt) stmtNode()    {}
func (*DoWhileStmt) stmtNode()  {}
func (*ForStmt) stmtNode()      {}
func (*ReturnStmt) stmtNode()   {}
func (*BreakStmt) stmtNode()    {}
func (*ContinueStmt) stmtNode() {}
func (*ExprStmt) stmtNode()     {}
func (*EmptyStmt) stmtNode()    {}

// ---------- Expressions ----------

// Ident is a variable or function name.
type Ident struct {
	node
	Name string
}

// IntLit is an integer literal.
type IntLit struct {
	node
	Value int64
}

// FloatLit is a floating literal.
type FloatLit struct {
	node
	Value float64
}

// CharLit is a character literal; its value is an integer.
type CharLit struct {
	node
	Value int64
}

// StringLit is one or more adjacent string literals, concatenated.
type StringLit struct {
	node
	Value string
}

// UnaryExpr is a prefix operator: - + ! ~ * & ++ --.
type UnaryExpr struct {
	node
	Op token.TokenType
	X  Expr
}

// PostfixExpr is x++ or x--.
type PostfixExpr struct {
	node
	Op token.TokenType
	X  Expr
}

// BinaryExpr is an infix operator, including && and ||.
type BinaryExpr struct {
	node
	Op    token.TokenType
	Left  Expr
	Right Expr
}

// AssignExpr is plain or compound assignment.
type AssignExpr struct {
	node
	Op     token.TokenType
	Target Expr
	Value  Expr
}

// CondExpr is c ? a : b.
type CondExpr struct {
	node
	Cond Expr
	Then Expr
	Else Expr
}

// CallExpr is a function call.
type CallExpr struct {
	node
	Fun  Expr
	Args []Expr
}

// IndexExpr is x[i].
type IndexExpr struct {
	node
	X     Expr
	Index Expr
}

// CastExpr is (type)x.
type CastExpr struct {
	node
	Type    TypeSpec
	Pointer int
	X       Expr
}

func (*Ident) exprNode()       {}
func (*IntLit) exprNode()      {}
func (*FloatLit) exprNode()    {}
func (*CharLit) exprNode()     {}
func (*StringLit) exprNode()   {}
func (*UnaryExpr) exprNode()   {}
func (*PostfixExpr) exprNode() {}
func (*BinaryExpr) exprNode()  {}
func (*AssignExpr) exprNode()  {}
func (*CondExpr) exprNode()    {}
func (*CallExpr) exprNode()    {}
func (*IndexExpr) exprNode()   {}
func (*CastExpr) exprNode()    {}
