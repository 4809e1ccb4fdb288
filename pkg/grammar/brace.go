package grammar

import "github.com/leapstack-labs/leapglot/pkg/token"

// Keyword tokens only the brace grammar reserves.
var (
	TokenFor      = token.Register("for")
	TokenContinue = token.Register("continue")
)

// Brace binding powers, loosest first. Bitwise operators bind looser than
// equality, unlike in the script grammar.
const (
	BracePrecAssign = iota + 1
	BracePrecTernary
	BracePrecOrOr
	BracePrecAndAnd
	BracePrecBitOr
	BracePrecBitXor
	BracePrecBitAnd
	BracePrecEquality
	BracePrecRelational
	BracePrecShift
	BracePrecAdditive
	BracePrecMultiplicative
	BracePrecUnary
	BracePrecPostfix
)

// Brace is grammar A: statically typed, brace-delimited, preprocessor-driven.
var Brace = New("brace", token.Brace).
	Describe("C subset: declarations, functions, printf, preprocessor macros").
	AddKeyword("if", token.IF).
	AddKeyword("else", token.ELSE).
	AddKeyword("while", token.WHILE).
	AddKeyword("do", token.DO).
	AddKeyword("return", token.RETURN).
	AddKeyword("break", token.BREAK).
	AddKeyword("for", TokenFor).
	AddKeyword("continue", TokenContinue).
	AddRightInfix(token.ASSIGN, BracePrecAssign).
	AddRightInfix(token.PLUS_ASSIGN, BracePrecAssign).
	AddRightInfix(token.MINUS_ASSIGN, BracePrecAssign).
	AddRightInfix(token.STAR_ASSIGN, BracePrecAssign).
	AddRightInfix(token.SLASH_ASSIGN, BracePrecAssign).
	AddRightInfix(token.PERCENT_ASSIGN, BracePrecAssign).
	AddRightInfix(token.QUESTION, BracePrecTernary).
	AddInfix(token.OR_OR, BracePrecOrOr).
	AddInfix(token.AND_AND, BracePrecAndAnd).
	AddInfix(token.PIPE, BracePrecBitOr).
	AddInfix(token.CARET, BracePrecBitXor).
	AddInfix(token.AMP, BracePrecBitAnd).
	AddInfix(token.EQ, BracePrecEquality).
	AddInfix(token.NE, BracePrecEquality).
	AddInfix(token.LT, BracePrecRelational).
	AddInfix(token.GT, BracePrecRelational).
	AddInfix(token.LE, BracePrecRelational).
	AddInfix(token.GE, BracePrecRelational).
	AddInfix(token.SHL, BracePrecShift).
	AddInfix(token.SHR, BracePrecShift).
	AddInfix(token.PLUS, BracePrecAdditive).
	AddInfix(token.MINUS, BracePrecAdditive).
	AddInfix(token.STAR, BracePrecMultiplicative).
	AddInfix(token.SLASH, BracePrecMultiplicative).
	AddInfix(token.PERCENT, BracePrecMultiplicative).
	AddInfix(token.LPAREN, BracePrecPostfix).
	AddInfix(token.LBRACKET, BracePrecPostfix).
	AddInfix(token.INC, BracePrecPostfix).
	AddInfix(token.DEC, BracePrecPostfix).
	AddPrefix(token.MINUS, BracePrecUnary).
	AddPrefix(token.PLUS, BracePrecUnary).
	AddPrefix(token.BANG, BracePrecUnary).
	AddPrefix(token.TILDE, BracePrecUnary).
	AddPrefix(token.STAR, BracePrecUnary).
	AddPrefix(token.AMP, BracePrecUnary).
	AddPrefix(token.INC, BracePrecUnary).
	AddPrefix(token.DEC, BracePrecUnary).
	WithTypeNames("int", "char", "void", "long", "short", "unsigned", "signed",
		"float", "double", "const", "static", "extern", "register", "volatile").
	WithBuiltins("printf", "puts", "putchar").
	Build()

func init() {
	Register(Brace)
}
