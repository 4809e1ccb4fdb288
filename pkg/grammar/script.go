package grammar

import "github.com/leapstack-labs/leapglot/pkg/token"

// Keyword tokens only the script grammar reserves.
var (
	TokenDef    = token.Register("def")
	TokenEnd    = token.Register("end")
	TokenElsif  = token.Register("elsif")
	TokenUnless = token.Register("unless")
	TokenUntil  = token.Register("until")
	TokenThen   = token.Register("then")
	TokenNext   = token.Register("next")
	TokenYield  = token.Register("yield")
	TokenNil    = token.Register("nil")
	TokenTrue   = token.Register("true")
	TokenFalse  = token.Register("false")
	TokenAnd    = token.Register("and")
	TokenOr     = token.Register("or")
	TokenNot    = token.Register("not")
)

// Script binding powers, loosest first. `**` binds tighter than unary minus
// and bitwise operators bind tighter than comparisons.
const (
	ScriptPrecAndOr = iota + 1
	ScriptPrecNot
	ScriptPrecAssign
	ScriptPrecTernary
	ScriptPrecOrOr
	ScriptPrecAndAnd
	ScriptPrecEquality
	ScriptPrecRelational
	ScriptPrecBitOr
	ScriptPrecBitAnd
	ScriptPrecShift
	ScriptPrecAdditive
	ScriptPrecMultiplicative
	ScriptPrecUnaryMinus
	ScriptPrecPower
	ScriptPrecBang
	ScriptPrecPostfix
)

// Script is grammar B: dynamically typed, block-oriented, optional parentheses.
var Script = New("script", token.Script).
	Describe("Ruby subset: command calls, blocks, yield, define_method, globals").
	AddKeyword("if", token.IF).
	AddKeyword("else", token.ELSE).
	AddKeyword("while", token.WHILE).
	AddKeyword("do", token.DO).
	AddKeyword("return", token.RETURN).
	AddKeyword("break", token.BREAK).
	AddKeyword("def", TokenDef).
	AddKeyword("end", TokenEnd).
	AddKeyword("elsif", TokenElsif).
	AddKeyword("unless", TokenUnless).
	AddKeyword("until", TokenUntil).
	AddKeyword("then", TokenThen).
	AddKeyword("next", TokenNext).
	AddKeyword("yield", TokenYield).
	AddKeyword("nil", TokenNil).
	AddKeyword("true", TokenTrue).
	AddKeyword("false", TokenFalse).
	AddKeyword("and", TokenAnd).
	AddKeyword("or", TokenOr).
	AddKeyword("not", TokenNot).
	AddInfix(TokenAnd, ScriptPrecAndOr).
	AddInfix(TokenOr, ScriptPrecAndOr).
	AddRightInfix(token.ASSIGN, ScriptPrecAssign).
	AddRightInfix(token.PLUS_ASSIGN, ScriptPrecAssign).
	AddRightInfix(token.MINUS_ASSIGN, ScriptPrecAssign).
	AddRightInfix(token.STAR_ASSIGN, ScriptPrecAssign).
	AddRightInfix(token.SLASH_ASSIGN, ScriptPrecAssign).
	AddRightInfix(token.PERCENT_ASSIGN, ScriptPrecAssign).
	AddRightInfix(token.QUESTION, ScriptPrecTernary).
	AddInfix(token.OR_OR, ScriptPrecOrOr).
	AddInfix(token.AND_AND, ScriptPrecAndAnd).
	AddInfix(token.EQ, ScriptPrecEquality).
	AddInfix(token.NE, ScriptPrecEquality).
	AddInfix(token.LT, ScriptPrecRelational).
	AddInfix(token.GT, ScriptPrecRelational).
	AddInfix(token.LE, ScriptPrecRelational).
	AddInfix(token.GE, ScriptPrecRelational).
	AddInfix(token.PIPE, ScriptPrecBitOr).
	AddInfix(token.CARET, ScriptPrecBitOr).
	AddInfix(token.AMP, ScriptPrecBitAnd).
	AddInfix(token.SHL, ScriptPrecShift).
	AddInfix(token.SHR, ScriptPrecShift).
	AddInfix(token.PLUS, ScriptPrecAdditive).
	AddInfix(token.MINUS, ScriptPrecAdditive).
	AddInfix(token.STAR, ScriptPrecMultiplicative).
	AddInfix(token.SLASH, ScriptPrecMultiplicative).
	AddInfix(token.PERCENT, ScriptPrecMultiplicative).
	AddRightInfix(token.POW, ScriptPrecPower).
	AddInfix(token.DOT, ScriptPrecPostfix).
	AddInfix(token.DCOLON, ScriptPrecPostfix).
	AddInfix(token.LBRACKET, ScriptPrecPostfix).
	AddInfix(token.LPAREN, ScriptPrecPostfix).
	AddPrefix(TokenNot, ScriptPrecNot).
	AddPrefix(token.MINUS, ScriptPrecUnaryMinus).
	AddPrefix(token.PLUS, ScriptPrecBang).
	AddPrefix(token.BANG, ScriptPrecBang).
	AddPrefix(token.TILDE, ScriptPrecBang).
	WithBuiltins("puts", "print", "printf", "p", "format", "sprintf",
		"define_method", "block_given?", "lambda", "proc").
	Build()

func init() {
	Register(Script)
}
