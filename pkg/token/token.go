// Package token defines the tokens shared by the brace and script front ends.
//
// Tokens that both grammars agree on (punctuation, operators, literals and a
// handful of keywords) are constants with IDs below 1000 so parsers can switch
// on them cheaply. Keywords that only one grammar knows are registered
// dynamically via Register() from pkg/grammar.
package token

import "fmt"

// TokenType represents the type of a lexical token.
//
//nolint:revive // Accept stutter as token.TokenType is clear and widely used
type TokenType int32

//nolint:revive // ALL_CAPS names follow the usual token naming convention
const (
	// Special tokens
	EOF TokenType = iota
	ILLEGAL
	NEWLINE // statement terminator (script grammar only)

	// Literals
	IDENT     // identifier
	GVAR      // $global
	INT       // 123, 0x1f
	FLOAT     // 1.5
	STRING    // "hello" or 'hello' in the script grammar
	DSTRING   // "a #{b}" interpolated string (script grammar only)
	CHAR      // 'a' in the brace grammar
	REGEX     // /.../ in the script grammar
	SYMBOL    // :name
	DIRECTIVE // #define ... in the brace grammar

	// Operators
	PLUS           // +
	MINUS          // -
	STAR           // *
	SLASH          // /
	PERCENT        // %
	POW            // ** (script grammar only)
	ASSIGN         // =
	PLUS_ASSIGN    // +=
	MINUS_ASSIGN   // -=
	STAR_ASSIGN    // *=
	SLASH_ASSIGN   // /=
	PERCENT_ASSIGN // %=
	EQ             // ==
	NE             // !=
	LT             // <
	GT             // >
	LE             // <=
	GE             // >=
	AND_AND        // &&
	OR_OR          // ||
	BANG           // !
	AMP            // &
	PIPE           // |
	CARET          // ^
	TILDE          // ~
	SHL            // <<
	SHR            // >>
	INC            // ++
	DEC            // --
	ARROW          // ->
	QUESTION       // ?
	COLON          // :
	DCOLON         // ::
	SEMICOLON      // ;
	COMMA          // ,
	DOT            // .
	LPAREN         // (
	RPAREN         // )
	LBRACE         // {
	RBRACE         // }
	LBRACKET       // [
	RBRACKET       // ]

	// Keywords both grammars spell the same way
	IF
	ELSE
	WHILE
	DO
	RETURN
	BREAK

	// Sentinel - dynamic tokens start after this
	maxBuiltin TokenType = 999
)

// String returns a human-readable representation of the token type.
func (t TokenType) String() string {
	if name, ok := getDynamicName(t); ok {
		return name
	}
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TOKEN(%d)", t)
}

// IsAssign reports whether t is plain or compound assignment.
func (t TokenType) IsAssign() bool {
	switch t {
	case ASSIGN, PLUS_ASSIGN, MINUS_ASSIGN, STAR_ASSIGN, SLASH_ASSIGN, PERCENT_ASSIGN:
		return true
	}
	return false
}

// BinaryOf returns the arithmetic operator behind a compound assignment.
// Plain assignment and non-assignment tokens return ILLEGAL.
func (t TokenType) BinaryOf() TokenType {
	switch t {
	case PLUS_ASSIGN:
		return PLUS
	case MINUS_ASSIGN:
		return MINUS
	case STAR_ASSIGN:
		return STAR
	case SLASH_ASSIGN:
		return SLASH
	case PERCENT_ASSIGN:
		return PERCENT
	}
	return ILLEGAL
}

// tokenNames maps builtin token types to their string representations.
var tokenNames = map[TokenType]string{
	EOF:     "EOF",
	ILLEGAL: "ILLEGAL",
	NEWLINE: "NEWLINE",

	IDENT:     "IDENT",
	GVAR:      "GVAR",
	INT:       "INT",
	FLOAT:     "FLOAT",
	STRING:    "STRING",
	DSTRING:   "DSTRING",
	CHAR:      "CHAR",
	REGEX:     "REGEX",
	SYMBOL:    "SYMBOL",
	DIRECTIVE: "DIRECTIVE",

	PLUS:           "+",
	MINUS:          "-",
	STAR:           "*",
	SLASH:          "/",
	PERCENT:        "%",
	POW:            "**",
	ASSIGN:         "=",
	PLUS_ASSIGN:    "+=",
	MINUS_ASSIGN:   "-=",
	STAR_ASSIGN:    "*=",
	SLASH_ASSIGN:   "/=",
	PERCENT_ASSIGN: "%=",
	EQ:             "==",
	NE:             "!=",
	LT:             "<",
	GT:             ">",
	LE:             "<=",
	GE:             ">=",
	AND_AND:        "&&",
	OR_OR:          "||",
	BANG:           "!",
	AMP:            "&",
	PIPE:           "|",
	CARET:          "^",
	TILDE:          "~",
	SHL:            "<<",
	SHR:            ">>",
	INC:            "++",
	DEC:            "--",
	ARROW:          "->",
	QUESTION:       "?",
	COLON:          ":",
	DCOLON:         "::",
	SEMICOLON:      ";",
	COMMA:          ",",
	DOT:            ".",
	LPAREN:         "(",
	RPAREN:         ")",
	LBRACE:         "{",
	RBRACE:         "}",
	LBRACKET:       "[",
	RBRACKET:       "]",

	IF:     "if",
	ELSE:   "else",
	WHILE:  "while",
	DO:     "do",
	RETURN: "return",
	BREAK:  "break",
}

// sharedKeywords maps keyword spellings common to both grammars.
var sharedKeywords = map[string]TokenType{
	"if":     IF,
	"else":   ELSE,
	"while":  WHILE,
	"do":     DO,
	"return": RETURN,
	"break":  BREAK,
}

// LookupShared returns the shared keyword token for name, or IDENT.
func LookupShared(name string) TokenType {
	if t, ok := sharedKeywords[name]; ok {
		return t
	}
	return IDENT
}

// Token is a lexical token tagged with the grammar that produced it.
//
// The same byte range may be classified differently by each grammar, so a
// token is only meaningful together with its Grammar.
type Token struct {
	Type    TokenType `json:"type"`
	Literal string    `json:"literal"`
	Span    Span      `json:"span"`
	Grammar Grammar   `json:"grammar"`

	// SpaceBefore is true when whitespace separates this token from the
	// previous one. The script parser uses it to tell `foo -1` from `foo - 1`.
	SpaceBefore bool `json:"space_before,omitempty"`
	// NewlineBefore is true when a line break precedes the token.
	NewlineBefore bool `json:"newline_before,omitempty"`

	// Origin points at the replacement text inside a #define when the token
	// was produced by macro expansion. Span is then the invocation span.
	Origin *Span `json:"origin,omitempty"`
}

// String returns a debug representation of the token.
func (t Token) String() string {
	if t.Literal == "" || t.Literal == t.Type.String() {
		return t.Type.String()
	}
	return fmt.Sprintf("%s(%q)", t.Type, t.Literal)
}

// Is reports whether the token has the given type.
func (t Token) Is(tt TokenType) bool {
	return t.Type == tt
}

// Expanded reports whether the token came from a macro replacement.
func (t Token) Expanded() bool {
	return t.Origin != nil
}
