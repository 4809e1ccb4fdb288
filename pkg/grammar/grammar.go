// Package grammar describes the two grammars a polyglot source is read under.
//
// A Grammar is pure configuration: which words are keywords, how tightly each
// operator binds, and which words name types. The brace and script parsers
// consult it instead of hard-coding tables, so operators whose precedence
// differs between the grammars (`&` vs `==`, `**` vs unary minus) are parsed
// independently per grammar. Concrete grammars are registered from this
// package's init().
package grammar

import (
	"sort"

	"github.com/leapstack-labs/leapglot/pkg/token"
)

// Grammar is an immutable grammar definition built with Builder.
type Grammar struct {
	Name        string
	Tag         token.Grammar
	Description string

	keywords   map[string]token.TokenType
	precedence map[token.TokenType]int
	prefix     map[token.TokenType]int
	rightAssoc map[token.TokenType]bool
	typeNames  map[string]struct{}
	builtins   map[string]struct{}
}

// LookupKeyword returns the keyword token for an identifier spelling.
// Returns IDENT and false for ordinary identifiers.
func (g *Grammar) LookupKeyword(name string) (token.TokenType, bool) {
	if t, ok := g.keywords[name]; ok {
		return t, true
	}
	return token.IDENT, false
}

// Classify rewrites an IDENT token into a keyword token when the grammar
// reserves its spelling. Other tokens are returned unchanged.
func (g *Grammar) Classify(tok token.Token) token.Token {
	if tok.Type != token.IDENT {
		return tok
	}
	if t, ok := g.keywords[tok.Literal]; ok {
		tok.Type = t
	}
	return tok
}

// Precedence returns the binding power of t as an infix operator, or 0.
func (g *Grammar) Precedence(t token.TokenType) int {
	return g.precedence[t]
}

// PrefixPrecedence returns the binding power of t as a prefix operator, or 0.
func (g *Grammar) PrefixPrecedence(t token.TokenType) int {
	return g.prefix[t]
}

// IsRightAssoc reports whether the infix operator t associates to the right.
func (g *Grammar) IsRightAssoc(t token.TokenType) bool {
	return g.rightAssoc[t]
}

// IsTypeName reports whether name starts a declaration.
func (g *Grammar) IsTypeName(name string) bool {
	_, ok := g.typeNames[name]
	return ok
}

// IsBuiltin reports whether name is a function the grammar's runtime provides.
func (g *Grammar) IsBuiltin(name string) bool {
	_, ok := g.builtins[name]
	return ok
}

// Keywords returns the sorted keyword spellings.
func (g *Grammar) Keywords() []string {
	return sortedKeys(g.keywords)
}

// TypeNames returns the sorted type names.
func (g *Grammar) TypeNames() []string {
	return sortedKeys(g.typeNames)
}

// Builtins returns the sorted builtin function names.
func (g *Grammar) Builtins() []string {
	return sortedKeys(g.builtins)
}

// Operators returns the infix operators ordered by descending precedence,
// then by token name. Used for documentation and the `grammars` command.
func (g *Grammar) Operators() []token.TokenType {
	ops := make([]token.TokenType, 0, len(g.precedence))
	for t := range g.precedence {
		ops = append(ops, t)
	}
	sort.Slice(ops, func(i, j int) bool {
		pi, pj := g.precedence[ops[i]], g.precedence[ops[j]]
		if pi != pj {
			return pi > pj
		}
		return ops[i].String() < ops[j].String()
	})
	return ops
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Builder provides a fluent API for constructing grammars.
type Builder struct {
	grammar *Grammar
}

// New creates a new grammar builder.
func New(name string, tag token.Grammar) *Builder {
	return &Builder{
		grammar: &Grammar{
			Name:       name,
			Tag:        tag,
			keywords:   make(map[string]token.TokenType),
			precedence: make(map[token.TokenType]int),
			prefix:     make(map[token.TokenType]int),
			rightAssoc: make(map[token.TokenType]bool),
			typeNames:  make(map[string]struct{}),
			builtins:   make(map[string]struct{}),
		},
	}
}

// Describe sets a one-line description.
func (b *Builder) Describe(desc string) *Builder {
	b.grammar.Description = desc
	return b
}

// AddKeyword reserves a spelling as keyword token t.
func (b *Builder) AddKeyword(name string, t token.TokenType) *Builder {
	b.grammar.keywords[name] = t
	return b
}

// AddInfix registers a left-associative infix operator with precedence.
func (b *Builder) AddInfix(t token.TokenType, precedence int) *Builder {
	b.grammar.precedence[t] = precedence
	return b
}

// AddRightInfix registers a right-associative infix operator with precedence.
func (b *Builder) AddRightInfix(t token.TokenType, precedence int) *Builder {
	b.grammar.precedence[t] = precedence
	b.grammar.rightAssoc[t] = true
	return b
}

// AddPrefix registers a prefix operator with the precedence of its operand.
func (b *Builder) AddPrefix(t token.TokenType, precedence int) *Builder {
	b.grammar.prefix[t] = precedence
	return b
}

// WithTypeNames registers declaration type names.
func (b *Builder) WithTypeNames(names ...string) *Builder {
	for _, n := range names {
		b.grammar.typeNames[n] = struct{}{}
	}
	return b
}

// WithBuiltins registers runtime-provided function names.
func (b *Builder) WithBuiltins(names ...string) *Builder {
	for _, n := range names {
		b.grammar.builtins[n] = struct{}{}
	}
	return b
}

// Build returns the constructed grammar.
func (b *Builder) Build() *Grammar {
	return b.grammar
}
