package grammar

import (
	"testing"

	"github.com/leapstack-labs/leapglot/pkg/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{"brace", "script"}, List())

	g, ok := Get("BRACE")
	require.True(t, ok)
	assert.Same(t, Brace, g)

	g, ok = ForTag(token.Script)
	require.True(t, ok)
	assert.Same(t, Script, g)

	_, ok = Get("cobol")
	assert.False(t, ok)
}

func TestKeywordsArePerGrammar(t *testing.T) {
	tests := []struct {
		name    string
		grammar *Grammar
		word    string
		want    token.TokenType
	}{
		{"shared if in brace", Brace, "if", token.IF},
		{"shared if in script", Script, "if", token.IF},
		{"end is a script keyword", Script, "end", TokenEnd},
		{"end is a brace identifier", Brace, "end", token.IDENT},
		{"for is a brace keyword", Brace, "for", TokenFor},
		{"for is a script identifier", Script, "for", token.IDENT},
		{"int is not a keyword", Brace, "int", token.IDENT},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := tt.grammar.LookupKeyword(tt.word)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDivergentPrecedence(t *testing.T) {
	// & vs == is the classic divergence.
	assert.Less(t, Brace.Precedence(token.AMP), Brace.Precedence(token.EQ))
	assert.Greater(t, Script.Precedence(token.AMP), Script.Precedence(token.EQ))

	// ** is exponentiation only in the script grammar, binding tighter than unary minus.
	assert.Zero(t, Brace.Precedence(token.POW))
	assert.Greater(t, Script.Precedence(token.POW), Script.PrefixPrecedence(token.MINUS))
	assert.True(t, Script.IsRightAssoc(token.POW))
	assert.True(t, Brace.IsRightAssoc(token.ASSIGN))
	assert.False(t, Brace.IsRightAssoc(token.MINUS))
}

func TestClassify(t *testing.T) {
	tok := token.Token{Type: token.IDENT, Literal: "do"}
	assert.Equal(t, token.DO, Brace.Classify(tok).Type)

	num := token.Token{Type: token.INT, Literal: "1"}
	assert.Equal(t, num, Script.Classify(num))
}

func TestTypeNamesAndOperators(t *testing.T) {
	assert.True(t, Brace.IsTypeName("char"))
	assert.False(t, Script.IsTypeName("char"))
	assert.Contains(t, Brace.TypeNames(), "unsigned")
	assert.True(t, Script.IsBuiltin("define_method"))

	ops := Script.Operators()
	require.NotEmpty(t, ops)
	assert.GreaterOrEqual(t, Script.Precedence(ops[0]), Script.Precedence(ops[len(ops)-1]))
}
