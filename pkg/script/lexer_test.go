package script

import (
	"testing"

	"github.com/leapstack-labs/leapglot/pkg/core"
	"github.com/leapstack-labs/leapglot/pkg/grammar"
	"github.com/leapstack-labs/leapglot/pkg/source"
	"github.com/leapstack-labs/leapglot/pkg/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lexTypes(t *testing.T, src string) ([]token.TokenType, []token.Token) {
	t.Helper()
	toks, _, err := Lex(source.New("t.rb", src))
	require.NoError(t, err)
	out := make([]token.TokenType, 0, len(toks))
	for _, tok := range toks {
		out = append(out, tok.Type)
	}
	return out, toks
}

func TestLexHashIsComment(t *testing.T) {
	src := "#include <stdio.h>\nputs 1 # trailing\n"
	got, _ := lexTypes(t, src)
	assert.Equal(t, []token.TokenType{token.IDENT, token.INT, token.NEWLINE, token.EOF}, got)

	_, comments, err := Lex(source.New("t.rb", src))
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "#include <stdio.h>", comments[0].Text)
	assert.Equal(t, token.Script, comments[0].Grammar)
}

func TestLexBlockCommentIsRegex(t *testing.T) {
	got, toks := lexTypes(t, "/* not a comment */\nx = 1")
	require.Equal(t, token.REGEX, got[0])
	assert.Equal(t, "* not a comment *", toks[0].Literal)
	assert.Equal(t, 0, toks[0].Span.Start.Offset)
	assert.Equal(t, 19, toks[0].Span.End.Offset)
}

func TestLexDivisionVersusRegex(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want token.TokenType
	}{
		{"after number", "4 / 2", token.SLASH},
		{"after paren", "(a) / 2", token.SLASH},
		{"command argument", "foo /x/", token.REGEX},
		{"spaced division after ident", "a / b", token.SLASH},
		{"after operator", "x = /ab/", token.REGEX},
		{"tight division", "a/b", token.SLASH},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := lexTypes(t, tt.src)
			assert.Contains(t, got, tt.want)
		})
	}
}

func TestLexOperators(t *testing.T) {
	got, toks := lexTypes(t, "char ** argv; a **b")
	assert.Equal(t, []token.TokenType{
		token.IDENT, token.POW, token.IDENT, token.SEMICOLON, token.IDENT, token.POW, token.IDENT, token.EOF,
	}, got)
	assert.True(t, toks[1].SpaceBefore)
	assert.True(t, toks[2].SpaceBefore)
	assert.False(t, toks[6].SpaceBefore)
}

func TestLexKeywordsAndNames(t *testing.T) {
	got, toks := lexTypes(t, "def main\n  yield if block_given?\nend\nx.end")
	assert.Equal(t, []token.TokenType{
		grammar.TokenDef, token.IDENT, token.NEWLINE,
		grammar.TokenYield, token.IF, token.IDENT, token.NEWLINE,
		grammar.TokenEnd, token.NEWLINE,
		token.IDENT, token.DOT, token.IDENT, token.EOF,
	}, got)
	assert.Equal(t, "block_given?", toks[5].Literal)
}

func TestLexLiterals(t *testing.T) {
	got, toks := lexTypes(t, `$ret :sym 'a\n' "x\ty" "n=#{n + 1}!" 1_000 3.times 2.5`)
	assert.Equal(t, []token.TokenType{
		token.GVAR, token.SYMBOL, token.STRING, token.STRING, token.DSTRING,
		token.INT, token.INT, token.DOT, token.IDENT, token.FLOAT, token.EOF,
	}, got)
	assert.Equal(t, "$ret", toks[0].Literal)
	assert.Equal(t, "sym", toks[1].Literal)
	assert.Equal(t, `a\n`, toks[2].Literal)
	assert.Equal(t, "x\ty", toks[3].Literal)
	assert.Equal(t, "n=#{n + 1}!", toks[4].Literal)
	assert.Equal(t, "1000", toks[5].Literal)
}

func TestLexNewlineSuppression(t *testing.T) {
	got, _ := lexTypes(t, "a = 1 +\n  2\nfoo(1,\n 2)\n")
	assert.Equal(t, []token.TokenType{
		token.IDENT, token.ASSIGN, token.INT, token.PLUS, token.INT, token.NEWLINE,
		token.IDENT, token.LPAREN, token.INT, token.COMMA, token.INT, token.RPAREN, token.NEWLINE,
		token.EOF,
	}, got)
}

func TestLexEmbeddedDocAndEnd(t *testing.T) {
	src := "=begin\nint main() {\n=end\nputs 1\n__END__\nanything } goes"
	got, _ := lexTypes(t, src)
	assert.Equal(t, []token.TokenType{token.IDENT, token.INT, token.NEWLINE, token.EOF}, got)
}

func TestLexUnterminatedRegex(t *testing.T) {
	_, _, err := Lex(source.New("t.rb", "x = /abc"))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrParse)
}

func TestLexBackslashAtEndOfInput(t *testing.T) {
	for _, src := range []string{
		"puts \"a\\",
		"puts \"#{'a\\",
		"puts \"#{\"a\\",
		"x = /a\\",
		"\"\\",
	} {
		t.Run(src, func(t *testing.T) {
			var err error
			require.NotPanics(t, func() {
				_, _, err = Lex(source.New("t.rb", src))
			})
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrParse)
		})
	}
}
