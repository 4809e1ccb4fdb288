package preprocess

import (
	"strings"
	"testing"

	"github.com/leapstack-labs/leapglot/internal/testutil"
	"github.com/leapstack-labs/leapglot/pkg/core"
	"github.com/leapstack-labs/leapglot/pkg/source"
	"github.com/leapstack-labs/leapglot/pkg/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, src string, opts Options) *Result {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = testutil.NewTestLogger(t)
	}
	res, err := Run(source.New("t.c", src), opts)
	require.NoError(t, err)
	return res
}

func literals(res *Result) string {
	parts := make([]string, 0, len(res.Tokens))
	for _, tok := range res.Tokens {
		if tok.Type == token.EOF {
			break
		}
		parts = append(parts, tok.Literal)
	}
	return strings.Join(parts, " ")
}

func TestObjectMacroExpansion(t *testing.T) {
	src := "#define do {\n#define end }\nint main() do puts(\"x\"); end\n"
	res := run(t, src, Options{})

	assert.Equal(t, `int main ( ) { puts ( x ) ; }`, literals(res))
	assert.Equal(t, 2, res.Expansions)

	// The expanded { maps back to the `do` invocation and to the #define body.
	var brace token.Token
	for _, tok := range res.Tokens {
		if tok.Type == token.LBRACE {
			brace = tok
		}
	}
	require.True(t, brace.Expanded())
	assert.Equal(t, "do", src[brace.Span.Start.Offset:brace.Span.End.Offset])
	assert.Equal(t, "{", src[brace.Origin.Start.Offset:brace.Origin.End.Offset])
}

func TestFunctionMacroExpansion(t *testing.T) {
	src := "#define MAX(a, b) ((a) > (b) ? (a) : (b))\nint x = MAX(1, f(2, 3));\n"
	res := run(t, src, Options{})

	assert.Equal(t, "int x = ( ( 1 ) > ( f ( 2 , 3 ) ) ? ( 1 ) : ( f ( 2 , 3 ) ) ) ;", literals(res))

	m, ok := res.Macros.Lookup("MAX")
	require.True(t, ok)
	assert.True(t, m.FunctionLike)
	assert.Equal(t, []string{"a", "b"}, m.Params)
	assert.Equal(t, "#define MAX(a, b) ((a) > (b) ? (a) : (b))", m.String())
}

func TestFunctionMacroWithoutParensIsIdentifier(t *testing.T) {
	res := run(t, "#define F(x) x\nint F;\n", Options{})
	assert.Equal(t, "int F ;", literals(res))
	assert.Zero(t, res.Expansions)
}

func TestExpansionIsNotRecursive(t *testing.T) {
	src := "#define A B\n#define B A\nA B\n"
	res := run(t, src, Options{})
	assert.Equal(t, "B A", literals(res), "replacement text is never rescanned")
}

func TestUndefAndRedefine(t *testing.T) {
	src := "#define X 1\nX\n#undef X\nX\n#define X 2\nX\n"
	res := run(t, src, Options{})
	assert.Equal(t, "1 X 2", literals(res))
	assert.Len(t, res.Defined, 2)
}

func TestConditionals(t *testing.T) {
	src := strings.Join([]string{
		"#if 0",
		"def main",
		"#endif",
		"#define FOO 2",
		"#if FOO > 1 && defined(FOO)",
		"a",
		"#elif 1",
		"b",
		"#else",
		"c",
		"#endif",
		"#ifndef BAR",
		"d",
		"#endif",
	}, "\n")
	res := run(t, src, Options{})
	assert.Equal(t, "a d", literals(res))

	var conditional []ElidedSpan
	for _, e := range res.Elided {
		if e.Reason == ElideConditional {
			conditional = append(conditional, e)
		}
	}
	require.Len(t, conditional, 2)
	assert.Contains(t, src[conditional[0].Span.Start.Offset:conditional[0].Span.End.Offset], "def main")
	assert.Contains(t, src[conditional[1].Span.Start.Offset:conditional[1].Span.End.Offset], "b")
}

func TestCommentsAreElidedForBraceOnly(t *testing.T) {
	src := "int x; /* puts 1 */ // tail\n"
	res := run(t, src, Options{})

	assert.Equal(t, "int x ;", literals(res))
	require.Len(t, res.Comments, 2)
	assert.True(t, res.IsElided(strings.Index(src, "puts")))
	assert.False(t, res.IsElided(0))
}

func TestMarkers(t *testing.T) {
	res := run(t, "#include <stdio.h>\n#line 10 \"x.c\"\n# 3 \"y.c\"\n#pragma once\n#\n", Options{})
	require.Len(t, res.Markers, 4)
	assert.Equal(t, MarkerInclude, res.Markers[0].Kind)
	assert.Equal(t, "<stdio.h>", res.Markers[0].Arg)
	assert.Equal(t, MarkerLine, res.Markers[1].Kind)
	assert.Equal(t, MarkerLine, res.Markers[2].Kind)
	assert.Equal(t, MarkerPragma, res.Markers[3].Kind)
	assert.Equal(t, token.EOF, res.Tokens[0].Type)
}

func TestPredefinedMacros(t *testing.T) {
	m, err := NewMacro("end", nil, "}")
	require.NoError(t, err)
	res := run(t, "{ end", Options{Macros: []*Macro{m}})

	assert.Equal(t, "{ }", literals(res))
	assert.False(t, res.Tokens[1].Expanded(), "predefined replacements have no origin in the buffer")
}

func TestPreprocessErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"unterminated comment", "int x; /* oops", "unterminated block comment"},
		{"unterminated if", "#if 1\nx\n", "unterminated conditional"},
		{"stray endif", "#endif\n", "#endif without #if"},
		{"error directive", "#error stop here\n", "#error stop here"},
		{"bad directive", "#!/usr/bin/env ruby\n", "invalid preprocessing directive"},
		{"bad define", "#define 1 2\n", "macro names must be identifiers"},
		{"bad arity", "#define F(a) a\nF(1, 2)\n", "expects 1 arguments, got 2"},
		{"unterminated args", "#define F(a) a\nF(1\n", "unterminated argument list"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Run(source.New("t.c", tt.src), Options{Logger: testutil.NewTestLogger(t)})
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrPreprocess)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestExpansionLimit(t *testing.T) {
	src := "#define X 1\n" + strings.Repeat("X ", 20)
	_, err := Run(source.New("t.c", src), Options{MaxExpansions: 5})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrExpansionLimit)
	assert.True(t, core.IsFatal(err))
}
