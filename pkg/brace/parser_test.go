package brace

import (
	"testing"

	"github.com/leapstack-labs/leapglot/pkg/core"
	"github.com/leapstack-labs/leapglot/pkg/source"
	"github.com/leapstack-labs/leapglot/pkg/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, src string) *Program {
	t.Helper()
	toks, _, err := Lex(source.New("t.c", src))
	require.NoError(t, err)
	prog, err := Parse(toks, nil)
	require.NoError(t, err)
	return prog
}

func mainBody(t *testing.T, prog *Program) []Stmt {
	t.Helper()
	fn, ok := prog.Func("main")
	require.True(t, ok, "main not found")
	return fn.Body.Stmts
}

func TestParseFunctionsAndGlobals(t *testing.T) {
	prog := parse(t, `
int ret = 0, *p;
char buf[10];
int add(int a, int b);
int add(int a, int b) { return a + b; }
main() { puts("hi"); }
`)
	require.Len(t, prog.Items, 5)
	globals := prog.Globals()
	require.Len(t, globals, 2)
	assert.Equal(t, "int", globals[0].Type.String())
	require.Len(t, globals[0].Decls, 2)
	assert.Equal(t, "ret", globals[0].Decls[0].Name)
	assert.NotNil(t, globals[0].Decls[0].Init)
	assert.Equal(t, 1, globals[0].Decls[1].Pointer)
	assert.True(t, globals[1].Decls[0].Array)

	funcs := prog.Funcs()
	require.Len(t, funcs, 2, "prototype is not a definition")
	assert.Equal(t, "add", funcs[0].Name)
	assert.Len(t, funcs[0].Params, 2)
	assert.Equal(t, "main", funcs[1].Name)
	assert.Equal(t, "int", funcs[1].Type.String(), "implicit int")
}

func TestParseMainSignature(t *testing.T) {
	prog := parse(t, "int main(int argc, char **argv) { return 0; }")
	fn, ok := prog.Func("main")
	require.True(t, ok)
	require.Len(t, fn.Params, 2)
	assert.Equal(t, 2, fn.Params[1].Pointer)
	assert.Equal(t, "argv", fn.Params[1].Name)
}

func TestUnbracedBodyIsOneStatement(t *testing.T) {
	prog := parse(t, `int main() { if (foo < 10) puts("a"); puts("b"); }`)
	stmts := mainBody(t, prog)
	require.Len(t, stmts, 2)
	ifs, ok := stmts[0].(*IfStmt)
	require.True(t, ok)
	_, ok = ifs.Then.(*ExprStmt)
	assert.True(t, ok)
	assert.Nil(t, ifs.Else)
}

func TestPrecedence(t *testing.T) {
	prog := parse(t, "int main() { x = a & 1 == 0; y = -2 * 3 + 4; z = c ? 1 : d ? 2 : 3; }")
	stmts := mainBody(t, prog)
	require.Len(t, stmts, 3)

	// & binds looser than == in C.
	x := stmts[0].(*ExprStmt).X.(*AssignExpr)
	band, ok := x.Value.(*BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, token.AMP, band.Op)
	assert.Equal(t, token.EQ, band.Right.(*BinaryExpr).Op)

	y := stmts[1].(*ExprStmt).X.(*AssignExpr)
	plus := y.Value.(*BinaryExpr)
	assert.Equal(t, token.PLUS, plus.Op)
	mul := plus.Left.(*BinaryExpr)
	assert.Equal(t, token.STAR, mul.Op)
	_, ok = mul.Left.(*UnaryExpr)
	assert.True(t, ok)

	z := stmts[2].(*ExprStmt).X.(*AssignExpr)
	cond := z.Value.(*CondExpr)
	_, ok = cond.Else.(*CondExpr)
	assert.True(t, ok, "?: is right-associative")
}

func TestParseShortCircuitAssignment(t *testing.T) {
	prog := parse(t, "int main() { (p % i != 0) && (i = i + 1); }")
	stmts := mainBody(t, prog)
	and := stmts[0].(*ExprStmt).X.(*BinaryExpr)
	assert.Equal(t, token.AND_AND, and.Op)
	_, ok := and.Right.(*AssignExpr)
	assert.True(t, ok)
}

func TestParseLoopsAndLiterals(t *testing.T) {
	prog := parse(t, `int main() {
	int i;
	for (i = 0; i < 3; i++) { continue; }
	while (i--) ;
	do { break; } while (0);
	for (int j = 0; j < 1; ++j) putchar('a');
	printf("a" "b" "\n", (int) 1.5, s[0]);
}`)
	stmts := mainBody(t, prog)
	require.Len(t, stmts, 6)
	assert.IsType(t, &DeclStmt{}, stmts[0])
	assert.IsType(t, &ForStmt{}, stmts[1])
	assert.IsType(t, &WhileStmt{}, stmts[2])
	assert.IsType(t, &DoWhileStmt{}, stmts[3])
	f := stmts[4].(*ForStmt)
	assert.IsType(t, &DeclStmt{}, f.Init)

	call := stmts[5].(*ExprStmt).X.(*CallExpr)
	require.Len(t, call.Args, 3)
	assert.Equal(t, "ab\n", call.Args[0].(*StringLit).Value)
	assert.IsType(t, &CastExpr{}, call.Args[1])
	assert.IsType(t, &IndexExpr{}, call.Args[2])
}

func TestParseKeywordSpellingsAfterExpansion(t *testing.T) {
	// Keywords are classified at parse time, so a token spelled `while`
	// that came from anywhere is a keyword.
	toks, _, err := Lex(source.New("t.c", "int main() { while (0) ; }"))
	require.NoError(t, err)
	prog, err := Parse(toks, nil)
	require.NoError(t, err)
	assert.IsType(t, &WhileStmt{}, mainBody(t, prog)[0])
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"ruby def", "def main\n  puts 1\nend", "expected declaration"},
		{"missing semicolon", "int main() { x = 1 }", `unexpected "}", expected ;`},
		{"bad expression", "int main() { x = ; }", "expected expression"},
		{"unclosed body", "int main() { x = 1;", "unexpected end of input"},
		{"do without braces", "int main() do x = 1; end", "expected function body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, _, err := Lex(source.New("t.c", tt.src))
			require.NoError(t, err)
			_, err = Parse(toks, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrParse)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
