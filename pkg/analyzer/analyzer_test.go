package analyzer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapglot/internal/testutil"
	"github.com/leapstack-labs/leapglot/pkg/core"
	"github.com/leapstack-labs/leapglot/pkg/divergence"
	"github.com/leapstack-labs/leapglot/pkg/shim"
	"github.com/leapstack-labs/leapglot/pkg/source"
	"github.com/leapstack-labs/leapglot/pkg/token"
	"github.com/leapstack-labs/leapglot/pkg/value"
)

func prelude() Fixtures {
	var fx Fixtures
	for _, name := range []string{"int", "char", "void", "long", "short", "unsigned", "signed", "float", "double"} {
		fx.Shims = append(fx.Shims, shim.Definition{Name: name, Arity: shim.Variadic(), Behavior: shim.PassThrough, Source: shim.SourceFixture})
	}
	fx.Shims = append(fx.Shims, shim.Definition{Name: "main", Arity: shim.Variadic(), Behavior: shim.YieldToBlock, Source: shim.SourceFixture})
	return fx
}

func analyze(t *testing.T, src string, fx Fixtures, opts ...Option) (*Result, *source.Buffer) {
	t.Helper()
	buf := source.New("t.c", src)
	a := New(append([]Option{WithLogger(testutil.NewTestLogger(t))}, opts...)...)
	res, err := a.Analyze(context.Background(), buf, fx)
	require.NoError(t, err)
	return res, buf
}

func TestAnalyzeEquivalentSnippet(t *testing.T) {
	res, _ := analyze(t, `int main() {
  puts("hi");
  return 0;
}
`, prelude())
	assert.Equal(t, divergence.VerdictEquivalent, res.Report.Verdict)
	assert.True(t, res.Polyglot())
	assert.Equal(t, "hi\n", res.TraceA.Stdout())
	assert.Equal(t, "hi\n", res.TraceB.Stdout())
	assert.Empty(t, res.Errors)
}

func TestAnalyzeSingleStatementBody(t *testing.T) {
	res, buf := analyze(t, `#define end
int foo = 20;
int main() {
if (foo < 10) puts("a"); puts("b");
end
return 0;
}
`, prelude())
	require.Equal(t, divergence.VerdictViolation, res.Report.Verdict, res.Report.Summary())
	violations := res.Report.Filter(divergence.Violation)
	require.Len(t, violations, 1)
	assert.Equal(t, token.Brace, violations[0].Grammar)
	assert.Equal(t, `puts("b")`, buf.Slice(violations[0].Span))
}

func TestAnalyzeShortCircuit(t *testing.T) {
	res, _ := analyze(t, `int i = 3, p = 7;
int r = (p % i != 0) && (i = i + 1);
int main() {
  printf("%d\n", i);
  return 0;
}
`, prelude())
	require.Empty(t, res.Errors)
	assert.Equal(t, "4\n", res.TraceA.Stdout())
	assert.Equal(t, "4\n", res.TraceB.Stdout())
	assert.Equal(t, value.Int(4), res.MemoryA.Value("i"))
	assert.Equal(t, value.Int(4), res.MemoryB.Value("i"))
	assert.True(t, res.MemoryA.Value("r").Truthy(token.Brace))
	assert.True(t, res.MemoryB.Value("r").Truthy(token.Script))
	assert.True(t, res.Polyglot(), res.Report.Summary())
}

func TestAnalyzeCommentElisionAsymmetry(t *testing.T) {
	res, buf := analyze(t, `#if 0
puts "script only"
#endif
int main() { return 0; }
`, prelude())
	require.Equal(t, divergence.VerdictViolation, res.Report.Verdict)
	violations := res.Report.Filter(divergence.Violation)
	require.Len(t, violations, 1)
	assert.Equal(t, token.Script, violations[0].Grammar)
	assert.Equal(t, `puts "script only"`, buf.Slice(violations[0].Span))
	assert.NotEmpty(t, res.Elided)
}

func TestAnalyzeIdempotentRedefinition(t *testing.T) {
	src := `def main(&blk)
  define_method(:main, &blk)
end
main { puts "body" }
main
`
	a := New(WithLogger(testutil.NewTestLogger(t)))
	first, err := a.Analyze(context.Background(), source.New("t.rb", src), prelude())
	require.NoError(t, err)
	second, err := a.Analyze(context.Background(), source.New("t.rb", src), prelude())
	require.NoError(t, err)

	assert.Equal(t, 1, first.Redefinitions)
	assert.Equal(t, "body\n", first.TraceB.Stdout())

	j1, err := first.MarshalIndent()
	require.NoError(t, err)
	j2, err := second.MarshalIndent()
	require.NoError(t, err)
	assert.Equal(t, string(j1), string(j2))
}

func TestAnalyzeDeterministicReport(t *testing.T) {
	src := `int x = 1;
int main() {
  if (x) puts("one");
  printf("%d\n", x + 1);
  return 0;
}
`
	r1, _ := analyze(t, src, prelude())
	r2, _ := analyze(t, src, prelude())
	j1, err := r1.MarshalIndent()
	require.NoError(t, err)
	j2, err := r2.MarshalIndent()
	require.NoError(t, err)
	assert.Equal(t, j1, j2)
	assert.Contains(t, string(j1), `"verdict"`)
}

// `char ** argv` is exponentiation or a double splat to the script grammar
// depending on spacing rules; either reading is acceptable as long as the
// brace side is unaffected and any failure is anchored on that line.
func TestAnalyzeCharStarStarArgv(t *testing.T) {
	fx := prelude()
	fx.Shims = append(fx.Shims,
		shim.Definition{Name: "argc", Arity: shim.Variadic(), Behavior: shim.Constant, Constant: value.Int(1)},
		shim.Definition{Name: "argv", Arity: shim.Variadic(), Behavior: shim.Constant, Constant: value.Int(0)},
	)
	res, buf := analyze(t, `int main(int argc, char ** argv) {
  puts("ok");
  return 0;
}
`, fx)
	assert.Equal(t, "ok\n", res.TraceA.Stdout())

	switch res.Report.Verdict {
	case divergence.VerdictEquivalent:
		assert.Equal(t, "ok\n", res.TraceB.Stdout())
	case divergence.VerdictNotPolyglot:
		errs := res.Report.Filter(divergence.Error)
		require.Len(t, errs, 1)
		assert.Equal(t, token.Script, errs[0].Grammar)
		assert.Equal(t, 1, errs[0].Span.Start.Line)
		assert.Contains(t, buf.Line(1), "char ** argv")
	default:
		t.Fatalf("unexpected verdict %s", res.Report.Verdict)
	}
}

func TestAnalyzeFailedGrammarDoesNotRun(t *testing.T) {
	res, _ := analyze(t, "puts \"ran\"\nx = )\n", prelude())
	assert.Equal(t, divergence.VerdictBothFailed, res.Report.Verdict)
	assert.Zero(t, res.TraceA.Len())
	assert.Zero(t, res.TraceB.Len())
	assert.Empty(t, res.TraceB.Stdout())
}

func TestAnalyzeBrokenBraceBody(t *testing.T) {
	res, _ := analyze(t, `int main() {
if @foo < 10) puts("a"); puts("b");
return 0;
}
`, prelude())
	assert.NotEqual(t, divergence.VerdictEquivalent, res.Report.Verdict)
	assert.Zero(t, res.TraceA.Len())
	assert.NotEmpty(t, res.Report.Filter(divergence.Error))
}

func TestAnalyzeExpansionLimitAborts(t *testing.T) {
	a := New(WithLogger(testutil.NewTestLogger(t)), WithMaxExpansions(1))
	_, err := a.Analyze(context.Background(), source.New("t.c", "#define X 1\nint a = X + X + X;\n"), prelude())
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrExpansionLimit))
}

func TestAnalyzeStepLimitIsReported(t *testing.T) {
	res, _ := analyze(t, `int main() {
  while (1) { }
  return 0;
}
`, prelude(), WithMaxSteps(200))
	assert.Equal(t, divergence.VerdictNotPolyglot, res.Report.Verdict)
	require.NotEmpty(t, res.Errors)
	assert.True(t, errors.Is(res.Errors[0], core.ErrStepLimit))
}

func TestAnalyzeBadFixture(t *testing.T) {
	_, err := New().Analyze(context.Background(), source.New("t.c", ""), Fixtures{Shims: []shim.Definition{{}}})
	require.Error(t, err)
}
