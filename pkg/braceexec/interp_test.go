package braceexec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapglot/internal/testutil"
	"github.com/leapstack-labs/leapglot/pkg/brace"
	"github.com/leapstack-labs/leapglot/pkg/core"
	"github.com/leapstack-labs/leapglot/pkg/memory"
	"github.com/leapstack-labs/leapglot/pkg/preprocess"
	"github.com/leapstack-labs/leapglot/pkg/source"
	"github.com/leapstack-labs/leapglot/pkg/trace"
	"github.com/leapstack-labs/leapglot/pkg/value"
)

func compile(t *testing.T, src string) *brace.Program {
	t.Helper()
	res, err := preprocess.Run(source.New("t.c", src), preprocess.Options{})
	require.NoError(t, err)
	prog, err := brace.Parse(res.Tokens, nil)
	require.NoError(t, err)
	return prog
}

func run(t *testing.T, src string, opts Options) (*trace.Trace, *memory.Store, error) {
	t.Helper()
	store := memory.New(testutil.NewTestLogger(t))
	opts.Logger = testutil.NewTestLogger(t)
	tr, err := Run(context.Background(), compile(t, src), store, opts)
	return tr, store, err
}

func TestRunPrintf(t *testing.T) {
	tr, _, err := run(t, `
#include <stdio.h>
int main() {
    int x = 7 / 2, y = -7 / 2, z = -7 % 3;
    printf("%d %d %d\n", x, y, z);
    puts("done");
    putchar('!');
    return 0;
}`, Options{})
	require.NoError(t, err)
	assert.Equal(t, "3 -3 -1\ndone\n!", tr.Stdout())
	assert.Len(t, tr.Outputs(), 3)
}

func TestShortCircuitSideEffect(t *testing.T) {
	tr, store, err := run(t, `
int i = 3, p = 7, r = 0, s = 0;
int main() {
    r = (p % i != 0) && (i = i + 1);
    s = (p % 7 != 0) && (i = 100);
}`, Options{})
	require.NoError(t, err)
	snap := store.Snapshot()
	assert.Equal(t, value.Int(4), snap.Value("i"))
	assert.Equal(t, value.Int(1), snap.Value("r"))
	assert.Equal(t, value.Int(0), snap.Value("s"))

	var stops []trace.Effect
	for _, e := range tr.Effects {
		if e.Kind == trace.ShortCircuit {
			stops = append(stops, e)
		}
	}
	require.Len(t, stops, 1)
	assert.Equal(t, "&&", stops[0].Payload)
}

func TestReturnChannelThroughGlobal(t *testing.T) {
	tr, store, err := run(t, `
int ret = 0;
void f() { ret = 10; }
int main() {
    f();
    printf("%d\n", ret);
}`, Options{})
	require.NoError(t, err)
	assert.Equal(t, "10\n", tr.Stdout())
	c, ok := store.Lookup("ret")
	require.True(t, ok)
	assert.Equal(t, "int", c.DeclType)
	assert.Equal(t, memory.ScopeGlobal, c.Scope)
}

func TestUnbracedIfRunsSecondStatement(t *testing.T) {
	tr, _, err := run(t, `
int foo = 20;
int main() {
    if (foo < 10) puts("a"); puts("b");
}`, Options{})
	require.NoError(t, err)
	assert.Equal(t, "b\n", tr.Stdout())
	require.NotEmpty(t, tr.Effects)
	assert.Equal(t, trace.Branch, tr.Effects[0].Kind)
	assert.Equal(t, "skipped", tr.Effects[0].Payload)
}

func TestLoopsAndFunctions(t *testing.T) {
	tr, _, err := run(t, `
int fact(int n) { if (n <= 1) return 1; return n * fact(n - 1); }
int main() {
    int i, sum = 0;
    for (i = 0; i < 5; i++) { if (i == 3) continue; sum += i; }
    while (1) { if (sum > 100) break; sum *= 2; }
    do { sum--; } while (sum > 150);
    printf("%d %d\n", sum, fact(5));
    char buf[3];
    buf[0] = 'h'; buf[1] = 300;
    printf("%c %d %s\n", buf[0], buf[1], "xyz" + 1);
    double d = 7;
    printf("%.1f %d\n", d / 2, (int)3.9);
}`, Options{})
	require.NoError(t, err)
	assert.Equal(t, "111 120\nh 44 yz\n3.5 3\n", tr.Stdout())
}

func TestRuntimeErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{"division by zero", "int main() { int z = 0; return 1 / z; }", core.ErrRuntime},
		{"undeclared", "int main() { x = 1; }", core.ErrRuntime},
		{"unknown function", "int main() { frob(); }", core.ErrRuntime},
		{"no main", "int f() { return 0; }", core.ErrRuntime},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, tt.src, Options{})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestStepLimit(t *testing.T) {
	tr, _, err := run(t, `int main() { puts("start"); while (1) { } }`, Options{MaxSteps: 50})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrStepLimit)
	assert.Equal(t, "start\n", tr.Stdout(), "effects before the error are kept")
}

func TestExitStopsExecution(t *testing.T) {
	tr, _, err := run(t, `int main() { puts("a"); exit(0); puts("b"); }`, Options{})
	require.NoError(t, err)
	assert.Equal(t, "a\n", tr.Stdout())
}

func TestMacroSpansDriveEffects(t *testing.T) {
	src := "#define SAY puts(\"hi\")\nint main() { SAY; }"
	tr, _, err := run(t, src, Options{})
	require.NoError(t, err)
	require.Len(t, tr.Outputs(), 1)
	out := tr.Outputs()[0]
	assert.Equal(t, "SAY", src[out.Span.Start.Offset:out.Span.End.Offset], "expanded tokens carry the invocation span")
}
