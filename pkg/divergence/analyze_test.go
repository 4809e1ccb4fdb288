package divergence

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapglot/pkg/core"
	"github.com/leapstack-labs/leapglot/pkg/memory"
	"github.com/leapstack-labs/leapglot/pkg/token"
	"github.com/leapstack-labs/leapglot/pkg/trace"
	"github.com/leapstack-labs/leapglot/pkg/value"
)

func sp(line int) token.Span {
	return token.Span{
		Start: token.Position{Line: line, Column: 1, Offset: line * 100},
		End:   token.Position{Line: line, Column: 10, Offset: line*100 + 9},
	}
}

func TestAnalyzeEquivalent(t *testing.T) {
	a, b := trace.New(token.Brace), trace.New(token.Script)
	for _, tr := range []*trace.Trace{a, b} {
		tr.Branch(true, sp(1))
		tr.Emit("hi\n", sp(2))
	}
	r := Analyze(a, b, nil, nil, Errors{})
	assert.Equal(t, VerdictEquivalent, r.Verdict)
	assert.True(t, r.Verdict.Polyglot())
	require.Len(t, r.Entries, 1)
	assert.Equal(t, Equivalent, r.Entries[0].Classification)
	assert.Equal(t, sp(2), r.Entries[0].Span)
	assert.NoError(t, r.Err())
}

func TestAnalyzeBenignSpansAndBranches(t *testing.T) {
	a, b := trace.New(token.Brace), trace.New(token.Script)
	a.Emit("x\n", sp(3))
	b.Emit("x\n", sp(5))
	a.ShortCircuit("&&", sp(4))

	r := Analyze(a, b, nil, nil, Errors{})
	assert.Equal(t, VerdictBenign, r.Verdict)
	require.Len(t, r.Entries, 2)

	assert.Equal(t, sp(3), r.Entries[0].Span)
	assert.Contains(t, r.Entries[0].Explanation, "3:1 under brace and 5:1 under script")

	assert.Equal(t, sp(4), r.Entries[1].Span)
	assert.Equal(t, token.Brace, r.Entries[1].Grammar)
	assert.Contains(t, r.Entries[1].Explanation, "short-circuit differs")
}

func TestAnalyzeViolationMissingOutput(t *testing.T) {
	a, b := trace.New(token.Brace), trace.New(token.Script)
	a.Branch(false, sp(4))
	b.Branch(false, sp(4))
	a.Emit("b\n", sp(5))

	r := Analyze(a, b, nil, nil, Errors{})
	assert.Equal(t, VerdictViolation, r.Verdict)
	assert.False(t, r.Verdict.Polyglot())
	require.Len(t, r.Entries, 1)
	e := r.Entries[0]
	assert.Equal(t, Violation, e.Classification)
	assert.Equal(t, token.Brace, e.Grammar)
	assert.Equal(t, sp(5), e.Span)
	assert.Contains(t, e.Explanation, "printed only by the brace grammar")
}

func TestAnalyzeViolationAnnotatesControlFlow(t *testing.T) {
	a, b := trace.New(token.Brace), trace.New(token.Script)
	a.Branch(true, sp(1))
	b.Branch(false, sp(1))
	a.Emit("yes\n", sp(2))
	b.Emit("no\n", sp(3))

	r := Analyze(a, b, nil, nil, Errors{})
	require.Equal(t, VerdictViolation, r.Verdict)
	require.Len(t, r.Entries, 1)
	assert.Contains(t, r.Entries[0].Explanation, `brace printed "yes\n"`)
	assert.Contains(t, r.Entries[0].Explanation, "control flow first diverges at 1:1")
}

func TestAnalyzeMemory(t *testing.T) {
	a, b := trace.New(token.Brace), trace.New(token.Script)
	snapA := memory.Snapshot{
		{Name: "i", Value: value.Int(4), Span: sp(1), Grammar: token.Brace},
		{Name: "r", Value: value.Int(1), Span: sp(2), Grammar: token.Brace},
	}
	snapB := memory.Snapshot{
		{Name: "i", Value: value.Int(4), Span: sp(1), Grammar: token.Script},
		{Name: "r", Value: value.True, Span: sp(2), Grammar: token.Script},
		{Name: "x", Value: value.Int(9), Span: sp(3), Grammar: token.Script},
	}
	r := Analyze(a, b, snapA, snapB, Errors{})
	assert.Equal(t, VerdictBenign, r.Verdict)
	require.Len(t, r.Entries, 1)
	assert.Equal(t, "r ends as 1 under brace and true under script", r.Entries[0].Explanation)
}

func TestAnalyzeErrors(t *testing.T) {
	parseErr := core.Errorf(core.KindParse, token.Brace, sp(2), "expected ';'")
	runErr := core.Errorf(core.KindRuntime, token.Script, sp(3), "divided by 0")

	t.Run("one side fails to parse", func(t *testing.T) {
		b := trace.New(token.Script)
		b.Emit("hi\n", sp(1))
		r := Analyze(nil, b, nil, nil, Errors{Brace: parseErr})
		assert.Equal(t, VerdictNotPolyglot, r.Verdict)
		require.Len(t, r.Entries, 1)
		assert.Equal(t, Error, r.Entries[0].Classification)
		assert.Equal(t, "parse-error", r.Entries[0].ErrorKind)
		assert.Equal(t, "expected ';'", r.Entries[0].Explanation)
	})

	t.Run("both fail to parse", func(t *testing.T) {
		r := Analyze(nil, nil, nil, nil, Errors{
			Brace:  parseErr,
			Script: core.Errorf(core.KindParse, token.Script, sp(1), "unexpected end-of-input"),
		})
		assert.Equal(t, VerdictBothFailed, r.Verdict)
		require.Len(t, r.Entries, 2)
		assert.Equal(t, token.Script, r.Entries[0].Grammar, "ordered by span first")
		assert.True(t, errors.Is(r.Err(), core.ErrBothGrammarsFailed))
	})

	t.Run("runtime error still compares outputs", func(t *testing.T) {
		a, b := trace.New(token.Brace), trace.New(token.Script)
		a.Emit("1\n", sp(1))
		a.Emit("2\n", sp(2))
		b.Emit("1\n", sp(1))
		r := Analyze(a, b, nil, nil, Errors{Script: runErr})
		assert.Equal(t, VerdictNotPolyglot, r.Verdict)
		assert.Equal(t, 1, r.Count(Error))
		assert.Equal(t, 1, r.Count(Violation))
	})
}

func TestAnalyzeDeterministic(t *testing.T) {
	build := func() *Report {
		a, b := trace.New(token.Brace), trace.New(token.Script)
		a.Emit("z\n", sp(9))
		a.Emit("y\n", sp(1))
		b.Emit("q\n", sp(4))
		a.Branch(true, sp(7))
		b.Branch(false, sp(7))
		return Analyze(a, b, nil, nil, Errors{})
	}
	assert.Equal(t, build(), build())
}

func TestReportSummary(t *testing.T) {
	r := &Report{Verdict: VerdictViolation, Entries: []Entry{
		{Classification: Violation}, {Classification: Benign}, {Classification: Benign},
	}}
	assert.Equal(t, "violation (1 violation, 2 benign-divergence)", r.Summary())
	assert.Len(t, r.Filter(Benign), 2)
	assert.Equal(t, "equivalent", (&Report{Verdict: VerdictEquivalent}).Summary())
}
