package output_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/leapstack-labs/leapglot/internal/cli/output"
	"github.com/leapstack-labs/leapglot/internal/cli/testutil"
	"github.com/leapstack-labs/leapglot/internal/fixtures"
	"github.com/leapstack-labs/leapglot/internal/state"
	"github.com/leapstack-labs/leapglot/pkg/analyzer"
	"github.com/leapstack-labs/leapglot/pkg/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func analyze(t *testing.T, src string) (*analyzer.Result, *source.Buffer) {
	t.Helper()
	buf := source.New("snippet.c", src)
	res, err := analyzer.New().Analyze(context.Background(), buf, fixtures.Prelude())
	require.NoError(t, err)
	return res, buf
}

func TestMode(t *testing.T) {
	tests := []struct {
		in   string
		want output.OutputMode
	}{
		{"text", output.ModeText},
		{"markdown", output.ModeMarkdown},
		{"md", output.ModeMarkdown},
		{"JSON", output.ModeJSON},
		{"auto", output.ModeAuto},
		{"", output.ModeAuto},
		{"html", output.ModeAuto},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, output.Mode(tt.in), "Mode(%q)", tt.in)
	}
}

func TestEffectiveMode(t *testing.T) {
	assert.Equal(t, output.ModeText, testutil.NewTestRenderer(output.ModeAuto, true).EffectiveMode())
	assert.Equal(t, output.ModeMarkdown, testutil.NewTestRendererAuto().EffectiveMode())
	assert.Equal(t, output.ModeJSON, testutil.NewTestRenderer(output.ModeJSON, true).EffectiveMode())
	assert.False(t, output.IsTerminal(new(bytes.Buffer)))
}

func TestHeaderAndKeyValue(t *testing.T) {
	md := testutil.NewTestRendererMarkdown()
	md.Header(2, "Shims")
	md.KeyValue("Verdict", "equivalent")
	assert.Equal(t, "## Shims\n\n**Verdict:** equivalent\n", md.Output())

	txt := testutil.NewTestRenderer(output.ModeText, false)
	txt.Header(1, "Traces")
	txt.KeyValue("Verdict", "equivalent")
	assert.Equal(t, "Traces\nVerdict: equivalent\n", txt.Output())
}

func TestMessages(t *testing.T) {
	tr := testutil.NewTestRendererMarkdown()
	tr.Success("done")
	tr.Warning("careful")
	tr.Error("broken")
	tr.StatusLine("leapglot.yaml", "success", "")
	tr.StatusLine("x.c", "other", "skipped")

	assert.Contains(t, tr.Output(), "✓ done")
	assert.Contains(t, tr.Output(), "  ✓ leapglot.yaml\n")
	assert.Contains(t, tr.Output(), "  - x.c skipped\n")
	assert.Contains(t, tr.ErrorOutput(), "! careful")
	assert.Contains(t, tr.ErrorOutput(), "✗ broken")
	testutil.AssertNoANSI(t, tr.Output()+tr.ErrorOutput())
}

func TestHeading(t *testing.T) {
	assert.Equal(t, "Benign Divergence", output.Heading("benign-divergence"))
	assert.Equal(t, "Violation", output.Heading("violation"))
	assert.Equal(t, "```c\nint x;\n```", output.FormatCodeBlock("c", "int x;\n"))
}

func TestResult_Markdown(t *testing.T) {
	res, buf := analyze(t, testutil.DivergentSource)
	tr := testutil.NewTestRendererMarkdown()
	require.NoError(t, tr.Result(res, buf, false))

	out := tr.Output()
	assert.Contains(t, out, "# snippet.c")
	assert.Contains(t, out, "**Verdict:** violation")
	assert.Contains(t, out, "## Violation")
	assert.Contains(t, out, `puts("done")`)
	assert.NotContains(t, out, "## Equivalent")
	testutil.AssertValidMarkdown(t, out)
	testutil.AssertOutputMode(t, tr, output.ModeMarkdown)
}

func TestResult_Text(t *testing.T) {
	res, buf := analyze(t, testutil.PolyglotSource)

	tr := testutil.NewTestRenderer(output.ModeText, false)
	require.NoError(t, tr.Result(res, buf, false))
	assert.Contains(t, tr.Output(), "snippet.c  equivalent")
	assert.Contains(t, tr.Output(), "equivalent effects")
	assert.Contains(t, tr.Output(), "Summary:")

	tr.Reset()
	require.NoError(t, tr.Result(res, buf, true))
	assert.Contains(t, tr.Output(), "Equivalent\n")
}

func TestResult_JSON(t *testing.T) {
	res, buf := analyze(t, testutil.PolyglotSource)
	tr := testutil.NewTestRendererJSON()
	require.NoError(t, tr.Result(res, buf, false))

	want, err := res.MarshalIndent()
	require.NoError(t, err)
	assert.Equal(t, string(want)+"\n", tr.Output())
}

func TestTraces(t *testing.T) {
	res, _ := analyze(t, testutil.PolyglotSource)

	tr := testutil.NewTestRendererText()
	require.NoError(t, tr.Traces(res))
	out := tr.Output()
	// go-pretty upper-cases text table headers.
	assert.Contains(t, out, "A (BRACE)")
	assert.Contains(t, out, "B (SCRIPT)")
	assert.Contains(t, out, `"hello\n"`)

	js := testutil.NewTestRendererJSON()
	require.NoError(t, js.Traces(res))
	var got map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(js.Out.Bytes(), &got))
	assert.Contains(t, got, "trace_a")
	assert.Contains(t, got, "memory_b")
}

func TestTokens(t *testing.T) {
	res, _ := analyze(t, "#define GREETING \"hi\"\nint main() { puts(GREETING); return 0; }\n")

	tr := testutil.NewTestRendererMarkdown()
	require.NoError(t, tr.Tokens(res))
	out := tr.Output()
	assert.Contains(t, out, "## Brace tokens")
	assert.Contains(t, out, "## Script tokens")
	// Expanded tokens point back at the replacement text on line 1.
	assert.Contains(t, out, "macro 1:18")
}

func TestFixtures(t *testing.T) {
	tr := testutil.NewTestRendererMarkdown()
	require.NoError(t, tr.Fixtures(fixtures.Prelude()))
	out := tr.Output()
	assert.Contains(t, out, "## Shims")
	assert.Contains(t, out, "| int |")
	assert.Contains(t, out, "| main |")
	assert.NotContains(t, out, "## Macros")
}

func TestRuns(t *testing.T) {
	tr := testutil.NewTestRendererMarkdown()
	require.NoError(t, tr.Runs(nil))
	assert.Equal(t, "No recorded runs.\n", tr.Output())

	js := testutil.NewTestRendererJSON()
	require.NoError(t, js.Runs(nil))
	assert.Equal(t, "[]\n", js.Output())

	tr.Reset()
	require.NoError(t, tr.Runs([]*state.Run{{
		ID:         "abc",
		Source:     "hello.c",
		Verdict:    "equivalent",
		Violations: 0,
		CreatedAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}}))
	assert.Contains(t, tr.Output(), "# History (1 runs)")
	assert.Contains(t, tr.Output(), "| abc |")
	assert.Contains(t, tr.Output(), "hello.c")
}
