package output

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/leapglot/pkg/analyzer"
	"github.com/leapstack-labs/leapglot/pkg/divergence"
	"github.com/leapstack-labs/leapglot/pkg/memory"
	"github.com/leapstack-labs/leapglot/pkg/source"
	"github.com/leapstack-labs/leapglot/pkg/token"
	"github.com/leapstack-labs/leapglot/pkg/trace"
)

// classificationOrder is the order report sections are printed in.
var classificationOrder = []divergence.Classification{
	divergence.Violation,
	divergence.Error,
	divergence.Benign,
	divergence.Equivalent,
}

// Result renders an analysis result. Equivalent entries are only counted
// unless showEquivalent is set.
func (r *Renderer) Result(res *analyzer.Result, buf *source.Buffer, showEquivalent bool) error {
	switch r.EffectiveMode() {
	case ModeJSON:
		data, err := res.MarshalIndent()
		if err != nil {
			return err
		}
		r.Println(string(data))
		return nil
	case ModeMarkdown:
		r.resultMarkdown(res, buf, showEquivalent)
	default:
		r.resultText(res, buf, showEquivalent)
	}
	return nil
}

// VerdictStyle picks the style for a verdict.
func (s *Styles) VerdictStyle(v divergence.Verdict) lipgloss.Style {
	switch v {
	case divergence.VerdictEquivalent:
		return s.Success
	case divergence.VerdictBenign:
		return s.Info
	case divergence.VerdictViolation:
		return s.Error
	default:
		return s.Warning
	}
}

// ClassificationStyle picks the style for an entry classification.
func (s *Styles) ClassificationStyle(c divergence.Classification) lipgloss.Style {
	switch c {
	case divergence.Violation, divergence.Error:
		return s.Error
	case divergence.Benign:
		return s.Info
	default:
		return s.Muted
	}
}

func (r *Renderer) resultText(res *analyzer.Result, buf *source.Buffer, showEquivalent bool) {
	rep := res.Report
	r.Printf("%s  %s\n", r.styles.Header.Render(res.Source), r.styles.VerdictStyle(rep.Verdict).Render(string(rep.Verdict)))

	for _, c := range classificationOrder {
		entries := rep.Filter(c)
		if len(entries) == 0 {
			continue
		}
		if c == divergence.Equivalent && !showEquivalent {
			r.Println(r.Muted(fmt.Sprintf("%d equivalent effects", len(entries))))
			continue
		}
		r.Println("")
		r.Println(r.styles.ClassificationStyle(c).Bold(true).Render(Heading(string(c))))
		for _, e := range entries {
			r.Printf("  %s %s %s\n",
				r.styles.Code.Render(e.Span.Start.String()),
				r.Muted("["+e.Grammar.Label()+"]"),
				e.Explanation)
			if ex := excerpt(buf, e.Span); ex != "" {
				r.Println(r.Muted(indent(ex, "    ")))
			}
		}
	}

	if res.Redefinitions > 0 {
		r.Println("")
		r.Println(r.Muted(fmt.Sprintf("%d shim redefinitions", res.Redefinitions)))
	}
	r.Println("")
	r.KeyValue("Summary", rep.Summary())
}

func (r *Renderer) resultMarkdown(res *analyzer.Result, buf *source.Buffer, showEquivalent bool) {
	rep := res.Report
	r.Println(FormatHeader(1, res.Source))
	r.Println("")
	r.Println(FormatKeyValue("Verdict", string(rep.Verdict)))
	r.Println(FormatKeyValue("Summary", rep.Summary()))
	if res.Redefinitions > 0 {
		r.Println(FormatKeyValue("Redefinitions", fmt.Sprintf("%d", res.Redefinitions)))
	}

	for _, c := range classificationOrder {
		entries := rep.Filter(c)
		if len(entries) == 0 || (c == divergence.Equivalent && !showEquivalent) {
			continue
		}
		r.Println("")
		r.Println(FormatHeader(2, Heading(string(c))))
		r.Println("")
		for _, e := range entries {
			r.Printf("- `%s` (%s) %s\n", e.Span.Start, e.Grammar.Label(), e.Explanation)
			if ex := excerpt(buf, e.Span); ex != "" {
				r.Println("")
				r.Println(indent(FormatCodeBlock("", ex), "  "))
			}
		}
	}
}

// Traces renders both traces side by side, followed by the memory end
// states.
func (r *Renderer) Traces(res *analyzer.Result) error {
	if r.EffectiveMode() == ModeJSON {
		return r.JSON(struct {
			TraceA  *trace.Trace    `json:"trace_a"`
			TraceB  *trace.Trace    `json:"trace_b"`
			MemoryA memory.Snapshot `json:"memory_a"`
			MemoryB memory.Snapshot `json:"memory_b"`
		}{res.TraceA, res.TraceB, res.MemoryA, res.MemoryB})
	}

	r.Header(1, "Traces")
	t := r.newTable()
	t.AppendHeader(table.Row{"#", "A (brace)", "B (script)"})
	a, b := effects(res.TraceA), effects(res.TraceB)
	for i := 0; i < max(len(a), len(b)); i++ {
		t.AppendRow(table.Row{i + 1, describeEffect(a, i), describeEffect(b, i)})
	}
	r.renderTable(t)

	r.Println("")
	r.Header(2, "Memory")
	m := r.newTable()
	m.AppendHeader(table.Row{"Name", "A", "B"})
	for _, name := range mergedNames(res.MemoryA, res.MemoryB) {
		m.AppendRow(table.Row{name, describeCell(res.MemoryA, name), describeCell(res.MemoryB, name)})
	}
	r.renderTable(m)
	return nil
}

// Tokens renders both grammars' token streams.
func (r *Renderer) Tokens(res *analyzer.Result) error {
	if r.EffectiveMode() == ModeJSON {
		return r.JSON(struct {
			Brace  []token.Token `json:"brace"`
			Script []token.Token `json:"script"`
		}{res.Tokens.Brace, res.Tokens.Script})
	}
	for _, side := range []struct {
		title string
		toks  []token.Token
	}{
		{"Brace tokens", res.Tokens.Brace},
		{"Script tokens", res.Tokens.Script},
	} {
		r.Header(2, side.title)
		t := r.newTable()
		t.AppendHeader(table.Row{"#", "Span", "Token", "Note"})
		for i, tok := range side.toks {
			note := ""
			if tok.Expanded() {
				note = "macro " + tok.Origin.Start.String()
			}
			t.AppendRow(table.Row{i, tok.Span.String(), tok.String(), note})
		}
		r.renderTable(t)
		r.Println("")
	}
	return nil
}

func (r *Renderer) newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	return t
}

func (r *Renderer) renderTable(t table.Writer) {
	if r.EffectiveMode() == ModeMarkdown {
		r.Println(t.RenderMarkdown())
		return
	}
	r.Println(t.Render())
}

func effects(t *trace.Trace) []trace.Effect {
	if t == nil {
		return nil
	}
	return t.Effects
}

func describeEffect(effs []trace.Effect, i int) string {
	if i >= len(effs) {
		return ""
	}
	e := effs[i]
	return fmt.Sprintf("%s %q @ %s", e.Kind, e.Payload, e.Span.Start)
}

func describeCell(s memory.Snapshot, name string) string {
	c, ok := s.Get(name)
	if !ok {
		return "-"
	}
	if c.DeclType != "" {
		return c.DeclType + " " + c.Value.Inspect()
	}
	return c.Value.Inspect()
}

func mergedNames(a, b memory.Snapshot) []string {
	seen := make(map[string]bool)
	var names []string
	for _, s := range []memory.Snapshot{a, b} {
		for _, n := range s.Names() {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	slices.Sort(names)
	return names
}

func excerpt(buf *source.Buffer, span token.Span) string {
	if buf == nil {
		return ""
	}
	return buf.Excerpt(span)
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}
