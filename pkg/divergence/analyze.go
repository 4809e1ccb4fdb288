package divergence

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapglot/pkg/core"
	"github.com/leapstack-labs/leapglot/pkg/memory"
	"github.com/leapstack-labs/leapglot/pkg/token"
	"github.com/leapstack-labs/leapglot/pkg/trace"
)

// Errors carries each grammar's failure, from any stage.
type Errors struct {
	Brace  error
	Script error
}

func (e Errors) of(g token.Grammar) error {
	if g == token.Brace {
		return e.Brace
	}
	return e.Script
}

// frontEnd reports whether err stopped its grammar before execution.
func frontEnd(err error) bool {
	k, ok := core.KindOf(err)
	return ok && (k == core.KindParse || k == core.KindPreprocess)
}

// Analyze compares the brace run (a, snapA) with the script run (b, snapB).
// Either trace may be nil when its grammar never executed.
func Analyze(a, b *trace.Trace, snapA, snapB memory.Snapshot, errs Errors) *Report {
	r := &Report{Entries: []Entry{}}
	if a == nil {
		a = trace.New(token.Brace)
	}
	if b == nil {
		b = trace.New(token.Script)
	}

	for _, g := range []token.Grammar{token.Brace, token.Script} {
		if err := errs.of(g); err != nil {
			r.Entries = append(r.Entries, errorEntry(g, err))
		}
	}

	switch {
	case frontEnd(errs.Brace) && frontEnd(errs.Script):
		r.Verdict = VerdictBothFailed
	case frontEnd(errs.Brace) || frontEnd(errs.Script):
		r.Verdict = VerdictNotPolyglot
	default:
		outputsMatch := compareOutputs(r, a.Outputs(), b.Outputs())
		control := compareControl(a, b)
		if outputsMatch {
			r.Entries = append(r.Entries, control...)
			compareMemory(r, snapA, snapB)
		} else if len(control) > 0 {
			annotateViolations(r, control[0])
		}
		r.Verdict = verdictOf(r)
	}

	r.sort()
	return r
}

func verdictOf(r *Report) Verdict {
	switch {
	case r.Count(Error) > 0:
		return VerdictNotPolyglot
	case r.Count(Violation) > 0:
		return VerdictViolation
	case r.Count(Benign) > 0:
		return VerdictBenign
	}
	return VerdictEquivalent
}

func errorEntry(g token.Grammar, err error) Entry {
	e := Entry{Classification: Error, Grammar: g, Explanation: err.Error()}
	var ce *core.Error
	if errors.As(err, &ce) {
		e.Span = ce.Span
		e.ErrorKind = ce.Kind.String()
		e.Explanation = ce.Message
		if ce.Cause != nil {
			e.Explanation = strings.TrimPrefix(e.Explanation+": "+ce.Cause.Error(), ": ")
		}
	}
	return e
}

// compareOutputs adds output entries and reports whether both sides printed
// the same payloads in the same order.
func compareOutputs(r *Report, oa, ob []trace.Effect) bool {
	n := min(len(oa), len(ob))
	for i := range n {
		x, y := oa[i], ob[i]
		if x.Payload != y.Payload {
			r.Entries = append(r.Entries, Entry{
				Span:           x.Span,
				Classification: Violation,
				Grammar:        token.Shared,
				Explanation: fmt.Sprintf("output #%d differs: brace printed %q at %s, script printed %q at %s",
					i+1, x.Payload, x.Span.Start, y.Payload, y.Span.Start),
			})
			return false
		}
	}
	for _, x := range oa[n:] {
		r.Entries = append(r.Entries, Entry{
			Span:           x.Span,
			Classification: Violation,
			Grammar:        token.Brace,
			Explanation:    fmt.Sprintf("output %q is printed only by the brace grammar", x.Payload),
		})
	}
	for _, y := range ob[n:] {
		r.Entries = append(r.Entries, Entry{
			Span:           y.Span,
			Classification: Violation,
			Grammar:        token.Script,
			Explanation:    fmt.Sprintf("output %q is printed only by the script grammar", y.Payload),
		})
	}
	if len(oa) != len(ob) {
		return false
	}

	for i := range oa {
		x, y := oa[i], ob[i]
		if x.Span == y.Span {
			r.Entries = append(r.Entries, Entry{
				Span:           x.Span,
				Classification: Equivalent,
				Grammar:        token.Shared,
				Explanation:    fmt.Sprintf("both grammars print %q", x.Payload),
			})
			continue
		}
		r.Entries = append(r.Entries, Entry{
			Span:           x.Span,
			Classification: Benign,
			Grammar:        token.Shared,
			Explanation: fmt.Sprintf("output %q comes from %s under brace and %s under script",
				x.Payload, x.Span.Start, y.Span.Start),
		})
	}
	return true
}

type controlKey struct {
	kind trace.Kind
	span token.Span
}

// compareControl returns benign entries for branch and short-circuit
// effects whose decisions differ between the grammars.
func compareControl(a, b *trace.Trace) []Entry {
	var keys []controlKey
	seen := map[controlKey]bool{}
	group := func(t *trace.Trace) map[controlKey][]string {
		m := map[controlKey][]string{}
		for _, e := range t.Effects {
			if e.Kind == trace.Output {
				continue
			}
			k := controlKey{e.Kind, e.Span}
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
			m[k] = append(m[k], e.Payload)
		}
		return m
	}
	ga, gb := group(a), group(b)

	var out []Entry
	for _, k := range keys {
		pa, pb := ga[k], gb[k]
		if strings.Join(pa, ",") == strings.Join(pb, ",") {
			continue
		}
		g := token.Shared
		switch {
		case len(pb) == 0:
			g = token.Brace
		case len(pa) == 0:
			g = token.Script
		}
		out = append(out, Entry{
			Span:           k.span,
			Classification: Benign,
			Grammar:        g,
			Explanation:    fmt.Sprintf("%s differs: brace %s, script %s", k.kind, describe(pa), describe(pb)),
		})
	}
	return out
}

func describe(payloads []string) string {
	if len(payloads) == 0 {
		return "never reaches it"
	}
	const maxShown = 4
	shown := payloads
	if len(shown) > maxShown {
		shown = shown[:maxShown]
	}
	s := strings.Join(shown, ", ")
	if len(payloads) > maxShown {
		s += fmt.Sprintf(", ... (%d times)", len(payloads))
	}
	return s
}

// annotateViolations points each violation at the first control-flow
// divergence, which usually explains it.
func annotateViolations(r *Report, first Entry) {
	for i := range r.Entries {
		if r.Entries[i].Classification == Violation {
			r.Entries[i].Explanation += fmt.Sprintf("; control flow first diverges at %s (%s)",
				first.Span.Start, first.Explanation)
		}
	}
}

// compareMemory adds benign entries for cells both grammars created but
// left with different values.
func compareMemory(r *Report, snapA, snapB memory.Snapshot) {
	changed, _, _ := snapA.Diff(snapB)
	for _, d := range changed {
		r.Entries = append(r.Entries, Entry{
			Span:           d.Left.Span,
			Classification: Benign,
			Grammar:        token.Shared,
			Explanation: fmt.Sprintf("%s ends as %s under brace and %s under script",
				d.Name, d.Left.Value.Inspect(), d.Right.Value.Inspect()),
		})
	}
}
