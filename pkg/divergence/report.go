// Package divergence compares the effects of one buffer run under both
// grammars and classifies every difference.
package divergence

import (
	"fmt"
	"slices"
	"strings"

	"github.com/leapstack-labs/leapglot/pkg/core"
	"github.com/leapstack-labs/leapglot/pkg/token"
)

// Classification grades a single report entry.
type Classification string

// Entry classifications, mildest first.
const (
	Equivalent Classification = "equivalent"
	Benign     Classification = "benign-divergence"
	Violation  Classification = "violation"
	Error      Classification = "error"
)

func (c Classification) rank() int {
	switch c {
	case Equivalent:
		return 0
	case Benign:
		return 1
	case Violation:
		return 2
	}
	return 3
}

// Verdict is the overall outcome of a report.
type Verdict string

// Verdicts.
const (
	VerdictEquivalent  Verdict = "equivalent"
	VerdictBenign      Verdict = "benign-divergence"
	VerdictViolation   Verdict = "violation"
	VerdictNotPolyglot Verdict = "not-polyglot"
	VerdictBothFailed  Verdict = "both-failed"
)

// Polyglot reports whether the verdict accepts the buffer as a polyglot.
func (v Verdict) Polyglot() bool {
	return v == VerdictEquivalent || v == VerdictBenign
}

// Entry is one finding, anchored at a span of the original buffer.
type Entry struct {
	Span           token.Span     `json:"span"`
	Classification Classification `json:"classification"`
	Grammar        token.Grammar  `json:"grammar"`
	Explanation    string         `json:"explanation"`
	// ErrorKind is set on error entries.
	ErrorKind string `json:"error_kind,omitempty"`
}

func (e Entry) String() string {
	return fmt.Sprintf("%s [%s] %s: %s", e.Span.Start, e.Grammar.Label(), e.Classification, e.Explanation)
}

// Report is the result of comparing two runs.
type Report struct {
	Verdict Verdict `json:"verdict"`
	Entries []Entry `json:"entries"`
}

// Count returns the number of entries with classification c.
func (r *Report) Count(c Classification) int {
	n := 0
	for _, e := range r.Entries {
		if e.Classification == c {
			n++
		}
	}
	return n
}

// Filter returns the entries with classification c, in report order.
func (r *Report) Filter(c Classification) []Entry {
	var out []Entry
	for _, e := range r.Entries {
		if e.Classification == c {
			out = append(out, e)
		}
	}
	return out
}

// Err returns a BothGrammarsFailed error when neither grammar parsed.
func (r *Report) Err() error {
	if r.Verdict != VerdictBothFailed {
		return nil
	}
	return core.Errorf(core.KindBothGrammarsFailed, token.Shared, token.Span{}, "neither grammar accepted the buffer")
}

// Summary renders a one-line count of the entries.
func (r *Report) Summary() string {
	var parts []string
	for _, c := range []Classification{Violation, Error, Benign, Equivalent} {
		if n := r.Count(c); n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, c))
		}
	}
	if len(parts) == 0 {
		return string(r.Verdict)
	}
	return fmt.Sprintf("%s (%s)", r.Verdict, strings.Join(parts, ", "))
}

// sort orders entries by span, then grammar, then severity and text.
func (r *Report) sort() {
	slices.SortStableFunc(r.Entries, func(a, b Entry) int {
		if c := a.Span.Compare(b.Span); c != 0 {
			return c
		}
		if a.Grammar != b.Grammar {
			return int(a.Grammar) - int(b.Grammar)
		}
		if a.Classification != b.Classification {
			return b.Classification.rank() - a.Classification.rank()
		}
		return strings.Compare(a.Explanation, b.Explanation)
	})
}
