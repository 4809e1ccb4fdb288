// Package trace records the observable effects of one execution.
package trace

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapglot/pkg/token"
)

// Kind classifies an effect.
type Kind uint8

// Effect kinds.
const (
	Output Kind = iota
	Branch
	ShortCircuit
)

var kindNames = [...]string{"output", "branch", "short-circuit"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	for i, n := range kindNames {
		if n == string(b) {
			*k = Kind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown effect kind %q", b)
}

// Effect is one observable event. Output payloads are the exact bytes
// written; branch payloads are "taken" or "skipped"; short-circuit payloads
// name the operator that stopped early.
type Effect struct {
	Kind    Kind          `json:"kind"`
	Payload string        `json:"payload"`
	Span    token.Span    `json:"span"`
	Grammar token.Grammar `json:"grammar"`
}

func (e Effect) String() string {
	return fmt.Sprintf("%s %s %q @ %s", e.Grammar.Label(), e.Kind, e.Payload, e.Span)
}

// Trace is the ordered list of effects produced by one grammar's run.
type Trace struct {
	Grammar token.Grammar `json:"grammar"`
	Effects []Effect      `json:"effects"`
}

// New returns an empty trace for g.
func New(g token.Grammar) *Trace {
	return &Trace{Grammar: g, Effects: []Effect{}}
}

// Emit appends an output effect.
func (t *Trace) Emit(payload string, span token.Span) {
	t.add(Output, payload, span)
}

// Branch records a conditional decision.
func (t *Trace) Branch(taken bool, span token.Span) {
	p := "skipped"
	if taken {
		p = "taken"
	}
	t.add(Branch, p, span)
}

// ShortCircuit records a logical operator that did not evaluate its right side.
func (t *Trace) ShortCircuit(op string, span token.Span) {
	t.add(ShortCircuit, op, span)
}

func (t *Trace) add(k Kind, payload string, span token.Span) {
	t.Effects = append(t.Effects, Effect{Kind: k, Payload: payload, Span: span, Grammar: t.Grammar})
}

// Outputs returns only the output effects, in order.
func (t *Trace) Outputs() []Effect {
	if t == nil {
		return nil
	}
	var out []Effect
	for _, e := range t.Effects {
		if e.Kind == Output {
			out = append(out, e)
		}
	}
	return out
}

// Stdout concatenates all output payloads.
func (t *Trace) Stdout() string {
	var sb strings.Builder
	for _, e := range t.Outputs() {
		sb.WriteString(e.Payload)
	}
	return sb.String()
}

// Len returns the number of effects.
func (t *Trace) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Effects)
}
