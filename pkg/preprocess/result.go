package preprocess

import (
	"sort"

	"github.com/leapstack-labs/leapglot/pkg/token"
)

// ElisionReason says why a span is inert to the brace grammar.
type ElisionReason int

// Elision reasons.
const (
	ElideComment ElisionReason = iota
	ElideDirective
	ElideConditional
)

// String returns the reason name.
func (r ElisionReason) String() string {
	switch r {
	case ElideComment:
		return "comment"
	case ElideDirective:
		return "directive"
	case ElideConditional:
		return "conditional"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r ElisionReason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// ElidedSpan is a byte range the brace grammar ignores. The script grammar
// never consults this list.
type ElidedSpan struct {
	Span   token.Span    `json:"span"`
	Reason ElisionReason `json:"reason"`
}

// MarkerKind identifies a directive that has no effect beyond being noted.
type MarkerKind int

// Marker kinds.
const (
	MarkerInclude MarkerKind = iota
	MarkerLine
	MarkerPragma
	MarkerWarning
)

// String returns the marker name.
func (k MarkerKind) String() string {
	switch k {
	case MarkerInclude:
		return "include"
	case MarkerLine:
		return "line"
	case MarkerPragma:
		return "pragma"
	case MarkerWarning:
		return "warning"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k MarkerKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Marker records a no-op directive such as #include.
type Marker struct {
	Kind MarkerKind `json:"kind"`
	Span token.Span `json:"span"`
	Arg  string     `json:"arg,omitempty"`
}

// Result is the preprocessed brace view of a buffer.
type Result struct {
	// Tokens is the expanded stream, terminated by EOF. Every token's Span
	// is a range of the original buffer; expanded tokens carry Origin.
	Tokens []token.Token `json:"tokens"`
	// Macros is the table as it stands at the end of the buffer.
	Macros *Table `json:"-"`
	// Elided lists comment, directive and skipped-conditional spans.
	Elided []ElidedSpan `json:"elided"`
	// Markers lists no-op directives.
	Markers []Marker `json:"markers,omitempty"`
	// Comments are the brace-grammar comments.
	Comments []token.Comment `json:"comments,omitempty"`
	// Expansions counts macro invocations replaced.
	Expansions int `json:"expansions"`
	// Defined lists every #define in source order, including ones later
	// removed with #undef.
	Defined []*Macro `json:"defined,omitempty"`
}

// SourceSpan returns the original-buffer span of output token i.
func (r *Result) SourceSpan(i int) token.Span {
	return r.Tokens[i].Span
}

// OriginSpan returns the span of the macro replacement text that produced
// output token i, if it came from a macro defined in the buffer.
func (r *Result) OriginSpan(i int) (token.Span, bool) {
	if o := r.Tokens[i].Origin; o != nil {
		return *o, true
	}
	return token.Span{}, false
}

// IsElided reports whether the byte at offset is inert to the brace grammar.
func (r *Result) IsElided(offset int) bool {
	for _, e := range r.Elided {
		if e.Span.Contains(offset) {
			return true
		}
	}
	return false
}

func (r *Result) sortElided() {
	sort.SliceStable(r.Elided, func(i, j int) bool {
		return r.Elided[i].Span.Compare(r.Elided[j].Span) < 0
	})
}
