package token

import "fmt"

// Position represents a location in the source buffer.
type Position struct {
	Line   int `json:"line"`   // 1-based line number
	Column int `json:"column"` // 1-based column number
	Offset int `json:"offset"` // 0-based byte offset
}

// IsValid returns true if the position is valid (line > 0).
func (p Position) IsValid() bool {
	return p.Line > 0
}

// String formats the position as line:column.
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Span represents a half-open byte range [Start.Offset, End.Offset) in the source buffer.
type Span struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Contains returns true if the span contains the given offset.
func (s Span) Contains(offset int) bool {
	return offset >= s.Start.Offset && offset < s.End.Offset
}

// IsValid returns true if both start and end positions are valid.
func (s Span) IsValid() bool {
	return s.Start.IsValid() && s.End.IsValid()
}

// Len returns the number of bytes covered by the span.
func (s Span) Len() int {
	return s.End.Offset - s.Start.Offset
}

// Overlaps reports whether two spans share at least one byte.
func (s Span) Overlaps(o Span) bool {
	return s.Start.Offset < o.End.Offset && o.Start.Offset < s.End.Offset
}

// Join returns the smallest span covering both s and o.
// An invalid span is treated as empty.
func (s Span) Join(o Span) Span {
	if !s.IsValid() {
		return o
	}
	if !o.IsValid() {
		return s
	}
	out := s
	if o.Start.Offset < out.Start.Offset {
		out.Start = o.Start
	}
	if o.End.Offset > out.End.Offset {
		out.End = o.End
	}
	return out
}

// Compare orders spans by start offset, then end offset.
func (s Span) Compare(o Span) int {
	switch {
	case s.Start.Offset < o.Start.Offset:
		return -1
	case s.Start.Offset > o.Start.Offset:
		return 1
	case s.End.Offset < o.End.Offset:
		return -1
	case s.End.Offset > o.End.Offset:
		return 1
	}
	return 0
}

// String formats the span as line:col-line:col.
func (s Span) String() string {
	return fmt.Sprintf("%s-%s", s.Start, s.End)
}
