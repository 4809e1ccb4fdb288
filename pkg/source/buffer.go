// Package source holds the immutable text every pipeline stage refers back to.
//
// Tokens, AST nodes, trace effects and report entries carry byte spans into a
// Buffer instead of copies of the text, so the same Buffer must be used for
// the whole run.
package source

import (
	"fmt"
	"sort"
	"strings"

	"github.com/leapstack-labs/leapglot/pkg/token"
)

// Buffer is an immutable named source text with a precomputed line index.
type Buffer struct {
	name  string
	text  string
	lines []int // byte offset of the first byte of each line
}

// New creates a Buffer. Name is used only for display.
func New(name, text string) *Buffer {
	lines := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			lines = append(lines, i+1)
		}
	}
	return &Buffer{name: name, text: text, lines: lines}
}

// Name returns the display name of the buffer.
func (b *Buffer) Name() string { return b.name }

// Text returns the full text.
func (b *Buffer) Text() string { return b.text }

// Len returns the length in bytes.
func (b *Buffer) Len() int { return len(b.text) }

// LineCount returns the number of lines.
func (b *Buffer) LineCount() int { return len(b.lines) }

// Position converts a byte offset into a line/column position.
// Offsets past the end clamp to the end of the buffer.
func (b *Buffer) Position(offset int) token.Position {
	if offset < 0 {
		offset = 0
	}
	if offset > len(b.text) {
		offset = len(b.text)
	}
	line := sort.Search(len(b.lines), func(i int) bool { return b.lines[i] > offset }) - 1
	return token.Position{
		Line:   line + 1,
		Column: offset - b.lines[line] + 1,
		Offset: offset,
	}
}

// Span builds a span for the byte range [start, end).
func (b *Buffer) Span(start, end int) token.Span {
	return token.Span{Start: b.Position(start), End: b.Position(end)}
}

// Slice returns the text covered by span.
func (b *Buffer) Slice(span token.Span) string {
	start, end := span.Start.Offset, span.End.Offset
	if start < 0 {
		start = 0
	}
	if end > len(b.text) {
		end = len(b.text)
	}
	if start >= end {
		return ""
	}
	return b.text[start:end]
}

// Line returns the text of the 1-based line n without its terminator.
func (b *Buffer) Line(n int) string {
	if n < 1 || n > len(b.lines) {
		return ""
	}
	start := b.lines[n-1]
	end := len(b.text)
	if n < len(b.lines) {
		end = b.lines[n] - 1
	}
	return strings.TrimSuffix(b.text[start:end], "\r")
}

// Excerpt renders the first line of span with a caret underline beneath
// the spanned columns, for diagnostics.
func (b *Buffer) Excerpt(span token.Span) string {
	if !span.IsValid() {
		return ""
	}
	line := b.Line(span.Start.Line)
	width := span.Len()
	if span.End.Line != span.Start.Line || width <= 0 {
		width = len(line) - span.Start.Column + 1
	}
	if width < 1 {
		width = 1
	}
	gutter := fmt.Sprintf("%4d", span.Start.Line)
	var sb strings.Builder
	sb.WriteString(gutter)
	sb.WriteString(" | ")
	sb.WriteString(line)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat(" ", len(gutter)))
	sb.WriteString(" | ")
	sb.WriteString(strings.Repeat(" ", span.Start.Column-1))
	sb.WriteString(strings.Repeat("^", width))
	return sb.String()
}
