package source

import (
	"testing"

	"github.com/leapstack-labs/leapglot/pkg/token"
	"github.com/stretchr/testify/assert"
)

func TestPosition(t *testing.T) {
	b := New("t.c", "ab\ncd\n\nef")

	tests := []struct {
		offset    int
		line, col int
	}{
		{0, 1, 1},
		{1, 1, 2},
		{2, 1, 3},
		{3, 2, 1},
		{6, 3, 1},
		{7, 4, 1},
		{9, 4, 3},
		{100, 4, 3},
	}
	for _, tt := range tests {
		p := b.Position(tt.offset)
		assert.Equal(t, tt.line, p.Line, "offset %d", tt.offset)
		assert.Equal(t, tt.col, p.Column, "offset %d", tt.offset)
	}
	assert.Equal(t, 4, b.LineCount())
}

func TestSliceAndLine(t *testing.T) {
	b := New("t.c", "int x;\r\nputs 1\n")

	assert.Equal(t, "x", b.Slice(b.Span(4, 5)))
	assert.Equal(t, "int x;", b.Line(1))
	assert.Equal(t, "puts 1", b.Line(2))
	assert.Equal(t, "", b.Line(3))
	assert.Equal(t, "", b.Line(9))
	assert.Equal(t, "", b.Slice(b.Span(5, 4)))
}

func TestExcerpt(t *testing.T) {
	b := New("t.c", "x = 1\nint main() do\n")
	got := b.Excerpt(b.Span(17, 19))
	assert.Equal(t, "   2 | int main() do\n     |            ^^", got)
	assert.Empty(t, b.Excerpt(token.Span{}))
}
