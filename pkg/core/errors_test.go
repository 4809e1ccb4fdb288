package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/leapstack-labs/leapglot/pkg/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func span(line, col int) token.Span {
	p := token.Position{Line: line, Column: col, Offset: col - 1}
	return token.Span{Start: p, End: p}
}

func TestErrorIsMatchesKind(t *testing.T) {
	err := Errorf(KindParse, token.Script, span(3, 4), "unexpected %s", "end")

	assert.True(t, errors.Is(err, ErrParse))
	assert.False(t, errors.Is(err, ErrPreprocess))

	wrapped := fmt.Errorf("front end: %w", err)
	assert.True(t, errors.Is(wrapped, ErrParse))

	k, ok := KindOf(wrapped)
	require.True(t, ok)
	assert.Equal(t, KindParse, k)
}

func TestErrorMessage(t *testing.T) {
	err := Errorf(KindUnresolvedShim, token.Script, span(2, 1), "undefined method %q", "foo")
	assert.Equal(t, `unresolved-shim at line 2, column 1: undefined method "foo"`, err.Error())

	bare := &Error{Kind: KindExpansionLimit, Message: "too many expansions"}
	assert.Equal(t, "expansion-limit-exceeded: too many expansions", bare.Error())
}

func TestWrap(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(cause, KindRuntime, token.Brace)
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrRuntime)
	assert.Contains(t, err.Error(), "boom")

	orig := Errorf(KindParse, token.Brace, span(1, 1), "x")
	assert.Same(t, orig, Wrap(fmt.Errorf("ctx: %w", orig), KindRuntime, token.Brace))
	assert.Nil(t, Wrap(nil, KindRuntime, token.Brace))
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(Errorf(KindExpansionLimit, token.Shared, token.Span{}, "limit")))
	assert.False(t, IsFatal(Errorf(KindParse, token.Brace, token.Span{}, "x")))
	assert.False(t, IsFatal(errors.New("plain")))
}

func TestParseErrorKind(t *testing.T) {
	k, ok := ParseErrorKind("Arity-Mismatch")
	require.True(t, ok)
	assert.Equal(t, KindArityMismatch, k)

	_, ok = ParseErrorKind("nope")
	assert.False(t, ok)
}
