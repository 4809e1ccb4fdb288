package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapglot/internal/testutil"
	"github.com/leapstack-labs/leapglot/pkg/token"
	"github.com/leapstack-labs/leapglot/pkg/value"
)

func TestAssignWritesNearestCell(t *testing.T) {
	s := New(testutil.NewTestLogger(t))
	s.Global().Declare("ret", "int", value.Int(0), token.Span{}, token.Brace)

	fn := s.NewScope(s.Global(), ScopeFunction)
	blk := s.NewScope(fn, ScopeBlock)
	blk.Assign("ret", value.Int(10), token.Span{}, token.Brace)
	blk.Assign("tmp", value.Int(1), token.Span{}, token.Brace)

	c, ok := s.Lookup("ret")
	require.True(t, ok)
	assert.Equal(t, value.Int(10), c.Value)
	assert.Equal(t, "int", c.DeclType)

	_, ok = s.Lookup("tmp")
	assert.False(t, ok, "tmp belongs to the block scope")
	_, ok = fn.Lookup("tmp")
	assert.False(t, ok)
	assert.Equal(t, 2, s.ScopesOpened())
}

func TestGateStopsLookup(t *testing.T) {
	s := New(nil)
	s.Inject("x", value.Int(1))

	gate := s.NewScope(nil, ScopeFunction)
	_, ok := gate.Lookup("x")
	assert.False(t, ok)

	gate.Assign("x", value.Int(2), token.Span{}, token.Script)
	assert.Equal(t, value.Int(1), s.Snapshot().Value("x"))
}

func TestSnapshotIsSortedDeepCopy(t *testing.T) {
	s := New(nil)
	s.Inject("b", value.Array(value.Int(1)))
	s.Inject("a", value.Int(2))

	snap := s.Snapshot()
	assert.Equal(t, []string{"a", "b"}, snap.Names())

	c, _ := s.Lookup("b")
	c.Value.Elems[0] = value.Int(99)
	assert.Equal(t, value.Int(1), snap.Value("b").Elems[0])

	s.Reset()
	assert.Empty(t, s.Snapshot())
	assert.Len(t, snap, 2)
	assert.True(t, snap.Value("missing").IsNil())
}

func TestSnapshotDiff(t *testing.T) {
	left := New(nil)
	left.Inject("i", value.Int(4))
	left.Inject("a", value.Int(1))
	left.Inject("same", value.Str("x"))

	right := New(nil)
	right.Inject("i", value.Int(5))
	right.Inject("same", value.Str("x"))
	right.Inject("z", value.Nil)

	changed, onlyLeft, onlyRight := left.Snapshot().Diff(right.Snapshot())
	require.Len(t, changed, 1)
	assert.Equal(t, "i", changed[0].Name)
	assert.Equal(t, value.Int(4), changed[0].Left.Value)
	assert.Equal(t, []string{"a"}, onlyLeft)
	assert.Equal(t, []string{"z"}, onlyRight)
}
