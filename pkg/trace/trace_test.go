package trace

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapglot/pkg/token"
)

func span(a, b int) token.Span {
	return token.Span{Start: token.Position{Line: 1, Column: a + 1, Offset: a}, End: token.Position{Line: 1, Column: b + 1, Offset: b}}
}

func TestTraceRecordsInOrder(t *testing.T) {
	tr := New(token.Script)
	tr.Emit("a\n", span(0, 5))
	tr.Branch(false, span(6, 10))
	tr.ShortCircuit("&&", span(11, 20))
	tr.Emit("b\n", span(21, 25))

	require.Equal(t, 4, tr.Len())
	assert.Equal(t, Branch, tr.Effects[1].Kind)
	assert.Equal(t, "skipped", tr.Effects[1].Payload)
	assert.Equal(t, token.Script, tr.Effects[2].Grammar)
	assert.Len(t, tr.Outputs(), 2)
	assert.Equal(t, "a\nb\n", tr.Stdout())
}

func TestNilTrace(t *testing.T) {
	var tr *Trace
	assert.Equal(t, 0, tr.Len())
	assert.Empty(t, tr.Stdout())
}

func TestKindJSON(t *testing.T) {
	b, err := json.Marshal(ShortCircuit)
	require.NoError(t, err)
	assert.Equal(t, `"short-circuit"`, string(b))

	var k Kind
	require.NoError(t, json.Unmarshal([]byte(`"branch"`), &k))
	assert.Equal(t, Branch, k)
	assert.Error(t, json.Unmarshal([]byte(`"jump"`), &k))
}
