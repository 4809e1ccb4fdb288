package shim

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapglot/internal/testutil"
	"github.com/leapstack-labs/leapglot/pkg/core"
	"github.com/leapstack-labs/leapglot/pkg/token"
	"github.com/leapstack-labs/leapglot/pkg/value"
)

// recorder runs blocks by appending their name to a log.
type recorder struct {
	calls []string
	args  [][]value.Value
}

func (r *recorder) call(b *value.Block, args []value.Value, _ *value.Block) (value.Value, error) {
	r.calls = append(r.calls, b.Name)
	r.args = append(r.args, args)
	return value.Str(b.Name), nil
}

func newRegistry(t *testing.T) *Registry {
	t.Helper()
	return New(Config{Logger: testutil.NewTestLogger(t)})
}

func TestDeclareRedefineInvoke(t *testing.T) {
	r := newRegistry(t)
	_, err := r.Declare(Definition{Name: "f", Arity: Variadic(), Behavior: RedefineSelf, Source: SourceFixture})
	require.NoError(t, err)

	rec := &recorder{}

	// No block yet: a no-op.
	v, err := r.Invoke("f", nil, nil, rec.call)
	require.NoError(t, err)
	assert.True(t, v.IsNil())
	assert.Empty(t, rec.calls)

	// With a block: the shim becomes yield-to-block bound to it.
	body := &value.Block{Name: "body"}
	_, err = r.Invoke("f", nil, body, rec.call)
	require.NoError(t, err)
	assert.Empty(t, rec.calls, "redefinition does not run the block")

	def, ok := r.Lookup("f")
	require.True(t, ok)
	assert.Equal(t, YieldToBlock, def.Behavior)
	assert.Same(t, body, def.Block)
	assert.Equal(t, SourceFixture, def.Source)

	// Later calls run the stored block.
	v, err = r.Invoke("f", nil, nil, rec.call)
	require.NoError(t, err)
	assert.Equal(t, value.Str("body"), v)
	assert.Equal(t, []string{"body"}, rec.calls)
	assert.Equal(t, 1, r.Redefinitions())
}

func TestRedefinitionIsIdempotent(t *testing.T) {
	once := newRegistry(t)
	twice := newRegistry(t)
	body := &value.Block{Name: "same"}

	require.NoError(t, once.Redefine("g", body))
	require.NoError(t, twice.Redefine("g", body))
	require.NoError(t, twice.Redefine("g", body))

	a, b := &recorder{}, &recorder{}
	_, err := once.Invoke("g", nil, nil, a.call)
	require.NoError(t, err)
	_, err = twice.Invoke("g", nil, nil, b.call)
	require.NoError(t, err)
	assert.Equal(t, a.calls, b.calls)
	assert.Equal(t, once.Len(), twice.Len())
}

func TestResolve(t *testing.T) {
	r := newRegistry(t)
	_, _ = r.Declare(Definition{Name: "int", Arity: Variadic(), Behavior: PassThrough})
	_, _ = r.Declare(Definition{Name: "zero", Arity: Fixed(0), Behavior: Constant, Constant: value.Int(0)})
	_, _ = r.Declare(Definition{Name: "main", Arity: Variadic(), Behavior: YieldToBlock})

	tests := []struct {
		name     string
		shim     string
		argc     int
		hasBlock bool
		want     ResolutionKind
		wantErr  error
	}{
		{"pass-through", "int", 2, false, ResolvePassThrough, nil},
		{"constant", "zero", 0, false, ResolveConstant, nil},
		{"yield with block", "main", 0, true, ResolveYield, nil},
		{"yield without anything", "main", 0, false, ResolveNone, nil},
		{"implicit redefine", "f", 0, true, ResolveRedefine, nil},
		{"unresolved", "f", 0, false, 0, core.ErrUnresolvedShim},
		{"arity", "zero", 1, false, 0, core.ErrArityMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := r.Resolve(tt.shim, tt.argc, tt.hasBlock)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Kind)
		})
	}
}

func TestPassThroughAndConstant(t *testing.T) {
	r := newRegistry(t)
	_, _ = r.Declare(Definition{Name: "int", Arity: Variadic(), Behavior: PassThrough})
	_, _ = r.Declare(Definition{Name: "argv", Arity: Fixed(0), Behavior: Constant, Constant: value.Int(0)})

	v, err := r.Invoke("int", []value.Value{value.Int(1), value.Int(2)}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, value.Int(2), v)

	v, err = r.Invoke("int", nil, nil, nil)
	require.NoError(t, err)
	assert.True(t, v.IsNil())

	v, err = r.Invoke("argv", nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, value.Int(0), v)
}

func TestSourceDefinitionReceivesArgs(t *testing.T) {
	r := newRegistry(t)
	_, err := r.Declare(ForDef("twice", []string{"x", "&blk"}, nil, false, spanAt(0)))
	require.NoError(t, err)

	rec := &recorder{}
	_, err = r.Invoke("twice", []value.Value{value.Int(3)}, nil, rec.call)
	require.NoError(t, err)
	assert.Equal(t, [][]value.Value{{value.Int(3)}}, rec.args)

	_, err = r.Invoke("twice", nil, nil, rec.call)
	assert.ErrorIs(t, err, core.ErrArityMismatch)

	self := ForDef("f", []string{"&b"}, nil, true, spanAt(0))
	assert.Equal(t, RedefineSelf, self.Behavior)
	assert.True(t, self.AcceptsBlock())

	rest := ForDef("int", []string{"*a"}, nil, false, spanAt(0))
	assert.Equal(t, Variadic(), rest.Arity)
	assert.True(t, rest.Block.Variadic)
}

func TestRedefinitionLimit(t *testing.T) {
	r := New(Config{MaxRedefinitions: 2})
	b := &value.Block{Name: "b"}
	require.NoError(t, r.Redefine("f", b))
	require.NoError(t, r.Redefine("f", b))
	err := r.Redefine("f", b)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrExpansionLimit)
	assert.True(t, core.IsFatal(err))
}

func TestCloneIsIndependent(t *testing.T) {
	r := newRegistry(t)
	_, _ = r.Declare(Definition{Name: "int", Behavior: PassThrough})
	c := r.Clone()
	require.NoError(t, c.Redefine("int", &value.Block{Name: "x"}))

	def, _ := r.Lookup("int")
	assert.Equal(t, PassThrough, def.Behavior)
	assert.False(t, r.AcceptsBlock("int"))
	assert.True(t, c.AcceptsBlock("int"))
	assert.True(t, r.AcceptsBlock("undeclared"))
	assert.Equal(t, []string{"int"}, r.Names())
}

func TestParseHelpers(t *testing.T) {
	b, err := ParseBehavior("yield")
	require.NoError(t, err)
	assert.Equal(t, YieldToBlock, b)
	_, err = ParseBehavior("teleport")
	assert.Error(t, err)

	a, err := ParseArity("fixed(2)")
	require.NoError(t, err)
	assert.Equal(t, Fixed(2), a)
	a, err = ParseArity("1")
	require.NoError(t, err)
	assert.Equal(t, Fixed(1), a)
	a, err = ParseArity("")
	require.NoError(t, err)
	assert.Equal(t, Variadic(), a)
	_, err = ParseArity("lots")
	assert.Error(t, err)
}

func spanAt(off int) token.Span {
	p := token.Position{Line: 1, Column: off + 1, Offset: off}
	return token.Span{Start: p, End: p}
}
