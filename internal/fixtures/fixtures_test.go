package fixtures

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/leapglot/internal/testutil"
	"github.com/leapstack-labs/leapglot/pkg/shim"
	"github.com/leapstack-labs/leapglot/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yamlFixture = `
macros:
  - name: ZERO
    body: "0"
  - name: ADD
    params: [a, b]
    body: "a + b"
  - name: NOW
    params: []
    body: "42"
shims:
  - name: argc
    behavior: constant
    arity: 0
    value: 1
  - name: greet
    behavior: yield
  - name: vals
    behavior: constant-value
    value: [1, "two", 3.5, true]
`

const starFixture = `
macro("ZERO", "0")
macro(name = "ADD", body = "a + b", params = ["a", "b"])

def _declare_types(names):
    for n in names:
        shim(n)

_declare_types(["size_t", "uint8_t"])
shim("argc", behavior = "constant", arity = 0, value = 1)
shim("argv", behavior = "constant", arity = "fixed(0)", value = ["prog"])
print("ignored")
`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestParseYAML(t *testing.T) {
	set, err := ParseYAML([]byte(yamlFixture))
	require.NoError(t, err)

	require.Len(t, set.Macros, 3)
	assert.Nil(t, set.Macros[0].Params)
	assert.Equal(t, []string{"a", "b"}, set.Macros[1].Params)
	assert.NotNil(t, set.Macros[2].Params)
	assert.Empty(t, set.Macros[2].Params)

	fx, err := set.Fixtures()
	require.NoError(t, err)
	require.Len(t, fx.Macros, 3)
	assert.False(t, fx.Macros[0].FunctionLike)
	assert.True(t, fx.Macros[1].FunctionLike)
	assert.True(t, fx.Macros[2].FunctionLike)
	assert.True(t, fx.Macros[0].Predefined)

	require.Len(t, fx.Shims, 3)
	argc := fx.Shims[0]
	assert.Equal(t, shim.Constant, argc.Behavior)
	assert.Equal(t, shim.Fixed(0), argc.Arity)
	assert.Equal(t, value.Int(1), argc.Constant)
	assert.Equal(t, shim.SourceFixture, argc.Source)

	assert.Equal(t, shim.YieldToBlock, fx.Shims[1].Behavior)
	assert.Equal(t, shim.Variadic(), fx.Shims[1].Arity)

	assert.Equal(t, `[1, "two", 3.5, true]`, fx.Shims[2].Constant.Inspect())
}

func TestParseYAML_Errors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{name: "syntax", doc: "macros: [", wantErr: "invalid YAML"},
		{name: "unknown key", doc: "shimz: []", wantErr: "invalid fixture document"},
		{name: "unknown field", doc: "shims:\n  - name: x\n    colour: red\n", wantErr: "invalid fixture document"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseYAML([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseYAML_Empty(t *testing.T) {
	set, err := ParseYAML(nil)
	require.NoError(t, err)
	assert.Empty(t, set.Macros)
	assert.Empty(t, set.Shims)
}

func TestShimSpecDefinition_Errors(t *testing.T) {
	tests := []struct {
		name    string
		spec    ShimSpec
		wantErr string
	}{
		{name: "no name", spec: ShimSpec{}, wantErr: "without a name"},
		{name: "behavior", spec: ShimSpec{Name: "x", Behavior: "explode"}, wantErr: "unknown shim behavior"},
		{name: "arity", spec: ShimSpec{Name: "x", Arity: "lots"}, wantErr: "invalid arity"},
		{name: "value on pass-through", spec: ShimSpec{Name: "x", Value: 3}, wantErr: "only allowed for constant-value"},
		{name: "unsupported value", spec: ShimSpec{Name: "x", Behavior: "constant", Value: map[string]any{}}, wantErr: "unsupported value"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.spec.Definition()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseStarlark(t *testing.T) {
	set, err := ParseStarlark("fx.star", []byte(starFixture))
	require.NoError(t, err)

	require.Len(t, set.Macros, 2)
	assert.Equal(t, MacroSpec{Name: "ZERO", Body: "0"}, set.Macros[0])
	assert.Equal(t, []string{"a", "b"}, set.Macros[1].Params)

	require.Len(t, set.Shims, 4)
	assert.Equal(t, "size_t", set.Shims[0].Name)
	assert.Equal(t, "pass-through", set.Shims[0].Behavior)
	assert.Equal(t, "variadic", set.Shims[0].Arity)
	assert.Equal(t, "0", set.Shims[2].Arity)
	assert.Equal(t, int64(1), set.Shims[2].Value)
	assert.Equal(t, []any{"prog"}, set.Shims[3].Value)

	fx, err := set.Fixtures()
	require.NoError(t, err)
	assert.Equal(t, shim.Fixed(0), fx.Shims[3].Arity)
	assert.Equal(t, `["prog"]`, fx.Shims[3].Constant.Inspect())
}

func TestParseStarlark_Errors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr string
	}{
		{name: "syntax", src: "macro(", wantErr: "Starlark execution error"},
		{name: "missing body", src: `macro("X")`, wantErr: "missing argument for body"},
		{name: "bad params", src: `macro("X", "1", params = 3)`, wantErr: "params must be a list"},
		{name: "bad arity", src: `shim("x", arity = 1.5)`, wantErr: "arity must be a string or int"},
		{name: "bad value", src: `shim("x", behavior = "constant", value = {})`, wantErr: "unsupported value"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseStarlark("bad.star", []byte(tt.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestScanStarlark(t *testing.T) {
	decls, err := ScanStarlark("fx.star", []byte(starFixture))
	require.NoError(t, err)

	assert.Equal(t, []Declaration{
		{Kind: "macro", Name: "ZERO", Line: 2},
		{Kind: "macro", Name: "ADD", Line: 3},
		{Kind: "shim", Name: "argc", Line: 10},
		{Kind: "shim", Name: "argv", Line: 11},
	}, decls)

	_, err = ScanStarlark("bad.star", []byte("shim("))
	assert.Error(t, err)
}

func TestPrelude(t *testing.T) {
	fx := Prelude()
	require.Len(t, fx.Shims, 10)
	for _, def := range fx.Shims[:9] {
		assert.Equal(t, shim.PassThrough, def.Behavior, def.Name)
		assert.Equal(t, shim.Variadic(), def.Arity, def.Name)
	}
	assert.Equal(t, "main", fx.Shims[9].Name)
	assert.Equal(t, shim.YieldToBlock, fx.Shims[9].Behavior)
	assert.Empty(t, fx.Macros)
}

func TestLoader(t *testing.T) {
	yamlPath := writeFile(t, "shims.yaml", yamlFixture)
	starPath := writeFile(t, "more.star", starFixture)

	t.Run("prelude and files", func(t *testing.T) {
		fx, err := NewLoader(true, testutil.NewTestLogger(t)).Load(yamlPath, starPath)
		require.NoError(t, err)
		assert.Len(t, fx.Macros, 5)
		assert.Len(t, fx.Shims, 10+3+4)
		assert.Equal(t, "int", fx.Shims[0].Name)
	})

	t.Run("no prelude", func(t *testing.T) {
		fx, err := NewLoader(false, nil).Load(yamlPath)
		require.NoError(t, err)
		assert.Len(t, fx.Shims, 3)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := NewLoader(false, nil).Load(filepath.Join(t.TempDir(), "gone.yaml"))
		var le *LoadError
		require.ErrorAs(t, err, &le)
		assert.Contains(t, err.Error(), "fixtures/gone.yaml: failed to read file")
	})

	t.Run("unsupported extension", func(t *testing.T) {
		_, err := NewLoader(false, nil).Load(writeFile(t, "x.json", "{}"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported fixture file")
	})

	t.Run("invalid declaration", func(t *testing.T) {
		_, err := NewLoader(false, nil).Load(writeFile(t, "bad.yaml", "shims:\n  - behavior: yield\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "shim without a name")
	})
}
