package value

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapglot/pkg/token"
)

func TestTruthyPerGrammar(t *testing.T) {
	tests := []struct {
		v      Value
		brace  bool
		script bool
	}{
		{Int(0), false, true},
		{Int(3), true, true},
		{Float(0), false, true},
		{Nil, false, false},
		{False, false, false},
		{Str(""), true, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.brace, tt.v.Truthy(token.Brace), "brace %#v", tt.v)
		assert.Equal(t, tt.script, tt.v.Truthy(token.Script), "script %#v", tt.v)
	}
}

func TestEqual(t *testing.T) {
	assert.True(t, Int(2).Equal(Float(2)))
	assert.True(t, Str("a").Equal(Str("a")))
	assert.False(t, Str("a").Equal(Sym("a")))
	assert.True(t, Array(Int(1), Str("x")).Equal(Array(Int(1), Str("x"))))
	assert.False(t, Array(Int(1)).Equal(Array(Int(1), Int(2))))
	assert.True(t, Nil.Equal(Nil))
}

func TestStringAndInspect(t *testing.T) {
	assert.Equal(t, "", Nil.String())
	assert.Equal(t, "nil", Nil.Inspect())
	assert.Equal(t, "2.0", Float(2).String())
	assert.Equal(t, "2.5", Float(2.5).String())
	assert.Equal(t, `"hi"`, Str("hi").Inspect())
	assert.Equal(t, ":sym", Sym("sym").Inspect())
	assert.Equal(t, `[1, "a", nil]`, Array(Int(1), Str("a"), Nil).Inspect())
	assert.Equal(t, "Infinity", FormatFloat(1.0/zero()))
}

func zero() float64 { return 0 }

func TestMarshalJSON(t *testing.T) {
	b, err := json.Marshal(Int(7))
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"int","value":7}`, string(b))

	b, err = json.Marshal(Nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"nil"}`, string(b))
}

func TestSprintf(t *testing.T) {
	tests := []struct {
		name   string
		format string
		args   []Value
		g      token.Grammar
		want   string
	}{
		{"int", "%d\n", []Value{Int(4)}, token.Brace, "4\n"},
		{"width", "[%5d|%-3d]", []Value{Int(42), Int(7)}, token.Brace, "[   42|7  ]"},
		{"zero pad", "%03i", []Value{Int(5)}, token.Script, "005"},
		{"string", "%s=%d", []Value{Str("i"), Int(3)}, token.Brace, "i=3"},
		{"char from int", "%c%c", []Value{Int('h'), Int('i')}, token.Brace, "hi"},
		{"char from string", "%c", []Value{Str("xyz")}, token.Script, "x"},
		{"hex", "%x %X %o", []Value{Int(255), Int(255), Int(8)}, token.Brace, "ff FF 10"},
		{"negative hex brace", "%x", []Value{Int(-1)}, token.Brace, "ffffffff"},
		{"unsigned", "%u", []Value{Int(-1)}, token.Brace, "4294967295"},
		{"float", "%.2f", []Value{Float(3.14159)}, token.Brace, "3.14"},
		{"int as float", "%.1f", []Value{Int(2)}, token.Script, "2.0"},
		{"percent", "100%%", nil, token.Brace, "100%"},
		{"length modifier", "%ld", []Value{Int(9)}, token.Brace, "9"},
		{"star width", "%*d", []Value{Int(4), Int(1)}, token.Brace, "   1"},
		{"script to_s", "%s", []Value{Sym("abc")}, token.Script, "abc"},
		{"script nil", "[%s]", []Value{Nil}, token.Script, "[]"},
		{"unknown verb", "%q", nil, token.Brace, "%q"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Sprintf(tt.format, tt.args, tt.g)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSprintfErrors(t *testing.T) {
	_, err := Sprintf("%d %d", []Value{Int(1)}, token.Script)
	assert.ErrorIs(t, err, ErrTooFewArguments)

	_, err = Sprintf("%d", []Value{Nil}, token.Script)
	assert.Error(t, err)

	out, err := Sprintf("%d", []Value{Str("12")}, token.Script)
	require.NoError(t, err)
	assert.Equal(t, "12", out)
}
