// Package value defines the runtime values shared by both executors.
//
// A Value is a small tagged struct rather than an interface so that memory
// snapshots can be compared and serialized without reflection.
package value

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapglot/pkg/token"
)

// Kind is the dynamic type of a Value.
type Kind uint8

// Value kinds.
const (
	KindNil Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindSymbol
	KindRegex
	KindArray
	KindBlock
)

var kindNames = [...]string{"nil", "bool", "int", "float", "string", "symbol", "regex", "array", "block"}

// String returns the kind name.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Block is a closure: a parameterised body plus the scope it was created in.
// Body and Env are owned by the executor that created the block.
type Block struct {
	Name   string
	Params []string
	// Variadic is set when a "*rest" parameter collects extra arguments.
	Variadic bool
	Body     any
	Env      any
	Span     token.Span
}

// Value is a runtime value.
type Value struct {
	Kind  Kind
	Int   int64
	Float float64
	Str   string // string contents, symbol name or regex source
	Bool  bool
	Elems []Value
	Block *Block
}

// Constructors.
var (
	Nil   = Value{Kind: KindNil}
	True  = Value{Kind: KindBool, Bool: true}
	False = Value{Kind: KindBool}
)

// Int returns an integer value.
func Int(n int64) Value { return Value{Kind: KindInt, Int: n} }

// Float returns a float value.
func Float(f float64) Value { return Value{Kind: KindFloat, Float: f} }

// Str returns a string value.
func Str(s string) Value { return Value{Kind: KindString, Str: s} }

// Sym returns a symbol value.
func Sym(s string) Value { return Value{Kind: KindSymbol, Str: s} }

// Regex returns a regex literal value.
func Regex(src string) Value { return Value{Kind: KindRegex, Str: src} }

// Bool returns a boolean value.
func Bool(b bool) Value {
	if b {
		return True
	}
	return False
}

// Array returns an array value.
func Array(elems ...Value) Value { return Value{Kind: KindArray, Elems: elems} }

// Closure wraps a block.
func Closure(b *Block) Value { return Value{Kind: KindBlock, Block: b} }

// IsNil reports whether v is nil.
func (v Value) IsNil() bool { return v.Kind == KindNil }

// IsNumeric reports whether v is an int or a float.
func (v Value) IsNumeric() bool { return v.Kind == KindInt || v.Kind == KindFloat }

// Truthy applies the truthiness rule of grammar g: in the brace grammar
// zero and nil are false; in the script grammar only nil and false are.
func (v Value) Truthy(g token.Grammar) bool {
	if g == token.Brace {
		switch v.Kind {
		case KindNil:
			return false
		case KindBool:
			return v.Bool
		case KindInt:
			return v.Int != 0
		case KindFloat:
			return v.Float != 0
		}
		return true
	}
	switch v.Kind {
	case KindNil:
		return false
	case KindBool:
		return v.Bool
	}
	return true
}

// AsInt converts numeric and boolean values to an integer.
func (v Value) AsInt() (int64, bool) {
	switch v.Kind {
	case KindInt:
		return v.Int, true
	case KindFloat:
		return int64(v.Float), true
	case KindBool:
		if v.Bool {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// AsFloat converts numeric values to a float.
func (v Value) AsFloat() (float64, bool) {
	switch v.Kind {
	case KindInt:
		return float64(v.Int), true
	case KindFloat:
		return v.Float, true
	}
	return 0, false
}

// Equal compares two values structurally. Int and Float compare by number.
func (v Value) Equal(o Value) bool {
	if v.IsNumeric() && o.IsNumeric() {
		if v.Kind == KindInt && o.Kind == KindInt {
			return v.Int == o.Int
		}
		a, _ := v.AsFloat()
		b, _ := o.AsFloat()
		return a == b
	}
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNil:
		return true
	case KindBool:
		return v.Bool == o.Bool
	case KindString, KindSymbol, KindRegex:
		return v.Str == o.Str
	case KindArray:
		if len(v.Elems) != len(o.Elems) {
			return false
		}
		for i := range v.Elems {
			if !v.Elems[i].Equal(o.Elems[i]) {
				return false
			}
		}
		return true
	case KindBlock:
		return v.Block == o.Block
	}
	return false
}

// String returns the script grammar's to_s rendering.
func (v Value) String() string {
	switch v.Kind {
	case KindNil:
		return ""
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return FormatFloat(v.Float)
	case KindString, KindSymbol:
		return v.Str
	case KindRegex:
		return "(?-mix:" + v.Str + ")"
	case KindArray:
		return v.Inspect()
	case KindBlock:
		if v.Block != nil && v.Block.Name != "" {
			return "#<Proc:" + v.Block.Name + ">"
		}
		return "#<Proc>"
	}
	return ""
}

// Inspect returns the script grammar's inspect rendering, used by p.
func (v Value) Inspect() string {
	switch v.Kind {
	case KindNil:
		return "nil"
	case KindString:
		return strconv.Quote(v.Str)
	case KindSymbol:
		return ":" + v.Str
	case KindRegex:
		return "/" + v.Str + "/"
	case KindArray:
		parts := make([]string, len(v.Elems))
		for i, e := range v.Elems {
			parts[i] = e.Inspect()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return v.String()
}

// FormatFloat renders a float the way the script grammar prints it:
// whole numbers keep a trailing ".0".
func FormatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case math.IsNaN(f):
		return "NaN"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

// MarshalJSON renders the value for reports and memory snapshots.
func (v Value) MarshalJSON() ([]byte, error) {
	out := map[string]any{"kind": v.Kind.String()}
	switch v.Kind {
	case KindBool:
		out["value"] = v.Bool
	case KindInt:
		out["value"] = v.Int
	case KindFloat:
		out["value"] = v.Float
	case KindString, KindSymbol, KindRegex:
		out["value"] = v.Str
	case KindArray:
		out["value"] = v.Elems
	case KindBlock:
		out["value"] = v.String()
	}
	return json.Marshal(out)
}

// GoString implements fmt.GoStringer for test failure output.
func (v Value) GoString() string {
	return fmt.Sprintf("value.%s(%s)", v.Kind, v.Inspect())
}
