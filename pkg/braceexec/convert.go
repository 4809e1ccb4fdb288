package braceexec

import (
	"math"
	"strings"

	"github.com/leapstack-labs/leapglot/pkg/brace"
	"github.com/leapstack-labs/leapglot/pkg/token"
	"github.com/leapstack-labs/leapglot/pkg/value"
)

// declType renders a declared type for memory cells, e.g. "char*" or "int[]".
func declType(ts brace.TypeSpec, ptr int, array bool) string {
	s := ts.String() + strings.Repeat("*", ptr)
	if array {
		s += "[]"
	}
	return s
}

func isFloatType(words []string) bool {
	for _, w := range words {
		if w == "float" || w == "double" {
			return true
		}
	}
	return false
}

func zeroOf(ts brace.TypeSpec, ptr int) value.Value {
	if ptr == 0 && isFloatType(ts.Names) {
		return value.Float(0)
	}
	return value.Int(0)
}

func convert(v value.Value, ts brace.TypeSpec, ptr int) value.Value {
	return convertTo(v, declType(ts, ptr, false))
}

// convertTo applies C's implicit conversion to a scalar type. Pointers and
// arrays keep their value.
func convertTo(v value.Value, typ string) value.Value {
	if typ == "" || strings.ContainsAny(typ, "*[") {
		return v
	}
	words := strings.Fields(typ)
	if isFloatType(words) {
		if f, ok := v.AsFloat(); ok {
			return value.Float(f)
		}
		return v
	}
	has := func(w string) bool {
		for _, x := range words {
			if x == w {
				return true
			}
		}
		return false
	}
	if has("void") {
		return v
	}
	n, ok := v.AsInt()
	if !ok {
		return v
	}
	unsigned := has("unsigned")
	switch {
	case has("char"):
		if unsigned {
			return value.Int(int64(uint8(n)))
		}
		return value.Int(int64(int8(n)))
	case has("short"):
		if unsigned {
			return value.Int(int64(uint16(n)))
		}
		return value.Int(int64(int16(n)))
	case has("long"):
		return value.Int(n)
	}
	if unsigned {
		return value.Int(int64(uint32(n)))
	}
	return value.Int(int64(int32(n)))
}

func boolInt(b bool) value.Value {
	if b {
		return value.Int(1)
	}
	return value.Int(0)
}

// arith applies a binary operator with C's usual arithmetic conversions.
func arith(op token.TokenType, a, b value.Value, span token.Span) (value.Value, error) {
	if a.Kind == value.KindString || b.Kind == value.KindString {
		return stringArith(op, a, b, span)
	}
	if a.Kind == value.KindFloat || b.Kind == value.KindFloat {
		x, okx := a.AsFloat()
		y, oky := b.AsFloat()
		if !okx || !oky {
			return value.Nil, runtimeErr(span, "invalid operands to binary %s", op)
		}
		switch op {
		case token.PLUS:
			return value.Float(x + y), nil
		case token.MINUS:
			return value.Float(x - y), nil
		case token.STAR:
			return value.Float(x * y), nil
		case token.SLASH:
			if y == 0 {
				return value.Float(math.Copysign(math.Inf(1), x)), nil
			}
			return value.Float(x / y), nil
		case token.EQ:
			return boolInt(x == y), nil
		case token.NE:
			return boolInt(x != y), nil
		case token.LT:
			return boolInt(x < y), nil
		case token.GT:
			return boolInt(x > y), nil
		case token.LE:
			return boolInt(x <= y), nil
		case token.GE:
			return boolInt(x >= y), nil
		}
		return value.Nil, runtimeErr(span, "invalid operands to binary %s (have 'double')", op)
	}

	x, okx := a.AsInt()
	y, oky := b.AsInt()
	if !okx || !oky {
		return value.Nil, runtimeErr(span, "invalid operands to binary %s", op)
	}
	switch op {
	case token.PLUS:
		return value.Int(x + y), nil
	case token.MINUS:
		return value.Int(x - y), nil
	case token.STAR:
		return value.Int(x * y), nil
	case token.SLASH, token.PERCENT:
		if y == 0 {
			return value.Nil, runtimeErr(span, "division by zero")
		}
		if op == token.SLASH {
			return value.Int(x / y), nil
		}
		return value.Int(x % y), nil
	case token.SHL:
		return value.Int(x << uint64(y&63)), nil
	case token.SHR:
		return value.Int(x >> uint64(y&63)), nil
	case token.AMP:
		return value.Int(x & y), nil
	case token.PIPE:
		return value.Int(x | y), nil
	case token.CARET:
		return value.Int(x ^ y), nil
	case token.EQ:
		return boolInt(x == y), nil
	case token.NE:
		return boolInt(x != y), nil
	case token.LT:
		return boolInt(x < y), nil
	case token.GT:
		return boolInt(x > y), nil
	case token.LE:
		return boolInt(x <= y), nil
	case token.GE:
		return boolInt(x >= y), nil
	}
	return value.Nil, runtimeErr(span, "unsupported binary operator %s", op)
}

// stringArith covers the pointer operations string literals take part in:
// offsetting and comparison.
func stringArith(op token.TokenType, a, b value.Value, span token.Span) (value.Value, error) {
	switch op {
	case token.PLUS:
		s, n := a, b
		if a.Kind != value.KindString {
			s, n = b, a
		}
		off, ok := n.AsInt()
		if !ok || n.Kind == value.KindString || off < 0 || int(off) > len(s.Str) {
			return value.Nil, runtimeErr(span, "invalid pointer arithmetic")
		}
		return value.Str(s.Str[off:]), nil
	case token.EQ:
		return boolInt(a.Equal(b)), nil
	case token.NE:
		return boolInt(!a.Equal(b)), nil
	}
	return value.Nil, runtimeErr(span, "invalid operands to binary %s (have 'char *')", op)
}

// index reads base[idx] from an array or a string.
func index(base, idx value.Value, span token.Span) (value.Value, error) {
	i, ok := idx.AsInt()
	if !ok {
		return value.Nil, runtimeErr(span, "array subscript is not an integer")
	}
	switch base.Kind {
	case value.KindArray:
		if i < 0 || int(i) >= len(base.Elems) {
			return value.Nil, runtimeErr(span, "index %d out of bounds", i)
		}
		return base.Elems[i], nil
	case value.KindString:
		if i < 0 || int(i) > len(base.Str) {
			return value.Nil, runtimeErr(span, "index %d out of bounds", i)
		}
		if int(i) == len(base.Str) {
			return value.Int(0), nil
		}
		return value.Int(int64(int8(base.Str[i]))), nil
	}
	return value.Nil, runtimeErr(span, "subscripted value is neither array nor pointer")
}
