package scriptexec

import (
	"math"
	"strings"

	"github.com/leapstack-labs/leapglot/pkg/grammar"
	"github.com/leapstack-labs/leapglot/pkg/token"
	"github.com/leapstack-labs/leapglot/pkg/value"
)

// className names v the way error messages do.
func className(v value.Value) string {
	switch v.Kind {
	case value.KindNil:
		return "nil"
	case value.KindBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case value.KindInt:
		return "an instance of Integer"
	case value.KindFloat:
		return "an instance of Float"
	case value.KindString:
		return "an instance of String"
	case value.KindSymbol:
		return "an instance of Symbol"
	case value.KindRegex:
		return "an instance of Regexp"
	case value.KindArray:
		return "an instance of Array"
	case value.KindBlock:
		return "an instance of Proc"
	}
	return "an object"
}

func typeName(v value.Value) string {
	return strings.TrimPrefix(className(v), "an instance of ")
}

func noMethod(name string, recv value.Value, span token.Span) error {
	return runtimeErr(span, "undefined method '%s' for %s", name, className(recv))
}

func unary(op token.TokenType, x value.Value, span token.Span) (value.Value, error) {
	switch op {
	case token.BANG, grammar.TokenNot:
		return value.Bool(!x.Truthy(token.Script)), nil
	case token.MINUS:
		switch x.Kind {
		case value.KindInt:
			return value.Int(-x.Int), nil
		case value.KindFloat:
			return value.Float(-x.Float), nil
		}
		return value.Nil, noMethod("-@", x, span)
	case token.PLUS:
		if x.IsNumeric() {
			return x, nil
		}
		return value.Nil, noMethod("+@", x, span)
	case token.TILDE:
		if x.Kind == value.KindInt {
			return value.Int(^x.Int), nil
		}
		return value.Nil, noMethod("~", x, span)
	}
	return value.Nil, runtimeErr(span, "unsupported operator %s", op)
}

func binary(op token.TokenType, l, r value.Value, span token.Span) (value.Value, error) {
	switch op {
	case token.EQ:
		return value.Bool(l.Equal(r)), nil
	case token.NE:
		return value.Bool(!l.Equal(r)), nil
	case token.LT, token.GT, token.LE, token.GE:
		return compare(op, l, r, span)
	}

	if l.IsNumeric() && r.IsNumeric() {
		if l.Kind == value.KindInt && r.Kind == value.KindInt {
			return intArith(op, l.Int, r.Int, span)
		}
		a, _ := l.AsFloat()
		b, _ := r.AsFloat()
		return floatArith(op, a, b, span)
	}

	switch l.Kind {
	case value.KindString:
		switch op {
		case token.PLUS:
			if r.Kind != value.KindString {
				return value.Nil, runtimeErr(span, "no implicit conversion of %s into String", typeName(r))
			}
			return value.Str(l.Str + r.Str), nil
		case token.SHL:
			return value.Str(l.Str + r.String()), nil
		case token.STAR:
			if r.Kind != value.KindInt {
				return value.Nil, runtimeErr(span, "no implicit conversion of %s into Integer", typeName(r))
			}
			if r.Int < 0 {
				return value.Nil, runtimeErr(span, "negative argument")
			}
			return value.Str(strings.Repeat(l.Str, int(r.Int))), nil
		case token.PERCENT:
			args := []value.Value{r}
			if r.Kind == value.KindArray {
				args = r.Elems
			}
			s, err := value.Sprintf(l.Str, args, token.Script)
			if err != nil {
				return value.Nil, runtimeErr(span, "%v", err)
			}
			return value.Str(s), nil
		}
	case value.KindArray:
		switch op {
		case token.PLUS:
			if r.Kind != value.KindArray {
				return value.Nil, runtimeErr(span, "no implicit conversion of %s into Array", typeName(r))
			}
			out := append(append([]value.Value{}, l.Elems...), r.Elems...)
			return value.Array(out...), nil
		case token.SHL:
			out := append(append([]value.Value{}, l.Elems...), r)
			return value.Array(out...), nil
		case token.STAR:
			if r.Kind == value.KindString {
				parts := make([]string, len(l.Elems))
				for i, e := range l.Elems {
					parts[i] = e.String()
				}
				return value.Str(strings.Join(parts, r.Str)), nil
			}
			if r.Kind != value.KindInt || r.Int < 0 {
				return value.Nil, runtimeErr(span, "no implicit conversion of %s into Integer", typeName(r))
			}
			var out []value.Value
			for range r.Int {
				out = append(out, l.Elems...)
			}
			return value.Array(out...), nil
		}
	case value.KindInt, value.KindFloat:
		return value.Nil, runtimeErr(span, "%s can't be coerced into %s", typeName(r), typeName(l))
	}
	return value.Nil, noMethod(op.String(), l, span)
}

func intArith(op token.TokenType, a, b int64, span token.Span) (value.Value, error) {
	switch op {
	case token.PLUS:
		return value.Int(a + b), nil
	case token.MINUS:
		return value.Int(a - b), nil
	case token.STAR:
		return value.Int(a * b), nil
	case token.SLASH, token.PERCENT:
		if b == 0 {
			return value.Nil, runtimeErr(span, "divided by 0")
		}
		q, m := a/b, a%b
		// Division floors toward negative infinity.
		if m != 0 && (m < 0) != (b < 0) {
			q--
			m += b
		}
		if op == token.SLASH {
			return value.Int(q), nil
		}
		return value.Int(m), nil
	case token.POW:
		if b < 0 {
			return value.Float(math.Pow(float64(a), float64(b))), nil
		}
		if n, ok := intPow(a, b); ok {
			return value.Int(n), nil
		}
		// Past int64 the result degrades to Float (Infinity when huge).
		return value.Float(math.Pow(float64(a), float64(b))), nil
	case token.AMP:
		return value.Int(a & b), nil
	case token.PIPE:
		return value.Int(a | b), nil
	case token.CARET:
		return value.Int(a ^ b), nil
	case token.SHL:
		if b < 0 {
			return value.Int(a >> uint(-b)), nil
		}
		return value.Int(a << uint(b)), nil
	case token.SHR:
		if b < 0 {
			return value.Int(a << uint(-b)), nil
		}
		return value.Int(a >> uint(b)), nil
	}
	return value.Nil, noMethod(op.String(), value.Int(a), span)
}

func floatArith(op token.TokenType, a, b float64, span token.Span) (value.Value, error) {
	switch op {
	case token.PLUS:
		return value.Float(a + b), nil
	case token.MINUS:
		return value.Float(a - b), nil
	case token.STAR:
		return value.Float(a * b), nil
	case token.SLASH:
		return value.Float(a / b), nil
	case token.PERCENT:
		m := math.Mod(a, b)
		if m != 0 && (m < 0) != (b < 0) {
			m += b
		}
		return value.Float(m), nil
	case token.POW:
		return value.Float(math.Pow(a, b)), nil
	}
	return value.Nil, noMethod(op.String(), value.Float(a), span)
}

func compare(op token.TokenType, l, r value.Value, span token.Span) (value.Value, error) {
	var c int
	switch {
	case l.IsNumeric() && r.IsNumeric():
		a, _ := l.AsFloat()
		b, _ := r.AsFloat()
		if l.Kind == value.KindInt && r.Kind == value.KindInt {
			c = cmpInt(l.Int, r.Int)
		} else {
			c = cmpFloat(a, b)
		}
	case l.Kind == value.KindString && r.Kind == value.KindString:
		c = strings.Compare(l.Str, r.Str)
	default:
		if l.Kind == value.KindInt || l.Kind == value.KindFloat || l.Kind == value.KindString {
			return value.Nil, runtimeErr(span, "comparison of %s with %s failed", typeName(l), r.Inspect())
		}
		return value.Nil, noMethod(op.String(), l, span)
	}
	switch op {
	case token.LT:
		return value.Bool(c < 0), nil
	case token.GT:
		return value.Bool(c > 0), nil
	case token.LE:
		return value.Bool(c <= 0), nil
	}
	return value.Bool(c >= 0), nil
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// index implements x[i] for arrays, strings and integer bit reads.
func index(x, i value.Value, span token.Span) (value.Value, error) {
	switch x.Kind {
	case value.KindArray, value.KindString:
		n, ok := i.AsInt()
		if !ok || i.Kind == value.KindBool {
			return value.Nil, runtimeErr(span, "no implicit conversion of %s into Integer", typeName(i))
		}
		size := int64(len(x.Elems))
		if x.Kind == value.KindString {
			size = int64(len(x.Str))
		}
		if n < 0 {
			n += size
		}
		if n < 0 || n >= size {
			return value.Nil, nil
		}
		if x.Kind == value.KindString {
			return value.Str(x.Str[n : n+1]), nil
		}
		return x.Elems[n], nil
	case value.KindInt:
		n, ok := i.AsInt()
		if !ok {
			return value.Nil, runtimeErr(span, "no implicit conversion of %s into Integer", typeName(i))
		}
		if n < 0 || n > 63 {
			if x.Int < 0 {
				return value.Int(1), nil
			}
			return value.Int(0), nil
		}
		return value.Int((x.Int >> uint(n)) & 1), nil
	}
	return value.Nil, noMethod("[]", x, span)
}

// intPow computes a**b for b >= 0 by squaring. ok is false when the
// result does not fit in an int64.
func intPow(a, b int64) (n int64, ok bool) {
	switch a {
	case 0:
		if b == 0 {
			return 1, true
		}
		return 0, true
	case 1:
		return 1, true
	case -1:
		if b%2 == 0 {
			return 1, true
		}
		return -1, true
	}
	n = 1
	for b > 0 {
		if b&1 == 1 {
			if n, ok = mulInt64(n, a); !ok {
				return 0, false
			}
		}
		b >>= 1
		if b > 0 {
			if a, ok = mulInt64(a, a); !ok {
				return 0, false
			}
		}
	}
	return n, true
}

func mulInt64(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, false
	}
	c := a * b
	if c/b != a {
		return 0, false
	}
	return c, true
}
