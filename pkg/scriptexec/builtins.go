package scriptexec

import (
	"math"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapglot/pkg/token"
	"github.com/leapstack-labs/leapglot/pkg/value"
)

// builtin runs a Kernel-style method. ok is false when name is not one.
func (in *Interpreter) builtin(name string, args []value.Value, block *value.Block, span token.Span, e *env) (v value.Value, ok bool, err error) {
	switch name {
	case "puts":
		var sb strings.Builder
		if len(args) == 0 {
			sb.WriteByte('\n')
		}
		for _, a := range args {
			writeLines(&sb, a)
		}
		in.trace.Emit(sb.String(), span)
		return value.Nil, true, nil

	case "print":
		var sb strings.Builder
		for _, a := range args {
			sb.WriteString(a.String())
		}
		in.trace.Emit(sb.String(), span)
		return value.Nil, true, nil

	case "p":
		if len(args) == 0 {
			return value.Nil, true, nil
		}
		var sb strings.Builder
		for _, a := range args {
			sb.WriteString(a.Inspect())
			sb.WriteByte('\n')
		}
		in.trace.Emit(sb.String(), span)
		if len(args) == 1 {
			return args[0], true, nil
		}
		return value.Array(args...), true, nil

	case "printf", "format", "sprintf":
		if len(args) == 0 {
			if name == "printf" {
				return value.Nil, true, nil
			}
			return value.Nil, true, runtimeErr(span, "too few arguments")
		}
		if args[0].Kind != value.KindString {
			return value.Nil, true, runtimeErr(span, "no implicit conversion of %s into String", typeName(args[0]))
		}
		s, err := value.Sprintf(args[0].Str, args[1:], token.Script)
		if err != nil {
			return value.Nil, true, runtimeErr(span, "%v", err)
		}
		if name != "printf" {
			return value.Str(s), true, nil
		}
		in.trace.Emit(s, span)
		return value.Nil, true, nil

	case "define_method":
		if len(args) == 0 {
			return value.Nil, true, runtimeErr(span, "wrong number of arguments (given 0, expected 1..2)")
		}
		target := args[0]
		if target.Kind != value.KindSymbol && target.Kind != value.KindString {
			return value.Nil, true, runtimeErr(span, "%s is not a symbol nor a string", target.Inspect())
		}
		if block == nil && len(args) > 1 && args[1].Kind == value.KindBlock {
			block = args[1].Block
		}
		if block == nil {
			return value.Nil, true, runtimeErr(span, "tried to create Proc object without a block")
		}
		if err := in.shims.Redefine(target.Str, block); err != nil {
			return value.Nil, true, withSpan(err, span)
		}
		in.logger.Debug("method redefined", "name", target.Str, "redefinitions", in.shims.Redefinitions())
		return value.Sym(target.Str), true, nil

	case "block_given?":
		return value.Bool(e.fr.block != nil), true, nil

	case "lambda", "proc":
		if block == nil {
			return value.Nil, true, runtimeErr(span, "tried to create Proc object without a block")
		}
		return value.Closure(block), true, nil
	}
	return value.Nil, false, nil
}

// writeLines renders one puts argument. Arrays print one element per line.
func writeLines(sb *strings.Builder, v value.Value) {
	if v.Kind == value.KindArray {
		if len(v.Elems) == 0 {
			sb.WriteByte('\n')
		}
		for _, e := range v.Elems {
			writeLines(sb, e)
		}
		return
	}
	s := v.String()
	sb.WriteString(s)
	if !strings.HasSuffix(s, "\n") {
		sb.WriteByte('\n')
	}
}

// callMethod dispatches a call with an explicit receiver.
func (in *Interpreter) callMethod(recv value.Value, name string, args []value.Value, block *value.Block, span token.Span) (value.Value, error) {
	switch name {
	case "to_s":
		return value.Str(recv.String()), nil
	case "inspect":
		return value.Str(recv.Inspect()), nil
	case "nil?":
		return value.Bool(recv.IsNil()), nil
	case "class":
		return value.Str(typeName(recv)), nil
	case "frozen?":
		return value.True, nil
	case "dup", "freeze", "itself":
		return recv, nil
	}

	switch recv.Kind {
	case value.KindNil:
		switch name {
		case "to_i":
			return value.Int(0), nil
		case "to_f":
			return value.Float(0), nil
		case "to_a":
			return value.Array(), nil
		}

	case value.KindInt:
		return in.intMethod(recv, name, args, block, span)

	case value.KindFloat:
		f := recv.Float
		switch name {
		case "to_i", "truncate":
			return value.Int(int64(f)), nil
		case "to_f":
			return recv, nil
		case "abs":
			if f < 0 {
				return value.Float(-f), nil
			}
			return recv, nil
		case "floor", "ceil", "round":
			return value.Int(int64(roundFloat(name, f))), nil
		case "zero?":
			return value.Bool(f == 0), nil
		}

	case value.KindString:
		return in.stringMethod(recv, name, args, block, span)

	case value.KindSymbol:
		switch name {
		case "to_sym":
			return recv, nil
		case "length", "size":
			return value.Int(int64(len(recv.Str))), nil
		}

	case value.KindArray:
		return in.arrayMethod(recv, name, args, block, span)

	case value.KindBlock:
		switch name {
		case "call", "yield", "()":
			return in.callBlock(recv.Block, args, block)
		case "arity":
			n := 0
			for _, p := range recv.Block.Params {
				if !strings.HasPrefix(p, "*") && !strings.HasPrefix(p, "&") {
					n++
				}
			}
			if recv.Block.Variadic {
				n = -n - 1
			}
			return value.Int(int64(n)), nil
		case "to_proc":
			return recv, nil
		}
	}
	return value.Nil, noMethod(name, recv, span)
}

func (in *Interpreter) intMethod(recv value.Value, name string, args []value.Value, block *value.Block, span token.Span) (value.Value, error) {
	n := recv.Int
	switch name {
	case "times":
		if block == nil {
			return value.Nil, runtimeErr(span, "no block given (times)")
		}
		for i := int64(0); i < n; i++ {
			if err := in.step(span); err != nil {
				return value.Nil, err
			}
			if v, stopped, err := in.iterate(block, value.Int(i)); err != nil || stopped {
				return v, err
			}
		}
		return recv, nil
	case "upto", "downto":
		if len(args) != 1 || args[0].Kind != value.KindInt {
			return value.Nil, runtimeErr(span, "wrong argument for %s", name)
		}
		if block == nil {
			return value.Nil, runtimeErr(span, "no block given (%s)", name)
		}
		step := int64(1)
		if name == "downto" {
			step = -1
		}
		for i := n; (step > 0 && i <= args[0].Int) || (step < 0 && i >= args[0].Int); i += step {
			if err := in.step(span); err != nil {
				return value.Nil, err
			}
			if v, stopped, err := in.iterate(block, value.Int(i)); err != nil || stopped {
				return v, err
			}
		}
		return recv, nil
	case "to_i", "to_int", "floor", "ceil", "round", "truncate":
		return recv, nil
	case "to_f":
		return value.Float(float64(n)), nil
	case "chr":
		if n < 0 || n > 255 {
			return value.Nil, runtimeErr(span, "%d out of char range", n)
		}
		return value.Str(string([]byte{byte(n)})), nil
	case "abs":
		if n < 0 {
			return value.Int(-n), nil
		}
		return recv, nil
	case "succ", "next":
		return value.Int(n + 1), nil
	case "pred":
		return value.Int(n - 1), nil
	case "even?":
		return value.Bool(n%2 == 0), nil
	case "odd?":
		return value.Bool(n%2 != 0), nil
	case "zero?":
		return value.Bool(n == 0), nil
	}
	return value.Nil, noMethod(name, recv, span)
}

func (in *Interpreter) stringMethod(recv value.Value, name string, args []value.Value, block *value.Block, span token.Span) (value.Value, error) {
	s := recv.Str
	switch name {
	case "length", "size", "bytesize":
		return value.Int(int64(len(s))), nil
	case "to_i":
		return value.Int(leadingInt(s)), nil
	case "to_f":
		f, _ := strconv.ParseFloat(leadingFloat(s), 64)
		return value.Float(f), nil
	case "to_str":
		return recv, nil
	case "to_sym", "intern":
		return value.Sym(s), nil
	case "upcase":
		return value.Str(strings.ToUpper(s)), nil
	case "downcase":
		return value.Str(strings.ToLower(s)), nil
	case "reverse":
		b := []byte(s)
		for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
			b[i], b[j] = b[j], b[i]
		}
		return value.Str(string(b)), nil
	case "strip":
		return value.Str(strings.TrimSpace(s)), nil
	case "chomp":
		return value.Str(strings.TrimSuffix(strings.TrimSuffix(s, "\n"), "\r")), nil
	case "empty?":
		return value.Bool(s == ""), nil
	case "ord":
		if s == "" {
			return value.Nil, runtimeErr(span, "empty string")
		}
		return value.Int(int64(s[0])), nil
	case "chars":
		out := make([]value.Value, len(s))
		for i := range len(s) {
			out[i] = value.Str(s[i : i+1])
		}
		return value.Array(out...), nil
	case "include?", "start_with?", "end_with?":
		if len(args) != 1 || args[0].Kind != value.KindString {
			return value.Nil, runtimeErr(span, "wrong argument for %s", name)
		}
		switch name {
		case "include?":
			return value.Bool(strings.Contains(s, args[0].Str)), nil
		case "start_with?":
			return value.Bool(strings.HasPrefix(s, args[0].Str)), nil
		}
		return value.Bool(strings.HasSuffix(s, args[0].Str)), nil
	case "each_char":
		if block == nil {
			return value.Nil, runtimeErr(span, "no block given (each_char)")
		}
		for i := range len(s) {
			if v, stopped, err := in.iterate(block, value.Str(s[i:i+1])); err != nil || stopped {
				return v, err
			}
		}
		return recv, nil
	}
	return value.Nil, noMethod(name, recv, span)
}

func (in *Interpreter) arrayMethod(recv value.Value, name string, args []value.Value, block *value.Block, span token.Span) (value.Value, error) {
	elems := recv.Elems
	switch name {
	case "length", "size", "count":
		return value.Int(int64(len(elems))), nil
	case "first", "last":
		if len(elems) == 0 {
			return value.Nil, nil
		}
		if name == "first" {
			return elems[0], nil
		}
		return elems[len(elems)-1], nil
	case "empty?":
		return value.Bool(len(elems) == 0), nil
	case "to_a":
		return recv, nil
	case "include?":
		if len(args) != 1 {
			return value.Nil, runtimeErr(span, "wrong number of arguments (given %d, expected 1)", len(args))
		}
		for _, e := range elems {
			if e.Equal(args[0]) {
				return value.True, nil
			}
		}
		return value.False, nil
	case "join":
		sep := ""
		if len(args) > 0 {
			sep = args[0].String()
		}
		parts := make([]string, len(elems))
		for i, e := range elems {
			parts[i] = e.String()
		}
		return value.Str(strings.Join(parts, sep)), nil
	case "reverse":
		out := make([]value.Value, len(elems))
		for i, e := range elems {
			out[len(elems)-1-i] = e
		}
		return value.Array(out...), nil
	case "sum":
		total := value.Int(0)
		for _, e := range elems {
			var err error
			if total, err = binary(token.PLUS, total, e, span); err != nil {
				return value.Nil, err
			}
		}
		return total, nil
	case "each", "each_with_index", "map", "collect", "select", "filter":
		if block == nil {
			return value.Nil, runtimeErr(span, "no block given (%s)", name)
		}
		var out []value.Value
		for i, e := range elems {
			if err := in.step(span); err != nil {
				return value.Nil, err
			}
			blockArgs := []value.Value{e}
			if name == "each_with_index" {
				blockArgs = append(blockArgs, value.Int(int64(i)))
			}
			v, stopped, err := in.iterate(block, blockArgs...)
			if err != nil || stopped {
				return v, err
			}
			switch name {
			case "map", "collect":
				out = append(out, v)
			case "select", "filter":
				if v.Truthy(token.Script) {
					out = append(out, e)
				}
			}
		}
		switch name {
		case "map", "collect", "select", "filter":
			return value.Array(out...), nil
		}
		return recv, nil
	}
	return value.Nil, noMethod(name, recv, span)
}

func roundFloat(mode string, f float64) float64 {
	switch mode {
	case "floor":
		return math.Floor(f)
	case "ceil":
		return math.Ceil(f)
	}
	return math.Round(f)
}

// leadingInt parses the integer prefix of s, ignoring leading whitespace.
func leadingInt(s string) int64 {
	s = strings.TrimLeft(s, " \t\n")
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	for end < len(s) && (s[end] >= '0' && s[end] <= '9' || s[end] == '_') {
		end++
	}
	n, _ := strconv.ParseInt(strings.ReplaceAll(s[:end], "_", ""), 10, 64)
	return n
}

func leadingFloat(s string) string {
	s = strings.TrimLeft(s, " \t\n")
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	dot := false
	for end < len(s) {
		c := s[end]
		if c >= '0' && c <= '9' {
			end++
			continue
		}
		if c == '.' && !dot && end+1 < len(s) && s[end+1] >= '0' && s[end+1] <= '9' {
			dot = true
			end++
			continue
		}
		break
	}
	if end == 0 || s[:end] == "-" || s[:end] == "+" {
		return "0"
	}
	return s[:end]
}
