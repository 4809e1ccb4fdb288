package value

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapglot/pkg/token"
)

// ErrTooFewArguments is returned when a format consumes more arguments than given.
var ErrTooFewArguments = errors.New("too few arguments")

// Sprintf formats args with a printf-style format string. Both grammars
// share the directive syntax (%d %i %u %s %c %x %X %o %f %e %g %%, flags,
// width and precision); g selects how arguments are converted.
func Sprintf(format string, args []Value, g token.Grammar) (string, error) {
	var sb strings.Builder
	argi := 0
	nextArg := func() (Value, error) {
		if argi >= len(args) {
			return Nil, ErrTooFewArguments
		}
		v := args[argi]
		argi++
		return v, nil
	}

	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' {
			sb.WriteByte(c)
			continue
		}
		if i+1 < len(format) && format[i+1] == '%' {
			sb.WriteByte('%')
			i++
			continue
		}

		start := i
		spec := []byte{'%'}
		j := i + 1
		for j < len(format) && strings.IndexByte("-+ #0", format[j]) >= 0 {
			spec = append(spec, format[j])
			j++
		}
		if j < len(format) && format[j] == '*' {
			w, err := nextArg()
			if err != nil {
				return sb.String(), err
			}
			n, _ := w.AsInt()
			spec = strconv.AppendInt(spec, n, 10)
			j++
		}
		for j < len(format) && format[j] >= '0' && format[j] <= '9' {
			spec = append(spec, format[j])
			j++
		}
		if j < len(format) && format[j] == '.' {
			spec = append(spec, '.')
			j++
			if j < len(format) && format[j] == '*' {
				pv, err := nextArg()
				if err != nil {
					return sb.String(), err
				}
				n, _ := pv.AsInt()
				spec = strconv.AppendInt(spec, n, 10)
				j++
			}
			for j < len(format) && format[j] >= '0' && format[j] <= '9' {
				spec = append(spec, format[j])
				j++
			}
		}
		for j < len(format) && strings.IndexByte("hlLqjzt", format[j]) >= 0 {
			j++
		}
		if j >= len(format) {
			sb.WriteString(format[i:])
			break
		}
		verb := format[j]
		i = j

		if strings.IndexByte("diuxXocsfFeEgGp", verb) < 0 {
			// unknown directive: print it verbatim
			sb.WriteString(format[start : j+1])
			continue
		}

		arg, err := nextArg()
		if err != nil {
			return sb.String(), err
		}
		out, err := formatOne(string(spec), verb, arg, g)
		if err != nil {
			return sb.String(), err
		}
		sb.WriteString(out)
	}
	return sb.String(), nil
}

func formatOne(spec string, verb byte, arg Value, g token.Grammar) (string, error) {
	switch verb {
	case 'd', 'i', 'u':
		n, err := toInt(arg, g)
		if err != nil {
			return "", err
		}
		if verb == 'u' && g == token.Brace && n < 0 {
			return fmt.Sprintf(spec+"d", uint32(n)), nil
		}
		return fmt.Sprintf(spec+"d", n), nil
	case 'x', 'X', 'o', 'p':
		n, err := toInt(arg, g)
		if err != nil {
			return "", err
		}
		v := verb
		if v == 'p' {
			return fmt.Sprintf(spec+"s", "0x"+strconv.FormatUint(uint64(n), 16)), nil
		}
		if n < 0 && g == token.Brace {
			return fmt.Sprintf(spec+string(v), uint32(n)), nil
		}
		return fmt.Sprintf(spec+string(v), n), nil
	case 'c':
		switch arg.Kind {
		case KindString:
			if arg.Str == "" {
				return fmt.Sprintf(spec+"s", ""), nil
			}
			return fmt.Sprintf(spec+"s", arg.Str[:1]), nil
		default:
			n, err := toInt(arg, g)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf(spec+"s", string([]byte{byte(n)})), nil
		}
	case 's':
		return fmt.Sprintf(spec+"s", arg.String()), nil
	case 'f', 'F', 'e', 'E', 'g', 'G':
		f, ok := arg.AsFloat()
		if !ok {
			if arg.Kind == KindString {
				pf, err := strconv.ParseFloat(strings.TrimSpace(arg.Str), 64)
				if err != nil {
					return "", fmt.Errorf("invalid value for Float(): %q", arg.Str)
				}
				f = pf
			} else {
				return "", fmt.Errorf("can't convert %s into Float", arg.Kind)
			}
		}
		v := verb
		if v == 'F' {
			v = 'f'
		}
		return fmt.Sprintf(spec+string(v), f), nil
	}
	return "", fmt.Errorf("malformed format string - %%%c", verb)
}

func toInt(arg Value, g token.Grammar) (int64, error) {
	if n, ok := arg.AsInt(); ok {
		return n, nil
	}
	switch arg.Kind {
	case KindString:
		if g == token.Brace {
			// a pointer in the brace grammar; print something stable
			return int64(len(arg.Str)), nil
		}
		n, err := strconv.ParseInt(strings.TrimSpace(arg.Str), 0, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid value for Integer(): %q", arg.Str)
		}
		return n, nil
	case KindNil:
		if g == token.Brace {
			return 0, nil
		}
		return 0, errors.New("can't convert nil into Integer")
	}
	return 0, fmt.Errorf("can't convert %s into Integer", arg.Kind)
}
