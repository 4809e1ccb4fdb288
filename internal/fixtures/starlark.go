package fixtures

import (
	"fmt"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// ParseStarlark executes a Starlark fixture file. The file declares
// fixtures by calling the predeclared builtins
//
//	macro(name, body, params=None)
//	shim(name, behavior="pass-through", arity="variadic", value=None)
func ParseStarlark(filename string, content []byte) (*Set, error) {
	set := &Set{}

	predeclared := starlark.StringDict{
		"macro": starlark.NewBuiltin("macro", set.starlarkMacro),
		"shim":  starlark.NewBuiltin("shim", set.starlarkShim),
	}

	thread := &starlark.Thread{
		Name: "fixtures:" + filename,
		Print: func(_ *starlark.Thread, _ string) {
			// Ignore prints during fixture loading
		},
	}

	if _, err := starlark.ExecFileOptions(&syntax.FileOptions{}, thread, filename, content, predeclared); err != nil {
		return nil, fmt.Errorf("Starlark execution error: %w", err)
	}
	return set, nil
}

func (s *Set) starlarkMacro(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name, body string
	var params starlark.Value = starlark.None
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "name", &name, "body", &body, "params?", &params); err != nil {
		return nil, err
	}

	spec := MacroSpec{Name: name, Body: body}
	if params != starlark.None {
		iter, ok := params.(starlark.Iterable)
		if !ok {
			return nil, fmt.Errorf("%s: params must be a list of strings, got %s", b.Name(), params.Type())
		}
		spec.Params = []string{}
		it := iter.Iterate()
		defer it.Done()
		var p starlark.Value
		for it.Next(&p) {
			str, ok := starlark.AsString(p)
			if !ok {
				return nil, fmt.Errorf("%s: parameter %s is not a string", b.Name(), p)
			}
			spec.Params = append(spec.Params, str)
		}
	}
	s.Macros = append(s.Macros, spec)
	return starlark.None, nil
}

func (s *Set) starlarkShim(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	behavior := "pass-through"
	var arity starlark.Value = starlark.String("variadic")
	var val starlark.Value = starlark.None
	if err := starlark.UnpackArgs(b.Name(), args, kwargs,
		"name", &name, "behavior?", &behavior, "arity?", &arity, "value?", &val); err != nil {
		return nil, err
	}

	spec := ShimSpec{Name: name, Behavior: behavior}
	switch a := arity.(type) {
	case starlark.String:
		spec.Arity = string(a)
	case starlark.Int:
		spec.Arity = a.String()
	default:
		return nil, fmt.Errorf("%s: arity must be a string or int, got %s", b.Name(), arity.Type())
	}

	goVal, err := fromStarlark(val)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	spec.Value = goVal
	s.Shims = append(s.Shims, spec)
	return starlark.None, nil
}

// fromStarlark converts a Starlark value into the Go types toValue accepts.
func fromStarlark(v starlark.Value) (any, error) {
	switch x := v.(type) {
	case starlark.NoneType:
		return nil, nil
	case starlark.Bool:
		return bool(x), nil
	case starlark.Int:
		n, ok := x.Int64()
		if !ok {
			return nil, fmt.Errorf("integer %s out of range", x)
		}
		return n, nil
	case starlark.Float:
		return float64(x), nil
	case starlark.String:
		return string(x), nil
	case starlark.Indexable:
		out := make([]any, 0, x.Len())
		for i := 0; i < x.Len(); i++ {
			e, err := fromStarlark(x.Index(i))
			if err != nil {
				return nil, err
			}
			out = append(out, e)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported value of type %s", v.Type())
}
