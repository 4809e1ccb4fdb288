package braceexec

import (
	"errors"
	"strings"

	"github.com/leapstack-labs/leapglot/pkg/brace"
	"github.com/leapstack-labs/leapglot/pkg/memory"
	"github.com/leapstack-labs/leapglot/pkg/token"
	"github.com/leapstack-labs/leapglot/pkg/value"
)

// errExit unwinds the interpreter after exit().
var errExit = errors.New("exit")

func (in *Interpreter) eval(x brace.Expr, scope *memory.Scope) (value.Value, error) {
	switch x := x.(type) {
	case *brace.IntLit:
		return value.Int(x.Value), nil
	case *brace.CharLit:
		return value.Int(x.Value), nil
	case *brace.FloatLit:
		return value.Float(x.Value), nil
	case *brace.StringLit:
		return value.Str(x.Value), nil

	case *brace.Ident:
		c, ok := scope.Lookup(x.Name)
		if !ok {
			return value.Nil, runtimeErr(x.Span(), "'%s' undeclared", x.Name)
		}
		return c.Value, nil

	case *brace.UnaryExpr:
		return in.evalUnary(x, scope)

	case *brace.PostfixExpr:
		old, err := in.eval(x.X, scope)
		if err != nil {
			return value.Nil, err
		}
		delta := int64(1)
		if x.Op == token.DEC {
			delta = -1
		}
		nv, err := arith(token.PLUS, old, value.Int(delta), x.Span())
		if err != nil {
			return value.Nil, err
		}
		if _, err := in.assign(x.X, nv, scope); err != nil {
			return value.Nil, err
		}
		return old, nil

	case *brace.BinaryExpr:
		return in.evalBinary(x, scope)

	case *brace.AssignExpr:
		v, err := in.eval(x.Value, scope)
		if err != nil {
			return value.Nil, err
		}
		if op := x.Op.BinaryOf(); op != token.ILLEGAL {
			cur, err := in.eval(x.Target, scope)
			if err != nil {
				return value.Nil, err
			}
			if v, err = arith(op, cur, v, x.Span()); err != nil {
				return value.Nil, err
			}
		}
		return in.assign(x.Target, v, scope)

	case *brace.CondExpr:
		ok, err := in.cond(x.Cond, scope)
		if err != nil {
			return value.Nil, err
		}
		if ok {
			return in.eval(x.Then, scope)
		}
		return in.eval(x.Else, scope)

	case *brace.CallExpr:
		return in.evalCall(x, scope)

	case *brace.IndexExpr:
		base, err := in.eval(x.X, scope)
		if err != nil {
			return value.Nil, err
		}
		idx, err := in.eval(x.Index, scope)
		if err != nil {
			return value.Nil, err
		}
		return index(base, idx, x.Span())

	case *brace.CastExpr:
		v, err := in.eval(x.X, scope)
		if err != nil {
			return value.Nil, err
		}
		return convert(v, x.Type, x.Pointer), nil
	}
	return value.Nil, runtimeErr(x.Span(), "unsupported expression %T", x)
}

func (in *Interpreter) evalUnary(x *brace.UnaryExpr, scope *memory.Scope) (value.Value, error) {
	if x.Op == token.INC || x.Op == token.DEC {
		cur, err := in.eval(x.X, scope)
		if err != nil {
			return value.Nil, err
		}
		op := token.PLUS
		if x.Op == token.DEC {
			op = token.MINUS
		}
		nv, err := arith(op, cur, value.Int(1), x.Span())
		if err != nil {
			return value.Nil, err
		}
		return in.assign(x.X, nv, scope)
	}
	if x.Op == token.AMP {
		return value.Nil, runtimeErr(x.Span(), "taking the address of an object is not supported")
	}

	v, err := in.eval(x.X, scope)
	if err != nil {
		return value.Nil, err
	}
	switch x.Op {
	case token.MINUS:
		if v.Kind == value.KindFloat {
			return value.Float(-v.Float), nil
		}
		return arith(token.MINUS, value.Int(0), v, x.Span())
	case token.PLUS:
		return v, nil
	case token.BANG:
		return boolInt(!v.Truthy(token.Brace)), nil
	case token.TILDE:
		n, ok := v.AsInt()
		if !ok {
			return value.Nil, runtimeErr(x.Span(), "wrong type argument to bit-complement")
		}
		return value.Int(^n), nil
	case token.STAR:
		return index(v, value.Int(0), x.Span())
	}
	return value.Nil, runtimeErr(x.Span(), "unsupported unary operator %s", x.Op)
}

func (in *Interpreter) evalBinary(x *brace.BinaryExpr, scope *memory.Scope) (value.Value, error) {
	left, err := in.eval(x.Left, scope)
	if err != nil {
		return value.Nil, err
	}
	switch x.Op {
	case token.AND_AND:
		if !left.Truthy(token.Brace) {
			in.trace.ShortCircuit("&&", x.Span())
			return value.Int(0), nil
		}
		right, err := in.eval(x.Right, scope)
		if err != nil {
			return value.Nil, err
		}
		return boolInt(right.Truthy(token.Brace)), nil
	case token.OR_OR:
		if left.Truthy(token.Brace) {
			in.trace.ShortCircuit("||", x.Span())
			return value.Int(1), nil
		}
		right, err := in.eval(x.Right, scope)
		if err != nil {
			return value.Nil, err
		}
		return boolInt(right.Truthy(token.Brace)), nil
	}
	right, err := in.eval(x.Right, scope)
	if err != nil {
		return value.Nil, err
	}
	return arith(x.Op, left, right, x.Span())
}

// assign writes v to an assignable expression and returns the stored
// value after conversion to the cell's type.
func (in *Interpreter) assign(target brace.Expr, v value.Value, scope *memory.Scope) (value.Value, error) {
	switch t := target.(type) {
	case *brace.Ident:
		c, ok := scope.Lookup(t.Name)
		if !ok {
			return value.Nil, runtimeErr(t.Span(), "'%s' undeclared", t.Name)
		}
		c.Value = convertTo(v, c.DeclType)
		c.Span = t.Span()
		c.Grammar = token.Brace
		return c.Value, nil
	case *brace.IndexExpr:
		id, ok := t.X.(*brace.Ident)
		if !ok {
			return value.Nil, runtimeErr(t.Span(), "lvalue required as left operand of assignment")
		}
		c, ok := scope.Lookup(id.Name)
		if !ok {
			return value.Nil, runtimeErr(id.Span(), "'%s' undeclared", id.Name)
		}
		idx, err := in.eval(t.Index, scope)
		if err != nil {
			return value.Nil, err
		}
		i, _ := idx.AsInt()
		if c.Value.Kind != value.KindArray || i < 0 || int(i) >= len(c.Value.Elems) {
			return value.Nil, runtimeErr(t.Span(), "index %d out of bounds for '%s'", i, id.Name)
		}
		c.Value.Elems[i] = convertTo(v, strings.TrimSuffix(c.DeclType, "[]"))
		return c.Value.Elems[i], nil
	}
	return value.Nil, runtimeErr(target.Span(), "lvalue required as left operand of assignment")
}

func (in *Interpreter) evalCall(x *brace.CallExpr, scope *memory.Scope) (value.Value, error) {
	id, ok := x.Fun.(*brace.Ident)
	if !ok {
		return value.Nil, runtimeErr(x.Span(), "called object is not a function")
	}
	args := make([]value.Value, 0, len(x.Args))
	for _, a := range x.Args {
		v, err := in.eval(a, scope)
		if err != nil {
			return value.Nil, err
		}
		args = append(args, v)
	}
	if fn, ok := in.funcs[id.Name]; ok {
		return in.callFunc(fn, args, x.Span())
	}
	return in.builtin(id.Name, args, x.Span())
}

func (in *Interpreter) callFunc(fn *brace.FuncDecl, args []value.Value, at token.Span) (value.Value, error) {
	if len(fn.Params) > 0 && len(args) != len(fn.Params) {
		return value.Nil, runtimeErr(at, "too %s arguments to function '%s'", fewOrMany(len(args), len(fn.Params)), fn.Name)
	}
	in.depth++
	defer func() { in.depth-- }()
	if in.depth > maxCallDepth {
		return value.Nil, runtimeErr(at, "call depth limit exceeded in '%s'", fn.Name)
	}

	scope := in.store.NewScope(in.store.Global(), memory.ScopeFunction)
	for i, p := range fn.Params {
		if p.Name == "" || i >= len(args) {
			continue
		}
		scope.Declare(p.Name, declType(p.Type, p.Pointer, p.Array), convert(args[i], p.Type, p.Pointer), fn.Span(), token.Brace)
	}
	in.ret = value.Int(0)
	c, err := in.execBlock(fn.Body.Stmts, scope)
	if err != nil {
		return value.Nil, err
	}
	if c == ctrlExit {
		return value.Nil, errExit
	}
	ret := in.ret
	if c != ctrlReturn {
		ret = value.Int(0)
	}
	return convert(ret, fn.Type, fn.Pointer), nil
}

func fewOrMany(got, want int) string {
	if got < want {
		return "few"
	}
	return "many"
}

func (in *Interpreter) builtin(name string, args []value.Value, at token.Span) (value.Value, error) {
	switch name {
	case "printf":
		if len(args) == 0 {
			return value.Nil, runtimeErr(at, "too few arguments to function 'printf'")
		}
		out, err := value.Sprintf(args[0].String(), args[1:], token.Brace)
		if err != nil {
			return value.Nil, runtimeErr(at, "printf: %v", err)
		}
		in.trace.Emit(out, at)
		return value.Int(int64(len(out))), nil
	case "puts":
		if len(args) != 1 {
			return value.Nil, runtimeErr(at, "puts takes exactly one argument")
		}
		in.trace.Emit(args[0].String()+"\n", at)
		return value.Int(1), nil
	case "putchar":
		if len(args) != 1 {
			return value.Nil, runtimeErr(at, "putchar takes exactly one argument")
		}
		n, _ := args[0].AsInt()
		in.trace.Emit(string([]byte{byte(n)}), at)
		return value.Int(n & 0xff), nil
	case "exit":
		if len(args) > 0 {
			in.exitCode, _ = args[0].AsInt()
		}
		return value.Nil, errExit
	}
	return value.Nil, runtimeErr(at, "implicit declaration of function '%s'", name)
}
