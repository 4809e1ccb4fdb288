package scriptexec

import (
	"strings"

	"github.com/leapstack-labs/leapglot/pkg/grammar"
	"github.com/leapstack-labs/leapglot/pkg/script"
	"github.com/leapstack-labs/leapglot/pkg/shim"
	"github.com/leapstack-labs/leapglot/pkg/token"
	"github.com/leapstack-labs/leapglot/pkg/value"
)

func (in *Interpreter) eval(n script.Node, e *env) (value.Value, error) {
	switch n := n.(type) {
	case *script.IntLit:
		return value.Int(n.Value), nil
	case *script.FloatLit:
		return value.Float(n.Value), nil
	case *script.StringLit:
		return value.Str(n.Value), nil
	case *script.SymbolLit:
		return value.Sym(n.Name), nil
	case *script.RegexLit:
		return value.Regex(n.Source), nil
	case *script.NilLit:
		return value.Nil, nil
	case *script.BoolLit:
		return value.Bool(n.Value), nil

	case *script.InterpString:
		var sb strings.Builder
		for _, part := range n.Parts {
			v, err := in.eval(part, e)
			if err != nil {
				return value.Nil, err
			}
			sb.WriteString(v.String())
		}
		return value.Str(sb.String()), nil

	case *script.ArrayLit:
		elems, _, err := in.evalArgs(n.Elems, e)
		if err != nil {
			return value.Nil, err
		}
		return value.Array(elems...), nil

	case *script.Ident:
		// A local assigned on a branch that never ran reads as nil.
		if c, ok := e.scope.Lookup(n.Name); ok {
			return c.Value, nil
		}
		return value.Nil, nil

	case *script.GlobalVar:
		if c, ok := in.store.Global().LookupLocal(n.Name); ok {
			return c.Value, nil
		}
		return value.Nil, nil

	case *script.UnaryExpr:
		x, err := in.eval(n.X, e)
		if err != nil {
			return value.Nil, err
		}
		return unary(n.Op, x, n.Span())

	case *script.BinaryExpr:
		return in.evalBinary(n, e)

	case *script.AssignExpr:
		return in.evalAssign(n, e)

	case *script.CondExpr:
		ok, err := in.cond(n.Cond, false, e)
		if err != nil {
			return value.Nil, err
		}
		if ok {
			return in.eval(n.Then, e)
		}
		return in.eval(n.Else, e)

	case *script.IndexExpr:
		x, err := in.eval(n.X, e)
		if err != nil {
			return value.Nil, err
		}
		i, err := in.eval(n.Index, e)
		if err != nil {
			return value.Nil, err
		}
		return index(x, i, n.Span())

	case *script.IfExpr:
		ok, err := in.cond(n.Cond, n.Unless, e)
		if err != nil {
			return value.Nil, err
		}
		if ok {
			return in.execBody(n.Then, e)
		}
		return in.execBody(n.Else, e)

	case *script.WhileExpr:
		return in.evalWhile(n, e)

	case *script.ReturnStmt:
		return in.jumpWith(jumpReturn, n.Value, n.Span(), e)
	case *script.NextStmt:
		return in.jumpWith(jumpNext, n.Value, n.Span(), e)
	case *script.BreakStmt:
		return in.jumpWith(jumpBreak, n.Value, n.Span(), e)

	case *script.DefStmt:
		params := make([]string, len(n.Params))
		for i, p := range n.Params {
			params[i] = p.String()
		}
		def := shim.ForDef(n.Name, params, n.Body, n.SelfRedefining, n.Span())
		if _, err := in.shims.Declare(def); err != nil {
			return value.Nil, withSpan(err, n.Span())
		}
		in.logger.Debug("method defined", "name", n.Name, "behavior", def.Behavior.String(), "arity", def.Arity.String())
		return value.Sym(n.Name), nil

	case *script.CallExpr:
		return in.evalCall(n, e)

	case *script.YieldExpr:
		if e.fr.block == nil {
			return value.Nil, runtimeErr(n.Span(), "no block given (yield)")
		}
		args, _, err := in.evalArgs(n.Args, e)
		if err != nil {
			return value.Nil, err
		}
		return in.callBlock(e.fr.block, args, nil)

	case *script.SplatExpr, *script.DoubleSplatExpr, *script.BlockPass:
		return value.Nil, runtimeErr(n.Span(), "unexpected argument prefix outside of a call")
	}
	return value.Nil, runtimeErr(n.Span(), "cannot evaluate %T", n)
}

// cond evaluates a condition and records the branch decision.
func (in *Interpreter) cond(x script.Node, negate bool, e *env) (bool, error) {
	v, err := in.eval(x, e)
	if err != nil {
		return false, err
	}
	taken := v.Truthy(token.Script) != negate
	in.trace.Branch(taken, x.Span())
	return taken, nil
}

func (in *Interpreter) evalWhile(n *script.WhileExpr, e *env) (value.Value, error) {
	for {
		if err := in.step(n.Span()); err != nil {
			return value.Nil, err
		}
		ok, err := in.cond(n.Cond, n.Until, e)
		if err != nil || !ok {
			return value.Nil, err
		}
		if _, err := in.execBody(n.Body, e); err != nil {
			if _, ok := asJump(err, jumpNext); ok {
				continue
			}
			if j, ok := asJump(err, jumpBreak); ok {
				return j.val, nil
			}
			return value.Nil, err
		}
	}
}

func (in *Interpreter) jumpWith(kind jumpKind, x script.Node, span token.Span, e *env) (value.Value, error) {
	v := value.Nil
	if x != nil {
		var err error
		if v, err = in.eval(x, e); err != nil {
			return value.Nil, err
		}
	}
	return value.Nil, &jump{kind: kind, val: v, span: span}
}

func (in *Interpreter) evalBinary(n *script.BinaryExpr, e *env) (value.Value, error) {
	left, err := in.eval(n.Left, e)
	if err != nil {
		return value.Nil, err
	}
	switch n.Op {
	case token.AND_AND, grammar.TokenAnd:
		if !left.Truthy(token.Script) {
			in.trace.ShortCircuit("&&", n.Span())
			return left, nil
		}
		return in.eval(n.Right, e)
	case token.OR_OR, grammar.TokenOr:
		if left.Truthy(token.Script) {
			in.trace.ShortCircuit("||", n.Span())
			return left, nil
		}
		return in.eval(n.Right, e)
	}
	right, err := in.eval(n.Right, e)
	if err != nil {
		return value.Nil, err
	}
	return binary(n.Op, left, right, n.Span())
}

func (in *Interpreter) evalAssign(n *script.AssignExpr, e *env) (value.Value, error) {
	v, err := in.eval(n.Value, e)
	if err != nil {
		return value.Nil, err
	}
	if op := n.Op.BinaryOf(); op != token.ILLEGAL {
		cur, err := in.eval(n.Target, e)
		if err != nil {
			return value.Nil, err
		}
		if v, err = binary(op, cur, v, n.Span()); err != nil {
			return value.Nil, err
		}
	}

	switch t := n.Target.(type) {
	case *script.Ident:
		e.scope.Assign(t.Name, v, n.Span(), token.Script)
	case *script.GlobalVar:
		in.store.Global().Assign(t.Name, v, n.Span(), token.Script)
	case *script.IndexExpr:
		return v, in.assignIndex(t, v, e)
	default:
		return value.Nil, runtimeErr(n.Span(), "cannot assign to this expression")
	}
	return v, nil
}

// assignIndex stores into an array element, growing the array with nils.
// A grown array is written back when the container is a variable.
func (in *Interpreter) assignIndex(t *script.IndexExpr, v value.Value, e *env) error {
	x, err := in.eval(t.X, e)
	if err != nil {
		return err
	}
	iv, err := in.eval(t.Index, e)
	if err != nil {
		return err
	}
	if x.Kind != value.KindArray {
		return runtimeErr(t.Span(), "undefined method '[]=' for %s", className(x))
	}
	i, ok := iv.AsInt()
	if !ok || iv.Kind == value.KindBool {
		return runtimeErr(t.Index.Span(), "no implicit conversion of %s into Integer", className(iv))
	}
	if i < 0 {
		i += int64(len(x.Elems))
		if i < 0 {
			return runtimeErr(t.Span(), "index %d too small for array", i-int64(len(x.Elems)))
		}
	}
	if int(i) < len(x.Elems) {
		x.Elems[i] = v
		return nil
	}
	// Padding is bounded by the step budget so one store cannot exhaust memory.
	if i+1-int64(len(x.Elems)) > int64(in.maxSteps) {
		return runtimeErr(t.Index.Span(), "index %d too big for array", i)
	}
	grown := make([]value.Value, i+1)
	copy(grown, x.Elems)
	grown[i] = v
	nx := value.Array(grown...)
	switch c := t.X.(type) {
	case *script.Ident:
		e.scope.Assign(c.Name, nx, t.Span(), token.Script)
	case *script.GlobalVar:
		in.store.Global().Assign(c.Name, nx, t.Span(), token.Script)
	}
	return nil
}

// evalArgs evaluates call arguments, expanding splats and extracting a
// &blk argument.
func (in *Interpreter) evalArgs(nodes []script.Node, e *env) ([]value.Value, *value.Block, error) {
	var (
		args  []value.Value
		block *value.Block
	)
	for _, a := range nodes {
		switch a := a.(type) {
		case *script.SplatExpr:
			v, err := in.eval(a.X, e)
			if err != nil {
				return nil, nil, err
			}
			if v.Kind == value.KindArray {
				args = append(args, v.Elems...)
			} else if !v.IsNil() {
				args = append(args, v)
			}
		case *script.DoubleSplatExpr:
			v, err := in.eval(a.X, e)
			if err != nil {
				return nil, nil, err
			}
			if !v.IsNil() {
				args = append(args, v)
			}
		case *script.BlockPass:
			v, err := in.eval(a.X, e)
			if err != nil {
				return nil, nil, err
			}
			switch v.Kind {
			case value.KindBlock:
				block = v.Block
			case value.KindNil:
			default:
				return nil, nil, runtimeErr(a.Span(), "wrong argument type %s (expected Proc)", className(v))
			}
		default:
			v, err := in.eval(a, e)
			if err != nil {
				return nil, nil, err
			}
			args = append(args, v)
		}
	}
	return args, block, nil
}

func (in *Interpreter) evalCall(c *script.CallExpr, e *env) (value.Value, error) {
	var recv value.Value
	if c.Receiver != nil {
		var err error
		if recv, err = in.eval(c.Receiver, e); err != nil {
			return value.Nil, err
		}
	}
	args, block, err := in.evalArgs(c.Args, e)
	if err != nil {
		return value.Nil, err
	}
	if c.Block != nil {
		block = in.newClosure(c.Block, e)
	}
	if c.Receiver != nil {
		return in.callMethod(recv, c.Name, args, block, c.Span())
	}
	return in.callNamed(c.Name, args, block, c.Span(), e)
}

// callNamed resolves a receiverless call: declared shims first, then
// builtins, then implicit redefinition through the registry.
func (in *Interpreter) callNamed(name string, args []value.Value, block *value.Block, span token.Span, e *env) (value.Value, error) {
	if !in.shims.Declared(name) {
		if v, ok, err := in.builtin(name, args, block, span, e); ok {
			return v, err
		}
	}
	v, err := in.shims.Invoke(name, args, block, in.callBlock)
	if err != nil {
		return value.Nil, withSpan(err, span)
	}
	return v, nil
}

// iterate runs an iterator's block; stopped reports a break.
func (in *Interpreter) iterate(b *value.Block, args ...value.Value) (v value.Value, stopped bool, err error) {
	v, err = in.callBlock(b, args, nil)
	if err != nil {
		if j, ok := asJump(err, jumpBreak); ok {
			return j.val, true, nil
		}
		return value.Nil, false, err
	}
	return v, false, nil
}
