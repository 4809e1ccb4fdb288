package fixtures

import "go.starlark.net/syntax"

// Declaration is a fixture declared by a top-level macro() or shim() call,
// found without executing the file.
type Declaration struct {
	Kind string `json:"kind"` // "macro" or "shim"
	Name string `json:"name"`
	Line int    `json:"line"`
}

// ScanStarlark statically lists the top-level declarations of a Starlark
// fixture file. Calls whose name is not a string literal are skipped.
func ScanStarlark(filename string, content []byte) ([]Declaration, error) {
	f, err := (&syntax.FileOptions{}).Parse(filename, content, 0)
	if err != nil {
		return nil, err
	}

	var decls []Declaration
	for _, stmt := range f.Stmts {
		es, ok := stmt.(*syntax.ExprStmt)
		if !ok {
			continue
		}
		call, ok := es.X.(*syntax.CallExpr)
		if !ok {
			continue
		}
		fn, ok := call.Fn.(*syntax.Ident)
		if !ok || (fn.Name != "macro" && fn.Name != "shim") {
			continue
		}
		if name := declaredName(call); name != "" {
			decls = append(decls, Declaration{Kind: fn.Name, Name: name, Line: int(fn.NamePos.Line)})
		}
	}
	return decls, nil
}

// declaredName returns the name argument, positional or name=.
func declaredName(call *syntax.CallExpr) string {
	for i, arg := range call.Args {
		var expr syntax.Expr = arg
		if bin, ok := arg.(*syntax.BinaryExpr); ok && bin.Op == syntax.EQ {
			id, ok := bin.X.(*syntax.Ident)
			if !ok || id.Name != "name" {
				continue
			}
			expr = bin.Y
		} else if i != 0 {
			continue
		}
		lit, ok := expr.(*syntax.Literal)
		if !ok || lit.Token != syntax.STRING {
			return ""
		}
		s, _ := lit.Value.(string)
		return s
	}
	return ""
}
