package output

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/leapglot/pkg/analyzer"
	"github.com/leapstack-labs/leapglot/pkg/shim"
)

// Fixtures renders the loaded shims and macros.
func (r *Renderer) Fixtures(fx analyzer.Fixtures) error {
	if r.EffectiveMode() == ModeJSON {
		return r.JSON(fx)
	}

	r.Header(2, "Shims")
	t := r.newTable()
	t.AppendHeader(table.Row{"Name", "Behavior", "Arity", "Constant"})
	for _, def := range fx.Shims {
		constant := ""
		if def.Behavior == shim.Constant {
			constant = def.Constant.Inspect()
		}
		t.AppendRow(table.Row{def.Name, def.Behavior.String(), def.Arity.String(), constant})
	}
	r.renderTable(t)

	if len(fx.Macros) == 0 {
		return nil
	}
	r.Println("")
	r.Header(2, "Macros")
	m := r.newTable()
	m.AppendHeader(table.Row{"Name", "Params", "Replacement"})
	for _, mac := range fx.Macros {
		params := ""
		if mac.FunctionLike {
			params = "(" + strings.Join(mac.Params, ", ") + ")"
		}
		var body []string
		for _, tok := range mac.Replacement {
			body = append(body, tok.Literal)
		}
		m.AppendRow(table.Row{mac.Name, params, strings.Join(body, " ")})
	}
	r.renderTable(m)
	return nil
}
