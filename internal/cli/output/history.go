package output

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/leapglot/internal/state"
)

// Runs renders recorded history runs.
func (r *Renderer) Runs(runs []*state.Run) error {
	if r.EffectiveMode() == ModeJSON {
		if runs == nil {
			runs = []*state.Run{}
		}
		return r.JSON(runs)
	}
	if len(runs) == 0 {
		r.Println("No recorded runs.")
		return nil
	}

	r.Header(1, fmt.Sprintf("History (%d runs)", len(runs)))
	t := r.newTable()
	t.AppendHeader(table.Row{"ID", "When", "Source", "Verdict", "Violations", "Errors"})
	for _, run := range runs {
		t.AppendRow(table.Row{
			run.ID,
			run.CreatedAt.Local().Format(time.DateTime),
			run.Source,
			run.Verdict,
			run.Violations,
			run.Errors,
		})
	}
	r.renderTable(t)
	return nil
}
