package memory

import (
	"sort"

	"github.com/leapstack-labs/leapglot/pkg/value"
)

// Snapshot is the global memory end-state of one run, sorted by name.
type Snapshot []Cell

// Get returns the cell named name.
func (s Snapshot) Get(name string) (Cell, bool) {
	i := sort.Search(len(s), func(i int) bool { return s[i].Name >= name })
	if i < len(s) && s[i].Name == name {
		return s[i], true
	}
	return Cell{}, false
}

// Value returns the value of name, or nil when absent.
func (s Snapshot) Value(name string) value.Value {
	if c, ok := s.Get(name); ok {
		return c.Value
	}
	return value.Nil
}

// Names returns the cell names in order.
func (s Snapshot) Names() []string {
	names := make([]string, len(s))
	for i, c := range s {
		names[i] = c.Name
	}
	return names
}

// CellDiff is a cell present in both snapshots with different values.
type CellDiff struct {
	Name  string
	Left  Cell
	Right Cell
}

// Diff compares the cells present in both snapshots. Cells present on only
// one side are returned separately.
func (s Snapshot) Diff(o Snapshot) (changed []CellDiff, onlyLeft, onlyRight []string) {
	i, j := 0, 0
	for i < len(s) || j < len(o) {
		switch {
		case j >= len(o) || (i < len(s) && s[i].Name < o[j].Name):
			onlyLeft = append(onlyLeft, s[i].Name)
			i++
		case i >= len(s) || o[j].Name < s[i].Name:
			onlyRight = append(onlyRight, o[j].Name)
			j++
		default:
			if !s[i].Value.Equal(o[j].Value) {
				changed = append(changed, CellDiff{Name: s[i].Name, Left: s[i], Right: o[j]})
			}
			i++
			j++
		}
	}
	return changed, onlyLeft, onlyRight
}
