package preprocess

import (
	"fmt"
	"sort"

	"github.com/leapstack-labs/leapglot/pkg/brace"
	"github.com/leapstack-labs/leapglot/pkg/source"
	"github.com/leapstack-labs/leapglot/pkg/token"
)

// Macro is a #define: object-like or function-like, without token pasting
// or variadic parameters.
type Macro struct {
	Name         string        `json:"name"`
	Params       []string      `json:"params,omitempty"`
	FunctionLike bool          `json:"function_like"`
	Replacement  []token.Token `json:"replacement"`
	Span         token.Span    `json:"span"`

	// Predefined is true for macros supplied as fixtures rather than
	// defined in the analyzed source. Their replacement spans do not point
	// into the analyzed buffer.
	Predefined bool `json:"predefined,omitempty"`
}

// Body returns the replacement as space-separated source text.
func (m *Macro) Body() string {
	var out []byte
	for i, t := range m.Replacement {
		if i > 0 && t.SpaceBefore {
			out = append(out, ' ')
		}
		out = append(out, literalText(t)...)
	}
	return string(out)
}

// String renders the macro as a #define line.
func (m *Macro) String() string {
	head := m.Name
	if m.FunctionLike {
		head += "("
		for i, p := range m.Params {
			if i > 0 {
				head += ", "
			}
			head += p
		}
		head += ")"
	}
	if len(m.Replacement) == 0 {
		return "#define " + head
	}
	return "#define " + head + " " + m.Body()
}

func (m *Macro) paramIndex(name string) int {
	for i, p := range m.Params {
		if p == name {
			return i
		}
	}
	return -1
}

// NewMacro builds a predefined macro from source text, e.g. for fixtures.
// Params is nil for an object-like macro.
func NewMacro(name string, params []string, body string) (*Macro, error) {
	buf := source.New("<macro "+name+">", body)
	toks, _, err := brace.LexRange(buf, 0, buf.Len())
	if err != nil {
		return nil, fmt.Errorf("macro %s: %w", name, err)
	}
	return &Macro{
		Name:         name,
		Params:       params,
		FunctionLike: params != nil,
		Replacement:  toks[:len(toks)-1],
		Predefined:   true,
	}, nil
}

// Table is the macro table. The preprocessor mutates it as it scans; a
// Table is not safe for concurrent use.
type Table struct {
	macros map[string]*Macro
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{macros: make(map[string]*Macro)}
}

// Define adds or replaces a macro.
func (t *Table) Define(m *Macro) {
	t.macros[m.Name] = m
}

// Undef removes a macro. Removing an unknown name is a no-op.
func (t *Table) Undef(name string) {
	delete(t.macros, name)
}

// Lookup returns the macro with the given name.
func (t *Table) Lookup(name string) (*Macro, bool) {
	m, ok := t.macros[name]
	return m, ok
}

// Len returns the number of macros.
func (t *Table) Len() int {
	return len(t.macros)
}

// Names returns the sorted macro names.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.macros))
	for n := range t.macros {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// All returns the macros sorted by name.
func (t *Table) All() []*Macro {
	out := make([]*Macro, 0, len(t.macros))
	for _, n := range t.Names() {
		out = append(out, t.macros[n])
	}
	return out
}

// Clone returns a shallow copy; macros themselves are immutable.
func (t *Table) Clone() *Table {
	c := NewTable()
	for k, v := range t.macros {
		c.macros[k] = v
	}
	return c
}

func literalText(t token.Token) string {
	switch t.Type {
	case token.STRING:
		return fmt.Sprintf("%q", t.Literal)
	case token.CHAR:
		return "'" + t.Literal + "'"
	}
	return t.Literal
}
