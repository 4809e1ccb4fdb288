// Package memory implements the named-cell store shared by both executors.
//
// Cells live in scopes. The global scope outlives every call and is the
// return channel between a callee and its caller; function and block scopes
// are created by the executors and dropped when the call returns. A Store is
// owned by one run and is not safe for concurrent use.
package memory

import (
	"log/slog"
	"sort"

	"github.com/leapstack-labs/leapglot/pkg/token"
	"github.com/leapstack-labs/leapglot/pkg/value"
)

// ScopeKind is the lifetime class of a scope.
type ScopeKind uint8

// Scope kinds.
const (
	ScopeGlobal ScopeKind = iota
	ScopeFunction
	ScopeBlock
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeGlobal:
		return "global"
	case ScopeFunction:
		return "function"
	case ScopeBlock:
		return "block"
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (k ScopeKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Cell is one named storage location.
type Cell struct {
	Name     string        `json:"name"`
	DeclType string        `json:"decl_type,omitempty"`
	Value    value.Value   `json:"value"`
	Scope    ScopeKind     `json:"scope"`
	Span     token.Span    `json:"span"`
	Grammar  token.Grammar `json:"grammar"`
}

// Scope is a set of cells with an optional parent. A scope without a parent
// is a gate: lookups stop there instead of reaching the global scope.
type Scope struct {
	kind   ScopeKind
	parent *Scope
	cells  map[string]*Cell
}

func newScope(parent *Scope, kind ScopeKind) *Scope {
	return &Scope{kind: kind, parent: parent, cells: make(map[string]*Cell)}
}

// Kind returns the scope kind.
func (s *Scope) Kind() ScopeKind { return s.kind }

// Parent returns the enclosing scope, nil for gates and the global scope.
func (s *Scope) Parent() *Scope { return s.parent }

// Lookup finds name in this scope or its ancestors.
func (s *Scope) Lookup(name string) (*Cell, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if c, ok := sc.cells[name]; ok {
			return c, true
		}
	}
	return nil, false
}

// LookupLocal finds name in this scope only.
func (s *Scope) LookupLocal(name string) (*Cell, bool) {
	c, ok := s.cells[name]
	return c, ok
}

// Declare creates (or replaces) a cell in this scope.
func (s *Scope) Declare(name, declType string, v value.Value, span token.Span, g token.Grammar) *Cell {
	c := &Cell{Name: name, DeclType: declType, Value: v, Scope: s.kind, Span: span, Grammar: g}
	s.cells[name] = c
	return c
}

// Assign writes to the nearest existing cell named name, or declares it in
// this scope when none is visible.
func (s *Scope) Assign(name string, v value.Value, span token.Span, g token.Grammar) *Cell {
	if c, ok := s.Lookup(name); ok {
		c.Value = v
		c.Span = span
		c.Grammar = g
		return c
	}
	return s.Declare(name, "", v, span, g)
}

// Names returns the names declared directly in this scope, sorted.
func (s *Scope) Names() []string {
	names := make([]string, 0, len(s.cells))
	for n := range s.cells {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Store owns the global scope of one run.
type Store struct {
	global *Scope
	scopes int
	logger *slog.Logger
}

// New returns an empty store.
func New(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{global: newScope(nil, ScopeGlobal), logger: logger}
}

// Global returns the global scope.
func (s *Store) Global() *Scope { return s.global }

// NewScope opens a scope under parent. A nil parent creates a gate.
func (s *Store) NewScope(parent *Scope, kind ScopeKind) *Scope {
	s.scopes++
	return newScope(parent, kind)
}

// ScopesOpened returns how many scopes were opened since the last Reset.
func (s *Store) ScopesOpened() int { return s.scopes }

// Lookup finds a global cell.
func (s *Store) Lookup(name string) (*Cell, bool) { return s.global.LookupLocal(name) }

// Inject sets a global cell directly; used by tests and fixtures.
func (s *Store) Inject(name string, v value.Value) *Cell {
	return s.global.Declare(name, "", v, token.Span{}, token.Shared)
}

// Reset drops every cell.
func (s *Store) Reset() {
	s.logger.Debug("resetting memory", "cells", len(s.global.cells), "scopes", s.scopes)
	s.global = newScope(nil, ScopeGlobal)
	s.scopes = 0
}

// Snapshot returns a deep copy of the global cells sorted by name.
func (s *Store) Snapshot() Snapshot {
	snap := make(Snapshot, 0, len(s.global.cells))
	for _, name := range s.global.Names() {
		c := *s.global.cells[name]
		c.Value = deepCopy(c.Value)
		snap = append(snap, c)
	}
	return snap
}

func deepCopy(v value.Value) value.Value {
	if v.Kind == value.KindArray {
		elems := make([]value.Value, len(v.Elems))
		for i, e := range v.Elems {
			elems[i] = deepCopy(e)
		}
		v.Elems = elems
	}
	return v
}
