package grammar

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/leapstack-labs/leapglot/pkg/token"
)

// Grammar registry
var (
	grammarsMu sync.RWMutex
	grammars   = make(map[string]*Grammar)
)

// ErrGrammarRequired is returned when a grammar is required but not provided.
var ErrGrammarRequired = errors.New("grammar is required")

// Get returns a grammar by name.
func Get(name string) (*Grammar, bool) {
	grammarsMu.RLock()
	defer grammarsMu.RUnlock()
	g, ok := grammars[strings.ToLower(name)]
	return g, ok
}

// ForTag returns the registered grammar with the given tag.
func ForTag(tag token.Grammar) (*Grammar, bool) {
	grammarsMu.RLock()
	defer grammarsMu.RUnlock()
	for _, g := range grammars {
		if g.Tag == tag {
			return g, true
		}
	}
	return nil, false
}

// Register registers a grammar in the global registry.
func Register(g *Grammar) {
	grammarsMu.Lock()
	defer grammarsMu.Unlock()
	grammars[strings.ToLower(g.Name)] = g
}

// List returns all registered grammar names (sorted).
func List() []string {
	grammarsMu.RLock()
	defer grammarsMu.RUnlock()
	names := make([]string, 0, len(grammars))
	for name := range grammars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
