package token

import "sync"

// nextTokenID tracks the next available dynamic token ID.
// Dynamic tokens start after maxBuiltin (999).
var nextTokenID = maxBuiltin

var (
	dynamicMu sync.RWMutex
	// dynamicTokens maps registered dynamic tokens to their names.
	dynamicTokens = make(map[TokenType]string)
	// dynamicKeywords maps registered dynamic keyword names to their token types.
	dynamicKeywords = make(map[string]TokenType)
)

// Register registers a grammar-specific keyword token with the given name.
// Registering the same name twice returns the same token type, so two
// grammars that share a spelling (e.g. "for") share the token.
//
// Registration normally happens from package-level vars in pkg/grammar.
func Register(name string) TokenType {
	dynamicMu.Lock()
	defer dynamicMu.Unlock()

	if t, ok := dynamicKeywords[name]; ok {
		return t
	}
	nextTokenID++
	t := nextTokenID
	dynamicTokens[t] = name
	dynamicKeywords[name] = t
	return t
}

// getDynamicName returns the name of a dynamic token.
func getDynamicName(t TokenType) (string, bool) {
	dynamicMu.RLock()
	defer dynamicMu.RUnlock()
	name, ok := dynamicTokens[t]
	return name, ok
}
