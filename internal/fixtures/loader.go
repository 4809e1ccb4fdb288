package fixtures

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/leapglot/pkg/analyzer"
)

// Loader reads fixture files.
type Loader struct {
	prelude bool
	logger  *slog.Logger
}

// NewLoader creates a loader. With prelude set, Load starts from Prelude().
func NewLoader(prelude bool, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loader{prelude: prelude, logger: logger}
}

// Load reads every path in order and merges the result. Later files
// override earlier shims of the same name.
func (l *Loader) Load(paths ...string) (analyzer.Fixtures, error) {
	var fx analyzer.Fixtures
	if l.prelude {
		fx = Prelude()
	}
	for _, path := range paths {
		set, err := l.LoadFile(path)
		if err != nil {
			return analyzer.Fixtures{}, err
		}
		more, err := set.Fixtures()
		if err != nil {
			return analyzer.Fixtures{}, &LoadError{File: path, Message: err.Error()}
		}
		l.logger.Debug("loaded fixtures", "file", path, "macros", len(more.Macros), "shims", len(more.Shims))
		fx = fx.Merge(more)
	}
	return fx, nil
}

// LoadFile parses one fixture file by extension: .yaml/.yml or .star.
func (l *Loader) LoadFile(path string) (*Set, error) {
	content, err := os.ReadFile(path) //nolint:gosec // G304: fixture paths come from config
	if err != nil {
		return nil, &LoadError{File: path, Message: fmt.Sprintf("failed to read file: %v", err)}
	}

	var set *Set
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		set, err = ParseYAML(content)
	case ".star":
		set, err = ParseStarlark(path, content)
	default:
		return nil, &LoadError{File: path, Message: "unsupported fixture file (expected .yaml, .yml or .star)"}
	}
	if err != nil {
		return nil, &LoadError{File: path, Message: err.Error()}
	}
	return set, nil
}
