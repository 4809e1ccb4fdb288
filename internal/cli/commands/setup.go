package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/leapstack-labs/leapglot/internal/cli/config"
	"github.com/leapstack-labs/leapglot/internal/cli/output"
	intconfig "github.com/leapstack-labs/leapglot/internal/config"
	"github.com/leapstack-labs/leapglot/internal/fixtures"
	"github.com/leapstack-labs/leapglot/internal/state"
	"github.com/leapstack-labs/leapglot/pkg/analyzer"
	"github.com/leapstack-labs/leapglot/pkg/source"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
	Fixtures analyzer.Fixtures
	Analyzer *analyzer.Analyzer
}

// NewCommandContext loads fixtures and builds the analyzer and renderer.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())

	fx, err := fixtures.NewLoader(cfg.Prelude, logger).Load(cfg.Fixtures...)
	if err != nil {
		return nil, err
	}

	project := cfg.Project()
	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
		Fixtures: fx,
		Analyzer: analyzer.New(project.AnalyzerOptions(logger)...),
	}, nil
}

// NewCommandContextWithoutFixtures creates a CommandContext with only a
// renderer, for commands that do not analyze.
func NewCommandContextWithoutFixtures(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
	}
}

// Analyze reads path ("-" for stdin) and runs the analyzer over it.
func (c *CommandContext) Analyze(cmd *cobra.Command, path string) (*analyzer.Result, *source.Buffer, error) {
	buf, err := readSource(cmd.InOrStdin(), path)
	if err != nil {
		return nil, nil, err
	}
	res, err := c.Analyzer.Analyze(cmd.Context(), buf, c.Fixtures)
	if err != nil {
		return nil, buf, fmt.Errorf("%s: %w", buf.Name(), err)
	}
	return res, buf, nil
}

// OpenHistory opens and migrates the history store.
func (c *CommandContext) OpenHistory() (*state.SQLiteStore, error) {
	store := state.NewSQLiteStore(c.Logger)
	if err := store.Open(c.Cfg.HistoryPath); err != nil {
		return nil, err
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// Helper functions shared across commands

// getConfig returns the current configuration.
// It uses config.GetCurrentConfig() if available, otherwise defaults.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	def := intconfig.Defaults()
	return &config.Config{
		Prelude:          def.Prelude,
		MaxExpansions:    def.MaxExpansions,
		MaxRedefinitions: def.MaxRedefinitions,
		MaxSteps:         def.MaxSteps,
		Entry:            def.Entry,
		LogLevel:         config.DefaultLogLevel,
		OutputFormat:     getEnvOrDefault("LEAPGLOT_OUTPUT", config.DefaultOutput),
		HistoryPath:      intconfig.DefaultHistoryFile,
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// readSource reads a buffer from path, or from stdin for "-".
func readSource(stdin io.Reader, path string) (*source.Buffer, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return source.New("<stdin>", string(data)), nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is a user-supplied source file
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return source.New(path, string(data)), nil
}
