package commands

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/leapstack-labs/leapglot/internal/cli/output"
	intconfig "github.com/leapstack-labs/leapglot/internal/config"
	"github.com/leapstack-labs/leapglot/internal/fixtures"
	"github.com/leapstack-labs/leapglot/internal/state"
	"github.com/leapstack-labs/leapglot/pkg/analyzer"
	"github.com/spf13/cobra"
)

// ErrNotPolyglot is returned by check when a file is not accepted under
// both grammars.
var ErrNotPolyglot = errors.New("not a polyglot")

// debounceDelay coalesces bursts of file events in watch mode.
const debounceDelay = 100 * time.Millisecond

// CheckOptions holds options for the check command.
type CheckOptions struct {
	Watch bool
	All   bool
}

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	opts := &CheckOptions{}

	cmd := &cobra.Command{
		Use:   "check <file>...",
		Short: "Check whether files behave the same under both grammars",
		Long: `Parse and run each file as a brace program and as a script, then
report every divergence between the two runs.

The command fails when any file has a violation, fails to parse under
one grammar, or is rejected by both.`,
		Example: `  # Check a single file
  leapglot check hello.c

  # Read from stdin
  cat hello.c | leapglot check -

  # Record results and re-check on change
  leapglot check --record --watch src/*.c`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "Re-check when files, fixtures or config change")
	cmd.Flags().BoolVar(&opts.All, "all", false, "Show equivalent entries too")
	cmd.Flags().Bool("record", false, "Record results in the history database")

	return cmd
}

func runCheck(cmd *cobra.Command, args []string, opts *CheckOptions) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	var store state.Store
	if cc.Cfg.Record {
		s, err := cc.OpenHistory()
		if err != nil {
			return fmt.Errorf("failed to open history: %w", err)
		}
		defer func() { _ = s.Close() }()
		store = s
	}

	if opts.Watch {
		if slices.Contains(args, "-") {
			return fmt.Errorf("cannot watch stdin")
		}
		return watchAndCheck(cmd, cc, store, args, opts)
	}
	return checkFiles(cmd, cc, store, args, opts)
}

// checkFiles analyzes each file and renders its report. It returns an error
// wrapping ErrNotPolyglot when any file fails.
func checkFiles(cmd *cobra.Command, cc *CommandContext, store state.Store, paths []string, opts *CheckOptions) error {
	var failed []string
	for i, path := range paths {
		if i > 0 && cc.Renderer.EffectiveMode() != output.ModeJSON {
			cc.Renderer.Println("")
		}

		res, buf, err := cc.Analyze(cmd, path)
		if err != nil {
			return err
		}
		if err := cc.Renderer.Result(res, buf, opts.All); err != nil {
			return err
		}

		if store != nil {
			run, err := store.RecordRun(cmd.Context(), res, []byte(buf.Text()))
			if err != nil {
				return err
			}
			cc.Logger.Debug("recorded run", "id", run.ID, "source", run.Source)
		}

		if !res.Polyglot() {
			failed = append(failed, res.Source)
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("%w: %d of %d files", ErrNotPolyglot, len(failed), len(paths))
	}
	return nil
}

// watchAndCheck checks once, then again whenever a source file, fixture
// file or the project config changes. Config and fixture changes reload the
// fixtures and analyzer limits before re-checking.
func watchAndCheck(cmd *cobra.Command, cc *CommandContext, store state.Store, paths []string, opts *CheckOptions) error {
	ctx := cmd.Context()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	watched := watchTargets(cc, paths)
	dirs := make(map[string]bool)
	for path := range watched {
		dirs[filepath.Dir(path)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			cc.Logger.Error("failed to watch directory", "dir", dir, "error", err)
		}
	}

	recheck := func() {
		if err := checkFiles(cmd, cc, store, paths, opts); err != nil && !errors.Is(err, ErrNotPolyglot) {
			cc.Renderer.Error(err.Error())
		}
	}
	recheck()

	trigger := make(chan string, 1)
	var debounceTimer *time.Timer

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			name, _ := filepath.Abs(event.Name)
			if !watched[name] {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounceDelay, func() {
				select {
				case trigger <- name:
				default:
				}
			})

		case name := <-trigger:
			cc.Logger.Debug("file changed, re-checking", "file", name)
			if !slices.ContainsFunc(paths, func(p string) bool { return absPath(p) == name }) {
				if err := reloadFixtures(cc); err != nil {
					cc.Renderer.Error(err.Error())
					continue
				}
			}
			if cc.Renderer.EffectiveMode() != output.ModeJSON {
				cc.Renderer.Println("")
				cc.Renderer.Println(cc.Renderer.Muted(fmt.Sprintf("--- %s changed at %s ---", filepath.Base(name), time.Now().Format(time.TimeOnly))))
			}
			recheck()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			cc.Logger.Error("watcher error", "error", err)
		}
	}
}

// watchTargets returns the absolute paths of the sources, fixture files and
// project config file.
func watchTargets(cc *CommandContext, paths []string) map[string]bool {
	targets := make(map[string]bool)
	for _, p := range paths {
		targets[absPath(p)] = true
	}
	for _, p := range cc.Cfg.Fixtures {
		targets[absPath(p)] = true
	}
	if cc.Cfg.ProjectRoot != "" {
		for _, name := range []string{intconfig.ConfigFileName, intconfig.ConfigFileNameAlt} {
			targets[filepath.Join(cc.Cfg.ProjectRoot, name)] = true
		}
	}
	return targets
}

// reloadFixtures re-reads the project config and fixtures and rebuilds the
// analyzer.
func reloadFixtures(cc *CommandContext) error {
	project := cc.Cfg.Project()
	if cc.Cfg.ProjectRoot != "" {
		reloaded, err := intconfig.LoadFromDir(cc.Cfg.ProjectRoot)
		if err != nil {
			return fmt.Errorf("failed to reload config: %w", err)
		}
		if reloaded != nil {
			project = mergeReloaded(cc.Cfg.Project(), *reloaded)
		}
	}

	fx, err := fixtures.NewLoader(project.Prelude, cc.Logger).Load(project.Fixtures...)
	if err != nil {
		return err
	}
	cc.Fixtures = fx
	cc.Analyzer = analyzer.New(project.AnalyzerOptions(cc.Logger)...)
	cc.Logger.Info("fixtures reloaded", "shims", len(fx.Shims), "macros", len(fx.Macros))
	return nil
}

// mergeReloaded keeps the current fixture list when the reloaded file
// names none, so fixtures given with -f survive a config edit.
func mergeReloaded(current, reloaded intconfig.ProjectConfig) intconfig.ProjectConfig {
	if len(reloaded.Fixtures) == 0 {
		reloaded.Fixtures = current.Fixtures
	}
	return reloaded
}

func absPath(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	return abs
}
