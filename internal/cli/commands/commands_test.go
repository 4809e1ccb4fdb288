package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leapstack-labs/leapglot/internal/cli/config"
	"github.com/leapstack-labs/leapglot/internal/cli/testutil"
	"github.com/leapstack-labs/leapglot/internal/state"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupProject creates a test project, changes into it and loads its
// config the way the root command would.
func setupProject(t *testing.T) string {
	t.Helper()
	dir := testutil.SetupTestProject(t)
	t.Chdir(dir)

	config.ResetConfig()
	t.Cleanup(config.ResetConfig)
	_, err := config.LoadConfig("", nil)
	require.NoError(t, err)
	return dir
}

// execute runs cmd with args and returns stdout and stderr.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()
	out, errOut := new(bytes.Buffer), new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{cmd: NewCheckCommand(), use: "check <file>...", flags: []string{"watch", "all", "record"}},
		{cmd: NewTraceCommand(), use: "trace <file>"},
		{cmd: NewTokensCommand(), use: "tokens <file>"},
		{cmd: NewShimsCommand(), use: "shims", flags: []string{"static"}},
		{cmd: NewREPLCommand(), use: "repl"},
		{cmd: NewHistoryCommand(), use: "history", flags: []string{"limit"}},
		{cmd: NewInitCommand(), use: "init [directory]", flags: []string{"force", "example"}},
	}
	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short, "Short should not be empty")
			for _, flag := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(flag), "flag %q should exist", flag)
			}
		})
	}
}

func TestCheckCommand_Polyglot(t *testing.T) {
	setupProject(t)

	out, _, err := execute(t, NewCheckCommand(), "src/hello.c")
	require.NoError(t, err)

	assert.Contains(t, out, "# src/hello.c")
	assert.Contains(t, out, "**Verdict:** equivalent")
	testutil.AssertNoANSI(t, out)
	testutil.AssertValidMarkdown(t, out)
}

func TestCheckCommand_Violation(t *testing.T) {
	setupProject(t)

	out, _, err := execute(t, NewCheckCommand(), "src/hello.c", "src/diverge.c")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotPolyglot)
	assert.Contains(t, err.Error(), "1 of 2 files")

	assert.Contains(t, out, "**Verdict:** violation")
	assert.Contains(t, out, "## Violation")
	assert.Contains(t, out, `puts("done")`)
}

func TestCheckCommand_Stdin(t *testing.T) {
	setupProject(t)

	cmd := NewCheckCommand()
	cmd.SetIn(strings.NewReader(testutil.PolyglotSource))
	out, _, err := execute(t, cmd, "-")
	require.NoError(t, err)
	assert.Contains(t, out, "<stdin>")
}

func TestCheckCommand_MissingFile(t *testing.T) {
	setupProject(t)

	_, _, err := execute(t, NewCheckCommand(), "src/nope.c")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read")
	assert.NotErrorIs(t, err, ErrNotPolyglot)
}

func TestCheckCommand_WatchStdin(t *testing.T) {
	setupProject(t)

	_, _, err := execute(t, NewCheckCommand(), "--watch", "-")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot watch stdin")
}

func TestCheckCommand_JSON(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	t.Chdir(dir)
	t.Setenv("LEAPGLOT_OUTPUT", "json")
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)
	_, err := config.LoadConfig("", nil)
	require.NoError(t, err)

	out, _, err := execute(t, NewCheckCommand(), "src/hello.c")
	require.NoError(t, err)

	var got struct {
		Source string `json:"source"`
		Report struct {
			Verdict string `json:"verdict"`
		} `json:"report"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "src/hello.c", got.Source)
	assert.Equal(t, "equivalent", got.Report.Verdict)
}

func TestCheckRecordAndHistory(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	t.Chdir(dir)
	t.Setenv("LEAPGLOT_RECORD", "true")
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)
	cfg, err := config.LoadConfig("", nil)
	require.NoError(t, err)
	require.True(t, cfg.Record)

	_, _, err = execute(t, NewCheckCommand(), "src/hello.c")
	require.NoError(t, err)
	_, _, err = execute(t, NewCheckCommand(), "src/diverge.c")
	require.ErrorIs(t, err, ErrNotPolyglot)

	assert.FileExists(t, filepath.Join(dir, ".leapglot", "history.db"))

	out, _, err := execute(t, NewHistoryCommand())
	require.NoError(t, err)
	assert.Contains(t, out, "History (2 runs)")
	assert.Contains(t, out, "src/hello.c")
	assert.Contains(t, out, "src/diverge.c")

	store := state.NewSQLiteStore(nil)
	require.NoError(t, store.Open(cfg.HistoryPath))
	runs, err := store.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.Len(t, runs, 2)
	assert.Equal(t, "src/diverge.c", runs[0].Source)

	out, _, err = execute(t, NewHistoryCommand(), "show", runs[0].ID)
	require.NoError(t, err)
	assert.Contains(t, out, runs[0].ID)
	assert.Contains(t, out, "**Verdict:** violation")

	out, _, err = execute(t, NewHistoryCommand(), "prune", "--keep", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Pruned 1 runs")

	out, _, err = execute(t, NewHistoryCommand(), "--limit", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "History (1 runs)")
	assert.NotContains(t, out, "src/hello.c")
}

func TestHistoryCommand_Empty(t *testing.T) {
	setupProject(t)

	out, _, err := execute(t, NewHistoryCommand())
	require.NoError(t, err)
	assert.Contains(t, out, "No recorded runs.")

	_, _, err = execute(t, NewHistoryCommand(), "show", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")

	_, _, err = execute(t, NewHistoryCommand(), "prune", "--keep", "-1")
	require.Error(t, err)
}

func TestTraceCommand(t *testing.T) {
	setupProject(t)

	out, _, err := execute(t, NewTraceCommand(), "src/hello.c")
	require.NoError(t, err)
	assert.Contains(t, out, "# Traces")
	assert.Contains(t, out, "A (brace)")
	assert.Contains(t, out, "B (script)")
	assert.Contains(t, out, "hello")
	assert.Contains(t, out, "## Memory")
}

func TestTokensCommand(t *testing.T) {
	setupProject(t)

	out, _, err := execute(t, NewTokensCommand(), "src/hello.c")
	require.NoError(t, err)
	assert.Contains(t, out, "## Brace tokens")
	assert.Contains(t, out, "## Script tokens")
	assert.Contains(t, out, "puts")
}

func TestShimsCommand(t *testing.T) {
	setupProject(t)

	out, _, err := execute(t, NewShimsCommand())
	require.NoError(t, err)
	for _, want := range []string{"## Shims", "int", "main", "size_t", "argc", "## Macros", "GREETING"} {
		assert.Contains(t, out, want)
	}
}

func TestShimsCommand_Static(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fixtures", "extra.star"), []byte(`shim("uint8_t")
macro("TWICE", "(x + x)", params = ["x"])
`), 0o600))
	t.Chdir(dir)
	t.Setenv("LEAPGLOT_FIXTURES", "fixtures/shims.yaml,fixtures/extra.star")
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)
	_, err := config.LoadConfig("", nil)
	require.NoError(t, err)

	out, _, err := execute(t, NewShimsCommand(), "--static")
	require.NoError(t, err)
	assert.Contains(t, out, "uint8_t")
	assert.Contains(t, out, "TWICE")
	assert.Contains(t, out, filepath.Join("fixtures", "extra.star")+":2")
	assert.NotContains(t, out, "size_t")
}

func TestREPLSession(t *testing.T) {
	setupProject(t)

	cmd := NewREPLCommand()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetContext(context.Background())

	cc, err := NewCommandContext(cmd)
	require.NoError(t, err)
	s := newREPLSession(cmd, cc)

	assert.False(t, s.handleLine(".show"))
	assert.Contains(t, out.String(), "Nothing analyzed yet.")

	for _, line := range strings.Split(strings.TrimSuffix(testutil.PolyglotSource, "\n"), "\n") {
		assert.False(t, s.handleLine(line))
	}
	assert.True(t, s.pending())

	out.Reset()
	assert.False(t, s.handleLine(""))
	assert.False(t, s.pending())
	assert.Contains(t, out.String(), "<repl:1>")
	assert.Contains(t, out.String(), "equivalent")

	out.Reset()
	assert.False(t, s.handleLine(".trace"))
	assert.Contains(t, out.String(), "Traces")

	out.Reset()
	assert.False(t, s.handleLine(".bogus"))
	assert.Contains(t, out.String(), "Unknown command: .bogus")

	assert.False(t, s.handleLine(".clear"))
	assert.Nil(t, s.last)
	assert.True(t, s.handleLine(".quit"))
}

func TestNewInitCommand(t *testing.T) {
	tests := []struct {
		name      string
		setupDir  func(t *testing.T, dir string)
		args      []string
		wantErr   bool
		wantFiles []string
	}{
		{
			name:      "init empty directory",
			args:      []string{},
			wantFiles: []string{"leapglot.yaml", "fixtures/shims.yaml", ".gitignore"},
		},
		{
			name:      "init example",
			args:      []string{"--example"},
			wantFiles: []string{"leapglot.yaml", "fixtures/extra.star", "examples/hello.c", "examples/diverge.c"},
		},
		{
			name: "init existing config without force",
			setupDir: func(t *testing.T, dir string) {
				require.NoError(t, os.WriteFile(filepath.Join(dir, "leapglot.yaml"), []byte("existing"), 0o600))
			},
			args:    []string{},
			wantErr: true,
		},
		{
			name: "init existing config with force",
			setupDir: func(t *testing.T, dir string) {
				require.NoError(t, os.WriteFile(filepath.Join(dir, "leapglot.yaml"), []byte("existing"), 0o600))
			},
			args:      []string{"--force"},
			wantFiles: []string{"leapglot.yaml", "fixtures"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config.ResetConfig()
			tmpDir := t.TempDir()
			t.Chdir(tmpDir)

			if tt.setupDir != nil {
				tt.setupDir(t, tmpDir)
			}

			out, _, err := execute(t, NewInitCommand(), tt.args...)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, out, "leapglot project initialized!")

			for _, f := range tt.wantFiles {
				_, err := os.Stat(filepath.Join(tmpDir, filepath.FromSlash(f)))
				assert.False(t, os.IsNotExist(err), "expected file/dir %q to exist", f)
			}
		})
	}
}

// An initialized example project loads and its sample sources get the
// verdicts their names promise.
func TestInitExampleProject(t *testing.T) {
	tmpDir := t.TempDir()
	t.Chdir(tmpDir)
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	_, _, err := execute(t, NewInitCommand(), "--example")
	require.NoError(t, err)

	content, err := os.ReadFile("leapglot.yaml")
	require.NoError(t, err)
	for _, want := range []string{"fixtures:", "prelude: true", "max_steps:", "history_path:"} {
		assert.Contains(t, string(content), want)
	}

	cfg, err := config.LoadConfig("", nil)
	require.NoError(t, err)
	assert.Len(t, cfg.Fixtures, 2)

	_, _, err = execute(t, NewCheckCommand(), "examples/hello.c")
	require.NoError(t, err)
	_, _, err = execute(t, NewCheckCommand(), "examples/diverge.c")
	assert.ErrorIs(t, err, ErrNotPolyglot)
}
