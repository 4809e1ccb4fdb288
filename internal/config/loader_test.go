package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(body), 0o600))
}

func TestLoadFromDir(t *testing.T) {
	t.Run("no config file", func(t *testing.T) {
		cfg, err := LoadFromDir(t.TempDir())
		require.NoError(t, err)
		assert.Nil(t, cfg)
	})

	t.Run("absent keys keep defaults", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "max_steps: 500\nfixtures:\n  - shims.yaml\n  - /abs/macros.star\n")

		cfg, err := LoadFromDir(dir)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, 500, cfg.MaxSteps)
		assert.Equal(t, DefaultMaxExpansions, cfg.MaxExpansions)
		assert.Equal(t, DefaultMaxRedefinitions, cfg.MaxRedefinitions)
		assert.Equal(t, DefaultEntry, cfg.Entry)
		assert.True(t, cfg.Prelude)
		assert.Equal(t, []string{filepath.Join(dir, "shims.yaml"), "/abs/macros.star"}, cfg.Fixtures)
	})

	t.Run("prelude disabled", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "prelude: false\n")

		cfg, err := LoadFromDir(dir)
		require.NoError(t, err)
		assert.False(t, cfg.Prelude)
	})

	t.Run("negative limit rejected", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "max_expansions: -1\n")

		_, err := LoadFromDir(dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_expansions")
	})
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "max_steps: 10\n")
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o750))

	assert.Equal(t, root, FindProjectRoot(nested))
	assert.Equal(t, filepath.Join(root, ConfigFileName), FindConfigFile(root))
	assert.Empty(t, FindConfigFile(nested))
}

func TestAnalyzerOptions(t *testing.T) {
	cfg := Defaults()
	assert.Len(t, cfg.AnalyzerOptions(nil), 5)
	assert.NoError(t, cfg.Validate())
}
