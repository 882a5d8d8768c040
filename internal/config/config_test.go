package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestLoadOverlaysOntoDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tacpass.yaml")
	writeFile(t, path, "unroll_budget: 256\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 256, cfg.UnrollBudget)
	assert.Equal(t, "live", cfg.DefaultAnalysis, "default_analysis should be left at its default")
}

func TestLoadRejectsUnknownAnalysis(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tacpass.yaml")
	writeFile(t, path, "default_analysis: bogus\n")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsNonPositiveBudget(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tacpass.yaml")
	writeFile(t, path, "unroll_budget: 0\n")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
