package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, StrategyFilenameThenSymbol, cfg.Strategy)
	assert.Equal(t, 200*time.Millisecond, cfg.SymbolTimeout)
	assert.True(t, cfg.TargetMatching)
	assert.Equal(t, 143, cfg.CancelExitCode)
	assert.Equal(t, ".xcflow", cfg.StateDir)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	yaml := `
resolver:
  strategy: symbol_then_filename
  symbol_timeout_ms: 500
  target_matching: false
run:
  cancel_exit_code: 130
paths:
  build_dir: /tmp/DerivedData/Build/Products
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "xcflow.yaml"), []byte(yaml), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, StrategySymbolThenFilename, cfg.Strategy)
	assert.Equal(t, 500*time.Millisecond, cfg.SymbolTimeout)
	assert.False(t, cfg.TargetMatching)
	assert.Equal(t, 130, cfg.CancelExitCode)
	assert.Equal(t, "/tmp/DerivedData/Build/Products", cfg.BuildDir)
}

func TestLoadRejectsUnknownStrategy(t *testing.T) {
	dir := t.TempDir()
	yaml := "resolver:\n  strategy: psychic\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "xcflow.yaml"), []byte(yaml), 0o644))

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown resolver strategy")
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("XCFLOW_RESOLVER_STRATEGY", "filename")
	t.Setenv("XCFLOW_RUN_CANCEL_EXIT_CODE", "137")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, StrategyFilename, cfg.Strategy)
	assert.Equal(t, 137, cfg.CancelExitCode)
}
