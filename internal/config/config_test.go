package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp runs the test from an empty directory so no stray netcheck.yaml
// is picked up.
func chdirTemp(t *testing.T) {
	t.Helper()
	orig, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(orig) })
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 50, cfg.Jobs.MaxRetained)
	assert.Equal(t, 10, cfg.Jobs.DefaultTimeoutSeconds)
	assert.Equal(t, 4, cfg.Jobs.DefaultCount)
	assert.Equal(t, 4, cfg.Batch.Concurrency)
	assert.Equal(t, "github.com", cfg.Batch.DefaultTarget)
	assert.False(t, cfg.Debug)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "netcheck.yaml")
	content := `server:
  host: 0.0.0.0
  port: 9090
  read_timeout: 5s
jobs:
  max_retained: 10
analysis:
  warning_keywords:
    - degraded
    - flapping
debug: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFile(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 10, cfg.Jobs.MaxRetained)
	assert.Equal(t, []string{"degraded", "flapping"}, cfg.Analysis.WarningKeywords)
	assert.True(t, cfg.Debug)

	// Untouched sections keep defaults.
	assert.Equal(t, 4, cfg.Batch.Concurrency)
}

func TestLoadFileMissingExplicitPathFails(t *testing.T) {
	_, err := LoadFile(context.Background(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	chdirTemp(t)
	t.Setenv("NETCHECK_SERVER_PORT", "7070")
	t.Setenv("NETCHECK_JOBS_MAX_RETAINED", "5")
	t.Setenv("NETCHECK_BATCH_DEFAULT_TARGET", "example.org")

	cfg, err := Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Jobs.MaxRetained)
	assert.Equal(t, "example.org", cfg.Batch.DefaultTarget)
}
