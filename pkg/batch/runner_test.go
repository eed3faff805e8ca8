package batch

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/unicode"

	"github.com/ColorsOutofSpace/net-check/pkg/catalog"
	"github.com/ColorsOutofSpace/net-check/pkg/jobmanager"
	"github.com/ColorsOutofSpace/net-check/pkg/parse"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("test spawns unix commands")
	}
}

func newManager() *jobmanager.Manager {
	return jobmanager.New(catalog.New(), jobmanager.Config{Encoding: unicode.UTF8})
}

func TestNewAppliesDefaults(t *testing.T) {
	r := New(newManager(), Config{})

	assert.Equal(t, 4, r.cfg.Concurrency)
	assert.Equal(t, 4, r.cfg.Count)
	assert.Equal(t, 10, r.cfg.TimeoutSeconds)
	assert.Nil(t, r.limiter)

	limited := New(newManager(), Config{RateLimit: 5})
	assert.NotNil(t, limited.limiter)
}

func TestRunPreservesCheckOrder(t *testing.T) {
	skipOnWindows(t)
	r := New(newManager(), Config{Concurrency: 2, TimeoutSeconds: 10})

	// Checks without a native unix tool resolve to fast echo commands, so
	// the batch is deterministic on any host.
	checkIDs := []string{catalog.CheckWinsockCatalog, catalog.CheckEnvProxy}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	snaps, err := r.Run(ctx, checkIDs)
	require.NoError(t, err)

	require.Len(t, snaps, 2)
	assert.Equal(t, catalog.CheckWinsockCatalog, snaps[0].CheckID)
	assert.Equal(t, catalog.CheckEnvProxy, snaps[1].CheckID)
	for _, s := range snaps {
		assert.True(t, s.Status.Terminal())
	}
	assert.Equal(t, false, snaps[0].Structured[parse.FactSupported])
}

func TestRunUnknownCheckFailsBatch(t *testing.T) {
	r := New(newManager(), Config{})

	_, err := r.Run(context.Background(), []string{"port-scan"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, jobmanager.ErrUnknownCheck))
}

func TestRunEmptyBatch(t *testing.T) {
	r := New(newManager(), Config{})

	snaps, err := r.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, snaps)
}

func TestRunHonorsContextCancellation(t *testing.T) {
	skipOnWindows(t)
	r := New(newManager(), Config{RateLimit: 0.001})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// The limiter makes the second launch wait far beyond the deadline.
	_, err := r.Run(ctx, []string{catalog.CheckEnvProxy, catalog.CheckEnvProxy})
	assert.Error(t, err)
}
