// Package batch runs a set of diagnostic checks against one target with
// bounded concurrency and collects their terminal snapshots.
//
// The job manager itself imposes no limit on concurrent jobs; bounding
// fan-out is this package's responsibility.
package batch

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/ColorsOutofSpace/net-check/pkg/jobmanager"
)

// Config configures a batch run.
type Config struct {
	// Concurrency is the number of checks running in parallel.
	// Default: 4
	Concurrency int

	// RateLimit caps job launches per second. Zero means unlimited.
	RateLimit float64

	// Target is the probe target for checks that use one.
	Target string

	// Count is the probe count for repeating checks.
	Count int

	// TimeoutSeconds is the per-check tool timeout.
	TimeoutSeconds int
}

// DefaultConfig returns the default batch configuration.
func DefaultConfig() Config {
	return Config{
		Concurrency:    4,
		Count:          4,
		TimeoutSeconds: 10,
	}
}

// Runner executes batches against one job manager.
type Runner struct {
	manager *jobmanager.Manager
	cfg     Config
	limiter *rate.Limiter
}

// New creates a batch runner. Zero config values fall back to defaults.
func New(manager *jobmanager.Manager, cfg Config) *Runner {
	def := DefaultConfig()
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.Count <= 0 {
		cfg.Count = def.Count
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = def.TimeoutSeconds
	}
	r := &Runner{manager: manager, cfg: cfg}
	if cfg.RateLimit > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return r
}

// Run executes the given checks and blocks until every job reaches a
// terminal state or ctx is cancelled. Snapshots are returned in the order
// of checkIDs. An unknown check id fails the whole batch before any further
// launches.
func (r *Runner) Run(ctx context.Context, checkIDs []string) ([]jobmanager.Snapshot, error) {
	results := make([]jobmanager.Snapshot, len(checkIDs))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)

	for i, checkID := range checkIDs {
		i, checkID := i, checkID
		g.Go(func() error {
			if r.limiter != nil {
				if err := r.limiter.Wait(ctx); err != nil {
					return err
				}
			}
			initial, err := r.manager.CreateJob(checkID, jobmanager.Input{
				Target:         r.cfg.Target,
				Count:          r.cfg.Count,
				TimeoutSeconds: r.cfg.TimeoutSeconds,
			})
			if err != nil {
				return err
			}
			final, err := r.manager.Await(ctx, initial.ID)
			if err != nil {
				return err
			}
			mu.Lock()
			results[i] = final
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
