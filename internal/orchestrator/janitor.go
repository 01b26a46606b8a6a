package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/habbes/sandstorm/internal/store"
)

const (
	defaultSweepInterval    = 30 * time.Second
	defaultDeletedRetention = 5 * time.Minute
)

// Janitor purges Deleted sandbox records once they have been terminal for
// the retention window, so deleted ids eventually read as NotFound. Agent
// staleness is swept separately by the registry's sweeper.
type Janitor struct {
	store     store.Store
	logger    *slog.Logger
	interval  time.Duration
	retention time.Duration
}

// NewJanitor creates a Janitor.
func NewJanitor(st store.Store, interval, retention time.Duration, logger *slog.Logger) *Janitor {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	if retention <= 0 {
		retention = defaultDeletedRetention
	}
	return &Janitor{
		store:     st,
		logger:    logger.With("component", "janitor"),
		interval:  interval,
		retention: retention,
	}
}

// Run blocks until ctx is done, sweeping once per interval.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.logger.Info("janitor started", "interval", j.interval, "retention", j.retention)
	for {
		select {
		case <-ctx.Done():
			j.logger.Info("janitor stopped")
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

// sweep drops Deleted sandboxes whose last update is older than the
// retention window.
func (j *Janitor) sweep(ctx context.Context) {
	sandboxes, err := j.store.ListSandboxes(ctx)
	if err != nil {
		j.logger.Warn("sweep: list sandboxes failed", "error", err)
		return
	}

	cutoff := time.Now().Add(-j.retention)
	purged := 0
	for _, sb := range sandboxes {
		if sb.Status != store.SandboxDeleted || sb.UpdatedAt.After(cutoff) {
			continue
		}
		if err := j.store.DeleteSandbox(ctx, sb.ID); err != nil {
			j.logger.Warn("sweep: purge failed", "sandbox_id", sb.ID, "error", err)
			continue
		}
		purged++
	}
	if purged > 0 {
		j.logger.Info("purged deleted sandboxes", "count", purged)
	}
}
