package registry

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper periodically marks agents without a fresh heartbeat as
// Unreachable. It never deletes records; an unreachable agent that
// heartbeats again becomes usable without re-registering.
type Sweeper struct {
	registry *Registry
	interval time.Duration
	logger   *slog.Logger
}

// NewSweeper creates a Sweeper. The interval should roughly match the
// heartbeat interval handed to agents.
func NewSweeper(reg *Registry, interval time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Sweeper{
		registry: reg,
		interval: interval,
		logger:   logger.With("component", "sweeper"),
	}
}

// Run blocks until ctx is done, sweeping once per interval.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("sweeper started", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper stopped")
			return
		case <-ticker.C:
			if stale := s.registry.MarkStale(); len(stale) > 0 {
				s.logger.Warn("marked agents unreachable", "agent_ids", stale, "count", len(stale))
			}
		}
	}
}
