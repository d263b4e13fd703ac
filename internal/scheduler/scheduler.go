// Package scheduler owns the watch loop: it runs one scrape cycle
// immediately, then repeats on a fixed interval until cancelled.
package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// CycleFunc runs one full scrape cycle. Errors are logged, never fatal, so
// a transient failure does not kill the watch loop.
type CycleFunc func(ctx context.Context) error

// Scheduler ticks on an interval and runs the cycle each time.
type Scheduler struct {
	cycle    CycleFunc
	interval time.Duration
	logger   *slog.Logger
}

// NewScheduler creates a scheduler that runs cycle at the given interval.
func NewScheduler(cycle CycleFunc, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cycle:    cycle,
		interval: interval,
		logger:   logger,
	}
}

// Run starts the loop. It runs one immediate cycle, then ticks on the
// configured interval. It returns nil when ctx is cancelled (graceful shutdown).
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("starting watch loop", "interval", s.interval.String())

	s.runCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("shutting down watch loop")
			return nil
		case <-time.After(s.interval):
			s.runCycle(ctx)
		}
	}
}

func (s *Scheduler) runCycle(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := s.cycle(ctx); err != nil {
		s.logger.Error("scrape cycle failed", "error", err)
	}
}
