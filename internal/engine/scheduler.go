package engine

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// CycleRunner runs one trading cycle.
type CycleRunner interface {
	RunCycle(ctx context.Context) CycleReport
}

// IntervalSource yields the current cycle period. It is consulted once per tick.
type IntervalSource interface {
	CycleInterval() time.Duration
}

// Scheduler runs a cycle immediately, then once per interval.
type Scheduler struct {
	runner   CycleRunner
	source   IntervalSource
	interval atomic.Int64
	runs     atomic.Uint64
	logger   *slog.Logger
}

// NewScheduler creates a scheduler.
func NewScheduler(runner CycleRunner, source IntervalSource) *Scheduler {
	return &Scheduler{
		runner: runner,
		source: source,
		logger: slog.Default().With("module", "scheduler"),
	}
}

// Interval returns the period the ticker is currently installed with.
func (s *Scheduler) Interval() time.Duration {
	return time.Duration(s.interval.Load())
}

// Runs returns the number of cycles started.
func (s *Scheduler) Runs() uint64 {
	return s.runs.Load()
}

// Run blocks until ctx is cancelled. A changed interval reinstalls the
// ticker; the new period applies from the next full period.
func (s *Scheduler) Run(ctx context.Context) {
	interval := s.source.CycleInterval()
	s.interval.Store(int64(interval))
	s.logger.Info("⏰ Scheduler started", slog.Duration("interval", interval))

	s.runSafe(ctx)

	ticker := time.NewTicker(interval)
	defer func() { ticker.Stop() }()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("👋 Scheduler stopped", slog.Uint64("cycles", s.Runs()))
			return
		case <-ticker.C:
			if next := s.source.CycleInterval(); next > 0 && next != interval {
				ticker.Stop()
				ticker = time.NewTicker(next)
				s.logger.Info("🔄 Interval changed, rescheduled",
					slog.Duration("old", interval),
					slog.Duration("new", next),
				)
				interval = next
				s.interval.Store(int64(interval))
			}
			s.runSafe(ctx)
		}
	}
}

func (s *Scheduler) runSafe(ctx context.Context) {
	s.runs.Add(1)
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("🔥 Cycle panicked, scheduler continues", slog.Any("panic", r))
		}
	}()
	s.runner.RunCycle(ctx)
}
