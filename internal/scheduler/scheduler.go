// Package scheduler triggers one full metrics sweep per day at a
// configured local hour.
package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper runs one full poll over all active posts.
type Sweeper interface {
	PollAll(ctx context.Context) (int, error)
}

// Scheduler sleeps until the next occurrence of the configured hour, runs
// a sweep, and repeats until its context is cancelled.
type Scheduler struct {
	sweeper Sweeper
	hour    int
	log     *slog.Logger
	wake    func(now time.Time) time.Duration
}

// New creates a Scheduler that fires at the given local hour (0-23).
func New(sweeper Sweeper, hour int, log *slog.Logger) *Scheduler {
	s := &Scheduler{
		sweeper: sweeper,
		hour:    hour,
		log:     log,
	}
	s.wake = func(now time.Time) time.Duration {
		return NextRunIn(now, s.hour)
	}
	return s
}

// SetWakeFunc overrides how the next sleep duration is computed (useful
// for testing).
func (s *Scheduler) SetWakeFunc(f func(now time.Time) time.Duration) {
	s.wake = f
}

// NextRunIn returns how long to sleep from now until the next occurrence
// of the given local hour. The result is never below one second, so a run
// that starts inside the target hour still schedules a future wake-up.
func NextRunIn(now time.Time, hour int) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	d := next.Sub(now)
	if d < time.Second {
		d = time.Second
	}
	return d
}

// Run starts the scheduler loop, blocking until ctx is cancelled. Sweep
// errors are logged and swallowed; the loop always re-arms.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		wait := s.wake(time.Now())
		s.log.Info("next sweep scheduled", "hour", s.hour, "in", wait.Round(time.Second).String())

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		s.sweep(ctx)
	}
}

func (s *Scheduler) sweep(ctx context.Context) {
	start := time.Now()
	polled, err := s.sweeper.PollAll(ctx)
	if err != nil {
		s.log.Error("daily sweep", "error", err)
		return
	}
	s.log.Info("daily sweep done", "posts", polled, "took", time.Since(start).Round(time.Millisecond).String())
}
