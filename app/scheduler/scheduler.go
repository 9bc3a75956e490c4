// Package scheduler triggers digest runs on a fixed interval.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// RunFunc performs one run.
type RunFunc func(ctx context.Context) error

type Scheduler struct {
	run      RunFunc
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	skip     error
}

// NewScheduler returns a scheduler calling run every interval. Errors equal
// to skip (such as a run already being in progress) are logged at debug.
func NewScheduler(run RunFunc, interval time.Duration, skip error) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		run:      run,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
		skip:     skip,
	}
}

// Start runs once immediately, then on every tick until Stop.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.tick()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()

	slog.Info("Scheduler started", "interval", s.interval)
}

// Stop cancels an in-flight run and waits for the loop to exit.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) tick() {
	err := s.run(s.ctx)
	switch {
	case err == nil:
	case s.skip != nil && errors.Is(err, s.skip):
		slog.Debug("Scheduled run skipped", "reason", err)
	case errors.Is(err, context.Canceled):
		slog.Debug("Scheduled run cancelled")
	default:
		slog.Warn("Scheduled run failed", "error", err)
	}
}
