// Package persist runs the periodic flush of room state to durable storage.
package persist

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pixelworld/pixelworld-server/internal/room"
)

// Saver writes every changed room to durable storage.
type Saver interface {
	SaveAll(ctx context.Context) (room.SaveReport, error)
}

// Options configures a Scheduler.
type Options struct {
	Interval        time.Duration
	SaveOnShutdown  bool
	ShutdownTimeout time.Duration // bound on the final flush (default: 10s)
}

// Status describes the most recent flush.
type Status struct {
	LastFlushAt         time.Time
	LastError           string
	ConsecutiveFailures int
}

// Healthy reports whether the last flush succeeded.
func (s Status) Healthy() bool {
	return s.ConsecutiveFailures == 0
}

// Scheduler flushes rooms on a fixed interval. A failed flush is logged and
// retried on the next tick; it never affects the serving path.
type Scheduler struct {
	saver  Saver
	logger *slog.Logger
	opts   Options

	flushMu sync.Mutex // one flush at a time

	mu      sync.Mutex
	status  Status
	cancel  context.CancelFunc
	done    chan struct{}
	stopped bool
}

// New creates a scheduler. Call Start to begin ticking.
func New(saver Saver, logger *slog.Logger, opts Options) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = 15 * time.Second
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	return &Scheduler{
		saver:  saver,
		logger: logger,
		opts:   opts,
	}
}

// Start launches the flush loop. It returns immediately; the loop runs until
// ctx is cancelled or Stop is called. Calling Start twice is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.done != nil || s.stopped {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	go func() {
		defer close(done)

		ticker := time.NewTicker(s.opts.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				_, _ = s.Flush(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()

	s.logger.Info("persistence scheduler started", slog.Duration("interval", s.opts.Interval))
}

// Flush saves every changed room now.
func (s *Scheduler) Flush(ctx context.Context) (room.SaveReport, error) {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	start := time.Now()
	report, err := s.saver.SaveAll(ctx)

	s.mu.Lock()
	s.status.LastFlushAt = start
	if err != nil {
		s.status.ConsecutiveFailures++
		s.status.LastError = err.Error()
	} else {
		s.status.ConsecutiveFailures = 0
		s.status.LastError = ""
	}
	failures := s.status.ConsecutiveFailures
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("room flush failed, retrying next tick",
			slog.String("error", err.Error()),
			slog.Int("saved", report.Saved),
			slog.Int("failed", report.Failed),
			slog.Int("consecutive_failures", failures))
		return report, err
	}

	if report.Saved > 0 {
		s.logger.Debug("rooms flushed",
			slog.Int("saved", report.Saved),
			slog.Int("skipped", report.Skipped),
			slog.Duration("took", time.Since(start)))
	}
	return report, nil
}

// Status returns the outcome of the most recent flush.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Stop ends the flush loop and, if configured, performs a final flush.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	if !s.opts.SaveOnShutdown {
		return nil
	}

	ctx, cancelFlush := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancelFlush()

	report, err := s.Flush(ctx)
	if err != nil {
		s.logger.Error("final room flush failed", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("final room flush complete",
		slog.Int("saved", report.Saved),
		slog.Int("skipped", report.Skipped))
	return nil
}
