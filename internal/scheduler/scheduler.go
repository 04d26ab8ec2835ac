// Package scheduler runs periodic maintenance jobs on cron schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/example/taskflow/internal/logging"
)

// DefaultJobTimeout bounds a single run of a job.
const DefaultJobTimeout = time.Minute

// SessionPurger deletes sessions that can no longer authenticate.
type SessionPurger interface {
	PurgeExpiredSessions(ctx context.Context) (int64, error)
}

// Scheduler wraps a cron runner with structured logging.
type Scheduler struct {
	cron    *cron.Cron
	logger  *slog.Logger
	timeout time.Duration

	mu      sync.Mutex
	running bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLocation evaluates schedules in loc instead of UTC.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.cron = cron.New(cron.WithLocation(loc))
		}
	}
}

// WithJobTimeout overrides DefaultJobTimeout.
func WithJobTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// New returns a stopped scheduler.
func New(logger *slog.Logger, opts ...Option) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		logger:  logger.With("component", "scheduler"),
		timeout: DefaultJobTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddSessionPurge registers purger on spec, a standard five field cron
// expression or a descriptor such as "@every 1h".
func (s *Scheduler) AddSessionPurge(spec string, purger SessionPurger) (cron.EntryID, error) {
	if purger == nil {
		return 0, errors.New("scheduler: session purger is nil")
	}
	return s.add("session_purge", spec, func(ctx context.Context) error {
		removed, err := purger.PurgeExpiredSessions(ctx)
		if err != nil {
			return err
		}
		logging.FromContext(ctx).InfoContext(ctx, "expired sessions purged", "removed", removed)
		return nil
	})
}

func (s *Scheduler) add(name, spec string, run func(ctx context.Context) error) (cron.EntryID, error) {
	id, err := s.cron.AddFunc(spec, s.job(name, run))
	if err != nil {
		return 0, fmt.Errorf("scheduler: add %s job %q: %w", name, spec, err)
	}
	s.logger.Info("job registered", "job", name, "schedule", spec)
	return id, nil
}

// job wraps run with a timeout, a job scoped logger and panic recovery.
func (s *Scheduler) job(name string, run func(ctx context.Context) error) func() {
	return func() {
		logger := s.logger.With("job", name)
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		ctx = logging.ContextWithLogger(ctx, logger)

		defer func() {
			if r := recover(); r != nil {
				logger.ErrorContext(ctx, "job panicked", "panic", r)
			}
		}()

		started := time.Now()
		if err := run(ctx); err != nil {
			logger.ErrorContext(ctx, "job failed", "error", err, "duration", time.Since(started))
			return
		}
		logger.DebugContext(ctx, "job finished", "duration", time.Since(started))
	}
}

// Entries reports the registered jobs.
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

// Start begins running jobs in the background. Calling Start twice is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop halts scheduling and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler: waiting for running jobs: %w", ctx.Err())
	}
}
