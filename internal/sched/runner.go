// SPDX-License-Identifier: MIT

// Package sched runs due scheduled payments. A single runner polls the
// schedule store and hands due jobs to the submitter; each job reuses the
// idempotency key fixed at confirmation time, so a crash between execution
// and bookkeeping cannot double-pay.
package sched

import (
	"context"
	"time"

	"github.com/payflowd/payflow/internal/log"
	"github.com/payflowd/payflow/internal/store"
	"github.com/payflowd/payflow/internal/submit"
)

// Runner polls for due jobs and executes them.
type Runner struct {
	schedule  store.ScheduleStore
	submitter *submit.Submitter
	interval  time.Duration
	now       func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithClock overrides time for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// New builds a runner polling at the given interval.
func New(schedule store.ScheduleStore, submitter *submit.Submitter, interval time.Duration, opts ...Option) *Runner {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	r := &Runner{
		schedule:  schedule,
		submitter: submitter,
		interval:  interval,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run polls until ctx is canceled. It always returns ctx.Err().
func (r *Runner) Run(ctx context.Context) error {
	logger := log.WithComponentFromContext(ctx, "sched")
	logger.Info().Dur("interval", r.interval).Msg("schedule runner started")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("schedule runner stopped")
			return ctx.Err()
		case <-ticker.C:
			r.Tick(ctx)
		}
	}
}

// Tick executes one polling round. Exported so tests and the daemon's
// startup path can trigger a round without waiting for the ticker.
func (r *Runner) Tick(ctx context.Context) {
	logger := log.WithComponentFromContext(ctx, "sched")

	due, err := r.schedule.ListDueJobs(ctx, r.now())
	if err != nil {
		logger.Error().Err(err).Msg("listing due jobs failed")
		return
	}
	for _, job := range due {
		if ctx.Err() != nil {
			return
		}
		if err := r.submitter.ExecuteJob(ctx, job); err != nil {
			// Retryable failures keep the job scheduled; it is picked up
			// again next round.
			logger.Warn().Err(err).Str("job_id", job.JobID).Msg("job execution failed")
			continue
		}
		logger.Info().Str("job_id", job.JobID).Str("session_id", job.SessionID).Msg("scheduled job executed")
	}
}
