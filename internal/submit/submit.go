// SPDX-License-Identifier: MIT

// Package submit executes confirmed drafts against the external ledger, or
// persists them for future execution, under a strict idempotency discipline:
// one confirmed decision maps to one idempotency key maps to at most one
// external payment, no matter how often it is retried.
package submit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/payflowd/payflow/internal/fault"
	"github.com/payflowd/payflow/internal/ledger"
	"github.com/payflowd/payflow/internal/log"
	"github.com/payflowd/payflow/internal/metrics"
	"github.com/payflowd/payflow/internal/model"
	"github.com/payflowd/payflow/internal/store"
)

// DeriveKey computes the idempotency key for one confirmed decision. It is
// deterministic over the draft's money-moving content plus the session and
// decision revision, so retries reuse it and an edit-then-reconfirm cycle
// gets a fresh one.
func DeriveKey(sessionID string, revision int, d *model.PaymentDraft) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%d|%s|%s|%s|%s|%s|%s",
		sessionID, revision,
		d.Payee.ResolvedEntityID, d.Payee.Email, d.Payee.Name,
		d.Amount.String(), d.Currency, d.FundingMethodID)
	return hex.EncodeToString(h.Sum(nil))
}

// Submitter is the submission/scheduling adapter.
type Submitter struct {
	ledger    ledger.Ledger
	idem      store.IdempotencyStore
	schedule  store.ScheduleStore
	accountID string

	// maxRetries bounds automatic re-attempts after retryable failures.
	maxRetries int

	// initialInterval seeds the exponential backoff; shortened in tests.
	initialInterval time.Duration

	now func() time.Time
}

// Option configures a Submitter.
type Option func(*Submitter)

// WithMaxRetries overrides the retry budget for retryable failures.
func WithMaxRetries(n int) Option {
	return func(s *Submitter) { s.maxRetries = n }
}

// WithInitialInterval overrides the first backoff delay.
func WithInitialInterval(d time.Duration) Option {
	return func(s *Submitter) { s.initialInterval = d }
}

// WithClock overrides time for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Submitter) { s.now = now }
}

// New creates the submission adapter.
func New(lg ledger.Ledger, idem store.IdempotencyStore, schedule store.ScheduleStore, accountID string, opts ...Option) *Submitter {
	s := &Submitter{
		ledger:          lg,
		idem:            idem,
		schedule:        schedule,
		accountID:       accountID,
		maxRetries:      3,
		initialInterval: 500 * time.Millisecond,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit executes the confirmed draft immediately. Calling it twice with the
// same key never creates two payments: a key already recorded as succeeded
// short-circuits locally, and in-flight duplicates are absorbed by the
// ledger's own idempotency handling of the forwarded key.
func (s *Submitter) Submit(ctx context.Context, d *model.PaymentDraft, idemKey string) (model.SubmissionResult, error) {
	logger := log.WithComponentFromContext(ctx, "submit")

	rec, claimed, err := s.idem.Claim(ctx, idemKey)
	if err != nil {
		return model.SubmissionResult{}, fault.Wrap(fault.ClassRetryable, "idempotency ledger unavailable", err)
	}
	if !claimed && rec.State == store.IdemSucceeded {
		logger.Info().Str("idempotency_key", idemKey).Str("reference_id", rec.ReferenceID).
			Msg("idempotent replay, returning recorded outcome")
		metrics.IncSubmission("replayed")
		return model.SubmissionResult{
			Outcome:             model.OutcomeSubmitted,
			IdempotencyKey:      idemKey,
			ExternalReferenceID: rec.ReferenceID,
		}, nil
	}

	payload := ledger.FromDraft(s.accountID, d)

	attempts := 0
	operation := func() (ledger.PaymentStatus, error) {
		attempts++
		if attempts > 1 {
			metrics.IncSubmissionRetry()
		}
		st, err := s.ledger.CreatePayment(ctx, payload, idemKey)
		if err != nil {
			if fault.IsRetryable(err) {
				metrics.IncSubmission("retryable")
				logger.Warn().Err(err).Int("attempt", attempts).Msg("retryable submission failure")
				return ledger.PaymentStatus{}, err
			}
			metrics.IncSubmission("terminal")
			return ledger.PaymentStatus{}, backoff.Permanent(err)
		}
		return st, nil
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = s.initialInterval

	st, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(uint(s.maxRetries+1)))
	if err != nil {
		// A failed attempt made no payment; release our pending claim so a
		// later reconfirmation is not wedged behind it. A claim owned by a
		// concurrent submitter is left alone.
		if claimed {
			_ = s.idem.Release(ctx, idemKey)
		}
		return model.SubmissionResult{
			Outcome:        model.OutcomeFailed,
			IdempotencyKey: idemKey,
			Error:          fault.ReasonOf(err),
		}, err
	}

	if err := s.idem.Complete(ctx, idemKey, st.ReferenceID, string(model.OutcomeSubmitted)); err != nil {
		logger.Error().Err(err).Str("idempotency_key", idemKey).
			Msg("payment created but outcome not recorded; replay will rely on ledger idempotency")
	}

	metrics.IncSubmission("success")
	logger.Info().Str("reference_id", st.ReferenceID).Int("attempts", attempts).Msg("payment submitted")

	return model.SubmissionResult{
		Outcome:             model.OutcomeSubmitted,
		IdempotencyKey:      idemKey,
		ExternalReferenceID: st.ReferenceID,
	}, nil
}

// Schedule persists the confirmed draft for execution at `when`. The job is
// retrievable and cancelable until the runner picks it up.
func (s *Submitter) Schedule(ctx context.Context, d *model.PaymentDraft, idemKey string, when time.Time) (model.SubmissionResult, error) {
	if !when.After(s.now()) {
		return model.SubmissionResult{}, fault.New(fault.ClassInvalidInput, "schedule time must be in the future")
	}

	job := &model.ScheduledJob{
		JobID:          uuid.NewString(),
		SessionID:      log.SessionIDFromContext(ctx),
		Draft:          *d.Clone(),
		IdempotencyKey: idemKey,
		RunAt:          when.UTC(),
		Status:         model.JobScheduled,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.schedule.PersistJob(ctx, job); err != nil {
		return model.SubmissionResult{}, fault.Wrap(fault.ClassRetryable, "schedule store unavailable", err)
	}

	metrics.IncScheduledJob(string(model.JobScheduled))
	logger := log.WithComponentFromContext(ctx, "submit")
	logger.Info().
		Str("job_id", job.JobID).Time("run_at", job.RunAt).Msg("payment scheduled")

	when = job.RunAt
	return model.SubmissionResult{
		Outcome:        model.OutcomeScheduled,
		IdempotencyKey: idemKey,
		JobID:          job.JobID,
		ScheduledFor:   &when,
	}, nil
}

// ExecuteJob runs one due job to a terminal outcome and records it in the
// schedule store. Retryable exhaustion leaves the job scheduled for the next
// runner pass; terminal failures mark it failed.
func (s *Submitter) ExecuteJob(ctx context.Context, job *model.ScheduledJob) error {
	ctx = log.ContextWithSessionID(ctx, job.SessionID)
	res, err := s.Submit(ctx, &job.Draft, job.IdempotencyKey)
	now := s.now().UTC()

	switch {
	case err == nil:
		metrics.IncScheduledJob(string(model.JobExecuted))
		return s.schedule.MarkExecuted(ctx, job.JobID, model.JobExecuted, res.ExternalReferenceID, "", now)
	case fault.IsRetryable(err):
		// Leave the job scheduled; the next poll retries with the same key.
		return err
	default:
		metrics.IncScheduledJob(string(model.JobFailed))
		if markErr := s.schedule.MarkExecuted(ctx, job.JobID, model.JobFailed, "", fault.ReasonOf(err), now); markErr != nil {
			return markErr
		}
		return err
	}
}
