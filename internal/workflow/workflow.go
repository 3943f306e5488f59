// SPDX-License-Identifier: MIT

// Package workflow sequences extraction, drafting, confirmation and
// submission for one payment request. The engine is the only component with
// a global view of progress; it owns the session record exclusively,
// checkpoints it at every transition, and suspends at the confirmation gate
// by persisting state and returning control to the caller. Resume is keyed
// by session ID.
package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/payflowd/payflow/internal/draft"
	"github.com/payflowd/payflow/internal/extract"
	"github.com/payflowd/payflow/internal/fault"
	"github.com/payflowd/payflow/internal/fsm"
	"github.com/payflowd/payflow/internal/log"
	"github.com/payflowd/payflow/internal/metrics"
	"github.com/payflowd/payflow/internal/model"
	"github.com/payflowd/payflow/internal/review"
	"github.com/payflowd/payflow/internal/store"
	"github.com/payflowd/payflow/internal/submit"
)

// ErrSessionTerminal is returned when a decision or cancellation arrives for
// a session that already reached a terminal state.
var ErrSessionTerminal = errors.New("workflow: session is terminal")

// Engine drives payment-preparation sessions. Instances are independent;
// one engine serves many concurrent sessions with no shared mutable state
// beyond the stores.
type Engine struct {
	extractor extract.Extractor
	builder   *draft.Builder
	submitter *submit.Submitter
	sessions  store.SessionStore

	// extractRetries bounds automatic re-attempts after retryable
	// extraction failures; extractInterval seeds the backoff.
	extractRetries  int
	extractInterval time.Duration

	now func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides time for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithExtractRetries overrides the retry budget for retryable extraction
// failures.
func WithExtractRetries(n int) Option {
	return func(e *Engine) { e.extractRetries = n }
}

// WithExtractInterval overrides the first extraction backoff delay.
func WithExtractInterval(d time.Duration) Option {
	return func(e *Engine) { e.extractInterval = d }
}

// New assembles a workflow engine.
func New(ex extract.Extractor, b *draft.Builder, sub *submit.Submitter, sessions store.SessionStore, opts ...Option) *Engine {
	e := &Engine{
		extractor:       ex,
		builder:         b,
		submitter:       sub,
		sessions:        sessions,
		extractRetries:  3,
		extractInterval: 500 * time.Millisecond,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// StartRequest carries one of a free-text command or a document upload.
type StartRequest struct {
	Command  string
	Document *model.Document
}

// Start runs a new session up to the confirmation gate (or a terminal
// failure). The returned record is the caller's own copy; the engine's truth
// lives in the session store.
func (e *Engine) Start(ctx context.Context, req StartRequest) (*model.SessionRecord, error) {
	if (req.Command == "") == (req.Document == nil) {
		return nil, fault.New(fault.ClassInvalidInput, "provide exactly one of command or document")
	}

	rec := &model.SessionRecord{
		SessionID:     uuid.NewString(),
		Command:       req.Command,
		Document:      req.Document,
		State:         model.StateStart,
		CreatedAtUnix: e.now().Unix(),
		UpdatedAtUnix: e.now().Unix(),
	}
	ctx = log.ContextWithSessionID(ctx, rec.SessionID)
	logger := log.WithComponentFromContext(ctx, "workflow")

	if err := e.sessions.PutSession(ctx, rec); err != nil {
		return nil, fault.Wrap(fault.ClassRetryable, "session store unavailable", err)
	}
	metrics.IncSessionStarted()
	logger.Info().Bool("has_document", req.Document != nil).Msg("session started")

	// Stage 1: extraction, skipped when no document is present.
	if rec.Document != nil {
		if err := e.transition(ctx, rec, model.EventDocumentReceived, nil); err != nil {
			return rec, err
		}
		res, err := e.extract(ctx, *rec.Document)
		if err != nil {
			metrics.IncExtraction("error")
			// An exhausted outage is infrastructure, not a verdict on the
			// document; it takes a different edge than processable=false.
			if fault.IsRetryable(err) {
				return rec, e.fail(ctx, rec, model.EventExtractFailed,
					fault.Wrap(fault.ClassRetryable, "extraction service unavailable", err))
			}
			return rec, e.fail(ctx, rec, model.EventUnprocessable, err)
		}
		rec.Extraction = &res
		if !res.Processable {
			metrics.IncExtraction("unprocessable")
			return rec, e.fail(ctx, rec, model.EventUnprocessable,
				fault.New(fault.ClassUnprocessable, res.Reason))
		}
		metrics.IncExtraction("processable")
		if err := e.transition(ctx, rec, model.EventExtracted, nil); err != nil {
			return rec, err
		}
	} else {
		if err := e.transition(ctx, rec, model.EventCommandReceived, nil); err != nil {
			return rec, err
		}
	}

	// Stage 2: drafting. Exactly one of command/extraction drives it.
	command := rec.Command
	if rec.Extraction != nil {
		command = ""
	}
	d, err := e.builder.Build(ctx, command, rec.Extraction)
	if err != nil {
		return rec, e.fail(ctx, rec, model.EventDraftFailed, err)
	}
	rec.Draft = d

	// Stage 3: present for review and suspend. Every draft is shown; the
	// session persists across an arbitrarily long human delay.
	artifact := review.Present(d)
	rec.Review = &artifact
	if err := e.transition(ctx, rec, model.EventDrafted, nil); err != nil {
		return rec, err
	}
	metrics.AwaitingConfirmationInc()
	logger.Info().Str("draft_id", d.DraftID).Bool("needs_confirmation", d.NeedsConfirmation).
		Msg("awaiting confirmation")
	return rec, nil
}

// Resume applies a human decision to a suspended session and, on confirm,
// drives it to a terminal outcome.
func (e *Engine) Resume(ctx context.Context, sessionID string, decision model.Decision) (*model.SessionRecord, error) {
	ctx = log.ContextWithSessionID(ctx, sessionID)
	logger := log.WithComponentFromContext(ctx, "workflow")

	rec, err := e.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if rec.State.IsTerminal() {
		return rec, ErrSessionTerminal
	}
	if rec.State != model.StateAwaitingConfirmation || rec.Review == nil {
		return rec, fault.Newf(fault.ClassInvalidInput, "session is not awaiting a decision (state %s)", rec.State)
	}

	confirmed, err := review.Resolve(*rec.Review, decision)
	if err != nil {
		// Invalid edits re-present the gate; the session stays suspended.
		logger.Warn().Err(err).Msg("decision rejected, re-presenting review")
		return rec, err
	}

	if confirmed == nil { // reject
		metrics.AwaitingConfirmationDec()
		if err := e.transition(ctx, rec, model.EventRejected, func(r *model.SessionRecord) {
			r.Reason = "rejected by user"
		}); err != nil {
			return rec, err
		}
		logger.Info().Msg("session abandoned by user decision")
		return rec, nil
	}

	// A bad schedule time is a correctable decision, not a failed session:
	// reject it before EventConfirmed fires so the gate stays open.
	if decision.ScheduleFor != nil && !decision.ScheduleFor.After(e.now()) {
		logger.Warn().Time("schedule_for", *decision.ScheduleFor).
			Msg("schedule time rejected, re-presenting review")
		return rec, fault.New(fault.ClassInvalidInput, "schedule time must be in the future")
	}

	// An edited draft replaces the original and re-derives the key space.
	if decision.Type == model.DecisionEdit {
		rec.Draft = confirmed
		artifact := review.Present(confirmed)
		rec.Review = &artifact
		rec.DecisionRevision++
	}

	idemKey := submit.DeriveKey(rec.SessionID, rec.DecisionRevision, confirmed)
	metrics.AwaitingConfirmationDec()
	if err := e.transition(ctx, rec, model.EventConfirmed, func(r *model.SessionRecord) {
		r.Draft = confirmed
		r.IdempotencyKey = idemKey
	}); err != nil {
		return rec, err
	}

	// Stage 4: submission or scheduling. From here cancellation is no
	// longer honored; the attempt runs to a terminal outcome.
	var result model.SubmissionResult
	var submitErr error
	if decision.ScheduleFor != nil {
		result, submitErr = e.submitter.Schedule(ctx, confirmed, idemKey, *decision.ScheduleFor)
	} else {
		result, submitErr = e.submitter.Submit(ctx, confirmed, idemKey)
	}

	if submitErr != nil {
		rec.Submission = &result
		return rec, e.fail(ctx, rec, model.EventSubmitFailed, submitErr)
	}

	event := model.EventSubmitOK
	if result.Outcome == model.OutcomeScheduled {
		event = model.EventScheduleOK
	}
	if err := e.transition(ctx, rec, event, func(r *model.SessionRecord) {
		r.Submission = &result
	}); err != nil {
		return rec, err
	}
	logger.Info().Str("outcome", string(result.Outcome)).Msg("session finalized")
	return rec, nil
}

// Cancel abandons a session with no external side effects. It is honored
// strictly before Finalizing; afterwards the in-flight attempt must reach a
// terminal outcome on its own.
func (e *Engine) Cancel(ctx context.Context, sessionID string) (*model.SessionRecord, error) {
	ctx = log.ContextWithSessionID(ctx, sessionID)

	rec, err := e.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if rec.State.IsTerminal() {
		return rec, ErrSessionTerminal
	}
	if !fsm.CanFire(rec.State, model.EventCancelled) {
		return rec, fault.Newf(fault.ClassInvalidInput, "session can no longer be canceled (state %s)", rec.State)
	}
	wasAwaiting := rec.State == model.StateAwaitingConfirmation
	if err := e.transition(ctx, rec, model.EventCancelled, func(r *model.SessionRecord) {
		r.Reason = "canceled"
	}); err != nil {
		return rec, err
	}
	if wasAwaiting {
		metrics.AwaitingConfirmationDec()
	}
	logger := log.WithComponentFromContext(ctx, "workflow")
	logger.Info().Msg("session canceled")
	return rec, nil
}

// Get returns the caller's copy of a session record.
func (e *Engine) Get(ctx context.Context, sessionID string) (*model.SessionRecord, error) {
	return e.sessions.GetSession(ctx, sessionID)
}

// extract runs the document through the extractor with a bounded retry for
// transient failures. Unprocessable verdicts and other permanent errors
// return immediately.
func (e *Engine) extract(ctx context.Context, doc model.Document) (model.ExtractionResult, error) {
	logger := log.WithComponentFromContext(ctx, "workflow")

	attempts := 0
	operation := func() (model.ExtractionResult, error) {
		attempts++
		res, err := e.extractor.Extract(ctx, doc)
		if err != nil {
			if fault.IsRetryable(err) {
				logger.Warn().Err(err).Int("attempt", attempts).Msg("retryable extraction failure")
				return model.ExtractionResult{}, err
			}
			return model.ExtractionResult{}, backoff.Permanent(err)
		}
		return res, nil
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = e.extractInterval

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(uint(e.extractRetries+1)))
}

// transition fires an FSM event, applies mutate, and checkpoints the record.
// Terminal states are counted once, when entered.
func (e *Engine) transition(ctx context.Context, rec *model.SessionRecord, event model.Event, mutate func(*model.SessionRecord)) error {
	next, err := fsm.Next(rec.State, event)
	if err != nil {
		return err
	}
	rec.State = next
	if mutate != nil {
		mutate(rec)
	}
	rec.Touch(e.now())

	if _, err := e.sessions.UpdateSession(ctx, rec.SessionID, func(stored *model.SessionRecord) error {
		*stored = *rec
		return nil
	}); err != nil {
		return fault.Wrap(fault.ClassRetryable, "session checkpoint failed", err)
	}

	if next.IsTerminal() {
		metrics.IncSessionTerminal(string(next))
	}
	return nil
}

// fail drives the session to Failed (or Abandoned via the event supplied),
// making sure the user always sees why it stopped. Unclassified causes get a
// generic reason; the underlying error is logged for operators.
func (e *Engine) fail(ctx context.Context, rec *model.SessionRecord, event model.Event, cause error) error {
	logger := log.WithComponentFromContext(ctx, "workflow")

	reason := fault.ReasonOf(cause)
	if fault.ClassOf(cause) == fault.ClassInternal {
		logger.Error().Err(cause).Msg("unclassified failure, mapping to generic reason")
		reason = "an internal error interrupted the session"
	}

	if rec.State == model.StateAwaitingConfirmation {
		metrics.AwaitingConfirmationDec()
	}
	if err := e.transition(ctx, rec, event, func(r *model.SessionRecord) {
		r.Reason = reason
	}); err != nil {
		logger.Error().Err(err).Msg("failed to record terminal failure")
	}
	logger.Warn().Str("class", string(fault.ClassOf(cause))).Str("reason", reason).Msg("session failed")
	return cause
}
