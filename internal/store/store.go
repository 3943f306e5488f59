// SPDX-License-Identifier: MIT

// Package store holds the durable state behind the workflow: session
// checkpoints, the cross-session idempotency ledger, and scheduled jobs.
//
// Design intent:
//   - Sessions are checkpointed at every state change so an arbitrarily long
//     confirmation wait costs nothing but the stored record.
//   - The idempotency ledger is the one piece of shared mutable state;
//     claims are atomic per key, first-writer-wins.
//   - Scheduled jobs are retrievable and cancelable until execution.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/payflowd/payflow/internal/model"
)

var (
	// ErrNotFound is returned for unknown session or job IDs.
	ErrNotFound = errors.New("not found")

	// ErrJobNotCancelable is returned when cancellation arrives after a job
	// already executed or was canceled.
	ErrJobNotCancelable = errors.New("job is not cancelable")
)

// SessionStore persists workflow session checkpoints.
type SessionStore interface {
	PutSession(ctx context.Context, rec *model.SessionRecord) error
	// GetSession returns ErrNotFound for unknown IDs.
	GetSession(ctx context.Context, id string) (*model.SessionRecord, error)
	// UpdateSession applies fn to the stored record atomically.
	UpdateSession(ctx context.Context, id string, fn func(*model.SessionRecord) error) (*model.SessionRecord, error)
	ListSessions(ctx context.Context) ([]*model.SessionRecord, error)
}

// IdemState is the recorded progress of one idempotency key.
type IdemState string

const (
	IdemPending   IdemState = "pending"
	IdemSucceeded IdemState = "succeeded"
)

// IdemRecord is the outcome recorded against an idempotency key.
type IdemRecord struct {
	Key         string    `json:"key"`
	State       IdemState `json:"state"`
	ReferenceID string    `json:"referenceId,omitempty"`
	Outcome     string    `json:"outcome,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// IdempotencyStore is the key -> outcome ledger shared by all sessions.
// Claim is atomic per key: the first claimer wins and everyone else observes
// the winner's record.
type IdempotencyStore interface {
	// Claim registers key as pending. If the key already exists, it returns
	// the existing record and claimed=false.
	Claim(ctx context.Context, key string) (rec IdemRecord, claimed bool, err error)
	// Complete records the successful outcome for a claimed key.
	Complete(ctx context.Context, key, referenceID, outcome string) error
	// Release drops a pending claim whose attempt failed terminally, so a
	// later edit-and-reconfirm cycle is not blocked by a stale claim.
	Release(ctx context.Context, key string) error
	// Get looks up a key; ok=false when unknown.
	Get(ctx context.Context, key string) (rec IdemRecord, ok bool, err error)
}

// ScheduleStore persists confirmed drafts for future execution.
type ScheduleStore interface {
	PersistJob(ctx context.Context, job *model.ScheduledJob) error
	// GetJob returns ErrNotFound for unknown IDs.
	GetJob(ctx context.Context, jobID string) (*model.ScheduledJob, error)
	// CancelJob marks a scheduled job canceled; ErrJobNotCancelable once it
	// has run or was already canceled.
	CancelJob(ctx context.Context, jobID string) error
	// ListDueJobs returns jobs still in scheduled state with RunAt <= now.
	ListDueJobs(ctx context.Context, now time.Time) ([]*model.ScheduledJob, error)
	// MarkExecuted transitions a job out of scheduled state after a
	// submission attempt reached a terminal outcome.
	MarkExecuted(ctx context.Context, jobID string, status model.JobStatus, referenceID, lastError string, at time.Time) error
}

// Stores bundles the three stores a running daemon needs.
type Stores struct {
	Sessions SessionStore
	Idem     IdempotencyStore
	Schedule ScheduleStore

	closers []func() error
}

// Close releases all underlying resources.
func (s *Stores) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
