// SPDX-License-Identifier: MIT

package model

import "time"

// Outcome is the terminal result of a submission or scheduling attempt.
type Outcome string

const (
	OutcomeSubmitted Outcome = "submitted"
	OutcomeScheduled Outcome = "scheduled"
	OutcomeFailed    Outcome = "failed"
)

// SubmissionResult records one terminal attempt at the money-moving boundary.
// A retried submission with the same idempotency key yields the same
// ExternalReferenceID rather than a new one.
type SubmissionResult struct {
	Outcome             Outcome    `json:"outcome"`
	IdempotencyKey      string     `json:"idempotencyKey"`
	ExternalReferenceID string     `json:"externalReferenceId,omitempty"`
	JobID               string     `json:"jobId,omitempty"`
	ScheduledFor        *time.Time `json:"scheduledFor,omitempty"`
	Error               string     `json:"error,omitempty"`
}

// JobStatus tracks a scheduled payment through its lifetime in the store.
type JobStatus string

const (
	JobScheduled JobStatus = "scheduled"
	JobExecuted  JobStatus = "executed"
	JobCanceled  JobStatus = "canceled"
	JobFailed    JobStatus = "failed"
)

// ScheduledJob is a confirmed draft persisted for future execution. Jobs are
// retrievable and cancelable up until their run time.
type ScheduledJob struct {
	JobID          string       `json:"jobId"`
	SessionID      string       `json:"sessionId"`
	Draft          PaymentDraft `json:"draft"`
	IdempotencyKey string       `json:"idempotencyKey"`
	RunAt          time.Time    `json:"runAt"`
	Status         JobStatus    `json:"status"`
	CreatedAt      time.Time    `json:"createdAt"`
	ExecutedAt     *time.Time   `json:"executedAt,omitempty"`

	// ExternalReferenceID is set once the job's submission succeeds.
	ExternalReferenceID string `json:"externalReferenceId,omitempty"`
	LastError           string `json:"lastError,omitempty"`
}
