// SPDX-License-Identifier: MIT

// Package model holds the data contracts threaded through the payment
// preparation workflow. Records are written monotonically along the pipeline;
// no stage clears a field written by an earlier stage.
package model

import "time"

// SessionState is the lifecycle of one payment-preparation session.
type SessionState string

const (
	StateStart                SessionState = "START"
	StateExtracting           SessionState = "EXTRACTING"
	StateDrafting             SessionState = "DRAFTING"
	StateAwaitingConfirmation SessionState = "AWAITING_CONFIRMATION"
	StateFinalizing           SessionState = "FINALIZING"
	StateSubmitted            SessionState = "SUBMITTED"
	StateScheduled            SessionState = "SCHEDULED"
	StateAbandoned            SessionState = "ABANDONED"
	StateFailed               SessionState = "FAILED"
)

// IsTerminal returns true if no further transitions are allowed and the
// session record is immutable.
func (s SessionState) IsTerminal() bool {
	switch s {
	case StateSubmitted, StateScheduled, StateAbandoned, StateFailed:
		return true
	}
	return false
}

// Event is a trigger for a session state transition.
type Event string

const (
	EventDocumentReceived Event = "document.received"
	EventCommandReceived  Event = "command.received"
	EventExtracted        Event = "extracted"
	EventExtractFailed    Event = "extract.failed"
	EventUnprocessable    Event = "unprocessable"
	EventDrafted          Event = "drafted"
	EventDraftFailed      Event = "draft.failed"
	EventConfirmed        Event = "confirmed"
	EventRejected         Event = "rejected"
	EventCancelled        Event = "cancelled"
	EventSubmitOK         Event = "submit.ok"
	EventScheduleOK       Event = "schedule.ok"
	EventSubmitFailed     Event = "submit.failed"
)

// Document is a raw upload awaiting extraction.
type Document struct {
	Bytes    []byte `json:"-"`
	MimeType string `json:"mimeType"`
	Filename string `json:"filename"`
}

// SessionRecord is the single mutable record for one user request. The
// orchestrator owns it exclusively for the lifetime of the request; stages
// receive copies of the fields they need and never retain references.
type SessionRecord struct {
	SessionID string `json:"sessionId"`

	Command  string    `json:"command,omitempty"`
	Document *Document `json:"document,omitempty"`

	Extraction *ExtractionResult `json:"extraction,omitempty"`
	Draft      *PaymentDraft     `json:"draft,omitempty"`
	Review     *ReviewArtifact   `json:"review,omitempty"`
	Submission *SubmissionResult `json:"submission,omitempty"`

	State SessionState `json:"state"`

	// Reason explains why a session stopped; mandatory on every non-success
	// terminal state.
	Reason string `json:"reason,omitempty"`

	// DecisionRevision increments on every edit-then-reconfirm cycle so a
	// re-confirmed draft derives a fresh idempotency key.
	DecisionRevision int `json:"decisionRevision"`

	// IdempotencyKey is fixed once Finalizing begins and reused across
	// retries of the same confirmed decision.
	IdempotencyKey string `json:"idempotencyKey,omitempty"`

	CreatedAtUnix int64 `json:"createdAtUnix"`
	UpdatedAtUnix int64 `json:"updatedAtUnix"`
}

// Touch updates the record's modification timestamp.
func (r *SessionRecord) Touch(now time.Time) {
	r.UpdatedAtUnix = now.Unix()
}

// DecisionType is the outcome a human supplies at the confirmation gate.
type DecisionType string

const (
	DecisionConfirm DecisionType = "confirm"
	DecisionReject  DecisionType = "reject"
	DecisionEdit    DecisionType = "edit"
)

// Decision is the external actor's verdict on a presented draft.
type Decision struct {
	Type DecisionType `json:"type"`

	// CorrectedDraft carries the replacement draft for edit decisions.
	CorrectedDraft *PaymentDraft `json:"correctedDraft,omitempty"`

	// ScheduleFor, when set on a confirm decision, schedules the payment for
	// future execution instead of submitting immediately.
	ScheduleFor *time.Time `json:"scheduleFor,omitempty"`
}
