// SPDX-License-Identifier: MIT

// Package fault defines the classified error taxonomy shared by all workflow
// stages. Every stage returns either a typed outcome or a *fault.Error; bare
// errors reaching the orchestrator are mapped to ClassInternal.
package fault

import (
	"errors"
	"fmt"
)

// Class is a stable machine-readable failure classification.
// Keep these stable: metrics and client UX depend on them.
type Class string

const (
	// ClassUnprocessable covers documents the extractor declared unusable.
	// User-facing, never retried; the user must re-upload.
	ClassUnprocessable Class = "UNPROCESSABLE_DOCUMENT"

	// ClassInvalidInput covers malformed stage input (e.g. both command and
	// extraction supplied to the draft builder).
	ClassInvalidInput Class = "INVALID_INPUT"

	// ClassUnresolvableIntent means no payee candidate could be derived at all.
	ClassUnresolvableIntent Class = "UNRESOLVABLE_INTENT"

	// ClassInvalidDraftEdit rejects a correction supplied during review;
	// the gate re-presents the original artifact.
	ClassInvalidDraftEdit Class = "INVALID_DRAFT_EDIT"

	// ClassRetryable marks transient infrastructure failures (timeouts, 5xx).
	// Callers may retry with the same idempotency key.
	ClassRetryable Class = "RETRYABLE"

	// ClassTerminal marks definitive ledger rejections (validation failure,
	// insufficient funds, duplicate conflict). Never retried.
	ClassTerminal Class = "TERMINAL"

	// ClassInternal is the catch-all for unclassified failures.
	ClassInternal Class = "INTERNAL"
)

// Error is a classified, user-presentable error with an optional wrapped cause.
type Error struct {
	Class  Class
	Reason string
	Cause  error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Class, e.Reason, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Class, e.Reason)
}

func (e *Error) Unwrap() error { return e.Cause }

// New creates a classified error with a user-facing reason.
func New(class Class, reason string) *Error {
	return &Error{Class: class, Reason: reason}
}

// Newf creates a classified error with a formatted reason.
func Newf(class Class, format string, args ...any) *Error {
	return &Error{Class: class, Reason: fmt.Sprintf(format, args...)}
}

// Wrap attaches a classification and reason to an underlying cause.
func Wrap(class Class, reason string, cause error) *Error {
	return &Error{Class: class, Reason: reason, Cause: cause}
}

// ClassOf returns the classification of err, or ClassInternal for
// unclassified errors (including nil-safe use on wrapped chains).
func ClassOf(err error) Class {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Class
	}
	return ClassInternal
}

// ReasonOf returns the user-facing reason text carried by err, or a generic
// reason for unclassified errors. It never returns an empty string for a
// non-nil error: every terminal state owes the user an explanation.
func ReasonOf(err error) string {
	if err == nil {
		return ""
	}
	var fe *Error
	if errors.As(err, &fe) && fe.Reason != "" {
		return fe.Reason
	}
	return "internal error"
}

// IsRetryable reports whether err may be retried with the same idempotency key.
func IsRetryable(err error) bool {
	return ClassOf(err) == ClassRetryable
}
