// SPDX-License-Identifier: MIT
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payflow_sessions_started_total",
		Help: "Workflow sessions started",
	})

	sessionsTerminal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payflow_sessions_terminal_total",
		Help: "Workflow sessions reaching a terminal state, by state",
	}, []string{"state"}) // state=SUBMITTED|SCHEDULED|ABANDONED|FAILED

	extractionOutcome = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payflow_extraction_total",
		Help: "Document extraction attempts by outcome",
	}, []string{"outcome"}) // outcome=processable|unprocessable|error

	submissionAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payflow_submission_attempts_total",
		Help: "Ledger submission attempts by outcome",
	}, []string{"outcome"}) // outcome=success|retryable|terminal|replayed

	submissionRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payflow_submission_retries_total",
		Help: "Automatic submission retries with a reused idempotency key",
	})

	scheduledJobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payflow_scheduled_jobs_total",
		Help: "Scheduled payment jobs by final status",
	}, []string{"status"})

	awaitingConfirmation = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "payflow_sessions_awaiting_confirmation",
		Help: "Sessions currently suspended at the confirmation gate",
	})
)

func IncSessionStarted()              { sessionsStarted.Inc() }
func IncSessionTerminal(state string) { sessionsTerminal.WithLabelValues(state).Inc() }
func IncExtraction(outcome string)    { extractionOutcome.WithLabelValues(outcome).Inc() }
func IncSubmission(outcome string)    { submissionAttempts.WithLabelValues(outcome).Inc() }
func IncSubmissionRetry()             { submissionRetries.Inc() }
func IncScheduledJob(status string)   { scheduledJobs.WithLabelValues(status).Inc() }
func AwaitingConfirmationInc()        { awaitingConfirmation.Inc() }
func AwaitingConfirmationDec()        { awaitingConfirmation.Dec() }
