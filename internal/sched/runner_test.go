// SPDX-License-Identifier: MIT

package sched_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payflowd/payflow/internal/fault"
	"github.com/payflowd/payflow/internal/ledger"
	"github.com/payflowd/payflow/internal/model"
	"github.com/payflowd/payflow/internal/sched"
	"github.com/payflowd/payflow/internal/store"
	"github.com/payflowd/payflow/internal/submit"
)

func scheduledJob(id string, runAt time.Time) *model.ScheduledJob {
	return &model.ScheduledJob{
		JobID:     id,
		SessionID: "sess-1",
		Draft: model.PaymentDraft{
			DraftID:  "d-1",
			Payee:    model.Payee{Name: "Sam", ResolvedEntityID: "p-sam"},
			Amount:   decimal.RequireFromString("50"),
			Currency: "USD",
		},
		IdempotencyKey: "key-" + id,
		RunAt:          runAt,
		Status:         model.JobScheduled,
		CreatedAt:      time.Now(),
	}
}

func TestTick_ExecutesDueJobsOnly(t *testing.T) {
	st := store.NewMemoryStore()
	mock := ledger.NewMock()
	submitter := submit.New(mock, st, st, "acct-1", submit.WithInitialInterval(time.Millisecond))
	runner := sched.New(st, submitter, time.Minute)

	ctx := context.Background()
	require.NoError(t, st.PersistJob(ctx, scheduledJob("due", time.Now().Add(-time.Minute))))
	require.NoError(t, st.PersistJob(ctx, scheduledJob("future", time.Now().Add(time.Hour))))

	runner.Tick(ctx)

	due, err := st.GetJob(ctx, "due")
	require.NoError(t, err)
	assert.Equal(t, model.JobExecuted, due.Status)
	assert.NotEmpty(t, due.ExternalReferenceID)

	future, err := st.GetJob(ctx, "future")
	require.NoError(t, err)
	assert.Equal(t, model.JobScheduled, future.Status)

	assert.Equal(t, 1, mock.PaymentCount())
}

func TestTick_IsIdempotentAcrossPasses(t *testing.T) {
	st := store.NewMemoryStore()
	mock := ledger.NewMock()
	submitter := submit.New(mock, st, st, "acct-1", submit.WithInitialInterval(time.Millisecond))
	runner := sched.New(st, submitter, time.Minute)

	ctx := context.Background()
	require.NoError(t, st.PersistJob(ctx, scheduledJob("due", time.Now().Add(-time.Minute))))

	runner.Tick(ctx)
	runner.Tick(ctx)

	assert.Equal(t, 1, mock.PaymentCount(), "a second pass must not pay twice")
}

func TestTick_RetryableFailureKeepsJobForNextPass(t *testing.T) {
	st := store.NewMemoryStore()
	mock := ledger.NewMock()
	mock.FailTimes = 100
	submitter := submit.New(mock, st, st, "acct-1",
		submit.WithMaxRetries(0), submit.WithInitialInterval(time.Millisecond))
	runner := sched.New(st, submitter, time.Minute)

	ctx := context.Background()
	require.NoError(t, st.PersistJob(ctx, scheduledJob("due", time.Now().Add(-time.Minute))))

	runner.Tick(ctx)
	job, err := st.GetJob(ctx, "due")
	require.NoError(t, err)
	assert.Equal(t, model.JobScheduled, job.Status)

	// The outage ends; the next pass completes the payment.
	mock.FailTimes = 0
	runner.Tick(ctx)
	job, err = st.GetJob(ctx, "due")
	require.NoError(t, err)
	assert.Equal(t, model.JobExecuted, job.Status)
	assert.Equal(t, 1, mock.PaymentCount())
}

func TestTick_TerminalFailureMarksJobFailed(t *testing.T) {
	st := store.NewMemoryStore()
	mock := ledger.NewMock()
	mock.RejectWith = fault.New(fault.ClassTerminal, "account suspended")
	submitter := submit.New(mock, st, st, "acct-1", submit.WithInitialInterval(time.Millisecond))
	runner := sched.New(st, submitter, time.Minute)

	ctx := context.Background()
	require.NoError(t, st.PersistJob(ctx, scheduledJob("due", time.Now().Add(-time.Minute))))

	runner.Tick(ctx)
	job, err := st.GetJob(ctx, "due")
	require.NoError(t, err)
	assert.Equal(t, model.JobFailed, job.Status)
	assert.Equal(t, "account suspended", job.LastError)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	st := store.NewMemoryStore()
	submitter := submit.New(ledger.NewMock(), st, st, "acct-1")
	runner := sched.New(st, submitter, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("runner did not stop after cancel")
	}
}
