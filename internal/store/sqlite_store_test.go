// SPDX-License-Identifier: MIT

package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payflowd/payflow/internal/model"
	"github.com/payflowd/payflow/internal/store"
)

func openSqlite(t *testing.T) *store.SqliteStore {
	t.Helper()
	s, err := store.OpenSqliteStore(filepath.Join(t.TempDir(), "payflow.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSqliteStore_IdemClaimIsFirstWriterWins(t *testing.T) {
	s := openSqlite(t)
	ctx := context.Background()

	rec, claimed, err := s.Claim(ctx, "key-1")
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Equal(t, store.IdemPending, rec.State)

	rec, claimed, err = s.Claim(ctx, "key-1")
	require.NoError(t, err)
	assert.False(t, claimed, "second claim observes the first writer's record")
	assert.Equal(t, store.IdemPending, rec.State)
}

func TestSqliteStore_IdemCompleteAndReplay(t *testing.T) {
	s := openSqlite(t)
	ctx := context.Background()

	_, claimed, err := s.Claim(ctx, "key-1")
	require.NoError(t, err)
	require.True(t, claimed)
	require.NoError(t, s.Complete(ctx, "key-1", "pay_0007", "submitted"))

	rec, claimed, err := s.Claim(ctx, "key-1")
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.Equal(t, store.IdemSucceeded, rec.State)
	assert.Equal(t, "pay_0007", rec.ReferenceID)
	assert.Equal(t, "submitted", rec.Outcome)
}

func TestSqliteStore_ReleasePendingOnly(t *testing.T) {
	s := openSqlite(t)
	ctx := context.Background()

	_, _, err := s.Claim(ctx, "pending-key")
	require.NoError(t, err)
	require.NoError(t, s.Release(ctx, "pending-key"))
	_, ok, err := s.Get(ctx, "pending-key")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = s.Claim(ctx, "done-key")
	require.NoError(t, err)
	require.NoError(t, s.Complete(ctx, "done-key", "pay_0001", "submitted"))
	require.NoError(t, s.Release(ctx, "done-key"))
	rec, ok, err := s.Get(ctx, "done-key")
	require.NoError(t, err)
	require.True(t, ok, "release must not delete a succeeded record")
	assert.Equal(t, store.IdemSucceeded, rec.State)
}

func TestSqliteStore_JobPersistenceSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "payflow.db")
	ctx := context.Background()

	s, err := store.OpenSqliteStore(path)
	require.NoError(t, err)

	runAt := time.Now().Add(2 * time.Hour).Truncate(time.Millisecond)
	job := &model.ScheduledJob{
		JobID:     "job-1",
		SessionID: "sess-1",
		Draft: model.PaymentDraft{
			DraftID:  "d-1",
			Payee:    model.Payee{Name: "Sam", ResolvedEntityID: "p-sam"},
			Amount:   decimal.RequireFromString("50"),
			Currency: "USD",
		},
		IdempotencyKey: "key-1",
		RunAt:          runAt,
		Status:         model.JobScheduled,
		CreatedAt:      time.Now().Truncate(time.Millisecond),
	}
	require.NoError(t, s.PersistJob(ctx, job))
	require.NoError(t, s.Close())

	s, err = store.OpenSqliteStore(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	got, err := s.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", got.SessionID)
	assert.Equal(t, "key-1", got.IdempotencyKey)
	assert.True(t, got.RunAt.Equal(runAt))
	assert.Equal(t, "50", got.Draft.Amount.String())
	assert.Equal(t, "p-sam", got.Draft.Payee.ResolvedEntityID)
}

func TestSqliteStore_DueJobsOrderedByRunAt(t *testing.T) {
	s := openSqlite(t)
	ctx := context.Background()
	base := time.Now()

	for i, offset := range []time.Duration{3 * time.Minute, time.Minute, 2 * time.Minute} {
		require.NoError(t, s.PersistJob(ctx, &model.ScheduledJob{
			JobID:     []string{"job-a", "job-b", "job-c"}[i],
			SessionID: "sess-1",
			Draft:     model.PaymentDraft{DraftID: "d", Payee: model.Payee{Name: "Sam"}, Amount: decimal.NewFromInt(1), Currency: "USD"},
			RunAt:     base.Add(offset),
			Status:    model.JobScheduled,
			CreatedAt: base,
		}))
	}

	due, err := s.ListDueJobs(ctx, base.Add(10*time.Minute))
	require.NoError(t, err)
	require.Len(t, due, 3)
	assert.Equal(t, "job-b", due[0].JobID)
	assert.Equal(t, "job-c", due[1].JobID)
	assert.Equal(t, "job-a", due[2].JobID)

	due, err = s.ListDueJobs(ctx, base.Add(90*time.Second))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "job-b", due[0].JobID)
}

func TestSqliteStore_CancelAndMarkExecuted(t *testing.T) {
	s := openSqlite(t)
	ctx := context.Background()

	mk := func(id string) *model.ScheduledJob {
		return &model.ScheduledJob{
			JobID:     id,
			SessionID: "sess-1",
			Draft:     model.PaymentDraft{DraftID: "d", Payee: model.Payee{Name: "Sam"}, Amount: decimal.NewFromInt(1), Currency: "USD"},
			RunAt:     time.Now().Add(time.Hour),
			Status:    model.JobScheduled,
			CreatedAt: time.Now(),
		}
	}
	require.NoError(t, s.PersistJob(ctx, mk("job-1")))
	require.NoError(t, s.PersistJob(ctx, mk("job-2")))

	require.NoError(t, s.CancelJob(ctx, "job-1"))
	got, err := s.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobCanceled, got.Status)
	assert.ErrorIs(t, s.CancelJob(ctx, "job-1"), store.ErrJobNotCancelable)
	assert.ErrorIs(t, s.CancelJob(ctx, "missing"), store.ErrNotFound)

	at := time.Now().Truncate(time.Millisecond)
	require.NoError(t, s.MarkExecuted(ctx, "job-2", model.JobFailed, "", "account suspended", at))
	got, err = s.GetJob(ctx, "job-2")
	require.NoError(t, err)
	assert.Equal(t, model.JobFailed, got.Status)
	assert.Equal(t, "account suspended", got.LastError)
	require.NotNil(t, got.ExecutedAt)
	assert.True(t, got.ExecutedAt.Equal(at))

	assert.ErrorIs(t, s.MarkExecuted(ctx, "missing", model.JobExecuted, "", "", at), store.ErrNotFound)
}
