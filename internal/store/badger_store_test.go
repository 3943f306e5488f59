// SPDX-License-Identifier: MIT

package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payflowd/payflow/internal/model"
	"github.com/payflowd/payflow/internal/store"
)

func openBadger(t *testing.T) *store.BadgerStore {
	t.Helper()
	s, err := store.OpenBadgerStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBadgerStore_SessionRoundtrip(t *testing.T) {
	s := openBadger(t)
	ctx := context.Background()

	rec := &model.SessionRecord{
		SessionID:        "sess-1",
		Command:          "pay $50 to Sam",
		State:            model.StateAwaitingConfirmation,
		DecisionRevision: 2,
	}
	require.NoError(t, s.PutSession(ctx, rec))

	got, err := s.GetSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, rec.Command, got.Command)
	assert.Equal(t, model.StateAwaitingConfirmation, got.State)
	assert.Equal(t, 2, got.DecisionRevision)
}

func TestBadgerStore_GetSessionNotFound(t *testing.T) {
	s := openBadger(t)
	_, err := s.GetSession(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestBadgerStore_UpdateSession(t *testing.T) {
	s := openBadger(t)
	ctx := context.Background()

	require.NoError(t, s.PutSession(ctx, &model.SessionRecord{SessionID: "sess-1", State: model.StateDrafting}))

	updated, err := s.UpdateSession(ctx, "sess-1", func(r *model.SessionRecord) error {
		r.State = model.StateAwaitingConfirmation
		r.Reason = ""
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, model.StateAwaitingConfirmation, updated.State)

	got, err := s.GetSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, model.StateAwaitingConfirmation, got.State)
}

func TestBadgerStore_UpdateSessionPropagatesCallbackError(t *testing.T) {
	s := openBadger(t)
	ctx := context.Background()
	require.NoError(t, s.PutSession(ctx, &model.SessionRecord{SessionID: "sess-1", State: model.StateDrafting}))

	sentinel := errors.New("no thanks")
	_, err := s.UpdateSession(ctx, "sess-1", func(r *model.SessionRecord) error {
		r.State = model.StateFailed
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)

	// The failed update must not persist.
	got, err := s.GetSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, model.StateDrafting, got.State)
}

func TestBadgerStore_ListSessions(t *testing.T) {
	s := openBadger(t)
	ctx := context.Background()

	for _, id := range []string{"sess-1", "sess-2", "sess-3"} {
		require.NoError(t, s.PutSession(ctx, &model.SessionRecord{SessionID: id, State: model.StateStart}))
	}

	all, err := s.ListSessions(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
