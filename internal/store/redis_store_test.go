// SPDX-License-Identifier: MIT

package store_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payflowd/payflow/internal/store"
)

func openRedis(t *testing.T) *store.RedisIdemStore {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := store.NewRedisIdemStore(mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRedisIdemStore_ClaimFirstWriterWins(t *testing.T) {
	s := openRedis(t)
	ctx := context.Background()

	rec, claimed, err := s.Claim(ctx, "key-1")
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Equal(t, store.IdemPending, rec.State)

	rec, claimed, err = s.Claim(ctx, "key-1")
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.Equal(t, store.IdemPending, rec.State)
}

func TestRedisIdemStore_CompleteThenReplay(t *testing.T) {
	s := openRedis(t)
	ctx := context.Background()

	_, claimed, err := s.Claim(ctx, "key-1")
	require.NoError(t, err)
	require.True(t, claimed)

	require.NoError(t, s.Complete(ctx, "key-1", "pay_0042", "submitted"))

	rec, claimed, err := s.Claim(ctx, "key-1")
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.Equal(t, store.IdemSucceeded, rec.State)
	assert.Equal(t, "pay_0042", rec.ReferenceID)
}

func TestRedisIdemStore_ReleasePendingOnly(t *testing.T) {
	s := openRedis(t)
	ctx := context.Background()

	_, _, err := s.Claim(ctx, "pending-key")
	require.NoError(t, err)
	require.NoError(t, s.Release(ctx, "pending-key"))

	_, claimed, err := s.Claim(ctx, "pending-key")
	require.NoError(t, err)
	assert.True(t, claimed, "released key is claimable again")

	require.NoError(t, s.Complete(ctx, "pending-key", "pay_0001", "submitted"))
	require.NoError(t, s.Release(ctx, "pending-key"))
	rec, ok, err := s.Get(ctx, "pending-key")
	require.NoError(t, err)
	require.True(t, ok, "release must not delete a succeeded record")
	assert.Equal(t, store.IdemSucceeded, rec.State)
}

func TestRedisIdemStore_GetUnknownKey(t *testing.T) {
	s := openRedis(t)
	_, ok, err := s.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}
