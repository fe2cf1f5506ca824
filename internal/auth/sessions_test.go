// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/auth/memory"
	"github.com/gatehouse/gatehouse/pkg/errutil"
)

func newSessionManager(t *testing.T, ttl time.Duration) (*auth.SessionManager, *memory.SessionRepository) {
	t.Helper()
	repo := memory.NewSessionRepository()
	manager, err := auth.NewSessionManager(repo, ttl)
	require.NoError(t, err)
	return manager, repo
}

func TestNewSessionManager(t *testing.T) {
	t.Run("requires repository", func(t *testing.T) {
		_, err := auth.NewSessionManager(nil, time.Hour)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "SESSION_MANAGER_INVALID")
	})

	t.Run("accepts non-positive ttl", func(t *testing.T) {
		manager, err := auth.NewSessionManager(memory.NewSessionRepository(), 0)
		require.NoError(t, err)
		assert.NotNil(t, manager)
	})
}

func TestSessionManager_CreateAndResolve(t *testing.T) {
	ctx := context.Background()
	manager, _ := newSessionManager(t, time.Hour)
	accountID := ulid.Make()

	t.Run("issued handle resolves to account", func(t *testing.T) {
		handle, err := manager.Create(ctx, accountID)
		require.NoError(t, err)
		assert.Len(t, handle, 64)

		resolved, err := manager.Resolve(ctx, handle)
		require.NoError(t, err)
		assert.Equal(t, accountID, resolved)
	})

	t.Run("handles are unique per login", func(t *testing.T) {
		handle1, err := manager.Create(ctx, accountID)
		require.NoError(t, err)
		handle2, err := manager.Create(ctx, accountID)
		require.NoError(t, err)
		assert.NotEqual(t, handle1, handle2)

		// Both stay valid concurrently.
		_, err = manager.Resolve(ctx, handle1)
		require.NoError(t, err)
		_, err = manager.Resolve(ctx, handle2)
		require.NoError(t, err)
	})

	t.Run("unknown handle fails with ErrInvalidSession", func(t *testing.T) {
		_, err := manager.Resolve(ctx, "0000000000000000000000000000000000000000000000000000000000000000")
		require.ErrorIs(t, err, auth.ErrInvalidSession)
		errutil.AssertErrorCode(t, err, "SESSION_INVALID")
	})

	t.Run("empty handle fails with ErrInvalidSession", func(t *testing.T) {
		_, err := manager.Resolve(ctx, "")
		require.ErrorIs(t, err, auth.ErrInvalidSession)
	})

	t.Run("resolve touches last seen", func(t *testing.T) {
		repo := memory.NewSessionRepository()
		mgr, err := auth.NewSessionManager(repo, time.Hour)
		require.NoError(t, err)

		handle, err := mgr.Create(ctx, accountID)
		require.NoError(t, err)

		before, err := repo.GetByHandleHash(ctx, auth.HashHandle(handle))
		require.NoError(t, err)

		time.Sleep(5 * time.Millisecond)
		_, err = mgr.Resolve(ctx, handle)
		require.NoError(t, err)

		after, err := repo.GetByHandleHash(ctx, auth.HashHandle(handle))
		require.NoError(t, err)
		assert.True(t, after.LastSeenAt.After(before.LastSeenAt))
	})
}

func TestSessionManager_Expiry(t *testing.T) {
	ctx := context.Background()
	manager, repo := newSessionManager(t, time.Hour)
	accountID := ulid.Make()

	t.Run("expired session fails with ErrInvalidSession", func(t *testing.T) {
		handle, hash, err := auth.GenerateHandle()
		require.NoError(t, err)

		expired := &auth.Session{
			ID:         ulid.Make(),
			AccountID:  accountID,
			HandleHash: hash,
			ExpiresAt:  time.Now().Add(-time.Minute),
			CreatedAt:  time.Now().Add(-2 * time.Hour),
			LastSeenAt: time.Now().Add(-2 * time.Hour),
		}
		require.NoError(t, repo.Create(ctx, expired))

		_, err = manager.Resolve(ctx, handle)
		require.ErrorIs(t, err, auth.ErrInvalidSession)
		errutil.AssertErrorCode(t, err, "SESSION_EXPIRED")
	})

	t.Run("purge removes only expired sessions", func(t *testing.T) {
		repo := memory.NewSessionRepository()
		mgr, err := auth.NewSessionManager(repo, time.Hour)
		require.NoError(t, err)

		liveHandle, err := mgr.Create(ctx, accountID)
		require.NoError(t, err)

		_, deadHash, err := auth.GenerateHandle()
		require.NoError(t, err)
		dead := &auth.Session{
			ID:         ulid.Make(),
			AccountID:  accountID,
			HandleHash: deadHash,
			ExpiresAt:  time.Now().Add(-time.Minute),
			CreatedAt:  time.Now().Add(-2 * time.Hour),
			LastSeenAt: time.Now().Add(-2 * time.Hour),
		}
		require.NoError(t, repo.Create(ctx, dead))

		purged, err := mgr.PurgeExpired(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), purged)

		_, err = mgr.Resolve(ctx, liveHandle)
		require.NoError(t, err)
	})
}

func TestSessionManager_Revoke(t *testing.T) {
	ctx := context.Background()
	manager, _ := newSessionManager(t, time.Hour)
	accountID := ulid.Make()

	t.Run("revoked handle no longer resolves", func(t *testing.T) {
		handle, err := manager.Create(ctx, accountID)
		require.NoError(t, err)

		require.NoError(t, manager.Revoke(ctx, handle))

		_, err = manager.Resolve(ctx, handle)
		require.ErrorIs(t, err, auth.ErrInvalidSession)
	})

	t.Run("revoke is idempotent", func(t *testing.T) {
		handle, err := manager.Create(ctx, accountID)
		require.NoError(t, err)

		require.NoError(t, manager.Revoke(ctx, handle))
		require.NoError(t, manager.Revoke(ctx, handle))
	})

	t.Run("revoking unknown handle is a no-op", func(t *testing.T) {
		assert.NoError(t, manager.Revoke(ctx, "neverissued"))
	})

	t.Run("revoking empty handle is a no-op", func(t *testing.T) {
		assert.NoError(t, manager.Revoke(ctx, ""))
	})

	t.Run("revoke all invalidates every session of the account", func(t *testing.T) {
		owner := ulid.Make()
		other := ulid.Make()

		handle1, err := manager.Create(ctx, owner)
		require.NoError(t, err)
		handle2, err := manager.Create(ctx, owner)
		require.NoError(t, err)
		otherHandle, err := manager.Create(ctx, other)
		require.NoError(t, err)

		require.NoError(t, manager.RevokeAll(ctx, owner))

		_, err = manager.Resolve(ctx, handle1)
		require.ErrorIs(t, err, auth.ErrInvalidSession)
		_, err = manager.Resolve(ctx, handle2)
		require.ErrorIs(t, err, auth.ErrInvalidSession)

		// Other accounts are untouched.
		_, err = manager.Resolve(ctx, otherHandle)
		require.NoError(t, err)
	})
}
