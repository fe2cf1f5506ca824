// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

//go:build integration

package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/auth"
	authpg "github.com/gatehouse/gatehouse/internal/auth/postgres"
	"github.com/gatehouse/gatehouse/internal/store"
)

// setupDB connects to the database named by TEST_DATABASE_URL and
// applies migrations. Tests create their own rows and remove them, so
// the database survives across runs.
func setupDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	databaseURL := os.Getenv("TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()

	migrator, err := store.NewMigrator(databaseURL)
	require.NoError(t, err)
	require.NoError(t, migrator.Up())
	require.NoError(t, migrator.Close())

	pool, err := store.Connect(ctx, databaseURL)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return pool
}

func newTestAccount(t *testing.T) *auth.Account {
	t.Helper()

	// Unique per run so tests never collide with leftovers.
	account, err := auth.NewAccount("it-"+ulid.Make().String(), "$argon2id$v=19$m=1024,t=1,p=1$c2FsdHNhbHRzYWx0c2E$aGFzaGhhc2hoYXNoaGFzaGhhc2hoYXNoaGFzaGhhc2g")
	require.NoError(t, err)
	return account
}

func TestAccountRepository_Integration(t *testing.T) {
	pool := setupDB(t)
	repo := authpg.NewAccountRepository(pool)
	ctx := context.Background()

	t.Run("create and get roundtrip", func(t *testing.T) {
		account := newTestAccount(t)
		require.NoError(t, repo.Create(ctx, account))
		t.Cleanup(func() { _ = repo.Delete(ctx, account.ID) })

		got, err := repo.GetByID(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, account.ID, got.ID)
		assert.Equal(t, account.Identifier, got.Identifier)
		assert.Equal(t, account.PasswordHash, got.PasswordHash)
		assert.WithinDuration(t, account.CreatedAt, got.CreatedAt, time.Millisecond)
	})

	t.Run("identifier lookup is case-insensitive", func(t *testing.T) {
		account := newTestAccount(t)
		require.NoError(t, repo.Create(ctx, account))
		t.Cleanup(func() { _ = repo.Delete(ctx, account.ID) })

		upper := "IT-" + account.Identifier[3:]
		got, err := repo.GetByIdentifier(ctx, upper)
		require.NoError(t, err)
		assert.Equal(t, account.ID, got.ID)
	})

	t.Run("duplicate identifier is rejected by the database", func(t *testing.T) {
		account := newTestAccount(t)
		require.NoError(t, repo.Create(ctx, account))
		t.Cleanup(func() { _ = repo.Delete(ctx, account.ID) })

		dup, err := auth.NewAccount(account.Identifier, account.PasswordHash)
		require.NoError(t, err)
		require.ErrorIs(t, repo.Create(ctx, dup), auth.ErrDuplicateIdentifier)
	})

	t.Run("update password persists", func(t *testing.T) {
		account := newTestAccount(t)
		require.NoError(t, repo.Create(ctx, account))
		t.Cleanup(func() { _ = repo.Delete(ctx, account.ID) })

		newHash := "$argon2id$v=19$m=1024,t=1,p=1$bmV3c2FsdG5ld3NhbHQ$bmV3aGFzaG5ld2hhc2huZXdoYXNobmV3aGFzaG5ld2hh"
		require.NoError(t, repo.UpdatePassword(ctx, account.ID, newHash))

		got, err := repo.GetByID(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, newHash, got.PasswordHash)
	})

	t.Run("delete removes the row", func(t *testing.T) {
		account := newTestAccount(t)
		require.NoError(t, repo.Create(ctx, account))

		require.NoError(t, repo.Delete(ctx, account.ID))
		_, err := repo.GetByID(ctx, account.ID)
		require.ErrorIs(t, err, auth.ErrNotFound)
	})
}

func TestSessionRepository_Integration(t *testing.T) {
	pool := setupDB(t)
	accountRepo := authpg.NewAccountRepository(pool)
	sessionRepo := authpg.NewSessionRepository(pool)
	ctx := context.Background()

	account := newTestAccount(t)
	require.NoError(t, accountRepo.Create(ctx, account))
	t.Cleanup(func() {
		_ = sessionRepo.DeleteByAccount(ctx, account.ID)
		_ = accountRepo.Delete(ctx, account.ID)
	})

	newSession := func(t *testing.T, ttl time.Duration) *auth.Session {
		t.Helper()
		_, hash, err := auth.GenerateHandle()
		require.NoError(t, err)
		session, err := auth.NewSession(account.ID, hash, time.Now().Add(ttl))
		require.NoError(t, err)
		return session
	}

	t.Run("create and resolve by handle hash", func(t *testing.T) {
		session := newSession(t, time.Hour)
		require.NoError(t, sessionRepo.Create(ctx, session))

		got, err := sessionRepo.GetByHandleHash(ctx, session.HandleHash)
		require.NoError(t, err)
		assert.Equal(t, session.ID, got.ID)
		assert.Equal(t, account.ID, got.AccountID)
		assert.WithinDuration(t, session.ExpiresAt, got.ExpiresAt, time.Millisecond)
	})

	t.Run("update last seen persists", func(t *testing.T) {
		session := newSession(t, time.Hour)
		require.NoError(t, sessionRepo.Create(ctx, session))

		seen := time.Now().Add(time.Minute)
		require.NoError(t, sessionRepo.UpdateLastSeen(ctx, session.ID, seen))

		got, err := sessionRepo.GetByHandleHash(ctx, session.HandleHash)
		require.NoError(t, err)
		assert.WithinDuration(t, seen, got.LastSeenAt, time.Millisecond)
	})

	t.Run("delete by handle hash", func(t *testing.T) {
		session := newSession(t, time.Hour)
		require.NoError(t, sessionRepo.Create(ctx, session))

		require.NoError(t, sessionRepo.DeleteByHandleHash(ctx, session.HandleHash))
		_, err := sessionRepo.GetByHandleHash(ctx, session.HandleHash)
		require.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("delete expired removes only expired sessions", func(t *testing.T) {
		expired := newSession(t, -time.Hour)
		live := newSession(t, time.Hour)
		require.NoError(t, sessionRepo.Create(ctx, expired))
		require.NoError(t, sessionRepo.Create(ctx, live))

		count, err := sessionRepo.DeleteExpired(ctx)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, count, int64(1))

		_, err = sessionRepo.GetByHandleHash(ctx, expired.HandleHash)
		require.ErrorIs(t, err, auth.ErrNotFound)

		_, err = sessionRepo.GetByHandleHash(ctx, live.HandleHash)
		require.NoError(t, err)
	})

	t.Run("deleting the account cascades to its sessions", func(t *testing.T) {
		cascadeAccount := newTestAccount(t)
		require.NoError(t, accountRepo.Create(ctx, cascadeAccount))

		_, hash, err := auth.GenerateHandle()
		require.NoError(t, err)
		session, err := auth.NewSession(cascadeAccount.ID, hash, time.Now().Add(time.Hour))
		require.NoError(t, err)
		require.NoError(t, sessionRepo.Create(ctx, session))

		require.NoError(t, accountRepo.Delete(ctx, cascadeAccount.ID))

		_, err = sessionRepo.GetByHandleHash(ctx, session.HandleHash)
		require.ErrorIs(t, err, auth.ErrNotFound)
	})
}
