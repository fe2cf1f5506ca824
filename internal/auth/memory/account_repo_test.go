// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package memory_test

import (
	"context"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/auth/memory"
)

func newAccount(t *testing.T, identifier string) *auth.Account {
	t.Helper()
	account, err := auth.NewAccount(identifier, "$argon2id$hash")
	require.NoError(t, err)
	return account
}

func TestAccountRepository_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("stores and retrieves account", func(t *testing.T) {
		repo := memory.NewAccountRepository()
		account := newAccount(t, "alice")

		require.NoError(t, repo.Create(ctx, account))

		got, err := repo.GetByID(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, account.Identifier, got.Identifier)
	})

	t.Run("rejects duplicate identifier", func(t *testing.T) {
		repo := memory.NewAccountRepository()
		require.NoError(t, repo.Create(ctx, newAccount(t, "alice")))

		err := repo.Create(ctx, newAccount(t, "alice"))
		require.ErrorIs(t, err, auth.ErrDuplicateIdentifier)
	})

	t.Run("returned account is a copy", func(t *testing.T) {
		repo := memory.NewAccountRepository()
		account := newAccount(t, "alice")
		require.NoError(t, repo.Create(ctx, account))

		got, err := repo.GetByID(ctx, account.ID)
		require.NoError(t, err)
		got.PasswordHash = "mutated"

		again, err := repo.GetByID(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, "$argon2id$hash", again.PasswordHash)
	})
}

func TestAccountRepository_GetByIdentifier(t *testing.T) {
	ctx := context.Background()

	t.Run("lookup is case-insensitive", func(t *testing.T) {
		repo := memory.NewAccountRepository()
		account := newAccount(t, "alice")
		require.NoError(t, repo.Create(ctx, account))

		got, err := repo.GetByIdentifier(ctx, "ALICE")
		require.NoError(t, err)
		assert.Equal(t, account.ID, got.ID)
	})

	t.Run("unknown identifier returns ErrNotFound", func(t *testing.T) {
		repo := memory.NewAccountRepository()

		_, err := repo.GetByIdentifier(ctx, "nobody")
		require.ErrorIs(t, err, auth.ErrNotFound)
	})
}

func TestAccountRepository_UpdatePassword(t *testing.T) {
	ctx := context.Background()

	t.Run("replaces hash and touches UpdatedAt", func(t *testing.T) {
		repo := memory.NewAccountRepository()
		account := newAccount(t, "alice")
		require.NoError(t, repo.Create(ctx, account))

		require.NoError(t, repo.UpdatePassword(ctx, account.ID, "$argon2id$newhash"))

		got, err := repo.GetByID(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, "$argon2id$newhash", got.PasswordHash)
		assert.True(t, got.UpdatedAt.After(account.UpdatedAt) || got.UpdatedAt.Equal(account.UpdatedAt))
	})

	t.Run("unknown account returns ErrNotFound", func(t *testing.T) {
		repo := memory.NewAccountRepository()

		err := repo.UpdatePassword(ctx, ulid.Make(), "$argon2id$newhash")
		require.ErrorIs(t, err, auth.ErrNotFound)
	})
}

func TestAccountRepository_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("removes account from both indexes", func(t *testing.T) {
		repo := memory.NewAccountRepository()
		account := newAccount(t, "alice")
		require.NoError(t, repo.Create(ctx, account))

		require.NoError(t, repo.Delete(ctx, account.ID))

		_, err := repo.GetByID(ctx, account.ID)
		require.ErrorIs(t, err, auth.ErrNotFound)
		_, err = repo.GetByIdentifier(ctx, "alice")
		require.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("unknown account returns ErrNotFound", func(t *testing.T) {
		repo := memory.NewAccountRepository()

		err := repo.Delete(ctx, ulid.Make())
		require.ErrorIs(t, err, auth.ErrNotFound)
	})
}
