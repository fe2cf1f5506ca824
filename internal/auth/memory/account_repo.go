// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package memory provides in-memory repository implementations,
// suitable for tests and single-process deployments.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/auth"
)

// AccountRepository implements auth.AccountRepository with a
// mutex-guarded map. The map is keyed by normalized identifier, so the
// uniqueness invariant holds atomically under the lock: of N concurrent
// Create calls for one identifier, exactly one wins.
type AccountRepository struct {
	mu      sync.RWMutex
	byIdent map[string]*auth.Account
	byID    map[ulid.ULID]*auth.Account
}

// NewAccountRepository creates an empty in-memory account repository.
func NewAccountRepository() *AccountRepository {
	return &AccountRepository{
		byIdent: map[string]*auth.Account{},
		byID:    map[ulid.ULID]*auth.Account{},
	}
}

// Create stores a new account.
func (r *AccountRepository) Create(_ context.Context, account *auth.Account) error {
	key := auth.NormalizeIdentifier(account.Identifier)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byIdent[key]; exists {
		return oops.Code("ACCOUNT_DUPLICATE").
			With("identifier", key).
			Wrap(auth.ErrDuplicateIdentifier)
	}

	stored := *account
	r.byIdent[key] = &stored
	r.byID[stored.ID] = &stored
	return nil
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(_ context.Context, id ulid.ULID) (*auth.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.byID[id]
	if !ok {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	copied := *account
	return &copied, nil
}

// GetByIdentifier retrieves an account by identifier (case-insensitive).
func (r *AccountRepository) GetByIdentifier(_ context.Context, identifier string) (*auth.Account, error) {
	key := auth.NormalizeIdentifier(identifier)

	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.byIdent[key]
	if !ok {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("identifier", key).
			Wrap(auth.ErrNotFound)
	}
	copied := *account
	return &copied, nil
}

// UpdatePassword updates only the password hash for an account.
func (r *AccountRepository) UpdatePassword(_ context.Context, id ulid.ULID, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.byID[id]
	if !ok {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	account.PasswordHash = passwordHash
	account.UpdatedAt = time.Now()
	return nil
}

// Delete removes an account.
func (r *AccountRepository) Delete(_ context.Context, id ulid.ULID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.byID[id]
	if !ok {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	delete(r.byIdent, account.Identifier)
	delete(r.byID, id)
	return nil
}

// Compile-time interface check.
var _ auth.AccountRepository = (*AccountRepository)(nil)
