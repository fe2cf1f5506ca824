// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package memory

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/auth"
)

// SessionRepository implements auth.SessionRepository with mutex-guarded
// maps. Every mutation happens under the write lock, so operations on
// the same handle are linearizable: a Delete racing a GetByHandleHash
// observes either the full session or nothing.
type SessionRepository struct {
	mu     sync.RWMutex
	byHash map[string]*auth.Session
	byID   map[ulid.ULID]*auth.Session
}

// NewSessionRepository creates an empty in-memory session repository.
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{
		byHash: map[string]*auth.Session{},
		byID:   map[ulid.ULID]*auth.Session{},
	}
}

// Create stores a new session.
func (r *SessionRepository) Create(_ context.Context, session *auth.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byHash[session.HandleHash]; exists {
		return oops.Code("SESSION_DUPLICATE").Wrap(auth.ErrDuplicateHandle)
	}

	stored := *session
	r.byHash[stored.HandleHash] = &stored
	r.byID[stored.ID] = &stored
	return nil
}

// GetByHandleHash retrieves a session by its handle hash.
func (r *SessionRepository) GetByHandleHash(_ context.Context, handleHash string) (*auth.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.byHash[handleHash]
	if !ok {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	copied := *session
	return &copied, nil
}

// GetByAccount retrieves all sessions for an account.
func (r *SessionRepository) GetByAccount(_ context.Context, accountID ulid.ULID) ([]*auth.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sessions []*auth.Session
	for _, session := range r.byID {
		if session.AccountID == accountID {
			copied := *session
			sessions = append(sessions, &copied)
		}
	}
	return sessions, nil
}

// UpdateLastSeen updates the LastSeenAt timestamp for a session.
func (r *SessionRepository) UpdateLastSeen(_ context.Context, id ulid.ULID, lastSeen time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.byID[id]
	if !ok {
		return oops.Code("SESSION_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	session.LastSeenAt = lastSeen
	return nil
}

// Delete removes a session by ID.
func (r *SessionRepository) Delete(_ context.Context, id ulid.ULID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.byID[id]
	if !ok {
		return oops.Code("SESSION_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	delete(r.byHash, session.HandleHash)
	delete(r.byID, id)
	return nil
}

// DeleteByHandleHash removes the session with the given handle hash.
func (r *SessionRepository) DeleteByHandleHash(_ context.Context, handleHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.byHash[handleHash]
	if !ok {
		return oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	delete(r.byHash, handleHash)
	delete(r.byID, session.ID)
	return nil
}

// DeleteByAccount removes all sessions for an account.
func (r *SessionRepository) DeleteByAccount(_ context.Context, accountID ulid.ULID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, session := range r.byID {
		if session.AccountID == accountID {
			delete(r.byHash, session.HandleHash)
			delete(r.byID, id)
		}
	}
	// No ErrNotFound when nothing matched - that's a valid state.
	return nil
}

// DeleteExpired removes all expired sessions and returns the count.
func (r *SessionRepository) DeleteExpired(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now()
	var count int64
	for id, session := range r.byID {
		if session.IsExpiredAt(cutoff) {
			delete(r.byHash, session.HandleHash)
			delete(r.byID, id)
			count++
		}
	}
	return count, nil
}

// Compile-time interface check.
var _ auth.SessionRepository = (*SessionRepository)(nil)
