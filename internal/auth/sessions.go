// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// handleCreateAttempts bounds retries when a generated handle collides
// with a live one. With 256 bits of entropy a single collision already
// indicates a broken random source, so the bound is defensive only.
const handleCreateAttempts = 3

// SessionManager issues, resolves, and revokes opaque session handles.
type SessionManager struct {
	sessions SessionRepository
	ttl      time.Duration
}

// NewSessionManager creates a SessionManager. A non-positive ttl falls
// back to DefaultSessionTTL.
func NewSessionManager(sessions SessionRepository, ttl time.Duration) (*SessionManager, error) {
	if sessions == nil {
		return nil, oops.Code("SESSION_MANAGER_INVALID").Errorf("sessions repository is required")
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionManager{sessions: sessions, ttl: ttl}, nil
}

// Create issues a fresh handle bound to the account and returns the
// plaintext handle. The handle is never stored; its hash is.
func (m *SessionManager) Create(ctx context.Context, accountID ulid.ULID) (string, error) {
	var lastErr error
	for range handleCreateAttempts {
		handle, handleHash, err := GenerateHandle()
		if err != nil {
			return "", err
		}

		session, err := NewSession(accountID, handleHash, time.Now().Add(m.ttl))
		if err != nil {
			return "", err
		}

		err = m.sessions.Create(ctx, session)
		if err == nil {
			RecordSessionCreated()
			return handle, nil
		}
		if !errors.Is(err, ErrDuplicateHandle) {
			return "", oops.Code("SESSION_CREATE_FAILED").
				With("operation", "persist session").
				Wrap(err)
		}
		lastErr = err
	}
	return "", oops.Code("SESSION_HANDLE_COLLISION").
		With("attempts", handleCreateAttempts).
		Wrap(lastErr)
}

// Resolve returns the account that owns the handle, or ErrInvalidSession
// if the handle is unknown, revoked, or expired. The session's last-seen
// timestamp is touched on a best-effort basis.
func (m *SessionManager) Resolve(ctx context.Context, handle string) (ulid.ULID, error) {
	if handle == "" {
		return ulid.ULID{}, oops.Code("SESSION_INVALID").Wrap(ErrInvalidSession)
	}

	session, err := m.sessions.GetByHandleHash(ctx, HashHandle(handle))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ulid.ULID{}, oops.Code("SESSION_INVALID").Wrap(ErrInvalidSession)
		}
		return ulid.ULID{}, oops.Code("SESSION_RESOLVE_FAILED").
			With("operation", "get session by handle hash").
			Wrap(err)
	}

	if session.IsExpired() {
		return ulid.ULID{}, oops.Code("SESSION_EXPIRED").Wrap(ErrInvalidSession)
	}

	// Best effort; resolution succeeds regardless.
	_ = m.sessions.UpdateLastSeen(ctx, session.ID, time.Now()) //nolint:errcheck

	return session.AccountID, nil
}

// Revoke invalidates the handle. Revoking an unknown or already revoked
// handle is a no-op, not an error.
func (m *SessionManager) Revoke(ctx context.Context, handle string) error {
	if handle == "" {
		return nil
	}
	err := m.sessions.DeleteByHandleHash(ctx, HashHandle(handle))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return oops.Code("SESSION_REVOKE_FAILED").
			With("operation", "delete session by handle hash").
			Wrap(err)
	}
	RecordSessionRevoked()
	return nil
}

// RevokeAll invalidates every session owned by the account. Used on
// secret change so old sessions do not outlive the old secret.
func (m *SessionManager) RevokeAll(ctx context.Context, accountID ulid.ULID) error {
	if err := m.sessions.DeleteByAccount(ctx, accountID); err != nil {
		return oops.Code("SESSION_REVOKE_ALL_FAILED").
			With("operation", "delete sessions by account").
			With("account_id", accountID.String()).
			Wrap(err)
	}
	return nil
}

// PurgeExpired removes expired sessions and returns the count deleted.
func (m *SessionManager) PurgeExpired(ctx context.Context) (int64, error) {
	count, err := m.sessions.DeleteExpired(ctx)
	if err != nil {
		return 0, oops.Code("SESSION_PURGE_FAILED").
			With("operation", "delete expired sessions").
			Wrap(err)
	}
	return count, nil
}
