// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Session handle configuration.
const (
	// SessionHandleBytes is the entropy of a handle. 32 bytes is double
	// the 128-bit floor required for unguessability.
	SessionHandleBytes = 32

	// DefaultSessionTTL is the session lifetime when none is configured.
	DefaultSessionTTL = 24 * time.Hour
)

// Session binds an opaque handle to an account. Only the SHA-256 hash
// of the handle is stored; the plaintext handle exists client-side only.
type Session struct {
	ID         ulid.ULID
	AccountID  ulid.ULID
	HandleHash string
	ExpiresAt  time.Time
	CreatedAt  time.Time
	LastSeenAt time.Time
}

// NewSession creates a validated Session instance.
func NewSession(accountID ulid.ULID, handleHash string, expiresAt time.Time) (*Session, error) {
	if accountID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("SESSION_INVALID_ACCOUNT").Errorf("account ID cannot be zero")
	}
	if handleHash == "" {
		return nil, oops.Code("SESSION_INVALID_HASH").Errorf("handle hash cannot be empty")
	}
	if expiresAt.IsZero() {
		return nil, oops.Code("SESSION_INVALID_EXPIRY").Errorf("expiry time cannot be zero")
	}

	now := time.Now()
	return &Session{
		ID:         ulid.Make(),
		AccountID:  accountID,
		HandleHash: handleHash,
		ExpiresAt:  expiresAt,
		CreatedAt:  now,
		LastSeenAt: now,
	}, nil
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return s.IsExpiredAt(time.Now())
}

// IsExpiredAt returns true if the session would be expired at the given
// time. Useful for testing with deterministic time values.
func (s *Session) IsExpiredAt(t time.Time) bool {
	return t.After(s.ExpiresAt)
}

// GenerateHandle creates a fresh random handle and its hash.
// Returns (plaintext_handle, sha256_hash, error). The plaintext goes to
// the client; only the hash is persisted.
func GenerateHandle() (handle, hash string, err error) {
	raw := make([]byte, SessionHandleBytes)
	if _, err = rand.Read(raw); err != nil {
		// Random source failure is the one non-recoverable condition:
		// abort rather than fall back to weaker entropy.
		return "", "", oops.Code("SESSION_HANDLE_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", SessionHandleBytes).
			Wrap(err)
	}

	handle = hex.EncodeToString(raw)
	hash = HashHandle(handle)

	return handle, hash, nil
}

// HashHandle computes the SHA-256 hash of a session handle for storage.
func HashHandle(handle string) string {
	h := sha256.Sum256([]byte(handle))
	return hex.EncodeToString(h[:])
}

// VerifyHandle checks if the plaintext handle matches the stored hash
// in constant time.
func VerifyHandle(handle, hash string) (bool, error) {
	if handle == "" {
		return false, oops.Code("SESSION_HANDLE_EMPTY").Errorf("session handle cannot be empty")
	}
	if hash == "" {
		return false, oops.Code("SESSION_HASH_EMPTY").Errorf("stored hash cannot be empty")
	}
	computed := HashHandle(handle)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(hash)) == 1, nil
}

// SessionRepository manages session persistence.
//
// Operations on the same handle must be linearizable: a Delete racing a
// GetByHandleHash yields either the session or ErrNotFound, never a
// partial state. Create must fail with ErrDuplicateHandle if the handle
// hash is already present.
type SessionRepository interface {
	// Create stores a new session.
	Create(ctx context.Context, session *Session) error

	// GetByHandleHash retrieves a session by its handle hash.
	GetByHandleHash(ctx context.Context, handleHash string) (*Session, error)

	// GetByAccount retrieves all sessions for an account.
	GetByAccount(ctx context.Context, accountID ulid.ULID) ([]*Session, error)

	// UpdateLastSeen updates the LastSeenAt timestamp for a session.
	UpdateLastSeen(ctx context.Context, id ulid.ULID, lastSeen time.Time) error

	// Delete removes a session by ID.
	Delete(ctx context.Context, id ulid.ULID) error

	// DeleteByHandleHash removes the session with the given handle hash.
	DeleteByHandleHash(ctx context.Context, handleHash string) error

	// DeleteByAccount removes all sessions for an account.
	DeleteByAccount(ctx context.Context, accountID ulid.ULID) error

	// DeleteExpired removes all expired sessions and returns the count
	// of deleted records.
	DeleteExpired(ctx context.Context) (int64, error)
}
