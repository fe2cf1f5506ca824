// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import "errors"

// Sentinel errors returned across the auth boundary. Callers match them
// with errors.Is; the oops wrappers added at each site carry the
// server-side detail that must never reach an external caller.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateIdentifier is returned when registering an identifier
	// that already exists under case-insensitive comparison.
	ErrDuplicateIdentifier = errors.New("identifier already registered")

	// ErrDuplicateHandle is returned by session repositories when a
	// generated handle collides with a live one.
	ErrDuplicateHandle = errors.New("session handle already in use")

	// ErrInvalidCredentials covers both unknown identifier and secret
	// mismatch. The two cases are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid identifier or secret")

	// ErrInvalidSession is returned when a handle is unknown, revoked,
	// or expired.
	ErrInvalidSession = errors.New("invalid session")

	// ErrTokenRejected covers malformed, expired, and badly signed
	// tokens. The exact cause is recorded in the error code only.
	ErrTokenRejected = errors.New("token rejected")

	// ErrUnauthenticated is returned when neither a valid session handle
	// nor a valid token was presented.
	ErrUnauthenticated = errors.New("unauthenticated")
)
