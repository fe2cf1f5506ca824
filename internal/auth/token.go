// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// MinSigningKeyBytes is the minimum HMAC key length. Shorter keys make
// signature forgery cheaper than guessing a secret.
const MinSigningKeyBytes = 32

// DefaultTokenTTL is the bearer token lifetime when none is configured.
const DefaultTokenTTL = 15 * time.Minute

// TokenService issues and verifies signed, time-limited bearer tokens.
// Tokens are stateless: expiry is enforced solely by the exp claim, and
// there is no revocation before expiry.
type TokenService struct {
	key        []byte
	defaultTTL time.Duration
}

// NewTokenService creates a TokenService with the process-wide signing
// key. A non-positive defaultTTL falls back to DefaultTokenTTL.
func NewTokenService(key []byte, defaultTTL time.Duration) (*TokenService, error) {
	if len(key) < MinSigningKeyBytes {
		return nil, oops.Code("TOKEN_KEY_TOO_SHORT").
			With("min_bytes", MinSigningKeyBytes).
			Errorf("signing key must be at least %d bytes", MinSigningKeyBytes)
	}
	if defaultTTL <= 0 {
		defaultTTL = DefaultTokenTTL
	}
	return &TokenService{key: key, defaultTTL: defaultTTL}, nil
}

// DefaultTTL returns the configured default token lifetime.
func (s *TokenService) DefaultTTL() time.Duration {
	return s.defaultTTL
}

// Issue creates a signed HS256 token carrying {sub, iat, exp} for the
// account. A zero ttl produces a token that is already expired, which
// is occasionally useful in tests; a negative ttl uses the default.
func (s *TokenService) Issue(accountID ulid.ULID, ttl time.Duration) (string, error) {
	if accountID.Compare(ulid.ULID{}) == 0 {
		return "", oops.Code("TOKEN_INVALID_ACCOUNT").Errorf("account ID cannot be zero")
	}
	if ttl < 0 {
		ttl = s.defaultTTL
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   accountID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})

	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", oops.Code("TOKEN_SIGN_FAILED").Wrap(err)
	}

	RecordTokenIssued()
	return signed, nil
}

// Verify parses the token, checks the signature before trusting any
// claim, and enforces expiry with zero leeway (a token whose exp equals
// the verification clock is expired). Malformed input, expiry, and bad
// signatures are distinguished in the error code for server-side logs
// but all wrap ErrTokenRejected for callers.
func (s *TokenService) Verify(tokenString string) (ulid.ULID, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(_ *jwt.Token) (any, error) { return s.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		RecordTokenRejected(tokenRejectionKind(err))
		return ulid.ULID{}, rejectToken(err)
	}

	accountID, err := ulid.Parse(claims.Subject)
	if err != nil {
		RecordTokenRejected("malformed")
		return ulid.ULID{}, oops.Code("TOKEN_MALFORMED").
			With("reason", "subject is not a valid account ID").
			Wrap(ErrTokenRejected)
	}

	return accountID, nil
}

// rejectToken maps jwt verification failures onto ErrTokenRejected with
// an internal code. The underlying jwt error goes into context only so
// the distinction never leaks past the logging layer.
func rejectToken(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return oops.Code("TOKEN_EXPIRED").With("reason", err.Error()).Wrap(ErrTokenRejected)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return oops.Code("TOKEN_BAD_SIGNATURE").With("reason", err.Error()).Wrap(ErrTokenRejected)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return oops.Code("TOKEN_MALFORMED").With("reason", err.Error()).Wrap(ErrTokenRejected)
	default:
		return oops.Code("TOKEN_INVALID").With("reason", err.Error()).Wrap(ErrTokenRejected)
	}
}

// tokenRejectionKind labels a verification failure for metrics.
func tokenRejectionKind(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "expired"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "bad_signature"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "malformed"
	default:
		return "invalid"
	}
}
