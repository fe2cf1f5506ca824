// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth_test

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/pkg/errutil"
)

var testSigningKey = []byte("0123456789abcdef0123456789abcdef")

func newTokenService(t *testing.T) *auth.TokenService {
	t.Helper()
	svc, err := auth.NewTokenService(testSigningKey, 15*time.Minute)
	require.NoError(t, err)
	return svc
}

func TestNewTokenService(t *testing.T) {
	t.Run("rejects short signing key", func(t *testing.T) {
		_, err := auth.NewTokenService([]byte("tooshort"), time.Minute)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "TOKEN_KEY_TOO_SHORT")
	})

	t.Run("non-positive ttl falls back to default", func(t *testing.T) {
		svc, err := auth.NewTokenService(testSigningKey, 0)
		require.NoError(t, err)
		assert.Equal(t, auth.DefaultTokenTTL, svc.DefaultTTL())
	})
}

func TestTokenService_IssueAndVerify(t *testing.T) {
	svc := newTokenService(t)
	accountID := ulid.Make()

	t.Run("issued token verifies to account", func(t *testing.T) {
		token, err := svc.Issue(accountID, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, 3, len(strings.Split(token, ".")))

		resolved, err := svc.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, accountID, resolved)
	})

	t.Run("rejects zero account ID", func(t *testing.T) {
		_, err := svc.Issue(ulid.ULID{}, time.Minute)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "TOKEN_INVALID_ACCOUNT")
	})

	t.Run("zero ttl issues an already expired token", func(t *testing.T) {
		token, err := svc.Issue(accountID, 0)
		require.NoError(t, err)

		_, err = svc.Verify(token)
		require.ErrorIs(t, err, auth.ErrTokenRejected)
		errutil.AssertErrorCode(t, err, "TOKEN_EXPIRED")
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		token, err := svc.Issue(accountID, 50*time.Millisecond)
		require.NoError(t, err)

		time.Sleep(1100 * time.Millisecond) // exp has one-second resolution

		_, err = svc.Verify(token)
		require.ErrorIs(t, err, auth.ErrTokenRejected)
		errutil.AssertErrorCode(t, err, "TOKEN_EXPIRED")
	})
}

func TestTokenService_VerifyRejections(t *testing.T) {
	svc := newTokenService(t)
	accountID := ulid.Make()

	t.Run("tampered payload fails signature check", func(t *testing.T) {
		token, err := svc.Issue(accountID, time.Minute)
		require.NoError(t, err)

		parts := strings.Split(token, ".")
		require.Len(t, parts, 3)
		// Flip a character in the payload; signature no longer matches.
		payload := []byte(parts[1])
		if payload[0] == 'A' {
			payload[0] = 'B'
		} else {
			payload[0] = 'A'
		}
		tampered := parts[0] + "." + string(payload) + "." + parts[2]

		_, err = svc.Verify(tampered)
		require.ErrorIs(t, err, auth.ErrTokenRejected)
	})

	t.Run("token signed with different key is rejected", func(t *testing.T) {
		other, err := auth.NewTokenService([]byte("ffffffffffffffffffffffffffffffff"), time.Minute)
		require.NoError(t, err)

		token, err := other.Issue(accountID, time.Minute)
		require.NoError(t, err)

		_, err = svc.Verify(token)
		require.ErrorIs(t, err, auth.ErrTokenRejected)
		errutil.AssertErrorCode(t, err, "TOKEN_BAD_SIGNATURE")
	})

	t.Run("malformed token is rejected", func(t *testing.T) {
		_, err := svc.Verify("not-a-token")
		require.ErrorIs(t, err, auth.ErrTokenRejected)
		errutil.AssertErrorCode(t, err, "TOKEN_MALFORMED")
	})

	t.Run("empty token is rejected", func(t *testing.T) {
		_, err := svc.Verify("")
		require.ErrorIs(t, err, auth.ErrTokenRejected)
	})

	t.Run("subject that is not a ULID is rejected", func(t *testing.T) {
		now := time.Now()
		forged := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			Subject:   "not-a-ulid",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		})
		token, err := forged.SignedString(testSigningKey)
		require.NoError(t, err)

		_, err = svc.Verify(token)
		require.ErrorIs(t, err, auth.ErrTokenRejected)
		errutil.AssertErrorCode(t, err, "TOKEN_MALFORMED")
	})

	t.Run("token without exp claim is rejected", func(t *testing.T) {
		forged := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			Subject:  accountID.String(),
			IssuedAt: jwt.NewNumericDate(time.Now()),
		})
		token, err := forged.SignedString(testSigningKey)
		require.NoError(t, err)

		_, err = svc.Verify(token)
		require.ErrorIs(t, err, auth.ErrTokenRejected)
	})

	t.Run("unsigned token is rejected", func(t *testing.T) {
		forged := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
			Subject:   accountID.String(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		})
		token, err := forged.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = svc.Verify(token)
		require.ErrorIs(t, err, auth.ErrTokenRejected)
	})
}
