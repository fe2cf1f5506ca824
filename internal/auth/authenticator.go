// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"
)

// Mode selects the credential issued by a successful authentication.
type Mode string

const (
	// ModeSession yields a revocable server-side session handle.
	ModeSession Mode = "session"

	// ModeToken yields a stateless signed bearer token.
	ModeToken Mode = "token"
)

// decoyPasswordHash is verified against when an identifier doesn't
// exist, so that wall-clock time does not reveal whether the lookup
// succeeded. This is NOT a real credential; it never matches any secret.
//
//nolint:gosec // G101: intentionally fake hash for timing attack prevention, not a credential.
const decoyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Authenticator composes the credential store, hasher, session manager,
// and token service into the authentication operations callers use.
type Authenticator struct {
	accounts AccountRepository
	hasher   PasswordHasher
	sessions *SessionManager
	tokens   *TokenService
	logger   *slog.Logger
}

// NewAuthenticator creates an Authenticator. All dependencies are
// required; a nil logger falls back to slog.Default().
func NewAuthenticator(accounts AccountRepository, hasher PasswordHasher, sessions *SessionManager, tokens *TokenService, logger *slog.Logger) (*Authenticator, error) {
	if accounts == nil {
		return nil, oops.Code("AUTHENTICATOR_INVALID").Errorf("accounts repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTHENTICATOR_INVALID").Errorf("password hasher is required")
	}
	if sessions == nil {
		return nil, oops.Code("AUTHENTICATOR_INVALID").Errorf("session manager is required")
	}
	if tokens == nil {
		return nil, oops.Code("AUTHENTICATOR_INVALID").Errorf("token service is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{
		accounts: accounts,
		hasher:   hasher,
		sessions: sessions,
		tokens:   tokens,
		logger:   logger,
	}, nil
}

// Register creates a new account for the identifier. The secret is
// hashed before anything is stored; the plaintext is never persisted or
// logged. Fails with ErrDuplicateIdentifier on a case-insensitive
// identifier collision.
func (a *Authenticator) Register(ctx context.Context, identifier, secret string) (*Account, error) {
	if secret == "" {
		RecordRegistration(ResultFailure)
		return nil, ErrEmptyPassword
	}

	hash, err := a.hasher.Hash(secret)
	if err != nil {
		RecordRegistration(ResultFailure)
		return nil, oops.Code("REGISTER_FAILED").
			With("operation", "hash secret").
			Wrap(err)
	}

	account, err := NewAccount(identifier, hash)
	if err != nil {
		RecordRegistration(ResultFailure)
		return nil, err
	}

	if err := a.accounts.Create(ctx, account); err != nil {
		RecordRegistration(ResultFailure)
		if errors.Is(err, ErrDuplicateIdentifier) {
			return nil, oops.Code("REGISTER_DUPLICATE").
				With("identifier", account.Identifier).
				Wrap(ErrDuplicateIdentifier)
		}
		return nil, oops.Code("REGISTER_FAILED").
			With("operation", "persist account").
			Wrap(err)
	}

	RecordRegistration(ResultSuccess)
	a.logger.InfoContext(ctx, "account registered", "identifier", account.Identifier)
	return account, nil
}

// Authenticate verifies (identifier, secret) and on success issues a
// session handle or bearer token per mode. Unknown identifier and wrong
// secret fail identically with ErrInvalidCredentials, and lookup misses
// still pay for a hash verification so response time stays flat.
func (a *Authenticator) Authenticate(ctx context.Context, identifier, secret string, mode Mode) (string, error) {
	if mode != ModeSession && mode != ModeToken {
		return "", oops.Code("AUTH_INVALID_MODE").
			With("mode", string(mode)).
			Errorf("unknown authentication mode")
	}

	account, err := a.verifySecret(ctx, identifier, secret)
	if err != nil {
		RecordLogin(mode, ResultFailure)
		return "", err
	}

	// Upgrade legacy hash records under the current work factor while
	// the plaintext is available. Login succeeds even if this fails.
	if a.hasher.NeedsUpgrade(account.PasswordHash) {
		if newHash, hashErr := a.hasher.Hash(secret); hashErr == nil {
			if updErr := a.accounts.UpdatePassword(ctx, account.ID, newHash); updErr != nil {
				a.logger.WarnContext(ctx, "legacy hash upgrade failed", "account_id", account.ID.String())
			}
		}
	}

	var credential string
	switch mode {
	case ModeSession:
		credential, err = a.sessions.Create(ctx, account.ID)
	case ModeToken:
		credential, err = a.tokens.Issue(account.ID, a.tokens.DefaultTTL())
	}
	if err != nil {
		RecordLogin(mode, ResultFailure)
		return "", oops.Code("AUTH_ISSUE_FAILED").
			With("mode", string(mode)).
			Wrap(err)
	}

	RecordLogin(mode, ResultSuccess)
	return credential, nil
}

// ChangeSecret re-verifies the old secret, stores a hash of the new
// one, and revokes every session of the account so nothing issued under
// the old secret stays valid.
func (a *Authenticator) ChangeSecret(ctx context.Context, identifier, oldSecret, newSecret string) error {
	if newSecret == "" {
		return ErrEmptyPassword
	}

	account, err := a.verifySecret(ctx, identifier, oldSecret)
	if err != nil {
		return err
	}

	newHash, err := a.hasher.Hash(newSecret)
	if err != nil {
		return oops.Code("CHANGE_SECRET_FAILED").
			With("operation", "hash new secret").
			Wrap(err)
	}

	if err := a.accounts.UpdatePassword(ctx, account.ID, newHash); err != nil {
		return oops.Code("CHANGE_SECRET_FAILED").
			With("operation", "update password hash").
			Wrap(err)
	}

	if err := a.sessions.RevokeAll(ctx, account.ID); err != nil {
		return oops.Code("CHANGE_SECRET_FAILED").
			With("operation", "revoke sessions").
			Wrap(err)
	}

	a.logger.InfoContext(ctx, "secret changed", "account_id", account.ID.String())
	return nil
}

// DeleteAccount verifies the secret and removes the account along with
// all of its sessions.
func (a *Authenticator) DeleteAccount(ctx context.Context, identifier, secret string) error {
	account, err := a.verifySecret(ctx, identifier, secret)
	if err != nil {
		return err
	}

	if err := a.sessions.RevokeAll(ctx, account.ID); err != nil {
		return oops.Code("DELETE_ACCOUNT_FAILED").
			With("operation", "revoke sessions").
			Wrap(err)
	}

	if err := a.accounts.Delete(ctx, account.ID); err != nil {
		return oops.Code("DELETE_ACCOUNT_FAILED").
			With("operation", "delete account").
			Wrap(err)
	}

	a.logger.InfoContext(ctx, "account deleted", "account_id", account.ID.String())
	return nil
}

// CurrentAccount recovers the authenticated account from a session
// handle or a bearer token. Session resolution is tried first, then
// token verification; both failure paths collapse into
// ErrUnauthenticated so the caller cannot tell which mechanism failed.
func (a *Authenticator) CurrentAccount(ctx context.Context, credential string) (*Account, error) {
	if credential == "" {
		return nil, oops.Code("UNAUTHENTICATED").Wrap(ErrUnauthenticated)
	}

	accountID, sessionErr := a.sessions.Resolve(ctx, credential)
	if sessionErr != nil {
		var tokenErr error
		accountID, tokenErr = a.tokens.Verify(credential)
		if tokenErr != nil {
			return nil, oops.Code("UNAUTHENTICATED").
				With("session_reason", sessionErr.Error()).
				With("token_reason", tokenErr.Error()).
				Wrap(ErrUnauthenticated)
		}
	}

	account, err := a.accounts.GetByID(ctx, accountID)
	if err != nil {
		// The account may have been deleted after the credential was
		// issued; to the caller that is just an unauthenticated request.
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("UNAUTHENTICATED").
				With("reason", "account no longer exists").
				Wrap(ErrUnauthenticated)
		}
		return nil, oops.Code("CURRENT_ACCOUNT_FAILED").
			With("operation", "get account by id").
			Wrap(err)
	}

	return account, nil
}

// verifySecret resolves the account and checks the secret against its
// stored hash. When the identifier is unknown, a decoy hash is verified
// instead so the failure takes the same time as a secret mismatch.
func (a *Authenticator) verifySecret(ctx context.Context, identifier, secret string) (*Account, error) {
	account, lookupErr := a.accounts.GetByIdentifier(ctx, NormalizeIdentifier(identifier))

	targetHash := decoyPasswordHash
	accountExists := false

	if lookupErr != nil {
		if !errors.Is(lookupErr, ErrNotFound) {
			return nil, oops.Code("AUTH_LOOKUP_FAILED").
				With("operation", "get account by identifier").
				Wrap(lookupErr)
		}
	} else {
		targetHash = account.PasswordHash
		accountExists = true
	}

	valid, verifyErr := a.hasher.Verify(secret, targetHash)
	if verifyErr != nil {
		if !accountExists {
			return nil, oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
		}
		return nil, oops.Code("AUTH_VERIFY_FAILED").
			With("operation", "verify secret").
			Wrap(verifyErr)
	}

	if !accountExists || !valid {
		return nil, oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
	}

	return account, nil
}
