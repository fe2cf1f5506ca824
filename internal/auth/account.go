// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Identifier validation constraints.
const (
	MinIdentifierLength = 3
	MaxIdentifierLength = 254
)

// identifierRegex matches normalized identifiers: a letter or digit
// followed by letters, digits, and the separators common to usernames
// and email addresses.
var identifierRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9._@+-]*$`)

// Account is one credential record. PasswordHash is the only stored
// form of the secret; the plaintext never persists past hashing.
type Account struct {
	ID           ulid.ULID
	Identifier   string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewAccount creates a validated Account with a normalized identifier.
// The passwordHash must already be produced by a PasswordHasher.
func NewAccount(identifier, passwordHash string) (*Account, error) {
	normalized := NormalizeIdentifier(identifier)
	if err := ValidateIdentifier(normalized); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code("ACCOUNT_INVALID_HASH").Errorf("password hash cannot be empty")
	}

	now := time.Now()
	return &Account{
		ID:           ulid.Make(),
		Identifier:   normalized,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// NormalizeIdentifier lowercases and trims an identifier so that lookups
// and the uniqueness invariant are case-insensitive.
func NormalizeIdentifier(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

// ValidateIdentifier validates a normalized identifier.
// Identifiers are MinIdentifierLength to MaxIdentifierLength characters,
// start with a letter or digit, and may contain dots, underscores,
// hyphens, plus signs, and at signs (so both usernames and email
// addresses are accepted).
func ValidateIdentifier(identifier string) error {
	if identifier == "" {
		return oops.Code("ACCOUNT_INVALID_IDENTIFIER").Errorf("identifier cannot be empty")
	}
	if len(identifier) < MinIdentifierLength {
		return oops.Code("ACCOUNT_INVALID_IDENTIFIER").
			With("min", MinIdentifierLength).
			Errorf("identifier must be at least %d characters", MinIdentifierLength)
	}
	if len(identifier) > MaxIdentifierLength {
		return oops.Code("ACCOUNT_INVALID_IDENTIFIER").
			With("max", MaxIdentifierLength).
			Errorf("identifier must be at most %d characters", MaxIdentifierLength)
	}
	if !identifierRegex.MatchString(identifier) {
		return oops.Code("ACCOUNT_INVALID_IDENTIFIER").
			Errorf("identifier contains characters outside [a-z0-9._@+-]")
	}
	return nil
}

// AccountRepository manages credential persistence.
//
// Create must enforce the identifier-uniqueness invariant atomically at
// the storage layer: of two concurrent Create calls for the same
// normalized identifier, exactly one succeeds and the other fails with
// ErrDuplicateIdentifier.
type AccountRepository interface {
	// Create stores a new account.
	Create(ctx context.Context, account *Account) error

	// GetByID retrieves an account by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*Account, error)

	// GetByIdentifier retrieves an account by identifier (case-insensitive).
	GetByIdentifier(ctx context.Context, identifier string) (*Account, error)

	// UpdatePassword updates only the password hash for an account.
	UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error

	// Delete removes an account.
	Delete(ctx context.Context, id ulid.ULID) error
}
