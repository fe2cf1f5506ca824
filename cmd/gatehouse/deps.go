// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/auth"
	authpg "github.com/gatehouse/gatehouse/internal/auth/postgres"
	"github.com/gatehouse/gatehouse/internal/config"
	"github.com/gatehouse/gatehouse/internal/store"
)

// runtime bundles the connected services a subcommand operates on.
type runtime struct {
	pool          *pgxpool.Pool
	authenticator *auth.Authenticator
	sessions      *auth.SessionManager
	tokens        *auth.TokenService
}

// buildRuntime connects to the database and wires the repositories,
// hasher, session manager, and token service into an Authenticator.
func buildRuntime(ctx context.Context, cfg config.Config) (*runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pool, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}

	sessions, err := auth.NewSessionManager(authpg.NewSessionRepository(pool), cfg.SessionTTL.Std())
	if err != nil {
		pool.Close()
		return nil, err
	}

	tokens, err := auth.NewTokenService([]byte(cfg.SigningKey), cfg.TokenTTL.Std())
	if err != nil {
		pool.Close()
		return nil, err
	}

	authenticator, err := auth.NewAuthenticator(
		authpg.NewAccountRepository(pool),
		auth.NewArgon2idHasher(cfg.Hasher.Params()),
		sessions,
		tokens,
		slog.Default(),
	)
	if err != nil {
		pool.Close()
		return nil, err
	}

	return &runtime{
		pool:          pool,
		authenticator: authenticator,
		sessions:      sessions,
		tokens:        tokens,
	}, nil
}

// Close releases the database pool.
func (r *runtime) Close() {
	r.pool.Close()
}
