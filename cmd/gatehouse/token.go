// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package main

import (
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/gatehouse/gatehouse/internal/auth"
)

// tokenConfig holds flags for the token subcommands.
type tokenConfig struct {
	ttl time.Duration
}

// NewTokenCmd creates the token subcommand. Tokens are stateless, so
// these commands only need the signing key, not the database.
func NewTokenCmd() *cobra.Command {
	cfg := &tokenConfig{}

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue and verify bearer tokens",
		Long:  `Issue and verify signed bearer tokens without touching the database.`,
	}

	issue := &cobra.Command{
		Use:   "issue <account-id>",
		Short: "Issue a bearer token for an account ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTokenIssue(cmd, cfg, args[0])
		},
	}
	issue.Flags().DurationVar(&cfg.ttl, "ttl", 0, "token lifetime (default: configured token_ttl)")

	verify := &cobra.Command{
		Use:   "verify <token>",
		Short: "Verify a bearer token and print its account ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTokenVerify(cmd, args[0])
		},
	}

	cmd.AddCommand(issue, verify)
	return cmd
}

// tokenService builds a TokenService from the loaded configuration.
func tokenService(cmd *cobra.Command) (*auth.TokenService, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if len(cfg.SigningKey) < auth.MinSigningKeyBytes {
		return nil, oops.Code("CONFIG_INVALID").
			With("min_bytes", auth.MinSigningKeyBytes).
			Errorf("signing_key must be at least %d bytes", auth.MinSigningKeyBytes)
	}
	return auth.NewTokenService([]byte(cfg.SigningKey), cfg.TokenTTL.Std())
}

func runTokenIssue(cmd *cobra.Command, cfg *tokenConfig, rawID string) error {
	accountID, err := ulid.Parse(rawID)
	if err != nil {
		return oops.Code("TOKEN_INVALID_SUBJECT").
			With("account_id", rawID).
			Wrap(err)
	}

	tokens, err := tokenService(cmd)
	if err != nil {
		return err
	}

	ttl := cfg.ttl
	if ttl <= 0 {
		ttl = tokens.DefaultTTL()
	}

	token, err := tokens.Issue(accountID, ttl)
	if err != nil {
		return err
	}

	cmd.Println(token)
	return nil
}

func runTokenVerify(cmd *cobra.Command, token string) error {
	tokens, err := tokenService(cmd)
	if err != nil {
		return err
	}

	accountID, err := tokens.Verify(token)
	if err != nil {
		return err
	}

	cmd.Println(accountID.String())
	return nil
}
