// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package main

import (
	"os"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/gatehouse/gatehouse/internal/auth"
)

// accountConfig holds flags shared by the account subcommands.
type accountConfig struct {
	secret    string
	newSecret string
	mode      string
}

// NewAccountCmd creates the account subcommand.
func NewAccountCmd() *cobra.Command {
	cfg := &accountConfig{}

	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage accounts",
		Long:  `Create, delete, and maintain accounts and their secrets.`,
	}

	// The secret can also come from GATEHOUSE_SECRET so it stays out of
	// shell history.
	cmd.PersistentFlags().StringVar(&cfg.secret, "secret", "", "account secret (or set GATEHOUSE_SECRET)")

	create := &cobra.Command{
		Use:   "create <identifier>",
		Short: "Register a new account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAccountCreate(cmd, cfg, args[0])
		},
	}

	del := &cobra.Command{
		Use:   "delete <identifier>",
		Short: "Delete an account and revoke its sessions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAccountDelete(cmd, cfg, args[0])
		},
	}

	passwd := &cobra.Command{
		Use:   "passwd <identifier>",
		Short: "Change an account's secret",
		Long: `Change an account's secret. The current secret must verify first;
all existing sessions are revoked on success.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAccountPasswd(cmd, cfg, args[0])
		},
	}
	passwd.Flags().StringVar(&cfg.newSecret, "new-secret", "", "replacement secret (or set GATEHOUSE_NEW_SECRET)")

	login := &cobra.Command{
		Use:   "login <identifier>",
		Short: "Authenticate and print a credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAccountLogin(cmd, cfg, args[0])
		},
	}
	login.Flags().StringVar(&cfg.mode, "mode", string(auth.ModeSession), "credential mode (session or token)")

	whoami := &cobra.Command{
		Use:   "whoami <credential>",
		Short: "Resolve a credential to its account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAccountWhoami(cmd, args[0])
		},
	}

	cmd.AddCommand(create, del, passwd, login, whoami)
	return cmd
}

// resolveSecret returns the flag value or the environment fallback.
func resolveSecret(flagValue, envVar string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if env := os.Getenv(envVar); env != "" {
		return env, nil
	}
	return "", oops.Code("CONFIG_INVALID").
		With("env_var", envVar).
		Errorf("secret is required (--secret flag or %s)", envVar)
}

func runAccountCreate(cmd *cobra.Command, cfg *accountConfig, identifier string) error {
	secret, err := resolveSecret(cfg.secret, "GATEHOUSE_SECRET")
	if err != nil {
		return err
	}

	conf, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	rt, err := buildRuntime(cmd.Context(), conf)
	if err != nil {
		return err
	}
	defer rt.Close()

	account, err := rt.authenticator.Register(cmd.Context(), identifier, secret)
	if err != nil {
		return err
	}

	cmd.Printf("Account created: %s (%s)\n", account.Identifier, account.ID.String())
	return nil
}

func runAccountDelete(cmd *cobra.Command, cfg *accountConfig, identifier string) error {
	secret, err := resolveSecret(cfg.secret, "GATEHOUSE_SECRET")
	if err != nil {
		return err
	}

	conf, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	rt, err := buildRuntime(cmd.Context(), conf)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.authenticator.DeleteAccount(cmd.Context(), identifier, secret); err != nil {
		return err
	}

	cmd.Println("Account deleted")
	return nil
}

func runAccountPasswd(cmd *cobra.Command, cfg *accountConfig, identifier string) error {
	secret, err := resolveSecret(cfg.secret, "GATEHOUSE_SECRET")
	if err != nil {
		return err
	}
	newSecret, err := resolveSecret(cfg.newSecret, "GATEHOUSE_NEW_SECRET")
	if err != nil {
		return err
	}

	conf, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	rt, err := buildRuntime(cmd.Context(), conf)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.authenticator.ChangeSecret(cmd.Context(), identifier, secret, newSecret); err != nil {
		return err
	}

	cmd.Println("Secret changed; all sessions revoked")
	return nil
}

func runAccountLogin(cmd *cobra.Command, cfg *accountConfig, identifier string) error {
	secret, err := resolveSecret(cfg.secret, "GATEHOUSE_SECRET")
	if err != nil {
		return err
	}

	conf, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	rt, err := buildRuntime(cmd.Context(), conf)
	if err != nil {
		return err
	}
	defer rt.Close()

	credential, err := rt.authenticator.Authenticate(cmd.Context(), identifier, secret, auth.Mode(cfg.mode))
	if err != nil {
		return err
	}

	cmd.Println(credential)
	return nil
}

func runAccountWhoami(cmd *cobra.Command, credential string) error {
	conf, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	rt, err := buildRuntime(cmd.Context(), conf)
	if err != nil {
		return err
	}
	defer rt.Close()

	account, err := rt.authenticator.CurrentAccount(cmd.Context(), credential)
	if err != nil {
		return err
	}

	cmd.Printf("%s (%s)\n", account.Identifier, account.ID.String())
	return nil
}
