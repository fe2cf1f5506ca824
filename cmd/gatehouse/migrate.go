// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package main

import (
	"strconv"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/gatehouse/gatehouse/internal/store"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
		Long:  `Apply, roll back, or inspect schema migrations on the PostgreSQL database.`,
	}

	cmd.PersistentFlags().String("database-url", "", "PostgreSQL connection URL")

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE:  runMigrateUp,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations",
		RunE:  runMigrateDown,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the current migration version",
		RunE:  runMigrateStatus,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "force <version>",
		Short: "Set the migration version without running migrations",
		Long:  `Set the recorded migration version. Use only to recover from a dirty state after fixing the database by hand.`,
		Args:  cobra.ExactArgs(1),
		RunE:  runMigrateForce,
	})

	return cmd
}

func openMigrator(cmd *cobra.Command) (*store.Migrator, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, oops.Code("CONFIG_INVALID").Errorf("database_url is required (config file or --database-url)")
	}
	return store.NewMigrator(cfg.DatabaseURL)
}

func runMigrateUp(cmd *cobra.Command, _ []string) error {
	m, err := openMigrator(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()

	cmd.Println("Running migrations...")
	if err := m.Up(); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "apply migrations").Wrap(err)
	}

	cmd.Println("Migrations completed successfully")
	return nil
}

func runMigrateDown(cmd *cobra.Command, _ []string) error {
	m, err := openMigrator(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()

	if err := m.Down(); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "roll back migrations").Wrap(err)
	}

	cmd.Println("Rolled back all migrations")
	return nil
}

func runMigrateForce(cmd *cobra.Command, args []string) error {
	version, err := strconv.Atoi(args[0])
	if err != nil {
		return oops.Code("INVALID_VERSION").
			With("value", args[0]).
			Errorf("version must be an integer")
	}

	m, err := openMigrator(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()

	if err := m.Force(version); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "force migration version").Wrap(err)
	}

	cmd.Printf("Forced migration version to %d\n", version)
	return nil
}

func runMigrateStatus(cmd *cobra.Command, _ []string) error {
	m, err := openMigrator(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()

	version, dirty, err := m.Version()
	if err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "read migration version").Wrap(err)
	}

	if version == 0 {
		cmd.Println("No migrations applied")
		return nil
	}
	if dirty {
		cmd.Printf("Version %d (dirty)\n", version)
		return nil
	}
	cmd.Printf("Version %d\n", version)
	return nil
}
