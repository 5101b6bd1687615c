package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nxtgenia/miniaturia/internal/migrations"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the database schema",
	}

	cmd.AddCommand(
		newMigrateStepCmd("up", "Apply all pending migrations", (*migrations.Migrator).Up),
		newMigrateStepCmd("down", "Roll back every migration", (*migrations.Migrator).Down),
		newMigrateVersionCmd(),
	)

	return cmd
}

func newMigrateStepCmd(use, short string, step func(*migrations.Migrator) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := openMigrator()
			if err != nil {
				return err
			}
			defer m.Close() //nolint:errcheck // closing after the work is done

			if err := step(m); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "migrate %s: done\n", use)
			return nil
		},
	}
}

func newMigrateVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := openMigrator()
			if err != nil {
				return err
			}
			defer m.Close() //nolint:errcheck // read only

			version, dirty, err := m.Version()
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "version: %d\ndirty: %t\n", version, dirty)
			return nil
		},
	}
}

func openMigrator() (*migrations.Migrator, error) {
	databaseURL, err := requireEnv("DATABASE_URL")
	if err != nil {
		return nil, err
	}
	return migrations.New(databaseURL)
}
