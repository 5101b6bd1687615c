package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/nxtgenia/miniaturia/miniaturia/ledger"
)

// lazily opened resources shared by subcommands
type app struct {
	db *pgxpool.Pool
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "miniaturia-admin",
		Short:         "Operate the MiniaturIA backend: migrations, credits and the Stripe catalog",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			_ = godotenv.Load() //nolint:errcheck // .env is optional
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			a.close()
		},
	}

	rootCmd.AddCommand(
		newMigrateCmd(),
		newCreditsCmd(a),
		newStripeCmd(),
		newTokenCmd(),
		newPlansCmd(),
	)

	return rootCmd
}

func requireEnv(key string) (string, error) {
	v := os.Getenv(key)
	if v == "" {
		return "", fmt.Errorf("%s environment variable is required", key)
	}
	return v, nil
}

func (a *app) ledger(ctx context.Context) (*ledger.Repository, error) {
	if a.db == nil {
		databaseURL, err := requireEnv("DATABASE_URL")
		if err != nil {
			return nil, err
		}

		db, err := pgxpool.New(ctx, databaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.db = db
	}

	return ledger.NewRepository(a.db, 0), nil
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
		a.db = nil
	}
}
