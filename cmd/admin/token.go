package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nxtgenia/miniaturia/internal/auth"
)

// mints bearer tokens for local testing against the API
func newTokenCmd() *cobra.Command {
	var (
		email string
		ttl   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token <account>",
		Short: "Print a signed bearer token for an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := requireEnv("SUPABASE_JWT_SECRET")
			if err != nil {
				return err
			}

			audience := os.Getenv("AUTH_AUDIENCE")
			if audience == "" {
				audience = "authenticated"
			}

			issuer, err := auth.NewVerifier(secret, audience)
			if err != nil {
				return err
			}

			token, err := issuer.Issue(args[0], email, ttl)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")

	return cmd
}
