package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nxtgenia/miniaturia/internal/payments"
	"github.com/nxtgenia/miniaturia/miniaturia/catalog"
)

func newStripeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stripe",
		Short: "Manage the Stripe side of the catalog",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "sync",
		Short: "Create missing products and prices and print their ids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := requireEnv("STRIPE_SECRET_KEY")
			if err != nil {
				return err
			}

			// sync never touches accounts
			gateway := payments.NewGateway(key, nil, nil)
			defer gateway.Close()

			prices, err := gateway.SyncCatalog(cmd.Context())
			if err != nil {
				return err
			}

			for _, e := range catalog.All() {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%-16s %s\n", e.Key, prices[e.Key])
			}
			return nil
		},
	})

	return cmd
}
