package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newCreditsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credits",
		Short: "Inspect and adjust account balances",
	}

	cmd.AddCommand(
		newCreditsShowCmd(a),
		newCreditsGrantCmd(a),
		newCreditsHistoryCmd(a),
	)

	return cmd
}

func newCreditsShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <account>",
		Short: "Print an account's balance and plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := a.ledger(cmd.Context())
			if err != nil {
				return err
			}

			acc, err := repo.GetAccount(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			period := string(acc.PlanPeriod)
			if period == "" {
				period = "-"
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "account:  %s\n", acc.ID)
			_, _ = fmt.Fprintf(out, "email:    %s\n", acc.Email)
			_, _ = fmt.Fprintf(out, "credits:  %d\n", acc.Credits)
			_, _ = fmt.Fprintf(out, "plan:     %s (%s)\n", acc.Plan, period)
			if acc.StripeCustomerID != "" {
				_, _ = fmt.Fprintf(out, "customer: %s\n", acc.StripeCustomerID)
			}
			return nil
		},
	}
}

func newCreditsGrantCmd(a *app) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "grant <account> <amount>",
		Short: "Add credits to an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.Atoi(args[1])
			if err != nil || amount <= 0 {
				return fmt.Errorf("amount must be a positive integer, got %q", args[1])
			}

			repo, err := a.ledger(cmd.Context())
			if err != nil {
				return err
			}

			balance, err := repo.Credit(cmd.Context(), args[0], amount, reason)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "granted %d credits to %s, balance %d\n", amount, args[0], balance)
			return nil
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "admin grant", "reason recorded in the audit trail")

	return cmd
}

func newCreditsHistoryCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history <account>",
		Short: "Print the most recent ledger entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := a.ledger(cmd.Context())
			if err != nil {
				return err
			}

			txs, total, err := repo.Transactions(cmd.Context(), args[0], limit, 0)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "WHEN\tKIND\tAMOUNT\tBALANCE\tREASON")
			for _, tx := range txs {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%+d\t%d\t%s\n",
					tx.CreatedAt.Format(time.RFC3339), tx.Kind, tx.Amount, tx.BalanceAfter, tx.Reason)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "showing %d of %d\n", len(txs), total)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "number of entries to print")

	return cmd
}
