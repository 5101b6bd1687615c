package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nxtgenia/miniaturia/miniaturia/catalog"
)

func newPlansCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plans",
		Short: "Print the plan and pack catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "KEY\tNAME\tPRICE\tCREDITS\tINTERVAL")
			for _, e := range catalog.All() {
				interval := string(e.Interval)
				if interval == "" {
					interval = "one-time"
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s EUR\t%d\t%s\n", e.Key, e.Name, e.DisplayPrice(), e.Credits, interval)
			}
			return w.Flush()
		},
	}
}
