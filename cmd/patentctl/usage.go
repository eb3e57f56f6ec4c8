package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"patent-backend/internal/bootstrap"
)

func (c *cli) usageCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "usage <user-id>",
		Short: "Summarize token usage and cost for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if days < 1 || days > 365 {
				return fmt.Errorf("--days must be within 1..365, got %d", days)
			}
			return c.withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				since := time.Now().UTC().AddDate(0, 0, -days)
				summary, err := app.Ledger.Summary(ctx, args[0], since)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), summary)
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 30, "Look-back window in days")
	return cmd
}
