package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"patent-backend/internal/bootstrap"
)

type purger interface {
	Purge(ctx context.Context, now time.Time) (int64, error)
}

func (c *cli) purgeCacheCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge-cache",
		Short: "Delete expired prior-art search results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				p, ok := app.SearchCache.(purger)
				if !ok {
					return fmt.Errorf("search cache %T cannot be purged", app.SearchCache)
				}
				n, err := p.Purge(ctx, time.Now().UTC())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "purged %d expired search results\n", n)
				return nil
			})
		},
	}
}
