package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"patent-backend/internal/bootstrap"
	"patent-backend/internal/reportexport"
)

func (c *cli) showCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show <analysis-id>",
		Short: "Print a stored analysis and its reports",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				awr, err := app.Analyses.GetAnalysisWithReports(ctx, args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				switch strings.ToLower(format) {
				case "json":
					return writeJSON(out, awr)
				case "md", "markdown":
					_, err := fmt.Fprint(out, reportexport.Markdown(awr))
					return err
				default:
					return fmt.Errorf("unknown format %q", format)
				}
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "md", "Output format: md or json")
	return cmd
}
