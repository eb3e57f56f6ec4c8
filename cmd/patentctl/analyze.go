package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"patent-backend/internal/bootstrap"
	"patent-backend/internal/extract"
	"patent-backend/internal/pipeline"
)

func (c *cli) analyzeCmd() *cobra.Command {
	var (
		req  pipeline.Request
		file string
	)
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run a full patent analysis and print the result",
		Long: `Run prior-art search, the three scoring stages and the final
recommendation for one invention.

The technical content comes from --content or, with --file, from a PDF,
DOCX or text disclosure.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				text, err := extract.TextFromBytes(cmd.Context(), data, "", filepath.Base(file))
				if err != nil {
					return fmt.Errorf("read %s: %w", file, err)
				}
				req.TechnicalContent = text
			}
			return c.withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				res, err := app.Orchestrator.Run(ctx, req)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), res)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.Title, "title", "", "Invention title")
	f.StringVar(&req.Description, "description", "", "Invention description")
	f.StringVar(&req.TechnicalField, "field", "", "Technical field")
	f.StringVar(&req.TechnicalContent, "content", "", "Technical content")
	f.StringVar(&file, "file", "", "Disclosure file to extract technical content from")
	f.StringVar(&req.UserID, "user", "cli", "User ID the analysis is billed to")
	cmd.MarkFlagsMutuallyExclusive("content", "file")
	return cmd
}
