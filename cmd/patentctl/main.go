// Command patentctl runs patent analyses and maintenance tasks from the shell.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"patent-backend/internal/bootstrap"
	"patent-backend/internal/shared/config"
	"patent-backend/internal/shared/telemetry"
)

func main() {
	err := newRootCmd(bootstrap.Options{}).Execute()
	telemetry.Sync()
	if err != nil {
		os.Exit(1)
	}
}

// cli carries state shared by every subcommand.
type cli struct {
	opts    bootstrap.Options
	timeout time.Duration
	verbose bool
}

func newRootCmd(opts bootstrap.Options) *cobra.Command {
	c := &cli{opts: opts}
	root := &cobra.Command{
		Use:           "patentctl",
		Short:         "Patent analysis pipeline tooling",
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			telemetry.SetDebug(c.verbose)
		},
	}
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", 5*time.Minute, "Operation timeout")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		c.migrateCmd(),
		c.analyzeCmd(),
		c.showCmd(),
		c.usageCmd(),
		c.purgeCacheCmd(),
	)
	return root
}

// withApp loads config, builds the application and hands it to fn.
func (c *cli) withApp(cmd *cobra.Command, fn func(ctx context.Context, app *bootstrap.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), c.timeout)
	defer cancel()

	app, err := bootstrap.Build(ctx, cfg, c.opts)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(ctx, app)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
