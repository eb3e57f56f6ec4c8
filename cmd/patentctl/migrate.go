package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"patent-backend/internal/shared/config"
	"patent-backend/internal/shared/storage/db"
)

func (c *cli) migrateCmd() *cobra.Command {
	var statusOnly bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Long: `Apply the embedded SQL migrations to DATABASE_URL.

DATABASE_DRIVER selects the dialect (pgx or sqlite).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), c.timeout)
			defer cancel()

			sqlDB, err := db.Connect(ctx, cfg.DatabaseDriver, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultMigrateOptions()))
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer sqlDB.Close()

			if !statusOnly {
				if err := db.RunMigrations(ctx, sqlDB); err != nil {
					return fmt.Errorf("run migrations: %w", err)
				}
			}
			version, err := db.MigrationStatus(ctx, sqlDB)
			if err != nil {
				return fmt.Errorf("migration status: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (%s)\n", version, cfg.DatabaseDriver)
			return nil
		},
	}
	cmd.Flags().BoolVar(&statusOnly, "status", false, "Print the schema version without migrating")
	return cmd
}
