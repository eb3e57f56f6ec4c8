package db

import (
	"context"
	"embed"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationFiles embed.FS

// goose keeps its base FS and dialect in package globals.
var gooseMu sync.Mutex

// RunMigrations applies embedded SQL migrations via goose. If database is nil, it's a no-op.
func RunMigrations(ctx context.Context, database *sqlx.DB) error {
	if database == nil {
		return nil
	}
	dialect, dir, err := migrationTarget(database.DriverName())
	if err != nil {
		return err
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()
	goose.SetBaseFS(migrationFiles)
	if err := goose.SetDialect(dialect); err != nil {
		return err
	}
	return goose.UpContext(ctx, database.DB, dir)
}

// MigrationStatus reports the current schema version.
func MigrationStatus(ctx context.Context, database *sqlx.DB) (int64, error) {
	dialect, _, err := migrationTarget(database.DriverName())
	if err != nil {
		return 0, err
	}
	gooseMu.Lock()
	defer gooseMu.Unlock()
	if err := goose.SetDialect(dialect); err != nil {
		return 0, err
	}
	return goose.GetDBVersionContext(ctx, database.DB)
}

func migrationTarget(driver string) (string, string, error) {
	switch driver {
	case DriverPostgres:
		return "postgres", "migrations/postgres", nil
	case DriverSQLite:
		return "sqlite3", "migrations/sqlite", nil
	default:
		return "", "", fmt.Errorf("no migrations for driver %q", driver)
	}
}
