package store

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"

	"saker-rro/core/utils"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// ApplyMigrations brings the schema up to date with goose. Each SQL dialect
// keeps its own migration directory.
func ApplyMigrations(ctx context.Context, db *DB, logger *utils.Logger) error {
	var dir, dialect string
	switch db.Driver() {
	case DriverPostgres:
		dir, dialect = "migrations/postgres", "postgres"
	default:
		dir, dialect = "migrations/sqlite", "sqlite3"
	}
	sub, err := fs.Sub(migrationsFS, dir)
	if err != nil {
		return fmt.Errorf("migrations fs: %w", err)
	}
	provider, err := goose.NewProvider(goose.Dialect(dialect), db.SQL(), sub)
	if err != nil {
		return fmt.Errorf("migrations provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	for _, r := range results {
		logger.Printf("store: applied migration %s", r.Source.Path)
	}
	return nil
}
