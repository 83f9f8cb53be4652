// Package migrations embeds SQL migration files and provides a function to apply them.
package migrations

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

// FS contains the embedded SQL migration files, one directory per dialect.
//
//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS

// Dir returns the migration directory for the given backend.
func Dir(postgres bool) string {
	if postgres {
		return "postgres"
	}
	return "sqlite"
}

// Dialect returns the goose dialect name for the given backend.
func Dialect(postgres bool) string {
	if postgres {
		return "postgres"
	}
	return "sqlite3"
}

// Run applies all pending migrations to the given database.
func Run(db *sql.DB, postgres bool) error {
	goose.SetBaseFS(FS)

	if err := goose.SetDialect(Dialect(postgres)); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.Up(db, Dir(postgres)); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}
