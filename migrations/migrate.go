// Package migrations holds the versioned schema for every supported store.
// Each dialect has its own directory; goose records applied versions in the
// goose_db_version table, so Migrate is safe to call on every start.
package migrations

import (
	"database/sql"
	"embed"
	"fmt"
	"log/slog"

	"github.com/pressly/goose/v3"
)

//go:embed sqlite/*.sql postgres/*.sql
var embedMigrations embed.FS

// Dialect directories, also used as goose dialect names.
const (
	SQLite   = "sqlite3"
	Postgres = "postgres"
)

var dirs = map[string]string{
	SQLite:   "sqlite",
	Postgres: "postgres",
}

// Migrate brings the schema of db up to the latest version for dialect.
func Migrate(db *sql.DB, dialect string, logger *slog.Logger) error {
	dir, ok := dirs[dialect]
	if !ok {
		return fmt.Errorf("migration error: unsupported dialect %q", dialect)
	}

	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(gooseLogger{logger: logger})

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("migration error setting dialect for db: %w", err)
	}

	if err := goose.Up(db, dir); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}

	return nil
}

// gooseLogger routes goose output through slog instead of the standard logger.
type gooseLogger struct {
	logger *slog.Logger
}

func (l gooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, v...), slog.String("component", "migrations"))
}

func (l gooseLogger) Fatalf(format string, v ...interface{}) {
	// goose only calls Fatalf from its CLI helpers; Up reports failures as errors.
	l.logger.Error(fmt.Sprintf(format, v...), slog.String("component", "migrations"))
}
