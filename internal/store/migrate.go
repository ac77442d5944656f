package store

import (
	"context"
	"database/sql"
	"embed"

	"github.com/pressly/goose/v3"

	"github.com/ykvlv/dailyping/internal/dbx"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded goose migrations for the given dialect.
// The same SQL files serve SQLite and PostgreSQL.
func RunMigrations(ctx context.Context, db *sql.DB, dialect dbx.Dialect) error {
	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(goose.NopLogger())

	gd := "sqlite3"
	if dialect == dbx.Postgres {
		gd = "postgres"
	}
	if err := goose.SetDialect(gd); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, "migrations")
}
