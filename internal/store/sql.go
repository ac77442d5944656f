package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	// Registers the "pgx" driver.
	_ "github.com/jackc/pgx/v5/stdlib"
	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"

	"github.com/ykvlv/dailyping/internal/dbx"
)

// SQLRepo implements Repo on database/sql for SQLite and PostgreSQL.
type SQLRepo struct {
	db      *sql.DB
	dialect dbx.Dialect
}

// OpenSQLite opens (or creates) the SQLite database at the given path,
// applies recommended PRAGMAs, runs migrations, and returns a repository.
func OpenSQLite(ctx context.Context, path string) (*SQLRepo, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open(dbx.SQLite.DriverName(), path)
	if err != nil {
		return nil, err
	}

	// SQLite is a single-writer engine; one connection also keeps ":memory:" alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := RunMigrations(ctx, db, dbx.SQLite); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &SQLRepo{db: db, dialect: dbx.SQLite}, nil
}

// OpenPostgres connects through the pgx stdlib driver and runs migrations.
func OpenPostgres(ctx context.Context, dsn string) (*SQLRepo, error) {
	db, err := sql.Open(dbx.Postgres.DriverName(), dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := RunMigrations(ctx, db, dbx.Postgres); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return &SQLRepo{db: db, dialect: dbx.Postgres}, nil
}

// applyPragmas configures the SQLite connection for durability and concurrency.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// DB exposes the handle so the claim ledger can share the connection pool.
func (r *SQLRepo) DB() *sql.DB { return r.db }

// Dialect reports the SQL flavor of the repository.
func (r *SQLRepo) Dialect() dbx.Dialect { return r.dialect }

// Close releases the underlying database resources.
func (r *SQLRepo) Close() error {
	return r.db.Close()
}

func (r *SQLRepo) q(query string) string {
	return r.dialect.Rebind(query)
}
