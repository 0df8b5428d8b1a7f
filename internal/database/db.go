// Package database owns the kv_entries schema shared by the SQL storage
// backends and the golang-migrate runs that create it.
package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// OpenSQLite creates the directory holding path if needed, brings the
// kv_entries schema up to date and returns a handle limited to one
// connection, since SQLite allows a single writer.
func OpenSQLite(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	if err := MigrateSQLite(path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// MigrateSQLite applies the SQLite migrations to the database file at path.
func MigrateSQLite(path string) error {
	src, err := migrationSource("sqlite")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, "sqlite://"+path)
	if err != nil {
		return fmt.Errorf("failed to create sqlite migrator: %w", err)
	}
	return up(m, "sqlite")
}

// MigratePostgres applies the PostgreSQL migrations through db. db is
// closed when the run finishes.
func MigratePostgres(db *sql.DB) error {
	src, err := migrationSource("postgres")
	if err != nil {
		db.Close()
		return err
	}
	driver, err := pgxmigrate.WithInstance(db, &pgxmigrate.Config{})
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to create postgres migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "pgx5", driver)
	if err != nil {
		driver.Close()
		return fmt.Errorf("failed to create postgres migrator: %w", err)
	}
	return up(m, "postgres")
}

func migrationSource(dialect string) (source.Driver, error) {
	src, err := iofs.New(migrationsFS, "migrations/"+dialect)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s migrations: %w", dialect, err)
	}
	return src, nil
}

func up(m *migrate.Migrate, dialect string) error {
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply %s migrations: %w", dialect, err)
	}
	version, dirty, _ := m.Version()
	slog.Debug("kv_entries schema ready", "dialect", dialect, "version", version, "dirty", dirty)
	return nil
}
