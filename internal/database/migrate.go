package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrationsFS embed.FS

// Direction selects which way Migrate moves the schema.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// MigratePostgres applies the embedded Postgres migrations on a dedicated
// connection pool that is closed afterwards.
func MigratePostgres(dsn string, dir Direction) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("postgres open: %w", err)
	}
	drv, err := pgxmigrate.WithInstance(db, &pgxmigrate.Config{})
	if err != nil {
		db.Close()
		return fmt.Errorf("migrate driver: %w", err)
	}
	m, err := newMigrate("migrations/postgres", "pgx5", drv)
	if err != nil {
		drv.Close()
		return err
	}
	defer m.Close()
	return run(m, dir)
}

// MigrateSQLite applies the embedded SQLite migrations on db. db stays open:
// with a single connection (or :memory:) closing it would drop the schema.
func MigrateSQLite(db *sql.DB, dir Direction) error {
	drv, err := sqlitemigrate.WithInstance(db, &sqlitemigrate.Config{})
	if err != nil {
		return fmt.Errorf("migrate driver: %w", err)
	}
	m, err := newMigrate("migrations/sqlite", "sqlite", drv)
	if err != nil {
		return err
	}
	return run(m, dir)
}

func newMigrate(path, name string, drv migratedb.Driver) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, path)
	if err != nil {
		return nil, fmt.Errorf("migrations source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, name, drv)
	if err != nil {
		return nil, fmt.Errorf("migrate init: %w", err)
	}
	return m, nil
}

func run(m *migrate.Migrate, dir Direction) error {
	var err error
	switch dir {
	case Down:
		err = m.Down()
	default:
		err = m.Up()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate %s: %w", dir, err)
	}
	return nil
}
