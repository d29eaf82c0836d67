package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrDirtySchema means an earlier migration stopped halfway. It needs manual
// repair followed by `migrate force`.
var ErrDirtySchema = errors.New("sqlite schema is dirty")

// Schema is the migration state of a database file.
type Schema struct {
	Version uint
	// Applied is true when this call moved the schema forward.
	Applied bool
}

// Migrate applies the embedded migrations that the file at dbPath has not
// seen yet. A dirty schema is reported, never migrated over.
func Migrate(dbPath string) (Schema, error) {
	// The migrator closes its database on Close, so it gets its own handle
	// instead of sharing the repository's pool.
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return Schema{}, fmt.Errorf("open migration database: %w", err)
	}
	defer db.Close()

	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return Schema{}, fmt.Errorf("create sqlite driver: %w", err)
	}
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return Schema{}, fmt.Errorf("read embedded migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return Schema{}, fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()

	before, err := schemaVersion(m)
	if err != nil {
		return Schema{Version: before}, err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return Schema{Version: before}, fmt.Errorf("migrate from version %d: %w", before, err)
	}
	after, err := schemaVersion(m)
	if err != nil {
		return Schema{Version: after}, err
	}
	return Schema{Version: after, Applied: after != before}, nil
}

func schemaVersion(m *migrate.Migrate) (uint, error) {
	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("read schema version: %w", err)
	case dirty:
		return version, fmt.Errorf("%w at version %d", ErrDirtySchema, version)
	}
	return version, nil
}
