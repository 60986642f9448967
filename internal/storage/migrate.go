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
var snapshotMigrations embed.FS

// ErrDirtySchema means an earlier snapshot migration stopped halfway and the
// store needs manual repair before it can be used.
var ErrDirtySchema = errors.New("snapshot schema is dirty")

// MigrateSnapshots brings the snapshot store at dbPath up to the latest
// schema and returns the resulting version. The migrator closes the
// connection it is given, so it runs on its own handle.
func MigrateSnapshots(dbPath string) (uint, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return 0, fmt.Errorf("open snapshot store for migration: %w", err)
	}
	defer conn.Close()

	target, err := sqlite.WithInstance(conn, &sqlite.Config{})
	if err != nil {
		return 0, fmt.Errorf("snapshot migration target: %w", err)
	}
	scripts, err := iofs.New(snapshotMigrations, "migrations")
	if err != nil {
		return 0, fmt.Errorf("snapshot migration scripts: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", scripts, "sqlite", target)
	if err != nil {
		return 0, fmt.Errorf("snapshot migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("migrate snapshot schema: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("read snapshot schema version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("version %d: %w", version, ErrDirtySchema)
	}
	return version, nil
}
