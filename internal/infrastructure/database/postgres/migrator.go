// Package postgres holds the PostgreSQL connection pool and the schema
// migrations of the subscription directory. Migrations are driven by
// golang-migrate and exposed through the "migrate" CLI command.
package postgres

import (
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/turtacn/leadscore/pkg/errors"
)

// newMigrate is a variable to allow mocking in tests.
var newMigrate = func(sourceURL, databaseURL string) (migrator, error) {
	return migrate.New(sourceURL, databaseURL)
}

// migrator is the subset of *migrate.Migrate used here.
type migrator interface {
	Up() error
	Steps(n int) error
	Version() (uint, bool, error)
	Close() (error, error)
}

// RunMigrations applies all pending migrations. No pending migration is
// not an error.
func RunMigrations(dbURL, migrationsPath string) error {
	m, err := newMigrate(migrationsPath, dbURL)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create migrate instance")
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		version, _, _ := m.Version()
		return errors.Wrap(err, errors.ErrCodeDatabaseError,
			fmt.Sprintf("failed to run migrations (current version: %d)", version))
	}
	return nil
}

// RollbackMigration reverts the given number of migrations.
func RollbackMigration(dbURL, migrationsPath string, steps int) error {
	if steps <= 0 {
		return errors.InvalidParam(fmt.Sprintf("steps must be greater than 0, got %d", steps))
	}

	m, err := newMigrate(migrationsPath, dbURL)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create migrate instance")
	}
	defer m.Close()

	if err := m.Steps(-steps); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return errors.New(errors.ErrCodeDatabaseError, "no migrations to roll back")
		}
		return errors.Wrap(err, errors.ErrCodeDatabaseError, fmt.Sprintf("failed to rollback %d step(s)", steps))
	}
	return nil
}

// MigrationStatus returns the applied version and whether the last
// migration left the schema dirty. An unmigrated database reports 0.
func MigrationStatus(dbURL, migrationsPath string) (version uint, dirty bool, err error) {
	m, err := newMigrate(migrationsPath, dbURL)
	if err != nil {
		return 0, false, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create migrate instance")
	}
	defer m.Close()

	version, dirty, err = m.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return 0, false, nil
		}
		return 0, false, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to get migration version")
	}
	return version, dirty, nil
}

//Personal.AI order the ending
