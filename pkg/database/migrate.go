package database

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	"github.com/swapgrid/trust-engine/pkg/config"
)

// RunMigrations applies any pending SQL migrations from the given directory.
// A database that is already up to date is not an error.
func RunMigrations(cfg *config.DatabaseConfig, migrationsDir string) error {
	m, err := migrate.New("file://"+migrationsDir, cfg.URL())
	if err != nil {
		return fmt.Errorf("unable to initialize migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("unable to apply migrations: %w", err)
	}

	return nil
}
