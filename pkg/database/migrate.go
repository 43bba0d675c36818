package database

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// Migrate applies all pending up migrations from sourcePath (e.g.
// "file://migrations"). A database already at the latest version is not an
// error.
func Migrate(sourcePath string, cfg *PostgresConfig) error {
	m, err := migrate.New(sourcePath, cfg.URL())
	if err != nil {
		return fmt.Errorf("failed to open migration source: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
