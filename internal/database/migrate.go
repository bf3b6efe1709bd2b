package database

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/worklog-bot/worklog/internal/config"
	"github.com/worklog-bot/worklog/migrations"
)

// RunMigrations applies all pending up-migrations for the configured driver.
func RunMigrations(cfg config.DBConfig) error {
	var url string
	switch cfg.Driver {
	case config.DriverPostgres:
		url = cfg.DSN()
	case config.DriverSQLite:
		url = "sqlite://" + cfg.SQLitePath
	default:
		return fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	return Migrate(cfg.Driver, url)
}

// Migrate applies the embedded migrations of driver against the database at url.
func Migrate(driver, url string) error {
	src, err := iofs.New(migrations.FS, driver)
	if err != nil {
		return fmt.Errorf("opening %s migrations: %w", driver, err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, url)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("running migrations: %w", err)
	}

	ver, dirty, _ := m.Version()
	slog.Info("database migrations applied", "driver", driver, "version", ver, "dirty", dirty)
	return nil
}
