package database

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func migrationSource() (source.Driver, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to create migration source driver: %w", err)
	}
	return src, nil
}

// RunMigrations applies all pending Postgres migrations. The schema is
// owned by these files; gorm AutoMigrate is only used for SQLite.
func RunMigrations(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	src, err := migrationSource()
	if err != nil {
		return err
	}
	dbDriver, err := postgres.WithInstance(sqlDB, &postgres.Config{MigrationsTable: "casebook_schema_migrations"})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	before, _, _ := m.Version()
	switch err := m.Up(); {
	case errors.Is(err, migrate.ErrNoChange):
		slog.Info("Database schema up to date", "version", before)
		return nil
	case err != nil:
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	after, dirty, _ := m.Version()
	slog.Info("Database migrations applied", "from", before, "to", after, "dirty", dirty)
	return nil
}
