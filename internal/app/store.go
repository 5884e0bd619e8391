package app

import (
	"context"
	"fmt"

	"agrovision/internal/config"
	"agrovision/internal/logger"
	"agrovision/internal/repository"
	"agrovision/internal/repository/postgres"
	"agrovision/internal/repository/sqlite"
)

// OpenStore connects the configured sighting store and migrates its schema.
// It returns a nil repository when persistence is disabled.
func OpenStore(ctx context.Context, cfg *config.Config, logger *logger.Logger) (repository.SightingRepository, error) {
	switch cfg.StorageDriver() {
	case config.DriverNone:
		return nil, nil

	case config.DriverSQLite:
		db, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("sqlite %s: %w", cfg.SQLitePath, err)
		}
		logger.Info("💾 Sightings stored in SQLite database %s", cfg.SQLitePath)
		return sqlite.NewSightingRepository(db), nil

	case config.DriverPostgres:
		d := postgres.Descriptor{
			Host:     cfg.DBHost,
			Port:     cfg.DBPort,
			Database: cfg.DBName,
			User:     cfg.DBUser,
			Password: cfg.DBPassword,
			SSLMode:  cfg.DBSSLMode,
		}
		db, err := postgres.New(ctx, d)
		if err != nil {
			return nil, fmt.Errorf("postgres %s: %w", d.Redacted(), err)
		}
		logger.Info("💾 Sightings stored in PostgreSQL %s", d.Redacted())
		return postgres.NewSightingRepository(db), nil

	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.DBDriver)
	}
}
