package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/phrazzld/hitster/internal/config"
	"github.com/phrazzld/hitster/internal/platform/postgres"
	"github.com/phrazzld/hitster/internal/platform/sqlite"
	"github.com/phrazzld/hitster/internal/store"
	"github.com/pressly/goose/v3"
)

const (
	driverPostgres = "postgres"
	driverSQLite   = "sqlite"
)

// openDatabase connects to the configured engine and verifies the connection.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*sql.DB, error) {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	switch cfg.Driver {
	case driverSQLite:
		db, err := sqlite.Open(pingCtx, cfg.URL)
		if err != nil {
			return nil, err
		}
		logger.Info("database connection established", slog.String("driver", cfg.Driver))
		return db, nil

	case driverPostgres:
		db, err := sql.Open("pgx", cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database connection: %w", err)
		}
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(max(1, cfg.MaxOpenConns/2))
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.PingContext(pingCtx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		logger.Info("database connection established",
			slog.String("driver", cfg.Driver),
			slog.Int("max_open_conns", cfg.MaxOpenConns))
		return db, nil

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// newStores builds the job and playlist stores for driver.
func newStores(driver string, db *sql.DB, logger *slog.Logger) (store.JobStore, store.PlaylistStore, error) {
	switch driver {
	case driverSQLite:
		return sqlite.NewSQLiteJobStore(db, logger), sqlite.NewSQLitePlaylistStore(db, logger), nil
	case driverPostgres:
		return postgres.NewPostgresJobStore(db, logger), postgres.NewPostgresPlaylistStore(db, logger), nil
	default:
		return nil, nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

func newMigrator(driver string, db *sql.DB, logger *slog.Logger) (*goose.Provider, error) {
	opts := []goose.ProviderOption{goose.WithLogger(&slogGooseLogger{logger: logger})}
	switch driver {
	case driverSQLite:
		return sqlite.NewMigrator(db, opts...)
	case driverPostgres:
		return postgres.NewMigrator(db, opts...)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}
