// Package main implements the hitster worker: it claims background jobs
// from the database and runs playlist refetches and card sheet rendering
// until it receives SIGINT or SIGTERM.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/phrazzld/hitster/internal/config"
	"github.com/phrazzld/hitster/internal/platform/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}

// run is main without the process exit so tests can drive it.
func run(ctx context.Context, args []string, stderr io.Writer) int {
	flags := flag.NewFlagSet("worker", flag.ContinueOnError)
	flags.SetOutput(stderr)
	migrateCmd := flags.String("migrate", "", "run a migration command (up|down|status|version) and exit")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "failed to load configuration: %v\n", err)
		return 1
	}

	log, err := logger.Setup(cfg.Log)
	if err != nil {
		fmt.Fprintf(stderr, "failed to set up logger: %v\n", err)
		return 1
	}

	db, err := openDatabase(ctx, cfg.Database, log)
	if err != nil {
		log.Error("failed to open database", slog.String("error", err.Error()))
		return 1
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("error closing database connection", slog.String("error", err.Error()))
		}
	}()

	if *migrateCmd != "" {
		if err := runMigrationCommand(ctx, db, cfg.Database.Driver, *migrateCmd, log); err != nil {
			log.Error("migration command failed",
				slog.String("command", *migrateCmd),
				slog.String("error", err.Error()))
			return 1
		}
		return 0
	}

	if err := runMigrationCommand(ctx, db, cfg.Database.Driver, "up", log); err != nil {
		log.Error("failed to apply migrations", slog.String("error", err.Error()))
		return 1
	}

	app, err := newApplication(cfg, db, log)
	if err != nil {
		log.Error("failed to initialize application", slog.String("error", err.Error()))
		return 1
	}
	if err := app.Run(ctx); err != nil {
		log.Error("worker stopped with error", slog.String("error", err.Error()))
		return 1
	}
	return 0
}
