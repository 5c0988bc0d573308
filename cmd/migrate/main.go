package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/condohub/billing/internal/config"
	"github.com/condohub/billing/internal/logger"
	"github.com/condohub/billing/internal/migrations"
	"github.com/condohub/billing/internal/postgres"
)

func main() {
	// Parse command line flags
	dryRun := flag.Bool("dry-run", false, "Print migration status without applying anything")
	timeout := flag.Duration("timeout", 2*time.Minute, "Maximum time allowed for the migration run")
	flag.Parse()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logger.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	logger.Infow("Connecting to database", "host", cfg.Postgres.Host, "dbname", cfg.Postgres.DBName)
	db, err := postgres.NewDB(cfg, logger)
	if err != nil {
		logger.Fatalw("Failed to connect to postgres", "error", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if *dryRun {
		logger.Info("Dry run mode - reporting migration status without applying")
		if err := migrations.Status(ctx, db.DB.DB, logger); err != nil {
			logger.Fatalw("Failed to read migration status", "error", err)
		}
		return
	}

	logger.Info("Running database migrations...")
	if err := migrations.Up(ctx, db.DB.DB, logger); err != nil {
		logger.Fatalw("Failed to apply migrations", "error", err)
	}
	logger.Info("Migrations applied successfully")
}
