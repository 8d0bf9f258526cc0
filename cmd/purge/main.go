// Command purge permanently deletes expenses that stayed in the trash longer
// than TRASH_RETENTION_DAYS and publishes a purged event for each. It is meant
// to run from cron.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"expensetracker/internal/config"
	"expensetracker/internal/db"
	"expensetracker/internal/events"
	"expensetracker/internal/log"
	"expensetracker/internal/repository"
	"expensetracker/internal/service"
)

const purgeTimeout = 5 * time.Minute

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := log.New(log.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Component: log.ComponentPurge})

	if err := run(cfg, logger); err != nil {
		logger.Error("purge failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *log.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	gormDB, err := db.Open(cfg.DBDriver, cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("database init: %w", err)
	}
	defer db.Close(gormDB)

	if err := db.Migrate(gormDB); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, purgeTimeout)
	defer cancel()

	publisher := events.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, logger)
	defer publisher.Close()

	retention := service.NewRetentionService(repository.NewExpenseRepository(gormDB), publisher, logger, cfg.TrashRetentionDays)
	_, err = retention.PurgeExpired(ctx, time.Now())
	return err
}
