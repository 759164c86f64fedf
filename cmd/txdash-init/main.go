// Command txdash-init replaces the stored transactions with the configured
// dataset once and exits. Useful as a deploy hook or cron job when the
// server runs without SEED_SCHEDULE.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"txdash/internal/cli"
	"txdash/internal/log"
)

func main() {
	cfg, logger := cli.LoadAndValidateConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := cli.Bootstrap(ctx, cfg, logger)

	res, err := app.Seeder.Initialize(ctx)
	if err != nil {
		logger.Error("Failed to initialize database", log.NewFields().
			WithOperation(log.OpInitialize).
			WithError(err).
			ToSlice()...)
		app.Close()
		os.Exit(1)
	}

	logger.Info("Database initialized successfully", log.NewFields().
		WithOperation(log.OpInitialize).
		WithDataset(res.Source, res.Inserted, res.Skipped).
		ToSlice()...)
	app.Close()
}
