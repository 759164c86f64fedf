package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"txdash/internal/cli"
	apphttp "txdash/internal/http"
	"txdash/internal/log"
	"txdash/internal/worker"
)

func main() {
	cfg, logger := cli.LoadAndValidateConfig()
	logger.Info("Starting txdash", log.FieldOperation, log.OpStartup)

	app := cli.Bootstrap(context.Background(), cfg, logger)
	defer app.Close()

	refresher, err := worker.NewRefreshWorker(app.Seeder, cfg.SeedSchedule, cfg.SeedOnStartup)
	if err != nil {
		logger.Error("Failed to create refresh worker", log.FieldError, err)
		os.Exit(1)
	}

	srv := apphttp.NewServer(apphttp.Config{
		Addr:           ":" + cfg.Port,
		RequestTimeout: cfg.RequestTimeout,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		InitRateLimit:  cfg.InitRateLimit,
		Logger:         logger,
	}, app.Reports, app.Seeder, app.Store)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		refresher.Stop()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	if refresher.Enabled() {
		if err := refresher.Start(ctx); err != nil {
			logger.Error("Failed to start refresh worker", log.FieldError, err)
			os.Exit(1)
		}
	}

	logger.Info("Starting HTTP server",
		"port", cfg.Port,
		log.FieldBackend, cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		app.Close()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully", log.FieldOperation, log.OpShutdown)
}
