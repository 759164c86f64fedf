// Package cli holds the start-up and shutdown steps shared by cmd/txdash
// and cmd/txdash-init.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"txdash/internal/amqp"
	"txdash/internal/backend"
	"txdash/internal/config"
	"txdash/internal/log"
	"txdash/internal/ports"
	"txdash/internal/seed"
	"txdash/internal/services"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the application logger from cfg and installs it as
// the slog default. An unknown level falls back to info.
func SetupLogger(cfg *config.Config) *log.Logger {
	lc := log.DefaultConfig()
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		lc.Level = level
	}
	lc.Format = cfg.LogFormat

	logger := log.New(lc)
	log.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config and logger or exits the process on validation failure.
func LoadAndValidateConfig() (*config.Config, *log.Logger) {
	LoadEnvFile()
	cfg := config.Load()
	logger := SetupLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg, logger
}

// App is the wired set of services both binaries run on.
type App struct {
	Config  *config.Config
	Logger  *log.Logger
	Store   ports.Store
	Reports *services.ReportService
	Seeder  *services.SeedService

	publisher *amqp.Client
	cleanup   func() error
}

// Bootstrap opens the configured store and builds the services on top of
// it. Failures to open the store exit the process; a broker that cannot be
// reached only disables event publishing.
func Bootstrap(ctx context.Context, cfg *config.Config, logger *log.Logger) *App {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}

	result, err := backend.NewFactory(logger.Logger.With(log.FieldComponent, log.ComponentBackend)).CreateBackend(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, log.FieldBackend, string(bcfg.Type))
		os.Exit(1)
	}

	app := &App{
		Config:  cfg,
		Logger:  logger,
		Store:   result.Store,
		Reports: services.NewReportService(result.Store),
		cleanup: result.Cleanup,
	}

	var publisher services.EventPublisher
	if client := InitPublisher(ctx, cfg, logger); client != nil {
		app.publisher = client
		publisher = client
	}

	source := seed.NewSource(cfg.SeedURL, cfg.SeedTimeout)
	app.Seeder = services.NewSeedService(source, result.Store, publisher)

	logger.Info("Services initialized",
		log.FieldBackend, string(result.Type),
		log.FieldSource, source.Name(),
		"events", app.publisher != nil)
	return app
}

// InitPublisher connects to the broker when AMQP_URL is set. It returns
// nil when publishing is disabled or the broker is unreachable.
func InitPublisher(ctx context.Context, cfg *config.Config, logger *log.Logger) *amqp.Client {
	if cfg.AMQPURL == "" {
		logger.Info("Event publishing disabled - no AMQP_URL provided")
		return nil
	}

	client, err := amqp.NewClient(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey)
	if err != nil {
		logger.WithComponent(log.ComponentAMQP).Warn("AMQP unavailable, continuing without event publishing",
			log.FieldError, err)
		return nil
	}
	return client
}

// Close releases the broker connection and the store.
func (a *App) Close() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.Logger.Warn("Failed to close AMQP client", log.FieldError, err)
		}
	}
	if a.cleanup != nil {
		if err := a.cleanup(); err != nil {
			a.Logger.Warn("Failed to close store", log.FieldError, err)
		}
	}
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that is closed once cleanup has returned.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		if cleanup != nil {
			cleanup(shutdownCtx)
		}

		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
			return
		}
		logger.Info("Shutdown complete")
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup is done.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
