// Package worker runs background dataset refreshes.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"txdash/internal/services"
)

// Initializer is the part of services.SeedService the worker drives.
type Initializer interface {
	Initialize(ctx context.Context) (services.InitializeResult, error)
	InitializeIfEmpty(ctx context.Context) (bool, services.InitializeResult, error)
}

// RefreshWorker re-imports the dataset on a cron schedule and, optionally,
// once at startup when the store is empty.
type RefreshWorker struct {
	init      Initializer
	schedule  string
	onStartup bool
	cron      *cron.Cron
	stopOnce  sync.Once
}

// NewRefreshWorker validates schedule (standard five-field expression or a
// descriptor such as @daily). An empty schedule disables periodic runs.
func NewRefreshWorker(init Initializer, schedule string, onStartup bool) (*RefreshWorker, error) {
	w := &RefreshWorker{
		init:      init,
		schedule:  schedule,
		onStartup: onStartup,
	}
	if schedule == "" {
		return w, nil
	}

	logger := cronLogger{slog.Default().With("component", "worker")}
	w.cron = cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("parse refresh schedule %q: %w", schedule, err)
	}
	return w, nil
}

// Enabled reports whether the worker has anything to do.
func (w *RefreshWorker) Enabled() bool {
	return w.onStartup || w.cron != nil
}

// Start runs the startup check synchronously, then schedules periodic
// refreshes until ctx is cancelled or Stop is called.
func (w *RefreshWorker) Start(ctx context.Context) error {
	if w.onStartup {
		ran, res, err := w.init.InitializeIfEmpty(ctx)
		switch {
		case err != nil:
			slog.ErrorContext(ctx, "Startup initialization failed", "error", err)
		case ran:
			slog.InfoContext(ctx, "Startup initialization complete",
				"inserted", res.Inserted,
				"skipped", res.Skipped)
		}
	}

	if w.cron == nil {
		return nil
	}

	if _, err := w.cron.AddFunc(w.schedule, func() { w.refresh(ctx) }); err != nil {
		return fmt.Errorf("schedule refresh: %w", err)
	}
	w.cron.Start()
	slog.InfoContext(ctx, "Refresh worker started", "schedule", w.schedule)

	go func() {
		<-ctx.Done()
		w.Stop()
	}()
	return nil
}

func (w *RefreshWorker) refresh(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	res, err := w.init.Initialize(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Scheduled refresh failed", "error", err)
		return
	}
	slog.InfoContext(ctx, "Scheduled refresh complete",
		"inserted", res.Inserted,
		"skipped", res.Skipped,
		"shared", res.Shared)
}

// Stop halts scheduling and waits for a running refresh to return.
func (w *RefreshWorker) Stop() {
	if w.cron == nil {
		return
	}
	w.stopOnce.Do(func() {
		<-w.cron.Stop().Done()
		slog.Info("Refresh worker stopped")
	})
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
