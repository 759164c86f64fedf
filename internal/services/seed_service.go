package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"txdash/internal/amqp"
	"txdash/internal/ports"
	"txdash/internal/seed"
)

// ErrEmptyDataset is returned when the source yields no usable record;
// the store is left untouched.
var ErrEmptyDataset = errors.New("dataset contains no valid transactions")

// EventPublisher announces a completed initialization. *amqp.Client
// implements it.
type EventPublisher interface {
	PublishDatasetInitialized(ctx context.Context, msg *amqp.DatasetInitializedMessage) error
}

type InitializeResult struct {
	Inserted int           `json:"inserted"`
	Skipped  int           `json:"skipped"`
	Source   string        `json:"source"`
	Duration time.Duration `json:"-"`
	// Shared is set when the caller joined a run started by someone else.
	Shared bool `json:"-"`
}

// SeedService replaces the store content with the upstream dataset.
type SeedService struct {
	source    seed.Source
	store     ports.TransactionReplacer
	publisher EventPublisher
	group     singleflight.Group
}

// NewSeedService wires a service; publisher may be nil.
func NewSeedService(source seed.Source, store ports.TransactionReplacer, publisher EventPublisher) *SeedService {
	return &SeedService{
		source:    source,
		store:     store,
		publisher: publisher,
	}
}

// Initialize fetches the dataset and replaces every stored transaction
// with it. Concurrent calls share one run. The run is detached from the
// caller's cancellation so that a client hanging up does not abort a
// replace other callers are waiting on; the caller still stops waiting
// when ctx ends.
func (s *SeedService) Initialize(ctx context.Context) (InitializeResult, error) {
	ch := s.group.DoChan("initialize", func() (any, error) {
		return s.initialize(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return InitializeResult{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return InitializeResult{}, res.Err
		}
		out := res.Val.(InitializeResult)
		out.Shared = res.Shared
		return out, nil
	}
}

func (s *SeedService) initialize(ctx context.Context) (InitializeResult, error) {
	start := time.Now()
	result := InitializeResult{Source: s.source.Name()}

	records, err := s.source.Fetch(ctx)
	if err != nil {
		return result, fmt.Errorf("initialize from %s: %w", result.Source, err)
	}

	txs, invalid := seed.Transactions(records)
	for _, bad := range invalid {
		slog.WarnContext(ctx, "Skipping invalid dataset record",
			"index", bad.Index,
			"id", bad.ID,
			"error", bad.Err)
	}
	result.Skipped = len(invalid)

	if len(txs) == 0 {
		return result, fmt.Errorf("initialize from %s: %w", result.Source, ErrEmptyDataset)
	}

	inserted, err := s.store.ReplaceAll(ctx, txs)
	if err != nil {
		return result, fmt.Errorf("initialize from %s: replace transactions: %w", result.Source, err)
	}
	result.Inserted = inserted
	result.Duration = time.Since(start)

	slog.InfoContext(ctx, "Database initialized",
		"source", result.Source,
		"inserted", result.Inserted,
		"skipped", result.Skipped,
		"duration_ms", result.Duration.Milliseconds())

	s.publish(ctx, result)
	return result, nil
}

func (s *SeedService) publish(ctx context.Context, result InitializeResult) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "No event publisher configured, skipping dataset event")
		return
	}
	msg := amqp.NewDatasetInitializedMessage(result.Source, result.Inserted, result.Skipped, result.Duration)
	if err := s.publisher.PublishDatasetInitialized(ctx, msg); err != nil {
		// The store is already replaced; a lost event does not fail the call.
		slog.ErrorContext(ctx, "Failed to publish dataset initialized event", "error", err)
	}
}

// InitializeIfEmpty runs Initialize only when the store holds no
// transactions. It reports whether a run happened.
func (s *SeedService) InitializeIfEmpty(ctx context.Context) (bool, InitializeResult, error) {
	n, err := s.store.Count(ctx)
	if err != nil {
		return false, InitializeResult{}, fmt.Errorf("count transactions: %w", err)
	}
	if n > 0 {
		slog.InfoContext(ctx, "Store already populated, skipping initialization", "transactions", n)
		return false, InitializeResult{}, nil
	}
	result, err := s.Initialize(ctx)
	return err == nil, result, err
}
