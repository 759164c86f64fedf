package ports

import (
	"context"

	"txdash/internal/core"
)

// Ports implemented by every transaction store backend.
type (
	TransactionLister interface {
		// ListTransactions returns one page of matches in ascending id order,
		// together with the total number of matches.
		ListTransactions(ctx context.Context, q core.ListQuery) (core.TransactionPage, error)
	}

	// ReportReader provides the monthly aggregates behind the dashboard.
	ReportReader interface {
		Statistics(ctx context.Context, month core.Month) (core.Statistics, error)
		// PriceBuckets returns counts for non-empty buckets only.
		PriceBuckets(ctx context.Context, month core.Month) ([]core.BucketCount, error)
		CategoryCounts(ctx context.Context, month core.Month) ([]core.CategoryCount, error)
	}

	// TransactionReplacer swaps the whole record set in one step.
	TransactionReplacer interface {
		ReplaceAll(ctx context.Context, txs []core.Transaction) (int, error)
		Count(ctx context.Context) (int64, error)
	}

	Pinger interface {
		Ping(ctx context.Context) error
	}

	Store interface {
		TransactionLister
		ReportReader
		TransactionReplacer
		Pinger
		Close() error
	}
)
