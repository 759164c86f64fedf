// Package postgres stores transactions in PostgreSQL through pgx.
package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"txdash/internal/core"
	"txdash/internal/storage/filter"
)

const transactionColumns = "id, title, description, price, date_of_sale, category, sold, image"

type Repository struct {
	pool    *pgxpool.Pool
	dialect filter.Dialect
}

func NewRepository(ctx context.Context, databaseURL string) (*Repository, error) {
	if err := RunMigrations(databaseURL); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Repository{pool: pool, dialect: filter.Postgres}, nil
}

func (r *Repository) Close() error {
	if r.pool != nil {
		r.pool.Close()
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// ListTransactions implements ports.TransactionLister
func (r *Repository) ListTransactions(ctx context.Context, q core.ListQuery) (core.TransactionPage, error) {
	q = q.Normalize()
	where := r.dialect.List(q)

	var page core.TransactionPage
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM transactions "+where.SQL, where.Args...).Scan(&page.Total); err != nil {
		return page, fmt.Errorf("count transactions: %w", err)
	}

	n := len(where.Args)
	query := fmt.Sprintf("SELECT %s FROM transactions %s ORDER BY id LIMIT $%d OFFSET $%d",
		transactionColumns, where.SQL, n+1, n+2)
	args := append(where.Args, q.PerPage, q.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return page, fmt.Errorf("list transactions: %w", err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Transaction, error) {
		var tx core.Transaction
		err := row.Scan(&tx.ID, &tx.Title, &tx.Description, &tx.Price, &tx.DateOfSale, &tx.Category, &tx.Sold, &tx.Image)
		tx.DateOfSale = tx.DateOfSale.UTC()
		return tx, err
	})
	if err != nil {
		return page, fmt.Errorf("scan transactions: %w", err)
	}
	page.Items = items
	return page, nil
}

// Statistics implements ports.ReportReader
func (r *Repository) Statistics(ctx context.Context, month core.Month) (core.Statistics, error) {
	where := r.dialect.Month(month)
	query := `SELECT
		COALESCE(SUM(price), 0),
		COUNT(*) FILTER (WHERE sold),
		COUNT(*) FILTER (WHERE NOT sold)
		FROM transactions ` + where.SQL

	var stats core.Statistics
	if err := r.pool.QueryRow(ctx, query, where.Args...).Scan(&stats.TotalSales, &stats.SoldCount, &stats.UnsoldCount); err != nil {
		return core.Statistics{}, fmt.Errorf("get statistics (month=%d): %w", month, err)
	}
	return stats, nil
}

// PriceBuckets implements ports.ReportReader
func (r *Repository) PriceBuckets(ctx context.Context, month core.Month) ([]core.BucketCount, error) {
	where := r.dialect.Month(month)
	query := "SELECT " + filter.BucketCase() + " AS bucket, COUNT(*) FROM transactions " + where.SQL + " GROUP BY bucket"

	rows, err := r.pool.Query(ctx, query, where.Args...)
	if err != nil {
		return nil, fmt.Errorf("get price buckets (month=%d): %w", month, err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.BucketCount, error) {
		var b core.BucketCount
		err := row.Scan(&b.ID, &b.Count)
		return b, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan price buckets: %w", err)
	}
	return out, nil
}

// CategoryCounts implements ports.ReportReader
func (r *Repository) CategoryCounts(ctx context.Context, month core.Month) ([]core.CategoryCount, error) {
	where := r.dialect.Month(month)
	// COLLATE "C" keeps the byte order the other backends use.
	query := "SELECT category, COUNT(*) FROM transactions " + where.SQL + ` GROUP BY category ORDER BY category COLLATE "C"`

	rows, err := r.pool.Query(ctx, query, where.Args...)
	if err != nil {
		return nil, fmt.Errorf("get category counts (month=%d): %w", month, err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.CategoryCount, error) {
		var c core.CategoryCount
		err := row.Scan(&c.ID, &c.Count)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan category counts: %w", err)
	}
	return out, nil
}

// Count implements ports.TransactionReplacer
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM transactions").Scan(&n); err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

// ReplaceAll implements ports.TransactionReplacer. Rows are streamed with
// COPY inside the same transaction as the delete.
func (r *Repository) ReplaceAll(ctx context.Context, txs []core.Transaction) (int, error) {
	rows := withIDs(txs)

	dbtx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin replace: %w", err)
	}
	defer dbtx.Rollback(ctx)

	deleted, err := dbtx.Exec(ctx, "DELETE FROM transactions")
	if err != nil {
		return 0, fmt.Errorf("delete transactions: %w", err)
	}

	copied, err := dbtx.CopyFrom(ctx,
		pgx.Identifier{"transactions"},
		[]string{"id", "title", "description", "price", "date_of_sale", "category", "sold", "image"},
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			tx := rows[i]
			return []any{tx.ID, tx.Title, tx.Description, tx.Price, tx.DateOfSale.UTC(), tx.Category, tx.Sold, tx.Image}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("copy transactions: %w", err)
	}

	// Keep the serial ahead of the explicit ids we just wrote.
	if _, err := dbtx.Exec(ctx,
		`SELECT setval(pg_get_serial_sequence('transactions', 'id'), COALESCE(MAX(id), 0) + 1, false) FROM transactions`); err != nil {
		return 0, fmt.Errorf("reset id sequence: %w", err)
	}

	if err := dbtx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit replace: %w", err)
	}

	slog.InfoContext(ctx, "Transactions replaced in PostgreSQL",
		"removed", deleted.RowsAffected(),
		"inserted", copied)

	return int(copied), nil
}

// withIDs returns a copy of txs where zero ids are replaced by ids above
// the largest explicit one.
func withIDs(txs []core.Transaction) []core.Transaction {
	out := make([]core.Transaction, len(txs))
	copy(out, txs)
	var maxID int64
	for _, tx := range out {
		if tx.ID > maxID {
			maxID = tx.ID
		}
	}
	for i := range out {
		if out[i].ID == 0 {
			maxID++
			out[i].ID = maxID
		}
	}
	return out
}
