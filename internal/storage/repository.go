package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"txdash/internal/core"
	"txdash/internal/storage/filter"

	_ "modernc.org/sqlite"
)

// dateLayout is how date_of_sale is stored: UTC, fixed width, so that
// strftime can read it and string order equals time order.
const dateLayout = "2006-01-02T15:04:05.000Z"

const transactionColumns = "id, title, description, price, date_of_sale, category, sold, image"

type SQLiteRepository struct {
	db      *sql.DB
	dialect filter.Dialect
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", withBusyTimeout(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, dialect: filter.SQLite}, nil
}

func withBusyTimeout(dbPath string) string {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + "_pragma=busy_timeout(5000)"
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ListTransactions implements ports.TransactionLister
func (r *SQLiteRepository) ListTransactions(ctx context.Context, q core.ListQuery) (core.TransactionPage, error) {
	q = q.Normalize()
	where := r.dialect.List(q)

	var page core.TransactionPage
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM transactions "+where.SQL, where.Args...).Scan(&page.Total); err != nil {
		return page, fmt.Errorf("count transactions: %w", err)
	}

	query := "SELECT " + transactionColumns + " FROM transactions " + where.SQL + " ORDER BY id LIMIT ? OFFSET ?"
	args := append(where.Args, q.PerPage, q.Offset())
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return page, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	page.Items = make([]core.Transaction, 0, q.PerPage)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return page, err
		}
		page.Items = append(page.Items, tx)
	}
	if err := rows.Err(); err != nil {
		return page, fmt.Errorf("iterate transactions: %w", err)
	}

	return page, nil
}

func scanTransaction(rows *sql.Rows) (core.Transaction, error) {
	var (
		tx   core.Transaction
		date string
		sold int64
	)
	if err := rows.Scan(&tx.ID, &tx.Title, &tx.Description, &tx.Price, &date, &tx.Category, &sold, &tx.Image); err != nil {
		return tx, fmt.Errorf("scan transaction: %w", err)
	}
	t, err := time.Parse(dateLayout, date)
	if err != nil {
		return tx, fmt.Errorf("parse date_of_sale %q of transaction %d: %w", date, tx.ID, err)
	}
	tx.DateOfSale = t
	tx.Sold = sold == 1
	return tx, nil
}

// Statistics implements ports.ReportReader
func (r *SQLiteRepository) Statistics(ctx context.Context, month core.Month) (core.Statistics, error) {
	where := r.dialect.Month(month)
	query := `SELECT
		COALESCE(SUM(price), 0),
		COALESCE(SUM(CASE WHEN sold = 1 THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN sold = 1 THEN 0 ELSE 1 END), 0)
		FROM transactions ` + where.SQL

	var stats core.Statistics
	if err := r.db.QueryRowContext(ctx, query, where.Args...).Scan(&stats.TotalSales, &stats.SoldCount, &stats.UnsoldCount); err != nil {
		return core.Statistics{}, fmt.Errorf("get statistics (month=%d): %w", month, err)
	}
	return stats, nil
}

// PriceBuckets implements ports.ReportReader
func (r *SQLiteRepository) PriceBuckets(ctx context.Context, month core.Month) ([]core.BucketCount, error) {
	where := r.dialect.Month(month)
	query := "SELECT " + filter.BucketCase() + " AS bucket, COUNT(*) FROM transactions " + where.SQL + " GROUP BY bucket"

	rows, err := r.db.QueryContext(ctx, query, where.Args...)
	if err != nil {
		return nil, fmt.Errorf("get price buckets (month=%d): %w", month, err)
	}
	defer rows.Close()

	var out []core.BucketCount
	for rows.Next() {
		var b core.BucketCount
		if err := rows.Scan(&b.ID, &b.Count); err != nil {
			return nil, fmt.Errorf("scan price bucket: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price buckets: %w", err)
	}
	return out, nil
}

// CategoryCounts implements ports.ReportReader
func (r *SQLiteRepository) CategoryCounts(ctx context.Context, month core.Month) ([]core.CategoryCount, error) {
	where := r.dialect.Month(month)
	query := "SELECT category, COUNT(*) FROM transactions " + where.SQL + " GROUP BY category ORDER BY category"

	rows, err := r.db.QueryContext(ctx, query, where.Args...)
	if err != nil {
		return nil, fmt.Errorf("get category counts (month=%d): %w", month, err)
	}
	defer rows.Close()

	out := []core.CategoryCount{}
	for rows.Next() {
		var c core.CategoryCount
		if err := rows.Scan(&c.ID, &c.Count); err != nil {
			return nil, fmt.Errorf("scan category count: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category counts: %w", err)
	}
	return out, nil
}

// Count implements ports.TransactionReplacer
func (r *SQLiteRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM transactions").Scan(&n); err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

// ReplaceAll implements ports.TransactionReplacer. The delete and the
// inserts share one database transaction, so readers never see a
// half-seeded table.
func (r *SQLiteRepository) ReplaceAll(ctx context.Context, txs []core.Transaction) (int, error) {
	dbtx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin replace: %w", err)
	}
	defer dbtx.Rollback()

	deleted, err := dbtx.ExecContext(ctx, "DELETE FROM transactions")
	if err != nil {
		return 0, fmt.Errorf("delete transactions: %w", err)
	}

	stmt, err := dbtx.PrepareContext(ctx, "INSERT INTO transactions ("+transactionColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, tx := range txs {
		var id any
		if tx.ID != 0 {
			id = tx.ID
		}
		sold := 0
		if tx.Sold {
			sold = 1
		}
		if _, err := stmt.ExecContext(ctx, id, tx.Title, tx.Description, tx.Price,
			tx.DateOfSale.UTC().Format(dateLayout), tx.Category, sold, tx.Image); err != nil {
			return 0, fmt.Errorf("insert transaction %d: %w", tx.ID, err)
		}
	}

	if err := dbtx.Commit(); err != nil {
		return 0, fmt.Errorf("commit replace: %w", err)
	}

	removed, _ := deleted.RowsAffected()
	slog.InfoContext(ctx, "Transactions replaced in SQLite",
		"removed", removed,
		"inserted", len(txs))

	return len(txs), nil
}
