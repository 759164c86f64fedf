package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"txdash/internal/core"
)

// SeedFile is the dataset NewFromFiles loads from its base directory.
const SeedFile = "seed_transactions.json"

type Store struct {
	mu    sync.RWMutex
	items []core.Transaction
}

func New(txs []core.Transaction) *Store {
	s := &Store{}
	s.replace(txs)
	return s
}

// NewFromFiles seeds the store from base/seed_transactions.json when the
// file exists and decodes; otherwise the store starts empty.
func NewFromFiles(base string) *Store {
	return New(readSeed(filepath.Join(base, SeedFile)))
}

func readSeed(path string) []core.Transaction {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var txs []core.Transaction
	if err := json.Unmarshal(data, &txs); err != nil {
		return nil
	}
	return txs
}

func (s *Store) Close() error { return nil }

func (s *Store) Ping(context.Context) error { return nil }

// ListTransactions implements ports.TransactionLister
func (s *Store) ListTransactions(_ context.Context, q core.ListQuery) (core.TransactionPage, error) {
	q = q.Normalize()
	s.mu.RLock()
	defer s.mu.RUnlock()

	page := core.TransactionPage{Items: []core.Transaction{}}
	skip := q.Offset()
	for _, tx := range s.items {
		if !q.Month.Matches(tx.DateOfSale) || !tx.MatchesSearch(q.Search) {
			continue
		}
		page.Total++
		if skip > 0 {
			skip--
			continue
		}
		if len(page.Items) < q.PerPage {
			page.Items = append(page.Items, tx)
		}
	}
	return page, nil
}

// Statistics implements ports.ReportReader
func (s *Store) Statistics(_ context.Context, month core.Month) (core.Statistics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		stats core.Statistics
		total = decimal.Zero
	)
	for _, tx := range s.items {
		if !month.Matches(tx.DateOfSale) {
			continue
		}
		total = total.Add(decimal.NewFromFloat(tx.Price))
		if tx.Sold {
			stats.SoldCount++
		} else {
			stats.UnsoldCount++
		}
	}
	stats.TotalSales = total.InexactFloat64()
	return stats, nil
}

// PriceBuckets implements ports.ReportReader
func (s *Store) PriceBuckets(_ context.Context, month core.Month) ([]core.BucketCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := map[string]int64{}
	for _, tx := range s.items {
		if month.Matches(tx.DateOfSale) {
			counts[core.BucketFor(tx.Price)]++
		}
	}
	var out []core.BucketCount
	for _, b := range core.PriceBuckets {
		if n := counts[b.Label]; n > 0 {
			out = append(out, core.BucketCount{ID: b.Label, Count: n})
		}
	}
	return out, nil
}

// CategoryCounts implements ports.ReportReader
func (s *Store) CategoryCounts(_ context.Context, month core.Month) ([]core.CategoryCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := map[string]int64{}
	for _, tx := range s.items {
		if month.Matches(tx.DateOfSale) {
			counts[tx.Category]++
		}
	}
	out := make([]core.CategoryCount, 0, len(counts))
	for cat, n := range counts {
		out = append(out, core.CategoryCount{ID: cat, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Count implements ports.TransactionReplacer
func (s *Store) Count(context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.items)), nil
}

// ReplaceAll implements ports.TransactionReplacer
func (s *Store) ReplaceAll(_ context.Context, txs []core.Transaction) (int, error) {
	seen := make(map[int64]struct{}, len(txs))
	for _, tx := range txs {
		if tx.ID == 0 {
			continue
		}
		if _, dup := seen[tx.ID]; dup {
			return 0, fmt.Errorf("duplicate transaction id %d", tx.ID)
		}
		seen[tx.ID] = struct{}{}
	}
	s.replace(txs)
	return len(txs), nil
}

func (s *Store) replace(txs []core.Transaction) {
	items := make([]core.Transaction, len(txs))
	copy(items, txs)

	var maxID int64
	for _, tx := range items {
		if tx.ID > maxID {
			maxID = tx.ID
		}
	}
	for i := range items {
		if items[i].ID == 0 {
			maxID++
			items[i].ID = maxID
		}
		items[i].DateOfSale = items[i].DateOfSale.UTC()
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].ID < items[j].ID })

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = items
}
