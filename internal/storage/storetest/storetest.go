// Package storetest is a behavioural test suite every ports.Store backend
// must pass. Backends call Run from their own _test.go files.
package storetest

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"txdash/internal/core"
	"txdash/internal/ports"
)

// Opener returns an empty store; the suite closes it.
type Opener func(t *testing.T) ports.Store

// Categories used by generated datasets. Case variants are deliberate:
// grouping must keep them apart.
var Categories = []string{"electronics", "Electronics", "jewelery", "men's clothing", "women's clothing"}

func Run(t *testing.T, open Opener) {
	t.Helper()
	tests := []struct {
		name string
		fn   func(t *testing.T, s ports.Store)
	}{
		{"Scenario", testScenario},
		{"EmptyStore", testEmptyStore},
		{"Pagination", testPagination},
		{"SearchIsCaseInsensitiveSubstring", testSearch},
		{"SearchEscapesPatternCharacters", testSearchLiteral},
		{"MonthIgnoresYear", testMonthIgnoresYear},
		{"CategoriesAreVerbatim", testCategoriesVerbatim},
		{"ReplaceIsFullReplace", testReplaceIsFullReplace},
		{"ReplaceIsIdempotent", testReplaceIdempotent},
		{"AggregateInvariants", testAggregateInvariants},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := open(t)
			t.Cleanup(func() { _ = s.Close() })
			tt.fn(t, s)
		})
	}
}

// Date returns noon UTC on the given day.
func Date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 12, 0, 0, 0, time.UTC)
}

// Scenario is the three-record dataset used across the test suites.
func Scenario() []core.Transaction {
	return []core.Transaction{
		{ID: 1, Title: "Shirt", Description: "cotton", Price: 50, DateOfSale: Date(2022, 3, 2), Category: "A", Sold: true},
		{ID: 2, Title: "Jacket", Description: "wool", Price: 150, DateOfSale: Date(2021, 3, 20), Category: "B", Sold: false},
		{ID: 3, Title: "Hat", Description: "straw", Price: 50, DateOfSale: Date(2022, 4, 1), Category: "A", Sold: true},
	}
}

// Fake generates n deterministic random transactions with ids 1..n.
func Fake(seed int64, n int) []core.Transaction {
	f := gofakeit.New(seed)
	start, end := Date(2020, 1, 1), Date(2023, 12, 31)
	txs := make([]core.Transaction, n)
	for i := range txs {
		txs[i] = core.Transaction{
			ID:          int64(i + 1),
			Title:       f.Sentence(3),
			Description: f.Sentence(10),
			Price:       f.Price(0, 1500),
			DateOfSale:  f.DateRange(start, end).UTC(),
			Category:    f.RandomString(Categories),
			Sold:        f.Bool(),
		}
	}
	return txs
}

func mustReplace(t *testing.T, s ports.Store, txs []core.Transaction) {
	t.Helper()
	n, err := s.ReplaceAll(context.Background(), txs)
	if err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	if n != len(txs) {
		t.Fatalf("ReplaceAll inserted %d, want %d", n, len(txs))
	}
}

func ids(txs []core.Transaction) []int64 {
	out := make([]int64, len(txs))
	for i, tx := range txs {
		out[i] = tx.ID
	}
	return out
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func testScenario(t *testing.T, s ports.Store) {
	ctx := context.Background()
	mustReplace(t, s, Scenario())

	stats, err := s.Statistics(ctx, 3)
	if err != nil {
		t.Fatalf("Statistics: %v", err)
	}
	if stats != (core.Statistics{TotalSales: 200, SoldCount: 1, UnsoldCount: 1}) {
		t.Fatalf("unexpected statistics: %+v", stats)
	}

	buckets, err := s.PriceBuckets(ctx, 3)
	if err != nil {
		t.Fatalf("PriceBuckets: %v", err)
	}
	full := core.CompleteBuckets(buckets)
	for _, b := range full {
		want := int64(0)
		if b.ID == "0-100" || b.ID == "100-200" {
			want = 1
		}
		if b.Count != want {
			t.Fatalf("bucket %s = %d, want %d", b.ID, b.Count, want)
		}
	}

	cats, err := s.CategoryCounts(ctx, 3)
	if err != nil {
		t.Fatalf("CategoryCounts: %v", err)
	}
	want := []core.CategoryCount{{ID: "A", Count: 1}, {ID: "B", Count: 1}}
	if len(cats) != len(want) || cats[0] != want[0] || cats[1] != want[1] {
		t.Fatalf("unexpected categories: %+v", cats)
	}

	april, err := s.Statistics(ctx, 4)
	if err != nil {
		t.Fatalf("Statistics: %v", err)
	}
	if april != (core.Statistics{TotalSales: 50, SoldCount: 1}) {
		t.Fatalf("unexpected april statistics: %+v", april)
	}

	all, err := s.Statistics(ctx, core.NoMonth)
	if err != nil {
		t.Fatalf("Statistics: %v", err)
	}
	if all != (core.Statistics{TotalSales: 250, SoldCount: 2, UnsoldCount: 1}) {
		t.Fatalf("unexpected all-month statistics: %+v", all)
	}
}

func testEmptyStore(t *testing.T, s ports.Store) {
	ctx := context.Background()
	stats, err := s.Statistics(ctx, 5)
	if err != nil {
		t.Fatalf("Statistics: %v", err)
	}
	if stats != (core.Statistics{}) {
		t.Fatalf("expected zero statistics, got %+v", stats)
	}
	buckets, err := s.PriceBuckets(ctx, 5)
	if err != nil || len(buckets) != 0 {
		t.Fatalf("expected no buckets, got %+v (err=%v)", buckets, err)
	}
	cats, err := s.CategoryCounts(ctx, 5)
	if err != nil || len(cats) != 0 {
		t.Fatalf("expected no categories, got %+v (err=%v)", cats, err)
	}
	page, err := s.ListTransactions(ctx, core.ListQuery{})
	if err != nil || len(page.Items) != 0 || page.Total != 0 {
		t.Fatalf("expected empty page, got %+v (err=%v)", page, err)
	}
	if n, err := s.Count(ctx); err != nil || n != 0 {
		t.Fatalf("expected count 0, got %d (err=%v)", n, err)
	}
}

func testPagination(t *testing.T, s ports.Store) {
	ctx := context.Background()
	txs := Fake(7, 25)
	mustReplace(t, s, txs)

	first, err := s.ListTransactions(ctx, core.ListQuery{Page: 1, PerPage: 10})
	if err != nil {
		t.Fatalf("page 1: %v", err)
	}
	second, err := s.ListTransactions(ctx, core.ListQuery{Page: 2, PerPage: 10})
	if err != nil {
		t.Fatalf("page 2: %v", err)
	}
	third, err := s.ListTransactions(ctx, core.ListQuery{Page: 3, PerPage: 10})
	if err != nil {
		t.Fatalf("page 3: %v", err)
	}

	if !equalIDs(ids(first.Items), ids(txs[:10])) {
		t.Fatalf("page 1 ids = %v", ids(first.Items))
	}
	if !equalIDs(ids(second.Items), ids(txs[10:20])) {
		t.Fatalf("page 2 ids = %v", ids(second.Items))
	}
	if !equalIDs(ids(third.Items), ids(txs[20:])) {
		t.Fatalf("page 3 ids = %v", ids(third.Items))
	}
	for _, p := range []core.TransactionPage{first, second, third} {
		if p.Total != 25 {
			t.Fatalf("expected total 25, got %d", p.Total)
		}
	}

	beyond, err := s.ListTransactions(ctx, core.ListQuery{Page: 9, PerPage: 10})
	if err != nil || len(beyond.Items) != 0 {
		t.Fatalf("expected empty page past the end, got %d items (err=%v)", len(beyond.Items), err)
	}

	defaults, err := s.ListTransactions(ctx, core.ListQuery{})
	if err != nil || len(defaults.Items) != core.DefaultPerPage {
		t.Fatalf("expected default page size, got %d (err=%v)", len(defaults.Items), err)
	}
}

func testSearch(t *testing.T, s ports.Store) {
	ctx := context.Background()
	mustReplace(t, s, []core.Transaction{
		{ID: 1, Title: "Widget", Description: "plain", Price: 10, DateOfSale: Date(2022, 1, 5), Category: "x"},
		{ID: 2, Title: "Gadget", Description: "a WIDGET holder", Price: 20, DateOfSale: Date(2022, 2, 5), Category: "x"},
		{ID: 3, Title: "Thing", Description: "other", Price: 329.85, DateOfSale: Date(2022, 1, 5), Category: "x"},
		{ID: 4, Title: "École bag", Description: "CUIR ÉPAIS", Price: 150, DateOfSale: Date(2022, 5, 5), Category: "x"},
	})

	tests := []struct {
		search string
		month  core.Month
		want   []int64
	}{
		{"widget", 0, []int64{1, 2}},
		{"WiDgEt", 0, []int64{1, 2}},
		{"widget", 1, []int64{1}},
		{"329.8", 0, []int64{3}},
		{"nothing", 0, []int64{}},
		{"", 1, []int64{1, 3}},
		{"École", 0, []int64{4}},
		{"école", 0, []int64{4}},
		{"ÉCOLE", 0, []int64{4}},
		{"cuir épais", 0, []int64{4}},
		{"150", 0, []int64{4}},
		{"150.0", 0, []int64{}},
		{".0", 0, []int64{}},
	}
	for _, tt := range tests {
		page, err := s.ListTransactions(ctx, core.ListQuery{Search: tt.search, Month: tt.month})
		if err != nil {
			t.Fatalf("search %q: %v", tt.search, err)
		}
		if !equalIDs(ids(page.Items), tt.want) {
			t.Fatalf("search %q month %d = %v, want %v", tt.search, tt.month, ids(page.Items), tt.want)
		}
		if page.Total != int64(len(tt.want)) {
			t.Fatalf("search %q total = %d, want %d", tt.search, page.Total, len(tt.want))
		}
	}
}

func testSearchLiteral(t *testing.T, s ports.Store) {
	ctx := context.Background()
	mustReplace(t, s, []core.Transaction{
		{ID: 1, Title: "100% cotton", Price: 10, DateOfSale: Date(2022, 1, 5)},
		{ID: 2, Title: "snake_case", Price: 10, DateOfSale: Date(2022, 1, 5)},
		{ID: 3, Title: "plain", Price: 10, DateOfSale: Date(2022, 1, 5)},
	})

	for search, want := range map[string][]int64{
		"%":  {1},
		"_":  {2},
		".*": {},
		"(":  {},
	} {
		page, err := s.ListTransactions(ctx, core.ListQuery{Search: search})
		if err != nil {
			t.Fatalf("search %q: %v", search, err)
		}
		if !equalIDs(ids(page.Items), want) {
			t.Fatalf("search %q = %v, want %v", search, ids(page.Items), want)
		}
	}
}

func testMonthIgnoresYear(t *testing.T, s ports.Store) {
	ctx := context.Background()
	ist := time.FixedZone("IST", 5*3600+1800)
	mustReplace(t, s, []core.Transaction{
		{ID: 1, Price: 1, DateOfSale: Date(2019, 6, 1)},
		{ID: 2, Price: 2, DateOfSale: Date(2022, 6, 30)},
		{ID: 3, Price: 4, DateOfSale: Date(2022, 7, 1)},
		// 1 July 02:00 in India is still 30 June in UTC.
		{ID: 4, Price: 8, DateOfSale: time.Date(2021, 7, 1, 2, 0, 0, 0, ist)},
	})

	stats, err := s.Statistics(ctx, 6)
	if err != nil {
		t.Fatalf("Statistics: %v", err)
	}
	if stats.TotalSales != 11 || stats.UnsoldCount != 3 {
		t.Fatalf("unexpected june statistics: %+v", stats)
	}
	page, err := s.ListTransactions(ctx, core.ListQuery{Month: 7})
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if !equalIDs(ids(page.Items), []int64{3}) {
		t.Fatalf("july ids = %v", ids(page.Items))
	}
}

func testCategoriesVerbatim(t *testing.T, s ports.Store) {
	ctx := context.Background()
	mustReplace(t, s, []core.Transaction{
		{ID: 1, Price: 1, DateOfSale: Date(2022, 1, 1), Category: "electronics"},
		{ID: 2, Price: 1, DateOfSale: Date(2022, 1, 1), Category: "Electronics"},
		{ID: 3, Price: 1, DateOfSale: Date(2022, 1, 1), Category: " electronics"},
		{ID: 4, Price: 1, DateOfSale: Date(2022, 1, 1), Category: "electronics"},
	})

	cats, err := s.CategoryCounts(ctx, 1)
	if err != nil {
		t.Fatalf("CategoryCounts: %v", err)
	}
	want := []core.CategoryCount{{ID: " electronics", Count: 1}, {ID: "Electronics", Count: 1}, {ID: "electronics", Count: 2}}
	if len(cats) != len(want) {
		t.Fatalf("unexpected categories: %+v", cats)
	}
	for i := range want {
		if cats[i] != want[i] {
			t.Fatalf("category %d = %+v, want %+v", i, cats[i], want[i])
		}
	}
}

func testReplaceIsFullReplace(t *testing.T, s ports.Store) {
	ctx := context.Background()
	mustReplace(t, s, Fake(1, 30))
	mustReplace(t, s, Scenario())

	n, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != int64(len(Scenario())) {
		t.Fatalf("expected %d records after replace, got %d", len(Scenario()), n)
	}
}

func testReplaceIdempotent(t *testing.T, s ports.Store) {
	ctx := context.Background()
	data := Fake(3, 40)
	mustReplace(t, s, data)
	once, err := s.ListTransactions(ctx, core.ListQuery{PerPage: core.MaxPerPage})
	if err != nil {
		t.Fatalf("list after first replace: %v", err)
	}
	mustReplace(t, s, data)
	twice, err := s.ListTransactions(ctx, core.ListQuery{PerPage: core.MaxPerPage})
	if err != nil {
		t.Fatalf("list after second replace: %v", err)
	}
	if !equalIDs(ids(once.Items), ids(twice.Items)) || once.Total != twice.Total {
		t.Fatalf("replace is not idempotent: %v vs %v", ids(once.Items), ids(twice.Items))
	}
}

func testAggregateInvariants(t *testing.T, s ports.Store) {
	ctx := context.Background()
	data := Fake(42, 300)
	mustReplace(t, s, data)

	for m := core.Month(1); m <= 12; m++ {
		var (
			count int64
			sum   float64
		)
		for _, tx := range data {
			if m.Matches(tx.DateOfSale) {
				count++
				sum += tx.Price
			}
		}

		stats, err := s.Statistics(ctx, m)
		if err != nil {
			t.Fatalf("Statistics(%d): %v", m, err)
		}
		if math.Abs(stats.TotalSales-sum) > 1e-6*float64(count+1) {
			t.Fatalf("month %d: totalSales %v, want %v", m, stats.TotalSales, sum)
		}
		if stats.SoldCount+stats.UnsoldCount != count {
			t.Fatalf("month %d: sold+unsold = %d, want %d", m, stats.SoldCount+stats.UnsoldCount, count)
		}

		buckets, err := s.PriceBuckets(ctx, m)
		if err != nil {
			t.Fatalf("PriceBuckets(%d): %v", m, err)
		}
		var bucketTotal int64
		for _, b := range buckets {
			bucketTotal += b.Count
		}
		if bucketTotal != count {
			t.Fatalf("month %d: bucket total %d, want %d", m, bucketTotal, count)
		}

		cats, err := s.CategoryCounts(ctx, m)
		if err != nil {
			t.Fatalf("CategoryCounts(%d): %v", m, err)
		}
		var catTotal int64
		seen := map[string]bool{}
		for _, c := range cats {
			if seen[c.ID] {
				t.Fatalf("month %d: category %q repeated", m, c.ID)
			}
			seen[c.ID] = true
			catTotal += c.Count
		}
		if catTotal != count {
			t.Fatalf("month %d: category total %d, want %d", m, catTotal, count)
		}

		page, err := s.ListTransactions(ctx, core.ListQuery{Month: m})
		if err != nil {
			t.Fatalf("ListTransactions(%d): %v", m, err)
		}
		if page.Total != count {
			t.Fatalf("month %d: list total %d, want %d", m, page.Total, count)
		}
	}
}
