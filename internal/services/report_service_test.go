package services

import (
	"context"
	"errors"
	"testing"

	"txdash/internal/core"
	"txdash/internal/storage/memory"
	"txdash/internal/storage/storetest"
)

var errStore = errors.New("store unavailable")

// failingStore fails the named operation and delegates the rest.
type failingStore struct {
	*memory.Store
	failOn string
}

func (f failingStore) ListTransactions(ctx context.Context, q core.ListQuery) (core.TransactionPage, error) {
	if f.failOn == "list" {
		return core.TransactionPage{}, errStore
	}
	return f.Store.ListTransactions(ctx, q)
}

func (f failingStore) Statistics(ctx context.Context, m core.Month) (core.Statistics, error) {
	if f.failOn == "statistics" {
		return core.Statistics{}, errStore
	}
	return f.Store.Statistics(ctx, m)
}

func (f failingStore) PriceBuckets(ctx context.Context, m core.Month) ([]core.BucketCount, error) {
	if f.failOn == "buckets" {
		return nil, errStore
	}
	return f.Store.PriceBuckets(ctx, m)
}

func (f failingStore) CategoryCounts(ctx context.Context, m core.Month) ([]core.CategoryCount, error) {
	if f.failOn == "categories" {
		return nil, errStore
	}
	return f.Store.CategoryCounts(ctx, m)
}

func newScenarioService() *ReportService {
	return NewReportService(memory.New(storetest.Scenario()))
}

func TestReportService_Statistics(t *testing.T) {
	svc := newScenarioService()
	ctx := context.Background()

	tests := []struct {
		month core.Month
		want  core.Statistics
	}{
		{3, core.Statistics{TotalSales: 200, SoldCount: 1, UnsoldCount: 1}},
		{4, core.Statistics{TotalSales: 50, SoldCount: 1, UnsoldCount: 0}},
		{7, core.Statistics{}},
		{core.NoMonth, core.Statistics{TotalSales: 250, SoldCount: 2, UnsoldCount: 1}},
	}
	for _, tt := range tests {
		got, err := svc.Statistics(ctx, tt.month)
		if err != nil {
			t.Fatalf("Statistics(%d): %v", tt.month, err)
		}
		if got != tt.want {
			t.Errorf("Statistics(%d) = %+v, want %+v", tt.month, got, tt.want)
		}
	}
}

func TestReportService_BarChart(t *testing.T) {
	got, err := newScenarioService().BarChart(context.Background(), 3)
	if err != nil {
		t.Fatalf("BarChart: %v", err)
	}
	if len(got) != len(core.PriceBuckets) {
		t.Fatalf("len = %d, want %d", len(got), len(core.PriceBuckets))
	}
	want := map[string]int64{"0-100": 1, "100-200": 1}
	for i, b := range got {
		if b.ID != core.PriceBuckets[i].Label {
			t.Errorf("bucket %d = %q, want %q", i, b.ID, core.PriceBuckets[i].Label)
		}
		if b.Count != want[b.ID] {
			t.Errorf("bucket %s = %d, want %d", b.ID, b.Count, want[b.ID])
		}
	}
	if got[len(got)-1].ID != core.OpenBucketLabel {
		t.Errorf("last bucket = %q, want %q", got[len(got)-1].ID, core.OpenBucketLabel)
	}
}

func TestReportService_PieChart(t *testing.T) {
	svc := newScenarioService()
	got, err := svc.PieChart(context.Background(), 3)
	if err != nil {
		t.Fatalf("PieChart: %v", err)
	}
	want := []core.CategoryCount{{ID: "A", Count: 1}, {ID: "B", Count: 1}}
	if len(got) != len(want) {
		t.Fatalf("PieChart = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("PieChart[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}

	empty, err := svc.PieChart(context.Background(), 12)
	if err != nil {
		t.Fatalf("PieChart(12): %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("PieChart(12) = %#v, want empty non-nil slice", empty)
	}
}

func TestReportService_Combined(t *testing.T) {
	svc := newScenarioService()
	ctx := context.Background()

	got, err := svc.Combined(ctx, 3)
	if err != nil {
		t.Fatalf("Combined: %v", err)
	}
	stats, _ := svc.Statistics(ctx, 3)
	bars, _ := svc.BarChart(ctx, 3)
	pie, _ := svc.PieChart(ctx, 3)

	if got.Statistics != stats {
		t.Errorf("statistics = %+v, want %+v", got.Statistics, stats)
	}
	if len(got.BarChart) != len(bars) || len(got.PieChart) != len(pie) {
		t.Errorf("combined = %+v", got)
	}
	for i := range bars {
		if got.BarChart[i] != bars[i] {
			t.Errorf("barChart[%d] = %+v, want %+v", i, got.BarChart[i], bars[i])
		}
	}
}

func TestReportService_CombinedFailsAsAWhole(t *testing.T) {
	for _, failOn := range []string{"statistics", "buckets", "categories"} {
		t.Run(failOn, func(t *testing.T) {
			svc := NewReportService(failingStore{Store: memory.New(storetest.Scenario()), failOn: failOn})
			got, err := svc.Combined(context.Background(), 3)
			if !errors.Is(err, errStore) {
				t.Fatalf("error = %v, want errStore", err)
			}
			if got.BarChart != nil || got.PieChart != nil || got.Statistics != (core.Statistics{}) {
				t.Errorf("partial result returned: %+v", got)
			}
		})
	}
}

func TestReportService_InvalidMonth(t *testing.T) {
	svc := newScenarioService()
	ctx := context.Background()

	if _, err := svc.Statistics(ctx, 13); !errors.Is(err, core.ErrInvalidMonth) {
		t.Errorf("Statistics(13) error = %v", err)
	}
	if _, err := svc.BarChart(ctx, -1); !errors.Is(err, core.ErrInvalidMonth) {
		t.Errorf("BarChart(-1) error = %v", err)
	}
	if _, err := svc.Combined(ctx, 99); !errors.Is(err, core.ErrInvalidMonth) {
		t.Errorf("Combined(99) error = %v", err)
	}
}

func TestReportService_List(t *testing.T) {
	svc := NewReportService(memory.New(storetest.Fake(7, 25)))
	ctx := context.Background()

	page, err := svc.List(ctx, core.ListQuery{Page: 3, PerPage: 10})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Total != 25 || len(page.Items) != 5 {
		t.Errorf("page 3 = %d items of %d, want 5 of 25", len(page.Items), page.Total)
	}
	if page.Items[0].ID != 21 {
		t.Errorf("first id = %d, want 21", page.Items[0].ID)
	}

	page, err = svc.List(ctx, core.ListQuery{Page: 9})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Items == nil || len(page.Items) != 0 {
		t.Errorf("past the end = %#v, want empty non-nil slice", page.Items)
	}

	failing := NewReportService(failingStore{Store: memory.New(nil), failOn: "list"})
	if _, err := failing.List(ctx, core.ListQuery{}); !errors.Is(err, errStore) {
		t.Errorf("error = %v, want errStore", err)
	}
}
