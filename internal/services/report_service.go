package services

import (
	"context"
	"fmt"

	"txdash/internal/core"
	"txdash/internal/ports"
)

// ReportStore is the read side a ReportService needs.
type ReportStore interface {
	ports.TransactionLister
	ports.ReportReader
}

// ReportService answers the dashboard queries. Every method is a pure
// read: it returns a value and never touches the response.
type ReportService struct {
	store ReportStore
}

func NewReportService(store ReportStore) *ReportService {
	return &ReportService{store: store}
}

// List returns one page of transactions matching q.
func (s *ReportService) List(ctx context.Context, q core.ListQuery) (core.TransactionPage, error) {
	q = q.Normalize()
	page, err := s.store.ListTransactions(ctx, q)
	if err != nil {
		return core.TransactionPage{}, fmt.Errorf("list transactions (page=%d perPage=%d): %w", q.Page, q.PerPage, err)
	}
	if page.Items == nil {
		page.Items = []core.Transaction{}
	}
	return page, nil
}

func (s *ReportService) Statistics(ctx context.Context, month core.Month) (core.Statistics, error) {
	if err := month.Validate(); err != nil {
		return core.Statistics{}, err
	}
	stats, err := s.store.Statistics(ctx, month)
	if err != nil {
		return core.Statistics{}, fmt.Errorf("statistics: %w", err)
	}
	return stats, nil
}

// BarChart returns all ten price buckets in ascending order, zeros included.
func (s *ReportService) BarChart(ctx context.Context, month core.Month) ([]core.BucketCount, error) {
	if err := month.Validate(); err != nil {
		return nil, err
	}
	partial, err := s.store.PriceBuckets(ctx, month)
	if err != nil {
		return nil, fmt.Errorf("bar chart: %w", err)
	}
	return core.CompleteBuckets(partial), nil
}

// PieChart returns one entry per category present in the month.
func (s *ReportService) PieChart(ctx context.Context, month core.Month) ([]core.CategoryCount, error) {
	if err := month.Validate(); err != nil {
		return nil, err
	}
	counts, err := s.store.CategoryCounts(ctx, month)
	if err != nil {
		return nil, fmt.Errorf("pie chart: %w", err)
	}
	if counts == nil {
		counts = []core.CategoryCount{}
	}
	return counts, nil
}

// Combined runs the three reports in sequence. The first failure aborts
// the call; there is no partial result.
func (s *ReportService) Combined(ctx context.Context, month core.Month) (core.CombinedReport, error) {
	stats, err := s.Statistics(ctx, month)
	if err != nil {
		return core.CombinedReport{}, fmt.Errorf("combined: %w", err)
	}
	bars, err := s.BarChart(ctx, month)
	if err != nil {
		return core.CombinedReport{}, fmt.Errorf("combined: %w", err)
	}
	pie, err := s.PieChart(ctx, month)
	if err != nil {
		return core.CombinedReport{}, fmt.Errorf("combined: %w", err)
	}
	return core.CombinedReport{
		Statistics: stats,
		BarChart:   bars,
		PieChart:   pie,
	}, nil
}
