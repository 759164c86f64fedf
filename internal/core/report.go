package core

// ListQuery describes one page of the transaction listing.
type ListQuery struct {
	Page    int
	PerPage int
	Search  string
	Month   Month
}

const (
	DefaultPage    = 1
	DefaultPerPage = 10
	MaxPerPage     = 100
)

// Normalize fills defaults and clamps the page size.
func (q ListQuery) Normalize() ListQuery {
	if q.Page < 1 {
		q.Page = DefaultPage
	}
	if q.PerPage < 1 {
		q.PerPage = DefaultPerPage
	}
	if q.PerPage > MaxPerPage {
		q.PerPage = MaxPerPage
	}
	return q
}

// Offset is the number of matching rows skipped before the page.
func (q ListQuery) Offset() int {
	return (q.Page - 1) * q.PerPage
}

// TransactionPage is one page of results plus the total number of matches.
type TransactionPage struct {
	Items []Transaction
	Total int64
}

type (
	Statistics struct {
		TotalSales  float64 `json:"totalSales"`
		SoldCount   int64   `json:"soldCount"`
		UnsoldCount int64   `json:"unsoldCount"`
	}

	// BucketCount is one bar chart bin, keyed by its label.
	BucketCount struct {
		ID    string `json:"_id"`
		Count int64  `json:"count"`
	}

	// CategoryCount is one pie chart slice, keyed by the category verbatim.
	CategoryCount struct {
		ID    string `json:"_id"`
		Count int64  `json:"count"`
	}

	CombinedReport struct {
		Statistics Statistics      `json:"statistics"`
		BarChart   []BucketCount   `json:"barChart"`
		PieChart   []CategoryCount `json:"pieChart"`
	}
)

// CompleteBuckets returns every price bucket in order, taking counts from
// partial and zero for the rest. Unknown labels are ignored.
func CompleteBuckets(partial []BucketCount) []BucketCount {
	counts := make(map[string]int64, len(partial))
	for _, b := range partial {
		counts[b.ID] += b.Count
	}
	out := make([]BucketCount, len(PriceBuckets))
	for i, b := range PriceBuckets {
		out[i] = BucketCount{ID: b.Label, Count: counts[b.Label]}
	}
	return out
}
