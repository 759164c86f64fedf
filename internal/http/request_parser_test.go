package http

import (
	"errors"
	"net/url"
	"strings"
	"testing"

	"txdash/internal/core"
)

func TestParseMonthParam(t *testing.T) {
	tests := []struct {
		raw     string
		want    core.Month
		wantErr bool
	}{
		{"", core.NoMonth, false},
		{"month=", core.NoMonth, false},
		{"month=3", 3, false},
		{"month=%2012%20", 12, false},
		{"month=0", core.NoMonth, true},
		{"month=13", core.NoMonth, true},
		{"month=-1", core.NoMonth, true},
		{"month=March", core.NoMonth, true},
		{"month=3.5", core.NoMonth, true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			q, _ := url.ParseQuery(tt.raw)
			got, err := ParseMonthParam(q)
			if tt.wantErr {
				if !errors.Is(err, core.ErrInvalidMonth) {
					t.Fatalf("error = %v, want ErrInvalidMonth", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("month = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseListQuery(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want core.ListQuery
	}{
		{"defaults", "", core.ListQuery{Page: 1, PerPage: 10}},
		{"explicit", "page=2&perPage=5&search=shirt&month=3", core.ListQuery{Page: 2, PerPage: 5, Search: "shirt", Month: 3}},
		{"garbage numbers fall back", "page=abc&perPage=-4", core.ListQuery{Page: 1, PerPage: 10}},
		{"zero page", "page=0", core.ListQuery{Page: 1, PerPage: 10}},
		{"perPage capped", "perPage=5000", core.ListQuery{Page: 1, PerPage: core.MaxPerPage}},
		{"search trimmed", "search=%20%20hat%09%20", core.ListQuery{Page: 1, PerPage: 10, Search: "hat"}},
		{"control chars dropped", "search=a%00b%1Fc", core.ListQuery{Page: 1, PerPage: 10, Search: "abc"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, _ := url.ParseQuery(tt.raw)
			got, err := ParseListQuery(q)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseListQuery(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}

	q, _ := url.ParseQuery("month=44")
	if _, err := ParseListQuery(q); !errors.Is(err, core.ErrInvalidMonth) {
		t.Errorf("bad month error = %v", err)
	}
}

func TestParseListQueryLongSearch(t *testing.T) {
	q := url.Values{"search": {strings.Repeat("é", maxSearchLen)}}
	got, err := ParseListQuery(q)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Search) > maxSearchLen {
		t.Errorf("search length = %d, want <= %d", len(got.Search), maxSearchLen)
	}
	if !strings.HasPrefix(strings.Repeat("é", maxSearchLen), got.Search) || got.Search == "" {
		t.Error("truncation split a rune")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly", 7, "exactly"},
		{"abcdef", 3, "abc"},
		{"aéb", 2, "a"},
		{"aéb", 3, "aé"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
