// This file parses and validates query parameters.

package http

import (
	"net/url"
	"strconv"
	"strings"

	"txdash/internal/core"
)

// maxSearchLen bounds the search term passed to the store.
const maxSearchLen = 200

// ParseMonthParam reads the optional "month" parameter. An absent or empty
// value means no month filter; anything other than 1-12 is an error.
func ParseMonthParam(q url.Values) (core.Month, error) {
	return core.ParseMonth(q.Get("month"))
}

// ParseListQuery reads page, perPage, search and month. Page and perPage
// fall back to their defaults when missing or not positive integers, and
// perPage is capped; only month is strict.
func ParseListQuery(q url.Values) (core.ListQuery, error) {
	month, err := ParseMonthParam(q)
	if err != nil {
		return core.ListQuery{}, err
	}

	search := sanitizeInput(q.Get("search"))
	if len(search) > maxSearchLen {
		search = truncate(search, maxSearchLen)
	}

	lq := core.ListQuery{
		Page:    positiveInt(q.Get("page")),
		PerPage: positiveInt(q.Get("perPage")),
		Search:  search,
		Month:   month,
	}
	return lq.Normalize(), nil
}

// positiveInt returns the parsed value, or 0 when s is not a positive integer.
func positiveInt(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0
	}
	return n
}

// sanitizeInput drops control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s)
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := 0
	for i := range s {
		if i > n {
			break
		}
		cut = i
	}
	return s[:cut]
}
