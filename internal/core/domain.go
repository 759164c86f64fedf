package core

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

type (
	// Month is a calendar month filter. Zero means "any month".
	Month int

	Transaction struct {
		ID          int64     `json:"id"`
		Title       string    `json:"title"`
		Description string    `json:"description"`
		Price       float64   `json:"price"`
		DateOfSale  time.Time `json:"dateOfSale"`
		Category    string    `json:"category"`
		Sold        bool      `json:"sold"`
		Image       string    `json:"image,omitempty"`
	}
)

const NoMonth Month = 0

var (
	ErrInvalidMonth = errors.New("invalid month")
	ErrInvalidPrice = errors.New("invalid price")
	ErrInvalidDate  = errors.New("invalid date of sale")
)

// ParseMonth parses a 1-12 month query value. An empty value yields NoMonth.
func ParseMonth(s string) (Month, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return NoMonth, nil
	}
	m, err := strconv.Atoi(s)
	if err != nil {
		return NoMonth, ErrInvalidMonth
	}
	if m < 1 || m > 12 {
		return NoMonth, ErrInvalidMonth
	}
	return Month(m), nil
}

func (m Month) Validate() error {
	if m < 0 || m > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// IsSet reports whether the month restricts results.
func (m Month) IsSet() bool {
	return m >= 1 && m <= 12
}

// Matches reports whether t falls in the month, in UTC, for any year.
func (m Month) Matches(t time.Time) bool {
	if !m.IsSet() {
		return true
	}
	return int(t.UTC().Month()) == int(m)
}

func (t Transaction) Validate() error {
	if t.DateOfSale.IsZero() {
		return ErrInvalidDate
	}
	if math.IsNaN(t.Price) || math.IsInf(t.Price, 0) || t.Price < 0 {
		return ErrInvalidPrice
	}
	return nil
}

// Month returns the UTC calendar month of the sale.
func (t Transaction) Month() Month {
	return Month(t.DateOfSale.UTC().Month())
}

// MatchesSearch reports whether needle occurs, ignoring case, in the title,
// the description or the decimal form of the price. An empty needle matches.
func (t Transaction) MatchesSearch(needle string) bool {
	if needle == "" {
		return true
	}
	needle = strings.ToLower(needle)
	return strings.Contains(strings.ToLower(t.Title), needle) ||
		strings.Contains(strings.ToLower(t.Description), needle) ||
		strings.Contains(PriceString(t.Price), needle)
}
