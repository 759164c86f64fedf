// Package seed fetches and decodes the upstream transaction dataset.
package seed

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"txdash/internal/core"
)

// Record is one element of the upstream JSON array. Prices and dates
// stay raw so that one malformed record does not fail the whole decode.
type Record struct {
	ID          int64       `json:"id"`
	Title       string      `json:"title"`
	Price       json.Number `json:"price"`
	Description string      `json:"description"`
	Category    string      `json:"category"`
	Image       string      `json:"image"`
	Sold        bool        `json:"sold"`
	DateOfSale  string      `json:"dateOfSale"`
}

// Decode reads a JSON array of records.
func Decode(r io.Reader) ([]Record, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var records []Record
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}
	return records, nil
}

// dateLayouts are tried in order; the upstream file uses RFC 3339 with a
// zone offset.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", core.ErrInvalidDate, s)
}

// Transaction converts the record and validates it.
func (r Record) Transaction() (core.Transaction, error) {
	price, err := r.Price.Float64()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: %q", core.ErrInvalidPrice, r.Price)
	}
	date, err := parseDate(r.DateOfSale)
	if err != nil {
		return core.Transaction{}, err
	}
	tx := core.Transaction{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Price:       price,
		DateOfSale:  date,
		Category:    r.Category,
		Sold:        r.Sold,
		Image:       r.Image,
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

// ErrDuplicateID marks a record whose id was already used earlier in the
// dataset.
var ErrDuplicateID = errors.New("duplicate transaction id")

// Invalid describes a record that was dropped during conversion.
type Invalid struct {
	Index int
	ID    int64
	Err   error
}

// Transactions converts every valid record and reports the rest. The
// first record with a given non-zero id wins.
func Transactions(records []Record) ([]core.Transaction, []Invalid) {
	txs := make([]core.Transaction, 0, len(records))
	seen := make(map[int64]struct{}, len(records))
	var invalid []Invalid
	for i, r := range records {
		tx, err := r.Transaction()
		if err == nil && tx.ID != 0 {
			if _, dup := seen[tx.ID]; dup {
				err = fmt.Errorf("%w: %d", ErrDuplicateID, tx.ID)
			}
			seen[tx.ID] = struct{}{}
		}
		if err != nil {
			invalid = append(invalid, Invalid{Index: i, ID: r.ID, Err: err})
			continue
		}
		txs = append(txs, tx)
	}
	return txs, invalid
}
