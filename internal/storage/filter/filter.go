// Package filter builds the parameterized WHERE clauses and bucket
// expressions shared by the SQL store backends.
package filter

import (
	"strconv"
	"strings"

	"txdash/internal/core"
)

// Dialect captures the few places where the SQL backends differ.
type Dialect struct {
	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder func(n int) string
	// MonthExpr extracts the UTC calendar month (1-12) from date_of_sale.
	MonthExpr string
	// PriceText renders price as text for substring search.
	PriceText string
	// CaseInsensitiveLike is the case-insensitive pattern match of a column.
	CaseInsensitiveLike func(column, placeholder string) string
}

// Names of the scalar functions the SQLite store registers with the driver.
const (
	SQLiteLowerFunc     = "go_lower"
	SQLitePriceTextFunc = "go_price_text"
)

var SQLite = Dialect{
	Placeholder: func(int) string { return "?" },
	MonthExpr:   "CAST(strftime('%m', date_of_sale) AS INTEGER)",
	PriceText:   SQLitePriceTextFunc + "(price)",
	CaseInsensitiveLike: func(column, placeholder string) string {
		return SQLiteLowerFunc + "(" + column + ") LIKE " + placeholder + ` ESCAPE '\'`
	},
}

var Postgres = Dialect{
	Placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	MonthExpr:   "EXTRACT(MONTH FROM date_of_sale AT TIME ZONE 'UTC')::int",
	PriceText:   "price::text",
	CaseInsensitiveLike: func(column, placeholder string) string {
		return column + " ILIKE " + placeholder + ` ESCAPE '\'`
	},
}

// Where is a WHERE clause (including the keyword, or empty) and its args.
type Where struct {
	SQL  string
	Args []any
}

// Month restricts rows to a calendar month when one is set.
func (d Dialect) Month(month core.Month) Where {
	return d.build(month, "")
}

// List restricts rows by month and search text.
func (d Dialect) List(q core.ListQuery) Where {
	return d.build(q.Month, q.Search)
}

func (d Dialect) build(month core.Month, search string) Where {
	var (
		clauses []string
		args    []any
	)
	next := func(v any) string {
		args = append(args, v)
		return d.Placeholder(len(args))
	}

	if month.IsSet() {
		clauses = append(clauses, d.MonthExpr+" = "+next(int(month)))
	}
	if search != "" {
		pattern := LikePattern(search)
		clauses = append(clauses, "("+
			d.CaseInsensitiveLike("title", next(pattern))+" OR "+
			d.CaseInsensitiveLike("description", next(pattern))+" OR "+
			d.CaseInsensitiveLike(d.PriceText, next(pattern))+")")
	}
	if len(clauses) == 0 {
		return Where{}
	}
	return Where{SQL: "WHERE " + strings.Join(clauses, " AND "), Args: args}
}

// LikePattern turns user text into a lower-cased substring pattern with the
// LIKE metacharacters escaped by a backslash.
func LikePattern(search string) string {
	var b strings.Builder
	b.Grow(len(search) + 2)
	b.WriteByte('%')
	for _, r := range strings.ToLower(search) {
		switch r {
		case '\\', '%', '_':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('%')
	return b.String()
}

// BucketCase is a CASE expression labelling price with its bar chart bucket.
func BucketCase() string {
	var b strings.Builder
	b.WriteString("CASE")
	for _, bucket := range core.PriceBuckets {
		if bucket.IsOpen() {
			continue
		}
		b.WriteString(" WHEN price >= ")
		b.WriteString(core.PriceString(bucket.Lower))
		b.WriteString(" AND price < ")
		b.WriteString(core.PriceString(bucket.Upper))
		b.WriteString(" THEN '")
		b.WriteString(bucket.Label)
		b.WriteString("'")
	}
	b.WriteString(" ELSE '")
	b.WriteString(core.OpenBucketLabel)
	b.WriteString("' END")
	return b.String()
}
