// Package core holds the transaction domain model and the report shapes
// shared by every store backend.
//
// This file contains the price bucketing used by the bar chart.
package core

import (
	"strconv"
)

// PriceBucket is a half-open price range [Lower, Upper). Upper is zero for
// the open-ended catch-all bucket.
type PriceBucket struct {
	Label string
	Lower float64
	Upper float64
}

// PriceBuckets lists the bar chart bins in ascending order.
var PriceBuckets = []PriceBucket{
	{Label: "0-100", Lower: 0, Upper: 100},
	{Label: "100-200", Lower: 100, Upper: 200},
	{Label: "200-300", Lower: 200, Upper: 300},
	{Label: "300-400", Lower: 300, Upper: 400},
	{Label: "400-500", Lower: 400, Upper: 500},
	{Label: "500-600", Lower: 500, Upper: 600},
	{Label: "600-700", Lower: 600, Upper: 700},
	{Label: "700-800", Lower: 700, Upper: 800},
	{Label: "800-900", Lower: 800, Upper: 900},
	{Label: OpenBucketLabel, Lower: 900},
}

const OpenBucketLabel = "901+"

// IsOpen reports whether the bucket has no upper bound.
func (b PriceBucket) IsOpen() bool {
	return b.Upper == 0
}

// Contains reports whether price falls in the bucket.
func (b PriceBucket) Contains(price float64) bool {
	if price < b.Lower {
		return false
	}
	return b.IsOpen() || price < b.Upper
}

// BucketFor returns the label of the bucket holding price. Values below the
// first boundary fall into the catch-all, like the store-side CASE default.
func BucketFor(price float64) string {
	for _, b := range PriceBuckets {
		if b.Contains(price) {
			return b.Label
		}
	}
	return OpenBucketLabel
}

// PriceString renders a price the way search matches it: shortest decimal
// form, no exponent, no trailing zeros.
func PriceString(price float64) string {
	return strconv.FormatFloat(price, 'f', -1, 64)
}
