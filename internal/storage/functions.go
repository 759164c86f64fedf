package storage

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"modernc.org/sqlite"

	"txdash/internal/core"
	"txdash/internal/storage/filter"
)

// SQLite's LOWER only folds ASCII and CAST(real AS TEXT) prints "150.0",
// so search goes through Go for both to agree with the memory store.
func init() {
	sqlite.MustRegisterDeterministicScalarFunction(filter.SQLiteLowerFunc, 1, lowerFunc)
	sqlite.MustRegisterDeterministicScalarFunction(filter.SQLitePriceTextFunc, 1, priceTextFunc)
}

func lowerFunc(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case nil:
		return nil, nil
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return strings.ToLower(fmt.Sprint(v)), nil
	}
}

func priceTextFunc(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case nil:
		return nil, nil
	case float64:
		return core.PriceString(v), nil
	case int64:
		return core.PriceString(float64(v)), nil
	default:
		return nil, fmt.Errorf("%s: unexpected argument type %T", filter.SQLitePriceTextFunc, v)
	}
}
