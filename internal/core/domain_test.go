package core

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestParseMonth(t *testing.T) {
	cases := []struct {
		in   string
		want Month
		err  error
	}{
		{"", NoMonth, nil},
		{"  ", NoMonth, nil},
		{"1", 1, nil},
		{" 12 ", 12, nil},
		{"0", NoMonth, ErrInvalidMonth},
		{"13", NoMonth, ErrInvalidMonth},
		{"-1", NoMonth, ErrInvalidMonth},
		{"march", NoMonth, ErrInvalidMonth},
		{"3.5", NoMonth, ErrInvalidMonth},
	}
	for _, tc := range cases {
		got, err := ParseMonth(tc.in)
		if !errors.Is(err, tc.err) {
			t.Fatalf("%q: expected err %v, got %v", tc.in, tc.err, err)
		}
		if got != tc.want {
			t.Fatalf("%q: expected %d, got %d", tc.in, tc.want, got)
		}
	}
}

func TestMonthMatchesAnyYearInUTC(t *testing.T) {
	march := Month(3)
	if !march.Matches(time.Date(2021, 3, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected March 2021 to match")
	}
	if !march.Matches(time.Date(1999, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected March 1999 to match")
	}
	// 2022-04-01 02:00 +05:30 is still March 31st in UTC.
	ist := time.FixedZone("IST", 5*3600+1800)
	if !march.Matches(time.Date(2022, 4, 1, 2, 0, 0, 0, ist)) {
		t.Fatalf("expected month to be taken in UTC")
	}
	if march.Matches(time.Date(2021, 4, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("April must not match March")
	}
	if !NoMonth.Matches(time.Date(2021, 4, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("NoMonth must match everything")
	}
}

func TestTransactionValidate(t *testing.T) {
	day := time.Date(2021, 11, 27, 14, 59, 54, 0, time.UTC)
	good := Transaction{Title: "t", Price: 0, DateOfSale: day}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []struct {
		tx  Transaction
		err error
	}{
		{Transaction{Price: 1}, ErrInvalidDate},
		{Transaction{Price: -0.01, DateOfSale: day}, ErrInvalidPrice},
		{Transaction{Price: math.NaN(), DateOfSale: day}, ErrInvalidPrice},
		{Transaction{Price: math.Inf(1), DateOfSale: day}, ErrInvalidPrice},
	}
	for i, tc := range bads {
		if err := tc.tx.Validate(); !errors.Is(err, tc.err) {
			t.Fatalf("case %d expected %v, got %v", i, tc.err, err)
		}
	}
}

func TestTransactionMatchesSearch(t *testing.T) {
	tx := Transaction{Title: "Widget", Description: "A Blue gadget", Price: 329.85}
	cases := []struct {
		needle string
		want   bool
	}{
		{"", true},
		{"widget", true},
		{"WIDGET", true},
		{"blue", true},
		{"329.8", true},
		{"85", true},
		{"red", false},
		{".*", false},
	}
	for _, tc := range cases {
		if got := tx.MatchesSearch(tc.needle); got != tc.want {
			t.Fatalf("%q: expected %v, got %v", tc.needle, tc.want, got)
		}
	}
}
