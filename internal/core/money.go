// Package core provides the transaction model shared by every component.
//
// This file contains amount and date parsing. Amounts travel as signed decimal
// strings and are parsed with shopspring/decimal so totals stay exact.
package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the ISO-8601 calendar date format used for Transaction.Date.
const DateLayout = "2006-01-02"

// ParseAmount parses a signed decimal string.
//
// Leading and trailing whitespace and an explicit leading "+" are accepted.
//
// Examples:
//
//	ParseAmount("-40.00") -> -40, nil
//	ParseAmount("+12.5")  -> 12.5, nil
//	ParseAmount("abc")    -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "+")
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return d, nil
}

// AmountOrZero parses s and falls back to zero on malformed input.
func AmountOrZero(s string) decimal.Decimal {
	d, err := ParseAmount(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// SignedAmount strips any sign from raw and returns it negated unless income is set.
// The digits are kept as written so "1200" becomes "-1200".
func SignedAmount(raw string, income bool) (string, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimLeft(s, "+-")
	s = strings.TrimSpace(s)
	d, err := ParseAmount(s)
	if err != nil {
		return "", err
	}
	if d.IsZero() {
		return "", fmt.Errorf("%w: zero amount", ErrInvalidAmount)
	}
	if income {
		return s, nil
	}
	return "-" + s, nil
}

// ParseDate parses an ISO calendar date in UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
