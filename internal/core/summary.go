package core

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Granularity selects the bucket size for period totals.
type Granularity int

const (
	Weekly Granularity = iota
	Monthly
)

func (g Granularity) String() string {
	switch g {
	case Weekly:
		return "weekly"
	case Monthly:
		return "monthly"
	default:
		return fmt.Sprintf("granularity(%d)", int(g))
	}
}

// Totals is the income/spending/savings triple. Savings is always Income - Spending.
type Totals struct {
	Income   decimal.Decimal
	Spending decimal.Decimal
	Savings  decimal.Decimal
}

// PeriodTotals is one weekly or monthly bucket. It is never persisted.
type PeriodTotals struct {
	Label string
	Start time.Time
	End   time.Time
	Totals
}

// CategoryAmount is the spending attributed to one category within a month.
type CategoryAmount struct {
	Name       string
	Amount     decimal.Decimal
	Percentage float64
}

// YearMonth identifies a calendar month.
type YearMonth struct {
	Year  int
	Month time.Month
}

// YearMonthOf returns the calendar month containing t.
func YearMonthOf(t time.Time) YearMonth {
	return YearMonth{Year: t.Year(), Month: t.Month()}
}

// String renders the month as YYYY-MM.
func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

// Label renders the month as "March 2024".
func (ym YearMonth) Label() string {
	return fmt.Sprintf("%s %d", ym.Month, ym.Year)
}

// Start returns midnight UTC on the first day of the month.
func (ym YearMonth) Start() time.Time {
	return time.Date(ym.Year, ym.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Before reports whether ym precedes other.
func (ym YearMonth) Before(other YearMonth) bool {
	if ym.Year != other.Year {
		return ym.Year < other.Year
	}
	return ym.Month < other.Month
}
