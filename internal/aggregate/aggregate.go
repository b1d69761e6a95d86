// Package aggregate derives totals, period buckets and category breakdowns
// from a transaction list. Every function is pure and total: malformed
// amounts count as zero and malformed dates drop out of date-based views.
package aggregate

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"trackify/internal/core"
)

var hundred = decimal.NewFromInt(100)

// Totals sums positive amounts into income and negated negative amounts into
// spending. Savings is income minus spending.
func Totals(txs []core.Transaction) core.Totals {
	var t core.Totals
	for _, tx := range txs {
		add(&t, tx.AmountValue())
	}
	t.Savings = t.Income.Sub(t.Spending)
	return t
}

func add(t *core.Totals, amount decimal.Decimal) {
	switch amount.Sign() {
	case 1:
		t.Income = t.Income.Add(amount)
	case -1:
		t.Spending = t.Spending.Add(amount.Neg())
	}
}

type bucket struct {
	start, end time.Time
	label      string
	txs        []core.Transaction
}

// PeriodTotals groups transactions into calendar weeks (Monday to Sunday) or
// months, most recent period first.
func PeriodTotals(txs []core.Transaction, g core.Granularity) []core.PeriodTotals {
	buckets := map[time.Time]*bucket{}
	for _, tx := range txs {
		d, err := tx.ParsedDate()
		if err != nil {
			continue
		}
		start, end := periodBounds(d, g)
		b, ok := buckets[start]
		if !ok {
			b = &bucket{start: start, end: end, label: periodLabel(start, end, g)}
			buckets[start] = b
		}
		b.txs = append(b.txs, tx)
	}

	out := make([]core.PeriodTotals, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, core.PeriodTotals{
			Label:  b.label,
			Start:  b.start,
			End:    b.end,
			Totals: Totals(b.txs),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.After(out[j].Start) })
	return out
}

func periodBounds(d time.Time, g core.Granularity) (start, end time.Time) {
	d = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	if g == core.Monthly {
		start = core.YearMonthOf(d).Start()
		return start, start.AddDate(0, 1, -1)
	}
	offset := (int(d.Weekday()) + 6) % 7 // days since Monday
	start = d.AddDate(0, 0, -offset)
	return start, start.AddDate(0, 0, 6)
}

// periodLabel formats "March 2024" for months. Weeks read "Mar 4 - 10, 2024",
// "Feb 26 - Mar 3, 2024" or "Dec 30, 2024 - Jan 5, 2025".
func periodLabel(start, end time.Time, g core.Granularity) string {
	if g == core.Monthly {
		return core.YearMonthOf(start).Label()
	}
	switch {
	case start.Year() != end.Year():
		return fmt.Sprintf("%s - %s", start.Format("Jan 2, 2006"), end.Format("Jan 2, 2006"))
	case start.Month() != end.Month():
		return fmt.Sprintf("%s - %s", start.Format("Jan 2"), end.Format("Jan 2, 2006"))
	default:
		return fmt.Sprintf("%s - %d, %d", start.Format("Jan 2"), end.Day(), end.Year())
	}
}

// CategoryBreakdown reports spending per category for one month, largest
// first. Income is left out and amounts are absolute.
func CategoryBreakdown(txs []core.Transaction, month core.YearMonth) []core.CategoryAmount {
	sums := map[string]decimal.Decimal{}
	total := decimal.Zero
	for _, tx := range txs {
		d, err := tx.ParsedDate()
		if err != nil || core.YearMonthOf(d) != month {
			continue
		}
		amount := tx.AmountValue()
		if amount.Sign() >= 0 || core.IsIncomeCategory(tx.CategoryName()) {
			continue
		}
		name := tx.CategoryName()
		sums[name] = sums[name].Add(amount.Abs())
		total = total.Add(amount.Abs())
	}

	out := make([]core.CategoryAmount, 0, len(sums))
	for name, amount := range sums {
		pct, _ := amount.Div(total).Mul(hundred).Float64()
		out = append(out, core.CategoryAmount{Name: name, Amount: amount, Percentage: pct})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Name < out[j].Name
	})
	return out
}
