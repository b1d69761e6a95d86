package aggregate

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"trackify/internal/core"
)

func tx(id, amount, date string) core.Transaction {
	return core.Transaction{ID: id, Amount: amount, Date: date}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestTotalsScenario(t *testing.T) {
	got := Totals([]core.Transaction{
		tx("t1", "-40.00", "2024-03-01"),
		tx("t2", "1000.00", "2024-03-05"),
	})
	if !got.Income.Equal(dec("1000")) || !got.Spending.Equal(dec("40")) || !got.Savings.Equal(dec("960")) {
		t.Fatalf("unexpected totals: income=%s spending=%s savings=%s", got.Income, got.Spending, got.Savings)
	}
}

func TestTotalsIdentityAndMalformedAmounts(t *testing.T) {
	tests := []struct {
		name string
		txs  []core.Transaction
	}{
		{"empty", nil},
		{"malformed is zero", []core.Transaction{tx("a", "abc", "2024-01-01"), tx("b", "-5", "2024-01-01")}},
		{"mixed", []core.Transaction{tx("a", "10.10", ""), tx("b", "-3.03", ""), tx("c", "+1", ""), tx("d", "0", "")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Totals(tt.txs)
			if !got.Income.Sub(got.Spending).Equal(got.Savings) {
				t.Fatalf("income - spending != savings: %s - %s != %s", got.Income, got.Spending, got.Savings)
			}
			if got.Spending.IsNegative() || got.Income.IsNegative() {
				t.Fatalf("income and spending must be non-negative: %+v", got)
			}
		})
	}

	got := Totals([]core.Transaction{tx("a", "abc", ""), tx("b", "-5", "")})
	if !got.Spending.Equal(dec("5")) || !got.Income.IsZero() {
		t.Fatalf("malformed amount should count as zero: %+v", got)
	}
}

func TestPeriodTotalsMonthly(t *testing.T) {
	got := PeriodTotals([]core.Transaction{
		tx("a", "1000", "2024-01-03"),
		tx("b", "-100", "2024-01-20"),
		tx("c", "-50", "2024-03-01"),
		tx("d", "-1", "not-a-date"),
	}, core.Monthly)

	if len(got) != 2 {
		t.Fatalf("expected 2 months, got %d", len(got))
	}
	if got[0].Label != "March 2024" || got[1].Label != "January 2024" {
		t.Fatalf("unexpected labels/order: %q, %q", got[0].Label, got[1].Label)
	}
	if !got[1].Savings.Equal(dec("900")) {
		t.Fatalf("unexpected january savings %s", got[1].Savings)
	}
	wantEnd := time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC)
	if !got[1].End.Equal(wantEnd) {
		t.Fatalf("january end = %v, want %v", got[1].End, wantEnd)
	}
}

func TestPeriodTotalsWeeklyBoundariesAndLabels(t *testing.T) {
	got := PeriodTotals([]core.Transaction{
		tx("sun", "-1", "2024-03-10"), // Sunday closes the Mar 4 week
		tx("mon", "-2", "2024-03-04"),
		tx("cross-month", "-3", "2024-02-28"),
		tx("cross-year", "-4", "2025-01-01"),
	}, core.Weekly)

	want := []struct {
		label    string
		spending string
	}{
		{"Dec 30, 2024 - Jan 5, 2025", "4"},
		{"Mar 4 - 10, 2024", "3"},
		{"Feb 26 - Mar 3, 2024", "3"},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d weeks, got %d: %+v", len(want), len(got), got)
	}
	for i, w := range want {
		if got[i].Label != w.label {
			t.Errorf("week %d label = %q, want %q", i, got[i].Label, w.label)
		}
		if !got[i].Spending.Equal(dec(w.spending)) {
			t.Errorf("week %d spending = %s, want %s", i, got[i].Spending, w.spending)
		}
		if got[i].Start.Weekday() != time.Monday || got[i].End.Weekday() != time.Sunday {
			t.Errorf("week %d not Monday to Sunday: %v - %v", i, got[i].Start, got[i].End)
		}
	}
}

func TestPeriodTotalsSkipsUnparsableDates(t *testing.T) {
	got := PeriodTotals([]core.Transaction{tx("a", "-1", ""), tx("b", "-1", "03/01/2024")}, core.Weekly)
	if len(got) != 0 {
		t.Fatalf("expected no buckets, got %+v", got)
	}
}

func TestCategoryBreakdown(t *testing.T) {
	food := core.FoodAndDrink.Category()
	shopping := core.Shopping.Category()
	income := core.Income.Category()

	txs := []core.Transaction{
		tx("a", "-30", "2024-03-01").WithCategory(food),
		tx("b", "-10", "2024-03-02").WithCategory(food),
		tx("c", "-60", "2024-03-03").WithCategory(shopping),
		tx("d", "2000", "2024-03-04").WithCategory(income),
		tx("e", "-500", "2024-02-28").WithCategory(shopping), // other month
		tx("f", "-100", "2024-03-05"),                        // unclassified
	}
	got := CategoryBreakdown(txs, core.YearMonth{Year: 2024, Month: time.March})

	if len(got) != 3 {
		t.Fatalf("expected 3 categories, got %+v", got)
	}
	if got[0].Name != core.Other.DisplayName() || !got[0].Amount.Equal(dec("100")) {
		t.Fatalf("unexpected first category: %+v", got[0])
	}
	if got[1].Name != core.Shopping.DisplayName() || got[2].Name != core.FoodAndDrink.DisplayName() {
		t.Fatalf("unexpected order: %+v", got)
	}
	if got[0].Percentage != 50 || got[1].Percentage != 30 || got[2].Percentage != 20 {
		t.Fatalf("unexpected percentages: %v %v %v", got[0].Percentage, got[1].Percentage, got[2].Percentage)
	}
}

func TestCategoryBreakdownEmptyMonth(t *testing.T) {
	got := CategoryBreakdown([]core.Transaction{tx("a", "100", "2024-03-01")}, core.YearMonth{Year: 2024, Month: time.March})
	if len(got) != 0 {
		t.Fatalf("expected empty breakdown, got %+v", got)
	}
}
