package sheets

import (
	"testing"

	"trackify/internal/core"
)

func TestTransactionRowRoundTrip(t *testing.T) {
	in := core.Transaction{
		ID:          "t1",
		Date:        "2024-03-01",
		Description: "Pizza Hut",
		Amount:      "-40.00",
		Category:    &core.Category{Primary: "Food & Drink", Detailed: "FOOD_AND_DRINK"},
		Details:     core.Details{Counterparty: core.Counterparty{Name: "PIZZA HUT"}},
	}
	row := toStrings(transactionToRow("u1", in))
	userID, out, ok := rowToTransaction(row)
	if !ok || userID != "u1" {
		t.Fatalf("row not parsed: %v", row)
	}
	if out.Amount != "-40.00" || out.Category == nil || out.Category.Detailed != "FOOD_AND_DRINK" {
		t.Fatalf("unexpected transaction: %+v", out)
	}
	if out.IsManual() || out.CounterpartyName() != "PIZZA HUT" {
		t.Fatalf("unexpected origin or counterparty: %+v", out)
	}
}

func TestRowToTransactionSkipsBlankAndShortRows(t *testing.T) {
	for _, row := range [][]string{
		{},
		{"", "", "", "", "", "", "", "", ""},
		{"u1", "t1", "2024-01-01"},
	} {
		if _, _, ok := rowToTransaction(row); ok {
			t.Fatalf("expected row %v to be skipped", row)
		}
	}
}

func TestIndexAndFilterTransactions(t *testing.T) {
	rows := [][]string{
		{"u1", "t1", "2024-01-01", "a", "-1", "", "", "", "external"},
		{"", "", "", "", "", "", "", "", ""}, // cleared row
		{"u2", "t1", "2024-01-02", "b", "-2", "", "", "", "external"},
		{"u1", "manual_9", "2024-02-01", "c", "-3", "Housing", "Housing", "", "manual"},
	}
	index := indexTransactionRows(rows)
	if index[rowKey("u1", "t1")] != 1 || index[rowKey("u2", "t1")] != 3 || index[rowKey("u1", "manual_9")] != 4 {
		t.Fatalf("unexpected index: %v", index)
	}

	got := transactionsForUser(rows, "u1")
	if len(got) != 2 || got[0].ID != "manual_9" || got[1].ID != "t1" {
		t.Fatalf("unexpected user rows: %+v", got)
	}
	if !got[0].IsManual() || got[0].Category == nil {
		t.Fatalf("manual row lost origin or category: %+v", got[0])
	}
	if got[1].Category != nil {
		t.Fatalf("expected nil category for unclassified row, got %+v", got[1].Category)
	}
}

func TestMonthlyFormat(t *testing.T) {
	in := []core.MonthlyScore{{YearMonth: "2024-02", Score: 50}, {YearMonth: "2024-01", Score: -10}}
	s := formatMonthly(in)
	if s != "2024-02=50;2024-01=-10" {
		t.Fatalf("unexpected format %q", s)
	}
	out := parseMonthly(s + ";garbage;2024-03=x")
	if len(out) != 2 || out[1].Score != -10 {
		t.Fatalf("unexpected parse: %+v", out)
	}
	if parseMonthly("") != nil {
		t.Fatal("expected nil for empty string")
	}
}

func TestParseScoreRowsAndSort(t *testing.T) {
	rows := [][]string{
		{"user_id", "display_name", "total_score"},
		{"b", "Bea", "40", "2024-03-01", "2024-03=40"},
		{"a", "Ann", "40"},
		{"c", "Cy", "90"},
		{"", "", ""},
	}
	scores := parseScoreRows(rows)
	if len(scores) != 3 {
		t.Fatalf("expected 3 scores, got %d", len(scores))
	}
	sortScores(scores)
	if scores[0].UserID != "c" || scores[1].UserID != "a" || scores[2].UserID != "b" {
		t.Fatalf("unexpected order: %+v", scores)
	}
	if len(scores[2].MonthlyScores) != 1 || scores[2].LastUpdated != "2024-03-01" {
		t.Fatalf("optional columns not parsed: %+v", scores[2])
	}

	index := indexScoreRows(rows)
	if index["c"] != 4 {
		t.Fatalf("expected c at row 4, got %d", index["c"])
	}
}
