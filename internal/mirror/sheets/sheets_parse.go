package sheets

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"trackify/internal/core"
)

// Transaction columns:
// A user_id | B id | C date | D description | E amount | F primary | G detailed | H counterparty | I origin
//
// Leaderboard columns:
// A user_id | B display_name | C total_score | D last_updated | E monthly ("2024-02=50;2024-01=10")

func rowKey(userID, id string) string {
	return userID + "\x00" + id
}

func transactionToRow(userID string, t core.Transaction) []any {
	primary, detailed := "", ""
	if t.Category != nil {
		primary, detailed = t.Category.Primary, t.Category.Detailed
	}
	return []any{
		userID, t.ID, t.Date, t.Description, t.Amount,
		primary, detailed, t.CounterpartyName(), t.Origin.String(),
	}
}

// rowToTransaction parses a row; ok is false for blank or short rows.
func rowToTransaction(row []string) (userID string, t core.Transaction, ok bool) {
	if len(row) < 5 || strings.TrimSpace(row[0]) == "" || strings.TrimSpace(row[1]) == "" {
		return "", core.Transaction{}, false
	}
	cell := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}
	t = core.Transaction{
		ID:          cell(1),
		Date:        cell(2),
		Description: cell(3),
		Amount:      cell(4),
		Origin:      core.External,
	}
	if p, d := cell(5), cell(6); p != "" || d != "" {
		t.Category = &core.Category{Primary: p, Detailed: d}
	}
	t.Details.Counterparty.Name = cell(7)
	if cell(8) == core.Manual.String() {
		t.Origin = core.Manual
	}
	return cell(0), t, true
}

// indexTransactionRows maps (user, id) to the 1-based sheet row number.
func indexTransactionRows(rows [][]string) map[string]int {
	index := make(map[string]int, len(rows))
	for i, row := range rows {
		if userID, t, ok := rowToTransaction(row); ok {
			index[rowKey(userID, t.ID)] = i + 1
		}
	}
	return index
}

func transactionsForUser(rows [][]string, userID string) []core.Transaction {
	var out []core.Transaction
	for _, row := range rows {
		owner, t, ok := rowToTransaction(row)
		if !ok || owner != userID {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out
}

func formatMonthly(scores []core.MonthlyScore) string {
	parts := make([]string, len(scores))
	for i, m := range scores {
		parts[i] = fmt.Sprintf("%s=%d", m.YearMonth, m.Score)
	}
	return strings.Join(parts, ";")
}

func parseMonthly(s string) []core.MonthlyScore {
	var out []core.MonthlyScore
	for _, part := range strings.Split(s, ";") {
		ym, v, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		score, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			continue
		}
		out = append(out, core.MonthlyScore{YearMonth: strings.TrimSpace(ym), Score: score})
	}
	return out
}

func scoreToRow(s core.UserScore) []any {
	return []any{s.UserID, s.DisplayName, s.TotalScore, s.LastUpdated, formatMonthly(s.MonthlyScores)}
}

func parseScoreRows(rows [][]string) []core.UserScore {
	var out []core.UserScore
	for _, row := range rows {
		if len(row) < 3 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		total, err := strconv.Atoi(strings.TrimSpace(row[2]))
		if err != nil {
			// header row or hand-edited cell
			continue
		}
		s := core.UserScore{
			UserID:      strings.TrimSpace(row[0]),
			DisplayName: strings.TrimSpace(row[1]),
			TotalScore:  total,
		}
		if len(row) > 3 {
			s.LastUpdated = strings.TrimSpace(row[3])
		}
		if len(row) > 4 {
			s.MonthlyScores = parseMonthly(row[4])
		}
		out = append(out, s)
	}
	return out
}

func indexScoreRows(rows [][]string) map[string]int {
	index := make(map[string]int, len(rows))
	for i, row := range rows {
		if len(row) > 0 && strings.TrimSpace(row[0]) != "" {
			index[strings.TrimSpace(row[0])] = i + 1
		}
	}
	return index
}

// sortScores orders by TotalScore descending, then UserID ascending.
func sortScores(scores []core.UserScore) {
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].TotalScore != scores[j].TotalScore {
			return scores[i].TotalScore > scores[j].TotalScore
		}
		return scores[i].UserID < scores[j].UserID
	})
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
