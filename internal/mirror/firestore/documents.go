package firestore

import "trackify/internal/core"

type (
	categoryDoc struct {
		Primary  string `firestore:"primary"`
		Detailed string `firestore:"detailed"`
	}

	counterpartyDoc struct {
		Name string `firestore:"name"`
		Type string `firestore:"type"`
	}

	detailsDoc struct {
		ProcessingStatus string          `firestore:"processingStatus"`
		Category         string          `firestore:"category"`
		Counterparty     counterpartyDoc `firestore:"counterparty"`
	}

	transactionDoc struct {
		ID          string       `firestore:"id"`
		AccountID   string       `firestore:"accountId"`
		Description string       `firestore:"description"`
		Amount      string       `firestore:"amount"`
		Date        string       `firestore:"date"`
		Category    *categoryDoc `firestore:"category"`
		Details     detailsDoc   `firestore:"details"`
		IsManual    bool         `firestore:"isManual"`
	}

	monthlyScoreDoc struct {
		YearMonth string `firestore:"yearMonth"`
		Score     int64  `firestore:"score"`
	}

	scoreDoc struct {
		UserID        string            `firestore:"userId"`
		DisplayName   string            `firestore:"displayName"`
		TotalScore    int64             `firestore:"totalScore"`
		LastUpdated   string            `firestore:"lastUpdated"`
		MonthlyScores []monthlyScoreDoc `firestore:"monthlyScores"`
	}
)

func toTransactionDoc(t core.Transaction) transactionDoc {
	d := transactionDoc{
		ID:          t.ID,
		AccountID:   t.AccountID,
		Description: t.Description,
		Amount:      t.Amount,
		Date:        t.Date,
		Details: detailsDoc{
			ProcessingStatus: t.Details.ProcessingStatus,
			Category:         t.Details.Category,
			Counterparty: counterpartyDoc{
				Name: t.Details.Counterparty.Name,
				Type: t.Details.Counterparty.Type,
			},
		},
		IsManual: t.IsManual(),
	}
	if t.Category != nil {
		d.Category = &categoryDoc{Primary: t.Category.Primary, Detailed: t.Category.Detailed}
	}
	return d
}

func (d transactionDoc) toCore() core.Transaction {
	t := core.Transaction{
		ID:          d.ID,
		AccountID:   d.AccountID,
		Description: d.Description,
		Amount:      d.Amount,
		Date:        d.Date,
		Details: core.Details{
			ProcessingStatus: d.Details.ProcessingStatus,
			Category:         d.Details.Category,
			Counterparty: core.Counterparty{
				Name: d.Details.Counterparty.Name,
				Type: d.Details.Counterparty.Type,
			},
		},
		Origin: core.External,
	}
	if d.IsManual {
		t.Origin = core.Manual
	}
	if d.Category != nil {
		t.Category = &core.Category{Primary: d.Category.Primary, Detailed: d.Category.Detailed}
	}
	return t
}

func toScoreDoc(s core.UserScore) scoreDoc {
	d := scoreDoc{
		UserID:        s.UserID,
		DisplayName:   s.DisplayName,
		TotalScore:    int64(s.TotalScore),
		LastUpdated:   s.LastUpdated,
		MonthlyScores: make([]monthlyScoreDoc, len(s.MonthlyScores)),
	}
	for i, m := range s.MonthlyScores {
		d.MonthlyScores[i] = monthlyScoreDoc{YearMonth: m.YearMonth, Score: int64(m.Score)}
	}
	return d
}

func (d scoreDoc) toCore() core.UserScore {
	s := core.UserScore{
		UserID:        d.UserID,
		DisplayName:   d.DisplayName,
		TotalScore:    int(d.TotalScore),
		LastUpdated:   d.LastUpdated,
		MonthlyScores: make([]core.MonthlyScore, len(d.MonthlyScores)),
	}
	for i, m := range d.MonthlyScores {
		s.MonthlyScores[i] = core.MonthlyScore{YearMonth: m.YearMonth, Score: int(m.Score)}
	}
	return s
}
