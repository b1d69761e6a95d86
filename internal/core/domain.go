package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ManualIDPrefix prefixes ids synthesized for user-entered transactions.
// Origin is never inferred from it; see Transaction.Origin.
const ManualIDPrefix = "manual_"

// Origin records which partition owns a transaction.
type Origin int

const (
	External Origin = iota
	Manual
)

func (o Origin) String() string {
	if o == Manual {
		return "manual"
	}
	return "external"
}

type (
	// Category is the (primary, detailed) label pair attached after classification.
	Category struct {
		Primary  string `json:"primary"`
		Detailed string `json:"detailed"`
	}

	Counterparty struct {
		Name string `json:"name,omitempty"`
		Type string `json:"type,omitempty"`
	}

	// Details holds the provider-specific substructure stored as an opaque blob.
	Details struct {
		ProcessingStatus string       `json:"processing_status,omitempty"`
		Category         string       `json:"category,omitempty"`
		Counterparty     Counterparty `json:"counterparty"`
	}

	Transaction struct {
		ID          string
		AccountID   string
		Description string
		Amount      string // signed decimal, negative = money out
		Date        string // YYYY-MM-DD
		Category    *Category
		Details     Details
		Origin      Origin
	}

	Account struct {
		ID          string
		Name        string
		Type        string
		Subtype     string
		Institution string
		LastFour    string
	}

	// User is the authenticated owner of all partitioned state.
	User struct {
		ID          string
		DisplayName string
	}

	MonthlyScore struct {
		YearMonth string // YYYY-MM
		Score     int
	}

	UserScore struct {
		UserID        string
		DisplayName   string
		TotalScore    int
		LastUpdated   string // YYYY-MM-DD
		MonthlyScores []MonthlyScore
	}
)

// IsManual reports whether the transaction belongs to the manual partition.
func (t Transaction) IsManual() bool {
	return t.Origin == Manual
}

// CounterpartyName is descriptive only.
func (t Transaction) CounterpartyName() string {
	return t.Details.Counterparty.Name
}

// AmountValue returns the parsed amount, or zero when the amount is malformed.
func (t Transaction) AmountValue() decimal.Decimal {
	return AmountOrZero(t.Amount)
}

// ParsedDate parses the calendar date of the transaction.
func (t Transaction) ParsedDate() (time.Time, error) {
	return ParseDate(t.Date)
}

// CategoryName returns the primary category or the Other display name.
func (t Transaction) CategoryName() string {
	if t.Category == nil || strings.TrimSpace(t.Category.Primary) == "" {
		return Other.DisplayName()
	}
	return t.Category.Primary
}

// WithCategory returns a copy carrying c.
func (t Transaction) WithCategory(c Category) Transaction {
	t.Category = &c
	return t
}

func (u User) Validate() error {
	if strings.TrimSpace(u.ID) == "" {
		return ErrEmptyUserID
	}
	return nil
}
