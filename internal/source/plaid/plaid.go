// Package plaid is a Source backed by the Plaid API.
package plaid

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/plaid/plaid-go/v41/plaid"
	"github.com/shopspring/decimal"

	"trackify/internal/core"
	"trackify/internal/source"
)

const (
	DefaultLookbackDays = 90
	pageSize            = 500
)

var _ source.Source = (*Client)(nil)

type Client struct {
	api      *plaid.APIClient
	lookback int
	now      func() time.Time
}

// ParseEnvironment maps a PLAID_ENV value to a Plaid environment.
func ParseEnvironment(env string) (plaid.Environment, error) {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "", "sandbox":
		return plaid.Sandbox, nil
	case "production":
		return plaid.Production, nil
	default:
		return "", fmt.Errorf("invalid Plaid environment: %s", env)
	}
}

func NewClient(clientID, secret, env string, lookbackDays int) (*Client, error) {
	environment, err := ParseEnvironment(env)
	if err != nil {
		return nil, err
	}
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}

	configuration := plaid.NewConfiguration()
	configuration.AddDefaultHeader("PLAID-CLIENT-ID", clientID)
	configuration.AddDefaultHeader("PLAID-SECRET", secret)
	configuration.UseEnvironment(environment)

	return &Client{
		api:      plaid.NewAPIClient(configuration),
		lookback: lookbackDays,
		now:      time.Now,
	}, nil
}

func (c *Client) ListAccounts(ctx context.Context, accessToken string) ([]core.Account, error) {
	if strings.TrimSpace(accessToken) == "" {
		return nil, core.ErrNoAccessToken
	}
	request := plaid.NewAccountsGetRequest(accessToken)
	resp, _, err := c.api.PlaidApi.AccountsGet(ctx).AccountsGetRequest(*request).Execute()
	if err != nil {
		return nil, fmt.Errorf("plaid accounts get: %w", err)
	}

	item := resp.GetItem()
	institution := item.GetInstitutionId()
	accounts := resp.GetAccounts()
	out := make([]core.Account, len(accounts))
	for i, a := range accounts {
		out[i] = core.Account{
			ID:          a.GetAccountId(),
			Name:        a.GetName(),
			Type:        string(a.GetType()),
			Subtype:     string(a.GetSubtype()),
			Institution: institution,
			LastFour:    a.GetMask(),
		}
	}
	return out, nil
}

// ListTransactions pages through the lookback window for one account.
func (c *Client) ListTransactions(ctx context.Context, accessToken, accountID string) ([]core.Transaction, error) {
	if strings.TrimSpace(accessToken) == "" {
		return nil, core.ErrNoAccessToken
	}
	if accountID == "" {
		return nil, fmt.Errorf("list transactions: %w", core.ErrEmptyID)
	}
	end := c.now()
	start := end.AddDate(0, 0, -c.lookback)

	var out []core.Transaction
	for offset := int32(0); ; {
		options := plaid.NewTransactionsGetRequestOptions()
		options.SetAccountIds([]string{accountID})
		options.SetCount(pageSize)
		options.SetOffset(offset)

		request := plaid.NewTransactionsGetRequest(accessToken, core.FormatDate(start), core.FormatDate(end))
		request.SetOptions(*options)

		resp, _, err := c.api.PlaidApi.TransactionsGet(ctx).TransactionsGetRequest(*request).Execute()
		if err != nil {
			return nil, fmt.Errorf("plaid transactions get: %w", err)
		}

		page := resp.GetTransactions()
		for _, t := range page {
			category := t.GetPersonalFinanceCategory()
			out = append(out, record{
				ID:           t.GetTransactionId(),
				AccountID:    t.GetAccountId(),
				Name:         t.GetName(),
				MerchantName: t.GetMerchantName(),
				Amount:       t.GetAmount(),
				Date:         t.GetDate(),
				Pending:      t.GetPending(),
				Category:     category.GetPrimary(),
			}.toCore())
		}

		offset += int32(len(page))
		if len(page) == 0 || offset >= resp.GetTotalTransactions() {
			break
		}
	}
	return out, nil
}

// record is the subset of a Plaid transaction we keep.
type record struct {
	ID           string
	AccountID    string
	Name         string
	MerchantName string
	Amount       float64
	Date         string
	Pending      bool
	Category     string
}

// toCore converts to the shared shape. Plaid reports money out as positive,
// so the sign is flipped.
func (r record) toCore() core.Transaction {
	status := "complete"
	if r.Pending {
		status = "pending"
	}
	counterparty := core.Counterparty{}
	if r.MerchantName != "" {
		counterparty = core.Counterparty{Name: r.MerchantName, Type: "organization"}
	}
	return core.Transaction{
		ID:          r.ID,
		AccountID:   r.AccountID,
		Description: r.Name,
		Amount:      decimal.NewFromFloat(r.Amount).Neg().StringFixed(2),
		Date:        r.Date,
		Details: core.Details{
			ProcessingStatus: status,
			Category:         strings.ToLower(r.Category),
			Counterparty:     counterparty,
		},
		Origin: core.External,
	}
}
