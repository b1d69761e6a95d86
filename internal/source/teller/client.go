// Package teller is a Source backed by the Teller REST API.
package teller

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"trackify/internal/core"
	"trackify/internal/source"
)

const (
	DefaultBaseURL = "https://api.teller.io/"
	DefaultVersion = "2020-10-12"
	defaultTimeout = 60 * time.Second
)

var _ source.Source = (*Client)(nil)

// Client talks to Teller over HTTPS. Requests authenticate with HTTP Basic
// using the access token as the username and an empty password.
type Client struct {
	httpClient *http.Client
	baseURL    string
	version    string
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

func WithVersion(v string) Option {
	return func(c *Client) {
		if v != "" {
			c.version = v
		}
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    DefaultBaseURL,
		version:    DefaultVersion,
	}
	for _, opt := range opts {
		opt(c)
	}
	if !strings.HasSuffix(c.baseURL, "/") {
		c.baseURL += "/"
	}
	return c
}

// APIError is a non-2xx response from Teller.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" || e.Message != "" {
		return fmt.Sprintf("teller API error (status %d): %s - %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("teller API request failed with status %d", e.StatusCode)
}

// Wire types.
type (
	institution struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	account struct {
		ID          string      `json:"id"`
		Name        string      `json:"name"`
		Type        string      `json:"type"`
		Subtype     string      `json:"subtype"`
		Currency    string      `json:"currency"`
		LastFour    string      `json:"last_four"`
		Institution institution `json:"institution"`
	}

	counterparty struct {
		Name string `json:"name"`
		Type string `json:"type"`
	}

	details struct {
		ProcessingStatus string       `json:"processing_status"`
		Category         string       `json:"category"`
		Counterparty     counterparty `json:"counterparty"`
	}

	transaction struct {
		ID          string  `json:"id"`
		AccountID   string  `json:"account_id"`
		Amount      string  `json:"amount"`
		Date        string  `json:"date"`
		Description string  `json:"description"`
		Status      string  `json:"status"`
		Type        string  `json:"type"`
		Details     details `json:"details"`
	}

	errorBody struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
)

func (c *Client) get(ctx context.Context, accessToken, path string, out any) error {
	if strings.TrimSpace(accessToken) == "" {
		return core.ErrNoAccessToken
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	creds := base64.StdEncoding.EncodeToString([]byte(accessToken + ":"))
	req.Header.Set("Authorization", "Basic "+creds)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Teller-Version", c.version)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var eb errorBody
		if json.Unmarshal(body, &eb) == nil {
			apiErr.Code, apiErr.Message = eb.Error.Code, eb.Error.Message
		}
		return apiErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

func (c *Client) ListAccounts(ctx context.Context, accessToken string) ([]core.Account, error) {
	var raw []account
	if err := c.get(ctx, accessToken, "accounts", &raw); err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	out := make([]core.Account, len(raw))
	for i, a := range raw {
		out[i] = core.Account{
			ID:          a.ID,
			Name:        a.Name,
			Type:        a.Type,
			Subtype:     a.Subtype,
			Institution: a.Institution.Name,
			LastFour:    a.LastFour,
		}
	}
	return out, nil
}

// transactionList accepts both a bare array and a {"transactions": [...]} envelope.
type transactionList []transaction

func (l *transactionList) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		var env struct {
			Transactions []transaction `json:"transactions"`
		}
		if err := json.Unmarshal(data, &env); err != nil {
			return err
		}
		*l = env.Transactions
		return nil
	}
	var arr []transaction
	if err := json.Unmarshal(data, &arr); err != nil {
		return err
	}
	*l = arr
	return nil
}

func (c *Client) ListTransactions(ctx context.Context, accessToken, accountID string) ([]core.Transaction, error) {
	if accountID == "" {
		return nil, fmt.Errorf("list transactions: %w", core.ErrEmptyID)
	}
	var raw transactionList
	path := "accounts/" + url.PathEscape(accountID) + "/transactions"
	if err := c.get(ctx, accessToken, path, &raw); err != nil {
		return nil, fmt.Errorf("list transactions for account %s: %w", accountID, err)
	}
	out := make([]core.Transaction, len(raw))
	for i, t := range raw {
		out[i] = toCore(t, accountID)
	}
	return out, nil
}

func toCore(t transaction, accountID string) core.Transaction {
	if t.AccountID != "" {
		accountID = t.AccountID
	}
	return core.Transaction{
		ID:          t.ID,
		AccountID:   accountID,
		Description: t.Description,
		Amount:      t.Amount,
		Date:        t.Date,
		Details: core.Details{
			ProcessingStatus: t.Details.ProcessingStatus,
			Category:         t.Details.Category,
			Counterparty: core.Counterparty{
				Name: t.Details.Counterparty.Name,
				Type: t.Details.Counterparty.Type,
			},
		},
		Origin: core.External,
	}
}
