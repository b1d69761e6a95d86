// Package sheets mirrors transactions and leaderboard scores into a Google
// Sheets spreadsheet. One tab holds transactions for every user, keyed by
// (user id, transaction id); another holds one leaderboard row per user.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"trackify/internal/core"
	"trackify/internal/mirror"
)

const (
	DefaultTransactionsSheet = "Transactions"
	DefaultLeaderboardSheet  = "Leaderboard"

	transactionCols = "A:I"
	scoreCols       = "A:E"
	valueInput      = "RAW"
)

var _ mirror.Mirror = (*Client)(nil)

// Config selects the spreadsheet and credentials.
type Config struct {
	SpreadsheetID      string
	TransactionsSheet  string
	LeaderboardSheet   string
	ServiceAccountJSON string
	ServiceAccountFile string
}

type Client struct {
	svc               *gsheet.Service
	spreadsheetID     string
	transactionsSheet string
	leaderboardSheet  string

	// Writes are read-modify-write on the sheet; serialize them.
	mu sync.Mutex
}

func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	svc, err := newSheetsService(ctx, cfg.ServiceAccountJSON, cfg.ServiceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewFromService(svc, cfg), nil
}

// NewFromService wraps an existing Sheets service.
func NewFromService(svc *gsheet.Service, cfg Config) *Client {
	txSheet := strings.TrimSpace(cfg.TransactionsSheet)
	if txSheet == "" {
		txSheet = DefaultTransactionsSheet
	}
	lbSheet := strings.TrimSpace(cfg.LeaderboardSheet)
	if lbSheet == "" {
		lbSheet = DefaultLeaderboardSheet
	}
	return &Client{
		svc:               svc,
		spreadsheetID:     cfg.SpreadsheetID,
		transactionsSheet: txSheet,
		leaderboardSheet:  lbSheet,
	}
}

// newSheetsService initializes a Sheets service from service account credentials,
// falling back to GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context, serviceAccountJSON, serviceAccountFile string) (*gsheet.Service, error) {
	serviceAccountJSON = strings.TrimSpace(serviceAccountJSON)
	serviceAccountFile = strings.TrimSpace(serviceAccountFile)
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created", "credentials_size", len(credentialsJSON))
	return service, nil
}

func (c *Client) readRows(ctx context.Context, sheet, cols string) ([][]string, error) {
	rng := fmt.Sprintf("%s!%s", sheet, cols)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	rows := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		rows[i] = toStrings(row)
	}
	return rows, nil
}

func (c *Client) SaveTransaction(ctx context.Context, userID string, tx core.Transaction) error {
	return c.SaveTransactions(ctx, userID, []core.Transaction{tx})
}

// SaveTransactions updates rows that already exist for (user, id) and appends the rest.
func (c *Client) SaveTransactions(ctx context.Context, userID string, txs []core.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	rows, err := c.readRows(ctx, c.transactionsSheet, transactionCols)
	if err != nil {
		return err
	}
	index := indexTransactionRows(rows)

	var updates []*gsheet.ValueRange
	var appends [][]any
	for _, tx := range txs {
		values := transactionToRow(userID, tx)
		if rowNum, ok := index[rowKey(userID, tx.ID)]; ok {
			updates = append(updates, &gsheet.ValueRange{
				Range:  fmt.Sprintf("%s!A%d:I%d", c.transactionsSheet, rowNum, rowNum),
				Values: [][]any{values},
			})
			continue
		}
		appends = append(appends, values)
	}

	if len(updates) > 0 {
		req := &gsheet.BatchUpdateValuesRequest{ValueInputOption: valueInput, Data: updates}
		if _, err := c.svc.Spreadsheets.Values.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
			return fmt.Errorf("update %d rows in %s: %w", len(updates), c.transactionsSheet, err)
		}
	}
	if len(appends) > 0 {
		rng := fmt.Sprintf("%s!%s", c.transactionsSheet, transactionCols)
		vr := &gsheet.ValueRange{Values: appends}
		_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
			ValueInputOption(valueInput).InsertDataOption("INSERT_ROWS").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("append %d rows to %s: %w", len(appends), c.transactionsSheet, err)
		}
	}

	slog.DebugContext(ctx, "Transactions mirrored to Google Sheets",
		"user_id", userID, "updated", len(updates), "appended", len(appends))
	return nil
}

// DeleteTransaction clears the matching row. A missing row is not an error.
func (c *Client) DeleteTransaction(ctx context.Context, userID, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rows, err := c.readRows(ctx, c.transactionsSheet, transactionCols)
	if err != nil {
		return err
	}
	rowNum, ok := indexTransactionRows(rows)[rowKey(userID, id)]
	if !ok {
		return nil
	}
	rng := fmt.Sprintf("%s!A%d:I%d", c.transactionsSheet, rowNum, rowNum)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	return nil
}

func (c *Client) ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	rows, err := c.readRows(ctx, c.transactionsSheet, transactionCols)
	if err != nil {
		return nil, err
	}
	return transactionsForUser(rows, userID), nil
}

// SaveUserScore overwrites the user's leaderboard row or appends a new one.
func (c *Client) SaveUserScore(ctx context.Context, userID string, score core.UserScore) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rows, err := c.readRows(ctx, c.leaderboardSheet, scoreCols)
	if err != nil {
		return err
	}
	score.UserID = userID
	values := scoreToRow(score)

	if rowNum, ok := indexScoreRows(rows)[userID]; ok {
		rng := fmt.Sprintf("%s!A%d:E%d", c.leaderboardSheet, rowNum, rowNum)
		vr := &gsheet.ValueRange{Values: [][]any{values}}
		if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
			ValueInputOption(valueInput).Context(ctx).Do(); err != nil {
			return fmt.Errorf("update score row %s: %w", rng, err)
		}
		return nil
	}

	rng := fmt.Sprintf("%s!%s", c.leaderboardSheet, scoreCols)
	vr := &gsheet.ValueRange{Values: [][]any{values}}
	if _, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption(valueInput).InsertDataOption("INSERT_ROWS").Context(ctx).Do(); err != nil {
		return fmt.Errorf("append score row: %w", err)
	}
	return nil
}

func (c *Client) readScores(ctx context.Context) ([]core.UserScore, error) {
	rows, err := c.readRows(ctx, c.leaderboardSheet, scoreCols)
	if err != nil {
		return nil, err
	}
	return parseScoreRows(rows), nil
}

func (c *Client) GetTopScores(ctx context.Context, limit int) ([]core.UserScore, error) {
	scores, err := c.readScores(ctx)
	if err != nil {
		return nil, err
	}
	sortScores(scores)
	if limit >= 0 && len(scores) > limit {
		scores = scores[:limit]
	}
	return scores, nil
}

func (c *Client) GetUserScore(ctx context.Context, userID string) (core.UserScore, error) {
	scores, err := c.readScores(ctx)
	if err != nil {
		return core.UserScore{}, err
	}
	for _, s := range scores {
		if s.UserID == userID {
			return s, nil
		}
	}
	return core.UserScore{}, core.ErrNotFound
}

func (c *Client) CountWithScoreGreaterThan(ctx context.Context, threshold int) (int, error) {
	scores, err := c.readScores(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, s := range scores {
		if s.TotalScore > threshold {
			n++
		}
	}
	return n, nil
}
