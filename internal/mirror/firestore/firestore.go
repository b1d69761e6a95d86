// Package firestore mirrors transactions, leaderboard scores and access tokens
// to Cloud Firestore through the Firebase Admin SDK.
//
// Layout:
//
//	users/{uid}                    accessToken
//	users/{uid}/transactions/{id}  one document per transaction
//	userScores/{uid}               leaderboard record
package firestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	gfs "cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"trackify/internal/core"
	"trackify/internal/mirror"
)

const (
	usersCollection        = "users"
	transactionsCollection = "transactions"
	scoresCollection       = "userScores"
	accessTokenField       = "accessToken"

	// Firestore rejects batches with more than 500 writes.
	batchLimit = 500
)

var (
	_ mirror.Mirror     = (*Client)(nil)
	_ mirror.TokenStore = (*Client)(nil)
)

type Client struct {
	fs *gfs.Client
}

// NewClient initializes a Firebase app and returns a Firestore-backed mirror.
// credentialsFile may be empty to use application default credentials.
func NewClient(ctx context.Context, credentialsFile, projectID string) (*Client, error) {
	var cfg *firebase.Config
	if projectID != "" {
		cfg = &firebase.Config{ProjectID: projectID}
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}

	fs, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialize firestore client: %w", err)
	}

	slog.InfoContext(ctx, "Firestore mirror initialized", "project_id", projectID)
	return &Client{fs: fs}, nil
}

// NewFromClient wraps an existing Firestore client.
func NewFromClient(fs *gfs.Client) *Client {
	return &Client{fs: fs}
}

func (c *Client) Close() error {
	return c.fs.Close()
}

func (c *Client) transactions(userID string) *gfs.CollectionRef {
	return c.fs.Collection(usersCollection).Doc(userID).Collection(transactionsCollection)
}

func (c *Client) SaveTransaction(ctx context.Context, userID string, tx core.Transaction) error {
	if _, err := c.transactions(userID).Doc(tx.ID).Set(ctx, toTransactionDoc(tx)); err != nil {
		return fmt.Errorf("save transaction %s: %w", tx.ID, err)
	}
	return nil
}

// SaveTransactions writes txs in batches of at most 500 documents. Each batch
// commits atomically; an error stops at the failing batch.
func (c *Client) SaveTransactions(ctx context.Context, userID string, txs []core.Transaction) error {
	coll := c.transactions(userID)
	for i, chunk := range chunkTransactions(txs, batchLimit) {
		batch := c.fs.Batch()
		for _, tx := range chunk {
			batch.Set(coll.Doc(tx.ID), toTransactionDoc(tx))
		}
		if _, err := batch.Commit(ctx); err != nil {
			return fmt.Errorf("commit batch %d (%d transactions): %w", i, len(chunk), err)
		}
	}
	slog.DebugContext(ctx, "Transactions mirrored to Firestore", "user_id", userID, "count", len(txs))
	return nil
}

// DeleteTransaction succeeds when the document does not exist.
func (c *Client) DeleteTransaction(ctx context.Context, userID, id string) error {
	if _, err := c.transactions(userID).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	return nil
}

func (c *Client) ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	docs, err := c.transactions(userID).OrderBy("date", gfs.Desc).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.Transaction, 0, len(docs))
	for _, doc := range docs {
		var d transactionDoc
		if err := doc.DataTo(&d); err != nil {
			slog.WarnContext(ctx, "Skipping undecodable transaction document", "id", doc.Ref.ID, "error", err)
			continue
		}
		out = append(out, d.toCore())
	}
	return out, nil
}

// SaveUserScore overwrites the record wholesale.
func (c *Client) SaveUserScore(ctx context.Context, userID string, score core.UserScore) error {
	score.UserID = userID
	if _, err := c.fs.Collection(scoresCollection).Doc(userID).Set(ctx, toScoreDoc(score)); err != nil {
		return fmt.Errorf("save user score: %w", err)
	}
	return nil
}

// GetTopScores orders by totalScore desc, then userId asc. The query needs a
// composite index on (totalScore desc, userId asc).
func (c *Client) GetTopScores(ctx context.Context, limit int) ([]core.UserScore, error) {
	q := c.fs.Collection(scoresCollection).
		OrderBy("totalScore", gfs.Desc).
		OrderBy("userId", gfs.Asc).
		Limit(limit)
	docs, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("get top scores: %w", err)
	}
	out := make([]core.UserScore, 0, len(docs))
	for _, doc := range docs {
		var d scoreDoc
		if err := doc.DataTo(&d); err != nil {
			slog.WarnContext(ctx, "Skipping undecodable score document", "id", doc.Ref.ID, "error", err)
			continue
		}
		out = append(out, d.toCore())
	}
	return out, nil
}

func (c *Client) GetUserScore(ctx context.Context, userID string) (core.UserScore, error) {
	doc, err := c.fs.Collection(scoresCollection).Doc(userID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return core.UserScore{}, core.ErrNotFound
	}
	if err != nil {
		return core.UserScore{}, fmt.Errorf("get user score: %w", err)
	}
	var d scoreDoc
	if err := doc.DataTo(&d); err != nil {
		return core.UserScore{}, fmt.Errorf("decode user score: %w", err)
	}
	return d.toCore(), nil
}

func (c *Client) CountWithScoreGreaterThan(ctx context.Context, threshold int) (int, error) {
	docs, err := c.fs.Collection(scoresCollection).
		Where("totalScore", ">", threshold).
		Select().
		Documents(ctx).GetAll()
	if err != nil {
		return 0, fmt.Errorf("count scores greater than %d: %w", threshold, err)
	}
	return len(docs), nil
}

func (c *Client) GetAccessToken(ctx context.Context, userID string) (string, error) {
	doc, err := c.fs.Collection(usersCollection).Doc(userID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return "", core.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get user document: %w", err)
	}
	v, err := doc.DataAt(accessTokenField)
	if err != nil {
		return "", core.ErrNotFound
	}
	token, ok := v.(string)
	if !ok || token == "" {
		return "", core.ErrNotFound
	}
	return token, nil
}

func (c *Client) SetAccessToken(ctx context.Context, userID, token string) error {
	_, err := c.fs.Collection(usersCollection).Doc(userID).
		Set(ctx, map[string]interface{}{accessTokenField: token}, gfs.MergeAll)
	if err != nil {
		return fmt.Errorf("set access token: %w", err)
	}
	return nil
}

func (c *Client) DeleteAccessToken(ctx context.Context, userID string) error {
	_, err := c.fs.Collection(usersCollection).Doc(userID).
		Update(ctx, []gfs.Update{{Path: accessTokenField, Value: gfs.Delete}})
	if status.Code(err) == codes.NotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete access token: %w", err)
	}
	return nil
}

func chunkTransactions(txs []core.Transaction, size int) [][]core.Transaction {
	if size <= 0 {
		return nil
	}
	var chunks [][]core.Transaction
	for len(txs) > 0 {
		n := size
		if len(txs) < n {
			n = len(txs)
		}
		chunks = append(chunks, txs[:n])
		txs = txs[n:]
	}
	return chunks
}

// IsNotFound reports whether err is a Firestore NotFound or core.ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, core.ErrNotFound) || status.Code(err) == codes.NotFound
}
