// Package mirror defines the remote, best-effort copy of a user's transactions
// and the leaderboard store. Nothing here is authoritative; the local store is.
package mirror

import (
	"context"

	"trackify/internal/core"
)

// Ports for outbound adapters.
type (
	// Writer replicates local mutations to the remote store.
	Writer interface {
		SaveTransaction(ctx context.Context, userID string, tx core.Transaction) error
		SaveTransactions(ctx context.Context, userID string, txs []core.Transaction) error
		DeleteTransaction(ctx context.Context, userID, id string) error
	}

	// Reader lists the remote copy of a user's transactions.
	Reader interface {
		ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error)
	}

	TransactionMirror interface {
		Writer
		Reader
	}

	// ScoreStore holds one leaderboard record per user.
	ScoreStore interface {
		SaveUserScore(ctx context.Context, userID string, score core.UserScore) error
		// GetTopScores returns records ordered by TotalScore descending.
		GetTopScores(ctx context.Context, limit int) ([]core.UserScore, error)
		// GetUserScore returns core.ErrNotFound when the user has no record.
		GetUserScore(ctx context.Context, userID string) (core.UserScore, error)
		CountWithScoreGreaterThan(ctx context.Context, threshold int) (int, error)
	}

	// TokenStore is the remote fallback for the bank access token.
	TokenStore interface {
		// GetAccessToken returns core.ErrNotFound when no token is stored.
		GetAccessToken(ctx context.Context, userID string) (string, error)
		SetAccessToken(ctx context.Context, userID, token string) error
		DeleteAccessToken(ctx context.Context, userID string) error
	}

	// Mirror is a full remote backend.
	Mirror interface {
		TransactionMirror
		ScoreStore
	}
)
