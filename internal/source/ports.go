// Package source defines the bank-data feed the reconciliation engine pulls from.
package source

import (
	"context"

	"trackify/internal/core"
)

// Source lists a user's linked accounts and their transactions. Amounts are
// signed with negative meaning money out.
type Source interface {
	ListAccounts(ctx context.Context, accessToken string) ([]core.Account, error)
	ListTransactions(ctx context.Context, accessToken, accountID string) ([]core.Transaction, error)
}

// Func adapts plain functions to Source. Handy for tests.
type Func struct {
	Accounts     func(ctx context.Context, accessToken string) ([]core.Account, error)
	Transactions func(ctx context.Context, accessToken, accountID string) ([]core.Transaction, error)
}

func (f Func) ListAccounts(ctx context.Context, accessToken string) ([]core.Account, error) {
	if f.Accounts == nil {
		return nil, nil
	}
	return f.Accounts(ctx, accessToken)
}

func (f Func) ListTransactions(ctx context.Context, accessToken, accountID string) ([]core.Transaction, error) {
	if f.Transactions == nil {
		return nil, nil
	}
	return f.Transactions(ctx, accessToken, accountID)
}
