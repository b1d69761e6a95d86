package storage

import (
	"context"
	"database/sql"
	"errors"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// TransactionRow mirrors the transactions table.
type TransactionRow struct {
	ID           string
	AccountID    string
	Description  string
	Amount       string
	Date         string
	DetailsBlob  string
	CategoryBlob sql.NullString
	IsManual     bool
}

const transactionColumns = `id, account_id, description, amount, date, details_blob, category_blob, is_manual`

// Ties on date keep insertion order; rowid is preserved by the upserts below.
const orderByDate = ` ORDER BY date DESC, rowid ASC`

const upsertTransaction = `INSERT INTO transactions (` + transactionColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    account_id = excluded.account_id,
    description = excluded.description,
    amount = excluded.amount,
    date = excluded.date,
    details_blob = excluded.details_blob,
    category_blob = excluded.category_blob,
    is_manual = excluded.is_manual`

func (q *Queries) UpsertTransaction(ctx context.Context, arg TransactionRow) error {
	_, err := q.db.ExecContext(ctx, upsertTransaction,
		arg.ID, arg.AccountID, arg.Description, arg.Amount, arg.Date,
		arg.DetailsBlob, arg.CategoryBlob, arg.IsManual)
	return err
}

// upsertExternal never overwrites a manual row that happens to share an id.
const upsertExternal = `INSERT INTO transactions (` + transactionColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, 0)
ON CONFLICT(id) DO UPDATE SET
    account_id = excluded.account_id,
    description = excluded.description,
    amount = excluded.amount,
    date = excluded.date,
    details_blob = excluded.details_blob,
    category_blob = excluded.category_blob
WHERE transactions.is_manual = 0`

func (q *Queries) UpsertExternal(ctx context.Context, arg TransactionRow) error {
	_, err := q.db.ExecContext(ctx, upsertExternal,
		arg.ID, arg.AccountID, arg.Description, arg.Amount, arg.Date,
		arg.DetailsBlob, arg.CategoryBlob)
	return err
}

const deleteTransaction = `DELETE FROM transactions WHERE id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTransaction, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteExternal = `DELETE FROM transactions WHERE is_manual = 0`

func (q *Queries) DeleteExternal(ctx context.Context) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteExternal)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const getTransaction = `SELECT ` + transactionColumns + ` FROM transactions WHERE id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id string) (TransactionRow, error) {
	row := q.db.QueryRowContext(ctx, getTransaction, id)
	var i TransactionRow
	err := row.Scan(&i.ID, &i.AccountID, &i.Description, &i.Amount, &i.Date,
		&i.DetailsBlob, &i.CategoryBlob, &i.IsManual)
	return i, err
}

const listTransactions = `SELECT ` + transactionColumns + ` FROM transactions` + orderByDate

func (q *Queries) ListTransactions(ctx context.Context) ([]TransactionRow, error) {
	return q.listRows(ctx, listTransactions)
}

const listByOrigin = `SELECT ` + transactionColumns + ` FROM transactions WHERE is_manual = ?` + orderByDate

func (q *Queries) ListByOrigin(ctx context.Context, manual bool) ([]TransactionRow, error) {
	return q.listRows(ctx, listByOrigin, manual)
}

func (q *Queries) listRows(ctx context.Context, query string, args ...interface{}) ([]TransactionRow, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TransactionRow
	for rows.Next() {
		var i TransactionRow
		if err := rows.Scan(&i.ID, &i.AccountID, &i.Description, &i.Amount, &i.Date,
			&i.DetailsBlob, &i.CategoryBlob, &i.IsManual); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const isManual = `SELECT is_manual FROM transactions WHERE id = ?`

// IsManual reports whether id is stored and flagged manual.
func (q *Queries) IsManual(ctx context.Context, id string) (bool, error) {
	var manual bool
	err := q.db.QueryRowContext(ctx, isManual, id).Scan(&manual)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return manual, err
}

const insertTombstone = `INSERT INTO deleted_manual (id, deleted_at)
VALUES (?, CURRENT_TIMESTAMP)
ON CONFLICT(id) DO UPDATE SET deleted_at = CURRENT_TIMESTAMP`

func (q *Queries) InsertTombstone(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, insertTombstone, id)
	return err
}

const deleteTombstone = `DELETE FROM deleted_manual WHERE id = ?`

func (q *Queries) DeleteTombstone(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, deleteTombstone, id)
	return err
}

const listTombstones = `SELECT id FROM deleted_manual ORDER BY id`

func (q *Queries) ListTombstones(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listTombstones)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

const getCredential = `SELECT access_token FROM credentials WHERE user_id = ?`

func (q *Queries) GetCredential(ctx context.Context, userID string) (string, error) {
	var token string
	err := q.db.QueryRowContext(ctx, getCredential, userID).Scan(&token)
	return token, err
}

const upsertCredential = `INSERT INTO credentials (user_id, access_token, updated_at)
VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(user_id) DO UPDATE SET
    access_token = excluded.access_token,
    updated_at = CURRENT_TIMESTAMP`

func (q *Queries) UpsertCredential(ctx context.Context, userID, token string) error {
	_, err := q.db.ExecContext(ctx, upsertCredential, userID, token)
	return err
}

const deleteCredential = `DELETE FROM credentials WHERE user_id = ?`

func (q *Queries) DeleteCredential(ctx context.Context, userID string) error {
	_, err := q.db.ExecContext(ctx, deleteCredential, userID)
	return err
}
