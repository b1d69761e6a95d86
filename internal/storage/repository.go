package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"trackify/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the durable local transaction store. It exclusively owns
// the transaction collection; everything remote is a derived copy.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// A single connection serializes writers and makes every committed
	// transaction visible to readers all at once.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) withTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(r.queries.WithTx(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// InsertOrReplace upserts one or many transactions by id in a single commit.
// Writing a manual row clears any deletion record for its id.
func (r *SQLiteRepository) InsertOrReplace(ctx context.Context, txs ...core.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	err := r.withTx(ctx, func(q *Queries) error {
		for _, t := range txs {
			row, err := toRow(t)
			if err != nil {
				return err
			}
			if err := q.UpsertTransaction(ctx, row); err != nil {
				return fmt.Errorf("upsert transaction %s: %w", t.ID, err)
			}
			if row.IsManual {
				if err := q.DeleteTombstone(ctx, t.ID); err != nil {
					return fmt.Errorf("clear deletion record %s: %w", t.ID, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return storageErr("insert or replace", err)
	}

	slog.DebugContext(ctx, "Transactions saved to SQLite", "count", len(txs))
	return nil
}

// DeleteByID removes a transaction. Deleting a missing id is not an error.
// Removing a manual row records its id in deleted_manual in the same commit,
// so a stale remote copy can be told apart from a lost local one.
func (r *SQLiteRepository) DeleteByID(ctx context.Context, id string) error {
	var n int64
	err := r.withTx(ctx, func(q *Queries) error {
		manual, err := q.IsManual(ctx, id)
		if err != nil {
			return fmt.Errorf("look up transaction %s: %w", id, err)
		}
		if n, err = q.DeleteTransaction(ctx, id); err != nil {
			return fmt.Errorf("delete transaction %s: %w", id, err)
		}
		if manual {
			if err := q.InsertTombstone(ctx, id); err != nil {
				return fmt.Errorf("record deletion %s: %w", id, err)
			}
		}
		return nil
	})
	if err != nil {
		return storageErr("delete", err)
	}
	slog.DebugContext(ctx, "Transaction deleted from SQLite", "id", id, "rows", n)
	return nil
}

// DeletedManualIDs lists manual ids removed locally.
func (r *SQLiteRepository) DeletedManualIDs(ctx context.Context) ([]string, error) {
	out, err := r.queries.ListTombstones(ctx)
	if err != nil {
		return nil, storageErr("list deleted manual", err)
	}
	return out, nil
}

// DeleteAllExternal removes every row not flagged manual.
func (r *SQLiteRepository) DeleteAllExternal(ctx context.Context) error {
	n, err := r.queries.DeleteExternal(ctx)
	if err != nil {
		return storageErr("delete external", err)
	}
	slog.DebugContext(ctx, "External transactions deleted", "rows", n)
	return nil
}

// ReplaceExternal swaps the whole external partition for txs in one database
// transaction. Readers see either the old partition or the new one. Manual rows
// are left untouched, including any whose id collides with an incoming row.
func (r *SQLiteRepository) ReplaceExternal(ctx context.Context, txs []core.Transaction) error {
	var removed int64
	err := r.withTx(ctx, func(q *Queries) error {
		n, err := q.DeleteExternal(ctx)
		if err != nil {
			return fmt.Errorf("delete external: %w", err)
		}
		removed = n
		for _, t := range txs {
			row, err := toRow(t)
			if err != nil {
				return err
			}
			if err := q.UpsertExternal(ctx, row); err != nil {
				return fmt.Errorf("insert external %s: %w", t.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return storageErr("replace external", err)
	}

	slog.InfoContext(ctx, "External partition replaced",
		"removed", removed,
		"inserted", len(txs))
	return nil
}

// QueryAll returns every transaction, most recent date first.
func (r *SQLiteRepository) QueryAll(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx)
	if err != nil {
		return nil, storageErr("query all", err)
	}
	return fromRows(ctx, rows), nil
}

// ListManual returns the manual partition, most recent date first.
func (r *SQLiteRepository) ListManual(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.queries.ListByOrigin(ctx, true)
	if err != nil {
		return nil, storageErr("list manual", err)
	}
	return fromRows(ctx, rows), nil
}

// ListExternal returns the external partition, most recent date first.
func (r *SQLiteRepository) ListExternal(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.queries.ListByOrigin(ctx, false)
	if err != nil {
		return nil, storageErr("list external", err)
	}
	return fromRows(ctx, rows), nil
}

// Get returns a single transaction or core.ErrNotFound.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (core.Transaction, error) {
	row, err := r.queries.GetTransaction(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, storageErr("get", err)
	}
	return fromRow(ctx, row), nil
}

// GetAccessToken implements session.LocalCache.
func (r *SQLiteRepository) GetAccessToken(ctx context.Context, userID string) (string, error) {
	token, err := r.queries.GetCredential(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", core.ErrNotFound
	}
	if err != nil {
		return "", storageErr("get credential", err)
	}
	return token, nil
}

// SetAccessToken implements session.LocalCache.
func (r *SQLiteRepository) SetAccessToken(ctx context.Context, userID, token string) error {
	if err := r.queries.UpsertCredential(ctx, userID, token); err != nil {
		return storageErr("set credential", err)
	}
	return nil
}

// DeleteAccessToken implements session.LocalCache.
func (r *SQLiteRepository) DeleteAccessToken(ctx context.Context, userID string) error {
	if err := r.queries.DeleteCredential(ctx, userID); err != nil {
		return storageErr("delete credential", err)
	}
	return nil
}

func storageErr(op string, err error) error {
	return &core.StorageError{Op: op, Err: err}
}

func toRow(t core.Transaction) (TransactionRow, error) {
	if t.ID == "" {
		return TransactionRow{}, core.ErrEmptyID
	}
	details, err := json.Marshal(t.Details)
	if err != nil {
		return TransactionRow{}, fmt.Errorf("encode details %s: %w", t.ID, err)
	}
	row := TransactionRow{
		ID:          t.ID,
		AccountID:   t.AccountID,
		Description: t.Description,
		Amount:      t.Amount,
		Date:        t.Date,
		DetailsBlob: string(details),
		IsManual:    t.IsManual(),
	}
	if t.Category != nil {
		cat, err := json.Marshal(t.Category)
		if err != nil {
			return TransactionRow{}, fmt.Errorf("encode category %s: %w", t.ID, err)
		}
		row.CategoryBlob = sql.NullString{String: string(cat), Valid: true}
	}
	return row, nil
}

func fromRows(ctx context.Context, rows []TransactionRow) []core.Transaction {
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromRow(ctx, row))
	}
	return out
}

// fromRow never drops a row: undecodable blobs are logged and left empty.
func fromRow(ctx context.Context, row TransactionRow) core.Transaction {
	t := core.Transaction{
		ID:          row.ID,
		AccountID:   row.AccountID,
		Description: row.Description,
		Amount:      row.Amount,
		Date:        row.Date,
		Origin:      core.External,
	}
	if row.IsManual {
		t.Origin = core.Manual
	}
	if row.DetailsBlob != "" {
		if err := json.Unmarshal([]byte(row.DetailsBlob), &t.Details); err != nil {
			slog.WarnContext(ctx, "Failed to decode details blob", "id", row.ID, "error", err)
		}
	}
	if row.CategoryBlob.Valid && row.CategoryBlob.String != "" {
		var c core.Category
		if err := json.Unmarshal([]byte(row.CategoryBlob.String), &c); err != nil {
			slog.WarnContext(ctx, "Failed to decode category blob", "id", row.ID, "error", err)
		} else {
			t.Category = &c
		}
	}
	return t
}
