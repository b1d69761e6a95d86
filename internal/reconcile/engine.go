// Package reconcile merges the bank feed with manual entries into the local
// store and publishes the merged, date-sorted list to subscribers.
//
// A cycle moves Idle -> Fetching -> Classifying -> Persisting -> Mirroring -> Idle.
// Failures while fetching or persisting move it to Error and leave the store
// as it was. Mirror and score publication run in the background and never
// fail the caller.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"trackify/internal/classifier"
	"trackify/internal/core"
	applog "trackify/internal/log"
	"trackify/internal/mirror"
	"trackify/internal/source"
	"trackify/internal/telemetry"
)

// Store is the local, authoritative transaction collection.
type Store interface {
	InsertOrReplace(ctx context.Context, txs ...core.Transaction) error
	DeleteByID(ctx context.Context, id string) error
	ReplaceExternal(ctx context.Context, txs []core.Transaction) error
	QueryAll(ctx context.Context) ([]core.Transaction, error)
	ListManual(ctx context.Context) ([]core.Transaction, error)
	// DeletedManualIDs lists manual ids deleted locally.
	DeletedManualIDs(ctx context.Context) ([]string, error)
}

// Scorer recomputes and publishes the user's leaderboard record.
type Scorer interface {
	RecomputeAndPublish(ctx context.Context, user core.User, txs []core.Transaction) (core.UserScore, error)
}

// Phase is the engine's position in a reconciliation cycle.
type Phase int

const (
	Idle Phase = iota
	Fetching
	Classifying
	Persisting
	Mirroring
	Failed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Fetching:
		return "fetching"
	case Classifying:
		return "classifying"
	case Persisting:
		return "persisting"
	case Mirroring:
		return "mirroring"
	case Failed:
		return "error"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Status is the observable engine state. Message is set only in the Failed phase.
type Status struct {
	Phase       Phase
	Message     string
	CycleID     string
	LastSuccess time.Time
}

// Error carries the user-visible message for a failed operation. It wraps a
// *core.SourceError or *core.StorageError.
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Err }

const (
	msgNoAccounts  = "No accounts found"
	msgFetchFailed = "Error fetching transactions: "
	msgSaveFailed  = "Error saving transactions: "
)

// Deps are the engine's collaborators. Mirror, Reader and Scorer are optional.
type Deps struct {
	Store  Store
	Source source.Source
	Mirror *mirror.Dispatcher
	// Reader lists the remote copy for RestoreManual.
	Reader mirror.Reader
	Scorer Scorer
	Logger *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

type Engine struct {
	user   core.User
	store  Store
	source source.Source
	mirror *mirror.Dispatcher
	reader mirror.Reader
	scorer Scorer
	logger *slog.Logger
	now    func() time.Time

	// mu serializes writes to the store, the publish that follows them and
	// the order in which their mirror work is queued.
	mu         sync.Mutex
	appliedSeq uint64
	startedSeq atomic.Uint64
	// scoreVersion is the newest snapshot version queued for scoring.
	scoreVersion atomic.Uint64

	statusMu sync.RWMutex
	status   Status

	idMu   sync.Mutex
	lastID int64

	feed *feed
}

func NewEngine(user core.User, deps Deps) (*Engine, error) {
	if err := user.Validate(); err != nil {
		return nil, err
	}
	if deps.Store == nil || deps.Source == nil {
		return nil, errors.New("reconcile engine needs a store and a source")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Mirror == nil {
		deps.Mirror = mirror.NewDispatcher(nil, mirror.DefaultDispatcherConfig(), logger)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Engine{
		user:   user,
		store:  deps.Store,
		source: deps.Source,
		mirror: deps.Mirror,
		reader: deps.Reader,
		scorer: deps.Scorer,
		logger: logger.With(applog.FieldComponent, applog.ComponentReconcile, applog.FieldUserID, user.ID),
		now:    deps.Now,
		feed:   newFeed(),
	}, nil
}

// Status returns the current phase and, after a failure, its message.
func (e *Engine) Status() Status {
	e.statusMu.RLock()
	defer e.statusMu.RUnlock()
	return e.status
}

// progress moves the status forward unless a newer cycle has started.
func (e *Engine) progress(seq uint64, p Phase, cycleID string) {
	if seq != e.startedSeq.Load() {
		return
	}
	e.setPhase(p, cycleID)
}

func (e *Engine) setPhase(p Phase, cycleID string) {
	e.statusMu.Lock()
	defer e.statusMu.Unlock()
	e.status.Phase = p
	e.status.CycleID = cycleID
	if p != Failed {
		e.status.Message = ""
	}
}

func (e *Engine) setFailed(cycleID, message string) {
	e.statusMu.Lock()
	defer e.statusMu.Unlock()
	e.status.Phase = Failed
	e.status.CycleID = cycleID
	e.status.Message = message
}

func (e *Engine) setSucceeded(cycleID string) {
	e.statusMu.Lock()
	defer e.statusMu.Unlock()
	e.status.Phase = Idle
	e.status.CycleID = cycleID
	e.status.Message = ""
	e.status.LastSuccess = e.now()
}

// Refresh republishes the stored collection without fetching.
func (e *Engine) Refresh(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.readAndPublish(ctx); err != nil {
		return &Error{Message: msgSaveFailed + err.Error(), Err: err}
	}
	return nil
}

// Reconcile fetches the first account's transactions, classifies them and
// replaces the external partition. A fetch that completes after a newer
// cycle has already been applied is discarded.
func (e *Engine) Reconcile(ctx context.Context, accessToken string) (err error) {
	cycleID := uuid.NewString()
	start := time.Now()

	seq := e.startedSeq.Add(1)

	ctx, span := telemetry.StartSpan(ctx, "reconcile.Reconcile", attribute.String("cycle_id", cycleID))
	defer func() {
		telemetry.EndSpan(span, err)
		attrs := metric.WithAttributes(telemetry.Outcome(err))
		telemetry.ReconcileTotal.Add(ctx, 1, attrs)
		telemetry.ReconcileDuration.Record(ctx, time.Since(start).Seconds(), attrs)
	}()

	logger := e.logger.With(applog.FieldCycleID, cycleID)
	logger.InfoContext(ctx, "Reconciliation started")

	e.progress(seq, Fetching, cycleID)
	fetched, err := e.fetch(ctx, accessToken)
	if err != nil {
		return e.fail(ctx, logger, seq, cycleID, err)
	}
	telemetry.TransactionsFetched.Add(ctx, int64(len(fetched)))

	e.progress(seq, Classifying, cycleID)
	classified := classifier.ClassifyAll(fetched)
	for i := range classified {
		classified[i].Origin = core.External
	}

	e.mu.Lock()
	if seq < e.appliedSeq {
		applied := e.appliedSeq
		e.mu.Unlock()
		logger.InfoContext(ctx, "Discarding stale fetch", "seq", seq, "applied_seq", applied)
		return nil
	}
	e.progress(seq, Persisting, cycleID)
	if err := e.store.ReplaceExternal(ctx, classified); err != nil {
		e.mu.Unlock()
		return e.fail(ctx, logger, seq, cycleID, err)
	}
	e.appliedSeq = seq
	e.progress(seq, Mirroring, cycleID)
	e.mirror.SaveTransactions(ctx, e.user.ID, classified)
	snap := e.publishLocked(ctx, logger)
	e.mu.Unlock()

	if seq == e.startedSeq.Load() {
		e.setSucceeded(cycleID)
	}
	logger.InfoContext(ctx, "Reconciliation completed",
		applog.FieldCount, len(classified),
		"total", len(snap.Transactions),
		applog.FieldDuration, time.Since(start).Milliseconds())
	return nil
}

func (e *Engine) fetch(ctx context.Context, accessToken string) ([]core.Transaction, error) {
	accounts, err := e.source.ListAccounts(ctx, accessToken)
	if err != nil {
		return nil, &core.SourceError{Op: "list accounts", Err: err}
	}
	if len(accounts) == 0 {
		return nil, &core.SourceError{Op: "list accounts", Err: core.ErrNoAccounts}
	}
	// Only the first account is reconciled.
	txs, err := e.source.ListTransactions(ctx, accessToken, accounts[0].ID)
	if err != nil {
		return nil, &core.SourceError{Op: "list transactions", Err: err}
	}
	return txs, nil
}

// fail records the failure unless a newer cycle has started, and builds the
// user-visible error.
func (e *Engine) fail(ctx context.Context, logger *slog.Logger, seq uint64, cycleID string, err error) error {
	var message, errType string
	var se *core.SourceError
	switch {
	case errors.Is(err, core.ErrNoAccounts):
		message, errType = msgNoAccounts, applog.ErrorTypeSource
	case errors.As(err, &se):
		message, errType = msgFetchFailed+se.Err.Error(), applog.ErrorTypeSource
	default:
		message, errType = msgSaveFailed+err.Error(), applog.ErrorTypeDatabase
	}

	if seq == e.startedSeq.Load() {
		e.setFailed(cycleID, message)
	}

	logger.ErrorContext(ctx, "Reconciliation failed",
		applog.FieldError, err,
		applog.FieldErrorType, errType)
	return &Error{Message: message, Err: err}
}

// readAndPublish re-reads the store and publishes it. Callers hold e.mu.
func (e *Engine) readAndPublish(ctx context.Context) (Snapshot, error) {
	all, err := e.store.QueryAll(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return e.feed.publish(all), nil
}

// publishLocked publishes the store after a committed write and queues a
// rescore over the new list. The write stands even if the re-read fails; the
// failure is logged and subscribers catch up on the next publish. Callers
// hold e.mu.
func (e *Engine) publishLocked(ctx context.Context, logger *slog.Logger) Snapshot {
	snap, err := e.readAndPublish(ctx)
	if err != nil {
		logger.WarnContext(ctx, "Stored changes not published",
			applog.FieldError, err,
			applog.FieldErrorType, applog.ErrorTypeDatabase)
		return Snapshot{}
	}
	e.rescore(ctx, snap)
	return snap
}

// rescore queues a score recomputation over snap. Score jobs run one at a
// time in publish order, and a job is skipped once a newer one is queued.
func (e *Engine) rescore(ctx context.Context, snap Snapshot) {
	if e.scorer == nil {
		return
	}
	e.scoreVersion.Store(snap.Version)
	e.mirror.GoOrdered(ctx, "scores/"+e.user.ID, applog.OpScore, e.user.ID, func(ctx context.Context) error {
		if snap.Version < e.scoreVersion.Load() {
			return nil
		}
		_, err := e.scorer.RecomputeAndPublish(ctx, e.user, snap.Transactions)
		return err
	})
}

func (e *Engine) nextManualID() string {
	e.idMu.Lock()
	defer e.idMu.Unlock()
	ms := e.now().UnixMilli()
	if ms <= e.lastID {
		ms = e.lastID + 1
	}
	e.lastID = ms
	return core.ManualIDPrefix + strconv.FormatInt(ms, 10)
}

// resolveCategory maps a user-chosen name onto a standard category when it
// names one, and keeps it verbatim otherwise. An empty name is classified.
func resolveCategory(name, description, signedAmount string) core.Category {
	name = strings.TrimSpace(name)
	if name == "" {
		return classifier.Classify(description, signedAmount).Category()
	}
	std := core.StandardCategoryFromDisplayName(name)
	if std != core.Other || strings.EqualFold(name, core.Other.DisplayName()) || strings.EqualFold(name, string(core.Other)) {
		return std.Category()
	}
	return core.Category{Primary: name, Detailed: name}
}

// AddTransaction stores a manual transaction dated today. The amount's sign
// is forced negative unless the category is Income.
func (e *Engine) AddTransaction(ctx context.Context, description, amount, category string) (core.Transaction, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return core.Transaction{}, core.ErrEmptyDescription
	}
	signed, err := core.SignedAmount(amount, core.IsIncomeCategory(category))
	if err != nil {
		return core.Transaction{}, err
	}

	tx := core.Transaction{
		ID:          e.nextManualID(),
		Description: description,
		Amount:      signed,
		Date:        core.FormatDate(e.now()),
		Origin:      core.Manual,
	}
	cat := resolveCategory(category, description, signed)
	tx.Category = &cat

	e.mu.Lock()
	if err := e.store.InsertOrReplace(ctx, tx); err != nil {
		e.mu.Unlock()
		e.logger.ErrorContext(ctx, "Failed to add transaction", applog.FieldError, err, applog.FieldTxID, tx.ID)
		return core.Transaction{}, &Error{Message: msgSaveFailed + err.Error(), Err: err}
	}
	e.mirror.SaveTransaction(ctx, e.user.ID, tx)
	e.publishLocked(ctx, e.logger)
	e.mu.Unlock()

	telemetry.ManualMutations.Add(ctx, 1, metric.WithAttributes(attribute.String("op", applog.OpAdd)))

	e.logger.InfoContext(ctx, "Manual transaction added",
		applog.FieldTxID, tx.ID,
		applog.FieldAmount, tx.Amount,
		applog.FieldCategory, cat.Primary)
	return tx, nil
}

// DeleteTransaction removes id locally. Missing ids are not an error.
func (e *Engine) DeleteTransaction(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return core.ErrEmptyID
	}

	e.mu.Lock()
	if err := e.store.DeleteByID(ctx, id); err != nil {
		e.mu.Unlock()
		e.logger.ErrorContext(ctx, "Failed to delete transaction", applog.FieldError, err, applog.FieldTxID, id)
		return &Error{Message: msgSaveFailed + err.Error(), Err: err}
	}
	e.mirror.DeleteTransaction(ctx, e.user.ID, id)
	e.publishLocked(ctx, e.logger)
	e.mu.Unlock()

	telemetry.ManualMutations.Add(ctx, 1, metric.WithAttributes(attribute.String("op", applog.OpDelete)))

	e.logger.InfoContext(ctx, "Transaction deleted", applog.FieldTxID, id)
	return nil
}

// RestoreManual copies manual transactions that exist in the remote mirror
// but not locally back into the store. Ids deleted locally are never
// restored; their remote copies are deleted again instead. Remote failures
// are logged and reported as zero restored.
func (e *Engine) RestoreManual(ctx context.Context) (int, error) {
	if e.reader == nil {
		return 0, nil
	}
	remote, err := e.reader.ListTransactions(ctx, e.user.ID)
	if err != nil {
		e.logger.WarnContext(ctx, "Remote restore skipped",
			applog.FieldOperation, applog.OpRestore,
			applog.FieldError, &core.MirrorError{Op: applog.OpRestore, UserID: e.user.ID, Err: err})
		return 0, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	local, err := e.store.ListManual(ctx)
	if err != nil {
		return 0, &Error{Message: msgSaveFailed + err.Error(), Err: err}
	}
	deleted, err := e.store.DeletedManualIDs(ctx)
	if err != nil {
		return 0, &Error{Message: msgSaveFailed + err.Error(), Err: err}
	}
	skip := make(map[string]bool, len(local)+len(deleted))
	for _, t := range local {
		skip[t.ID] = true
	}
	gone := make(map[string]bool, len(deleted))
	for _, id := range deleted {
		gone[id] = true
	}

	var missing []core.Transaction
	for _, t := range remote {
		if !t.IsManual() || skip[t.ID] {
			continue
		}
		if gone[t.ID] {
			e.mirror.DeleteTransaction(ctx, e.user.ID, t.ID)
			e.logger.InfoContext(ctx, "Deleting stale remote copy", applog.FieldTxID, t.ID)
			continue
		}
		missing = append(missing, t)
	}
	if len(missing) == 0 {
		return 0, nil
	}

	if err := e.store.InsertOrReplace(ctx, missing...); err != nil {
		return 0, &Error{Message: msgSaveFailed + err.Error(), Err: err}
	}
	e.publishLocked(ctx, e.logger)

	e.logger.InfoContext(ctx, "Manual transactions restored from mirror", applog.FieldCount, len(missing))
	return len(missing), nil
}

// Subscribe returns a channel that receives the merged list after every
// change, starting with the current one if any. Slow readers only see the
// latest list. Call cancel to stop receiving.
func (e *Engine) Subscribe() (<-chan Snapshot, func()) {
	return e.feed.subscribe()
}

// Snapshot returns the most recently published list.
func (e *Engine) Snapshot() Snapshot {
	return e.feed.current()
}

// Wait blocks until background mirror and score work has finished.
func (e *Engine) Wait(ctx context.Context) error {
	return e.mirror.Wait(ctx)
}
