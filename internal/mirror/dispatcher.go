package mirror

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/semaphore"

	"trackify/internal/core"
	applog "trackify/internal/log"
	"trackify/internal/telemetry"
)

// DispatcherConfig bounds background mirror work.
type DispatcherConfig struct {
	// Concurrency is the max number of mirror calls in flight (default: 4)
	Concurrency int

	// Timeout caps each mirror call (default: 30s)
	Timeout time.Duration
}

// DefaultDispatcherConfig returns sensible defaults
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		Concurrency: 4,
		Timeout:     30 * time.Second,
	}
}

// Dispatcher runs mirror calls detached from the caller. Failures become
// *core.MirrorError values that are logged and counted, never returned.
//
// Calls queued under the same key run one at a time in dispatch order.
// Transaction writes for a user share one key.
type Dispatcher struct {
	writer  Writer
	sem     *semaphore.Weighted
	timeout time.Duration
	logger  *slog.Logger

	mu    sync.Mutex
	tails map[string]chan struct{}

	wg        sync.WaitGroup
	failures  atomic.Int64
	completed atomic.Int64
}

// NewDispatcher wraps w. A nil writer turns every call into a logged no-op.
func NewDispatcher(w Writer, config DispatcherConfig, logger *slog.Logger) *Dispatcher {
	if config.Concurrency < 1 {
		config.Concurrency = DefaultDispatcherConfig().Concurrency
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultDispatcherConfig().Timeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		writer:  w,
		sem:     semaphore.NewWeighted(int64(config.Concurrency)),
		timeout: config.Timeout,
		logger:  logger.With(applog.FieldComponent, applog.ComponentMirror),
		tails:   make(map[string]chan struct{}),
	}
}

func transactionsKey(userID string) string { return "transactions/" + userID }

// Go runs fn in the background. The caller's cancellation does not reach fn;
// each run gets its own timeout instead.
func (d *Dispatcher) Go(ctx context.Context, op, userID string, fn func(ctx context.Context) error) {
	d.dispatch(ctx, "", op, userID, fn)
}

// GoOrdered is Go, except fn starts only after every call previously queued
// under key has finished.
func (d *Dispatcher) GoOrdered(ctx context.Context, key, op, userID string, fn func(ctx context.Context) error) {
	d.dispatch(ctx, key, op, userID, fn)
}

func (d *Dispatcher) dispatch(ctx context.Context, key, op, userID string, fn func(ctx context.Context) error) {
	base := context.WithoutCancel(ctx)
	prev, done := d.enqueue(key)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if done != nil {
			defer d.dequeue(key, done)
		}
		if prev != nil {
			<-prev
		}
		if err := d.sem.Acquire(base, 1); err != nil {
			return
		}
		defer d.sem.Release(1)

		runCtx, cancel := context.WithTimeout(base, d.timeout)
		defer cancel()
		runCtx, span := telemetry.StartSpan(runCtx, "mirror."+op,
			attribute.String("user_id", userID))

		err := fn(runCtx)
		telemetry.EndSpan(span, err)
		telemetry.MirrorTotal.Add(runCtx, 1, metric.WithAttributes(
			attribute.String("op", op), telemetry.Outcome(err)))

		if err != nil {
			d.failures.Add(1)
			merr := &core.MirrorError{Op: op, UserID: userID, Err: err}
			d.logger.WarnContext(runCtx, "Mirror operation failed",
				applog.FieldOperation, op,
				applog.FieldUserID, userID,
				applog.FieldErrorType, applog.ErrorTypeNetwork,
				applog.FieldError, merr)
			return
		}
		d.completed.Add(1)
		d.logger.DebugContext(runCtx, "Mirror operation completed",
			applog.FieldOperation, op,
			applog.FieldUserID, userID)
	}()
}

// enqueue appends a slot to key's chain and returns the previous tail.
func (d *Dispatcher) enqueue(key string) (prev <-chan struct{}, done chan struct{}) {
	if key == "" {
		return nil, nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if tail, ok := d.tails[key]; ok {
		prev = tail
	}
	done = make(chan struct{})
	d.tails[key] = done
	return prev, done
}

func (d *Dispatcher) dequeue(key string, done chan struct{}) {
	close(done)
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.tails[key] == done {
		delete(d.tails, key)
	}
}

// SaveTransaction mirrors one transaction without waiting for the result.
func (d *Dispatcher) SaveTransaction(ctx context.Context, userID string, tx core.Transaction) {
	if !d.available(ctx, applog.OpSave) {
		return
	}
	d.GoOrdered(ctx, transactionsKey(userID), applog.OpSave, userID, func(ctx context.Context) error {
		return d.writer.SaveTransaction(ctx, userID, tx)
	})
}

// SaveTransactions mirrors a batch without waiting for the result.
func (d *Dispatcher) SaveTransactions(ctx context.Context, userID string, txs []core.Transaction) {
	if len(txs) == 0 || !d.available(ctx, applog.OpSaveBatch) {
		return
	}
	batch := append([]core.Transaction(nil), txs...)
	d.GoOrdered(ctx, transactionsKey(userID), applog.OpSaveBatch, userID, func(ctx context.Context) error {
		return d.writer.SaveTransactions(ctx, userID, batch)
	})
}

// DeleteTransaction mirrors a deletion without waiting for the result.
func (d *Dispatcher) DeleteTransaction(ctx context.Context, userID, id string) {
	if !d.available(ctx, applog.OpDelete) {
		return
	}
	d.GoOrdered(ctx, transactionsKey(userID), applog.OpDelete, userID, func(ctx context.Context) error {
		return d.writer.DeleteTransaction(ctx, userID, id)
	})
}

func (d *Dispatcher) available(ctx context.Context, op string) bool {
	if d.writer == nil {
		d.logger.DebugContext(ctx, "Mirror not configured, skipping", applog.FieldOperation, op)
		return false
	}
	return true
}

// Wait blocks until all dispatched work finishes or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Failures returns the number of mirror calls that failed.
func (d *Dispatcher) Failures() int64 {
	return d.failures.Load()
}

// Completed returns the number of mirror calls that succeeded.
func (d *Dispatcher) Completed() int64 {
	return d.completed.Load()
}
