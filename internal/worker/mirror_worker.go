package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"trackify/internal/amqp"
	applog "trackify/internal/log"
	"trackify/internal/mirror"
	"trackify/internal/telemetry"
)

// MirrorWorker applies queued mirror jobs to the remote backend.
type MirrorWorker struct {
	writer mirror.Writer
	logger *slog.Logger

	applied atomic.Int64
	failed  atomic.Int64
}

func NewMirrorWorker(writer mirror.Writer, logger *slog.Logger) *MirrorWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &MirrorWorker{
		writer: writer,
		logger: logger.With(applog.FieldComponent, applog.ComponentWorker),
	}
}

// HandleJob applies one job. A returned error makes the consumer requeue it.
func (w *MirrorWorker) HandleJob(ctx context.Context, job *amqp.MirrorJob) error {
	ctx, span := telemetry.StartSpan(ctx, "worker.HandleJob")
	var err error
	defer func() { telemetry.EndSpan(span, err) }()

	if err = job.Validate(); err != nil {
		// Invalid jobs would fail forever; drop them.
		w.logger.WarnContext(ctx, "Dropping invalid mirror job", "job_id", job.ID, "error", err)
		err = nil
		return nil
	}

	w.logger.InfoContext(ctx, "Processing mirror job",
		"job_id", job.ID,
		"op", job.Op,
		applog.FieldUserID, job.UserID,
		applog.FieldCount, len(job.Transactions))

	switch job.Op {
	case amqp.OpSave:
		err = w.writer.SaveTransaction(ctx, job.UserID, job.Transactions[0])
	case amqp.OpSaveBatch:
		err = w.writer.SaveTransactions(ctx, job.UserID, job.Transactions)
	case amqp.OpDelete:
		err = w.writer.DeleteTransaction(ctx, job.UserID, job.TransactionID)
	}

	if err != nil {
		w.failed.Add(1)
		err = fmt.Errorf("apply %s job %s: %w", job.Op, job.ID, err)
		return err
	}

	w.applied.Add(1)
	w.logger.InfoContext(ctx, "Successfully applied mirror job", "job_id", job.ID, "op", job.Op)
	return nil
}

// Stats returns the number of applied and failed jobs since start.
func (w *MirrorWorker) Stats() (applied, failed int64) {
	return w.applied.Load(), w.failed.Load()
}
