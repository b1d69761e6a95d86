package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"trackify/internal/core"
)

// JobOp names the mirror mutation a job carries.
type JobOp string

const (
	OpSave      JobOp = "save"
	OpSaveBatch JobOp = "save_batch"
	OpDelete    JobOp = "delete"
)

// MirrorJob is a queued mirror mutation. Save jobs carry the full
// transactions since the worker has no access to the producer's store.
type MirrorJob struct {
	ID            string             `json:"id"`
	Op            JobOp              `json:"op"`
	UserID        string             `json:"user_id"`
	Transactions  []core.Transaction `json:"transactions,omitempty"`
	TransactionID string             `json:"transaction_id,omitempty"`
	Timestamp     time.Time          `json:"timestamp"`
}

func newJob(op JobOp, userID string) *MirrorJob {
	return &MirrorJob{
		ID:        uuid.NewString(),
		Op:        op,
		UserID:    userID,
		Timestamp: time.Now(),
	}
}

// NewSaveJob creates a job that upserts one transaction.
func NewSaveJob(userID string, tx core.Transaction) *MirrorJob {
	job := newJob(OpSave, userID)
	job.Transactions = []core.Transaction{tx}
	return job
}

// NewSaveBatchJob creates a job that upserts many transactions.
func NewSaveBatchJob(userID string, txs []core.Transaction) *MirrorJob {
	job := newJob(OpSaveBatch, userID)
	job.Transactions = append([]core.Transaction(nil), txs...)
	return job
}

// NewDeleteJob creates a job that removes one transaction.
func NewDeleteJob(userID, id string) *MirrorJob {
	job := newJob(OpDelete, userID)
	job.TransactionID = id
	return job
}

// Validate reports whether the job can be applied.
func (m *MirrorJob) Validate() error {
	if m.UserID == "" {
		return core.ErrEmptyUserID
	}
	switch m.Op {
	case OpSave, OpSaveBatch:
		if len(m.Transactions) == 0 {
			return fmt.Errorf("%s job without transactions", m.Op)
		}
	case OpDelete:
		if m.TransactionID == "" {
			return core.ErrEmptyID
		}
	default:
		return fmt.Errorf("unknown job op %q", m.Op)
	}
	return nil
}

// ToJSON converts the job to JSON bytes
func (m *MirrorJob) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// MirrorJobFromJSON decodes and validates a job.
func MirrorJobFromJSON(data []byte) (*MirrorJob, error) {
	var job MirrorJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, err
	}
	if err := job.Validate(); err != nil {
		return nil, fmt.Errorf("invalid job: %w", err)
	}
	return &job, nil
}
