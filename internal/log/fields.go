package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldCycleID    = "cycle_id"
	FieldUserID     = "user_id"
	FieldAccountID  = "account_id"
	FieldTxID       = "transaction_id"
	FieldCount      = "count"
	FieldState      = "state"
	FieldDuration   = "duration_ms"
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldErrorType  = "error_type"
	FieldOperation  = "operation"
	FieldAmount     = "amount"
	FieldCategory   = "category"
	FieldTotalScore = "total_score"
	FieldBackend    = "backend"
	FieldSource     = "source"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentReconcile = "reconcile"
	ComponentStorage   = "storage"
	ComponentMirror    = "mirror"
	ComponentScoring   = "scoring"
	ComponentSession   = "session"
	ComponentSource    = "source"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentCache     = "cache"
	ComponentBackend   = "backend"
)

// Operations defines standard operation names
const (
	OpReconcile = "reconcile"
	OpAdd       = "add"
	OpDelete    = "delete"
	OpSave      = "save"
	OpSaveBatch = "save_batch"
	OpScore     = "score"
	OpRestore   = "restore"
	OpList      = "list"
	OpShutdown  = "shutdown"
	OpStartup   = "startup"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeDatabase      = "database_error"
	ErrorTypeNetwork       = "network_error"
	ErrorTypeSource        = "source_error"
	ErrorTypeAuth          = "auth_error"
	ErrorTypeNotFound      = "not_found_error"
	ErrorTypeInternal      = "internal_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithErrorType adds error type field
func (f LogFields) WithErrorType(errorType string) LogFields {
	f[FieldErrorType] = errorType
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithUser adds user id field
func (f LogFields) WithUser(userID string) LogFields {
	f[FieldUserID] = userID
	return f
}

// WithCycle adds reconciliation cycle id field
func (f LogFields) WithCycle(cycleID string) LogFields {
	f[FieldCycleID] = cycleID
	return f
}

// WithTransaction adds transaction-related fields
func (f LogFields) WithTransaction(id, amount, category string) LogFields {
	f[FieldTxID] = id
	f[FieldAmount] = amount
	f[FieldCategory] = category
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
