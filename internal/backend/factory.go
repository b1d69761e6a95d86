package backend

import (
	"context"
	"fmt"
	"log/slog"

	"trackify/internal/amqp"
	applog "trackify/internal/log"
	"trackify/internal/mirror/firestore"
	"trackify/internal/mirror/memory"
	"trackify/internal/mirror/sheets"
	"trackify/internal/source"
	"trackify/internal/source/plaid"
	"trackify/internal/source/teller"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger.With(applog.FieldComponent, applog.ComponentBackend),
	}
}

// CreateMirror implements Factory.CreateMirror
func (f *DefaultFactory) CreateMirror(ctx context.Context, config Config) (*MirrorResult, error) {
	if !config.Mirror.IsValid() {
		return nil, fmt.Errorf("invalid mirror backend: %s", config.Mirror)
	}

	var (
		result *MirrorResult
		err    error
	)
	switch config.Mirror {
	case MemoryMirror:
		result = f.createMemoryMirror()
	case FirestoreMirror:
		result, err = f.createFirestoreMirror(ctx, config)
	case SheetsMirror:
		result, err = f.createSheetsMirror(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported mirror backend: %s", config.Mirror)
	}
	if err != nil {
		return nil, err
	}

	f.attachQueue(ctx, config, result)
	return result, nil
}

func (f *DefaultFactory) createMemoryMirror() *MirrorResult {
	store := memory.New()
	f.logger.Info("Initialized memory mirror")
	return &MirrorResult{Mirror: store, Writer: store, Tokens: store}
}

func (f *DefaultFactory) createFirestoreMirror(ctx context.Context, config Config) (*MirrorResult, error) {
	client, err := firestore.NewClient(ctx, config.FirebaseCredentialsFile, config.FirebaseProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firestore mirror: %w", err)
	}

	f.logger.Info("Initialized Firestore mirror", "project_id", config.FirebaseProjectID)
	return &MirrorResult{
		Mirror:  client,
		Writer:  client,
		Tokens:  client,
		Cleanup: client.Close,
	}, nil
}

func (f *DefaultFactory) createSheetsMirror(ctx context.Context, config Config) (*MirrorResult, error) {
	client, err := sheets.NewClient(ctx, sheets.Config{
		SpreadsheetID:      config.GoogleSpreadsheetID,
		ServiceAccountJSON: config.GoogleServiceAccountJSON,
		ServiceAccountFile: config.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets mirror: %w", err)
	}

	// Access tokens never go into a shared spreadsheet.
	f.logger.Info("Initialized Google Sheets mirror", "spreadsheet_id", config.GoogleSpreadsheetID)
	return &MirrorResult{Mirror: client, Writer: client}, nil
}

// attachQueue routes transaction writes through AMQP when a URL is set. A
// broker that cannot be reached leaves writes going straight to the mirror.
func (f *DefaultFactory) attachQueue(ctx context.Context, config Config, result *MirrorResult) {
	if config.AMQPURL == "" {
		return
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.WarnContext(ctx, "Failed to initialize AMQP client, writing mirror directly",
			applog.FieldError, err,
			applog.FieldErrorType, applog.ErrorTypeNetwork)
		return
	}

	f.logger.InfoContext(ctx, "Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)

	result.Writer = client
	result.Queued = true
	result.Cleanup = chain(client.Close, result.Cleanup)
}

// CreateSource implements Factory.CreateSource
func (f *DefaultFactory) CreateSource(config Config) (source.Source, error) {
	switch config.Source {
	case TellerSource:
		var opts []teller.Option
		if config.TellerBaseURL != "" {
			opts = append(opts, teller.WithBaseURL(config.TellerBaseURL))
		}
		if config.TellerVersion != "" {
			opts = append(opts, teller.WithVersion(config.TellerVersion))
		}
		f.logger.Info("Initialized Teller source", "base_url", config.TellerBaseURL)
		return teller.NewClient(opts...), nil
	case PlaidSource:
		client, err := plaid.NewClient(config.PlaidClientID, config.PlaidSecret, config.PlaidEnv, config.PlaidLookbackDays)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Plaid source: %w", err)
		}
		f.logger.Info("Initialized Plaid source", "environment", config.PlaidEnv)
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported source provider: %s", config.Source)
	}
}

// chain runs every non-nil cleanup and returns the first error.
func chain(fns ...CleanupFunc) CleanupFunc {
	return func() error {
		var first error
		for _, fn := range fns {
			if fn == nil {
				continue
			}
			if err := fn(); err != nil && first == nil {
				first = err
			}
		}
		return first
	}
}
