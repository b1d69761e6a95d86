// Package cli provides common CLI initialization utilities shared by
// cmd/trackify-sync and cmd/trackify-worker.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"trackify/internal/config"
	applog "trackify/internal/log"
	"trackify/internal/storage"
)

// SetupLogger builds the application logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default. Unknown levels fall back to info.
func SetupLogger() *applog.Logger {
	cfg := applog.DefaultConfig()
	if level, err := applog.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		cfg.Level = level
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		cfg.Format = format
	}
	logger := applog.New(cfg)
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed",
			applog.FieldError, err,
			applog.FieldErrorType, applog.ErrorTypeConfiguration)
		os.Exit(1)
	}
	return cfg
}

// InitSQLite initializes a SQLite repository with the given path.
// Returns the repository or exits the process on failure.
func InitSQLite(logger *applog.Logger, dbPath string) *storage.SQLiteRepository {
	sqliteRepo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository",
			applog.FieldError, err,
			applog.FieldErrorType, applog.ErrorTypeDatabase,
			"path", dbPath)
		os.Exit(1)
	}
	return sqliteRepo
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when cleanup has finished.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup(shutdownCtx)
			}
			close(finished)
		}()

		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup is done.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}

// Fatal logs msg with err and exits.
func Fatal(logger *slog.Logger, msg string, err error, args ...any) {
	logger.Error(msg, append([]any{applog.FieldError, err}, args...)...)
	os.Exit(1)
}
