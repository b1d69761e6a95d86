package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"trackify/internal/core"
	applog "trackify/internal/log"
)

// SchedulerConfig holds configuration for the periodic reconciler
type SchedulerConfig struct {
	// Interval between reconciliation cycles (default: 15m)
	Interval time.Duration

	// RunOnStart reconciles immediately when the scheduler starts (default: true)
	RunOnStart bool

	// RestoreOnStart pulls manual transactions back from the mirror before the
	// first cycle (default: true)
	RestoreOnStart bool
}

// DefaultSchedulerConfig returns sensible defaults
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Interval:       15 * time.Minute,
		RunOnStart:     true,
		RestoreOnStart: true,
	}
}

// TokenFunc resolves the bank access token for a cycle.
type TokenFunc func(ctx context.Context) (string, error)

// Scheduler runs Reconcile on a ticker.
type Scheduler struct {
	engine *Engine
	token  TokenFunc
	config SchedulerConfig
	logger *slog.Logger

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewScheduler(engine *Engine, token TokenFunc, config SchedulerConfig, logger *slog.Logger) *Scheduler {
	if config.Interval <= 0 {
		config.Interval = DefaultSchedulerConfig().Interval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		engine: engine,
		token:  token,
		config: config,
		logger: logger.With(applog.FieldComponent, applog.ComponentReconcile),
	}
}

// Start begins the reconciliation loop. Returns an error if already running.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("reconcile scheduler is already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	go s.runLoop(ctx)

	s.logger.InfoContext(ctx, "Reconcile scheduler started",
		"interval", s.config.Interval,
		"run_on_start", s.config.RunOnStart)
	return nil
}

// Stop signals the loop and waits for the in-flight cycle to finish.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		s.logger.InfoContext(ctx, "Reconcile scheduler stopped gracefully")
	case <-ctx.Done():
		s.logger.WarnContext(ctx, "Reconcile scheduler stop timed out")
		return ctx.Err()
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	return nil
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) runLoop(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	if s.config.RestoreOnStart {
		if _, err := s.engine.RestoreManual(ctx); err != nil {
			s.logger.WarnContext(ctx, "Manual restore failed", applog.FieldError, err)
		}
	}
	if err := s.engine.Refresh(ctx); err != nil {
		s.logger.WarnContext(ctx, "Initial refresh failed", applog.FieldError, err)
	}
	if s.config.RunOnStart {
		s.RunOnce(ctx)
	}

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single cycle. A missing token skips the cycle.
func (s *Scheduler) RunOnce(ctx context.Context) {
	token, err := s.token(ctx)
	if err != nil {
		if errors.Is(err, core.ErrNoAccessToken) {
			s.logger.InfoContext(ctx, "No linked bank account, skipping reconciliation")
			return
		}
		s.logger.ErrorContext(ctx, "Failed to resolve access token",
			applog.FieldError, err,
			applog.FieldErrorType, applog.ErrorTypeAuth)
		return
	}
	// Failures are logged by the engine and surfaced through Status.
	_ = s.engine.Reconcile(ctx, token)
}
