package reconcile

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"trackify/internal/core"
	"trackify/internal/source"
)

func countingSource(calls *atomic.Int32) source.Func {
	return source.Func{
		Accounts: func(ctx context.Context, token string) ([]core.Account, error) {
			calls.Add(1)
			return []core.Account{{ID: "acc_1"}}, nil
		},
		Transactions: func(ctx context.Context, token, accountID string) ([]core.Transaction, error) {
			return []core.Transaction{{ID: "tx_1", Description: "Lunch", Amount: "-9", Date: "2024-03-01"}}, nil
		},
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestScheduler_Lifecycle(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int32
	f := newFixture(t, countingSource(&calls))
	token := func(ctx context.Context) (string, error) { return "tok", nil }
	s := NewScheduler(f.engine, token, SchedulerConfig{Interval: time.Hour, RunOnStart: true}, nil)

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Start(ctx); err == nil {
		t.Fatal("second Start should fail")
	}
	if !s.IsRunning() {
		t.Fatal("scheduler should be running")
	}

	waitFor(t, func() bool { return !f.engine.Status().LastSuccess.IsZero() })
	if calls.Load() != 1 {
		t.Fatalf("expected one cycle on start, got %d", calls.Load())
	}

	stopCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := s.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if s.IsRunning() {
		t.Fatal("scheduler should be stopped")
	}
	if err := s.Stop(stopCtx); err != nil {
		t.Fatalf("Stop on a stopped scheduler: %v", err)
	}
	f.wait(t)
}

func TestScheduler_TicksRepeatedly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	f := newFixture(t, countingSource(&calls))
	token := func(ctx context.Context) (string, error) { return "tok", nil }
	s := NewScheduler(f.engine, token, SchedulerConfig{Interval: 20 * time.Millisecond}, nil)

	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return calls.Load() >= 2 })
	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer stopCancel()
	if err := s.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	f.wait(t)
}

func TestScheduler_RunOnceWithoutToken(t *testing.T) {
	var calls atomic.Int32
	f := newFixture(t, countingSource(&calls))

	missing := NewScheduler(f.engine, func(ctx context.Context) (string, error) {
		return "", core.ErrNoAccessToken
	}, DefaultSchedulerConfig(), nil)
	missing.RunOnce(context.Background())

	broken := NewScheduler(f.engine, func(ctx context.Context) (string, error) {
		return "", errors.New("keychain locked")
	}, DefaultSchedulerConfig(), nil)
	broken.RunOnce(context.Background())

	if calls.Load() != 0 {
		t.Fatalf("source should not be called without a token, got %d calls", calls.Load())
	}
	if f.engine.Status().Phase != Idle {
		t.Fatalf("status = %+v", f.engine.Status())
	}
}

func TestDefaultSchedulerConfig(t *testing.T) {
	cfg := DefaultSchedulerConfig()
	if cfg.Interval != 15*time.Minute || !cfg.RunOnStart || !cfg.RestoreOnStart {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	s := NewScheduler(nil, nil, SchedulerConfig{}, nil)
	if s.config.Interval != 15*time.Minute {
		t.Fatalf("zero interval should fall back to the default, got %v", s.config.Interval)
	}
}
