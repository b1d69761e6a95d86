package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"trackify/internal/aggregate"
	"trackify/internal/backend"
	"trackify/internal/cache"
	"trackify/internal/cli"
	"trackify/internal/core"
	applog "trackify/internal/log"
	"trackify/internal/mirror"
	"trackify/internal/reconcile"
	"trackify/internal/scoring"
	"trackify/internal/session"
)

const leaderboardSize = 10

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	base := logger.Base()

	logger.Info("Starting trackify-sync")

	cfg := cli.LoadAndValidateConfig(logger)
	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)

	bootCtx, bootCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer bootCancel()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger.Logger, "Invalid backend configuration", err)
	}
	factory := backend.NewFactory(base)
	remote, err := factory.CreateMirror(bootCtx, backendCfg)
	if err != nil {
		cli.Fatal(logger.Logger, "Failed to initialize mirror", err, applog.FieldBackend, backendCfg.Mirror)
	}
	src, err := factory.CreateSource(backendCfg)
	if err != nil {
		cli.Fatal(logger.Logger, "Failed to initialize bank source", err, applog.FieldSource, backendCfg.Source)
	}

	user := core.User{ID: cfg.UserID, DisplayName: cfg.UserDisplayName}

	tokens := session.NewManager(user.ID, repo, remote.Tokens, base)
	if cfg.TellerAccessToken != "" {
		if err := tokens.SetAccessToken(bootCtx, cfg.TellerAccessToken); err != nil {
			cli.Fatal(logger.Logger, "Failed to store access token", err)
		}
	}

	dispatcher := mirror.NewDispatcher(remote.Writer, mirror.DispatcherConfig{
		Concurrency: cfg.MirrorConcurrency,
		Timeout:     cfg.MirrorTimeout,
	}, base)

	leaderboard := scoring.NewLeaderboard(remote.Mirror, cfg.LeaderboardCacheTTL)
	caches := cache.NewManager(base)
	if c := leaderboard.Cache(); c != nil {
		caches.Register(c)
		caches.StartCleanup(time.Minute)
	}
	scorer := scoring.NewService(remote.Mirror, leaderboard, base)

	engine, err := reconcile.NewEngine(user, reconcile.Deps{
		Store:  repo,
		Source: src,
		Mirror: dispatcher,
		Reader: remote.Mirror,
		Scorer: scorer,
		Logger: base,
	})
	if err != nil {
		cli.Fatal(logger.Logger, "Failed to initialize reconcile engine", err)
	}

	scheduler := reconcile.NewScheduler(engine, tokens.GetAccessToken, reconcile.SchedulerConfig{
		Interval:       cfg.SyncInterval,
		RunOnStart:     cfg.SyncOnStart,
		RestoreOnStart: true,
	}, base)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := scheduler.Stop(ctx); err != nil {
			logger.Warn("Scheduler did not stop cleanly", applog.FieldError, err)
		}
		if err := engine.Wait(ctx); err != nil {
			logger.Warn("Pending mirror writes abandoned", applog.FieldError, err,
				"completed", dispatcher.Completed(),
				"failed", dispatcher.Failures())
		}
		caches.Stop()
		if remote.Cleanup != nil {
			if err := remote.Cleanup(); err != nil {
				logger.Warn("Mirror cleanup failed", applog.FieldError, err)
			}
		}
		if err := repo.Close(); err != nil {
			logger.Warn("Failed to close SQLite repository", applog.FieldError, err)
		}
	})

	snapshots, unsubscribe := engine.Subscribe()
	defer unsubscribe()
	go report(ctx, base, user, snapshots, leaderboard)

	if err := scheduler.Start(ctx); err != nil {
		cli.Fatal(logger.Logger, "Failed to start scheduler", err)
	}

	logger.Info("trackify-sync running",
		applog.FieldUserID, user.ID,
		applog.FieldBackend, backendCfg.Mirror,
		applog.FieldSource, backendCfg.Source,
		"queued_writes", remote.Queued,
		"interval", cfg.SyncInterval)

	cli.WaitForShutdown(ctx, done)
}

// report logs a summary each time the merged transaction list changes.
func report(ctx context.Context, logger *slog.Logger, user core.User, snapshots <-chan reconcile.Snapshot, leaderboard *scoring.Leaderboard) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-snapshots:
			if !ok {
				return
			}
			logSnapshot(ctx, logger, user, snap, leaderboard)
		}
	}
}

func logSnapshot(ctx context.Context, logger *slog.Logger, user core.User, snap reconcile.Snapshot, leaderboard *scoring.Leaderboard) {
	totals := aggregate.Totals(snap.Transactions)
	month := core.YearMonthOf(time.Now())

	attrs := []any{
		applog.FieldCount, len(snap.Transactions),
		"version", snap.Version,
		"income", totals.Income.StringFixed(2),
		"spending", totals.Spending.StringFixed(2),
		"savings", totals.Savings.StringFixed(2),
	}
	if weeks := aggregate.PeriodTotals(snap.Transactions, core.Weekly); len(weeks) > 0 {
		attrs = append(attrs, "latest_week", weeks[0].Label, "latest_week_spending", weeks[0].Spending.StringFixed(2))
	}
	if breakdown := aggregate.CategoryBreakdown(snap.Transactions, month); len(breakdown) > 0 {
		attrs = append(attrs, "top_category", breakdown[0].Name, "top_category_pct", breakdown[0].Percentage)
	}

	rank, err := leaderboard.Rank(ctx, user.ID)
	switch {
	case err == nil:
		attrs = append(attrs, "rank", rank)
	case errors.Is(err, core.ErrNotFound):
	default:
		logger.DebugContext(ctx, "Leaderboard rank unavailable", applog.FieldError, err)
	}
	if top, err := leaderboard.TopScores(ctx, leaderboardSize); err == nil && len(top) > 0 {
		attrs = append(attrs, "leader", top[0].DisplayName, "leader_score", top[0].TotalScore)
	}

	logger.InfoContext(ctx, "Transactions updated", attrs...)
}
