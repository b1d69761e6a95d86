package main

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"trackify/internal/amqp"
	"trackify/internal/backend"
	"trackify/internal/cli"
	applog "trackify/internal/log"
	"trackify/internal/worker"
)

const statsInterval = time.Minute

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	base := logger.Base()

	logger.Info("Starting trackify-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if !cfg.QueueEnabled() {
		logger.Error("AMQP_URL is required for the worker",
			applog.FieldErrorType, applog.ErrorTypeConfiguration)
		return
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger.Logger, "Invalid backend configuration", err)
	}
	// The worker applies jobs itself; republishing them would loop.
	backendCfg.AMQPURL = ""

	bootCtx, bootCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer bootCancel()
	remote, err := backend.NewFactory(base).CreateMirror(bootCtx, backendCfg)
	if err != nil {
		cli.Fatal(logger.Logger, "Failed to initialize mirror", err, applog.FieldBackend, backendCfg.Mirror)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		cli.Fatal(logger.Logger, "Failed to initialize AMQP client", err)
	}

	mirrorWorker := worker.NewMirrorWorker(remote.Writer, base)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		if err := amqpClient.Close(); err != nil {
			logger.Warn("Failed to close AMQP client", applog.FieldError, err)
		}
		if remote.Cleanup != nil {
			if err := remote.Cleanup(); err != nil {
				logger.Warn("Mirror cleanup failed", applog.FieldError, err)
			}
		}
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := amqpClient.Consume(gctx, mirrorWorker.HandleJob)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		ticker := time.NewTicker(statsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				applied, failed := mirrorWorker.Stats()
				logger.Info("Mirror worker stats", "applied", applied, "failed", failed)
			}
		}
	})

	logger.Info("trackify-worker running",
		applog.FieldBackend, backendCfg.Mirror,
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue)

	if err := g.Wait(); err != nil {
		_ = amqpClient.Close()
		cli.Fatal(logger.Logger, "Message consumption failed", err)
	}

	applied, failed := mirrorWorker.Stats()
	logger.Info("Worker shutdown complete", "applied", applied, "failed", failed)
	cli.WaitForShutdown(ctx, done)
}
