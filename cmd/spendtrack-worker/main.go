package main

import (
	"context"
	"errors"
	"time"

	"spendtrack/internal/amqp"
	"spendtrack/internal/backend"
	"spendtrack/internal/cli"
	applog "spendtrack/internal/log"
	"spendtrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)
	logger.Info("Starting spendtrack-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if !cfg.AMQPEnabled() {
		cli.Exit(logger, "Worker cannot start", errors.New("AMQP_URL is required to consume expense events"))
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Exit(logger, "Invalid mirror configuration", err)
	}
	result, err := backend.NewFactory(logger.Logger).CreateMirror(context.Background(), backendCfg)
	if err != nil {
		cli.Exit(logger, "Failed to initialize mirror", err)
	}
	if result.Cleanup != nil {
		defer func() {
			if err := result.Cleanup(); err != nil {
				logger.Warn("Mirror cleanup failed", applog.FieldError, err)
			}
		}()
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		cli.Exit(logger, "Failed to initialize AMQP client", err)
	}
	defer amqpClient.Close()

	syncWorker := worker.NewSyncWorker(result.Mirror)
	logger.Info("Sync worker ready", "mirror", backendCfg.Type, "queue", cfg.AMQPQueue)

	err = cli.Run(logger, 30*time.Second,
		func(context.Context) error {
			stats := syncWorker.Stats()
			logger.Info("Sync worker stopped",
				"synced", stats.Synced,
				"removed", stats.Removed,
				"failed", stats.Failed)
			return nil
		},
		func(ctx context.Context) error { return syncWorker.Run(ctx, amqpClient) },
	)
	if err != nil {
		cli.Exit(logger, "Message consumption failed", err)
	}
}
