package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"spendtrack/internal/cli"
	applog "spendtrack/internal/log"
	"spendtrack/internal/metrics"
	"spendtrack/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentRecurring)
	logger.Info("Starting recurring-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	m := metrics.New()
	processor := services.NewRecurringProcessor(repo, cfg.RecurringMaxCatchUp, cfg.RecurringBatchSize)
	processor.SetRecorder(m)
	if amqpClient := cli.InitAMQP(logger, cfg); amqpClient != nil {
		defer amqpClient.Close()
		processor.SetPublisher(amqpClient)
	}

	logger.Info("Recurring series processor configured",
		"interval", cfg.RecurringInterval,
		"max_catch_up", cfg.RecurringMaxCatchUp,
		"batch_size", cfg.RecurringBatchSize,
		"sqlite_db", cfg.SQLiteDBPath,
		"metrics_port", cfg.WorkerMetricsPort)

	tasks := []cli.Task{
		func(ctx context.Context) error { return processor.Run(ctx, cfg.RecurringInterval) },
	}
	var shutdown func(context.Context) error
	if cfg.WorkerMetricsPort != "" {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", m.Handler())
		srv := &http.Server{
			Addr:              ":" + cfg.WorkerMetricsPort,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		shutdown = srv.Shutdown
		tasks = append(tasks, func(context.Context) error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	if err := cli.Run(logger, 30*time.Second, shutdown, tasks...); err != nil {
		cli.Exit(logger, "Recurring worker failed", err)
	}
}
