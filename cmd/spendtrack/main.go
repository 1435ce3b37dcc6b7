package main

import (
	"context"
	"errors"
	"time"

	"spendtrack/internal/auth"
	"spendtrack/internal/cache"
	"spendtrack/internal/cli"
	"spendtrack/internal/export"
	apphttp "spendtrack/internal/http"
	applog "spendtrack/internal/log"
	"spendtrack/internal/metrics"
	"spendtrack/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	m := metrics.New()
	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.JWTTTL)

	dashCache := cache.NewLRUCache[services.DashboardView](cfg.DashboardCacheSize, cfg.DashboardCacheTTL)
	dashboards := services.NewDashboardService(repo, dashCache)

	opts := []services.ExpenseOption{
		services.WithInvalidator(dashboards),
		services.WithRecorder(m),
	}
	amqpClient := cli.InitAMQP(logger, cfg)
	if amqpClient != nil {
		defer amqpClient.Close()
		opts = append(opts, services.WithPublisher(amqpClient))
	}
	expenses := services.NewExpenseService(repo, opts...)

	renderer := export.NewChromeRenderer(export.ChromeConfig{
		RemoteURL: cfg.ChromeRemoteURL,
		Timeout:   cfg.PDFTimeout,
	})
	defer renderer.Close()

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Auth:           services.NewAuthService(repo, tokens),
		Expenses:       expenses,
		Dashboards:     dashboards,
		Exports:        services.NewExportService(repo, renderer),
		Tokens:         tokens,
		DB:             repo,
		Metrics:        m,
		Logger:         logger.WithComponent(applog.ComponentHTTP),
		TrustedProxies: cfg.TrustedProxies,
		RateLimitRPM:   cfg.RateLimitRPM,
	})
	if err != nil {
		cli.Exit(logger, "Failed to build HTTP server", err)
	}

	janitor := cache.NewJanitor(dashCache)

	logger.Info("Starting spendtrack server",
		"port", cfg.Port,
		"amqp", amqpClient != nil,
		"chrome_remote", cfg.ChromeRemoteURL != "")

	err = cli.Run(logger, 30*time.Second, srv.Shutdown,
		func(context.Context) error { return srv.ListenAndServe() },
		func(ctx context.Context) error { return janitor.Run(ctx, time.Minute) },
	)
	if err != nil && !errors.Is(err, context.Canceled) {
		cli.Exit(logger, "Server error", err)
	}
}
