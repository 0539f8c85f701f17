package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"aulas/internal/amqp"
	"aulas/internal/backend"
	"aulas/internal/cache"
	"aulas/internal/cli"
	"aulas/internal/config"
	"aulas/internal/core"
	apphttp "aulas/internal/http"
	applog "aulas/internal/log"
	"aulas/internal/metrics"
	"aulas/internal/services"
	"aulas/internal/worker"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	os.Exit(run())
}

func run() int {
	cli.LoadEnvFile()

	cfg := config.Load()
	logger := cli.SetupLogger(cfg, applog.ComponentApp, os.Stdout)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		return 1
	}

	ctx, stop := cli.SignalContext(context.Background(), logger)
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err, "backend", cfg.DataBackend)
		return 1
	}
	result, err := backend.NewFactory(logger.Logger.With(applog.FieldComponent, applog.ComponentBackend)).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize data backend", "error", err, "backend", cfg.DataBackend)
		return 1
	}
	defer func() {
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", "error", err)
			}
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics()
	if err := m.Register(registry); err != nil {
		logger.Error("Failed to register metrics", "error", err)
		return 1
	}

	memo := cache.NewLRUCache[core.DerivedMetrics](cfg.CacheSize, cfg.CacheTTL)
	cacheManager := cache.NewManager()
	cacheManager.Register("derived_metrics", memo)
	if cfg.CacheTTL > 0 {
		cacheManager.StartCleanup(ctx, cfg.CacheTTL)
		defer cacheManager.Stop()
	}

	loader := services.NewDatasetLoader(result.Source, result.Source)
	svc := services.NewDashboardService(loader, memo, m)

	refreshWorker := worker.NewRefreshWorker(svc, cfg.RefreshInterval, m, logger)

	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to connect to AMQP broker", "error", err,
				"exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
			return 1
		}
		defer amqpClient.Close()

		svc.SetNotifier(worker.NewAMQPNotifier(amqpClient))
		refreshWorker.WithConsumer(amqpClient)
		logger.Info("AMQP enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	}

	srv := apphttp.NewServer(svc, apphttp.Options{
		Addr:     ":" + cfg.Port,
		Defaults: cfg.DefaultFilter(),
		Logger:   logger,
		Metrics:  m,
		Gatherer: registry,
	})

	workerDone := make(chan error, 1)
	go func() {
		workerDone <- refreshWorker.Run(ctx)
	}()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting aulas dashboard server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"refresh_interval", cfg.RefreshInterval)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	exitCode := 0
	workerStopped := false
	select {
	case <-ctx.Done():
	case err := <-serverErr:
		logger.Error("Server error", "error", err, "port", cfg.Port)
		exitCode = 1
	case err := <-workerDone:
		workerStopped = true
		if err != nil {
			logger.Error("Refresh worker stopped", "error", err)
			exitCode = 1
		}
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	if !workerStopped {
		select {
		case <-workerDone:
		case <-shutdownCtx.Done():
			logger.Warn("Timed out waiting for refresh worker")
		}
	}

	logger.Info("Server stopped gracefully")
	return exitCode
}
