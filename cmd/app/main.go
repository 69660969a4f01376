// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"video-analysis-platform/internal/config"
	"video-analysis-platform/internal/domain/ports/adapter"
	"video-analysis-platform/internal/infra/adapters/provider"
	"video-analysis-platform/internal/infra/adapters/storage"
	"video-analysis-platform/internal/infra/bus"
	pg "video-analysis-platform/internal/infra/db/postgres"
	"video-analysis-platform/internal/infra/logging"
	"video-analysis-platform/internal/infra/metrics"
	"video-analysis-platform/internal/infra/sched"
	"video-analysis-platform/internal/infra/web"
	"video-analysis-platform/internal/infra/worker"
	"video-analysis-platform/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logging)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	// ---- Postgres ----
	dbPool, err := pg.Connect(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer dbPool.Close()
	jobRepo := pg.NewJobRepo(dbPool)

	// ---- Progress bus ----
	// In-memory is correct for a single instance; behind a balancer the
	// Redis broker keeps the push path coherent across instances.
	var progressBus adapter.ProgressBus
	if cfg.Redis.Enabled {
		rb, err := bus.NewRedisBus(ctx, cfg.Redis.URL, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis bus")
		}
		defer rb.Close()
		progressBus = rb
		logger.Info().Str("url", cfg.Redis.URL).Msg("progress bus: redis broker")
	} else {
		progressBus = bus.NewMemoryBus()
		logger.Info().Msg("progress bus: in-memory, single instance")
	}

	// ---- Adapters ----
	providerCli := provider.NewClient(cfg.Provider.BaseURL, cfg.Provider.APIKey)
	objectStore := storage.NewHTTPObjectStore(cfg.Storage.BaseURL, cfg.Storage.Bucket, cfg.Storage.ServiceKey)
	webhookURL := strings.TrimRight(cfg.Server.PublicURL, "/") + "/webhooks/provider"

	// ---- Use cases ----
	probe := usecase.NewArtifactProbe(objectStore, logger)
	triggerUC := usecase.NewTriggerUseCase(jobRepo, objectStore, providerCli,
		webhookURL, cfg.Storage.SignTTL, cfg.Provider.SubmitTimeout, logger)
	sweepUC := usecase.NewSweepUseCase(jobRepo, triggerUC, cfg.Sweep.BatchSize, logger)
	healthUC := usecase.NewHealthUseCase(probe, providerCli, usecase.NewLogStageEstimator(), logger)
	retryUC := usecase.NewRetryUseCase(jobRepo, triggerUC, logger)
	statusUC := usecase.NewStatusUseCase(jobRepo, probe, logger)

	// ---- HTTP server ----
	srv := web.NewServer(jobRepo, progressBus, triggerUC, retryUC, statusUC, healthUC,
		cfg.Provider.WebhookSecret, logger)
	go func() {
		if err := srv.Start(cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
			cancel()
		}
	}()

	// ---- Sweep worker ----
	workers := worker.NewPool(cfg.Sweep.Workers, logger)
	workers.Start(ctx)
	sweepWorker := sched.NewSweepWorker(cfg.Sweep.Interval, sweepUC, workers, logger)
	go func() { _ = sweepWorker.Run(ctx) }()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
		logger.Info().Msg("shutdown requested")
	case <-ctx.Done():
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	workers.Stop()
	logger.Info().Msg("stopped")
}
