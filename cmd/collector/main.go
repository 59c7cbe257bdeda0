package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	kafkaadapter "github.com/emberline/wildfire-map-service/internal/adapter/kafka"
	"github.com/emberline/wildfire-map-service/internal/config"
	"github.com/emberline/wildfire-map-service/internal/domain"
	"github.com/emberline/wildfire-map-service/internal/ingest"
	"github.com/emberline/wildfire-map-service/internal/observability"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.FIRMSAPIKey == "" {
		slog.Error("FIRMS_API_KEY is required")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	bounds := domain.Bounds{
		North: cfg.IngestNorth,
		South: cfg.IngestSouth,
		East:  cfg.IngestEast,
		West:  cfg.IngestWest,
	}
	client := ingest.NewFIRMSClient(ingest.DefaultFIRMSBaseURL, cfg.FIRMSAPIKey,
		cfg.FIRMSSource, cfg.FIRMSArea, cfg.FIRMSDayRange, bounds, cfg.FIRMSTimeout, logger, metrics)
	writer := kafkaadapter.NewWriter(cfg, logger)
	collector := ingest.NewCollector(client, writer, logger, metrics)

	scheduler, err := ingest.NewScheduler(cfg.IngestCron, collector, logger)
	if err != nil {
		logger.Error("invalid ingest schedule", "spec", cfg.IngestCron, "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// One immediate poll on startup, then the cron schedule takes over.
	if err := collector.RunOnce(ctx); err != nil {
		logger.Error("initial poll failed", "error", err)
	}
	scheduler.Start()
	logger.Info("collector started", "schedule", cfg.IngestCron, "source", cfg.FIRMSSource)

	<-ctx.Done()
	logger.Info("shutting down")

	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}
