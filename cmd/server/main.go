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
	"github.com/redis/go-redis/v9"

	"github.com/emberline/wildfire-map-service/internal/adapter/httpapi"
	kafkaadapter "github.com/emberline/wildfire-map-service/internal/adapter/kafka"
	"github.com/emberline/wildfire-map-service/internal/cluster"
	"github.com/emberline/wildfire-map-service/internal/config"
	"github.com/emberline/wildfire-map-service/internal/domain"
	"github.com/emberline/wildfire-map-service/internal/ingest"
	"github.com/emberline/wildfire-map-service/internal/observability"
	"github.com/emberline/wildfire-map-service/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := buildStore(ctx, cfg, logger, metrics)
	if err != nil {
		logger.Error("failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	opts := cluster.DefaultOptions()
	opts.Radius = cfg.ClusterRadius
	opts.MaxZoom = cfg.ClusterMaxZoom
	opts.MinPoints = cfg.ClusterMinPoints
	index := cluster.New(opts)

	// A saved snapshot answers cluster queries immediately, before the store
	// listing or the first consumed batch replaces it.
	if cfg.SnapshotPath != "" {
		if loaded, err := cluster.LoadFile(cfg.SnapshotPath); err != nil {
			logger.Warn("cluster snapshot not loaded", "path", cfg.SnapshotPath, "error", err)
		} else {
			index = loaded
			logger.Info("cluster index restored from snapshot",
				"path", cfg.SnapshotPath, "points", index.Len())
		}
	}

	// Only active fires cluster; contained fires stay queryable through the
	// REST API but never appear on the cluster layer.
	rebuild := func(fires []domain.Fire) {
		points := make([]cluster.Point, 0, len(fires))
		for _, f := range fires {
			if !f.Active() {
				continue
			}
			points = append(points, cluster.Point{FireID: f.ID, Lat: f.Latitude, Lng: f.Longitude})
		}
		index.Rebuild(points)
		metrics.ClusterRebuilds.Inc()
		metrics.ClusterIndexSize.Set(float64(index.Len()))
	}

	if fires, err := st.ListFires(ctx); err != nil {
		logger.Warn("initial fire listing failed, index starts empty", "error", err)
	} else {
		rebuild(fires)
	}

	reader := kafkaadapter.NewReader(cfg, logger)
	consumer := ingest.NewConsumer(reader, st, rebuild, logger, metrics, cfg.BatchSize)

	srv := httpapi.NewServer(cfg.HTTPAddr, st, index, consumer, logger, metrics)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		if err := consumer.Run(ctx); err != nil {
			logger.Error("detection consumer error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if cfg.SnapshotPath != "" {
		if err := index.SaveFile(cfg.SnapshotPath); err != nil {
			logger.Error("cluster snapshot save error", "path", cfg.SnapshotPath, "error", err)
		}
	}

	logger.Info("shutdown complete")
}

// buildStore selects postgres when DATABASE_URL is set and the seeded
// in-memory store otherwise, wrapping either in the redis cache when
// REDIS_ADDR is set.
func buildStore(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (store.Store, func(), error) {
	var (
		inner     store.Store
		closeFunc = func() {}
	)
	if cfg.DatabaseURL != "" {
		pg, err := store.NewPostgres(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, nil, err
		}
		inner = pg
		closeFunc = func() {
			if err := pg.Close(); err != nil {
				logger.Error("postgres close error", "error", err)
			}
		}
		logger.Info("using postgres store")
	} else {
		mem := store.NewMemory()
		if err := store.Seed(ctx, mem); err != nil {
			return nil, nil, err
		}
		inner = mem
		logger.Info("using in-memory store with sample data")
	}

	if cfg.RedisAddr == "" {
		return inner, closeFunc, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	logger.Info("redis cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.CacheTTL)
	cached := store.NewCached(inner, rdb, cfg.CacheTTL, logger, metrics)
	return cached, func() {
		if err := rdb.Close(); err != nil {
			logger.Error("redis close error", "error", err)
		}
		closeFunc()
	}, nil
}
