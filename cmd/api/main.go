package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/saturnino-fabrica-de-software/siamese/internal/api"
	"github.com/saturnino-fabrica-de-software/siamese/internal/cache"
	"github.com/saturnino-fabrica-de-software/siamese/internal/config"
	"github.com/saturnino-fabrica-de-software/siamese/internal/database"
	"github.com/saturnino-fabrica-de-software/siamese/internal/face"
	"github.com/saturnino-fabrica-de-software/siamese/internal/repository"
	"github.com/saturnino-fabrica-de-software/siamese/internal/service"
	"github.com/saturnino-fabrica-de-software/siamese/internal/webhook"
	"github.com/saturnino-fabrica-de-software/siamese/internal/ws"
)

const cacheCleanupInterval = time.Hour

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// .env file is optional
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := cfg.Logger()
	slog.SetDefault(logger)

	logger.Info("starting Siamese API",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.Port),
		slog.String("provider", cfg.ProviderType),
		slog.String("metric", cfg.DistanceMetric),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPgxPool(ctx, database.DefaultPoolConfig(cfg.DatabaseURL))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	backbone, err := face.NewBackbone(cfg)
	if err != nil {
		return fmt.Errorf("failed to create backbone: %w", err)
	}

	store := cache.NewPGStore(pool)
	embedder, err := cache.NewEmbedder(backbone, cfg.EmbeddingCacheSize, store, logger)
	if err != nil {
		return fmt.Errorf("failed to create embedding cache: %w", err)
	}
	go cleanupExpired(ctx, store, logger)

	hub := ws.NewHub()
	events := service.Publishers{hub}
	if cfg.WebhookURL != "" {
		endpoint := webhook.Endpoint{URL: cfg.WebhookURL, Secret: cfg.WebhookSecret}
		for _, e := range cfg.WebhookEvents {
			endpoint.Events = append(endpoint.Events, ws.EventType(e))
		}
		worker := webhook.NewWorker(endpoint, cfg.WebhookMaxAttempts, logger)
		go worker.Run(ctx)
		events = append(events, worker)
	}

	svc, err := service.NewSiameseService(
		embedder,
		repository.NewClassifierRepository(pool),
		repository.NewObservationRepository(pool),
		repository.NewDecisionRepository(pool),
		service.Options{
			Metric:        cfg.DistanceMetric,
			Concurrency:   cfg.EmbedConcurrency,
			HistogramBins: cfg.HistogramBins,
			LossMargin:    cfg.LossMargin,
			Events:        events,
		},
		logger,
	)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	router := api.NewRouter(logger, &api.Dependencies{
		Service:        svc,
		DB:             pool,
		MetricsEnabled: cfg.MetricsEnabled,
		Events:         hub,
	})
	router.Setup()

	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("server listening", slog.String("addr", addr))
		if err := router.Listen(addr); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("shutting down server...")
	if err := router.Shutdown(); err != nil {
		logger.Error("shutdown error", slog.Any("error", err))
	}

	logger.Info("server stopped")
	return nil
}

// cleanupExpired drops expired persisted embeddings until ctx is done
func cleanupExpired(ctx context.Context, store *cache.PGStore, logger *slog.Logger) {
	ticker := time.NewTicker(cacheCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.CleanupExpired(ctx)
			if err != nil {
				logger.Warn("embedding cache cleanup failed", slog.Any("error", err))
				continue
			}
			if n > 0 {
				logger.Info("embedding cache cleanup", slog.Int64("removed", n))
			}
		}
	}
}
