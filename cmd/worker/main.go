package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"studio/api/internal/cache"
	"studio/api/internal/config"
	"studio/api/internal/database"
	"studio/api/internal/events"
	"studio/api/internal/log"
	"studio/api/internal/queue"
	"studio/api/internal/repository"
	"studio/api/internal/service"
	"studio/api/internal/storage"
	"studio/api/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, "worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	if client == nil {
		logger.Fatal().Msg("redis.addr is required for the worker")
	}
	defer client.Close()

	dbPool, err := database.Open(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}
	defer dbPool.Close()

	var media service.MediaStore
	if cfg.Storage.Configured() {
		objectStore, err := storage.NewObjectStore(cfg.Storage)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init object store")
		}
		media = objectStore
	} else {
		logger.Warn().Msg("storage not configured, photo deletes are no-ops")
		media = storage.NewMockStore(logger, "")
	}

	publisher := events.New(cfg.Events, logger)
	defer publisher.Close()

	galleries := service.NewGalleryService(
		repository.NewGalleryRepository(dbPool), media, publisher, cfg.FrontendURL, cfg.HTTP.MaxUploadMB<<20, logger,
	)

	processor := tasks.NewProcessor(galleries, logger)
	consumer := queue.NewConsumer(client, cfg.Redis, cfg.Cron.ClaimInterval, logger, processor)

	logger.Info().Str("stream", cfg.Redis.Stream).Str("group", cfg.Redis.Group).Msg("worker started")
	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("consumer stopped unexpectedly")
	}
	logger.Info().Msg("worker exited cleanly")
}
