package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"studio/api/internal/cache"
	"studio/api/internal/config"
	"studio/api/internal/database"
	"studio/api/internal/events"
	"studio/api/internal/handlers"
	"studio/api/internal/jobs"
	"studio/api/internal/log"
	"studio/api/internal/mail"
	"studio/api/internal/queue"
	"studio/api/internal/repository"
	"studio/api/internal/server"
	"studio/api/internal/service"
	"studio/api/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, "api")

	ctx := context.Background()

	dbPool, err := database.Open(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}

	userRepo := repository.NewUserRepository(dbPool)
	if err := service.SeedAdmin(ctx, userRepo, cfg.Security, logger); err != nil {
		logger.Fatal().Err(err).Msg("seed admin failed")
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}

	checks := map[string]handlers.HealthCheck{
		"database": dbPool.Ping,
	}

	var media service.MediaStore
	if cfg.Storage.Configured() {
		objectStore, err := storage.NewObjectStore(cfg.Storage)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init object store")
		}
		if err := objectStore.EnsureBucket(ctx); err != nil {
			logger.Warn().Err(err).Msg("ensure bucket failed")
		}
		media = objectStore
		checks["storage"] = objectStore.Ping
	} else {
		logger.Warn().Msg("storage not configured, using mock media store")
		media = storage.NewMockStore(logger, "")
	}

	var enqueuer jobs.Enqueuer
	if redisClient != nil {
		enqueuer = queue.NewProducer(redisClient, cfg.Redis.Stream, cfg.Cron.QueueTimeout)
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	publisher := events.New(cfg.Events, logger)
	mailer := mail.New(cfg.Mail, logger)

	services := handlers.Services{
		Auth:  service.NewAuthService(userRepo, repository.NewSessionRepository(dbPool), mailer, cfg, logger),
		Users: service.NewUserService(userRepo),
		Bookings: service.NewBookingService(
			repository.NewBookingRepository(dbPool), publisher, cfg.Bookings.EnforceTransitions, logger,
		),
		Galleries: service.NewGalleryService(
			repository.NewGalleryRepository(dbPool), media, publisher, cfg.FrontendURL, cfg.HTTP.MaxUploadMB<<20, logger,
		),
		Invoices: service.NewInvoiceService(repository.NewInvoiceRepository(dbPool), userRepo, publisher, logger),
	}

	handlerSet := handlers.NewHandlerSet(logger, cfg, services, checks)
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	scheduler := jobs.NewScheduler(cfg.Cron.CleanupSchedule, enqueuer, services.Galleries, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, dbPool, redisClient, publisher)
}

func waitForShutdown(
	logger zerolog.Logger,
	srv *server.HTTPServer,
	scheduler *jobs.Scheduler,
	db *pgxpool.Pool,
	redisClient *redis.Client,
	publisher events.Publisher,
) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	scheduler.Stop(shutdownCtx)

	if err := publisher.Close(); err != nil {
		logger.Error().Err(err).Msg("events close error")
	}
	db.Close()
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("redis close error")
		}
	}

	logger.Info().Msg("server exited cleanly")
}
