package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"moonlit/gallery/internal/cache"
	"moonlit/gallery/internal/config"
	"moonlit/gallery/internal/database"
	"moonlit/gallery/internal/events"
	"moonlit/gallery/internal/handlers"
	"moonlit/gallery/internal/jobs"
	"moonlit/gallery/internal/log"
	"moonlit/gallery/internal/metrics"
	"moonlit/gallery/internal/repository"
	"moonlit/gallery/internal/server"
	"moonlit/gallery/internal/service"
	"moonlit/gallery/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, "api")

	ctx := context.Background()

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}
	if cfg.Postgres.Migrate {
		if err := database.Migrate(ctx, dbPool); err != nil {
			logger.Fatal().Err(err).Msg("schema migration failed")
		}
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}

	objectStore, err := storage.NewObjectStore(cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init object store")
	}
	if err := objectStore.EnsureBucket(ctx); err != nil {
		logger.Warn().Err(err).Str("bucket", objectStore.Bucket()).Msg("ensure bucket failed")
	}

	observer, err := metrics.NewUploadObserver(cfg.Metrics.Namespace, prometheus.DefaultRegisterer)
	if err != nil {
		logger.Fatal().Err(err).Msg("register metrics failed")
	}

	users := repository.NewUserRepository(dbPool)
	sessions := repository.NewSessionRepository(dbPool)
	albums := repository.NewAlbumRepository(dbPool)
	photos := repository.NewPhotoRepository(dbPool)

	gate := service.NewRoleGate(cfg.Security.JWTAccessSecret, users, sessions)
	auth := service.NewAuthService(users, sessions, cfg.Security, logger)
	if cfg.Seed.Enabled {
		if err := auth.SeedUsers(ctx, cfg.Seed.Users); err != nil {
			logger.Fatal().Err(err).Msg("seed users failed")
		}
	}

	publisher := events.NewRedisPublisher(redisClient, cfg.Redis.Stream)
	uploads := service.NewUploadService(gate, albums, photos, objectStore, publisher, observer, cfg.Upload.MaxBytes, logger)

	handlerSet := handlers.NewHandlerSet(logger, cfg, handlers.Services{
		Gate:    gate,
		Auth:    auth,
		Albums:  service.NewAlbumService(albums, photos),
		Uploads: uploads,
	},
		handlers.HealthCheck{Name: "database", Ping: dbPool.Ping},
		handlers.HealthCheck{Name: "cache", Ping: func(ctx context.Context) error { return cache.Ping(ctx, redisClient) }},
		handlers.HealthCheck{Name: "storage", Ping: objectStore.Ping},
	)
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet, prometheus.DefaultGatherer)

	scheduler := jobs.NewScheduler(auth, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, dbPool, redisClient)
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler, db *pgxpool.Pool, redisClient *redis.Client) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	scheduler.Stop()

	db.Close()
	if err := redisClient.Close(); err != nil {
		logger.Error().Err(err).Msg("redis close error")
	}

	logger.Info().Msg("server exited cleanly")
}
