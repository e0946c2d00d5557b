package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"moonlit/gallery/internal/cache"
	"moonlit/gallery/internal/config"
	"moonlit/gallery/internal/log"
	"moonlit/gallery/internal/queue"
	"moonlit/gallery/internal/storage"
	"moonlit/gallery/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, "worker")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer client.Close()

	objectStore, err := storage.NewObjectStore(cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init object store")
	}

	processor := tasks.NewProcessor(logger, objectStore)
	consumer := queue.NewConsumer(
		client,
		cfg.Redis.Stream,
		cfg.Worker.Group,
		cfg.Worker.Consumer,
		cfg.Worker.ClaimInterval,
		logger,
		processor,
	)

	logger.Info().Str("stream", cfg.Redis.Stream).Str("group", cfg.Worker.Group).Msg("worker started")
	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("consumer stopped unexpectedly")
	}
	logger.Info().Msg("worker exited")
}
