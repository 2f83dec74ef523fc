package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/stackfold/hosting-system/internal/api"
	"github.com/stackfold/hosting-system/internal/infrastructure/config"
	mongodb "github.com/stackfold/hosting-system/internal/infrastructure/db/mongo"
	redisdb "github.com/stackfold/hosting-system/internal/infrastructure/db/redis"
	"github.com/stackfold/hosting-system/internal/infrastructure/storage"
	"github.com/stackfold/hosting-system/pkg/logger"
)

func main() {
	cfg := config.Load(slog.Default())

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connect")
	}
	defer func() { _ = client.Disconnect(context.Background()) }()
	if err := mongodb.EnsureIndexes(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("mongo indexes")
	}

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connect")
	}

	// TODO: swap for the real provider gateway once the S3 adapter lands.
	gateway := storage.NewMemoryGateway("")

	e := api.NewRouter(ctx, db, rdb, gateway, cfg)

	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		_ = e.Shutdown(context.Background())
	}()

	if err := e.Start(":" + cfg.Port); err != nil {
		log.Info().Err(err).Msg("server stopped")
	}
}
