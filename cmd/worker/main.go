package main

import (
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/qdrant/go-client/qdrant"
	"github.com/redis/go-redis/v9"

	"github.com/nktrudik/finly-backend/internal/cache"
	"github.com/nktrudik/finly-backend/internal/config"
	"github.com/nktrudik/finly-backend/internal/embedding"
	"github.com/nktrudik/finly-backend/internal/indexing"
	"github.com/nktrudik/finly-backend/internal/queue"
	"github.com/nktrudik/finly-backend/internal/queue/workers"
	"github.com/nktrudik/finly-backend/internal/vectorstore"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err == nil {
		slog.Info("loaded .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	qc, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Qdrant.Host,
		Port:   cfg.Qdrant.Port,
		APIKey: cfg.Qdrant.APIKey,
		UseTLS: cfg.Qdrant.UseTLS,
	})
	if err != nil {
		slog.Error("qdrant client setup failed", "error", err)
		os.Exit(1)
	}
	defer qc.Close()

	store := vectorstore.NewQdrantStore(qc, cfg.Qdrant.Collection)

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	embedder := embedding.NewCached(
		embedding.NewClient(cfg.Embedding.BaseURL, cfg.Embedding.BatchSize),
		cache.NewRedis(rdb),
		cfg.Embedding.CacheTTL,
	)

	indexer := indexing.NewService(store, embedder, cfg.Index.UpsertBatchSize)

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
		},
	)

	registry := queue.NewHandlersRegistry()

	indexWorker := workers.NewIndexWorker(indexer)
	registry.Register(queue.TypeReindexUser, asynq.HandlerFunc(indexWorker.ProcessTask))

	slog.Info("starting worker", "concurrency", 10)
	if err := srv.Run(registry.Mux()); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}
