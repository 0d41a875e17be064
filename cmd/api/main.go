package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/qdrant/go-client/qdrant"
	"github.com/redis/go-redis/v9"

	"github.com/nktrudik/finly-backend/internal/api"
	"github.com/nktrudik/finly-backend/internal/cache"
	"github.com/nktrudik/finly-backend/internal/config"
	"github.com/nktrudik/finly-backend/internal/database"
	"github.com/nktrudik/finly-backend/internal/embedding"
	"github.com/nktrudik/finly-backend/internal/indexing"
	"github.com/nktrudik/finly-backend/internal/llm"
	"github.com/nktrudik/finly-backend/internal/queue"
	"github.com/nktrudik/finly-backend/internal/rag"
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
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		slog.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.EnsureSchema(ctx, db); err != nil {
		slog.Error("schema setup failed", "error", err)
		os.Exit(1)
	}

	// Redis backs the embedding cache; fall back to in-process memory if
	// it is down so indexing keeps working.
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	var embedCache cache.Cache = cache.NewRedis(rdb)
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unavailable, using in-memory cache", "error", err)
		embedCache = cache.NewMemory()
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
	if err := store.EnsureCollection(ctx, uint64(cfg.Qdrant.DenseSize)); err != nil {
		slog.Error("collection setup failed", "error", err)
		os.Exit(1)
	}

	embedder := embedding.NewCached(
		embedding.NewClient(cfg.Embedding.BaseURL, cfg.Embedding.BatchSize),
		embedCache,
		cfg.Embedding.CacheTTL,
	)

	gateway := llm.NewGateway(cfg.LLM)
	indexer := indexing.NewService(store, embedder, cfg.Index.UpsertBatchSize)
	engine := rag.NewEngine(store, embedder, gateway, cfg.LLM.DefaultModel)

	queueClient := queue.NewClient(cfg.Redis)
	defer queueClient.Close()

	router := api.NewRouter(db, rdb, cfg, api.Services{
		Vector:  store,
		Indexer: indexer,
		Engine:  engine,
		Queue:   queueClient,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router.Setup(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("starting API server", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
	}
	slog.Info("server stopped")
}
