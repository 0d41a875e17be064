package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/nktrudik/finly-backend/internal/api/handlers"
	"github.com/nktrudik/finly-backend/internal/api/middleware"
	"github.com/nktrudik/finly-backend/internal/auth"
	"github.com/nktrudik/finly-backend/internal/config"
	"github.com/nktrudik/finly-backend/internal/indexing"
	"github.com/nktrudik/finly-backend/internal/queue"
	"github.com/nktrudik/finly-backend/internal/rag"
	"github.com/nktrudik/finly-backend/internal/user"
	"github.com/nktrudik/finly-backend/internal/vectorstore"
)

// Services carries the wired application services the HTTP surface
// exposes. Construction happens in main so the router stays free of
// network setup.
type Services struct {
	Vector  *vectorstore.QdrantStore
	Indexer *indexing.Service
	Engine  *rag.Engine
	Queue   *queue.Client
}

type Router struct {
	mux  *chi.Mux
	db   *pgxpool.Pool
	rdb  *redis.Client
	cfg  *config.Config
	svcs Services
	jwt  *auth.Middleware
}

func NewRouter(db *pgxpool.Pool, rdb *redis.Client, cfg *config.Config, svcs Services) *Router {
	return &Router{
		mux:  chi.NewRouter(),
		db:   db,
		rdb:  rdb,
		cfg:  cfg,
		svcs: svcs,
		jwt:  auth.NewMiddleware(cfg.Auth.JWTSecret),
	}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))

	rl := middleware.NewRateLimiter(100, 200)
	r.Use(rl.Limit)

	// Health endpoints (no auth)
	health := handlers.NewHealthHandler(rt.db, rt.rdb, rt.svcs.Vector)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	users := user.NewService(rt.db)
	authH := handlers.NewAuthHandler(users, rt.cfg.Auth.JWTSecret)
	txH := handlers.NewTransactionHandler(rt.svcs.Indexer, rt.svcs.Queue, rt.cfg.Index.UploadDir)
	queryH := handlers.NewQueryHandler(rt.svcs.Engine)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", authH.Register)
		r.Post("/auth/login", authH.Login)

		r.Group(func(r chi.Router) {
			r.Use(rt.jwt.Authenticate)

			r.Route("/transactions", func(r chi.Router) {
				r.Post("/upload", txH.Upload)
				r.Post("/reindex", txH.Reindex)
				r.Get("/count", txH.Count)
				r.Delete("/", txH.Delete)
			})

			r.Post("/query", queryH.Query)
		})
	})

	return r
}
