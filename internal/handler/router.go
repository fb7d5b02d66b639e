package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/newslens/internal/metrics"
	"github.com/hitoshi/newslens/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	SearchService     SearchServiceInterface
	IngestService     IngestServiceInterface
	Metrics           metrics.MetricsCollector
	Registry          *prometheus.Registry
	Logger            *slog.Logger
	CORSAllowedOrigin string
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CORS
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	h := NewArticleHandler(deps.SearchService, deps.IngestService, deps.Metrics, deps.Logger)

	r.Get("/healthz", h.Healthz)
	r.Method(http.MethodGet, "/metrics", metrics.SetupMetricsRoute(deps.Registry))

	r.Route("/articles", func(r chi.Router) {
		r.Get("/search", h.SearchArticles)
	})

	r.Route("/ingest", func(r chi.Router) {
		r.Post("/run", h.RunIngest)
	})

	return r
}
