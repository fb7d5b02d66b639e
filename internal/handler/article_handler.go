// Package handler はHTTP APIのハンドラーとルーティングを提供する。
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/hitoshi/newslens/internal/metrics"
	"github.com/hitoshi/newslens/internal/middleware"
	"github.com/hitoshi/newslens/internal/model"
	"github.com/hitoshi/newslens/internal/search"
)

const (
	// defaultSearchSize は検索結果の取得件数（デフォルト）。
	defaultSearchSize = 10
	// maxSearchSize は検索結果の取得件数の上限。
	maxSearchSize = 50
)

// SearchServiceInterface は検索ハンドラーが必要とするサービスインターフェース。
type SearchServiceInterface interface {
	Search(ctx context.Context, query string, filters search.Filters, limit int) ([]search.Hit, error)
	Health(ctx context.Context) error
}

// IngestServiceInterface は取り込みハンドラーが必要とするサービスインターフェース。
type IngestServiceInterface interface {
	Run(ctx context.Context, limitPerFeed int) (*model.IngestSummary, error)
}

// ArticleHandler は記事検索と取り込みトリガーのHTTPハンドラー。
type ArticleHandler struct {
	searchSvc SearchServiceInterface
	ingestSvc IngestServiceInterface
	metrics   metrics.MetricsCollector
	logger    *slog.Logger
}

// NewArticleHandler はArticleHandlerを生成する。
func NewArticleHandler(
	searchSvc SearchServiceInterface,
	ingestSvc IngestServiceInterface,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
) *ArticleHandler {
	return &ArticleHandler{
		searchSvc: searchSvc,
		ingestSvc: ingestSvc,
		metrics:   collector,
		logger:    logger,
	}
}

// --- レスポンス型 ---

// searchHitResponse は検索ヒット1件のレスポンス。
type searchHitResponse struct {
	model.ArticleDoc
	Score float64 `json:"score"`
}

// searchResponse は検索のレスポンス。
type searchResponse struct {
	Query string              `json:"query"`
	Count int                 `json:"count"`
	Hits  []searchHitResponse `json:"hits"`
}

// SearchArticles は記事を全文検索する。
// GET /articles/search?q=xxx&language=en&sentiment=positive&bias=neutral&size=10
// qは省略可能で、省略時はフィルタのみの全件ブラウズになる。
func (h *ArticleHandler) SearchArticles(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	query := r.URL.Query().Get("q")

	size := defaultSearchSize
	if sizeStr := r.URL.Query().Get("size"); sizeStr != "" {
		parsed, err := strconv.Atoi(sizeStr)
		if err != nil || parsed < 1 {
			middleware.WriteErrorResponse(w, http.StatusBadRequest,
				model.NewInvalidLimitError(parsed))
			return
		}
		size = parsed
	}
	if size > maxSearchSize {
		size = maxSearchSize
	}

	filters := search.Filters{
		Language:  r.URL.Query().Get("language"),
		Sentiment: r.URL.Query().Get("sentiment"),
		Bias:      r.URL.Query().Get("bias"),
	}
	if apiErr := validateFilters(filters); apiErr != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	hits, err := h.searchSvc.Search(r.Context(), query, filters, size)
	if err != nil {
		h.logger.Error("検索に失敗しました",
			slog.String("query", query),
			slog.String("error", err.Error()),
		)
		middleware.WriteErrorResponse(w, http.StatusBadGateway,
			model.NewSearchFailedError(err.Error()))
		return
	}

	resp := searchResponse{
		Query: query,
		Count: len(hits),
		Hits:  make([]searchHitResponse, 0, len(hits)),
	}
	for _, hit := range hits {
		resp.Hits = append(resp.Hits, searchHitResponse{
			ArticleDoc: hit.Doc,
			Score:      hit.Score,
		})
	}

	h.metrics.RecordSearchLatency(time.Since(start))
	writeJSONResponse(w, http.StatusOK, resp)
}

// RunIngest は取り込みバッチを同期実行してサマリーを返す。
// POST /ingest/run?limit_per_feed=20
func (h *ArticleHandler) RunIngest(w http.ResponseWriter, r *http.Request) {
	limitPerFeed := 0
	if limitStr := r.URL.Query().Get("limit_per_feed"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			middleware.WriteErrorResponse(w, http.StatusBadRequest,
				model.NewInvalidLimitError(parsed))
			return
		}
		limitPerFeed = parsed
	}

	summary, err := h.ingestSvc.Run(r.Context(), limitPerFeed)
	if err != nil {
		h.logger.Error("取り込みバッチの起動に失敗しました",
			slog.String("error", err.Error()),
		)
		middleware.WriteErrorResponse(w, http.StatusServiceUnavailable,
			model.NewIngestFailedError(err.Error()))
		return
	}

	writeJSONResponse(w, http.StatusOK, summary)
}

// Healthz はサービスとインデックスストアの稼働状況を返す。
// GET /healthz
func (h *ArticleHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	if err := h.searchSvc.Health(r.Context()); err != nil {
		middleware.WriteErrorResponse(w, http.StatusServiceUnavailable,
			model.NewIndexUnavailableError(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// validBiasFilters は保存されるバイアスラベルの閉集合。
var validBiasFilters = map[string]struct{}{
	"left-leaning": {}, "neutral": {}, "right-leaning": {},
}

// validateFilters はフィルタ値が保存される正規化済みラベルの閉集合に
// 含まれるかを検証する。集合外の値は決してマッチしないため、
// 空振りさせずにバリデーションエラーとして返す。
func validateFilters(f search.Filters) *model.APIError {
	if f.Sentiment != "" {
		switch model.Sentiment(f.Sentiment) {
		case model.SentimentPositive, model.SentimentNeutral, model.SentimentNegative:
		default:
			return model.NewInvalidQueryError("sentimentは positive / neutral / negative のいずれかを指定してください")
		}
	}
	if f.Bias != "" {
		if _, ok := validBiasFilters[f.Bias]; !ok {
			return model.NewInvalidQueryError("biasは left-leaning / neutral / right-leaning のいずれかを指定してください")
		}
	}
	return nil
}

// writeJSONResponse はJSONレスポンスを書き込む。
func writeJSONResponse(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}
