package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/newslens/internal/metrics"
	"github.com/hitoshi/newslens/internal/model"
	"github.com/hitoshi/newslens/internal/search"
)

// --- モック ---

type mockSearchService struct {
	hits       []search.Hit
	searchErr  error
	healthErr  error
	gotQuery   string
	gotFilters search.Filters
	gotLimit   int
}

func (m *mockSearchService) Search(ctx context.Context, query string, filters search.Filters, limit int) ([]search.Hit, error) {
	m.gotQuery = query
	m.gotFilters = filters
	m.gotLimit = limit
	return m.hits, m.searchErr
}

func (m *mockSearchService) Health(ctx context.Context) error { return m.healthErr }

type mockIngestService struct {
	summary  *model.IngestSummary
	err      error
	gotLimit int
}

func (m *mockIngestService) Run(ctx context.Context, limitPerFeed int) (*model.IngestSummary, error) {
	m.gotLimit = limitPerFeed
	return m.summary, m.err
}

type noopMetrics struct{}

func (noopMetrics) RecordArticleIndexed()                   {}
func (noopMetrics) RecordArticleFailure()                   {}
func (noopMetrics) RecordExtractionFailure(strategy string) {}
func (noopMetrics) RecordEnrichmentFailure(step string)     {}
func (noopMetrics) RecordIngestLatency(d time.Duration)     {}
func (noopMetrics) RecordSearchLatency(d time.Duration)     {}

var _ metrics.MetricsCollector = noopMetrics{}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newTestRouter(searchSvc SearchServiceInterface, ingestSvc IngestServiceInterface) http.Handler {
	return NewRouter(&RouterDeps{
		SearchService:     searchSvc,
		IngestService:     ingestSvc,
		Metrics:           noopMetrics{},
		Registry:          prometheus.NewRegistry(),
		Logger:            testLogger(),
		CORSAllowedOrigin: "http://localhost:3000",
	})
}

// TestSearchArticles_ReturnsHits は検索結果がスコア付きで返ることを検証する。
func TestSearchArticles_ReturnsHits(t *testing.T) {
	searchSvc := &mockSearchService{
		hits: []search.Hit{
			{Doc: model.ArticleDoc{ID: "1", Title: "Markets rally"}, Score: 0.91},
		},
	}
	router := newTestRouter(searchSvc, &mockIngestService{})

	req := httptest.NewRequest(http.MethodGet, "/articles/search?q=markets&language=en&sentiment=positive&bias=neutral&size=5", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp struct {
		Query string `json:"query"`
		Count int    `json:"count"`
		Hits  []struct {
			ID    string  `json:"id"`
			Title string  `json:"title"`
			Score float64 `json:"score"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if resp.Query != "markets" || resp.Count != 1 {
		t.Errorf("query/count = %q/%d", resp.Query, resp.Count)
	}
	if resp.Hits[0].ID != "1" || resp.Hits[0].Score != 0.91 {
		t.Errorf("hit = %+v", resp.Hits[0])
	}

	if searchSvc.gotQuery != "markets" || searchSvc.gotLimit != 5 {
		t.Errorf("service got query/limit = %q/%d", searchSvc.gotQuery, searchSvc.gotLimit)
	}
	wantFilters := search.Filters{Language: "en", Sentiment: "positive", Bias: "neutral"}
	if searchSvc.gotFilters != wantFilters {
		t.Errorf("filters = %+v, want %+v", searchSvc.gotFilters, wantFilters)
	}
}

// TestSearchArticles_EmptyQueryBrowsesWithFilters はクエリ未指定時に
// フィルタのみの全件ブラウズとして検索が実行されることを検証する。
func TestSearchArticles_EmptyQueryBrowsesWithFilters(t *testing.T) {
	searchSvc := &mockSearchService{}
	router := newTestRouter(searchSvc, &mockIngestService{})

	req := httptest.NewRequest(http.MethodGet, "/articles/search?sentiment=positive", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if searchSvc.gotQuery != "" {
		t.Errorf("query = %q, want empty (match-all)", searchSvc.gotQuery)
	}
	if searchSvc.gotFilters.Sentiment != "positive" {
		t.Errorf("filters = %+v", searchSvc.gotFilters)
	}
}

// TestSearchArticles_UnknownFilterValueReturns400 は正規化済みラベルの
// 閉集合に含まれないフィルタ値で400が返ることを検証する。
func TestSearchArticles_UnknownFilterValueReturns400(t *testing.T) {
	router := newTestRouter(&mockSearchService{}, &mockIngestService{})

	for _, target := range []string{"sentiment=amazing", "bias=far-left"} {
		req := httptest.NewRequest(http.MethodGet, "/articles/search?q=x&"+target, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", target, w.Code)
			continue
		}

		var body struct {
			Code     string `json:"code"`
			Category string `json:"category"`
		}
		json.NewDecoder(w.Body).Decode(&body)
		if body.Code != model.ErrCodeInvalidQuery || body.Category != "validation" {
			t.Errorf("%s: body = %+v", target, body)
		}
	}
}

// TestSearchArticles_InvalidSizeReturns400 は不正なsizeパラメータで
// 400が返ることを検証する。
func TestSearchArticles_InvalidSizeReturns400(t *testing.T) {
	router := newTestRouter(&mockSearchService{}, &mockIngestService{})

	for _, size := range []string{"abc", "0", "-5"} {
		req := httptest.NewRequest(http.MethodGet, "/articles/search?q=x&size="+size, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("size=%s: status = %d, want 400", size, w.Code)
		}
	}
}

// TestSearchArticles_SizeCappedAtMax は上限超過のsizeが上限値に
// 丸められることを検証する。
func TestSearchArticles_SizeCappedAtMax(t *testing.T) {
	searchSvc := &mockSearchService{}
	router := newTestRouter(searchSvc, &mockIngestService{})

	req := httptest.NewRequest(http.MethodGet, "/articles/search?q=x&size=500", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if searchSvc.gotLimit != maxSearchSize {
		t.Errorf("limit = %d, want %d", searchSvc.gotLimit, maxSearchSize)
	}
}

// TestSearchArticles_DefaultSize はsize未指定時に既定値が使われることを
// 検証する。
func TestSearchArticles_DefaultSize(t *testing.T) {
	searchSvc := &mockSearchService{}
	router := newTestRouter(searchSvc, &mockIngestService{})

	req := httptest.NewRequest(http.MethodGet, "/articles/search?q=x", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if searchSvc.gotLimit != defaultSearchSize {
		t.Errorf("limit = %d, want %d", searchSvc.gotLimit, defaultSearchSize)
	}
}

// TestSearchArticles_BackendFailureReturns502 は検索バックエンドの
// 失敗で502が返ることを検証する。
func TestSearchArticles_BackendFailureReturns502(t *testing.T) {
	router := newTestRouter(&mockSearchService{searchErr: errors.New("index gone")}, &mockIngestService{})

	req := httptest.NewRequest(http.MethodGet, "/articles/search?q=x", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}

	var body struct {
		Code string `json:"code"`
	}
	json.NewDecoder(w.Body).Decode(&body)
	if body.Code != model.ErrCodeSearchFailed {
		t.Errorf("code = %q", body.Code)
	}
}

// TestRunIngest_ReturnsSummary は取り込みバッチのサマリーが
// 返ることを検証する。
func TestRunIngest_ReturnsSummary(t *testing.T) {
	ingestSvc := &mockIngestService{
		summary: &model.IngestSummary{TotalFetched: 5, Indexed: 4, Errors: []string{"https://a/1: 抽出失敗"}},
	}
	router := newTestRouter(&mockSearchService{}, ingestSvc)

	req := httptest.NewRequest(http.MethodPost, "/ingest/run?limit_per_feed=10", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ingestSvc.gotLimit != 10 {
		t.Errorf("limit = %d, want 10", ingestSvc.gotLimit)
	}

	var summary model.IngestSummary
	if err := json.NewDecoder(w.Body).Decode(&summary); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if summary.TotalFetched != 5 || summary.Indexed != 4 || len(summary.Errors) != 1 {
		t.Errorf("summary = %+v", summary)
	}
}

// TestRunIngest_InvalidLimitReturns400 は不正なlimit_per_feedで400が
// 返ることを検証する。
func TestRunIngest_InvalidLimitReturns400(t *testing.T) {
	router := newTestRouter(&mockSearchService{}, &mockIngestService{})

	req := httptest.NewRequest(http.MethodPost, "/ingest/run?limit_per_feed=zero", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

// TestRunIngest_StoreUnreachableReturns503 はインデックスストア到達不能で
// 503が返ることを検証する。
func TestRunIngest_StoreUnreachableReturns503(t *testing.T) {
	ingestSvc := &mockIngestService{err: errors.New("取り込みを開始できません")}
	router := newTestRouter(&mockSearchService{}, ingestSvc)

	req := httptest.NewRequest(http.MethodPost, "/ingest/run", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
}

// TestHealthz_OK はヘルスチェック成功で200が返ることを検証する。
func TestHealthz_OK(t *testing.T) {
	router := newTestRouter(&mockSearchService{}, &mockIngestService{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

// TestHealthz_StoreDownReturns503 はインデックスストア障害時に503が
// 返ることを検証する。
func TestHealthz_StoreDownReturns503(t *testing.T) {
	router := newTestRouter(&mockSearchService{healthErr: errors.New("down")}, &mockIngestService{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
}

// TestRouter_SetsCORSHeaders は全ルートにCORSヘッダーが付与されることを
// 検証する。
func TestRouter_SetsCORSHeaders(t *testing.T) {
	router := newTestRouter(&mockSearchService{}, &mockIngestService{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}
