package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TestNewCollector_RegistersWithoutPanic はコレクタがレジストリに
// 正常に登録されることを検証する。
func TestNewCollector_RegistersWithoutPanic(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	if c == nil {
		t.Fatal("expected non-nil collector")
	}
}

// TestCollector_RecordsCounters はカウンタ記録後にメトリクスが
// 収集できることを検証する。
func TestCollector_RecordsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordArticleIndexed()
	c.RecordArticleIndexed()
	c.RecordArticleFailure()
	c.RecordExtractionFailure("primary")
	c.RecordEnrichmentFailure("summarization")
	c.RecordIngestLatency(120 * time.Millisecond)
	c.RecordSearchLatency(5 * time.Millisecond)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather returned error: %v", err)
	}

	found := map[string]bool{}
	for _, f := range families {
		found[f.GetName()] = true
	}

	for _, name := range []string{
		"newslens_articles_indexed_total",
		"newslens_article_failures_total",
		"newslens_extraction_failures_total",
		"newslens_enrichment_failures_total",
		"newslens_ingest_article_latency_seconds",
		"newslens_search_latency_seconds",
	} {
		if !found[name] {
			t.Errorf("metric %s not registered", name)
		}
	}
}

// TestSetupMetricsRoute_ServesMetrics は/metricsパスでメトリクスが
// 返ることを検証する。
func TestSetupMetricsRoute_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordArticleIndexed()

	handler := SetupMetricsRoute(reg)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "newslens_articles_indexed_total") {
		t.Error("response should contain newslens_articles_indexed_total metric")
	}
}
