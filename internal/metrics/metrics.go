// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// 取り込みオーケストレータやパイプラインから利用する。
type MetricsCollector interface {
	RecordArticleIndexed()
	RecordArticleFailure()
	RecordExtractionFailure(strategy string)
	RecordEnrichmentFailure(step string)
	RecordIngestLatency(duration time.Duration)
	RecordSearchLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	articlesIndexed prometheus.Counter
	articleFailures prometheus.Counter
	extractionFail  *prometheus.CounterVec
	enrichmentFail  *prometheus.CounterVec
	ingestLatency   prometheus.Histogram
	searchLatency   prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		articlesIndexed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "newslens_articles_indexed_total",
			Help: "索引付けに成功した記事の合計数",
		}),
		articleFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "newslens_article_failures_total",
			Help: "処理に失敗した記事の合計数",
		}),
		extractionFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newslens_extraction_failures_total",
			Help: "戦略別の本文抽出失敗数",
		}, []string{"strategy"}),
		enrichmentFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newslens_enrichment_failures_total",
			Help: "ステップ別のエンリッチメント失敗数",
		}, []string{"step"}),
		ingestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "newslens_ingest_article_latency_seconds",
			Help:    "記事1件の取り込みレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		searchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "newslens_search_latency_seconds",
			Help:    "検索リクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.articlesIndexed,
		c.articleFailures,
		c.extractionFail,
		c.enrichmentFail,
		c.ingestLatency,
		c.searchLatency,
	)

	return c
}

// RecordArticleIndexed は記事の索引付け成功を記録する。
func (c *Collector) RecordArticleIndexed() {
	c.articlesIndexed.Inc()
}

// RecordArticleFailure は記事の処理失敗を記録する。
func (c *Collector) RecordArticleFailure() {
	c.articleFailures.Inc()
}

// RecordExtractionFailure は本文抽出失敗を戦略別に記録する。
func (c *Collector) RecordExtractionFailure(strategy string) {
	c.extractionFail.WithLabelValues(strategy).Inc()
}

// RecordEnrichmentFailure はエンリッチメント失敗をステップ別に記録する。
func (c *Collector) RecordEnrichmentFailure(step string) {
	c.enrichmentFail.WithLabelValues(step).Inc()
}

// RecordIngestLatency は記事1件の取り込みレイテンシを記録する。
func (c *Collector) RecordIngestLatency(duration time.Duration) {
	c.ingestLatency.Observe(duration.Seconds())
}

// RecordSearchLatency は検索リクエストのレイテンシを記録する。
func (c *Collector) RecordSearchLatency(duration time.Duration) {
	c.searchLatency.Observe(duration.Seconds())
}

// SetupMetricsRoute はPrometheusメトリクス公開用のハンドラーを返す。
func SetupMetricsRoute(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
