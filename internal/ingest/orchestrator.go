// Package ingest はフィード取得から索引付けまでの取り込みバッチを統括する。
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/newslens/internal/metrics"
	"github.com/hitoshi/newslens/internal/model"
)

// FeedSource はフィードエントリ取得のインターフェース。
type FeedSource interface {
	FetchAll(ctx context.Context, feedURLs []string, limitPerFeed int) []model.FeedEntry
}

// ArticleBuilder は記事ドキュメント組み立てのインターフェース。
type ArticleBuilder interface {
	Build(ctx context.Context, entry model.FeedEntry) (*model.ArticleDoc, error)
}

// IndexStore は記事インデックスのインターフェース。
type IndexStore interface {
	Health(ctx context.Context) error
	Add(ctx context.Context, doc *model.ArticleDoc) error
}

// Orchestrator は取り込みバッチを実行する。
// 記事1件の失敗はサマリーに記録して次のエントリへ進み、
// バッチ全体を失敗させるのはインデックスストアに到達できない場合のみ。
type Orchestrator struct {
	source       FeedSource
	builder      ArticleBuilder
	store        IndexStore
	metrics      metrics.MetricsCollector
	logger       *slog.Logger
	feedURLs     []string
	defaultLimit int
}

// NewOrchestrator はOrchestratorの新しいインスタンスを生成する。
func NewOrchestrator(
	source FeedSource,
	builder ArticleBuilder,
	store IndexStore,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
	feedURLs []string,
	defaultLimit int,
) *Orchestrator {
	return &Orchestrator{
		source:       source,
		builder:      builder,
		store:        store,
		metrics:      collector,
		logger:       logger,
		feedURLs:     feedURLs,
		defaultLimit: defaultLimit,
	}
}

// Run は取り込みバッチを実行し、常にサマリーを返す。
// バッチ開始時のヘルスチェック失敗のみがエラーになる。
func (o *Orchestrator) Run(ctx context.Context, limitPerFeed int) (*model.IngestSummary, error) {
	if err := o.store.Health(ctx); err != nil {
		return nil, fmt.Errorf("取り込みを開始できません: %w", err)
	}

	if limitPerFeed <= 0 {
		limitPerFeed = o.defaultLimit
	}

	start := time.Now()
	entries := o.source.FetchAll(ctx, o.feedURLs, limitPerFeed)

	summary := &model.IngestSummary{
		TotalFetched: len(entries),
		Errors:       []string{},
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			o.logger.Warn("取り込みバッチが中断されました",
				slog.String("error", ctx.Err().Error()),
				slog.Int("indexed", summary.Indexed),
			)
			break
		}

		itemStart := time.Now()

		doc, err := o.builder.Build(ctx, entry)
		if err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %s", entry.Link, err.Error()))
			o.metrics.RecordArticleFailure()
			o.logger.Warn("記事の組み立てに失敗しました",
				slog.String("url", entry.Link),
				slog.String("error", err.Error()),
			)
			continue
		}

		if err := o.store.Add(ctx, doc); err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %s", entry.Link, err.Error()))
			o.metrics.RecordArticleFailure()
			o.logger.Error("記事の索引付けに失敗しました",
				slog.String("url", entry.Link),
				slog.String("error", err.Error()),
			)
			continue
		}

		summary.Indexed++
		o.metrics.RecordArticleIndexed()
		o.metrics.RecordIngestLatency(time.Since(itemStart))
	}

	o.logger.Info("取り込みバッチが完了しました",
		slog.Int("total_fetched", summary.TotalFetched),
		slog.Int("indexed", summary.Indexed),
		slog.Int("errors", len(summary.Errors)),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return summary, nil
}
