// Package article は抽出・タイトル解決・エンリッチメント・固有表現検証を
// 合成して1件の記事ドキュメントを組み立てる。
package article

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/araddon/dateparse"
	"github.com/google/uuid"

	"github.com/hitoshi/newslens/internal/entity"
	"github.com/hitoshi/newslens/internal/model"
	"github.com/hitoshi/newslens/internal/nlp"
	"github.com/hitoshi/newslens/internal/textutil"
	"github.com/hitoshi/newslens/internal/title"
)

// nlpInputTokens はエンリッチメントに渡す作業テキストのトークン予算。
// 保存する本文の5000文字上限とは独立に適用される。
const nlpInputTokens = 800

// ContentExtractor は本文抽出のインターフェース。
type ContentExtractor interface {
	Extract(ctx context.Context, rawURL string) (*model.ExtractedContent, error)
}

// Enricher はエンリッチメントパイプラインのインターフェース。
type Enricher interface {
	Enrich(ctx context.Context, text string) *nlp.Enrichment
}

// Assembler は1つのフィードエントリから記事ドキュメントを組み立てる。
// 本文抽出に失敗した場合のみエラーを返し、エンリッチメントの失敗は
// ステップ側で既定値に吸収されるためここには到達しない。
type Assembler struct {
	extractor ContentExtractor
	enricher  Enricher
	resolver  *title.Resolver
	logger    *slog.Logger
}

// NewAssembler はAssemblerの新しいインスタンスを生成する。
func NewAssembler(extractor ContentExtractor, enricher Enricher, logger *slog.Logger) *Assembler {
	return &Assembler{
		extractor: extractor,
		enricher:  enricher,
		resolver:  title.NewResolver(),
		logger:    logger,
	}
}

// Build はフィードエントリから記事ドキュメントを組み立てる。
// 生成されたドキュメントは以降変更されない。
func (a *Assembler) Build(ctx context.Context, entry model.FeedEntry) (*model.ArticleDoc, error) {
	content, err := a.extractor.Extract(ctx, entry.Link)
	if err != nil {
		return nil, fmt.Errorf("本文を抽出できませんでした: %w", err)
	}

	// モデルに渡す作業テキストはトークン予算内に切り詰める。
	// 保存する本文（OriginalText）はこの切り詰めとは独立。
	workText := textutil.TruncateTokens(content.Text, nlpInputTokens)

	// タイトル解決: フィード → 抽出器 → 本文 → URLの4段フォールバック
	finalTitle := a.resolver.Resolve(entry.Title, content.Title, workText, entry.Link)
	if finalTitle == "" || !textutil.IsValidTitle(finalTitle) {
		// Resolverが必ず候補を返すためここには通常到達しないが、
		// タイトル非空の不変条件は無条件の最終手段で守る。
		finalTitle = title.DomainLabel(entry.Link)
	}

	enrichment := a.enricher.Enrich(ctx, workText)
	entities := entity.Validate(enrichment.RawEntities)
	if entities == nil {
		entities = []model.EntityMention{}
	}

	doc := &model.ArticleDoc{
		ID:               uuid.New().String(),
		Title:            finalTitle,
		URL:              entry.Link,
		SourceName:       sourceName(entry.Source),
		PublishedDate:    resolvePublishedDate(content, entry),
		Language:         enrichment.Language,
		OriginalText:     capChars(content.Text, model.OriginalTextLimit),
		TranslatedText:   enrichment.TranslatedText,
		Summary:          enrichment.Summary,
		SentimentOverall: enrichment.Sentiment,
		SentimentScore:   enrichment.SentimentScore,
		BiasOverall:      enrichment.Bias,
		BiasScore:        enrichment.BiasScore,
		Entities:         entities,
		ScrapedAt:        time.Now().UTC(),
		Tags:             []string{},
	}

	a.logger.Info("記事ドキュメントを組み立てました",
		slog.String("url", doc.URL),
		slog.String("title", doc.Title),
		slog.String("language", doc.Language),
		slog.String("method", string(content.Method)),
		slog.Int("entities", len(doc.Entities)),
	)

	return doc, nil
}

// sourceName はフィード表示名の既定値を適用する。
func sourceName(source string) string {
	if strings.TrimSpace(source) == "" {
		return "Unknown"
	}
	return source
}

// resolvePublishedDate は公開日時を決定する。
// 抽出器由来のタイムスタンプを優先し、無ければフィードの自由形式
// 日付文字列を寛容にパースする。どちらも無ければnil。
func resolvePublishedDate(content *model.ExtractedContent, entry model.FeedEntry) *time.Time {
	if content.PublishedAt != nil {
		return content.PublishedAt
	}
	if entry.Published != "" {
		if t, err := dateparse.ParseAny(entry.Published); err == nil {
			return &t
		}
	}
	return nil
}

// capChars はテキストを最大文字数で切り詰める。
// マルチバイト文字の途中で切れないよう、有効なUTF-8境界まで戻す。
func capChars(text string, maxChars int) string {
	if len(text) <= maxChars {
		return text
	}
	cut := text[:maxChars]
	for len(cut) > 0 && !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut
}
