package extract

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	readability "github.com/go-shiori/go-readability"

	"github.com/hitoshi/newslens/internal/model"
	"github.com/hitoshi/newslens/internal/textutil"
	"github.com/hitoshi/newslens/internal/title"
)

// minContentLength は抽出成功とみなす本文の最小文字数（正規化後）。
const minContentLength = 100

// boilerplateSelectors は主戦略で本文から除去する要素。
// コメント・テーブル・ナビゲーション等のボイラープレートを落とす。
const boilerplateSelectors = "script, style, noscript, iframe, nav, aside, header, footer, form, table, figure"

// titleSelectors は主戦略のタイトル候補セレクタ（優先順）。
// メタデータ系はcontent属性、それ以外はテキストを候補とする。
var titleSelectors = []struct {
	selector string
	attr     string // 空の場合はテキストを取得
}{
	{`meta[property="og:title"]`, "content"},
	{`meta[name="twitter:title"]`, "content"},
	{`meta[property="twitter:title"]`, "content"},
	{"title", ""},
	{"h1", ""},
	{".headline", ""},
	{".article-title", ""},
	{".post-title", ""},
	{`[class*="headline"]`, ""},
	{`[class*="title"]`, ""},
}

// dateSelectors は主戦略の公開日時候補のメタタグ。
var dateSelectors = []string{
	`meta[property="article:published_time"]`,
	`meta[name="pubdate"]`,
	`meta[name="date"]`,
}

// FailureRecorder は戦略別の抽出失敗メトリクスの記録インターフェース。
type FailureRecorder interface {
	RecordExtractionFailure(strategy string)
}

// Extractor は2段階の戦略で記事本文を抽出する。
// どちらの戦略の内部エラーも戦略の失敗として扱い、呼び出し元には伝播しない。
// 両戦略とも失敗した場合のみエラーを返し、該当URLは取り込み対象から外れる。
type Extractor struct {
	fetcher PageFetcher
	metrics FailureRecorder
	logger  *slog.Logger
}

// NewExtractor はExtractorの新しいインスタンスを生成する。
func NewExtractor(fetcher PageFetcher, metrics FailureRecorder, logger *slog.Logger) *Extractor {
	return &Extractor{
		fetcher: fetcher,
		metrics: metrics,
		logger:  logger,
	}
}

// Extract はURLから記事本文を抽出する。
// 主戦略（goquery）→ 代替戦略（readability）の順に試し、
// 正規化後100文字以上の本文を得た最初の戦略の結果を返す。
func (e *Extractor) Extract(ctx context.Context, rawURL string) (*model.ExtractedContent, error) {
	// 主戦略
	content, err := e.extractPrimary(ctx, rawURL)
	if err != nil {
		e.recordFailure(string(model.ExtractionPrimary))
		e.logger.Warn("主抽出戦略が失敗しました",
			slog.String("url", rawURL),
			slog.String("error", err.Error()),
		)
	} else if content != nil {
		return content, nil
	} else {
		// 本文不足による不成立もエラーと同じく戦略の失敗として数える
		e.recordFailure(string(model.ExtractionPrimary))
		e.logger.Debug("主抽出戦略では本文が得られませんでした",
			slog.String("url", rawURL),
		)
	}

	// 代替戦略: 再フェッチしてreadabilityで抽出
	content, err = e.extractFallback(ctx, rawURL)
	if err != nil {
		e.recordFailure(string(model.ExtractionFallback))
		e.logger.Warn("代替抽出戦略も失敗しました",
			slog.String("url", rawURL),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("全ての抽出戦略が失敗しました: %s", rawURL)
	}

	return content, nil
}

// extractPrimary はgoqueryによる構造抽出を行う。
// 本文が短すぎる場合は(nil, nil)を返し、代替戦略に委ねる。
func (e *Extractor) extractPrimary(ctx context.Context, rawURL string) (*model.ExtractedContent, error) {
	html, err := e.fetcher.FetchPage(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("HTMLパースに失敗: %w", err)
	}

	// タイトル・メタデータ候補はボイラープレート除去前に取得する
	// （h1やメタタグ周辺の要素が除去対象に含まれるため）。
	htmlTitle := extractTitleFromHTML(doc)

	text := extractMainText(doc)
	if len(text) <= minContentLength {
		// 本文が取れない構造のページ。エラーではなく戦略の不成立として扱う。
		return nil, nil
	}

	content := &model.ExtractedContent{
		Text:   text,
		Method: model.ExtractionPrimary,
	}

	// タイトル候補: メタデータ → 構造的候補 → 本文由来
	content.Title = htmlTitle
	if content.Title == "" {
		content.Title = title.FromContent(text)
	}

	// 補助メタデータ
	if author, ok := doc.Find(`meta[name="author"]`).Attr("content"); ok && strings.TrimSpace(author) != "" {
		content.Authors = []string{strings.TrimSpace(author)}
	}
	if img, ok := doc.Find(`meta[property="og:image"]`).Attr("content"); ok {
		content.TopImage = strings.TrimSpace(img)
	}
	content.PublishedAt = extractPublishedAt(doc)

	return content, nil
}

// extractFallback はreadabilityによる汎用記事抽出を行う。
// 主戦略で本文が得られないページ向けの代替手段として、ページを再取得して適用する。
func (e *Extractor) extractFallback(ctx context.Context, rawURL string) (*model.ExtractedContent, error) {
	html, err := e.fetcher.FetchPage(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("URLパースに失敗: %w", err)
	}

	article, err := readability.FromReader(bytes.NewReader(html), parsedURL)
	if err != nil {
		return nil, fmt.Errorf("readability抽出に失敗: %w", err)
	}

	text := textutil.CollapseWhitespace(article.TextContent)
	if len(text) <= minContentLength {
		return nil, fmt.Errorf("本文が短すぎます: %d文字", len(text))
	}

	content := &model.ExtractedContent{
		Text:     text,
		TopImage: article.Image,
		Method:   model.ExtractionFallback,
	}

	if cleaned := textutil.CleanTitle(article.Title); textutil.IsValidTitle(cleaned) {
		content.Title = cleaned
	}
	if byline := strings.TrimSpace(article.Byline); byline != "" {
		content.Authors = []string{byline}
	}
	if article.PublishedTime != nil {
		t := *article.PublishedTime
		content.PublishedAt = &t
	}

	return content, nil
}

// recordFailure は戦略の失敗をメトリクスに記録する。
func (e *Extractor) recordFailure(strategy string) {
	if e.metrics != nil {
		e.metrics.RecordExtractionFailure(strategy)
	}
}

// extractMainText は本文テキストを抽出する。
// ボイラープレート要素を除去した上で、article → main → bodyの順に
// 本文コンテナを探し、正規化したテキストを返す。
func extractMainText(doc *goquery.Document) string {
	doc.Find(boilerplateSelectors).Remove()

	for _, container := range []string{"article", "main", "body"} {
		sel := doc.Find(container)
		if sel.Length() == 0 {
			continue
		}
		if text := textutil.CollapseWhitespace(sel.First().Text()); text != "" {
			return text
		}
	}

	return ""
}

// extractTitleFromHTML は構造的なタイトル候補を優先順に試す。
// 各セレクタの先頭3要素まで確認し、clean後にis_validを通った最初の候補を返す。
func extractTitleFromHTML(doc *goquery.Document) string {
	for _, ts := range titleSelectors {
		found := ""
		doc.Find(ts.selector).EachWithBreak(func(i int, s *goquery.Selection) bool {
			if i >= 3 {
				return false
			}

			candidate := ""
			if ts.attr != "" {
				candidate, _ = s.Attr(ts.attr)
			} else {
				candidate = s.Text()
			}

			cleaned := textutil.CleanTitle(candidate)
			if textutil.IsValidTitle(cleaned) {
				found = cleaned
				return false
			}
			return true
		})

		if found != "" {
			return found
		}
	}

	return ""
}

// extractPublishedAt はメタタグから公開日時を抽出する。
// 日付形式はフィードごとにまちまちなため、dateparseで寛容にパースする。
func extractPublishedAt(doc *goquery.Document) *time.Time {
	for _, selector := range dateSelectors {
		raw, ok := doc.Find(selector).Attr("content")
		if !ok || strings.TrimSpace(raw) == "" {
			continue
		}
		if t, err := dateparse.ParseAny(strings.TrimSpace(raw)); err == nil {
			return &t
		}
	}
	return nil
}
