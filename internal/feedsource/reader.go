// Package feedsource はRSS/Atomフィードからエントリを取得する。
package feedsource

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"

	"github.com/hitoshi/newslens/internal/model"
)

// SSRFValidator はSSRF検証のインターフェース。
type SSRFValidator interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client
}

// Reader は設定されたフィードURLからエントリを取得する。
// フィードのパース失敗は診断ログのみで、エラーとして扱わない。
type Reader struct {
	ssrfGuard   SSRFValidator
	sanitizer   *bluemonday.Policy
	logger      *slog.Logger
	timeout     time.Duration
	maxBodySize int64
}

// NewReader はReaderの新しいインスタンスを生成する。
func NewReader(ssrfGuard SSRFValidator, logger *slog.Logger, timeout time.Duration, maxBodySize int64) *Reader {
	return &Reader{
		ssrfGuard:   ssrfGuard,
		sanitizer:   bluemonday.StrictPolicy(),
		logger:      logger,
		timeout:     timeout,
		maxBodySize: maxBodySize,
	}
}

// Fetch は1つのフィードURLからエントリを取得する。
// ネットワーク障害とSSRF検証失敗はエラーを返すが、フィード本体の
// パース失敗は警告ログを残して空リストを返す。
func (r *Reader) Fetch(ctx context.Context, feedURL string, limit int) ([]model.FeedEntry, error) {
	if err := r.ssrfGuard.ValidateURL(feedURL); err != nil {
		return nil, fmt.Errorf("SSRF検証に失敗: %w", err)
	}

	client := r.ssrfGuard.NewSafeClient(r.timeout, r.maxBodySize)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("リクエスト作成に失敗: %w", err)
	}
	req.Header.Set("User-Agent", "Newslens/1.0 News Analyser")
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, */*")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエスト失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("予期しないHTTPステータス: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, r.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("レスポンス読み取り失敗: %w", err)
	}

	parser := gofeed.NewParser()
	parsedFeed, err := parser.ParseString(string(body))
	if err != nil {
		// パース失敗はフェッチエラーとしない（診断ログを残して継続）
		r.logger.Warn("フィードのパースに失敗しました",
			slog.String("feed_url", feedURL),
			slog.String("error", err.Error()),
		)
		return []model.FeedEntry{}, nil
	}

	source := strings.TrimSpace(parsedFeed.Title)
	entries := r.convertItems(parsedFeed.Items, source, limit)

	r.logger.Info("フィードを取得しました",
		slog.String("feed_url", feedURL),
		slog.String("source", source),
		slog.Int("items_total", len(parsedFeed.Items)),
		slog.Int("items_kept", len(entries)),
	)

	return entries, nil
}

// FetchAll は複数のフィードURLからエントリを取得して結合する。
// 個別フィードの失敗はログに残して他のフィードを継続する。
// 結果は各フィード内の出現順を保ったままURL指定順に並ぶ。
func (r *Reader) FetchAll(ctx context.Context, feedURLs []string, limitPerFeed int) []model.FeedEntry {
	var all []model.FeedEntry
	for _, feedURL := range feedURLs {
		entries, err := r.Fetch(ctx, feedURL, limitPerFeed)
		if err != nil {
			r.logger.Error("フィードの取得に失敗しました",
				slog.String("feed_url", feedURL),
				slog.String("error", err.Error()),
			)
			continue
		}
		all = append(all, entries...)
	}
	return all
}

// convertItems はgofeedのエントリをmodel.FeedEntryに変換する。
// リンクの無いエントリは後続処理で使えないため除外する。
func (r *Reader) convertItems(items []*gofeed.Item, source string, limit int) []model.FeedEntry {
	entries := make([]model.FeedEntry, 0, len(items))

	for _, item := range items {
		if item == nil {
			continue
		}
		if limit > 0 && len(entries) >= limit {
			break
		}

		link := strings.TrimSpace(item.Link)
		if link == "" && item.GUID != "" &&
			(strings.HasPrefix(item.GUID, "http://") || strings.HasPrefix(item.GUID, "https://")) {
			link = item.GUID
		}
		if link == "" {
			continue
		}

		entry := model.FeedEntry{
			Title:       strings.TrimSpace(item.Title),
			Link:        link,
			Source:      source,
			Description: r.sanitizeDescription(item.Description),
		}

		// 公開日時は自由形式の文字列のまま保持し、組み立て側で
		// 寛容にパースする。
		if item.Published != "" {
			entry.Published = item.Published
		} else if item.Updated != "" {
			entry.Published = item.Updated
		}

		entries = append(entries, entry)
	}

	return entries
}

// sanitizeDescription はHTML断片をプレーンテキストへ変換する。
func (r *Reader) sanitizeDescription(raw string) string {
	sanitized := r.sanitizer.Sanitize(raw)
	return strings.Join(strings.Fields(sanitized), " ")
}
