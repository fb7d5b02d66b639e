// Package extract は記事URLからの本文抽出を提供する。
// 主戦略（goqueryによる構造抽出）と代替戦略（readability）を順に試し、
// 正規化後100文字以上の本文が得られた最初の戦略を採用する。
package extract

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/newslens/internal/security"
)

// userAgent は外向きHTTPリクエストで名乗るUA文字列。
const userAgent = "Newslens/1.0 News Analyser"

// PageFetcher は記事ページの生HTML取得のインターフェース。
type PageFetcher interface {
	FetchPage(ctx context.Context, rawURL string) ([]byte, error)
}

// Fetcher はSSRF検証とレート制限付きで記事ページを取得する。
// 同一プロセス内の全記事フェッチが1つのレートリミッタを共有する。
type Fetcher struct {
	ssrfGuard   security.SSRFGuardService
	limiter     *rate.Limiter
	logger      *slog.Logger
	timeout     time.Duration
	maxBodySize int64
}

// NewFetcher はFetcherの新しいインスタンスを生成する。
// ratePerSecは1秒あたりの最大リクエスト数。
func NewFetcher(
	ssrfGuard security.SSRFGuardService,
	logger *slog.Logger,
	timeout time.Duration,
	maxBodySize int64,
	ratePerSec float64,
) *Fetcher {
	return &Fetcher{
		ssrfGuard:   ssrfGuard,
		limiter:     rate.NewLimiter(rate.Limit(ratePerSec), 1),
		logger:      logger,
		timeout:     timeout,
		maxBodySize: maxBodySize,
	}
}

// FetchPage は記事ページの生HTMLを取得する。
// SSRF検証 → レート制限待機 → HTTP GET → サイズ制限付き読み取りの順で実行する。
func (f *Fetcher) FetchPage(ctx context.Context, rawURL string) ([]byte, error) {
	// SSRF検証
	if err := f.ssrfGuard.ValidateURL(rawURL); err != nil {
		return nil, fmt.Errorf("SSRF検証に失敗: %w", err)
	}

	// レート制限: 取得先サイトへの負荷を抑える
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("レート制限待機が中断されました: %w", err)
	}

	client := f.ssrfGuard.NewSafeClient(f.timeout, f.maxBodySize)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("リクエスト作成に失敗: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html, application/xhtml+xml, */*")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエスト失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("予期しないHTTPステータス: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("レスポンス読み取り失敗: %w", err)
	}

	f.logger.Debug("ページを取得しました",
		slog.String("url", rawURL),
		slog.Int("bytes", len(body)),
	)

	return body, nil
}
