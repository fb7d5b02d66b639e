// Package inference はモデル推論サーバーのHTTPクライアントを提供する。
// 要約・固有表現抽出・センチメント分類・ゼロショット分類の各エンドポイントを
// 呼び出す。モデルはサーバー側で1回だけロードされ、クライアントは
// プロセス起動時に1つ生成して全ステップで再利用する。
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/newslens/internal/model"
)

// Client はモデル推論サーバーへのHTTPクライアント。
// 読み取り専用で共有可能。呼び出しごとの再初期化コストはない。
type Client struct {
	endpoint   string
	apiKey     string
	logger     *slog.Logger
	httpClient *http.Client
}

// NewClient は再利用可能なクライアントを生成する。
// timeoutは1推論呼び出しあたりの上限時間。
func NewClient(endpoint, apiKey string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		endpoint:   strings.TrimSuffix(endpoint, "/"),
		apiKey:     apiKey,
		logger:     logger,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Summarize はテキストの要約を要求する。
// レスポンスが成功してもsummaryフィールドが空の場合は空文字列を返す
// （モデルが予期しない形式で応答したケース）。
func (c *Client) Summarize(ctx context.Context, text string, maxTokens, minTokens int) (string, error) {
	payload := map[string]any{
		"text":       text,
		"max_length": maxTokens,
		"min_length": minTokens,
	}

	var resp struct {
		Summary string `json:"summary"`
	}
	if err := c.post(ctx, "/summarize", payload, &resp); err != nil {
		return "", err
	}

	return strings.TrimSpace(resp.Summary), nil
}

// ExtractEntities は固有表現の候補リストを要求する。
// 返される候補は未検証であり、entity.Validateを通す必要がある。
func (c *Client) ExtractEntities(ctx context.Context, text string) ([]model.RawEntity, error) {
	payload := map[string]any{"text": text}

	var resp struct {
		Entities []model.RawEntity `json:"entities"`
	}
	if err := c.post(ctx, "/entities", payload, &resp); err != nil {
		return nil, err
	}

	return resp.Entities, nil
}

// ClassifySentiment はセンチメント分類を要求する。
// ラベルはモデル依存の表記（positive / LABEL_2 など）のまま返す。
// 正規化は呼び出し側（nlpパッケージ）が行う。
func (c *Client) ClassifySentiment(ctx context.Context, text string) (string, float64, error) {
	payload := map[string]any{"text": text}

	var resp struct {
		Label string  `json:"label"`
		Score float64 `json:"score"`
	}
	if err := c.post(ctx, "/sentiment", payload, &resp); err != nil {
		return "", 0, err
	}

	return strings.ToLower(resp.Label), resp.Score, nil
}

// ClassifyZeroShot は候補ラベルに対するゼロショット分類を要求し、
// 最上位のラベルとスコアを返す。信頼度による足切りは行わない。
func (c *Client) ClassifyZeroShot(ctx context.Context, text string, labels []string) (string, float64, error) {
	payload := map[string]any{
		"text":             text,
		"candidate_labels": labels,
	}

	var resp struct {
		Labels []string  `json:"labels"`
		Scores []float64 `json:"scores"`
	}
	if err := c.post(ctx, "/zero-shot", payload, &resp); err != nil {
		return "", 0, err
	}

	if len(resp.Labels) == 0 || len(resp.Scores) == 0 {
		return "", 0, fmt.Errorf("分類器が空の結果を返しました")
	}

	return strings.ToLower(resp.Labels[0]), resp.Scores[0], nil
}

// post はJSONペイロードをPOSTし、レスポンスをvにデコードする。
func (c *Client) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("ペイロードのエンコードに失敗: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("リクエスト作成に失敗: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("推論サーバーへのリクエストに失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		c.logger.Warn("推論サーバーがエラーを返しました",
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
			slog.String("body", strings.TrimSpace(string(detail))),
		)
		return fmt.Errorf("推論サーバーエラー: status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("レスポンスのデコードに失敗: %w", err)
	}

	return nil
}
