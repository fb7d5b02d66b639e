// Package search はMeilisearchをバックエンドとする記事インデックスを提供する。
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/meilisearch/meilisearch-go"

	"github.com/hitoshi/newslens/internal/model"
)

// taskWaitInterval はインデックスタスクのポーリング間隔。
const taskWaitInterval = 15 * 1000

// filterableAttributes は完全一致フィルタを許可する属性。
var filterableAttributes = []string{"language", "sentiment_overall", "bias_overall"}

// searchableAttributes は全文検索の対象属性。先頭ほど重み付けが強い。
var searchableAttributes = []string{"title", "summary", "original_text"}

// Filters は検索の完全一致絞り込み条件。空文字のフィールドは無視される。
type Filters struct {
	Language  string
	Sentiment string
	Bias      string
}

// Hit は検索結果1件。Scoreはランキングスコア（0.0〜1.0）。
type Hit struct {
	Doc   model.ArticleDoc
	Score float64
}

// NewClient はMeilisearchクライアントを生成する。
func NewClient(host, apiKey string) meilisearch.ServiceManager {
	return meilisearch.New(host, meilisearch.WithAPIKey(apiKey))
}

// Store は記事ドキュメントの索引付けと検索を行う。
type Store struct {
	client meilisearch.ServiceManager
	index  meilisearch.IndexManager
	logger *slog.Logger
}

// NewStore はStoreの新しいインスタンスを生成する。
func NewStore(client meilisearch.ServiceManager, indexName string, logger *slog.Logger) *Store {
	return &Store{
		client: client,
		index:  client.Index(indexName),
		logger: logger,
	}
}

// Health はインデックスストアの到達性を確認する。
func (s *Store) Health(ctx context.Context) error {
	if _, err := s.client.Health(); err != nil {
		return fmt.Errorf("インデックスストアへの接続に失敗: %w", err)
	}
	return nil
}

// EnsureIndex はインデックスの存在とフィルタ・検索属性の設定を保証する。
// 起動時に1回呼び出す。
func (s *Store) EnsureIndex(ctx context.Context) error {
	filterable := make([]interface{}, len(filterableAttributes))
	for i, attr := range filterableAttributes {
		filterable[i] = attr
	}
	task, err := s.index.UpdateFilterableAttributes(&filterable)
	if err != nil {
		return fmt.Errorf("フィルタ属性の設定に失敗: %w", err)
	}
	if _, err := s.index.WaitForTask(task.TaskUID, taskWaitInterval); err != nil {
		return fmt.Errorf("フィルタ属性タスクの完了待機に失敗: %w", err)
	}

	task, err = s.index.UpdateSearchableAttributes(&searchableAttributes)
	if err != nil {
		return fmt.Errorf("検索属性の設定に失敗: %w", err)
	}
	if _, err := s.index.WaitForTask(task.TaskUID, taskWaitInterval); err != nil {
		return fmt.Errorf("検索属性タスクの完了待機に失敗: %w", err)
	}

	s.logger.Info("インデックス設定を適用しました",
		slog.String("filterable", strings.Join(filterableAttributes, ",")),
		slog.String("searchable", strings.Join(searchableAttributes, ",")),
	)

	return nil
}

// Add は記事ドキュメントを1件索引付けし、タスク完了まで待機する。
func (s *Store) Add(ctx context.Context, doc *model.ArticleDoc) error {
	task, err := s.index.AddDocuments([]*model.ArticleDoc{doc}, nil)
	if err != nil {
		return fmt.Errorf("ドキュメント追加に失敗: %w", err)
	}
	if _, err := s.index.WaitForTask(task.TaskUID, taskWaitInterval); err != nil {
		return fmt.Errorf("索引付けタスクの完了待機に失敗: %w", err)
	}
	return nil
}

// Search はクエリとフィルタで記事を検索し、ランキングスコア付きで返す。
func (s *Store) Search(ctx context.Context, query string, filters Filters, limit int) ([]Hit, error) {
	req := &meilisearch.SearchRequest{
		Query:            query,
		Limit:            int64(limit),
		ShowRankingScore: true,
	}
	if filter := buildFilter(filters); filter != "" {
		req.Filter = filter
	}

	result, err := s.index.Search(query, req)
	if err != nil {
		return nil, fmt.Errorf("検索に失敗: %w", err)
	}

	hits := make([]Hit, 0, len(result.Hits))
	for _, raw := range result.Hits {
		hit, err := decodeHit(raw)
		if err != nil {
			// 壊れたヒットはスキップしてリクエスト全体は成功させる
			s.logger.Warn("検索ヒットのデコードに失敗しました",
				slog.String("error", err.Error()),
			)
			continue
		}
		hits = append(hits, hit)
	}

	return hits, nil
}

// decodeHit はMeilisearchのヒットを記事ドキュメントへ変換する。
func decodeHit(raw meilisearch.Hit) (Hit, error) {
	var score float64
	if rankingRaw, ok := raw["_rankingScore"]; ok {
		if err := json.Unmarshal(rankingRaw, &score); err != nil {
			return Hit{}, fmt.Errorf("ランキングスコアのデコードに失敗: %w", err)
		}
	}
	delete(raw, "_rankingScore")

	data, err := json.Marshal(raw)
	if err != nil {
		return Hit{}, fmt.Errorf("ヒットの再エンコードに失敗: %w", err)
	}

	var doc model.ArticleDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return Hit{}, fmt.Errorf("ドキュメントのデコードに失敗: %w", err)
	}

	return Hit{Doc: doc, Score: score}, nil
}

// buildFilter はフィルタ条件をMeilisearchのフィルタ式へ変換する。
// 値は必ずエスケープ済みの引用符付きリテラルとして埋め込む。
func buildFilter(filters Filters) string {
	var clauses []string
	if filters.Language != "" {
		clauses = append(clauses, filterClause("language", filters.Language))
	}
	if filters.Sentiment != "" {
		clauses = append(clauses, filterClause("sentiment_overall", filters.Sentiment))
	}
	if filters.Bias != "" {
		clauses = append(clauses, filterClause("bias_overall", filters.Bias))
	}
	return strings.Join(clauses, " AND ")
}

func filterClause(attribute, value string) string {
	return attribute + ` = "` + escapeFilterValue(value) + `"`
}

// escapeFilterValue はフィルタ値のバックスラッシュと引用符をエスケープする。
func escapeFilterValue(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	return strings.ReplaceAll(value, `"`, `\"`)
}
