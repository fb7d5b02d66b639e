// Package model はドメインモデルを定義する。
package model

import "time"

// OriginalTextLimit は保存する本文の最大文字数。
// エンリッチメント各ステップのトークン予算とは独立に適用される。
const OriginalTextLimit = 5000

// Sentiment はセンチメントラベルを表す。
type Sentiment string

const (
	// SentimentPositive はポジティブなセンチメント。
	SentimentPositive Sentiment = "positive"
	// SentimentNeutral はニュートラルなセンチメント。
	SentimentNeutral Sentiment = "neutral"
	// SentimentNegative はネガティブなセンチメント。
	SentimentNegative Sentiment = "negative"
)

// NormalizeSentiment は分類器のラベル表記ゆれを3値に正規化する。
// モデルによりラベル形式が異なる（positive / pos / label_2 など）ため、
// 既知の表記を吸収し、未知のラベルはneutralに落とす。
func NormalizeSentiment(label string) Sentiment {
	switch label {
	case "positive", "pos", "label_2":
		return SentimentPositive
	case "negative", "neg", "label_0":
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

// validEntityTypes はEntityMentionのtypeとして許可される閉集合。
var validEntityTypes = map[string]struct{}{
	"person": {}, "org": {}, "location": {}, "event": {}, "misc": {},
	"gpe": {}, "date": {}, "time": {}, "cardinal": {}, "ordinal": {},
	"quantity": {}, "loc": {}, "law": {}, "product": {}, "norp": {},
	"work_of_art": {},
}

// IsValidEntityType はtypeが許可された閉集合に含まれるかを返す。
func IsValidEntityType(t string) bool {
	_, ok := validEntityTypes[t]
	return ok
}

// EntityMention は記事から抽出された固有表現1件を表す。
// バリデーション後はイミュータブルとして扱う。
// 記事内でnameは大文字小文字を区別せず一意（最初の出現が勝つ）。
type EntityMention struct {
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Sentiment Sentiment `json:"sentiment"`
	Bias      string    `json:"bias,omitempty"`
	Score     float64   `json:"score"`
}

// ArticleDoc はインデックスに保存する記事ドキュメントを表す。
// Assemblerが1回だけ生成し、以降は変更しない。
// 同一URLの再取り込みは新しいドキュメントを生成する（上書き更新はしない）。
type ArticleDoc struct {
	ID               string          `json:"id"`
	Title            string          `json:"title"`
	URL              string          `json:"url"`
	SourceName       string          `json:"source_name"`
	PublishedDate    *time.Time      `json:"published_date,omitempty"`
	Language         string          `json:"language"`
	OriginalText     string          `json:"original_text"`
	TranslatedText   string          `json:"translated_text,omitempty"`
	Summary          string          `json:"summary,omitempty"`
	SentimentOverall Sentiment       `json:"sentiment_overall"`
	SentimentScore   float64         `json:"sentiment_score"`
	BiasOverall      string          `json:"bias_overall"`
	BiasScore        float64         `json:"bias_score"`
	Entities         []EntityMention `json:"entities"`
	ScrapedAt        time.Time       `json:"scraped_at"`
	Tags             []string        `json:"tags"`
}

// IngestSummary は1回の取り込みバッチの結果サマリーを表す。
// バッチは常にサマリーを返す（全件失敗でもエラーにはしない）。
// Errorsは処理順を保持する。
type IngestSummary struct {
	TotalFetched int      `json:"total_fetched"`
	Indexed      int      `json:"indexed"`
	Errors       []string `json:"errors"`
}
