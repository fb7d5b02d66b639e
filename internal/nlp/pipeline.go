// Package nlp は抽出済み本文に対するエンリッチメントパイプラインを提供する。
// 言語検出 → 翻訳 → 要約 → 固有表現抽出 → バイアス分類 → センチメント分類の
// 固定順で独立したステップを実行する。各ステップの失敗はその場で捕捉され、
// 文書化されたニュートラルな既定値に置き換えられる。1ステップの失敗が
// 記事全体の処理を中断することはない。
package nlp

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/hitoshi/newslens/internal/model"
	"github.com/hitoshi/newslens/internal/textutil"
)

// ステップごとのトークン・文字予算。
// モデルの系列長制限を超えないよう、各ステップが独立に入力を切り詰める。
const (
	// summaryInputTokens は要約モデルへの入力トークン予算。
	summaryInputTokens = 900
	// summaryOutputCap は要約モデルの出力トークン上限。
	summaryOutputCap = 512
	// minSummarizeWords はこれ未満の語数なら要約をスキップする閾値。
	// 短すぎるテキストは圧縮する意味がないため入力をそのまま返す。
	minSummarizeWords = 40
	// sentimentTokens はセンチメント分類の入力トークン予算。
	sentimentTokens = 400
	// biasTokens はバイアス分類の入力トークン予算。
	biasTokens = 300
	// entityInputChars は固有表現抽出の入力文字数上限。
	entityInputChars = 1000
)

// LanguageDetector は言語検出のインターフェース。
// 空入力でもエラーにせず"en"を返す実装であること。
type LanguageDetector interface {
	Detect(text string) string
}

// Translator は英語への翻訳のインターフェース。
type Translator interface {
	TranslateToEnglish(ctx context.Context, text, srcLang string) (string, error)
}

// Summarizer は要約モデルのインターフェース。
type Summarizer interface {
	Summarize(ctx context.Context, text string, maxTokens, minTokens int) (string, error)
}

// EntityExtractor は固有表現抽出モデルのインターフェース。
type EntityExtractor interface {
	ExtractEntities(ctx context.Context, text string) ([]model.RawEntity, error)
}

// SentimentClassifier はセンチメント分類モデルのインターフェース。
type SentimentClassifier interface {
	ClassifySentiment(ctx context.Context, text string) (string, float64, error)
}

// BiasClassifier はゼロショット分類モデルのインターフェース。
type BiasClassifier interface {
	ClassifyZeroShot(ctx context.Context, text string, labels []string) (string, float64, error)
}

// FailureRecorder はステップ失敗メトリクスの記録インターフェース。
type FailureRecorder interface {
	RecordEnrichmentFailure(step string)
}

// Classification はラベルと信頼度スコアの組。
type Classification struct {
	Label string
	Score float64
}

// Enrichment はパイプライン全ステップの結果を表す。
// 失敗したステップは既定値で埋められているため、常に完全な値を持つ。
type Enrichment struct {
	Language       string    // 既定値 "en"
	Text           string    // 翻訳適用後の作業テキスト
	TranslatedText string    // 非英語で翻訳が成功した場合のみ非空
	Summary        string    // 既定値 ""
	RawEntities    []model.RawEntity
	Sentiment      model.Sentiment
	SentimentScore float64
	Bias           string // 既定値 "neutral"
	BiasScore      float64
}

// Pipeline はエンリッチメントステップの明示的なレジストリ。
// プロセス起動時に1回構築され、全記事で読み取り専用に再利用される。
// 暗黙のグローバル状態は持たないため、テストでは偽の分類器を注入できる。
type Pipeline struct {
	detector   LanguageDetector
	translator Translator
	summarizer Summarizer
	entities   EntityExtractor
	sentiment  SentimentClassifier
	bias       BiasClassifier
	biasLabels []string
	maxSummary int
	metrics    FailureRecorder
	logger     *slog.Logger
}

// PipelineDeps はNewPipelineに必要な依存関係をまとめた構造体。
type PipelineDeps struct {
	Detector   LanguageDetector
	Translator Translator
	Summarizer Summarizer
	Entities   EntityExtractor
	Sentiment  SentimentClassifier
	Bias       BiasClassifier
	BiasLabels []string
	// MaxSummaryTokens は要約の最大出力トークン数（512で頭打ち）。
	MaxSummaryTokens int
	Metrics          FailureRecorder
	Logger           *slog.Logger
}

// NewPipeline はPipelineの新しいインスタンスを生成する。
func NewPipeline(deps PipelineDeps) *Pipeline {
	maxSummary := deps.MaxSummaryTokens
	if maxSummary <= 0 || maxSummary > summaryOutputCap {
		maxSummary = summaryOutputCap
	}
	return &Pipeline{
		detector:   deps.Detector,
		translator: deps.Translator,
		summarizer: deps.Summarizer,
		entities:   deps.Entities,
		sentiment:  deps.Sentiment,
		bias:       deps.Bias,
		biasLabels: deps.BiasLabels,
		maxSummary: maxSummary,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
	}
}

// Enrich は本文テキストに全エンリッチメントステップを適用する。
// どのステップが失敗しても結果は必ず返る。
func (p *Pipeline) Enrich(ctx context.Context, text string) *Enrichment {
	e := &Enrichment{
		Language:  "en",
		Text:      text,
		Sentiment: model.SentimentNeutral,
		Bias:      "neutral",
	}

	// 言語検出: 失敗時は"en"のまま
	e.Language = p.detector.Detect(text)

	// 翻訳: 検出言語が英語以外の場合のみ呼び出す
	if e.Language != "en" {
		translated, err := p.translator.TranslateToEnglish(ctx, text, e.Language)
		if err != nil {
			p.recordFailure("translation", err)
		} else if translated != "" {
			e.Text = translated
			e.TranslatedText = translated
		}
	}

	// 要約: 翻訳後のテキストに対して実行
	e.Summary = p.summarize(ctx, e.Text)

	// 固有表現抽出: 失敗時は空リスト
	rawEntities, err := p.entities.ExtractEntities(ctx, truncateChars(e.Text, entityInputChars))
	if err != nil {
		p.recordFailure("entities", err)
	} else {
		e.RawEntities = rawEntities
	}

	// バイアス分類: 失敗時は ("neutral", 0.0)
	if label, score, err := p.bias.ClassifyZeroShot(ctx, textutil.TruncateTokens(e.Text, biasTokens), p.biasLabels); err != nil {
		p.recordFailure("bias", err)
	} else {
		e.Bias = NormalizeBias(label)
		e.BiasScore = score
	}

	// センチメント分類: 失敗時は ("neutral", 0.0)
	if label, score, err := p.sentiment.ClassifySentiment(ctx, textutil.TruncateTokens(e.Text, sentimentTokens)); err != nil {
		p.recordFailure("sentiment", err)
	} else {
		e.Sentiment = model.NormalizeSentiment(label)
		e.SentimentScore = score
	}

	return e
}

// summarize は要約ステップを実行する。
// 40語未満の入力は圧縮する意味がないためそのまま返す。
// モデル呼び出しが失敗した場合は先頭3文によるフォールバック要約を返す。
// モデルが成功したが空の結果を返した場合（予期しない応答形式）は空文字列を返す。
func (p *Pipeline) summarize(ctx context.Context, text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	wordCount := len(strings.Fields(text))
	if wordCount < minSummarizeWords {
		p.logger.Debug("要約をスキップします（テキストが短すぎます）",
			slog.Int("word_count", wordCount),
		)
		return text
	}

	truncated := textutil.TruncateTokens(text, summaryInputTokens)

	maxTokens := p.maxSummary
	minTokens := max(30, maxTokens/3)
	if minTokens > maxTokens-10 {
		minTokens = maxTokens - 10
	}

	summary, err := p.summarizer.Summarize(ctx, truncated, maxTokens, minTokens)
	if err != nil {
		p.recordFailure("summarization", err)
		return fallbackSummary(text)
	}

	return summary
}

// fallbackSummary は先頭3文をピリオドで連結した簡易要約を生成する。
func fallbackSummary(text string) string {
	sentences := strings.SplitN(text, ".", 4)
	if len(sentences) > 3 {
		sentences = sentences[:3]
	}
	fallback := strings.TrimSpace(strings.Join(sentences, "."))
	if fallback != "" && !strings.HasSuffix(fallback, ".") {
		fallback += "."
	}
	return fallback
}

// truncateChars は文字数上限でテキストを切り詰める。
// ルーン境界で切るため、マルチバイト文字が途中で壊れることはない。
func truncateChars(text string, maxChars int) string {
	if utf8.RuneCountInString(text) <= maxChars {
		return text
	}
	return string([]rune(text)[:maxChars])
}

// recordFailure はステップ失敗をログとメトリクスに記録する。
func (p *Pipeline) recordFailure(step string, err error) {
	p.logger.Error("エンリッチメントステップが失敗しました",
		slog.String("step", step),
		slog.String("error", err.Error()),
	)
	if p.metrics != nil {
		p.metrics.RecordEnrichmentFailure(step)
	}
}
