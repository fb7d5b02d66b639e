package search

import (
	"encoding/json"
	"testing"

	"github.com/meilisearch/meilisearch-go"
)

// TestBuildFilter_AllFiltersCombined は指定された全フィルタがANDで
// 結合されることを検証する。
func TestBuildFilter_AllFiltersCombined(t *testing.T) {
	got := buildFilter(Filters{Language: "en", Sentiment: "positive", Bias: "neutral"})

	want := `language = "en" AND sentiment_overall = "positive" AND bias_overall = "neutral"`
	if got != want {
		t.Errorf("buildFilter = %q, want %q", got, want)
	}
}

// TestBuildFilter_EmptyFieldsIgnored は空のフィルタフィールドが
// 式に含まれないことを検証する。
func TestBuildFilter_EmptyFieldsIgnored(t *testing.T) {
	got := buildFilter(Filters{Sentiment: "negative"})

	want := `sentiment_overall = "negative"`
	if got != want {
		t.Errorf("buildFilter = %q, want %q", got, want)
	}
}

// TestBuildFilter_NoFiltersReturnsEmpty はフィルタ未指定で空文字列が
// 返ることを検証する。
func TestBuildFilter_NoFiltersReturnsEmpty(t *testing.T) {
	if got := buildFilter(Filters{}); got != "" {
		t.Errorf("buildFilter = %q, want \"\"", got)
	}
}

// TestEscapeFilterValue_EscapesInjectionAttempts は引用符とバック
// スラッシュがエスケープされフィルタ式を壊せないことを検証する。
func TestEscapeFilterValue_EscapesInjectionAttempts(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"引用符", `en" OR language = "de`, `en\" OR language = \"de`},
		{"バックスラッシュ", `a\b`, `a\\b`},
		{"両方", `a\"b`, `a\\\"b`},
		{"通常値", "en", "en"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := escapeFilterValue(tt.input); got != tt.want {
				t.Errorf("escapeFilterValue(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// makeHit はmap[string]anyからMeilisearchのヒットを構築する。
func makeHit(t *testing.T, fields map[string]any) meilisearch.Hit {
	t.Helper()
	hit := make(meilisearch.Hit, len(fields))
	for k, v := range fields {
		data, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal %s: %v", k, err)
		}
		hit[k] = data
	}
	return hit
}

// TestDecodeHit_MapsDocumentAndScore はヒットがドキュメントと
// ランキングスコアに変換されることを検証する。
func TestDecodeHit_MapsDocumentAndScore(t *testing.T) {
	hit := makeHit(t, map[string]any{
		"id":                "doc-1",
		"title":             "Markets rally after decision",
		"url":               "https://example.com/a",
		"language":          "en",
		"sentiment_overall": "positive",
		"bias_overall":      "neutral",
		"_rankingScore":     0.87,
	})

	got, err := decodeHit(hit)
	if err != nil {
		t.Fatalf("decodeHit returned error: %v", err)
	}

	if got.Doc.ID != "doc-1" || got.Doc.Title != "Markets rally after decision" {
		t.Errorf("doc = %+v", got.Doc)
	}
	if got.Doc.Language != "en" {
		t.Errorf("language = %q", got.Doc.Language)
	}
	if got.Score != 0.87 {
		t.Errorf("score = %v, want 0.87", got.Score)
	}
}

// TestDecodeHit_MissingScoreDefaultsToZero はランキングスコアの無い
// ヒットでスコアが0になることを検証する。
func TestDecodeHit_MissingScoreDefaultsToZero(t *testing.T) {
	hit := makeHit(t, map[string]any{"id": "doc-2", "title": "Some headline"})

	got, err := decodeHit(hit)
	if err != nil {
		t.Fatalf("decodeHit returned error: %v", err)
	}
	if got.Score != 0 {
		t.Errorf("score = %v, want 0", got.Score)
	}
}
