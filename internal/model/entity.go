// Package model はドメインモデルを定義する。
package model

// RawEntity は固有表現抽出器が返す未検証の候補1件を表す。
// どのフィールドも欠落・不正な値の可能性があり、
// entity.Validateを通過したものだけがEntityMentionになる。
type RawEntity struct {
	Name      string   `json:"name"`
	Type      string   `json:"type"`
	Sentiment string   `json:"sentiment"`
	Bias      string   `json:"bias"`
	Score     *float64 `json:"score"`
}
