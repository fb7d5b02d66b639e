// Package model はドメインモデルを定義する。
package model

import "time"

// FeedEntry はフィードから取得した記事ポインタ1件を表す。
// 1回の取り込みパスで消費され、永続化はされない。
type FeedEntry struct {
	Title       string // 空の場合がある
	Link        string // 必須
	Published   string // フィード由来の自由形式日付文字列
	Source      string // フィードの表示名
	Description string // サニタイズ済みプレーンテキスト
}

// ExtractionMethod は本文抽出に成功した戦略を識別するタグ。
type ExtractionMethod string

const (
	// ExtractionPrimary はgoqueryベースの主抽出戦略。
	ExtractionPrimary ExtractionMethod = "primary"
	// ExtractionFallback はreadabilityベースの代替抽出戦略。
	ExtractionFallback ExtractionMethod = "fallback"
)

// ExtractedContent は1つのURLに対する本文抽出結果を表す。
// 抽出成功時のみ生成され、イミュータブルとして扱う。
type ExtractedContent struct {
	Title       string // 候補に過ぎない（TitleResolverが最終決定する）
	Text        string // 成功時は非空（正規化後100文字以上）
	Authors     []string
	PublishedAt *time.Time
	TopImage    string
	Method      ExtractionMethod
}
