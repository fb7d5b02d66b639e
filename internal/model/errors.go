// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, ingest, search, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidQuery     = "INVALID_QUERY"
	ErrCodeInvalidLimit     = "INVALID_LIMIT"
	ErrCodeIndexUnavailable = "INDEX_UNAVAILABLE"
	ErrCodeSearchFailed     = "SEARCH_FAILED"
	ErrCodeIngestFailed     = "INGEST_FAILED"
)

// NewInvalidLimitError は無効な取得件数エラーを生成する。
func NewInvalidLimitError(limit int) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidLimit,
		Message:  fmt.Sprintf("無効な取得件数です: %d", limit),
		Category: "validation",
		Action:   "取得件数には1以上の整数を指定してください。",
	}
}

// NewInvalidQueryError は無効な検索条件エラーを生成する。
func NewInvalidQueryError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidQuery,
		Message:  fmt.Sprintf("無効な検索条件です: %s", reason),
		Category: "validation",
		Action:   "検索条件を確認してください。",
	}
}

// NewIndexUnavailableError はインデックスストア接続不可エラーを生成する。
// バッチ開始前のヘルスチェック失敗時に使用し、バッチ全体を中断させる。
func NewIndexUnavailableError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeIndexUnavailable,
		Message:  fmt.Sprintf("インデックスストアに接続できません: %s", reason),
		Category: "system",
		Action:   "検索エンジンの稼働状況を確認してから再度お試しください。",
	}
}

// NewSearchFailedError は検索失敗エラーを生成する。
func NewSearchFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeSearchFailed,
		Message:  fmt.Sprintf("記事の検索に失敗しました: %s", reason),
		Category: "search",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewIngestFailedError は取り込み起動失敗エラーを生成する。
func NewIngestFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeIngestFailed,
		Message:  fmt.Sprintf("取り込みバッチの起動に失敗しました: %s", reason),
		Category: "ingest",
		Action:   "設定とインデックスストアの稼働状況を確認してください。",
	}
}
