package nlp

import (
	"strings"

	"github.com/abadojack/whatlanggo"
)

// WhatlangDetector はwhatlanggoによる言語検出の実装。
// プロセス内状態を持たないため読み取り専用で共有できる。
type WhatlangDetector struct{}

// NewWhatlangDetector はWhatlangDetectorの新しいインスタンスを生成する。
func NewWhatlangDetector() *WhatlangDetector {
	return &WhatlangDetector{}
}

// Detect はテキストのISO 639-1言語コードを返す。
// 空入力や判定不能な場合はエラーにせず"en"を返す。
func (d *WhatlangDetector) Detect(text string) string {
	if strings.TrimSpace(text) == "" {
		return "en"
	}

	info := whatlanggo.Detect(text)
	code := info.Lang.Iso6391()
	if code == "" {
		return "en"
	}
	return code
}
