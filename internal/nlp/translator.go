package nlp

import (
	"context"
	"strings"
)

// PassthroughTranslator は翻訳プロバイダ接続までの暫定実装。
// 外部の翻訳プロバイダ（DeepL/GCP等）は差し替え可能なコラボレータであり、
// 本実装は入力をそのまま返す。
type PassthroughTranslator struct{}

// NewPassthroughTranslator はPassthroughTranslatorの新しいインスタンスを生成する。
func NewPassthroughTranslator() *PassthroughTranslator {
	return &PassthroughTranslator{}
}

// TranslateToEnglish は英語テキストはそのまま、非英語テキストも
// 現状は無変換で返す（パススルー契約）。
func (t *PassthroughTranslator) TranslateToEnglish(_ context.Context, text, srcLang string) (string, error) {
	if text == "" {
		return text, nil
	}
	if strings.HasPrefix(strings.ToLower(srcLang), "en") {
		return text, nil
	}
	return text, nil
}
