// Package entity は固有表現抽出の生出力を検証済みレコードに変換する。
// モデル出力はフィールドの欠落・不正な値を含みうるため、
// ここで名前の品質検証、既定値の適用、大文字小文字を区別しない重複排除を行う。
package entity

import (
	"strings"
	"unicode"

	"github.com/hitoshi/newslens/internal/model"
)

// defaultScore はスコア欠落時の既定の信頼度。
const defaultScore = 0.5

// Validate は生の固有表現候補を検証し、整形済みのEntityMentionリストを返す。
// 候補ごとに最初の違反で棄却する:
//   - 名前がトリム後に空、2文字未満、数字のみ、記号のみ
//
// 受理された候補のフィールドは既定値で補完される
// （type→misc、sentiment→neutral、score→0.5）。
// 名前の重複は大文字小文字を区別せず、最初の出現のみ残す。
func Validate(raw []model.RawEntity) []model.EntityMention {
	if len(raw) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(raw))
	validated := make([]model.EntityMention, 0, len(raw))

	for _, candidate := range raw {
		name := strings.TrimSpace(candidate.Name)
		if len(name) < 2 {
			continue
		}
		if isAllDigits(name) || isAllPunct(name) {
			continue
		}

		// 重複排除: 最初の出現が勝つ
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		mention := model.EntityMention{
			Name:      name,
			Type:      normalizeType(candidate.Type),
			Sentiment: normalizeSentiment(candidate.Sentiment),
			Bias:      strings.TrimSpace(candidate.Bias),
			Score:     defaultScore,
		}
		if candidate.Score != nil {
			mention.Score = *candidate.Score
		}

		validated = append(validated, mention)
	}

	if len(validated) == 0 {
		return nil
	}
	return validated
}

// normalizeType はtypeを小文字化し、閉集合に含まれない値をmiscに落とす。
func normalizeType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	if !model.IsValidEntityType(t) {
		return "misc"
	}
	return t
}

// normalizeSentiment はsentimentを3値のいずれかに落とす。
func normalizeSentiment(s string) model.Sentiment {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "positive":
		return model.SentimentPositive
	case "negative":
		return model.SentimentNegative
	default:
		return model.SentimentNeutral
	}
}

// isAllDigits は文字列が数字のみで構成されるかを判定する。
func isAllDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// isAllPunct は文字列が記号・句読点のみで構成されるかを判定する。
func isAllPunct(s string) bool {
	for _, r := range s {
		if !unicode.IsPunct(r) && !unicode.IsSymbol(r) {
			return false
		}
	}
	return true
}
