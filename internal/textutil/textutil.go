// Package textutil はタイトルと本文の正規化・検証・切り詰めを提供する。
// 抽出ソースごとに品質のばらつきが大きいため、ここで長さと内容の
// 不変条件を一括して強制する。
package textutil

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// maxTitleLength はタイトルの最大文字数。超過分は直前の空白で切り詰める。
	maxTitleLength = 200
	// MinTitleLength はタイトルとして有効な最小文字数。
	MinTitleLength = 10
)

// invalidTitlePhrases はプレースホルダタイトルの拒否リスト。
// 大文字小文字を区別しない部分一致で判定する。
// URL由来のフォールバックタイトル（"Article from ..."）も検証を通す必要が
// あるため、"article"や"news"のような一般語は含めない。
var invalidTitlePhrases = []string{
	"untitled", "no title", "page not found",
	"error", "404", "access denied", "forbidden", "loading",
}

var (
	// trailingSiteName は末尾の「 - サイト名」形式のボイラープレート。
	trailingSiteName = regexp.MustCompile(`\s*-\s*[^-]*$`)
	// leadingSeparator は先頭の「| 」「- 」形式の区切り。
	leadingSeparator = regexp.MustCompile(`^\s*[|\-]\s*`)
	// trailingSeparator は末尾の「 |」「 -」形式の区切り。
	trailingSeparator = regexp.MustCompile(`\s*[|\-]\s*$`)
	// alphaRun は3文字以上の英字連続。これを含まない文字列はタイトルとして無効。
	alphaRun = regexp.MustCompile(`[a-zA-Z]{3,}`)
)

// CollapseWhitespace は改行・タブを含む連続空白を単一スペースに畳み込む。
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// CleanTitle はタイトルを正規化する。
// 連続空白の畳み込み、前後のボイラープレート断片の除去、
// 200文字上限（直前の空白で切って省略記号を付与）を適用する。
func CleanTitle(title string) string {
	if title == "" {
		return ""
	}

	title = CollapseWhitespace(title)
	title = trailingSiteName.ReplaceAllString(title, "")
	title = leadingSeparator.ReplaceAllString(title, "")
	title = trailingSeparator.ReplaceAllString(title, "")

	// 上限はバイト数ではなく文字数で数える。マルチバイト文字の途中で
	// 切るとUTF-8として壊れるため、ルーン境界でのみ切る。
	if utf8.RuneCountInString(title) > maxTitleLength {
		cut := string([]rune(title)[:maxTitleLength])
		if idx := strings.LastIndex(cut, " "); idx > 0 {
			cut = cut[:idx]
		}
		title = cut + "..."
	}

	return strings.TrimSpace(title)
}

// IsValidTitle はタイトルが有効かを判定する。
// 最小文字数未満、プレースホルダ語句を含む、
// 3文字以上の英字連続を含まない文字列を拒否する。
func IsValidTitle(title string) bool {
	trimmed := strings.TrimSpace(title)
	if len(trimmed) < MinTitleLength {
		return false
	}

	lower := strings.ToLower(trimmed)
	for _, phrase := range invalidTitlePhrases {
		if strings.Contains(lower, phrase) {
			return false
		}
	}

	return alphaRun.MatchString(title)
}

// TruncateTokens はテキストをトークン予算内に切り詰める。
// 1トークン≒4文字の近似で上限文字数を求め、予算内ならそのまま返す。
// 超過時は予算境界で切り、末尾20%以内に文末記号があればそこまで、
// なければ末尾10%以内の語境界まで戻し、どちらも無ければそのまま切る。
// 冪等: 一度切り詰めた結果に再適用しても変化しない。
func TruncateTokens(text string, maxTokens int) string {
	if text == "" {
		return text
	}

	maxChars := maxTokens * 4
	if utf8.RuneCountInString(text) <= maxChars {
		return text
	}

	// 文字数で切り詰めた後の末尾判定はバイトオフセットで行う。
	truncated := string([]rune(text)[:maxChars])
	limit := len(truncated)

	lastPeriod := strings.LastIndex(truncated, ".")
	lastExclam := strings.LastIndex(truncated, "!")
	lastQuestion := strings.LastIndex(truncated, "?")
	lastSentenceEnd := max(lastPeriod, max(lastExclam, lastQuestion))

	if lastSentenceEnd > limit*8/10 {
		return strings.TrimSpace(truncated[:lastSentenceEnd+1])
	}

	if lastSpace := strings.LastIndex(truncated, " "); lastSpace > limit*9/10 {
		return strings.TrimSpace(truncated[:lastSpace])
	}

	return strings.TrimSpace(truncated)
}
