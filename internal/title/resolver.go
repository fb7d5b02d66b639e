// Package title は複数の信頼できない候補ソースから記事タイトルを1つ決定する。
// フィード由来 → 抽出器由来 → 本文由来 → URL由来の順で候補を試し、
// 最初に検証を通った候補を採用する。URL由来は必ず非空を返すため、
// Resolveが空文字列を返すことはない。
package title

import (
	"regexp"
	"strings"

	"github.com/hitoshi/newslens/internal/textutil"
)

// sentenceSplitter は本文を文に分割する区切りパターン。
var sentenceSplitter = regexp.MustCompile(`[.!?]+`)

// fileExtension はURLセグメント末尾の拡張子（.html等）。
var fileExtension = regexp.MustCompile(`\.[a-z]+$`)

// nonWordChars は語と空白以外の文字。
var nonWordChars = regexp.MustCompile(`[^\w\s]`)

// contentLeadIns は本文由来タイトルとして不適切な語り出し。
// これらで始まる文は記事の内容ではなくメタ記述である可能性が高い。
var contentLeadIns = []string{
	"the article", "this article", "according to", "in a", "on ", "at ",
}

// genericSegments はURLパスのうちタイトルにならない汎用トークン。
var genericSegments = []string{"index", "page", "www", "news", "article", "default"}

// Resolver は4段階のフォールバックチェーンでタイトルを決定する。
type Resolver struct{}

// NewResolver はResolverの新しいインスタンスを生成する。
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve は候補ソースを順に試し、最初に有効なタイトルを返す。
// 同一入力に対して常に同一の結果を返す（冪等）。
func (r *Resolver) Resolve(feedTitle, extractedTitle, bodyText, rawURL string) string {
	// 候補生成関数を優先順に並べ、clean後にis_validを通った最初の候補を採用する。
	candidates := []func() string{
		func() string { return textutil.CleanTitle(feedTitle) },
		func() string { return textutil.CleanTitle(extractedTitle) },
		func() string { return FromContent(bodyText) },
		func() string { return FromURL(rawURL) },
	}

	for _, candidate := range candidates {
		if t := candidate(); t != "" && textutil.IsValidTitle(t) {
			return t
		}
	}

	// FromURLは常に非空を返すためここには到達しないが、
	// 万一に備えてドメインラベルを返す。
	return DomainLabel(rawURL)
}

// FromContent は本文の先頭5文からタイトル候補を合成する。
// 15〜150文字で、語り出しの定型句で始まらない最初の文を採用する。
// 候補が無い場合は空文字列を返す。
func FromContent(text string) string {
	if len(text) < 50 {
		return ""
	}

	sentences := sentenceSplitter.Split(text, -1)
	if len(sentences) > 5 {
		sentences = sentences[:5]
	}

	for _, sentence := range sentences {
		sentence = strings.TrimSpace(sentence)
		if len(sentence) < 15 || len(sentence) > 150 {
			continue
		}

		if hasLeadIn(sentence) {
			continue
		}

		cleaned := textutil.CleanTitle(sentence)
		if textutil.IsValidTitle(cleaned) {
			return cleaned
		}
	}

	return ""
}

// FromURL はURLのパスセグメントからタイトルを合成する。
// 4文字未満・汎用トークン・数字のみのセグメントを除外し、
// ハイフン/アンダースコア区切りをタイトルケースに変換して最長のものを返す。
// 有効なセグメントが無い場合はドメイン名由来のラベルを返すため、常に非空。
func FromURL(rawURL string) string {
	cleanURL := strings.TrimPrefix(rawURL, "https://")
	cleanURL = strings.TrimPrefix(cleanURL, "http://")
	cleanURL = strings.TrimPrefix(cleanURL, "www.")

	parts := strings.Split(cleanURL, "/")
	if len(parts) < 2 {
		return DomainLabel(rawURL)
	}

	var meaningful []string
	for _, part := range parts[1:] {
		if len(part) < 4 || isAllDigits(part) || hasGenericToken(part) {
			continue
		}

		cleaned := strings.ReplaceAll(part, "-", " ")
		cleaned = strings.ReplaceAll(cleaned, "_", " ")
		cleaned = fileExtension.ReplaceAllString(cleaned, "")
		cleaned = nonWordChars.ReplaceAllString(cleaned, " ")
		cleaned = textutil.CollapseWhitespace(cleaned)

		if len(cleaned) > 5 {
			meaningful = append(meaningful, cleaned)
		}
	}

	if len(meaningful) == 0 {
		return DomainLabel(rawURL)
	}

	longest := meaningful[0]
	for _, m := range meaningful[1:] {
		if len(m) > len(longest) {
			longest = m
		}
	}

	return titleCase(longest)
}

// DomainLabel はドメイン名から最終フォールバックのタイトルを生成する。
// URLからドメインすら取れない場合は固定ラベルを返す。
func DomainLabel(rawURL string) string {
	cleanURL := strings.TrimPrefix(rawURL, "https://")
	cleanURL = strings.TrimPrefix(cleanURL, "http://")
	cleanURL = strings.TrimPrefix(cleanURL, "www.")

	domain := strings.SplitN(cleanURL, "/", 2)[0]
	domain = strings.SplitN(domain, "?", 2)[0]
	for _, tld := range []string{".com", ".org", ".net", ".in"} {
		domain = strings.ReplaceAll(domain, tld, "")
	}

	if domain == "" {
		return "News Article"
	}
	return "Article from " + titleCase(domain)
}

// hasLeadIn は文が語り出しの定型句で始まるかを判定する。
func hasLeadIn(sentence string) bool {
	lower := strings.ToLower(sentence)
	for _, leadIn := range contentLeadIns {
		if strings.HasPrefix(lower, leadIn) {
			return true
		}
	}
	return false
}

// hasGenericToken はセグメントが汎用トークンを含むかを判定する。
func hasGenericToken(part string) bool {
	lower := strings.ToLower(part)
	for _, token := range genericSegments {
		if strings.Contains(lower, token) {
			return true
		}
	}
	return false
}

// isAllDigits は文字列が数字のみで構成されるかを判定する。
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// titleCase は空白区切りの各語の先頭を大文字化する。
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}
