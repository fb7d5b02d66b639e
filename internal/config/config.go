// Package config はアプリケーション設定の読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Index store (Meilisearch)
	MeiliHost   string
	MeiliAPIKey string
	MeiliIndex  string

	// Inference server
	InferenceEndpoint string
	InferenceAPIKey   string
	InferenceTimeout  time.Duration

	// Feeds
	FeedURLs     []string
	LimitPerFeed int

	// Fetch
	FetchTimeout    time.Duration
	FetchMaxSize    int64
	FetchRatePerSec float64

	// Enrichment
	MaxSummaryTokens int
	BiasLabels       []string

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string
}

// defaultBiasLabels はゼロショットバイアス分類の候補ラベル。
// ラベル集合は検証済みの分類体系ではなく設定値として扱う。
var defaultBiasLabels = []string{"liberal", "conservative", "neutral", "left-wing", "right-wing"}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.MeiliHost = os.Getenv("MEILI_HOST")
	if cfg.MeiliHost == "" {
		missing = append(missing, "MEILI_HOST")
	}

	cfg.InferenceEndpoint = os.Getenv("INFERENCE_ENDPOINT")
	if cfg.InferenceEndpoint == "" {
		missing = append(missing, "INFERENCE_ENDPOINT")
	}

	feeds := os.Getenv("FEED_URLS")
	if feeds == "" {
		missing = append(missing, "FEED_URLS")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	cfg.FeedURLs = splitAndTrim(feeds)
	if len(cfg.FeedURLs) == 0 {
		return nil, fmt.Errorf("FEED_URLS に有効なURLが含まれていません")
	}

	// Optional fields with defaults
	cfg.MeiliAPIKey = getEnvString("MEILI_API_KEY", "")
	cfg.MeiliIndex = getEnvString("MEILI_INDEX", "news_articles")
	cfg.InferenceAPIKey = getEnvString("INFERENCE_API_KEY", "")
	cfg.InferenceTimeout = getEnvDuration("INFERENCE_TIMEOUT", 30*time.Second)
	cfg.LimitPerFeed = getEnvInt("LIMIT_PER_FEED", 20)
	cfg.FetchTimeout = getEnvDuration("FETCH_TIMEOUT", 15*time.Second)
	cfg.FetchMaxSize = getEnvInt64("FETCH_MAX_SIZE", 5242880)
	cfg.FetchRatePerSec = getEnvFloat("FETCH_RATE_PER_SEC", 2.0)
	cfg.MaxSummaryTokens = getEnvInt("MAX_SUMMARY_TOKENS", 160)
	cfg.BiasLabels = getEnvList("BIAS_LABELS", defaultBiasLabels)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

// splitAndTrim はカンマ区切り文字列を空要素を除いて分割する。
func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func getEnvList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	parts := splitAndTrim(v)
	if len(parts) == 0 {
		return defaultVal
	}
	return parts
}
