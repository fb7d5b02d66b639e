// Package app はアプリケーションの初期化と起動モードの切り替えを行う。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/newslens/internal/article"
	"github.com/hitoshi/newslens/internal/config"
	"github.com/hitoshi/newslens/internal/extract"
	"github.com/hitoshi/newslens/internal/feedsource"
	"github.com/hitoshi/newslens/internal/handler"
	"github.com/hitoshi/newslens/internal/inference"
	"github.com/hitoshi/newslens/internal/ingest"
	"github.com/hitoshi/newslens/internal/logger"
	"github.com/hitoshi/newslens/internal/metrics"
	"github.com/hitoshi/newslens/internal/nlp"
	"github.com/hitoshi/newslens/internal/search"
	"github.com/hitoshi/newslens/internal/security"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("index", cfg.MeiliIndex),
	)

	switch cmd {
	case CommandIngest:
		return runIngest(cfg)
	default:
		return runServe(cfg)
	}
}

// components は取り込みと検索で共有する依存関係一式。
type components struct {
	store        *search.Store
	orchestrator *ingest.Orchestrator
	collector    *metrics.Collector
	registry     *prometheus.Registry
}

// buildComponents は全依存関係をワイヤリングする。
// 各クライアントはプロセス起動時に1回構築し、全記事で再利用する。
func buildComponents(cfg *config.Config) *components {
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	ssrfGuard := security.NewSSRFGuard()

	// インデックスストア
	msClient := search.NewClient(cfg.MeiliHost, cfg.MeiliAPIKey)
	store := search.NewStore(msClient, cfg.MeiliIndex, slog.Default())

	// 本文抽出
	fetcher := extract.NewFetcher(
		ssrfGuard, slog.Default(),
		cfg.FetchTimeout, cfg.FetchMaxSize, cfg.FetchRatePerSec,
	)
	extractor := extract.NewExtractor(fetcher, collector, slog.Default())

	// エンリッチメント
	inferenceClient := inference.NewClient(
		cfg.InferenceEndpoint, cfg.InferenceAPIKey,
		cfg.InferenceTimeout, slog.Default(),
	)
	pipeline := nlp.NewPipeline(nlp.PipelineDeps{
		Detector:         nlp.NewWhatlangDetector(),
		Translator:       nlp.NewPassthroughTranslator(),
		Summarizer:       inferenceClient,
		Entities:         inferenceClient,
		Sentiment:        inferenceClient,
		Bias:             inferenceClient,
		BiasLabels:       cfg.BiasLabels,
		MaxSummaryTokens: cfg.MaxSummaryTokens,
		Metrics:          collector,
		Logger:           slog.Default(),
	})

	// 記事組み立てと取り込み
	assembler := article.NewAssembler(extractor, pipeline, slog.Default())
	reader := feedsource.NewReader(ssrfGuard, slog.Default(), cfg.FetchTimeout, cfg.FetchMaxSize)
	orchestrator := ingest.NewOrchestrator(
		reader, assembler, store, collector,
		slog.Default(), cfg.FeedURLs, cfg.LimitPerFeed,
	)

	return &components{
		store:        store,
		orchestrator: orchestrator,
		collector:    collector,
		registry:     registry,
	}
}

// runServe はAPIサーバーモードで起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	c := buildComponents(cfg)

	ctx := context.Background()
	if err := c.store.Health(ctx); err != nil {
		return fmt.Errorf("index store is not reachable: %w", err)
	}
	if err := c.store.EnsureIndex(ctx); err != nil {
		return fmt.Errorf("failed to prepare index: %w", err)
	}

	slog.Info("index store connection established")

	router := handler.NewRouter(&handler.RouterDeps{
		SearchService:     c.store,
		IngestService:     c.orchestrator,
		Metrics:           c.collector,
		Registry:          c.registry,
		Logger:            slog.Default(),
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // 取り込みバッチは同期実行のため長め
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runIngest は取り込みバッチを1回実行して終了する。
// cronやKubernetes Jobからの起動を想定する。
func runIngest(cfg *config.Config) error {
	c := buildComponents(cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := c.store.EnsureIndex(ctx); err != nil {
		return fmt.Errorf("failed to prepare index: %w", err)
	}

	summary, err := c.orchestrator.Run(ctx, cfg.LimitPerFeed)
	if err != nil {
		return fmt.Errorf("ingest batch failed: %w", err)
	}

	slog.Info("ingest batch finished",
		slog.Int("total_fetched", summary.TotalFetched),
		slog.Int("indexed", summary.Indexed),
		slog.Int("errors", len(summary.Errors)),
	)

	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /healthz エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/healthz", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}
