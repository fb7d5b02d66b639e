package extract

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// guardMock はSSRFGuardServiceのテスト用実装。
// 検証結果を固定し、素のHTTPクライアントを返す。
type guardMock struct {
	validateErr   error
	validatedURLs []string
}

func (g *guardMock) NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client {
	return &http.Client{Timeout: timeout}
}

func (g *guardMock) ValidateURL(rawURL string) error {
	g.validatedURLs = append(g.validatedURLs, rawURL)
	return g.validateErr
}

func newTestFetcher(guard *guardMock, maxBodySize int64) *Fetcher {
	return NewFetcher(guard, testLogger(), 5*time.Second, maxBodySize, 100)
}

// TestFetchPage_SendsUserAgentAndAccept は取得リクエストに
// UAとAcceptヘッダーが付与されることを検証する。
func TestFetchPage_SendsUserAgentAndAccept(t *testing.T) {
	var gotUA, gotAccept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer server.Close()

	fetcher := newTestFetcher(&guardMock{}, 1024*1024)
	body, err := fetcher.FetchPage(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("FetchPage() error = %v", err)
	}
	if !strings.Contains(string(body), "ok") {
		t.Errorf("body = %q, want to contain %q", string(body), "ok")
	}
	if gotUA != "Newslens/1.0 News Analyser" {
		t.Errorf("User-Agent = %q", gotUA)
	}
	if !strings.Contains(gotAccept, "text/html") {
		t.Errorf("Accept = %q, want to contain text/html", gotAccept)
	}
}

// TestFetchPage_ValidatesURLBeforeRequest はSSRF検証に失敗したURLへ
// リクエストが送信されないことを検証する。
func TestFetchPage_ValidatesURLBeforeRequest(t *testing.T) {
	requested := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = true
	}))
	defer server.Close()

	guard := &guardMock{validateErr: errors.New("blocked host")}
	fetcher := newTestFetcher(guard, 1024)

	_, err := fetcher.FetchPage(context.Background(), server.URL)
	if err == nil {
		t.Fatal("FetchPage() error = nil, want error")
	}
	if requested {
		t.Error("blocked URL should not be requested")
	}
	if len(guard.validatedURLs) != 1 || guard.validatedURLs[0] != server.URL {
		t.Errorf("validatedURLs = %v", guard.validatedURLs)
	}
}

// TestFetchPage_Non200StatusFails は200以外のステータスが
// エラーになることを検証する。
func TestFetchPage_Non200StatusFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	fetcher := newTestFetcher(&guardMock{}, 1024)
	_, err := fetcher.FetchPage(context.Background(), server.URL)
	if err == nil {
		t.Fatal("FetchPage() error = nil, want error")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("error = %v, want to contain status code", err)
	}
}

// TestFetchPage_BodySizeLimited はレスポンス本文が
// 上限サイズで打ち切られることを検証する。
func TestFetchPage_BodySizeLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("a", 4096)))
	}))
	defer server.Close()

	fetcher := newTestFetcher(&guardMock{}, 100)
	body, err := fetcher.FetchPage(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("FetchPage() error = %v", err)
	}
	if len(body) != 100 {
		t.Errorf("len(body) = %d, want 100", len(body))
	}
}

// TestFetchPage_CancelledContextAborts はキャンセル済みコンテキストで
// 取得が中断されることを検証する。
func TestFetchPage_CancelledContextAborts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := newTestFetcher(&guardMock{}, 1024)
	if _, err := fetcher.FetchPage(ctx, server.URL); err == nil {
		t.Fatal("FetchPage() error = nil, want error")
	}
}
