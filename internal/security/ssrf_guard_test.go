package security

import (
	"testing"
	"time"
)

// TestValidateURL_AllowsPublicURLs は公開URLが検証を通過することを検証する。
func TestValidateURL_AllowsPublicURLs(t *testing.T) {
	guard := NewSSRFGuard()

	urls := []string{
		"https://example.com/feed.xml",
		"http://news.example.org/articles/1",
		"https://8.8.8.8/rss",
	}
	for _, u := range urls {
		if err := guard.ValidateURL(u); err != nil {
			t.Errorf("ValidateURL(%q) = %v, want nil", u, err)
		}
	}
}

// TestValidateURL_BlocksDangerousURLs は内部ネットワークや
// 不正なスキームのURLが拒否されることを検証する。
func TestValidateURL_BlocksDangerousURLs(t *testing.T) {
	guard := NewSSRFGuard()

	tests := []struct {
		name string
		url  string
	}{
		{"空URL", ""},
		{"不正スキーム file", "file:///etc/passwd"},
		{"不正スキーム ftp", "ftp://example.com/feed"},
		{"localhost", "http://localhost:8080/feed"},
		{"localhost 大文字", "http://LOCALHOST/feed"},
		{"ループバックIP", "http://127.0.0.1/feed"},
		{"プライベートIP 10系", "http://10.0.0.5/feed"},
		{"プライベートIP 172系", "http://172.16.0.1/feed"},
		{"プライベートIP 192系", "http://192.168.1.1/feed"},
		{"リンクローカル", "http://169.254.169.254/latest/meta-data/"},
		{"カレントネットワーク", "http://0.0.0.0/feed"},
		{"IPv6ループバック", "http://[::1]/feed"},
		{"ホストなし", "https:///path-only"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := guard.ValidateURL(tt.url); err == nil {
				t.Errorf("ValidateURL(%q) = nil, want error", tt.url)
			}
		})
	}
}

// TestNewSafeClient_ReturnsConfiguredClient はタイムアウト付きの
// クライアントが生成されることを検証する。
func TestNewSafeClient_ReturnsConfiguredClient(t *testing.T) {
	guard := NewSSRFGuard()

	client := guard.NewSafeClient(10*time.Second, 1024*1024)
	if client == nil {
		t.Fatal("NewSafeClient() = nil")
	}
}
