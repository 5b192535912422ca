package client_test

import (
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/apiward/apiward/internal/client"
)

func TestCacheKeyStable(t *testing.T) {
	a := client.Key("/v1/items", url.Values{"b": {"2"}, "a": {"1"}})
	b := client.Key("/v1/items", url.Values{"a": {"1"}, "b": {"2"}})
	if a != b {
		t.Errorf("keys differ for identical params: %s vs %s", a, b)
	}

	if a == client.Key("/v1/items", url.Values{"a": {"1"}}) {
		t.Error("different params produced the same key")
	}
	if a == client.Key("/v1/other", url.Values{"b": {"2"}, "a": {"1"}}) {
		t.Error("different endpoints produced the same key")
	}

	if len(a) != 64 {
		t.Errorf("key length = %d, want 64 hex chars", len(a))
	}
}

func TestCacheKeyNilParams(t *testing.T) {
	if client.Key("/v1/items", nil) != client.Key("/v1/items", url.Values{}) {
		t.Error("nil and empty params should derive the same key")
	}
}

func TestBuildURL(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		endpoint string
		params   url.Values
		keyParam string
		key      string
		want     string
	}{
		{
			name:     "plain path join",
			base:     "https://api.example.com",
			endpoint: "/v1/items",
			want:     "https://api.example.com/v1/items",
		},
		{
			name:     "trailing and leading slashes collapse",
			base:     "https://api.example.com/base/",
			endpoint: "v1/items",
			want:     "https://api.example.com/base/v1/items",
		},
		{
			name:     "query parameters encoded sorted",
			base:     "https://api.example.com",
			endpoint: "/v1/items",
			params:   url.Values{"b": {"2"}, "a": {"1"}},
			want:     "https://api.example.com/v1/items?a=1&b=2",
		},
		{
			name:     "credential appended as query parameter",
			base:     "https://api.example.com",
			endpoint: "/v1/items",
			keyParam: "api_key",
			key:      "secret",
			want:     "https://api.example.com/v1/items?api_key=secret",
		},
		{
			name:     "no key param configured leaves query untouched",
			base:     "https://api.example.com",
			endpoint: "/v1/items",
			key:      "secret",
			want:     "https://api.example.com/v1/items",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := client.BuildURL(tt.base, tt.endpoint, tt.params, tt.keyParam, tt.key)
			if err != nil {
				t.Fatalf("buildURL: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildURLCredentialNotInCacheKey(t *testing.T) {
	params := url.Values{"q": {"x"}}
	key := client.Key("/v1/items", params)

	u, err := client.BuildURL("https://api.example.com", "/v1/items", params, "api_key", "secret")
	if err != nil {
		t.Fatalf("buildURL: %v", err)
	}
	if !strings.Contains(u, "secret") {
		t.Fatal("credential missing from request URL")
	}
	if key != client.Key("/v1/items", params) {
		t.Error("cache key changed after URL construction")
	}
}

func TestParseRateHeaders(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	tests := []struct {
		name          string
		headers       map[string]string
		wantOK        bool
		wantLimit     int
		wantRemaining int
		wantReset     time.Time
	}{
		{
			name: "full advisory",
			headers: map[string]string{
				"X-RateLimit-Limit":     "240",
				"X-RateLimit-Remaining": "120",
				"X-RateLimit-Reset":     "1700000060",
			},
			wantOK:        true,
			wantLimit:     240,
			wantRemaining: 120,
			wantReset:     time.Unix(1_700_000_060, 0),
		},
		{
			name:    "no limit header",
			headers: map[string]string{"X-RateLimit-Remaining": "5"},
			wantOK:  false,
		},
		{
			name:    "garbage limit",
			headers: map[string]string{"X-RateLimit-Limit": "lots"},
			wantOK:  false,
		},
		{
			name:    "negative limit",
			headers: map[string]string{"X-RateLimit-Limit": "-1"},
			wantOK:  false,
		},
		{
			name:          "missing remaining defaults to limit",
			headers:       map[string]string{"X-RateLimit-Limit": "40"},
			wantOK:        true,
			wantLimit:     40,
			wantRemaining: 40,
		},
		{
			name: "garbage remaining ignored",
			headers: map[string]string{
				"X-RateLimit-Limit":     "40",
				"X-RateLimit-Remaining": "soon",
			},
			wantOK:        true,
			wantLimit:     40,
			wantRemaining: 40,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			for k, v := range tt.headers {
				h.Set(k, v)
			}
			snap, ok := client.ParseRateHeaders(h, now)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if snap.Limit != tt.wantLimit {
				t.Errorf("limit = %d, want %d", snap.Limit, tt.wantLimit)
			}
			if snap.Remaining != tt.wantRemaining {
				t.Errorf("remaining = %d, want %d", snap.Remaining, tt.wantRemaining)
			}
			if !tt.wantReset.IsZero() && !snap.Reset.Equal(tt.wantReset) {
				t.Errorf("reset = %v, want %v", snap.Reset, tt.wantReset)
			}
			if !snap.ObservedAt.Equal(now) {
				t.Errorf("observed at = %v, want %v", snap.ObservedAt, now)
			}
		})
	}
}
