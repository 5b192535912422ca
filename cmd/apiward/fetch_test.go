package main

import (
	"errors"
	"strings"
	"testing"

	"github.com/apiward/apiward/internal/client"
)

func TestParseParams(t *testing.T) {
	tests := []struct {
		name    string
		raw     []string
		want    map[string][]string
		wantErr bool
	}{
		{
			name: "single pair",
			raw:  []string{"page=2"},
			want: map[string][]string{"page": {"2"}},
		},
		{
			name: "repeated key accumulates",
			raw:  []string{"tag=a", "tag=b"},
			want: map[string][]string{"tag": {"a", "b"}},
		},
		{
			name: "empty value allowed",
			raw:  []string{"flag="},
			want: map[string][]string{"flag": {""}},
		},
		{
			name: "value containing equals",
			raw:  []string{"filter=a=b"},
			want: map[string][]string{"filter": {"a=b"}},
		},
		{
			name: "nil input",
			raw:  nil,
			want: map[string][]string{},
		},
		{
			name:    "missing equals",
			raw:     []string{"page"},
			wantErr: true,
		},
		{
			name:    "empty key",
			raw:     []string{"=value"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseParams(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseParams: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d keys, want %d", len(got), len(tt.want))
			}
			for k, vs := range tt.want {
				if len(got[k]) != len(vs) {
					t.Errorf("key %q: got %v, want %v", k, got[k], vs)
					continue
				}
				for i := range vs {
					if got[k][i] != vs[i] {
						t.Errorf("key %q: got %v, want %v", k, got[k], vs)
					}
				}
			}
		})
	}
}

func TestDescribeFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "rate limit timeout",
			err:  client.ErrRateLimitTimeout,
			want: "rate limit saturated",
		},
		{
			name: "circuit open",
			err:  client.ErrCircuitOpen,
			want: "circuit open",
		},
		{
			name: "retry exhausted",
			err:  &client.RetryExhaustedError{Attempts: 5, LastErr: &client.StatusError{StatusCode: 503}},
			want: "gave up after 5 attempts",
		},
		{
			name: "terminal status",
			err:  &client.StatusError{StatusCode: 404},
			want: "404",
		},
		{
			name: "plain error",
			err:  errors.New("boom"),
			want: "boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := describeFailure("/v1/items", tt.err)
			if got == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(got.Error(), tt.want) {
				t.Errorf("message %q missing %q", got.Error(), tt.want)
			}
			if !strings.Contains(got.Error(), "/v1/items") {
				t.Errorf("message %q missing endpoint", got.Error())
			}
		})
	}
}
