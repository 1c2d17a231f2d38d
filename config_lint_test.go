package goAuthClient

import (
	"slices"
	"testing"
	"time"
)

func TestLintDefaultConfigClean(t *testing.T) {
	cfg := validConfig()
	if ws := cfg.Lint(); len(ws) != 0 {
		t.Fatalf("expected no warnings, got %v", ws.Codes())
	}
}

func TestLintLoopbackHTTPAllowed(t *testing.T) {
	for _, base := range []string{"http://localhost:8080", "http://127.0.0.1:5000", "http://[::1]:80"} {
		cfg := validConfig()
		cfg.API.BaseURL = base
		if slices.Contains(cfg.Lint().Codes(), "insecure_base_url") {
			t.Fatalf("%s: loopback http must not warn", base)
		}
	}
}

func TestLintWarnings(t *testing.T) {
	tests := []struct {
		code   string
		mutate func(*Config)
	}{
		{"insecure_base_url", func(c *Config) { c.API.BaseURL = "http://api.example.com" }},
		{"request_timeout_disabled", func(c *Config) { c.Gateway.RequestTimeout = 0 }},
		{"response_limit_disabled", func(c *Config) { c.Gateway.MaxResponseBytes = 0 }},
		{"forbidden_triggers_refresh", func(c *Config) { c.Gateway.AuthFailureStatuses = []int{401, 403} }},
		{"expiry_skew_large", func(c *Config) { c.Gateway.ExpirySkew = 10 * time.Minute }},
		{"audit_blocking", func(c *Config) {
			c.Audit.Enabled = true
			c.Audit.DropIfFull = false
		}},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err != nil {
				t.Fatalf("lint cases must be valid configs: %v", err)
			}
			codes := cfg.Lint().Codes()
			if len(codes) != 1 || codes[0] != tt.code {
				t.Fatalf("expected only %q, got %v", tt.code, codes)
			}
		})
	}
}

func TestLintWarningsHaveMessages(t *testing.T) {
	cfg := validConfig()
	cfg.API.BaseURL = "http://api.example.com"
	cfg.Gateway.RequestTimeout = 0
	cfg.Gateway.MaxResponseBytes = 0
	for _, w := range cfg.Lint() {
		if w.Message == "" {
			t.Fatalf("warning %q has no message", w.Code)
		}
	}
}
