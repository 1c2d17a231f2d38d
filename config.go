package goAuthClient

import (
	"errors"
	"net/url"
	"slices"
	"strings"
	"time"
)

// Config is the complete client configuration. Start from [DefaultConfig] and
// override fields; [Builder.Build] validates the result.
type Config struct {
	API     APIConfig
	Gateway GatewayConfig
	Session SessionConfig
	Audit   AuditConfig
	Metrics MetricsConfig
}

/*
====================================
API CONFIG
====================================
*/

// APIConfig locates the auth API.
type APIConfig struct {
	// BaseURL prefixes relative request URLs, e.g. "https://api.example.com".
	BaseURL string
	// RefreshPath is the renewal endpoint, relative to BaseURL.
	RefreshPath string
	// RefreshTokenInBody additionally sends {"refresh_token": ...} on renewal.
	RefreshTokenInBody bool
}

/*
====================================
GATEWAY CONFIG
====================================
*/

// GatewayConfig controls how credentials are attached and how failures are
// recognised.
type GatewayConfig struct {
	HeaderName string
	Scheme     string
	// AuthFailureStatuses are the response statuses handed to the refresh
	// coordinator instead of being returned.
	AuthFailureStatuses []int
	// RequestTimeout bounds each attempt. Zero disables the timeout.
	RequestTimeout time.Duration
	// MaxResponseBytes caps response bodies. Zero disables the cap.
	MaxResponseBytes int64
	// ProactiveRefresh renews before sending when the access credential is a
	// JWT expiring within ExpirySkew.
	ProactiveRefresh bool
	ExpirySkew       time.Duration
	UserAgent        string
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls session persistence.
type SessionConfig struct {
	// StorageKey is the key the session record is stored under.
	StorageKey string
	// RedisPrefix namespaces keys when the Redis backend is used.
	RedisPrefix string
}

// AuditConfig controls the audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process metrics.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the default configuration. API.BaseURL must still be
// set.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		API: APIConfig{
			RefreshPath: "/refresh",
		},
		Gateway: GatewayConfig{
			HeaderName:          "Authorization",
			Scheme:              "Bearer",
			AuthFailureStatuses: []int{401},
			RequestTimeout:      30 * time.Second,
			MaxResponseBytes:    10 << 20,
			ProactiveRefresh:    false,
			ExpirySkew:          30 * time.Second,
			UserAgent:           "goauth-client",
		},
		Session: SessionConfig{
			StorageKey:  "goauth:session",
			RedisPrefix: "gac",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Gateway.AuthFailureStatuses = slices.Clone(cfg.Gateway.AuthFailureStatuses)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// API
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return errors.New("API BaseURL is required")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil {
		return errors.New("API BaseURL is not a valid URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("API BaseURL scheme must be http or https")
	}
	if u.Host == "" {
		return errors.New("API BaseURL must include a host")
	}
	if !strings.HasPrefix(c.API.RefreshPath, "/") {
		return errors.New("API RefreshPath must start with '/'")
	}

	// Gateway
	if strings.TrimSpace(c.Gateway.HeaderName) == "" {
		return errors.New("Gateway HeaderName is required")
	}
	if len(c.Gateway.AuthFailureStatuses) == 0 {
		return errors.New("Gateway AuthFailureStatuses must not be empty")
	}
	for _, status := range c.Gateway.AuthFailureStatuses {
		if status < 400 || status > 599 {
			return errors.New("Gateway AuthFailureStatuses must be 4xx or 5xx")
		}
	}
	if c.Gateway.RequestTimeout < 0 {
		return errors.New("Gateway RequestTimeout must be >= 0")
	}
	if c.Gateway.MaxResponseBytes < 0 {
		return errors.New("Gateway MaxResponseBytes must be >= 0")
	}
	if c.Gateway.ExpirySkew < 0 {
		return errors.New("Gateway ExpirySkew must be >= 0")
	}
	if c.Gateway.ProactiveRefresh && c.Gateway.ExpirySkew == 0 {
		return errors.New("Gateway ExpirySkew must be > 0 when ProactiveRefresh is enabled")
	}

	// Session
	if strings.TrimSpace(c.Session.StorageKey) == "" {
		return errors.New("Session StorageKey is required")
	}

	// Audit
	if c.Audit.Enabled {
		if c.Audit.BufferSize <= 0 {
			return errors.New("Audit BufferSize must be > 0 when audit is enabled")
		}
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}

func (c *Config) isAuthFailure(status int) bool {
	return slices.Contains(c.Gateway.AuthFailureStatuses, status)
}
