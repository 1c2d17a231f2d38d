package goAuthClient

import (
	"net"
	"net/url"
	"slices"
	"time"
)

// LintWarning is a valid but questionable setting.
type LintWarning struct {
	Code    string
	Message string
}

// LintWarnings is the result of [Config.Lint].
type LintWarnings []LintWarning

// Codes returns the warning codes in report order.
func (ws LintWarnings) Codes() []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.Code)
	}
	return out
}

// Lint reports settings that pass [Config.Validate] but are likely mistakes.
func (c *Config) Lint() LintWarnings {
	var ws LintWarnings

	if u, err := url.Parse(c.API.BaseURL); err == nil && u.Scheme == "http" && !isLoopbackHost(u.Hostname()) {
		ws = append(ws, LintWarning{
			Code:    "insecure_base_url",
			Message: "credentials would be sent over plain http to a non-loopback host",
		})
	}
	if c.Gateway.RequestTimeout == 0 {
		ws = append(ws, LintWarning{
			Code:    "request_timeout_disabled",
			Message: "a hung request blocks every call queued behind its refresh cycle",
		})
	}
	if c.Gateway.MaxResponseBytes == 0 {
		ws = append(ws, LintWarning{
			Code:    "response_limit_disabled",
			Message: "response bodies are read without a size cap",
		})
	}
	if slices.Contains(c.Gateway.AuthFailureStatuses, 403) {
		ws = append(ws, LintWarning{
			Code:    "forbidden_triggers_refresh",
			Message: "403 usually means the credential is valid but lacks permission; renewing will not help",
		})
	}
	if c.Gateway.ExpirySkew > 5*time.Minute {
		ws = append(ws, LintWarning{
			Code:    "expiry_skew_large",
			Message: "a large skew renews short-lived credentials on almost every call",
		})
	}
	if c.Audit.Enabled && !c.Audit.DropIfFull {
		ws = append(ws, LintWarning{
			Code:    "audit_blocking",
			Message: "a slow audit sink will stall session transitions",
		})
	}

	return ws
}

func isLoopbackHost(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
