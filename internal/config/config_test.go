package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadExplicitPath(t *testing.T) {
	p := writeFile(t, t.TempDir(), "cfg.yaml", `
api:
  base_url: https://api.example.com
gateway:
  request_timeout: 5s
  proactive_refresh: true
storage:
  backend: memory
log:
  level: debug
`)

	cfg, err := Load(p)
	require.NoError(t, err)
	require.Equal(t, "https://api.example.com", cfg.API.BaseURL)
	require.Equal(t, "/refresh", cfg.API.RefreshPath)
	require.Equal(t, 5*time.Second, cfg.Gateway.RequestTimeout)
	require.True(t, cfg.Gateway.ProactiveRefresh)
	require.Equal(t, BackendMemory, cfg.Storage.Backend)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "Authorization", cfg.Gateway.HeaderName)
}

func TestEnvOverlaysFile(t *testing.T) {
	p := writeFile(t, t.TempDir(), "cfg.yaml", `
api:
  base_url: https://api.example.com
storage:
  backend: memory
`)
	t.Setenv("API_BASE_URL", "https://override.example.com")

	cfg, err := Load(p)
	require.NoError(t, err)
	require.Equal(t, "https://override.example.com", cfg.API.BaseURL)
}

func TestConfigPathEnv(t *testing.T) {
	p := writeFile(t, t.TempDir(), "cfg.yaml", `
api:
  base_url: https://from-config-path.example.com
storage:
  backend: memory
`)
	t.Setenv("CONFIG_PATH", p)

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "https://from-config-path.example.com", cfg.API.BaseURL)
}

func TestLocalYAMLFallback(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "local.yaml", `
api:
  base_url: https://local.example.com
storage:
  backend: memory
`)
	t.Chdir(dir)

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "https://local.example.com", cfg.API.BaseURL)
}

func TestEnvOnly(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("API_BASE_URL", "http://127.0.0.1:8080")
	t.Setenv("STORAGE_BACKEND", "redis")
	t.Setenv("STORAGE_REDIS_ADDR", "127.0.0.1:6379")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, BackendRedis, cfg.Storage.Backend)
	require.Equal(t, "gac", cfg.Storage.RedisPrefix)
}

func TestMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidation(t *testing.T) {
	cases := map[string]string{
		"missing base url": `
storage:
  backend: memory
`,
		"bad backend": `
api:
  base_url: https://api.example.com
storage:
  backend: s3
`,
		"redis without addr": `
api:
  base_url: https://api.example.com
storage:
  backend: redis
`,
		"bad log level": `
api:
  base_url: https://api.example.com
storage:
  backend: memory
log:
  level: loud
`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			p := writeFile(t, t.TempDir(), "cfg.yaml", body)
			_, err := Load(p)
			require.Error(t, err)
		})
	}
}

func TestClientConfigBuildsValidLibraryConfig(t *testing.T) {
	p := writeFile(t, t.TempDir(), "cfg.yaml", `
api:
  base_url: https://api.example.com
  refresh_token_in_body: true
storage:
  backend: memory
  key: cli:session
metrics:
  enabled: true
`)
	cfg, err := Load(p)
	require.NoError(t, err)

	cc := cfg.ClientConfig()
	require.NoError(t, cc.Validate())
	require.True(t, cc.API.RefreshTokenInBody)
	require.Equal(t, "cli:session", cc.Session.StorageKey)
	require.True(t, cc.Metrics.Enabled)
	require.Equal(t, []int{401}, cc.Gateway.AuthFailureStatuses)
}

func TestLogger(t *testing.T) {
	cfg := &Config{Log: LogConfig{Level: "warn", Format: "json"}}
	logger, err := cfg.Logger()
	require.NoError(t, err)
	require.False(t, logger.Core().Enabled(zapcore.InfoLevel))

	cfg.Log.Format = "xml"
	_, err = cfg.Logger()
	require.Error(t, err)
}
