// Package config loads process configuration for the goAuthClient commands.
//
// Sources, highest priority first:
//  1. an explicit --config path;
//  2. CONFIG_PATH;
//  3. ./local.yaml;
//  4. environment only.
//
// Environment variables always overlay the file that was read.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	goAuthClient "github.com/MrEthical07/goAuthClient"
	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Storage backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

type Config struct {
	Env     string        `yaml:"env" env:"ENV" env-default:"local"`
	API     APIConfig     `yaml:"api"`
	Gateway GatewayConfig `yaml:"gateway"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// APIConfig locates the auth API.
type APIConfig struct {
	BaseURL            string `yaml:"base_url" env:"API_BASE_URL" validate:"required,url"`
	RefreshPath        string `yaml:"refresh_path" env:"API_REFRESH_PATH" env-default:"/refresh" validate:"required,startswith=/"`
	RefreshTokenInBody bool   `yaml:"refresh_token_in_body" env:"API_REFRESH_TOKEN_IN_BODY" env-default:"false"`
}

// GatewayConfig mirrors the gateway settings of the library.
type GatewayConfig struct {
	HeaderName       string        `yaml:"header_name" env:"GATEWAY_HEADER_NAME" env-default:"Authorization" validate:"required"`
	Scheme           string        `yaml:"scheme" env:"GATEWAY_SCHEME" env-default:"Bearer"`
	RequestTimeout   time.Duration `yaml:"request_timeout" env:"GATEWAY_REQUEST_TIMEOUT" env-default:"30s" validate:"gte=0"`
	ProactiveRefresh bool          `yaml:"proactive_refresh" env:"GATEWAY_PROACTIVE_REFRESH" env-default:"false"`
	ExpirySkew       time.Duration `yaml:"expiry_skew" env:"GATEWAY_EXPIRY_SKEW" env-default:"30s" validate:"gte=0"`
	UserAgent        string        `yaml:"user_agent" env:"GATEWAY_USER_AGENT" env-default:"goauth-session"`
}

// StorageConfig selects where the session survives between runs.
type StorageConfig struct {
	Backend     string `yaml:"backend" env:"STORAGE_BACKEND" env-default:"file" validate:"oneof=memory file redis"`
	Dir         string `yaml:"dir" env:"STORAGE_DIR" env-default:".goauth" validate:"required_if=Backend file"`
	RedisAddr   string `yaml:"redis_addr" env:"STORAGE_REDIS_ADDR" validate:"required_if=Backend redis,omitempty,hostname_port"`
	RedisPrefix string `yaml:"redis_prefix" env:"STORAGE_REDIS_PREFIX" env-default:"gac"`
	Key         string `yaml:"key" env:"STORAGE_KEY" env-default:"goauth:session" validate:"required"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"console" validate:"oneof=console json"`
}

// MetricsConfig enables client metrics and, with Addr set, a Prometheus
// listener.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"METRICS_ENABLED" env-default:"false"`
	Addr    string `yaml:"addr" env:"METRICS_ADDR" validate:"omitempty,hostname_port"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// MustLoad panics when Load fails.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

func Load(path string) (*Config, error) {
	cfg, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func read(path string) (*Config, error) {
	var cfg Config

	tryRead := func(p string) (*Config, error) {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}
		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}
		return &cfg, nil
	}

	// 1) --config
	if path != "" {
		return tryRead(path)
	}

	// 2) CONFIG_PATH
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return tryRead(envPath)
	}

	// 3) ./local.yaml
	if _, err := os.Stat("local.yaml"); err == nil {
		return tryRead("local.yaml")
	}

	// 4) env only
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}
	return &cfg, nil
}

// ClientConfig maps the process config onto the library configuration.
func (c *Config) ClientConfig() goAuthClient.Config {
	out := goAuthClient.DefaultConfig()
	out.API.BaseURL = c.API.BaseURL
	out.API.RefreshPath = c.API.RefreshPath
	out.API.RefreshTokenInBody = c.API.RefreshTokenInBody
	out.Gateway.HeaderName = c.Gateway.HeaderName
	out.Gateway.Scheme = c.Gateway.Scheme
	out.Gateway.RequestTimeout = c.Gateway.RequestTimeout
	out.Gateway.ProactiveRefresh = c.Gateway.ProactiveRefresh
	out.Gateway.ExpirySkew = c.Gateway.ExpirySkew
	out.Gateway.UserAgent = c.Gateway.UserAgent
	out.Session.StorageKey = c.Storage.Key
	out.Session.RedisPrefix = c.Storage.RedisPrefix
	out.Metrics.Enabled = c.Metrics.Enabled
	out.Metrics.EnableLatencyHistograms = c.Metrics.Enabled
	return out
}

// Logger builds the zap logger described by c.Log. Logs go to stderr so
// command output on stdout stays parseable.
func (c *Config) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}

	var zc zap.Config
	switch c.Log.Format {
	case "json":
		zc = zap.NewProductionConfig()
	case "console":
		zc = zap.NewDevelopmentConfig()
	default:
		return nil, errors.New("unknown log format " + c.Log.Format)
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	return zc.Build()
}
