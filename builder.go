package goAuthClient

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/MrEthical07/goAuthClient/internal/audit"
	"github.com/MrEthical07/goAuthClient/refresh"
	"github.com/MrEthical07/goAuthClient/session"
	"github.com/MrEthical07/goAuthClient/storage"
	"github.com/MrEthical07/goAuthClient/transport"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Builder assembles a [Client]. A builder can be used once.
type Builder struct {
	config Config

	storage   storage.Storage
	redis     redis.UniversalClient
	transport http.RoundTripper
	renewer   refresh.Renewer
	logger    *zap.Logger
	auditSink AuditSink

	built bool
}

// New returns a builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithBaseURL sets APIConfig.BaseURL.
func (b *Builder) WithBaseURL(baseURL string) *Builder {
	b.config.API.BaseURL = baseURL
	return b
}

// WithStorage sets the session persistence backend. It takes precedence over
// [Builder.WithRedis].
func (b *Builder) WithStorage(s storage.Storage) *Builder {
	b.storage = s
	return b
}

// WithRedis persists the session in Redis under SessionConfig.RedisPrefix.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithTransport sets the base round tripper below the middleware chain.
func (b *Builder) WithTransport(rt http.RoundTripper) *Builder {
	b.transport = rt
	return b
}

// WithRenewer replaces the HTTP renewal client.
func (b *Builder) WithRenewer(r refresh.Renewer) *Builder {
	b.renewer = r
	return b
}

// WithLogger sets the zap logger. The default discards everything.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink sets the audit sink and enables auditing.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	if sink != nil {
		b.config.Audit.Enabled = true
	}
	return b
}

// WithMetricsEnabled toggles in-process metrics.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles latency histograms.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build is BuildContext with a background context.
func (b *Builder) Build() (*Client, error) {
	return b.BuildContext(context.Background())
}

// BuildContext validates the configuration, wires the client and restores the
// persisted session. A corrupt persisted record is discarded and logged; any
// other storage failure aborts the build.
func (b *Builder) BuildContext(ctx context.Context) (*Client, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	for _, w := range cfg.Lint() {
		logger.Warn("config lint", zap.String("code", w.Code), zap.String("detail", w.Message))
	}

	backend := b.storage
	if backend == nil && b.redis != nil {
		backend = storage.NewRedis(b.redis, cfg.Session.RedisPrefix)
	}
	if backend == nil {
		backend = storage.NewMemory()
	}

	httpClient := &http.Client{
		Transport: transport.Chain(b.transport,
			transport.RequestID(),
			transport.UserAgent(cfg.Gateway.UserAgent),
			transport.Logging(logger.Named("http")),
		),
	}

	renewer := b.renewer
	if renewer == nil {
		renewer = refresh.NewHTTPRenewer(httpClient, joinURL(cfg.API.BaseURL, cfg.API.RefreshPath), cfg.API.RefreshTokenInBody)
	}

	b.built = true

	c := &Client{
		config:     cfg,
		store:      session.NewStore(backend, cfg.Session.StorageKey),
		httpClient: httpClient,
		metrics:    NewMetrics(cfg.Metrics),
		logger:     logger,
	}
	c.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
		Logger:     logger.Named("audit"),
	}, b.auditSink)
	c.coordinator = refresh.NewCoordinator[*Response](c.store, renewer, refresh.Options{
		Hooks:  c.refreshHooks(),
		Logger: logger.Named("refresh"),
	})
	c.gateway = newGateway(cfg, httpClient, c.store, c.coordinator, c.metrics, logger.Named("gateway"))
	c.unsubscribe = c.store.Subscribe(c.observeSession)

	if err := c.store.Load(ctx); err != nil {
		if !errors.Is(err, session.ErrRecordCorrupt) {
			c.Close()
			return nil, fmt.Errorf("load session: %w", err)
		}
		logger.Warn("discarded corrupt session record", zap.Error(err))
	}

	return c, nil
}
