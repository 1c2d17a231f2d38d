package goAuthClient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/goAuthClient/jwt"
	"github.com/MrEthical07/goAuthClient/refresh"
	"github.com/MrEthical07/goAuthClient/session"
	"github.com/MrEthical07/goAuthClient/transport"
	"go.uber.org/zap"
)

// Gateway is the single path outbound API calls take. It attaches the current
// access credential and hands authorization failures to the refresh
// coordinator, so callers see either a business response, a transport error,
// or [ErrSessionExpired].
type Gateway struct {
	cfg         Config
	client      *http.Client
	store       *session.Store
	coordinator *refresh.Coordinator[*Response]
	metrics     *Metrics
	logger      *zap.Logger
	now         func() time.Time
}

func newGateway(cfg Config, client *http.Client, store *session.Store, coordinator *refresh.Coordinator[*Response], metrics *Metrics, logger *zap.Logger) *Gateway {
	return &Gateway{
		cfg:         cfg,
		client:      client,
		store:       store,
		coordinator: coordinator,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// Dispatch sends req with the current access credential.
//
// A response whose status is listed in GatewayConfig.AuthFailureStatuses is not
// returned: the call is handed to the refresh coordinator and the caller
// receives the outcome of its replay, [ErrReplayUnauthorized], or a
// [*SessionExpiredError]. Every other response, including business errors, is
// returned unchanged. Transport errors are returned unchanged.
func (g *Gateway) Dispatch(ctx context.Context, req Request) (*Response, error) {
	start := g.now()
	g.metrics.Inc(MetricDispatch)
	defer func() {
		g.metrics.Observe(MetricDispatchLatency, g.now().Sub(start))
	}()

	token := g.currentAccess()

	if token != "" && g.cfg.Gateway.ProactiveRefresh && g.expiringSoon(token) {
		g.metrics.Inc(MetricProactiveRefresh)
		g.logger.Debug("access credential near expiry, renewing before send", zap.String("url", req.URL))
		return g.coordinator.Recover(ctx, g.replayCall(req, token))
	}

	resp, err := g.send(ctx, req, token)
	if err != nil {
		return nil, err
	}
	if !g.cfg.isAuthFailure(resp.StatusCode) {
		return resp, nil
	}

	g.metrics.Inc(MetricAuthFailure)
	g.logger.Debug("authorization failure, handing off to refresh",
		zap.Int("status", resp.StatusCode),
		zap.String("url", req.URL),
	)
	return g.coordinator.Recover(ctx, g.replayCall(req, token))
}

// DispatchUnauthenticated sends req without a credential and without refresh
// hand-off. Used for login and registration.
func (g *Gateway) DispatchUnauthenticated(ctx context.Context, req Request) (*Response, error) {
	start := g.now()
	g.metrics.Inc(MetricDispatch)
	defer func() {
		g.metrics.Observe(MetricDispatchLatency, g.now().Sub(start))
	}()

	return g.send(ctx, req, "")
}

func (g *Gateway) replayCall(req Request, sentWith string) refresh.Call[*Response] {
	return refresh.Call[*Response]{
		SentWith: sentWith,
		Replay: func(ctx context.Context, creds session.CredentialPair) (*Response, error) {
			resp, err := g.send(ctx, req, creds.AccessToken)
			if err != nil {
				return nil, err
			}
			if g.cfg.isAuthFailure(resp.StatusCode) {
				return nil, fmt.Errorf("%w: status %d", ErrReplayUnauthorized, resp.StatusCode)
			}
			return resp, nil
		},
	}
}

func (g *Gateway) currentAccess() string {
	snap := g.store.Current()
	if !snap.Authenticated() {
		return ""
	}
	return snap.Credentials.AccessToken
}

func (g *Gateway) expiringSoon(token string) bool {
	claims, err := jwt.Inspect(token)
	if err != nil {
		return false
	}
	return claims.ExpiresWithin(g.now(), g.cfg.Gateway.ExpirySkew)
}

func (g *Gateway) send(ctx context.Context, req Request, token string) (*Response, error) {
	target, err := g.resolve(req.URL)
	if err != nil {
		return nil, err
	}

	if g.cfg.Gateway.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Gateway.RequestTimeout)
		defer cancel()
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	hr, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	for k, vs := range req.Header {
		hr.Header[k] = append([]string(nil), vs...)
	}
	if token != "" {
		hr.Header.Set(g.cfg.Gateway.HeaderName, g.credentialValue(token))
	} else {
		hr.Header.Del(g.cfg.Gateway.HeaderName)
	}
	if id := requestIDFromContext(ctx); id != "" {
		hr.Header.Set(transport.RequestIDHeader, id)
	}

	resp, err := g.client.Do(hr)
	if err != nil {
		g.metrics.Inc(MetricTransportError)
		return nil, err
	}
	defer resp.Body.Close()

	data, err := g.readBody(resp.Body)
	if err != nil {
		return nil, err
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

func (g *Gateway) readBody(r io.Reader) ([]byte, error) {
	limit := g.cfg.Gateway.MaxResponseBytes
	if limit <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, ErrResponseTooLarge
	}
	return data, nil
}

func (g *Gateway) credentialValue(token string) string {
	if g.cfg.Gateway.Scheme == "" {
		return token
	}
	return g.cfg.Gateway.Scheme + " " + token
}

func (g *Gateway) resolve(raw string) (string, error) {
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw, nil
	}
	if raw == "" {
		return "", fmt.Errorf("%w: empty url", ErrInvalidRequest)
	}
	return joinURL(g.cfg.API.BaseURL, raw), nil
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
