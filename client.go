package goAuthClient

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goAuthClient/internal/audit"
	"github.com/MrEthical07/goAuthClient/refresh"
	"github.com/MrEthical07/goAuthClient/session"
	"go.uber.org/zap"
)

// Client ties the session store, the gateway and the refresh coordinator
// together. Build one with [New].
type Client struct {
	config      Config
	store       *session.Store
	gateway     *Gateway
	coordinator *refresh.Coordinator[*Response]
	httpClient  *http.Client
	audit       *audit.Dispatcher
	metrics     *Metrics
	logger      *zap.Logger

	unsubscribe func()
	closed      atomic.Bool
	closeOnce   sync.Once
}

// Close stops the audit dispatcher and detaches the client's own session
// observer. Calls made afterwards fail with [ErrClientClosed].
func (c *Client) Close() {
	if c == nil {
		return
	}
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		if c.unsubscribe != nil {
			c.unsubscribe()
		}
		if c.audit != nil {
			c.audit.Close()
		}
	})
}

// AuditDropped returns the number of audit events dropped under backpressure.
func (c *Client) AuditDropped() uint64 {
	if c == nil || c.audit == nil {
		return 0
	}
	return c.audit.Dropped()
}

// MetricsSnapshot returns a copy of the client's metrics.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	if c == nil || c.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return c.metrics.Snapshot()
}

// Gateway returns the client's gateway.
func (c *Client) Gateway() *Gateway {
	return c.gateway
}

// Dispatch sends an authenticated API call. See [Gateway.Dispatch].
func (c *Client) Dispatch(ctx context.Context, req Request) (*Response, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}
	return c.gateway.Dispatch(ctx, req)
}

// DispatchUnauthenticated sends an API call without credential or refresh
// hand-off. See [Gateway.DispatchUnauthenticated].
func (c *Client) DispatchUnauthenticated(ctx context.Context, req Request) (*Response, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}
	return c.gateway.DispatchUnauthenticated(ctx, req)
}

// RoundTripper returns the gateway as an [http.RoundTripper].
func (c *Client) RoundTripper() http.RoundTripper {
	return c.gateway.RoundTripper()
}

// HTTPClient returns an [http.Client] whose requests go through the gateway.
// Redirects are followed by the underlying transport client, not here.
func (c *Client) HTTPClient() *http.Client {
	return &http.Client{
		Transport: c.gateway.RoundTripper(),
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// Current returns the current session snapshot.
func (c *Client) Current() Snapshot {
	return c.store.Current()
}

// Authenticated reports whether a session is installed.
func (c *Client) Authenticated() bool {
	return c.store.Current().Authenticated()
}

// SetSession installs identity and pair after a login or registration.
// Persistence failures are returned, but the session is installed in memory
// either way.
func (c *Client) SetSession(ctx context.Context, identity Identity, pair CredentialPair) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	err := c.store.SetSession(ctx, identity, pair)
	if err != nil && !errors.Is(err, session.ErrIncompletePair) {
		c.logger.Warn("persist session failed", zap.String("user_id", identity.UserID), zap.Error(err))
	}
	return err
}

// UpdateIdentity replaces the identity of the current session.
func (c *Client) UpdateIdentity(ctx context.Context, identity Identity) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	err := c.store.UpdateIdentity(ctx, identity)
	if err != nil && !errors.Is(err, session.ErrNoSession) {
		c.logger.Warn("persist identity failed", zap.String("user_id", identity.UserID), zap.Error(err))
	}
	return err
}

// Logout clears the session locally. A refresh cycle in flight will not
// reinstate it.
func (c *Client) Logout(ctx context.Context) error {
	userID := c.store.Current().Identity.UserID
	err := c.store.Clear(ctx)
	if err != nil {
		c.logger.Warn("remove persisted session failed", zap.Error(err))
	}
	c.emitAudit(ctx, auditEventLogout, err == nil, userID, "", err, nil)
	return err
}

// Subscribe registers a session-changed observer and returns its
// unsubscribe function.
func (c *Client) Subscribe(fn SessionObserver) func() {
	return c.store.Subscribe(fn)
}

// RefreshState reports whether a refresh cycle is running and how many calls
// wait on it.
func (c *Client) RefreshState() (refresh.State, int) {
	return c.coordinator.State(), c.coordinator.Pending()
}

func (c *Client) observeSession(ev session.Event) {
	ctx := context.Background()
	switch ev.Kind {
	case session.EventSessionSet:
		c.metrics.Inc(MetricSessionSet)
		c.emitAudit(ctx, auditEventSessionSet, true, ev.Snapshot.Identity.UserID, "", nil, nil)
	case session.EventSessionRestored:
		c.metrics.Inc(MetricSessionSet)
		c.emitAudit(ctx, auditEventSessionRestored, true, ev.Snapshot.Identity.UserID, "", nil, nil)
	case session.EventSessionCleared:
		c.metrics.Inc(MetricSessionCleared)
		c.emitAudit(ctx, auditEventSessionCleared, true, "", "", nil, nil)
	}
}

func (c *Client) refreshHooks() refresh.Hooks {
	ctx := context.Background()
	return refresh.Hooks{
		CycleStarted: func(cycleID string) {
			c.metrics.Inc(MetricRefreshStarted)
			c.emitAudit(ctx, auditEventRefreshStarted, true, c.store.Current().Identity.UserID, cycleID, nil, nil)
		},
		Queued: func(string, int) {
			c.metrics.Inc(MetricPendingQueued)
		},
		Renewed: func(cycleID string, elapsed time.Duration, superseded bool) {
			c.metrics.Inc(MetricRefreshSuccess)
			c.metrics.Observe(MetricRefreshLatency, elapsed)
			if superseded {
				c.metrics.Inc(MetricRefreshSuperseded)
			}
			c.emitAudit(ctx, auditEventRefreshSuccess, true, "", cycleID, nil, func() map[string]string {
				if !superseded {
					return nil
				}
				return map[string]string{"superseded": "true"}
			})
		},
		Failed: func(cycleID string, elapsed time.Duration, cause error) {
			if cycleID != "" {
				c.metrics.Inc(MetricRefreshFailure)
				c.metrics.Observe(MetricRefreshLatency, elapsed)
				c.emitAudit(ctx, auditEventRefreshFailure, false, "", cycleID, cause, nil)
			}
			c.metrics.Inc(MetricSessionExpired)
			c.emitAudit(ctx, auditEventSessionExpired, false, "", cycleID, cause, nil)
		},
		Replayed: func(cycleID string, err error) {
			c.metrics.Inc(MetricReplay)
			if err != nil {
				c.metrics.Inc(MetricReplayFailure)
				c.emitAudit(ctx, auditEventReplayFailure, false, "", cycleID, err, nil)
			}
		},
		StaleReplay: func() {
			c.metrics.Inc(MetricStaleReplay)
		},
	}
}
