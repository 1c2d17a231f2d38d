package goAuthClient

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goAuthClient/authtest"
	"github.com/MrEthical07/goAuthClient/refresh"
	"github.com/MrEthical07/goAuthClient/session"
)

func waitPending(t *testing.T, c *Client, n int) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if state, pending := c.RefreshState(); state == refresh.StateRefreshing && pending == n {
			return
		}
		time.Sleep(time.Millisecond)
	}
	state, pending := c.RefreshState()
	t.Fatalf("expected %d pending calls, got %v/%d", n, state, pending)
}

func TestRefreshConcurrencySingleRenewal(t *testing.T) {
	_, rdb := newRedisClientTest(t)
	api := authtest.NewServer(t, authtest.Config{})
	client, err := New().WithBaseURL(api.URL).WithRedis(rdb).WithMetricsEnabled(true).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer client.Close()
	loginExpired(t, client, api)
	api.GateRefresh()

	const n = 16
	var wg sync.WaitGroup
	wg.Add(n)
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			resp, err := client.Dispatch(context.Background(), Request{URL: "/profile"})
			if err == nil && resp.StatusCode != http.StatusOK {
				err = errors.New(http.StatusText(resp.StatusCode))
			}
			results <- err
		}()
	}

	waitPending(t, client, n)
	api.ReleaseRefresh()
	wg.Wait()
	close(results)

	for err := range results {
		if err != nil {
			t.Fatalf("every queued call must succeed after one renewal: %v", err)
		}
	}
	if got := api.RefreshCalls(); got != 1 {
		t.Fatalf("expected exactly one renewal, got %d", got)
	}

	snap := client.MetricsSnapshot()
	if snap.Counters[MetricRefreshStarted] != 1 || snap.Counters[MetricReplay] != n {
		t.Fatalf("expected 1 cycle and %d replays, got %d/%d", n, snap.Counters[MetricRefreshStarted], snap.Counters[MetricReplay])
	}
	if snap.Counters[MetricPendingQueued] != n-1 {
		t.Fatalf("expected %d joiners, got %d", n-1, snap.Counters[MetricPendingQueued])
	}

	restored, err := New().WithBaseURL(api.URL).WithRedis(rdb).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer restored.Close()
	if restored.Current().Credentials != client.Current().Credentials {
		t.Fatalf("renewed pair must be persisted")
	}
}

func TestRefreshConcurrencyFailureRejectsAll(t *testing.T) {
	client, api := newGatewayTest(t, authtest.Config{}, nil)
	loginExpired(t, client, api)

	var mu sync.Mutex
	clears := 0
	client.Subscribe(func(ev SessionEvent) {
		if ev.Kind == session.EventSessionCleared {
			mu.Lock()
			clears++
			mu.Unlock()
		}
	})

	api.GateRefresh()
	api.FailRefresh(true)

	const n = 8
	var wg sync.WaitGroup
	wg.Add(n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := client.Dispatch(context.Background(), Request{URL: "/profile"})
			errs <- err
		}()
	}

	waitPending(t, client, n)
	api.ReleaseRefresh()
	wg.Wait()
	close(errs)

	cycleID := ""
	for err := range errs {
		var expired *SessionExpiredError
		if !errors.As(err, &expired) {
			t.Fatalf("expected *SessionExpiredError, got %v", err)
		}
		if !errors.Is(err, refresh.ErrRenewalRejected) {
			t.Fatalf("expected renewal rejection cause, got %v", err)
		}
		if cycleID == "" {
			cycleID = expired.CycleID
		}
		if expired.CycleID != cycleID {
			t.Fatalf("all calls must be rejected by the same cycle")
		}
	}
	if api.RefreshCalls() != 1 {
		t.Fatalf("expected one renewal, got %d", api.RefreshCalls())
	}
	mu.Lock()
	defer mu.Unlock()
	if clears != 1 {
		t.Fatalf("expected one clear notification, got %d", clears)
	}
}

func TestStaleAuthFailureReplaysWithoutNewCycle(t *testing.T) {
	client, api := newGatewayTest(t, authtest.Config{}, nil)
	loginExpired(t, client, api)
	stale := client.Current().Credentials.AccessToken

	if _, err := client.Dispatch(context.Background(), Request{URL: "/profile"}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	// A call that was sent with the old token before the cycle finished.
	resp, err := client.coordinator.Recover(context.Background(), client.gateway.replayCall(Request{URL: "/profile"}, stale))
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("stale call must replay with the current token: resp=%v err=%v", resp, err)
	}
	if api.RefreshCalls() != 1 {
		t.Fatalf("stale auth failure must not renew again, got %d", api.RefreshCalls())
	}
	if got := client.MetricsSnapshot().Counters[MetricStaleReplay]; got != 1 {
		t.Fatalf("expected stale replay metric, got %d", got)
	}
}
