// Command goauth-loadtest drives a client against the in-process fake auth API
// and reports dispatch latency and how well concurrent renewals collapse into
// one refresh per storm.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	goAuthClient "github.com/MrEthical07/goAuthClient"
	"github.com/MrEthical07/goAuthClient/authtest"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	var (
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 20000, "dispatch operations")
		storms      = flag.Int("storms", 50, "expired-credential storms")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "gac-load", "session key prefix")
		rotate      = flag.Bool("rotate", false, "rotate the refresh credential on every renewal")
		verbose     = flag.Bool("v", false, "log client activity")
	)
	flag.Parse()

	if *concurrency <= 0 || *ops <= 0 || *storms < 0 {
		fmt.Fprintln(os.Stderr, "concurrency and ops must be > 0, storms >= 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		rdb     redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		rdb = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() {
			_ = rdb.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		rdb = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = rdb.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	api, err := authtest.NewAPI(authtest.Config{RotateRefresh: *rotate})
	if err != nil {
		fmt.Fprintf(os.Stderr, "fake api: %v\n", err)
		os.Exit(1)
	}
	srv := httptest.NewServer(api.Handler())
	defer srv.Close()

	logger := zap.NewNop()
	if *verbose {
		logger, _ = zap.NewDevelopment()
	}

	cfg := goAuthClient.DefaultConfig()
	cfg.API.BaseURL = srv.URL
	cfg.Session.RedisPrefix = *prefix
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true

	client, err := goAuthClient.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithTransport(&http.Transport{MaxIdleConnsPerHost: *concurrency}).
		WithLogger(logger).
		BuildContext(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "client build: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	user, err := api.CreateUser("loadtest", "loadtest@example.com", "Loadtest123")
	if err != nil {
		fmt.Fprintf(os.Stderr, "create user: %v\n", err)
		os.Exit(1)
	}
	access, refresh, err := api.IssueTokens(user.ID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "issue tokens: %v\n", err)
		os.Exit(1)
	}
	identity := goAuthClient.Identity{UserID: strconv.Itoa(user.ID), Username: user.Username, Email: user.Email}
	if err := client.SetSession(ctx, identity, goAuthClient.CredentialPair{AccessToken: access, RefreshToken: refresh}); err != nil {
		fmt.Fprintf(os.Stderr, "set session: %v\n", err)
		os.Exit(1)
	}

	dispatchStats := runDispatchPhase(ctx, client, *ops, *concurrency)
	storm := runStormPhase(ctx, client, api, identity, *storms, *concurrency)

	snap := client.MetricsSnapshot()
	fmt.Println("---- results ----")
	printStats("dispatch", dispatchStats)
	printStats("storm", storm.phaseStats)
	fmt.Printf("storms=%d renewals=%d (want %d) queued=%d replays=%d stale_replays=%d\n",
		*storms,
		storm.renewals,
		*storms,
		snap.Counters[goAuthClient.MetricPendingQueued],
		snap.Counters[goAuthClient.MetricReplay],
		snap.Counters[goAuthClient.MetricStaleReplay],
	)
	if storm.renewals != int64(*storms) {
		os.Exit(1)
	}
}

func runDispatchPhase(ctx context.Context, client *goAuthClient.Client, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				resp, err := client.Dispatch(ctx, goAuthClient.Request{Method: http.MethodGet, URL: "/profile"})
				d := time.Since(t0)
				if err != nil || !resp.OK() {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type stormResult struct {
	phaseStats
	renewals int64
}

// runStormPhase installs an expired access credential and releases every
// worker at once; each storm must cost exactly one renewal.
func runStormPhase(ctx context.Context, client *goAuthClient.Client, api *authtest.API, identity goAuthClient.Identity, storms, concurrency int) stormResult {
	var (
		failures  int64
		latencies = make([]time.Duration, 0, storms*concurrency)
		mu        sync.Mutex
	)

	uid, _ := strconv.Atoi(identity.UserID)
	before := api.RefreshCalls()

	start := time.Now()
	for s := 0; s < storms; s++ {
		expired, err := api.ExpiredAccess(uid)
		if err != nil {
			atomic.AddInt64(&failures, int64(concurrency))
			continue
		}
		refresh := client.Current().Credentials.RefreshToken
		if err := client.SetSession(ctx, identity, goAuthClient.CredentialPair{AccessToken: expired, RefreshToken: refresh}); err != nil {
			atomic.AddInt64(&failures, int64(concurrency))
			continue
		}

		var (
			wg    sync.WaitGroup
			ready = make(chan struct{})
		)
		for w := 0; w < concurrency; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-ready
				t0 := time.Now()
				resp, err := client.Dispatch(ctx, goAuthClient.Request{Method: http.MethodGet, URL: "/profile"})
				d := time.Since(t0)
				if err != nil || !resp.OK() {
					if errors.Is(err, goAuthClient.ErrSessionExpired) {
						fmt.Fprintf(os.Stderr, "storm %d: %v\n", s, err)
					}
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}()
		}
		close(ready)
		wg.Wait()
	}

	return stormResult{
		phaseStats: computeStats(time.Since(start), latencies, failures),
		renewals:   api.RefreshCalls() - before,
	}
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total, failures: failures}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
