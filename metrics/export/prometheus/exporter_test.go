package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goAuthClient "github.com/MrEthical07/goAuthClient"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeSource struct {
	snapshot goAuthClient.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() goAuthClient.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                          { return f.dropped }

func sampleSource() fakeSource {
	return fakeSource{
		snapshot: goAuthClient.MetricsSnapshot{
			Counters: map[goAuthClient.MetricID]uint64{
				goAuthClient.MetricRefreshStarted: 7,
				goAuthClient.MetricPendingQueued:  15,
			},
			Histograms: map[goAuthClient.MetricID][]uint64{
				goAuthClient.MetricRefreshLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	}
}

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goAuthClient.MetricsSnapshot{
			Counters:   map[goAuthClient.MetricID]uint64{},
			Histograms: map[goAuthClient.MetricID][]uint64{},
		},
	})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderIncludesCounterAndHistogram(t *testing.T) {
	out := NewPrometheusExporterFromSource(sampleSource()).Render()

	for _, want := range []string{
		"goauth_client_refresh_started_total 7",
		"goauth_client_pending_queued_total 15",
		"goauth_client_replay_total 0",
		"goauth_client_refresh_latency_seconds_bucket{le=\"0.005\"} 1",
		"goauth_client_refresh_latency_seconds_bucket{le=\"+Inf\"} 36",
		"goauth_client_refresh_latency_seconds_count 36",
		"goauth_client_audit_dropped_total 2",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
	if strings.Contains(out, "goauth_client_dispatch_latency_seconds") {
		t.Fatalf("histogram without samples should be omitted, got:\n%s", out)
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	exp := NewPrometheusExporterFromSource(sampleSource())
	if a, b := exp.Render(), exp.Render(); a != b {
		t.Fatal("expected identical output across renders")
	}
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	exp := NewPrometheusExporterFromSource(sampleSource())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestCollectorMatchesRender(t *testing.T) {
	reg := prom.NewPedanticRegistry()
	if err := reg.Register(NewCollectorFromSource(sampleSource())); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	expected := `
# HELP goauth_client_refresh_started_total Refresh cycles started.
# TYPE goauth_client_refresh_started_total counter
goauth_client_refresh_started_total 7
# HELP goauth_client_audit_dropped_total Dropped audit events due to dispatcher backpressure.
# TYPE goauth_client_audit_dropped_total counter
goauth_client_audit_dropped_total 2
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"goauth_client_refresh_started_total", "goauth_client_audit_dropped_total"); err != nil {
		t.Fatalf("unexpected collection: %v", err)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != "goauth_client_refresh_latency_seconds" {
			continue
		}
		h := mf.GetMetric()[0].GetHistogram()
		if h.GetSampleCount() != 36 {
			t.Fatalf("expected 36 samples, got %d", h.GetSampleCount())
		}
		if first := h.GetBucket()[0]; first.GetCumulativeCount() != 1 || first.GetUpperBound() != 0.005 {
			t.Fatalf("unexpected first bucket %v", first)
		}
		return
	}
	t.Fatal("refresh latency histogram not collected")
}

func TestCollectorCountsSeries(t *testing.T) {
	c := NewCollectorFromSource(sampleSource())
	// every counter, one populated histogram, audit dropped
	want := len(c.counters) + 1 + 1
	if got := testutil.CollectAndCount(c); got != want {
		t.Fatalf("expected %d series, got %d", want, got)
	}
}

func BenchmarkRender(b *testing.B) {
	exp := NewPrometheusExporterFromSource(sampleSource())

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = exp.Render()
	}
}
