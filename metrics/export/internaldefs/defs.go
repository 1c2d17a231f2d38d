package internaldefs

import goAuthClient "github.com/MrEthical07/goAuthClient"

// CounterDef names one client counter for exporters.
type CounterDef struct {
	ID   goAuthClient.MetricID
	Name string
	Help string
}

// HistogramDef names one client latency histogram for exporters.
type HistogramDef struct {
	ID   goAuthClient.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter exported for dropped audit events.
const (
	AuditDroppedName = "goauth_client_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: goAuthClient.MetricDispatch, Name: "goauth_client_dispatch_total", Help: "Calls entering the gateway."},
	{ID: goAuthClient.MetricAuthFailure, Name: "goauth_client_auth_failure_total", Help: "Responses handed to the refresh coordinator."},
	{ID: goAuthClient.MetricRefreshStarted, Name: "goauth_client_refresh_started_total", Help: "Refresh cycles started."},
	{ID: goAuthClient.MetricRefreshSuccess, Name: "goauth_client_refresh_success_total", Help: "Refresh cycles whose renewal succeeded."},
	{ID: goAuthClient.MetricRefreshFailure, Name: "goauth_client_refresh_failure_total", Help: "Refresh cycles whose renewal failed."},
	{ID: goAuthClient.MetricRefreshSuperseded, Name: "goauth_client_refresh_superseded_total", Help: "Renewals discarded after the session was cleared or replaced."},
	{ID: goAuthClient.MetricPendingQueued, Name: "goauth_client_pending_queued_total", Help: "Calls that joined a running refresh cycle."},
	{ID: goAuthClient.MetricReplay, Name: "goauth_client_replay_total", Help: "Calls replayed after a refresh."},
	{ID: goAuthClient.MetricReplayFailure, Name: "goauth_client_replay_failure_total", Help: "Replays that returned an error."},
	{ID: goAuthClient.MetricStaleReplay, Name: "goauth_client_stale_replay_total", Help: "Calls replayed with a credential renewed by an earlier cycle."},
	{ID: goAuthClient.MetricSessionExpired, Name: "goauth_client_session_expired_total", Help: "Session expiry outcomes."},
	{ID: goAuthClient.MetricSessionSet, Name: "goauth_client_session_set_total", Help: "Sessions installed or restored."},
	{ID: goAuthClient.MetricSessionCleared, Name: "goauth_client_session_cleared_total", Help: "Session clears."},
	{ID: goAuthClient.MetricProactiveRefresh, Name: "goauth_client_proactive_refresh_total", Help: "Calls that renewed before sending."},
	{ID: goAuthClient.MetricTransportError, Name: "goauth_client_transport_error_total", Help: "Attempts that failed below HTTP."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goAuthClient.MetricDispatchLatency, Name: "goauth_client_dispatch_latency_seconds", Help: "Gateway dispatch latency histogram."},
	{ID: goAuthClient.MetricRefreshLatency, Name: "goauth_client_refresh_latency_seconds", Help: "Renewal latency histogram."},
}

// HistogramBounds are the upper bounds of the client buckets in seconds.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundValues mirrors HistogramBounds without the +Inf bucket.
var HistogramBoundValues = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix is HistogramBounds spelled for instrument names.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed array, padding with zeros.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
