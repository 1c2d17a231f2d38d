// Package prometheus exports client metrics to Prometheus.
//
// [PrometheusExporter] renders the text exposition format directly and serves
// it from an [net/http.Handler]. [Collector] plugs the same series into a
// client_golang registry. Counter names are goauth_client_*_total; the
// histograms are goauth_client_dispatch_latency_seconds and
// goauth_client_refresh_latency_seconds.
//
// Neither type registers anything globally.
package prometheus
