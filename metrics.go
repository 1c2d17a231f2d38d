package goAuthClient

import (
	"sync/atomic"
	"time"
)

// MetricID identifies an in-process counter or histogram.
type MetricID uint16

const (
	// MetricDispatch counts calls entering the gateway.
	MetricDispatch MetricID = iota
	// MetricAuthFailure counts responses handed to the refresh coordinator.
	MetricAuthFailure
	// MetricRefreshStarted counts refresh cycles, i.e. renewal calls.
	MetricRefreshStarted
	// MetricRefreshSuccess counts cycles whose renewal succeeded.
	MetricRefreshSuccess
	// MetricRefreshFailure counts cycles whose renewal failed.
	MetricRefreshFailure
	// MetricRefreshSuperseded counts renewals discarded because the session was
	// cleared or replaced meanwhile.
	MetricRefreshSuperseded
	// MetricPendingQueued counts calls that joined a running cycle.
	MetricPendingQueued
	// MetricReplay counts replayed calls.
	MetricReplay
	// MetricReplayFailure counts replays that returned an error.
	MetricReplayFailure
	// MetricStaleReplay counts calls replayed with a credential renewed by an
	// earlier cycle.
	MetricStaleReplay
	// MetricSessionExpired counts SessionExpired outcomes, one per cycle.
	MetricSessionExpired
	// MetricSessionSet counts SetSession and session restores.
	MetricSessionSet
	// MetricSessionCleared counts clears, including idempotent ones.
	MetricSessionCleared
	// MetricProactiveRefresh counts calls that renewed before sending.
	MetricProactiveRefresh
	// MetricTransportError counts attempts that failed below HTTP.
	MetricTransportError
	// MetricDispatchLatency is the end-to-end Dispatch latency histogram.
	MetricDispatchLatency
	// MetricRefreshLatency is the renewal latency histogram.
	MetricRefreshLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is a fixed set of lock-free counters and latency histograms.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of [Metrics].
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns metrics configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether histograms are recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc increments a counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in a latency histogram. Non-histogram ids are ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if !isHistogram(id) {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns a counter's current value.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies all counters and, when enabled, all histograms.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 2),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if isHistogram(id) {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		for _, id := range []MetricID{MetricDispatchLatency, MetricRefreshLatency} {
			buckets := make([]uint64, histBucketCount)
			for i := 0; i < histBucketCount; i++ {
				buckets[i] = atomic.LoadUint64(&m.histograms[id].buckets[i])
			}
			s.Histograms[id] = buckets
		}
	}

	return s
}

func isHistogram(id MetricID) bool {
	return id == MetricDispatchLatency || id == MetricRefreshLatency
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
