package authclient

import (
	"sync/atomic"
	"time"
)

// MetricID identifies a specific counter or histogram bucket set in the
// in-process metrics system.
type MetricID uint16

const (
	// MetricBootstrap counts bootstrap sequences started.
	MetricBootstrap MetricID = iota
	// MetricCSRFFetchSuccess counts successful anti-forgery token fetches.
	MetricCSRFFetchSuccess
	// MetricCSRFFetchFailure counts swallowed token-fetch failures.
	MetricCSRFFetchFailure
	// MetricCSRFRepair counts automatic resubmissions after a CSRF rejection.
	MetricCSRFRepair
	// MetricLoginSuccess counts completed single-factor logins.
	MetricLoginSuccess
	// MetricLoginFailure counts rejected first-factor submissions.
	MetricLoginFailure
	// MetricTwoFactorRequired counts first-factor successes parked on a
	// second-factor challenge.
	MetricTwoFactorRequired
	// MetricTwoFactorSuccess counts completed second-factor submissions.
	MetricTwoFactorSuccess
	// MetricTwoFactorFailure counts rejected second-factor submissions.
	MetricTwoFactorFailure
	// MetricBackupCodeUsed counts second-factor completions via backup code.
	MetricBackupCodeUsed
	// MetricRefreshSuccess counts successful credential refreshes.
	MetricRefreshSuccess
	// MetricRefreshFailure counts failed credential refreshes.
	MetricRefreshFailure
	// MetricRefreshCoalesced counts refresh callers that shared an already
	// in-flight refresh instead of starting their own.
	MetricRefreshCoalesced
	// MetricAuthRetry counts automatic resubmissions after a refresh.
	MetricAuthRetry
	// MetricCheckAuthSuccess counts identity checks that found a session.
	MetricCheckAuthSuccess
	// MetricCheckAuthFailure counts identity checks that ended anonymous.
	MetricCheckAuthFailure
	// MetricLogout counts logout calls, best-effort outcomes included.
	MetricLogout
	// MetricRegisterSuccess counts successful registrations.
	MetricRegisterSuccess
	// MetricRegisterFailure counts rejected registrations.
	MetricRegisterFailure
	// MetricRequestLatency is the histogram of pipeline round-trip times.
	MetricRequestLatency

	metricIDCount
)

const histBucketCount = 8

// paddedCounter keeps each counter on its own cache line so concurrent
// increments of different metrics never contend.
type paddedCounter struct {
	value uint64
	_     [56]byte
}

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

// Metrics holds atomic counters and an optional round-trip latency
// histogram. All operations are no-ops when disabled.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	latency       metricHistogram
}

// MetricsSnapshot is a point-in-time deep copy of all metrics.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics creates a [Metrics] instance configured by the given
// [MetricsConfig].
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are being recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether the latency histogram is being recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to the counter for id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records one pipeline round trip in the latency histogram.
func (m *Metrics) Observe(d time.Duration) {
	if m == nil || !m.enableLatency {
		return
	}
	atomic.AddUint64(&m.latency.buckets[bucketIndex(d)], 1)
}

// Value returns the current count for id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot returns a deep copy of all counters and histograms.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := range buckets {
			buckets[i] = atomic.LoadUint64(&m.latency.buckets[i])
		}
		s.Histograms[MetricRequestLatency] = buckets
	}
	return s
}

// Bucket upper bounds: 5ms, 10ms, 25ms, 50ms, 100ms, 250ms, 500ms, +Inf.
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
