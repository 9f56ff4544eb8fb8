package authclient

import (
	"sync"
	"testing"
	"time"
)

func TestDisabledMetricsAreInert(t *testing.T) {
	m := NewMetrics(MetricsConfig{})
	m.Inc(MetricLoginSuccess)
	m.Observe(10 * time.Millisecond)

	if m.Enabled() || m.LatencyEnabled() {
		t.Fatal("disabled config must disable everything")
	}
	if got := m.Value(MetricLoginSuccess); got != 0 {
		t.Fatalf("disabled counter incremented to %d", got)
	}
	snap := m.Snapshot()
	if len(snap.Counters) != 0 || len(snap.Histograms) != 0 {
		t.Fatalf("disabled snapshot must be empty, got %+v", snap)
	}
}

func TestLatencyRequiresBothFlags(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false, EnableLatencyHistograms: true})
	if m.LatencyEnabled() {
		t.Fatal("latency must stay off when metrics are off")
	}
}

func TestConcurrentIncrementsAreLossless(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const workers = 16
	const perWorker = 1000
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				m.Inc(MetricRefreshSuccess)
			}
		}()
	}
	wg.Wait()

	if got := m.Value(MetricRefreshSuccess); got != workers*perWorker {
		t.Fatalf("expected %d, got %d", workers*perWorker, got)
	}
}

func TestObserveBucketsLatency(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})

	m.Observe(2 * time.Millisecond)   // bucket 0
	m.Observe(30 * time.Millisecond)  // bucket 3
	m.Observe(999 * time.Millisecond) // +Inf

	buckets := m.Snapshot().Histograms[MetricRequestLatency]
	if len(buckets) != histBucketCount {
		t.Fatalf("expected %d buckets, got %d", histBucketCount, len(buckets))
	}
	if buckets[0] != 1 || buckets[3] != 1 || buckets[7] != 1 {
		t.Fatalf("samples landed in the wrong buckets: %v", buckets)
	}
}

func TestSnapshotIsDetachedCopy(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(MetricLogout)

	snap := m.Snapshot()
	m.Inc(MetricLogout)

	if snap.Counters[MetricLogout] != 1 {
		t.Fatalf("snapshot must not track later increments, got %d", snap.Counters[MetricLogout])
	}
	if m.Value(MetricLogout) != 2 {
		t.Fatalf("live value should be 2, got %d", m.Value(MetricLogout))
	}
}

func TestOutOfRangeMetricIDIsIgnored(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(metricIDCount)
	m.Inc(MetricID(10_000))
	if got := m.Value(MetricID(10_000)); got != 0 {
		t.Fatalf("out-of-range ID must read zero, got %d", got)
	}
}
