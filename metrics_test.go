package examclient

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledNoIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricLoginSuccess)

	if got := m.Value(MetricLoginSuccess); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestMetricsEnabledIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLoginSuccess)

	if got := m.Value(MetricLoginSuccess); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
}

func TestMetricsConcurrentIncrementSafe(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const goroutines = 32
	const perG = 4000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perG; j++ {
				m.Inc(MetricForcedLogout)
			}
		}()
	}
	wg.Wait()

	want := uint64(goroutines * perG)
	if got := m.Value(MetricForcedLogout); got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
}

func TestMetricsHistogramBucketCorrectness(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})

	observations := []time.Duration{
		5 * time.Millisecond,
		10 * time.Millisecond,
		25 * time.Millisecond,
		50 * time.Millisecond,
		100 * time.Millisecond,
		250 * time.Millisecond,
		500 * time.Millisecond,
		700 * time.Millisecond,
	}

	for _, d := range observations {
		m.Observe(MetricRequestLatency, d)
	}

	snap := m.Snapshot()
	buckets := snap.Histograms[MetricRequestLatency]
	if len(buckets) != 8 {
		t.Fatalf("expected 8 buckets, got %d", len(buckets))
	}

	for i, v := range buckets {
		if v != 1 {
			t.Fatalf("bucket %d expected 1, got %d", i, v)
		}
	}
}

func TestMetricsObserveIgnoresCounters(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	m.Observe(MetricLoginSuccess, time.Millisecond)

	snap := m.Snapshot()
	if _, ok := snap.Histograms[MetricLoginSuccess]; ok {
		t.Fatal("expected no histogram for a counter")
	}
	if _, ok := snap.Counters[MetricRequestLatency]; ok {
		t.Fatal("expected latency to be absent from counters")
	}
}

func TestMetricsSnapshotWithoutHistograms(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Observe(MetricRequestLatency, time.Millisecond)

	if len(m.Snapshot().Histograms) != 0 {
		t.Fatal("expected no histograms when latency is disabled")
	}
}

func TestMetricsObserveRequest(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	m.observeRequest("GET", "/auth/me", 200, 3*time.Millisecond)
	m.observeRequest("GET", "/auth/me", 0, 20*time.Millisecond)

	snap := m.Snapshot()
	if snap.Counters[MetricRequest] != 1 || snap.Counters[MetricRequestNetworkError] != 1 {
		t.Fatalf("unexpected counters %v", snap.Counters)
	}
	buckets := snap.Histograms[MetricRequestLatency]
	if buckets[0] != 1 || buckets[2] != 1 {
		t.Fatalf("unexpected buckets %v", buckets)
	}
}

func TestClientCountsRequests(t *testing.T) {
	env := newTestEnv(t, func(b *Builder) { b.WithLatencyHistograms(true) })
	env.login(t, "admin@example.com", "admin123")
	if _, err := env.client.Me(context.Background()); err != nil {
		t.Fatalf("Me failed: %v", err)
	}

	snap := env.client.MetricsSnapshot()
	if snap.Counters[MetricRequest] != 2 {
		t.Fatalf("expected 2 requests, got %d", snap.Counters[MetricRequest])
	}
	var observed uint64
	for _, v := range snap.Histograms[MetricRequestLatency] {
		observed += v
	}
	if observed != 2 {
		t.Fatalf("expected 2 latency observations, got %d", observed)
	}
}
