package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"net/http/httptest"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/owlenglish/examclient"
	"github.com/owlenglish/examclient/internal/fakeapi"
	"github.com/owlenglish/examclient/metrics/export/prometheus"
	"github.com/owlenglish/examclient/session"
)

type clientState struct {
	client *examclient.Client
	mu     sync.Mutex
}

func main() {
	var (
		sessions    = flag.Int("sessions", 64, "number of signed-in clients")
		concurrency = flag.Int("concurrency", 16, "number of concurrent workers")
		ops         = flag.Int("ops", 5000, "operations per phase (store, me, refresh)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		apiURL      = flag.String("api-url", "", "backend root; if empty, an in-process fake backend is used")
		email       = flag.String("email", "admin@example.com", "account every client signs in with")
		pass        = flag.String("password", "admin123", "password of -email")
		prefix      = flag.String("prefix", "lt", "session key prefix")
		promText    = flag.Bool("prometheus", false, "print summed client metrics in Prometheus text format")
	)
	flag.Parse()

	if *sessions <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "sessions, concurrency, and ops must be > 0")
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
		rdb = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = rdb.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		rdb = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = rdb.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	baseURL := *apiURL
	if baseURL == "" {
		srv := httptest.NewServer(fakeapi.New(fakeapi.Options{}).Handler())
		defer srv.Close()
		baseURL = srv.URL
		fmt.Printf("using fake backend at %s\n", baseURL)
	}

	states := make([]clientState, *sessions)
	fmt.Printf("signing in %d clients...\n", *sessions)
	startSeed := time.Now()
	for i := range states {
		cfg := examclient.DefaultConfig()
		cfg.API.BaseURL = baseURL
		cfg.Session.KeyPrefix = fmt.Sprintf("%s:%d:", *prefix, i)
		cfg.Metrics.Enabled = true
		cfg.Metrics.EnableLatencyHistograms = true

		client, err := examclient.New().
			WithConfig(cfg).
			WithBackend(session.NewRedisBackend(rdb, 0)).
			Build()
		if err != nil {
			fmt.Fprintf(os.Stderr, "build failed: %v\n", err)
			os.Exit(1)
		}
		defer client.Close()

		if _, err := client.Login(ctx, examclient.LoginRequest{Email: *email, Password: *pass}); err != nil {
			fmt.Fprintf(os.Stderr, "login failed: %v\n", err)
			os.Exit(1)
		}
		states[i].client = client
	}
	fmt.Printf("signed in in %s\n", time.Since(startSeed).Round(time.Millisecond))

	storeStats := runPhase(states, *ops, *concurrency, 7919, func(s *clientState, i int) error {
		st := s.client.State()
		if i%2 == 0 {
			return s.client.Store().SetUser(ctx, st.User)
		}
		return s.client.Store().SetSession(ctx, st.Token, st.User)
	})
	meStats := runPhase(states, *ops, *concurrency, 6151, func(s *clientState, _ int) error {
		_, err := s.client.Me(ctx)
		return err
	})
	refreshStats := runPhase(states, *ops, *concurrency, 4099, func(s *clientState, _ int) error {
		_, err := s.client.RefreshToken(ctx)
		return err
	})

	fmt.Println("---- results ----")
	printStats("store", storeStats)
	printStats("me", meStats)
	printStats("refresh", refreshStats)
	printCounters(states)
	if *promText {
		fmt.Println("---- prometheus ----")
		fmt.Print(prometheus.NewExporterFromSource(summedSource(states)).Render())
	}
}

// runPhase runs ops calls of op spread over concurrency workers. Calls on the
// same client are serialized.
func runPhase(states []clientState, ops, concurrency int, seed int64, op func(s *clientState, i int) error) phaseStats {
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
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*seed))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				state := &states[r.Intn(len(states))]

				state.mu.Lock()
				t0 := time.Now()
				err := op(state, i)
				d := time.Since(t0)
				state.mu.Unlock()
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}

				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
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
		return phaseStats{total: total}
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

// printCounters sums the request counters and latency buckets of every client.
func printCounters(states []clientState) {
	var requests, networkErrors, forced uint64
	buckets := make([]uint64, 8)
	for i := range states {
		snap := states[i].client.MetricsSnapshot()
		requests += snap.Counters[examclient.MetricRequest]
		networkErrors += snap.Counters[examclient.MetricRequestNetworkError]
		forced += snap.Counters[examclient.MetricForcedLogout]
		for b, v := range snap.Histograms[examclient.MetricRequestLatency] {
			if b < len(buckets) {
				buckets[b] += v
			}
		}
	}
	fmt.Printf("requests=%d network_errors=%d forced_logouts=%d\n", requests, networkErrors, forced)
	fmt.Printf("latency buckets (<=5ms,10,25,50,100,250,500,+Inf): %v\n", buckets)
}

// summedSource adds up the metrics of every client so one exporter can render
// the whole run.
type summedSource []clientState

func (s summedSource) MetricsSnapshot() examclient.MetricsSnapshot {
	out := examclient.MetricsSnapshot{
		Counters:   make(map[examclient.MetricID]uint64),
		Histograms: make(map[examclient.MetricID][]uint64),
	}
	for i := range s {
		snap := s[i].client.MetricsSnapshot()
		for id, v := range snap.Counters {
			out.Counters[id] += v
		}
		for id, buckets := range snap.Histograms {
			sum := out.Histograms[id]
			if len(sum) < len(buckets) {
				grown := make([]uint64, len(buckets))
				copy(grown, sum)
				sum = grown
			}
			for b, v := range buckets {
				sum[b] += v
			}
			out.Histograms[id] = sum
		}
	}
	return out
}

func (s summedSource) AuditDropped() uint64 {
	var total uint64
	for i := range s {
		total += s[i].client.AuditDropped()
	}
	return total
}
