package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/owlenglish/examclient"
)

type fakeSource struct {
	snapshot examclient.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() examclient.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                        { return f.dropped }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: examclient.MetricsSnapshot{
			Counters:   map[examclient.MetricID]uint64{},
			Histograms: map[examclient.MetricID][]uint64{},
		},
	})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderIncludesCountersAndHistogram(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: examclient.MetricsSnapshot{
			Counters: map[examclient.MetricID]uint64{
				examclient.MetricLoginRoleDenied: 3,
				examclient.MetricForcedLogout:    1,
			},
			Histograms: map[examclient.MetricID][]uint64{
				examclient.MetricRequestLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	out := exp.Render()
	for _, want := range []string{
		"examclient_login_role_denied_total 3",
		"examclient_forced_logout_total 1",
		"examclient_login_success_total 0",
		`examclient_request_latency_seconds_bucket{le="0.005"} 1`,
		`examclient_request_latency_seconds_bucket{le="+Inf"} 36`,
		"examclient_request_latency_seconds_count 36",
		"examclient_audit_dropped_total 2",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
}

func TestRenderSkipsDisabledHistogram(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: examclient.MetricsSnapshot{
			Counters:   map[examclient.MetricID]uint64{examclient.MetricLogout: 1},
			Histograms: map[examclient.MetricID][]uint64{},
		},
	})

	if out := exp.Render(); strings.Contains(out, "latency") {
		t.Fatalf("expected no histogram without latency data, got:\n%s", out)
	}
}

func TestRenderFromClient(t *testing.T) {
	client, err := examclient.New().WithMetricsEnabled(true).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer client.Close()

	out := NewExporter(client).Render()
	if !strings.Contains(out, "examclient_logout_total 0") {
		t.Fatalf("expected zeroed counters from a fresh client, got:\n%s", out)
	}
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: examclient.MetricsSnapshot{
			Counters:   map[examclient.MetricID]uint64{examclient.MetricLoginSuccess: 1},
			Histograms: map[examclient.MetricID][]uint64{},
		},
	})

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

func BenchmarkRender(b *testing.B) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: examclient.MetricsSnapshot{
			Counters: map[examclient.MetricID]uint64{
				examclient.MetricLoginSuccess:   1000,
				examclient.MetricLoginFailure:   40,
				examclient.MetricRefreshSuccess: 800,
				examclient.MetricRequest:        12000,
			},
			Histograms: map[examclient.MetricID][]uint64{
				examclient.MetricRequestLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = exp.Render()
	}
}
