package internaldefs

import (
	"github.com/owlenglish/examclient"
)

// CounterDef binds a counter to its exported name and help text.
type CounterDef struct {
	ID   examclient.MetricID
	Name string
	Help string
}

// HistogramDef binds a histogram to its exported name and help text.
type HistogramDef struct {
	ID   examclient.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter of audit events dropped under backpressure.
const AuditDroppedName = "examclient_audit_dropped_total"

// CounterDefs lists every exported counter.
var CounterDefs = []CounterDef{
	{ID: examclient.MetricLoginSuccess, Name: "examclient_login_success_total", Help: "Sign-ins that created a session."},
	{ID: examclient.MetricLoginFailure, Name: "examclient_login_failure_total", Help: "Sign-ins rejected by the backend."},
	{ID: examclient.MetricLoginRoleDenied, Name: "examclient_login_role_denied_total", Help: "Sign-ins cleared because the role did not fit the area."},
	{ID: examclient.MetricOAuthSuccess, Name: "examclient_oauth_success_total", Help: "OAuth callbacks that created a session."},
	{ID: examclient.MetricOAuthFailure, Name: "examclient_oauth_failure_total", Help: "OAuth callbacks without a session."},
	{ID: examclient.MetricSetPasswordSuccess, Name: "examclient_set_password_success_total", Help: "Accepted set-password submissions."},
	{ID: examclient.MetricSetPasswordRejected, Name: "examclient_set_password_rejected_total", Help: "Set-password submissions rejected locally."},
	{ID: examclient.MetricLogout, Name: "examclient_logout_total", Help: "Explicit logouts."},
	{ID: examclient.MetricForcedLogout, Name: "examclient_forced_logout_total", Help: "Sessions cleared after a 401 response."},
	{ID: examclient.MetricRefreshSuccess, Name: "examclient_refresh_success_total", Help: "Token refreshes."},
	{ID: examclient.MetricRefreshFailure, Name: "examclient_refresh_failure_total", Help: "Failed token refreshes."},
	{ID: examclient.MetricRequest, Name: "examclient_requests_total", Help: "Completed backend round trips."},
	{ID: examclient.MetricRequestNetworkError, Name: "examclient_request_network_errors_total", Help: "Round trips that failed before a response."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: examclient.MetricRequestLatency, Name: "examclient_request_latency_seconds", Help: "Backend round-trip latency."},
}

// HistogramBounds are the upper bounds of the latency buckets, in seconds.
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

// HistogramBoundSuffix names each bucket for exporters without labels.
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

// NormalizeBuckets pads or truncates raw to the fixed bucket count.
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
