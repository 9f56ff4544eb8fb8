package internaldefs

import (
	authclient "github.com/LiterallyLink/twitter-clone-sub001"
)

// CounterDef pairs a metric ID with its exported name and help text.
// Instances are configured at package init and treated as immutable.
type CounterDef struct {
	ID   authclient.MetricID
	Name string
	Help string
}

// HistogramDef pairs a histogram metric ID with its exported name and help
// text.
type HistogramDef struct {
	ID   authclient.MetricID
	Name string
	Help string
}

// CounterDefs lists every counter both exporters publish, in a stable order.
var CounterDefs = []CounterDef{
	{ID: authclient.MetricBootstrap, Name: "authclient_bootstrap_total", Help: "Bootstrap sequences started."},
	{ID: authclient.MetricCSRFFetchSuccess, Name: "authclient_csrf_fetch_success_total", Help: "Successful CSRF token fetches."},
	{ID: authclient.MetricCSRFFetchFailure, Name: "authclient_csrf_fetch_failure_total", Help: "Failed CSRF token fetches."},
	{ID: authclient.MetricCSRFRepair, Name: "authclient_csrf_repair_total", Help: "Requests resubmitted after a CSRF token refetch."},
	{ID: authclient.MetricLoginSuccess, Name: "authclient_login_success_total", Help: "Successful logins."},
	{ID: authclient.MetricLoginFailure, Name: "authclient_login_failure_total", Help: "Failed login attempts."},
	{ID: authclient.MetricTwoFactorRequired, Name: "authclient_two_factor_required_total", Help: "Logins parked on a second-factor challenge."},
	{ID: authclient.MetricTwoFactorSuccess, Name: "authclient_two_factor_success_total", Help: "Successful second-factor confirmations."},
	{ID: authclient.MetricTwoFactorFailure, Name: "authclient_two_factor_failure_total", Help: "Failed second-factor confirmations."},
	{ID: authclient.MetricBackupCodeUsed, Name: "authclient_backup_code_used_total", Help: "Successful backup-code authentications."},
	{ID: authclient.MetricRefreshSuccess, Name: "authclient_refresh_success_total", Help: "Successful session refreshes."},
	{ID: authclient.MetricRefreshFailure, Name: "authclient_refresh_failure_total", Help: "Failed session refreshes."},
	{ID: authclient.MetricRefreshCoalesced, Name: "authclient_refresh_coalesced_total", Help: "Refresh calls that joined an in-flight refresh."},
	{ID: authclient.MetricAuthRetry, Name: "authclient_auth_retry_total", Help: "Requests resubmitted after a session refresh."},
	{ID: authclient.MetricCheckAuthSuccess, Name: "authclient_check_auth_success_total", Help: "Identity checks resolving to a user."},
	{ID: authclient.MetricCheckAuthFailure, Name: "authclient_check_auth_failure_total", Help: "Identity checks resolving unauthenticated."},
	{ID: authclient.MetricLogout, Name: "authclient_logout_total", Help: "Logout operations."},
	{ID: authclient.MetricRegisterSuccess, Name: "authclient_register_success_total", Help: "Successful registrations."},
	{ID: authclient.MetricRegisterFailure, Name: "authclient_register_failure_total", Help: "Failed registration attempts."},
}

// HistogramDefs lists every histogram both exporters publish.
var HistogramDefs = []HistogramDef{
	{ID: authclient.MetricRequestLatency, Name: "authclient_request_latency_seconds", Help: "API round-trip latency histogram."},
}

// HistogramBounds are the upper bucket bounds in seconds, Prometheus form.
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

// HistogramBoundSuffix mirrors HistogramBounds as name-safe suffixes for
// backends without native histogram support.
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

// NormalizeBuckets pads or truncates a raw snapshot slice to the fixed
// bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into the cumulative form both
// exposition formats expect.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
