package internaldefs

import (
	trackd "github.com/foodontracks/trackd"
)

// CounterDef defines a public type used by trackd APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   trackd.MetricID
	Name string
	Help string
}

// HistogramDef defines a public type used by trackd APIs.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   trackd.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the traceability engine.
var CounterDefs = []CounterDef{
	{ID: trackd.MetricLoginSuccess, Name: "trackd_login_success_total", Help: "Successful login attempts."},
	{ID: trackd.MetricLoginFailure, Name: "trackd_login_failure_total", Help: "Failed login attempts."},
	{ID: trackd.MetricLoginRateLimited, Name: "trackd_login_rate_limited_total", Help: "Rate-limited login attempts."},
	{ID: trackd.MetricRefreshSuccess, Name: "trackd_refresh_success_total", Help: "Successful refresh operations."},
	{ID: trackd.MetricRefreshFailure, Name: "trackd_refresh_failure_total", Help: "Failed refresh operations."},
	{ID: trackd.MetricRefreshReuseDetected, Name: "trackd_refresh_reuse_detected_total", Help: "Detected refresh token reuses."},
	{ID: trackd.MetricRefreshRateLimited, Name: "trackd_refresh_rate_limited_total", Help: "Rate-limited refresh attempts."},
	{ID: trackd.MetricValidateSuccess, Name: "trackd_validate_success_total", Help: "Successful token validations."},
	{ID: trackd.MetricValidateFailure, Name: "trackd_validate_failure_total", Help: "Failed token validations."},
	{ID: trackd.MetricPermissionDenied, Name: "trackd_permission_denied_total", Help: "Permission checks that denied requests."},
	{ID: trackd.MetricRouteDenied, Name: "trackd_route_denied_total", Help: "Route-level denials answered with an error status."},
	{ID: trackd.MetricRouteRedirect, Name: "trackd_route_redirect_total", Help: "Route-level denials answered with a login redirect."},
	{ID: trackd.MetricRateLimitHit, Name: "trackd_rate_limit_hit_total", Help: "Rate-limit checks that denied requests."},
	{ID: trackd.MetricSessionCreated, Name: "trackd_session_created_total", Help: "Created sessions."},
	{ID: trackd.MetricSessionInvalidated, Name: "trackd_session_invalidated_total", Help: "Invalidated sessions."},
	{ID: trackd.MetricLogout, Name: "trackd_logout_total", Help: "Single-session logout operations."},
	{ID: trackd.MetricLogoutAll, Name: "trackd_logout_all_total", Help: "Logout-all operations."},
	{ID: trackd.MetricAccountCreationSuccess, Name: "trackd_account_creation_success_total", Help: "Successful account creations."},
	{ID: trackd.MetricAccountCreationDuplicate, Name: "trackd_account_creation_duplicate_total", Help: "Account creation attempts rejected as duplicate."},
	{ID: trackd.MetricAccountCreationRateLimited, Name: "trackd_account_creation_rate_limited_total", Help: "Rate-limited account creation attempts."},
	{ID: trackd.MetricPasswordChangeSuccess, Name: "trackd_password_change_success_total", Help: "Successful password changes."},
	{ID: trackd.MetricPasswordChangeInvalidOld, Name: "trackd_password_change_invalid_old_total", Help: "Password change attempts with invalid old password."},
	{ID: trackd.MetricPasswordChangeReuseRejected, Name: "trackd_password_change_reuse_rejected_total", Help: "Password change attempts rejected for reuse."},
	{ID: trackd.MetricAccountDisabled, Name: "trackd_account_disabled_total", Help: "Account disable operations."},
	{ID: trackd.MetricAccountLocked, Name: "trackd_account_locked_total", Help: "Account lock operations."},
	{ID: trackd.MetricAccountDeleted, Name: "trackd_account_deleted_total", Help: "Account delete operations."},
	{ID: trackd.MetricPrefsRead, Name: "trackd_prefs_read_total", Help: "Preference reads."},
	{ID: trackd.MetricPrefsWrite, Name: "trackd_prefs_write_total", Help: "Preference writes."},
	{ID: trackd.MetricOrderCreated, Name: "trackd_order_created_total", Help: "Created orders."},
	{ID: trackd.MetricOrderUpdated, Name: "trackd_order_updated_total", Help: "Order status transitions."},
	{ID: trackd.MetricTraceEventRecorded, Name: "trackd_trace_event_recorded_total", Help: "Recorded traceability events."},
}

// HistogramDefs is an exported constant or variable used by the traceability engine.
var HistogramDefs = []HistogramDef{
	{ID: trackd.MetricValidateLatency, Name: "trackd_validate_latency_seconds", Help: "Validate latency histogram."},
}

// HistogramBounds is an exported constant or variable used by the traceability engine.
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

// HistogramBoundSuffix is an exported constant or variable used by the traceability engine.
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

// NormalizeBuckets describes the normalizebuckets operation and its observable behavior.
//
// NormalizeBuckets may return an error when input validation, dependency calls, or security checks fail.
// NormalizeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets describes the cumulativebuckets operation and its observable behavior.
//
// CumulativeBuckets may return an error when input validation, dependency calls, or security checks fail.
// CumulativeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
