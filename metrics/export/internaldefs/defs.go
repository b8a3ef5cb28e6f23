package internaldefs

import (
	staffauth "github.com/hrplane/staffauth"
)

// CounterDef defines a public type used by staffauth APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   staffauth.MetricID
	Name string
	Help string
}

// HistogramDef defines a public type used by staffauth APIs.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   staffauth.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the access control engine.
var CounterDefs = []CounterDef{
	{ID: staffauth.MetricLoginSuccess, Name: "staffauth_login_success_total", Help: "Successful login attempts."},
	{ID: staffauth.MetricLoginFailure, Name: "staffauth_login_failure_total", Help: "Failed login attempts."},
	{ID: staffauth.MetricLoginRateLimited, Name: "staffauth_login_rate_limited_total", Help: "Rate-limited login attempts."},
	{ID: staffauth.MetricLoginLocked, Name: "staffauth_login_locked_total", Help: "Login attempts against locked credentials."},
	{ID: staffauth.MetricLockoutTriggered, Name: "staffauth_lockout_triggered_total", Help: "Lockouts triggered by the failure threshold."},
	{ID: staffauth.MetricRefreshSuccess, Name: "staffauth_refresh_success_total", Help: "Successful refresh operations."},
	{ID: staffauth.MetricRefreshFailure, Name: "staffauth_refresh_failure_total", Help: "Failed refresh operations."},
	{ID: staffauth.MetricTokenEvicted, Name: "staffauth_token_evicted_total", Help: "Refresh tokens evicted by the ring capacity."},
	{ID: staffauth.MetricLogout, Name: "staffauth_logout_total", Help: "Single-session logout operations."},
	{ID: staffauth.MetricLogoutAll, Name: "staffauth_logout_all_total", Help: "Logout-all operations."},
	{ID: staffauth.MetricCredentialCreated, Name: "staffauth_credential_created_total", Help: "Successful credential creations."},
	{ID: staffauth.MetricCredentialDuplicate, Name: "staffauth_credential_duplicate_total", Help: "Credential creation attempts rejected as duplicate."},
	{ID: staffauth.MetricPasswordChangeSuccess, Name: "staffauth_password_change_success_total", Help: "Successful password changes."},
	{ID: staffauth.MetricPasswordChangeInvalidCurrent, Name: "staffauth_password_change_invalid_current_total", Help: "Password change attempts with invalid current password."},
	{ID: staffauth.MetricPasswordChangeReuseRejected, Name: "staffauth_password_change_reuse_rejected_total", Help: "Password change attempts rejected for reuse."},
	{ID: staffauth.MetricPasswordResetRequest, Name: "staffauth_password_reset_request_total", Help: "Password reset requests."},
	{ID: staffauth.MetricPasswordResetRateLimited, Name: "staffauth_password_reset_rate_limited_total", Help: "Rate-limited password reset requests."},
	{ID: staffauth.MetricPasswordResetConfirmSuccess, Name: "staffauth_password_reset_confirm_success_total", Help: "Successful password reset confirmations."},
	{ID: staffauth.MetricPasswordResetConfirmFailure, Name: "staffauth_password_reset_confirm_failure_total", Help: "Failed password reset confirmations."},
	{ID: staffauth.MetricPasswordResetAttemptsExceeded, Name: "staffauth_password_reset_attempts_exceeded_total", Help: "Password reset challenges invalidated due to attempt cap."},
	{ID: staffauth.MetricEmailVerificationRequest, Name: "staffauth_email_verification_request_total", Help: "Email verification requests."},
	{ID: staffauth.MetricEmailVerificationSuccess, Name: "staffauth_email_verification_success_total", Help: "Successful email verifications."},
	{ID: staffauth.MetricEmailVerificationFailure, Name: "staffauth_email_verification_failure_total", Help: "Failed email verifications."},
	{ID: staffauth.MetricEmailVerificationAttemptsExceeded, Name: "staffauth_email_verification_attempts_exceeded_total", Help: "Email verification challenges invalidated due to attempt cap."},
	{ID: staffauth.MetricAuthenticateSuccess, Name: "staffauth_authenticate_success_total", Help: "Successful access token authentications."},
	{ID: staffauth.MetricAuthenticateFailure, Name: "staffauth_authenticate_failure_total", Help: "Failed access token authentications."},
	{ID: staffauth.MetricPermissionDenied, Name: "staffauth_permission_denied_total", Help: "Authorization checks that denied access."},
}

// HistogramDefs is an exported constant or variable used by the access control engine.
var HistogramDefs = []HistogramDef{
	{ID: staffauth.MetricAuthenticateLatency, Name: "staffauth_authenticate_latency_seconds", Help: "Authenticate latency histogram."},
}

// HistogramBounds is an exported constant or variable used by the access control engine.
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

// HistogramBoundSuffix is an exported constant or variable used by the access control engine.
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
