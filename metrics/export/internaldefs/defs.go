// Package internaldefs holds the shared counter definition table consumed by
// the Prometheus and OpenTelemetry exporters, so both expose identical names
// and help strings.
package internaldefs

import (
	authcore "github.com/keelworks/authcore"
)

// CounterDef binds one engine counter to its exported name and help text.
type CounterDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported engine counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: authcore.MetricLoginSuccess, Name: "authcore_login_success_total", Help: "Successful credential authentications."},
	{ID: authcore.MetricLoginFailure, Name: "authcore_login_failure_total", Help: "Rejected credential authentications."},
	{ID: authcore.MetricLoginLocked, Name: "authcore_login_locked_total", Help: "Logins rejected by an active lockout."},
	{ID: authcore.MetricAccountLocked, Name: "authcore_account_locked_total", Help: "Lockout transitions."},
	{ID: authcore.MetricRegisterSuccess, Name: "authcore_register_success_total", Help: "Created accounts."},
	{ID: authcore.MetricRegisterDuplicate, Name: "authcore_register_duplicate_total", Help: "Registrations rejected as duplicates."},
	{ID: authcore.MetricRefreshSuccess, Name: "authcore_refresh_success_total", Help: "Successful refresh token rotations."},
	{ID: authcore.MetricRefreshFailure, Name: "authcore_refresh_failure_total", Help: "Rejected refresh attempts."},
	{ID: authcore.MetricReplayDetected, Name: "authcore_replay_detected_total", Help: "Refresh attempts presenting an already-consumed token."},
	{ID: authcore.MetricLogout, Name: "authcore_logout_total", Help: "Single-session logouts."},
	{ID: authcore.MetricLogoutAll, Name: "authcore_logout_all_total", Help: "Logout-all operations."},
	{ID: authcore.MetricAuthSuccess, Name: "authcore_auth_success_total", Help: "Accepted request authentications."},
	{ID: authcore.MetricAuthRejected, Name: "authcore_auth_rejected_total", Help: "Rejected request authentications."},
	{ID: authcore.MetricRevocationSwept, Name: "authcore_revocation_swept_total", Help: "Revocation entries reclaimed by the sweep."},
	{ID: authcore.MetricRefreshPurged, Name: "authcore_refresh_purged_total", Help: "Expired refresh rows reclaimed by the sweep."},
	{ID: authcore.MetricBootstrapAdminCreated, Name: "authcore_bootstrap_admin_created_total", Help: "Bootstrap admin provisions."},
}

// AuditDroppedName is the exported counter for audit events shed under
// dispatcher backpressure; it lives outside the engine counter set.
const AuditDroppedName = "authcore_audit_dropped_total"

// AuditDroppedHelp documents AuditDroppedName.
const AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
