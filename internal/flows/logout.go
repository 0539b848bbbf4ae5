package flows

import "context"

// LogoutMetrics carries metric IDs needed by the logout flow.
type LogoutMetrics struct {
	Logout int
}

// LogoutEvents carries audit event names used by the logout flow.
type LogoutEvents struct {
	Logout string
}

// LogoutErrors carries host-level sentinel errors used by the logout flow.
type LogoutErrors struct {
	ClientNotReady error
}

// LogoutDeps captures logout dependencies.
type LogoutDeps struct {
	// HasToken reports whether there is a server-side session to revoke.
	HasToken      func() bool
	CurrentUserID func() string
	// Revoke notifies the backend. Its failure never blocks the local logout.
	Revoke       func(ctx context.Context) error
	ClearSession func(ctx context.Context) error

	MetricInc func(int)
	EmitAudit AuditFunc
	Warn      func(string, ...any)

	Metrics LogoutMetrics
	Events  LogoutEvents
	Errors  LogoutErrors
}

// RunLogout revokes the backend session on a best-effort basis, then clears
// the local session and every persisted copy. It does not navigate.
func RunLogout(ctx context.Context, deps LogoutDeps) error {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.Warn == nil {
		deps.Warn = noopWarn
	}
	if deps.HasToken == nil {
		deps.HasToken = func() bool { return false }
	}
	if deps.CurrentUserID == nil {
		deps.CurrentUserID = func() string { return "" }
	}
	if deps.ClearSession == nil {
		return deps.Errors.ClientNotReady
	}

	userID := deps.CurrentUserID()
	if deps.Revoke != nil && deps.HasToken() {
		if err := deps.Revoke(ctx); err != nil {
			deps.Warn("examclient: backend logout failed", "error", err)
		}
	}

	if err := deps.ClearSession(ctx); err != nil {
		deps.EmitAudit(ctx, deps.Events.Logout, false, userID, err, nil)
		return err
	}
	deps.MetricInc(deps.Metrics.Logout)
	deps.EmitAudit(ctx, deps.Events.Logout, true, userID, nil, nil)
	return nil
}
