package flows

import (
	"context"
	"strconv"
	"time"

	"github.com/owlenglish/examclient/jwt"
	"github.com/owlenglish/examclient/session"
)

// RefreshMetrics carries metric IDs needed by the refresh flow.
type RefreshMetrics struct {
	RefreshSuccess int
	RefreshFailure int
}

// RefreshEvents carries audit event names used by the refresh flow.
type RefreshEvents struct {
	RefreshSuccess string
	RefreshFailure string
}

// RefreshErrors carries host-level sentinel errors used by the refresh flow.
type RefreshErrors struct {
	ClientNotReady error
	NotSignedIn    error
}

// RefreshDeps captures token refresh dependencies.
type RefreshDeps struct {
	State      func() session.State
	Exchange   func(ctx context.Context) (token string, user *session.User, err error)
	SetSession func(ctx context.Context, token string, user *session.User) error
	Inspect    func(token string) (jwt.Claims, error)
	Now        func() time.Time
	Window     time.Duration

	MetricInc func(int)
	EmitAudit AuditFunc
	Warn      func(string, ...any)

	Metrics RefreshMetrics
	Events  RefreshEvents
	Errors  RefreshErrors
}

// RunRefresh exchanges the current token for a new one.
//
// The reply may carry a partial profile; fields it omits keep their current
// values.
func RunRefresh(ctx context.Context, deps RefreshDeps) (session.State, error) {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.State == nil || deps.Exchange == nil || deps.SetSession == nil {
		return session.State{}, deps.Errors.ClientNotReady
	}

	current := deps.State()
	if !current.Authenticated() {
		return current, deps.Errors.NotSignedIn
	}

	token, fresh, err := deps.Exchange(ctx)
	if err == nil && token == "" {
		err = ErrIncompleteGrant
	}
	if err != nil {
		deps.MetricInc(deps.Metrics.RefreshFailure)
		deps.EmitAudit(ctx, deps.Events.RefreshFailure, false, userID(current.User), err, nil)
		return deps.State(), err
	}

	merged := MergeUser(current.User, fresh)
	if err := deps.SetSession(ctx, token, merged); err != nil {
		deps.MetricInc(deps.Metrics.RefreshFailure)
		return deps.State(), err
	}

	deps.MetricInc(deps.Metrics.RefreshSuccess)
	deps.EmitAudit(ctx, deps.Events.RefreshSuccess, true, userID(merged), nil, nil)
	return deps.State(), nil
}

// RunRefreshIfExpiring refreshes only when the current token expires within
// the configured window. It reports whether a refresh happened. Tokens that
// cannot be decoded or carry no expiry are left alone.
func RunRefreshIfExpiring(ctx context.Context, deps RefreshDeps) (bool, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Warn == nil {
		deps.Warn = noopWarn
	}
	if deps.State == nil || deps.Inspect == nil {
		return false, deps.Errors.ClientNotReady
	}

	st := deps.State()
	if !st.Authenticated() {
		return false, deps.Errors.NotSignedIn
	}

	claims, err := deps.Inspect(st.Token)
	if err != nil {
		deps.Warn("examclient: token not inspectable, skipping refresh", "error", err)
		return false, nil
	}
	if !claims.ExpiresWithin(deps.Now(), deps.Window) {
		return false, nil
	}

	if _, err := RunRefresh(ctx, deps); err != nil {
		return false, err
	}
	return true, nil
}

// MergeUser overlays the non-zero fields of fresh onto current.
func MergeUser(current, fresh *session.User) *session.User {
	if fresh == nil {
		return current.Clone()
	}
	if current == nil {
		return fresh.Clone()
	}

	out := current.Clone()
	if fresh.ID != 0 {
		out.ID = fresh.ID
	}
	if fresh.Name != "" {
		out.Name = fresh.Name
	}
	if fresh.Email != "" {
		out.Email = fresh.Email
	}
	if fresh.Role != "" {
		out.Role = fresh.Role
	}
	if fresh.RoleID != nil {
		id := *fresh.RoleID
		out.RoleID = &id
	}
	if fresh.IsActive {
		out.IsActive = true
	}
	return out
}

func userID(u *session.User) string {
	if u == nil {
		return ""
	}
	return strconv.FormatInt(u.ID, 10)
}
