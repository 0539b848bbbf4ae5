package flows

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/owlenglish/examclient/permission"
	"github.com/owlenglish/examclient/session"
)

// ErrIncompleteGrant is returned when the backend reports success without a
// token or user.
var ErrIncompleteGrant = errors.New("login response missing token or user")

// LoginMetrics carries metric IDs needed by the login flow.
type LoginMetrics struct {
	LoginSuccess    int
	LoginFailure    int
	LoginRoleDenied int
}

// LoginEvents carries audit event names used by the login flow.
type LoginEvents struct {
	LoginSuccess    string
	LoginFailure    string
	LoginRoleDenied string
}

// LoginErrors carries host-level sentinel errors used by the login flow.
type LoginErrors struct {
	ClientNotReady   error
	RoleNotPermitted error
}

// LoginDeps captures login dependencies.
//
// Authenticate performs the credential exchange and returns the issued token
// with the user profile. It is also used for registration and OTP sign-in,
// which answer with the same token shape.
type LoginDeps struct {
	Authenticate func(ctx context.Context) (token string, user *session.User, err error)
	SetSession   func(ctx context.Context, token string, user *session.User) error
	ClearSession func(ctx context.Context) error
	ResolveRole  RoleResolver

	MetricInc func(int)
	EmitAudit AuditFunc
	Warn      func(string, ...any)

	Metrics LoginMetrics
	Events  LoginEvents
	Errors  LoginErrors
}

// RunLogin exchanges credentials for a session.
//
// A backend failure is returned as-is and the flow writes nothing. When the
// resolved role does not satisfy req the session is cleared, so no token
// remains, and Errors.RoleNotPermitted is returned. Otherwise token and user
// are stored in one write.
func RunLogin(ctx context.Context, identifier string, req permission.Requirement, deps LoginDeps) (*session.User, error) {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.Warn == nil {
		deps.Warn = noopWarn
	}
	if deps.Authenticate == nil ||
		deps.SetSession == nil ||
		deps.ClearSession == nil ||
		deps.ResolveRole == nil {
		return nil, deps.Errors.ClientNotReady
	}

	token, user, err := deps.Authenticate(ctx)
	if err != nil {
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, "", err, func() map[string]string {
			return map[string]string{"identifier": identifier}
		})
		return nil, err
	}
	if token == "" || user == nil {
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, "", ErrIncompleteGrant, func() map[string]string {
			return map[string]string{"identifier": identifier}
		})
		return nil, ErrIncompleteGrant
	}

	userID := strconv.FormatInt(user.ID, 10)
	role := deps.ResolveRole(user)
	if !permission.Authorize(role, req) {
		if err := deps.ClearSession(ctx); err != nil {
			deps.Warn("examclient: clear session after role denial failed", "error", err)
			return nil, fmt.Errorf("%w: %v", deps.Errors.RoleNotPermitted, err)
		}
		deps.MetricInc(deps.Metrics.LoginRoleDenied)
		deps.EmitAudit(ctx, deps.Events.LoginRoleDenied, false, userID, deps.Errors.RoleNotPermitted, func() map[string]string {
			return map[string]string{"identifier": identifier, "role": role.String()}
		})
		return nil, deps.Errors.RoleNotPermitted
	}

	if err := deps.SetSession(ctx, token, user); err != nil {
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, userID, err, nil)
		return nil, err
	}

	deps.MetricInc(deps.Metrics.LoginSuccess)
	deps.EmitAudit(ctx, deps.Events.LoginSuccess, true, userID, nil, func() map[string]string {
		return map[string]string{"identifier": identifier, "role": role.String()}
	})
	return user.Clone(), nil
}
