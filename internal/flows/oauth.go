package flows

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/owlenglish/examclient/session"
)

// CallbackParams are the query parameters of an OAuth callback.
type CallbackParams struct {
	Error     string
	Token     string
	UserID    string
	UserName  string
	UserEmail string
	RoleID    string
	Role      string
	IsNewUser string
}

// CallbackResult tells the caller where to go after the callback.
type CallbackResult struct {
	Redirect string
	Message  string
	NewUser  bool
	User     *session.User
}

// OAuthViews are the redirect targets of the callback flow.
type OAuthViews struct {
	Login          string
	Home           string
	AdminDashboard string
	SetPassword    string
}

// OAuthMetrics carries metric IDs needed by the callback flow.
type OAuthMetrics struct {
	OAuthSuccess int
	OAuthFailure int
}

// OAuthEvents carries audit event names used by the callback flow.
type OAuthEvents struct {
	OAuthSuccess string
	OAuthFailure string
}

// OAuthErrors carries host-level sentinel errors used by the callback flow.
type OAuthErrors struct {
	ClientNotReady  error
	OAuthRejected   error
	InvalidCallback error
}

// OAuthDeps captures callback dependencies.
type OAuthDeps struct {
	SetSession  func(ctx context.Context, token string, user *session.User) error
	ResolveRole RoleResolver
	Views       OAuthViews

	MetricInc func(int)
	EmitAudit AuditFunc

	Metrics OAuthMetrics
	Events  OAuthEvents
	Errors  OAuthErrors
}

// Messages shown for provider error codes.
const (
	MessageOAuthFailed   = "Google authentication failed"
	MessageOAuthNoEmail  = "Could not read an email address from the Google account"
	MessageOAuthError    = "An error occurred while signing in with Google"
	MessageOAuthUnknown  = "Login failed"
	MessageOAuthNoToken  = "No login information received"
	MessageOAuthBadUser  = "Invalid login information received"
	MessageOAuthSignedIn = "Signed in successfully"
)

// OAuthErrorMessage maps a provider error code to a user-facing message.
func OAuthErrorMessage(code string) string {
	switch code {
	case "oauth_failed":
		return MessageOAuthFailed
	case "no_email":
		return MessageOAuthNoEmail
	case "oauth_error":
		return MessageOAuthError
	default:
		return MessageOAuthUnknown
	}
}

// RunOAuthCallback completes a provider sign-in from callback parameters.
//
// An error code redirects to login without touching the session and returns
// Errors.OAuthRejected. A token stores the user built from the discrete
// parameters, then redirects: new non-administrative accounts to the
// set-password view, administrative roles to the admin dashboard, everyone
// else home. With neither, Errors.InvalidCallback is returned.
func RunOAuthCallback(ctx context.Context, p CallbackParams, deps OAuthDeps) (CallbackResult, error) {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.SetSession == nil || deps.ResolveRole == nil {
		return CallbackResult{}, deps.Errors.ClientNotReady
	}

	fail := func(message string, err error, metadata func() map[string]string) (CallbackResult, error) {
		deps.MetricInc(deps.Metrics.OAuthFailure)
		deps.EmitAudit(ctx, deps.Events.OAuthFailure, false, "", err, metadata)
		return CallbackResult{Redirect: deps.Views.Login, Message: message}, err
	}

	if code := strings.TrimSpace(p.Error); code != "" {
		return fail(OAuthErrorMessage(code), fmt.Errorf("%w: %s", deps.Errors.OAuthRejected, code), func() map[string]string {
			return map[string]string{"code": code}
		})
	}

	token := strings.TrimSpace(p.Token)
	if token == "" {
		return fail(MessageOAuthNoToken, deps.Errors.InvalidCallback, nil)
	}

	user, err := callbackUser(p)
	if err != nil {
		return fail(MessageOAuthBadUser, fmt.Errorf("%w: %v", deps.Errors.InvalidCallback, err), nil)
	}

	if err := deps.SetSession(ctx, token, user); err != nil {
		return fail(MessageOAuthUnknown, err, nil)
	}

	role := deps.ResolveRole(user)
	newUser := p.IsNewUser == "true"
	redirect := deps.Views.Home
	switch {
	case newUser && !role.Administrative():
		redirect = deps.Views.SetPassword
	case role.Administrative():
		redirect = deps.Views.AdminDashboard
	}

	deps.MetricInc(deps.Metrics.OAuthSuccess)
	deps.EmitAudit(ctx, deps.Events.OAuthSuccess, true, strconv.FormatInt(user.ID, 10), nil, func() map[string]string {
		return map[string]string{"role": role.String(), "new_user": strconv.FormatBool(newUser)}
	})
	return CallbackResult{
		Redirect: redirect,
		Message:  MessageOAuthSignedIn,
		NewUser:  newUser,
		User:     user.Clone(),
	}, nil
}

func callbackUser(p CallbackParams) (*session.User, error) {
	user := &session.User{
		Name:     p.UserName,
		Email:    p.UserEmail,
		Role:     p.Role,
		IsActive: true,
	}
	if raw := strings.TrimSpace(p.UserID); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("user_id %q: %w", raw, err)
		}
		user.ID = id
	}
	if raw := strings.TrimSpace(p.RoleID); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("role_id %q: %w", raw, err)
		}
		user.RoleID = &id
	}
	return user, nil
}
