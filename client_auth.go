package examclient

import (
	"context"
	"net/url"
	"strconv"

	internalflows "github.com/owlenglish/examclient/internal/flows"
	"github.com/owlenglish/examclient/jwt"
	"github.com/owlenglish/examclient/permission"
	"github.com/owlenglish/examclient/session"
)

// Login exchanges email and password for a session.
//
// On success token and user are stored together. When a requirement is given
// and the user's role does not satisfy it, the session is cleared and
// [ErrRoleNotPermitted] is returned. Backend failures come back as
// *api.Error with the backend's message.
func (c *Client) Login(ctx context.Context, req LoginRequest, opts ...LoginOption) (*session.User, error) {
	if !c.ready() {
		return nil, ErrClientNotReady
	}
	o := loginOptions{requirement: permission.Authenticated()}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	return internalflows.RunLogin(ctx, req.Email, o.requirement, c.loginFlowDeps(func(ctx context.Context) (string, *session.User, error) {
		var out tokenResponse
		err := c.api.Post(ctx, "/auth/login/json", req, &out)
		return out.AccessToken, out.User, err
	}))
}

// Register creates a learner account and signs in with it.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*session.User, error) {
	if !c.ready() {
		return nil, ErrClientNotReady
	}
	return internalflows.RunLogin(ctx, req.Email, permission.Authenticated(), c.loginFlowDeps(func(ctx context.Context) (string, *session.User, error) {
		var out tokenResponse
		err := c.api.Post(ctx, "/auth/register", req, &out)
		return out.AccessToken, out.User, err
	}))
}

// RequestOTP asks the backend to send a one-time code.
func (c *Client) RequestOTP(ctx context.Context, req OTPRequest) (OTPResult, error) {
	if !c.ready() {
		return OTPResult{}, ErrClientNotReady
	}
	if req.Channel == "" {
		req.Channel = OTPChannelEmail
	}
	var out OTPResult
	if err := c.api.Post(ctx, "/auth/otp/request", req, &out); err != nil {
		return OTPResult{}, err
	}
	return out, nil
}

// VerifyOTP submits a one-time code. When the backend answers with a session,
// as it does for registration, the client signs in with it.
func (c *Client) VerifyOTP(ctx context.Context, req OTPVerification) (OTPResult, error) {
	if !c.ready() {
		return OTPResult{}, ErrClientNotReady
	}
	var out struct {
		Success     bool          `json:"success"`
		Message     string        `json:"message"`
		AccessToken string        `json:"access_token"`
		User        *session.User `json:"user"`
	}
	if err := c.api.Post(ctx, "/auth/otp/verify", req, &out); err != nil {
		return OTPResult{}, err
	}

	result := OTPResult{Success: out.Success, Message: out.Message}
	if out.AccessToken == "" || out.User == nil {
		return result, nil
	}
	user, err := internalflows.RunLogin(ctx, req.Email, permission.Authenticated(), c.loginFlowDeps(func(context.Context) (string, *session.User, error) {
		return out.AccessToken, out.User, nil
	}))
	if err != nil {
		return result, err
	}
	result.SignedIn = true
	result.User = user
	return result, nil
}

// OAuthStartURL is the backend address that starts Google sign-in. Open it in
// a browser; the backend redirects to the frontend's /oauth/callback.
func (c *Client) OAuthStartURL() string {
	if !c.ready() {
		return ""
	}
	return c.api.URL("/auth/oauth/google/redirect")
}

// HandleOAuthCallback processes the query of the OAuth callback redirect.
//
// An error parameter leaves the session untouched and points back to the
// login view with a readable message. A token creates a session, then the
// result points new learners to set-password, administrators to the
// dashboard and everyone else home.
func (c *Client) HandleOAuthCallback(ctx context.Context, query url.Values) (CallbackResult, error) {
	if !c.ready() {
		return CallbackResult{Redirect: ViewLogin}, ErrClientNotReady
	}
	res, err := internalflows.RunOAuthCallback(ctx, internalflows.CallbackParams{
		Error:     query.Get("error"),
		Token:     query.Get("token"),
		UserID:    query.Get("user_id"),
		UserName:  query.Get("user_name"),
		UserEmail: query.Get("user_email"),
		RoleID:    query.Get("role_id"),
		Role:      query.Get("role"),
		IsNewUser: query.Get("is_new_user"),
	}, c.oauthFlowDeps())
	return CallbackResult{
		Redirect: res.Redirect,
		Message:  res.Message,
		NewUser:  res.NewUser,
		User:     res.User,
	}, err
}

// SetPassword sets the first password of an OAuth account.
//
// Length and confirmation are checked before any request. The session is not
// modified.
func (c *Client) SetPassword(ctx context.Context, password, confirm string) (SetPasswordResult, error) {
	if !c.ready() {
		return SetPasswordResult{}, ErrClientNotReady
	}
	res, err := internalflows.RunSetPassword(ctx, password, confirm, c.setPasswordFlowDeps())
	return SetPasswordResult{
		Message:       res.Message,
		Redirect:      res.Redirect,
		RedirectAfter: res.RedirectAfter,
	}, err
}

// Logout tells the backend when there is a token, then clears the session and
// every persisted copy. A failed backend call is logged and ignored.
func (c *Client) Logout(ctx context.Context) error {
	if !c.ready() {
		return ErrClientNotReady
	}
	return internalflows.RunLogout(ctx, c.logoutFlowDeps())
}

// Me fetches the signed-in user's profile. It does not store it.
func (c *Client) Me(ctx context.Context) (*session.User, error) {
	if !c.ready() {
		return nil, ErrClientNotReady
	}
	var user session.User
	if err := c.api.Get(ctx, "/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Restore resumes the persisted session and refreshes the profile from the
// backend. When the profile cannot be fetched the user is cleared and the
// token kept; an expired token is cleared by the 401 handling.
func (c *Client) Restore(ctx context.Context) (session.State, error) {
	if !c.ready() {
		return session.State{}, ErrClientNotReady
	}
	return internalflows.RunRestore(ctx, internalflows.RestoreDeps{
		Load:    c.store.Load,
		State:   c.store.State,
		FetchMe: c.Me,
		SetUser: c.store.SetUser,
		Warn:    c.warn,
		Errors: internalflows.RestoreErrors{
			ClientNotReady: ErrClientNotReady,
		},
	})
}

// RefreshToken exchanges the current token for a new one. Profile fields the
// backend omits keep their current values.
func (c *Client) RefreshToken(ctx context.Context) (session.State, error) {
	if !c.ready() {
		return session.State{}, ErrClientNotReady
	}
	return internalflows.RunRefresh(ctx, c.refreshFlowDeps())
}

// RefreshIfExpiring refreshes when the token expires within Config.Refresh.Window
// and reports whether it did. Tokens without a readable expiry are left alone.
func (c *Client) RefreshIfExpiring(ctx context.Context) (bool, error) {
	if !c.ready() {
		return false, ErrClientNotReady
	}
	return internalflows.RunRefreshIfExpiring(ctx, c.refreshFlowDeps())
}

// ChangePassword replaces the password of the signed-in user.
func (c *Client) ChangePassword(ctx context.Context, oldPassword, newPassword string) (string, error) {
	if !c.ready() {
		return "", ErrClientNotReady
	}
	userID := c.currentUserID()
	var out messageResponse
	err := c.api.Post(ctx, "/auth/password/change", map[string]string{
		"old_password": oldPassword,
		"new_password": newPassword,
	}, &out)
	c.emitAudit(ctx, auditEventPasswordChange, err == nil, userID, err, nil)
	if err != nil {
		return "", err
	}
	return out.Message, nil
}

// LoginHistory returns a page of the signed-in user's login activity. The
// backend caps limit at 50.
func (c *Client) LoginHistory(ctx context.Context, skip, limit int) (LoginHistory, error) {
	if !c.ready() {
		return LoginHistory{}, ErrClientNotReady
	}
	query := url.Values{}
	if skip > 0 {
		query.Set("skip", strconv.Itoa(skip))
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var out LoginHistory
	if err := c.api.Get(ctx, "/auth/login-history", query, &out); err != nil {
		return LoginHistory{}, err
	}
	return out, nil
}

func (c *Client) loginFlowDeps(authenticate func(ctx context.Context) (string, *session.User, error)) internalflows.LoginDeps {
	return internalflows.LoginDeps{
		Authenticate: authenticate,
		SetSession:   c.store.SetSession,
		ClearSession: c.store.Logout,
		ResolveRole:  c.resolveRole,
		MetricInc: func(id int) {
			c.metricInc(MetricID(id))
		},
		EmitAudit: c.emitAudit,
		Warn:      c.warn,
		Metrics: internalflows.LoginMetrics{
			LoginSuccess:    int(MetricLoginSuccess),
			LoginFailure:    int(MetricLoginFailure),
			LoginRoleDenied: int(MetricLoginRoleDenied),
		},
		Events: internalflows.LoginEvents{
			LoginSuccess:    auditEventLoginSuccess,
			LoginFailure:    auditEventLoginFailure,
			LoginRoleDenied: auditEventLoginRoleDenied,
		},
		Errors: internalflows.LoginErrors{
			ClientNotReady:   ErrClientNotReady,
			RoleNotPermitted: ErrRoleNotPermitted,
		},
	}
}

func (c *Client) oauthFlowDeps() internalflows.OAuthDeps {
	return internalflows.OAuthDeps{
		SetSession:  c.store.SetSession,
		ResolveRole: c.resolveRole,
		Views: internalflows.OAuthViews{
			Login:          ViewLogin,
			Home:           ViewHome,
			AdminDashboard: ViewAdminDashboard,
			SetPassword:    ViewSetPassword,
		},
		MetricInc: func(id int) {
			c.metricInc(MetricID(id))
		},
		EmitAudit: c.emitAudit,
		Metrics: internalflows.OAuthMetrics{
			OAuthSuccess: int(MetricOAuthSuccess),
			OAuthFailure: int(MetricOAuthFailure),
		},
		Events: internalflows.OAuthEvents{
			OAuthSuccess: auditEventOAuthSuccess,
			OAuthFailure: auditEventOAuthFailure,
		},
		Errors: internalflows.OAuthErrors{
			ClientNotReady:  ErrClientNotReady,
			OAuthRejected:   ErrOAuthRejected,
			InvalidCallback: ErrInvalidCallback,
		},
	}
}

func (c *Client) setPasswordFlowDeps() internalflows.SetPasswordDeps {
	return internalflows.SetPasswordDeps{
		MinLength:     c.config.SetPassword.MinLength,
		Redirect:      ViewHome,
		RedirectAfter: c.config.SetPassword.RedirectAfter,
		Submit: func(ctx context.Context, password, confirm string) (string, error) {
			var out messageResponse
			err := c.api.Post(ctx, "/auth/set-password", map[string]string{
				"password":         password,
				"confirm_password": confirm,
			}, &out)
			return out.Message, err
		},
		CurrentUserID: c.currentUserID,
		MetricInc: func(id int) {
			c.metricInc(MetricID(id))
		},
		EmitAudit: c.emitAudit,
		Metrics: internalflows.SetPasswordMetrics{
			SetPasswordSuccess:  int(MetricSetPasswordSuccess),
			SetPasswordRejected: int(MetricSetPasswordRejected),
		},
		Events: internalflows.SetPasswordEvents{
			SetPasswordSuccess: auditEventSetPasswordSuccess,
			SetPasswordFailure: auditEventSetPasswordFailure,
		},
		Errors: internalflows.SetPasswordErrors{
			ClientNotReady:   ErrClientNotReady,
			PasswordMismatch: ErrPasswordMismatch,
			PasswordTooShort: ErrPasswordTooShort,
		},
	}
}

func (c *Client) logoutFlowDeps() internalflows.LogoutDeps {
	return internalflows.LogoutDeps{
		HasToken: func() bool {
			return c.store.State().Authenticated()
		},
		CurrentUserID: c.currentUserID,
		Revoke: func(ctx context.Context) error {
			return c.api.Post(ctx, "/auth/logout", nil, nil)
		},
		ClearSession: c.store.Logout,
		MetricInc: func(id int) {
			c.metricInc(MetricID(id))
		},
		EmitAudit: c.emitAudit,
		Warn:      c.warn,
		Metrics: internalflows.LogoutMetrics{
			Logout: int(MetricLogout),
		},
		Events: internalflows.LogoutEvents{
			Logout: auditEventLogout,
		},
		Errors: internalflows.LogoutErrors{
			ClientNotReady: ErrClientNotReady,
		},
	}
}

func (c *Client) refreshFlowDeps() internalflows.RefreshDeps {
	return internalflows.RefreshDeps{
		State: c.store.State,
		Exchange: func(ctx context.Context) (string, *session.User, error) {
			var out tokenResponse
			err := c.api.Post(ctx, "/auth/refresh-token", nil, &out)
			return out.AccessToken, out.User, err
		},
		SetSession: c.store.SetSession,
		Inspect:    jwt.Inspect,
		Now:        c.now,
		Window:     c.config.Refresh.Window,
		MetricInc: func(id int) {
			c.metricInc(MetricID(id))
		},
		EmitAudit: c.emitAudit,
		Warn:      c.warn,
		Metrics: internalflows.RefreshMetrics{
			RefreshSuccess: int(MetricRefreshSuccess),
			RefreshFailure: int(MetricRefreshFailure),
		},
		Events: internalflows.RefreshEvents{
			RefreshSuccess: auditEventRefreshSuccess,
			RefreshFailure: auditEventRefreshFailure,
		},
		Errors: internalflows.RefreshErrors{
			ClientNotReady: ErrClientNotReady,
			NotSignedIn:    ErrNotSignedIn,
		},
	}
}
