package flows

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/owlenglish/examclient/session"
)

func oauthDeps(store *session.Store, metrics counter, audit *auditLog) OAuthDeps {
	return OAuthDeps{
		SetSession:  store.SetSession,
		ResolveRole: resolver(),
		Views: OAuthViews{
			Login:          "/login",
			Home:           "/",
			AdminDashboard: "/admin/dashboard",
			SetPassword:    "/set-password",
		},
		MetricInc: metrics.inc,
		EmitAudit: audit.emit,
		Metrics:   OAuthMetrics{OAuthSuccess: 1, OAuthFailure: 2},
		Events:    OAuthEvents{OAuthSuccess: "oauth_success", OAuthFailure: "oauth_failure"},
		Errors:    OAuthErrors{ClientNotReady: errNotReady, OAuthRejected: errRejected, InvalidCallback: errBadCallback},
	}
}

func TestRunOAuthCallbackErrorCodes(t *testing.T) {
	cases := map[string]string{
		"oauth_failed": MessageOAuthFailed,
		"no_email":     MessageOAuthNoEmail,
		"oauth_error":  MessageOAuthError,
		"whatever":     MessageOAuthUnknown,
	}
	for code, want := range cases {
		t.Run(code, func(t *testing.T) {
			ctx := context.Background()
			backend := session.NewMemoryBackend()
			store := session.NewStore(backend)
			metrics := counter{}

			res, err := RunOAuthCallback(ctx, CallbackParams{Error: code, Token: "ignored"}, oauthDeps(store, metrics, &auditLog{}))
			require.ErrorIs(t, err, errRejected)
			assert.Equal(t, "/login", res.Redirect)
			assert.Equal(t, want, res.Message)
			assert.Equal(t, 0, backend.Applied())
			assert.True(t, store.State().Empty())
			assert.Equal(t, 1, metrics[2])
		})
	}
}

func TestRunOAuthCallbackNewLearnerGoesToSetPassword(t *testing.T) {
	ctx := context.Background()
	store := session.NewStore(nil)

	res, err := RunOAuthCallback(ctx, CallbackParams{
		Token:     "tok",
		UserID:    "42",
		UserName:  "Lan",
		UserEmail: "lan@example.com",
		RoleID:    "2",
		IsNewUser: "true",
	}, oauthDeps(store, counter{}, &auditLog{}))
	require.NoError(t, err)
	assert.Equal(t, "/set-password", res.Redirect)
	assert.True(t, res.NewUser)

	st := store.State()
	assert.Equal(t, "tok", st.Token)
	require.NotNil(t, st.User)
	assert.Equal(t, int64(42), st.User.ID)
	assert.Equal(t, "lan@example.com", st.User.Email)
	require.NotNil(t, st.User.RoleID)
	assert.Equal(t, int64(2), *st.User.RoleID)
}

func TestRunOAuthCallbackRedirects(t *testing.T) {
	cases := []struct {
		name string
		p    CallbackParams
		want string
	}{
		{"admin by role id", CallbackParams{Token: "t", UserID: "1", RoleID: "1"}, "/admin/dashboard"},
		{"new admin skips set-password", CallbackParams{Token: "t", UserID: "1", RoleID: "1", IsNewUser: "true"}, "/admin/dashboard"},
		{"super admin by name", CallbackParams{Token: "t", UserID: "3", Role: "super_admin"}, "/admin/dashboard"},
		{"returning learner", CallbackParams{Token: "t", UserID: "7", RoleID: "2"}, "/"},
		{"no role fields", CallbackParams{Token: "t", UserID: "7"}, "/"},
		{"new user without role", CallbackParams{Token: "t", UserID: "7", IsNewUser: "true"}, "/set-password"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := session.NewStore(nil)
			res, err := RunOAuthCallback(context.Background(), tc.p, oauthDeps(store, counter{}, &auditLog{}))
			require.NoError(t, err)
			assert.Equal(t, tc.want, res.Redirect)
			assert.Equal(t, "t", store.State().Token)
		})
	}
}

func TestRunOAuthCallbackWithoutToken(t *testing.T) {
	store := session.NewStore(nil)
	res, err := RunOAuthCallback(context.Background(), CallbackParams{UserID: "1"}, oauthDeps(store, counter{}, &auditLog{}))
	require.ErrorIs(t, err, errBadCallback)
	assert.Equal(t, "/login", res.Redirect)
	assert.Equal(t, MessageOAuthNoToken, res.Message)
	assert.True(t, store.State().Empty())
}

func TestRunOAuthCallbackMalformedIDs(t *testing.T) {
	for _, p := range []CallbackParams{
		{Token: "t", UserID: "abc"},
		{Token: "t", UserID: "1", RoleID: "admin"},
	} {
		store := session.NewStore(nil)
		res, err := RunOAuthCallback(context.Background(), p, oauthDeps(store, counter{}, &auditLog{}))
		require.ErrorIs(t, err, errBadCallback)
		assert.Equal(t, "/login", res.Redirect)
		assert.True(t, store.State().Empty())
	}
}
