package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/owlenglish/examclient"
	"github.com/owlenglish/examclient/internal/fakeapi"
)

type cliEnv struct {
	fake    *fakeapi.Server
	server  *httptest.Server
	profile string
	environ []string
}

func newCLIEnv(t *testing.T, session string) *cliEnv {
	t.Helper()
	fake := fakeapi.New(fakeapi.Options{})
	srv := httptest.NewServer(fake.Handler())
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	if session == "" {
		session = "  store: sqlite\n  path: " + filepath.Join(dir, "session.db") + "\n"
	}
	path := filepath.Join(dir, "config.yaml")
	body := "api:\n  url: " + srv.URL + "\nsession:\n" + session
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return &cliEnv{
		fake:    fake,
		server:  srv,
		profile: path,
		environ: []string{"HOME=" + dir},
	}
}

func (e *cliEnv) run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	full := append([]string{"-config", e.profile}, args...)
	err := run(context.Background(), full, strings.NewReader(stdin), &stdout, &stderr, e.environ)
	return stdout.String(), stderr.String(), err
}

func TestLoginPersistsAcrossRuns(t *testing.T) {
	env := newCLIEnv(t, "")

	out, _, err := env.run(t, "admin123\n", "login", "-email", "admin@example.com", "-admin")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as Admin <admin@example.com> (admin)")

	out, _, err = env.run(t, "", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Admin <admin@example.com>")
	assert.Contains(t, out, "role: admin")
	assert.Contains(t, out, "token expires in")

	out, _, err = env.run(t, "", "session", "dump")
	require.NoError(t, err)
	assert.Contains(t, out, "userEmail=admin@example.com")
	assert.Contains(t, out, "chars)")

	out, _, err = env.run(t, "", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed out")
	assert.Equal(t, 1, env.fake.Hits(http.MethodPost, "/auth/logout"))

	out, _, err = env.run(t, "", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Not signed in")

	out, _, err = env.run(t, "", "session", "dump")
	require.NoError(t, err)
	assert.Contains(t, out, "(empty)")
}

func TestAdminLoginRefusesLearner(t *testing.T) {
	env := newCLIEnv(t, "")

	_, _, err := env.run(t, "learner123\n", "login", "-email", "learner@example.com", "-admin")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "admin area")

	out, _, err := env.run(t, "", "session", "dump")
	require.NoError(t, err)
	assert.Contains(t, out, "(empty)")
}

func TestLoginPromptsForEmail(t *testing.T) {
	env := newCLIEnv(t, "")

	out, stderr, err := env.run(t, "learner@example.com\nlearner123\n", "login")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Email: ")
	assert.Contains(t, out, "(learner)")
}

func TestWrongPasswordShowsBackendMessage(t *testing.T) {
	env := newCLIEnv(t, "")

	_, _, err := env.run(t, "nope\n", "login", "-email", "admin@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Incorrect email or password")
}

func TestRevokedSessionReportsExpired(t *testing.T) {
	env := newCLIEnv(t, "")
	_, _, err := env.run(t, "admin123\n", "login", "-email", "admin@example.com")
	require.NoError(t, err)

	for _, token := range sessionTokens(t, env) {
		env.fake.Revoke(token)
	}

	out, _, err := env.run(t, "", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Session expired")

	out, _, err = env.run(t, "", "session", "dump")
	require.NoError(t, err)
	assert.Contains(t, out, "(empty)")
}

func sessionTokens(t *testing.T, env *cliEnv) []string {
	t.Helper()
	out, _, err := env.run(t, "", "session", "dump", "-show-token")
	require.NoError(t, err)
	var tokens []string
	for _, line := range strings.Split(out, "\n") {
		if token, ok := strings.CutPrefix(line, "token="); ok {
			tokens = append(tokens, token)
		}
	}
	require.NotEmpty(t, tokens)
	return tokens
}

func TestRedisSessionStore(t *testing.T) {
	mr := miniredis.RunT(t)
	env := newCLIEnv(t, "  store: redis\n  redis_addr: "+mr.Addr()+"\n  key_prefix: \"examctl:\"\n")

	_, _, err := env.run(t, "admin123\n", "login", "-email", "admin@example.com")
	require.NoError(t, err)
	assert.True(t, mr.Exists("examctl:token"))

	out, _, err := env.run(t, "", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "admin@example.com")
}

func TestEnvironmentOverridesProfile(t *testing.T) {
	env := newCLIEnv(t, "")
	require.NoError(t, os.WriteFile(env.profile, []byte("api:\n  url: http://127.0.0.1:1\nsession:\n  store: memory\n"), 0o600))
	env.environ = append(env.environ, "EXAMCLIENT_API_URL="+env.server.URL)

	out, _, err := env.run(t, "admin123\n", "login", "-email", "admin@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in")
}

func TestSetPasswordMismatchSendsNothing(t *testing.T) {
	env := newCLIEnv(t, "")
	_, _, err := env.run(t, "admin123\n", "login", "-email", "admin@example.com")
	require.NoError(t, err)
	before := env.fake.TotalHits()

	_, _, err = env.run(t, "secret1\nsecret2\n", "set-password")
	require.ErrorIs(t, err, examclient.ErrPasswordMismatch)
	assert.Equal(t, before, env.fake.TotalHits())
}

func TestExamsCreateAndList(t *testing.T) {
	env := newCLIEnv(t, "")
	_, _, err := env.run(t, "admin123\n", "login", "-email", "admin@example.com")
	require.NoError(t, err)

	out, _, err := env.run(t, `{"title":"IELTS mock"}`, "exams", "create", "-")
	require.NoError(t, err)
	assert.Contains(t, out, `"title": "IELTS mock"`)

	out, _, err = env.run(t, "", "exams", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "IELTS mock")

	_, _, err = env.run(t, "", "exams", "get", "999")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Item not found")
}

func TestUnknownCommand(t *testing.T) {
	env := newCLIEnv(t, "")

	_, stderr, err := env.run(t, "", "frobnicate")
	require.Error(t, err)
	assert.Contains(t, stderr, "Unknown command: frobnicate")
}

func TestHelpListsCommands(t *testing.T) {
	env := newCLIEnv(t, "")

	out, _, err := env.run(t, "", "help")
	require.NoError(t, err)
	for _, name := range []string{"login", "oauth", "set-password", "logout", "whoami", "session"} {
		assert.Contains(t, out, name)
	}
}

func TestCallbackHandler(t *testing.T) {
	fake := fakeapi.New(fakeapi.Options{})
	api := httptest.NewServer(fake.Handler())
	t.Cleanup(api.Close)

	client, err := examclient.New().WithBaseURL(api.URL).Build()
	require.NoError(t, err)
	t.Cleanup(client.Close)

	outcomes := make(chan callbackOutcome, 1)
	views := httptest.NewServer(callbackHandler(client, outcomes))
	t.Cleanup(views.Close)
	noFollow := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}

	resp, err := noFollow.Get(views.URL + "/oauth/callback?error=oauth_failed")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Location"), examclient.ViewLogin+"?message="))
	outcome := <-outcomes
	assert.ErrorIs(t, outcome.err, examclient.ErrOAuthRejected)
	assert.True(t, client.State().Empty())

	resp, err = noFollow.Get(views.URL + examclient.ViewAdminDashboard)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, examclient.ViewAdminLogin, resp.Header.Get("Location"))

	token, err := fake.IssueToken("learner@example.com")
	require.NoError(t, err)
	resp, err = noFollow.Get(views.URL + "/oauth/callback?token=" + token + "&user_id=3&user_email=learner@example.com&role_id=2&is_new_user=true")
	require.NoError(t, err)
	resp.Body.Close()
	assert.True(t, strings.HasPrefix(resp.Header.Get("Location"), examclient.ViewSetPassword))
	outcome = <-outcomes
	require.NoError(t, outcome.err)
	assert.True(t, outcome.result.NewUser)

	resp, err = noFollow.Get(views.URL + examclient.ViewAdminDashboard)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "/?denied=1", resp.Header.Get("Location"))

	resp, err = noFollow.Get(views.URL + examclient.ViewSetPassword)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuditLogKeepsOnlyFailures(t *testing.T) {
	env := newCLIEnv(t, "")
	logPath := filepath.Join(filepath.Dir(env.profile), "audit.log")
	f, err := os.OpenFile(env.profile, os.O_APPEND|os.O_WRONLY, 0o600)
	require.NoError(t, err)
	_, err = f.WriteString("audit_log: " + logPath + "\naudit_failures_only: true\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, _, err = env.run(t, "nope\n", "login", "-email", "admin@example.com")
	require.Error(t, err)
	_, _, err = env.run(t, "admin123\n", "login", "-email", "admin@example.com")
	require.NoError(t, err)

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"event_type":"login_failure"`)
	assert.NotContains(t, string(data), `"event_type":"login_success"`)
	assert.NotContains(t, string(data), "admin123")
}

func TestSessionDumpShowTokenPlacement(t *testing.T) {
	env := newCLIEnv(t, "")
	_, _, err := env.run(t, "admin123\n", "login", "-email", "admin@example.com")
	require.NoError(t, err)

	after, _, err := env.run(t, "", "session", "dump", "-show-token")
	require.NoError(t, err)
	before, _, err := env.run(t, "", "session", "-show-token", "dump")
	require.NoError(t, err)
	assert.Equal(t, after, before)
	assert.NotContains(t, after, "chars)")

	masked, _, err := env.run(t, "", "session", "dump")
	require.NoError(t, err)
	assert.Contains(t, masked, "chars)")

	_, _, err = env.run(t, "", "session", "dump", "extra")
	require.Error(t, err)
}
