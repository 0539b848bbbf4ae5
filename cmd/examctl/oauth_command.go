package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/owlenglish/examclient"
	"github.com/owlenglish/examclient/middleware"
)

func init() {
	register(command{
		name:        "oauth",
		usage:       "oauth [-listen addr] [-timeout d]",
		description: "Sign in with Google through a local callback listener.",
		run:         runOAuth,
	})
}

type callbackOutcome struct {
	result examclient.CallbackResult
	err    error
}

func runOAuth(ctx context.Context, a *app, args []string) error {
	fs := a.newFlagSet("oauth")
	listen := fs.String("listen", a.profile.OAuth.Listen, "callback listener; the backend's frontend URL must point here")
	timeout := fs.Duration("timeout", 5*time.Minute, "how long to wait for the callback")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ln, err := net.Listen("tcp", *listen)
	if err != nil {
		return fmt.Errorf("listen for callback: %w", err)
	}
	outcomes := make(chan callbackOutcome, 1)
	srv := &http.Server{
		Handler:           callbackHandler(a.client, outcomes),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Warn("examctl: callback listener stopped", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	a.printf("Open this address in a browser:\n  %s\n", a.client.OAuthStartURL())
	a.printf("Waiting for the callback on http://%s/oauth/callback\n", ln.Addr())

	var outcome callbackOutcome
	select {
	case outcome = <-outcomes:
	case <-time.After(*timeout):
		return errors.New("timed out waiting for the OAuth callback")
	case <-ctx.Done():
		return ctx.Err()
	}

	a.printf("%s\n", outcome.result.Message)
	if outcome.err != nil {
		return outcome.err
	}
	a.printSignedIn(outcome.result.User)
	if outcome.result.Redirect == examclient.ViewSetPassword {
		a.printf("Run 'examctl set-password' to choose a password.\n")
	}
	return nil
}

// callbackHandler serves the OAuth callback and the views it redirects to.
// The first callback outcome is sent on outcomes; later ones are dropped.
func callbackHandler(client *examclient.Client, outcomes chan<- callbackOutcome) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /oauth/callback", func(w http.ResponseWriter, r *http.Request) {
		ctx := examclient.WithSource(r.Context(), "examctl-oauth")
		res, err := client.HandleOAuthCallback(ctx, r.URL.Query())
		select {
		case outcomes <- callbackOutcome{result: res, err: err}:
		default:
		}

		target := res.Redirect
		if res.Message != "" {
			target += "?" + url.Values{"message": {res.Message}}.Encode()
		}
		http.Redirect(w, r, target, http.StatusFound)
	})

	page := func(title string) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = fmt.Fprintln(w, title)
			if msg := r.URL.Query().Get("message"); msg != "" {
				_, _ = fmt.Fprintln(w, msg)
			}
			if u := client.State().User; u != nil {
				_, _ = fmt.Fprintf(w, "Signed in as %s <%s>\n", u.Name, u.Email)
			}
			_, _ = fmt.Fprintln(w, "You can close this window and return to the terminal.")
		})
	}

	signedIn := middleware.RequireSignedIn(client)
	mux.Handle("GET "+examclient.ViewLogin, page("Sign in"))
	mux.Handle("GET "+examclient.ViewAdminLogin, page("Admin sign in"))
	mux.Handle("GET "+examclient.ViewSetPassword, signedIn(page("Choose a password")))
	mux.Handle("GET "+examclient.ViewAdminDashboard, middleware.RequireAdmin(client, client.Registry())(page("Admin dashboard")))
	mux.Handle("GET /{$}", signedIn(page("Home")))
	return mux
}
