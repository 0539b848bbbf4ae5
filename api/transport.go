package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/owlenglish/examclient/session"
)

// HeaderRequestID carries the per-request correlation id.
const HeaderRequestID = "X-Request-ID"

// SessionSource exposes the current session to the transport.
type SessionSource interface {
	State() session.State
}

// Invalidator clears the session after the backend rejected the credentials.
type Invalidator interface {
	Logout(ctx context.Context) error
}

// InvalidatorFunc adapts a function to [Invalidator].
type InvalidatorFunc func(ctx context.Context) error

// Logout calls f.
func (f InvalidatorFunc) Logout(ctx context.Context) error { return f(ctx) }

// RequestObserver is notified after every round trip. Status is 0 on
// transport failure.
type RequestObserver func(method, path string, status int, elapsed time.Duration)

// Transport decorates a base [http.RoundTripper] with session handling.
//
// Before each request it reads the session once and sets the bearer header
// when a token is present. After a 401 response it calls the [Invalidator]
// and returns the response unchanged. A 401 from a login endpoint reports
// wrong credentials and leaves the session alone.
type Transport struct {
	Base        http.RoundTripper
	Session     SessionSource
	Invalidator Invalidator
	Logger      *slog.Logger
	UserAgent   string
	Observer    RequestObserver
}

// RoundTrip implements [http.RoundTripper].
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())

	if t.Session != nil {
		if st := t.Session.State(); st.Token != "" {
			out.Header.Set("Authorization", "Bearer "+st.Token)
		}
	}
	requestID := out.Header.Get(HeaderRequestID)
	if requestID == "" {
		requestID = uuid.NewString()
		out.Header.Set(HeaderRequestID, requestID)
	}
	if t.UserAgent != "" && out.Header.Get("User-Agent") == "" {
		out.Header.Set("User-Agent", t.UserAgent)
	}

	start := time.Now()
	resp, err := t.base().RoundTrip(out)
	elapsed := time.Since(start)
	log := t.logger()

	if err != nil {
		t.observe(out, 0, elapsed)
		log.Debug("api: request failed",
			"request_id", requestID, "method", out.Method, "path", out.URL.Path, "error", err)
		return nil, err
	}
	t.observe(out, resp.StatusCode, elapsed)
	log.Debug("api: request",
		"request_id", requestID, "method", out.Method, "path", out.URL.Path,
		"status", resp.StatusCode, "elapsed", elapsed)

	if resp.StatusCode == http.StatusUnauthorized && t.Invalidator != nil && !IsLoginPath(out.URL.Path) {
		log.Warn("api: unauthorized response, clearing session",
			"request_id", requestID, "method", out.Method, "path", out.URL.Path)
		if lerr := t.Invalidator.Logout(context.WithoutCancel(req.Context())); lerr != nil {
			log.Error("api: forced logout failed", "request_id", requestID, "error", lerr)
		}
	}
	return resp, nil
}

// IsLoginPath reports whether p is a password login endpoint.
func IsLoginPath(p string) bool {
	p = strings.TrimSuffix(p, "/")
	return strings.HasSuffix(p, "/auth/login") || strings.HasSuffix(p, "/auth/login/json")
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) logger() *slog.Logger {
	if t.Logger != nil {
		return t.Logger
	}
	return discardLogger
}

func (t *Transport) observe(req *http.Request, status int, elapsed time.Duration) {
	if t.Observer != nil {
		t.Observer(req.Method, req.URL.Path, status, elapsed)
	}
}

var discardLogger = slog.New(slog.DiscardHandler)
