package examclient

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/owlenglish/examclient/internal/fakeapi"
	"github.com/owlenglish/examclient/session"
)

type testEnv struct {
	fake    *fakeapi.Server
	server  *httptest.Server
	backend *session.MemoryBackend
	client  *Client
}

func newTestEnv(t *testing.T, configure func(*Builder)) *testEnv {
	t.Helper()

	fake := fakeapi.New(fakeapi.Options{})
	srv := httptest.NewServer(fake.Handler())
	t.Cleanup(srv.Close)

	backend := session.NewMemoryBackend()
	b := New().
		WithBaseURL(srv.URL).
		WithBackend(backend).
		WithMetricsEnabled(true)
	if configure != nil {
		configure(b)
	}
	client, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(client.Close)

	return &testEnv{fake: fake, server: srv, backend: backend, client: client}
}

func (e *testEnv) login(t *testing.T, email, password string) {
	t.Helper()
	if _, err := e.client.Login(context.Background(), LoginRequest{Email: email, Password: password}); err != nil {
		t.Fatalf("login %s failed: %v", email, err)
	}
}

type captureSink struct {
	mu     sync.Mutex
	events []AuditEvent
}

func (s *captureSink) Emit(_ context.Context, event AuditEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *captureSink) types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, ev := range s.events {
		out[i] = ev.EventType
	}
	return out
}

func (s *captureSink) find(eventType string) (AuditEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ev := range s.events {
		if ev.EventType == eventType {
			return ev, true
		}
	}
	return AuditEvent{}, false
}

func withAudit(sink AuditSink) func(*Builder) {
	return func(b *Builder) {
		cfg := b.config
		cfg.Audit.Enabled = true
		cfg.Audit.BufferSize = 64
		cfg.Audit.DropIfFull = false
		b.WithConfig(cfg).WithAuditSink(sink)
	}
}

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}
