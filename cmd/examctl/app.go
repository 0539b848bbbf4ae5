package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/term"

	"github.com/owlenglish/examclient"
	"github.com/owlenglish/examclient/session"
	"github.com/owlenglish/examclient/session/sqlite"
)

// app is the state shared by every command of one run.
type app struct {
	profile *profile
	client  *examclient.Client
	logger  *slog.Logger

	stdin  io.Reader
	in     *bufio.Reader
	stdout io.Writer
	stderr io.Writer

	closers []func()
}

func newApp(ctx context.Context, prof *profile, env map[string]string, stdin io.Reader, stdout, stderr io.Writer, verbose bool) (*app, error) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	a := &app{
		profile: prof,
		logger:  slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})),
		stdin:   stdin,
		in:      bufio.NewReader(stdin),
		stdout:  stdout,
		stderr:  stderr,
	}

	cfg, err := examclient.LoadConfigFromMap(prof.environ(env))
	if err != nil {
		return nil, err
	}

	backend, err := a.openBackend(prof, env)
	if err != nil {
		a.Close()
		return nil, err
	}

	b := examclient.New().
		WithConfig(cfg).
		WithBackend(backend).
		WithLogger(a.logger)
	if prof.AuditLog != "" {
		// #nosec G304 -- path is from the user's profile
		f, err := os.OpenFile(prof.AuditLog, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("open audit log: %w", err)
		}
		a.closers = append(a.closers, func() { _ = f.Close() })
		var sink examclient.AuditSink = examclient.NewJSONWriterSink(f)
		if prof.AuditFailuresOnly {
			sink = examclient.NewFilterSink(sink, examclient.AuditEvent.Failed)
		}
		b.WithAuditSink(sink)
	}

	client, err := b.Build()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.client = client
	// Flushes audit events before the log file closes.
	a.closers = append(a.closers, client.Close)

	if err := client.Store().Load(ctx); err != nil {
		a.logger.Warn("examctl: persisted session unreadable, starting signed out", "error", err)
	}
	return a, nil
}

func (a *app) openBackend(prof *profile, env map[string]string) (session.Backend, error) {
	switch prof.Session.Store {
	case storeMemory:
		return session.NewMemoryBackend(), nil

	case storeRedis:
		addr := prof.Session.RedisAddr
		if addr == "" {
			addr = env["REDIS_ADDR"]
		}
		if addr == "" || addr == storeMemory {
			mr, err := miniredis.Run()
			if err != nil {
				return nil, fmt.Errorf("start miniredis: %w", err)
			}
			a.closers = append(a.closers, mr.Close)
			addr = mr.Addr()
			a.logger.Debug("examctl: using miniredis", "addr", addr)
		}
		var ttl time.Duration
		if prof.Session.RedisTTL != "" {
			d, err := time.ParseDuration(prof.Session.RedisTTL)
			if err != nil {
				return nil, fmt.Errorf("session redis_ttl: %w", err)
			}
			ttl = d
		}
		rdb := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		a.closers = append(a.closers, func() { _ = rdb.Close() })
		return session.NewRedisBackend(rdb, ttl), nil

	case storeSQLite:
		path := prof.Session.Path
		if path == "" {
			path = defaultSessionPath(env)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("create session dir: %w", err)
		}
		backend, err := sqlite.Open(path)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = backend.Close() })
		return backend, nil
	}
	return nil, fmt.Errorf("unknown session store %q (want sqlite, redis or memory)", prof.Session.Store)
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *app) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(a.stdout, format, args...)
}

func (a *app) readLine(prompt string) (string, error) {
	_, _ = fmt.Fprint(a.stderr, prompt)
	line, err := a.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// readSecret prompts without echo on a terminal and falls back to a plain
// line otherwise.
func (a *app) readSecret(prompt string) (string, error) {
	if f, ok := a.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		_, _ = fmt.Fprint(a.stderr, prompt)
		secret, err := term.ReadPassword(int(f.Fd()))
		_, _ = fmt.Fprintln(a.stderr)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(secret), nil
	}
	return a.readLine(prompt)
}
