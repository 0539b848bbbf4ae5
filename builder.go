package examclient

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/owlenglish/examclient/api"
	"github.com/owlenglish/examclient/permission"
	"github.com/owlenglish/examclient/session"
)

// Builder assembles a [Client]. A Builder is single-use.
type Builder struct {
	config Config

	backend    session.Backend
	httpClient *http.Client
	logger     *slog.Logger
	registry   *permission.Registry
	auditSink  AuditSink
	clock      func() time.Time

	built bool
}

// New starts a Builder from [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithBaseURL sets the backend root.
func (b *Builder) WithBaseURL(baseURL string) *Builder {
	b.config.API.BaseURL = baseURL
	return b
}

// WithBackend selects where the session is persisted. The default is an
// in-memory backend that forgets the session with the process.
func (b *Builder) WithBackend(backend session.Backend) *Builder {
	b.backend = backend
	return b
}

// WithHTTPClient sets the client whose transport carries backend requests.
// It is copied, never modified.
func (b *Builder) WithHTTPClient(client *http.Client) *Builder {
	b.httpClient = client
	return b
}

// WithLogger sets the structured logger. The default discards.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithRegistry overrides the role registry derived from Config.Roles.
func (b *Builder) WithRegistry(reg *permission.Registry) *Builder {
	b.registry = reg
	return b
}

// WithAuditSink sets the destination of audit events. Audit must also be
// enabled in the config.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the request latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// WithClock overrides time.Now for token expiry checks and audit timestamps.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

// Build validates the configuration and wires the client. The session starts
// empty; call [Client.Restore] to resume a persisted one.
func (b *Builder) Build() (*Client, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	registry := b.registry
	if registry == nil {
		var err error
		registry, err = cfg.registry()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}

	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	clock := b.clock
	if clock == nil {
		clock = time.Now
	}

	// -------- SESSION STORE --------
	store := session.NewStore(
		b.backend,
		session.WithLegacyKeys(cfg.Session.LegacyKeys),
		session.WithKeyPrefix(cfg.Session.KeyPrefix),
	)

	client := &Client{
		config:   cloneConfig(cfg),
		store:    store,
		registry: registry,
		logger:   logger,
		clock:    clock,
	}
	client.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	client.metrics = NewMetrics(cfg.Metrics)

	// -------- HTTP CLIENT --------
	opts := []api.Option{
		api.WithPrefix(cfg.API.Prefix),
		api.WithSession(store),
		api.WithInvalidator(api.InvalidatorFunc(client.forceLogout)),
		api.WithLogger(logger),
		api.WithUserAgent(cfg.API.UserAgent),
		api.WithTimeout(cfg.API.Timeout),
		api.WithObserver(client.metrics.observeRequest),
	}
	if b.httpClient != nil {
		opts = append(opts, api.WithHTTPClient(b.httpClient))
	}
	apiClient, err := api.New(cfg.API.BaseURL, opts...)
	if err != nil {
		client.audit.Close()
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	client.api = apiClient

	b.built = true

	return client, nil
}
