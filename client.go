package examclient

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/owlenglish/examclient/api"
	"github.com/owlenglish/examclient/permission"
	"github.com/owlenglish/examclient/session"
)

// Client owns one session and the backend calls made on its behalf.
//
// Client instances are created by [Builder.Build] and are safe for
// concurrent use.
type Client struct {
	config   Config
	store    *session.Store
	api      *api.Client
	registry *permission.Registry
	logger   *slog.Logger
	audit    *auditDispatcher
	metrics  *Metrics
	clock    func() time.Time
}

// Close flushes pending audit events. The session is left as is.
func (c *Client) Close() {
	if c == nil {
		return
	}
	if c.audit != nil {
		c.audit.Close()
	}
}

// AuditDropped returns the number of audit events lost to backpressure.
func (c *Client) AuditDropped() uint64 {
	if c == nil || c.audit == nil {
		return 0
	}
	return c.audit.Dropped()
}

// MetricsSnapshot returns the current counters.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	if c == nil || c.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return c.metrics.Snapshot()
}

// Config returns a copy of the configuration the client was built with.
func (c *Client) Config() Config {
	if c == nil {
		return Config{}
	}
	return cloneConfig(c.config)
}

// Store exposes the session store, for route guards and persistence tooling.
func (c *Client) Store() *session.Store {
	if c == nil {
		return nil
	}
	return c.store
}

// API exposes the authorized request pipeline for endpoints without a
// dedicated method.
func (c *Client) API() *api.Client {
	if c == nil {
		return nil
	}
	return c.api
}

// Registry returns the role registry used by login and [Client.Authorized].
func (c *Client) Registry() *permission.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// State returns a copy of the current session.
func (c *Client) State() session.State {
	if c == nil || c.store == nil {
		return session.State{}
	}
	return c.store.State()
}

// Role resolves the role of the signed-in user. It is [permission.RoleUnknown]
// without a user.
func (c *Client) Role() permission.Role {
	return c.resolveRole(c.State().User)
}

// Authorized reports whether the current session satisfies req. A session
// without a token never does.
func (c *Client) Authorized(req permission.Requirement) bool {
	st := c.State()
	if !st.Authenticated() {
		return false
	}
	return permission.Authorize(c.resolveRole(st.User), req)
}

func (c *Client) ready() bool {
	return c != nil && c.store != nil && c.api != nil
}

func (c *Client) resolveRole(user *session.User) permission.Role {
	if user == nil || c == nil {
		return permission.RoleUnknown
	}
	return c.registry.Resolve(user.Role, user.RoleID)
}

// forceLogout is the transport's reaction to a 401.
func (c *Client) forceLogout(ctx context.Context) error {
	userID := c.currentUserID()
	if err := c.store.Logout(ctx); err != nil {
		c.emitAudit(ctx, auditEventForcedLogout, false, userID, err, nil)
		return err
	}
	c.metricInc(MetricForcedLogout)
	c.emitAudit(ctx, auditEventForcedLogout, true, userID, nil, nil)
	return nil
}

func (c *Client) currentUserID() string {
	u := c.State().User
	if u == nil {
		return ""
	}
	return strconv.FormatInt(u.ID, 10)
}

func (c *Client) warn(msg string, args ...any) {
	if c == nil || c.logger == nil {
		return
	}
	c.logger.Warn(msg, args...)
}
