package examclient

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/owlenglish/examclient/api"
	"github.com/owlenglish/examclient/permission"
)

// Config holds everything a [Client] needs besides its collaborators
// (session backend, HTTP client, logger, audit sink).
//
// Config values are set during initialization and treated as immutable after
// [Builder.Build].
type Config struct {
	API         APIConfig
	Session     SessionConfig
	Roles       RolesConfig
	Refresh     RefreshConfig
	SetPassword SetPasswordConfig
	Audit       AuditConfig
	Metrics     MetricsConfig
}

/*
====================================
API CONFIG
====================================
*/

// APIConfig locates the backend.
type APIConfig struct {
	// BaseURL is the backend root, without the API prefix.
	BaseURL string
	// Prefix is joined between BaseURL and every request path.
	Prefix string
	// Timeout bounds each request. Zero means no timeout.
	Timeout   time.Duration
	UserAgent string
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls how the session is persisted.
type SessionConfig struct {
	// KeyPrefix namespaces every persisted key.
	KeyPrefix string
	// LegacyKeys mirrors the session into the discrete token/userRole/...
	// keys next to the structured record.
	LegacyKeys bool
}

/*
====================================
ROLES CONFIG
====================================
*/

// RolesConfig maps backend role ids onto roles. Role names always win over ids.
type RolesConfig struct {
	AdminRoleIDs   []int64
	LearnerRoleIDs []int64
}

/*
====================================
FLOW CONFIG
====================================
*/

// RefreshConfig controls [Client.RefreshIfExpiring].
type RefreshConfig struct {
	// Window is how close to expiry a token must be to get refreshed.
	Window time.Duration
}

// SetPasswordConfig controls [Client.SetPassword].
type SetPasswordConfig struct {
	MinLength     int
	RedirectAfter time.Duration
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the configuration of a local development backend.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			BaseURL: "http://localhost:8000",
			Prefix:  api.DefaultPrefix,
		},
		Session: SessionConfig{
			LegacyKeys: true,
		},
		Roles: RolesConfig{
			AdminRoleIDs:   []int64{permission.DefaultAdminRoleID},
			LearnerRoleIDs: []int64{permission.DefaultLearnerRoleID},
		},
		Refresh: RefreshConfig{
			Window: 5 * time.Minute,
		},
		SetPassword: SetPasswordConfig{
			MinLength:     6,
			RedirectAfter: 1500 * time.Millisecond,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Roles.AdminRoleIDs = slices.Clone(cfg.Roles.AdminRoleIDs)
	out.Roles.LearnerRoleIDs = slices.Clone(cfg.Roles.LearnerRoleIDs)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting, wrapped in [ErrInvalidConfig].
func (c *Config) Validate() error {
	// API
	u, err := url.Parse(strings.TrimSpace(c.API.BaseURL))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: API BaseURL must be an absolute http(s) URL, got %q", ErrInvalidConfig, c.API.BaseURL)
	}
	if c.API.Prefix != "" && !strings.HasPrefix(c.API.Prefix, "/") {
		return fmt.Errorf("%w: API Prefix must start with /", ErrInvalidConfig)
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("%w: API Timeout must be >= 0", ErrInvalidConfig)
	}

	// Roles
	seen := make(map[int64]string)
	for _, group := range []struct {
		name string
		ids  []int64
	}{
		{"AdminRoleIDs", c.Roles.AdminRoleIDs},
		{"LearnerRoleIDs", c.Roles.LearnerRoleIDs},
	} {
		for _, id := range group.ids {
			if id <= 0 {
				return fmt.Errorf("%w: Roles %s must be > 0", ErrInvalidConfig, group.name)
			}
			if other, dup := seen[id]; dup {
				return fmt.Errorf("%w: role id %d listed in both %s and %s", ErrInvalidConfig, id, other, group.name)
			}
			seen[id] = group.name
		}
	}

	// Flows
	if c.Refresh.Window < 0 {
		return fmt.Errorf("%w: Refresh Window must be >= 0", ErrInvalidConfig)
	}
	if c.SetPassword.MinLength < 1 {
		return fmt.Errorf("%w: SetPassword MinLength must be >= 1", ErrInvalidConfig)
	}
	if c.SetPassword.RedirectAfter < 0 {
		return fmt.Errorf("%w: SetPassword RedirectAfter must be >= 0", ErrInvalidConfig)
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return fmt.Errorf("%w: Audit BufferSize must be > 0 when enabled", ErrInvalidConfig)
	}
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return fmt.Errorf("%w: latency histograms require Metrics Enabled", ErrInvalidConfig)
	}

	return nil
}

// registry builds the role registry described by c.
func (c *Config) registry() (*permission.Registry, error) {
	reg := permission.NewRegistry()
	for _, name := range []string{"admin", "super_admin", "student", "learner"} {
		role, _ := permission.ParseRole(name)
		if err := reg.RegisterName(name, role); err != nil {
			return nil, err
		}
	}
	for _, id := range c.Roles.AdminRoleIDs {
		if err := reg.RegisterID(id, permission.RoleAdmin); err != nil {
			return nil, err
		}
	}
	for _, id := range c.Roles.LearnerRoleIDs {
		if err := reg.RegisterID(id, permission.RoleLearner); err != nil {
			return nil, err
		}
	}
	reg.Freeze()
	return reg, nil
}
