package examclient

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// configEnv holds the raw environment values read by [LoadConfigFromEnv].
type configEnv struct {
	BaseURL        string        `env:"EXAMCLIENT_API_URL"          envDefault:"http://localhost:8000"`
	Prefix         string        `env:"EXAMCLIENT_API_PREFIX"       envDefault:"/api/v1"`
	Timeout        time.Duration `env:"EXAMCLIENT_TIMEOUT"`
	UserAgent      string        `env:"EXAMCLIENT_USER_AGENT"`
	KeyPrefix      string        `env:"EXAMCLIENT_KEY_PREFIX"`
	LegacyKeys     bool          `env:"EXAMCLIENT_LEGACY_KEYS"      envDefault:"true"`
	AdminRoleIDs   []int64       `env:"EXAMCLIENT_ADMIN_ROLE_IDS"   envSeparator:"," envDefault:"1"`
	LearnerRoleIDs []int64       `env:"EXAMCLIENT_LEARNER_ROLE_IDS" envSeparator:"," envDefault:"2"`
	RefreshWindow  time.Duration `env:"EXAMCLIENT_REFRESH_WINDOW"   envDefault:"5m"`
	AuditEnabled   bool          `env:"EXAMCLIENT_AUDIT"`
	MetricsEnabled bool          `env:"EXAMCLIENT_METRICS"`
}

// LoadConfigFromEnv starts from [DefaultConfig] and applies the EXAMCLIENT_*
// environment variables. The result is validated.
func LoadConfigFromEnv() (Config, error) {
	return loadConfig(env.Options{})
}

// LoadConfigFromMap is [LoadConfigFromEnv] over an explicit environment.
func LoadConfigFromMap(environ map[string]string) (Config, error) {
	return loadConfig(env.Options{Environment: environ})
}

func loadConfig(opts env.Options) (Config, error) {
	var raw configEnv
	if err := env.ParseWithOptions(&raw, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg := DefaultConfig()
	cfg.API.BaseURL = raw.BaseURL
	cfg.API.Prefix = raw.Prefix
	cfg.API.Timeout = raw.Timeout
	cfg.API.UserAgent = raw.UserAgent
	cfg.Session.KeyPrefix = raw.KeyPrefix
	cfg.Session.LegacyKeys = raw.LegacyKeys
	cfg.Roles.AdminRoleIDs = raw.AdminRoleIDs
	cfg.Roles.LearnerRoleIDs = raw.LearnerRoleIDs
	cfg.Refresh.Window = raw.RefreshWindow
	cfg.Audit.Enabled = raw.AuditEnabled
	cfg.Metrics.Enabled = raw.MetricsEnabled

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
