package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// profile is the examctl config file.
//
//	api:
//	  url: https://exams.example.com
//	  timeout: 30s
//	session:
//	  store: sqlite        # sqlite, redis or memory
//	  path: /home/me/.local/state/examctl/session.db
//	  redis_addr: localhost:6379
//	roles:
//	  admin_ids: [1]
//	oauth:
//	  listen: 127.0.0.1:5173
type profile struct {
	API struct {
		URL       string `yaml:"url"`
		Prefix    string `yaml:"prefix"`
		Timeout   string `yaml:"timeout"`
		UserAgent string `yaml:"user_agent"`
	} `yaml:"api"`
	Session struct {
		Store      string `yaml:"store"`
		Path       string `yaml:"path"`
		RedisAddr  string `yaml:"redis_addr"`
		RedisTTL   string `yaml:"redis_ttl"`
		KeyPrefix  string `yaml:"key_prefix"`
		LegacyKeys *bool  `yaml:"legacy_keys"`
	} `yaml:"session"`
	Roles struct {
		AdminIDs   []int64 `yaml:"admin_ids"`
		LearnerIDs []int64 `yaml:"learner_ids"`
	} `yaml:"roles"`
	RefreshWindow     string `yaml:"refresh_window"`
	AuditLog          string `yaml:"audit_log"`
	AuditFailuresOnly bool   `yaml:"audit_failures_only"`
	OAuth             struct {
		Listen string `yaml:"listen"`
	} `yaml:"oauth"`
}

const (
	storeSQLite = "sqlite"
	storeRedis  = "redis"
	storeMemory = "memory"

	defaultOAuthListen = "127.0.0.1:5173"
)

func defaultProfilePath(env map[string]string) string {
	dir := env["XDG_CONFIG_HOME"]
	if dir == "" {
		home := env["HOME"]
		if home == "" {
			home, _ = os.UserHomeDir()
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "examctl", "config.yaml")
}

func defaultSessionPath(env map[string]string) string {
	dir := env["XDG_STATE_HOME"]
	if dir == "" {
		home := env["HOME"]
		if home == "" {
			home, _ = os.UserHomeDir()
		}
		dir = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(dir, "examctl", "session.db")
}

// loadProfile reads path. A missing file is an empty profile unless the path
// was given explicitly.
func loadProfile(path string, explicit bool) (*profile, error) {
	var p profile
	// #nosec G304 -- path is from CLI args or the user's config dir
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return p.withDefaults(), nil
		}
		return nil, fmt.Errorf("reading profile: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing profile %s: %w", path, err)
	}
	return p.withDefaults(), nil
}

func (p *profile) withDefaults() *profile {
	if p.Session.Store == "" {
		p.Session.Store = storeSQLite
	}
	p.Session.Store = strings.ToLower(p.Session.Store)
	if p.OAuth.Listen == "" {
		p.OAuth.Listen = defaultOAuthListen
	}
	return p
}

// environ renders the profile as EXAMCLIENT_* variables, then lets the
// process environment override them.
func (p *profile) environ(process map[string]string) map[string]string {
	out := make(map[string]string)
	set := func(key, value string) {
		if value != "" {
			out[key] = value
		}
	}
	set("EXAMCLIENT_API_URL", p.API.URL)
	set("EXAMCLIENT_API_PREFIX", p.API.Prefix)
	set("EXAMCLIENT_TIMEOUT", p.API.Timeout)
	set("EXAMCLIENT_USER_AGENT", p.API.UserAgent)
	set("EXAMCLIENT_KEY_PREFIX", p.Session.KeyPrefix)
	if p.Session.LegacyKeys != nil {
		set("EXAMCLIENT_LEGACY_KEYS", strconv.FormatBool(*p.Session.LegacyKeys))
	}
	set("EXAMCLIENT_ADMIN_ROLE_IDS", joinIDs(p.Roles.AdminIDs))
	set("EXAMCLIENT_LEARNER_ROLE_IDS", joinIDs(p.Roles.LearnerIDs))
	set("EXAMCLIENT_REFRESH_WINDOW", p.RefreshWindow)
	if p.AuditLog != "" {
		set("EXAMCLIENT_AUDIT", "true")
	}

	for key, value := range process {
		if strings.HasPrefix(key, "EXAMCLIENT_") {
			out[key] = value
		}
	}
	return out
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

func environMap(environ []string) map[string]string {
	out := make(map[string]string, len(environ))
	for _, kv := range environ {
		if key, value, ok := strings.Cut(kv, "="); ok {
			out[key] = value
		}
	}
	return out
}
