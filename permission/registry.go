package permission

import (
	"errors"
	"strings"
	"sync"
)

// Default backend role ids. The backend seeds "admin" first and "student" second.
const (
	DefaultAdminRoleID   int64 = 1
	DefaultLearnerRoleID int64 = 2
)

// Registry maps backend role names and role ids onto [Role] values.
//
// A Registry is configured during initialization, then frozen and shared.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Role
	byID   map[int64]Role
	frozen bool
}

// NewRegistry creates an empty [Registry]. Use [DefaultRegistry] for the
// backend's seeded roles.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]Role),
		byID:   make(map[int64]Role),
	}
}

// DefaultRegistry returns a frozen registry holding the backend's seeded role
// names and ids.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, name := range []string{"admin", "super_admin", "student", "learner"} {
		role, _ := ParseRole(name)
		_ = r.RegisterName(name, role)
	}
	_ = r.RegisterID(DefaultAdminRoleID, RoleAdmin)
	_ = r.RegisterID(DefaultLearnerRoleID, RoleLearner)
	r.Freeze()
	return r
}

// RegisterName binds a backend role name to role. Must be called before [Registry.Freeze].
func (r *Registry) RegisterName(name string, role Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return errors.New("registry frozen")
	}

	key := normalizeName(name)
	if key == "" {
		return errors.New("role name cannot be empty")
	}
	if role == RoleUnknown {
		return errors.New("cannot register unknown role")
	}
	if _, exists := r.byName[key]; exists {
		return errors.New("role name already registered")
	}

	r.byName[key] = role
	return nil
}

// RegisterID binds a backend role id to role. Must be called before [Registry.Freeze].
func (r *Registry) RegisterID(id int64, role Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return errors.New("registry frozen")
	}
	if id <= 0 {
		return errors.New("role id must be positive")
	}
	if role == RoleUnknown {
		return errors.New("cannot register unknown role")
	}
	if _, exists := r.byID[id]; exists {
		return errors.New("role id already registered")
	}

	r.byID[id] = role
	return nil
}

// Freeze prevents further registration.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Frozen reports whether the registry has been frozen.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// Resolve returns the role for a user reporting roleName and roleID.
// A registered name wins over the id; roleID may be nil.
func (r *Registry) Resolve(roleName string, roleID *int64) Role {
	if r == nil {
		return RoleUnknown
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if role, ok := r.byName[normalizeName(roleName)]; ok {
		return role
	}
	if roleID != nil {
		if role, ok := r.byID[*roleID]; ok {
			return role
		}
	}
	return RoleUnknown
}

// IDFor returns the first registered role id bound to role.
func (r *Registry) IDFor(role Role) (int64, bool) {
	if r == nil {
		return 0, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var (
		best  int64
		found bool
	)
	for id, bound := range r.byID {
		if bound != role {
			continue
		}
		if !found || id < best {
			best = id
			found = true
		}
	}
	return best, found
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
