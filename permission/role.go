package permission

import "strings"

// Role is the enumerated role tag carried by a signed-in user.
type Role uint8

const (
	// RoleUnknown is assigned when neither the role name nor the role id is recognized.
	RoleUnknown Role = iota
	// RoleLearner is the default role of exam takers.
	RoleLearner
	// RoleAdmin administers exams, questions and users.
	RoleAdmin
	// RoleSuperAdmin has every administrative capability.
	RoleSuperAdmin
)

var roleNames = [...]string{
	RoleUnknown:    "unknown",
	RoleLearner:    "learner",
	RoleAdmin:      "admin",
	RoleSuperAdmin: "super_admin",
}

// String returns the canonical name of the role.
func (r Role) String() string {
	if int(r) < len(roleNames) {
		return roleNames[r]
	}
	return roleNames[RoleUnknown]
}

// Administrative reports whether r may enter the admin area.
func (r Role) Administrative() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// ParseRole maps a canonical role name (case-insensitive) to a Role.
// "student" is accepted as an alias of learner because the backend seeds it under that name.
func ParseRole(name string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "learner", "student":
		return RoleLearner, true
	case "admin":
		return RoleAdmin, true
	case "super_admin", "superadmin", "super-admin":
		return RoleSuperAdmin, true
	}
	return RoleUnknown, false
}
