package permission

// Requirement is the set of roles accepted by a view or flow.
// The zero value accepts any signed-in user regardless of role.
type Requirement struct {
	roles   [RoleSuperAdmin + 1]bool
	limited bool
}

// RequireAny returns a requirement accepting exactly the listed roles.
// RequireAny() with no roles rejects everyone.
func RequireAny(roles ...Role) Requirement {
	req := Requirement{limited: true}
	for _, role := range roles {
		if int(role) < len(req.roles) {
			req.roles[role] = true
		}
	}
	return req
}

// Authenticated returns a requirement satisfied by any role, including unknown ones.
func Authenticated() Requirement {
	return Requirement{}
}

// AdminArea is the requirement of the administrative area.
func AdminArea() Requirement {
	return RequireAny(RoleAdmin, RoleSuperAdmin)
}

// Roles lists the roles accepted by req, or nil when req accepts any role.
func (req Requirement) Roles() []Role {
	if !req.limited {
		return nil
	}
	out := make([]Role, 0, len(req.roles))
	for i, ok := range req.roles {
		if ok {
			out = append(out, Role(i))
		}
	}
	return out
}

// Authorize is the authorization predicate shared by login flows and the route guard.
func Authorize(role Role, req Requirement) bool {
	if !req.limited {
		return true
	}
	if int(role) >= len(req.roles) {
		return false
	}
	return req.roles[role]
}
