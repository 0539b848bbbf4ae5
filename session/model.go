package session

// User is the profile of the signed-in user as reported by the backend.
type User struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	RoleID   *int64 `json:"role_id"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}

// Clone returns a deep copy of u.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	out := *u
	if u.RoleID != nil {
		id := *u.RoleID
		out.RoleID = &id
	}
	return &out
}

// State is the current session. An empty Token and a nil User mean absent.
type State struct {
	Token string
	User  *User
}

// Authenticated reports whether a bearer token is present.
func (s State) Authenticated() bool {
	return s.Token != ""
}

// Empty reports whether both token and user are absent.
func (s State) Empty() bool {
	return s.Token == "" && s.User == nil
}

func (s State) clone() State {
	return State{Token: s.Token, User: s.User.Clone()}
}
