package flows

import (
	"context"
	"errors"

	"github.com/owlenglish/examclient/permission"
	"github.com/owlenglish/examclient/session"
)

var (
	errNotReady     = errors.New("not ready")
	errRoleDenied   = errors.New("role not permitted")
	errRejected     = errors.New("oauth rejected")
	errBadCallback  = errors.New("invalid callback")
	errMismatch     = errors.New("mismatch")
	errTooShort     = errors.New("too short")
	errNotSignedIn  = errors.New("not signed in")
	errBackendLogin = errors.New("Incorrect email or password")
)

func int64Ptr(v int64) *int64 { return &v }

func resolver() RoleResolver {
	reg := permission.DefaultRegistry()
	return func(u *session.User) permission.Role {
		if u == nil {
			return permission.RoleUnknown
		}
		return reg.Resolve(u.Role, u.RoleID)
	}
}

type counter map[int]int

func (c counter) inc(id int) { c[id]++ }

type auditRecord struct {
	event   string
	success bool
	userID  string
	err     error
}

type auditLog []auditRecord

func (l *auditLog) emit(_ context.Context, event string, success bool, userID string, err error, metadata func() map[string]string) {
	if metadata != nil {
		_ = metadata()
	}
	*l = append(*l, auditRecord{event: event, success: success, userID: userID, err: err})
}
