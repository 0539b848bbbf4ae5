package flows

import (
	"context"

	"github.com/owlenglish/examclient/permission"
	"github.com/owlenglish/examclient/session"
)

// AuditFunc records one audit event. metadata is evaluated lazily.
type AuditFunc func(ctx context.Context, event string, success bool, userID string, err error, metadata func() map[string]string)

// RoleResolver maps a user profile onto a role.
type RoleResolver func(user *session.User) permission.Role

func noopMetric(int) {}

func noopAudit(context.Context, string, bool, string, error, func() map[string]string) {}

func noopWarn(string, ...any) {}
