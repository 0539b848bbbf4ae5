package flows

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"
)

// DefaultSetPasswordMessage is shown when the backend reply carries no message.
const DefaultSetPasswordMessage = "Password set successfully"

// SetPasswordMetrics carries metric IDs needed by the set-password flow.
type SetPasswordMetrics struct {
	SetPasswordSuccess  int
	SetPasswordRejected int
}

// SetPasswordEvents carries audit event names used by the set-password flow.
type SetPasswordEvents struct {
	SetPasswordSuccess string
	SetPasswordFailure string
}

// SetPasswordErrors carries host-level sentinel errors used by the set-password flow.
type SetPasswordErrors struct {
	ClientNotReady   error
	PasswordMismatch error
	PasswordTooShort error
}

// SetPasswordResult is the outcome of a successful submission.
type SetPasswordResult struct {
	Message       string
	Redirect      string
	RedirectAfter time.Duration
}

// SetPasswordDeps captures set-password dependencies.
type SetPasswordDeps struct {
	MinLength     int
	Redirect      string
	RedirectAfter time.Duration
	Submit        func(ctx context.Context, password, confirm string) (message string, err error)
	CurrentUserID func() string

	MetricInc func(int)
	EmitAudit AuditFunc

	Metrics SetPasswordMetrics
	Events  SetPasswordEvents
	Errors  SetPasswordErrors
}

// RunSetPassword validates the pair locally and submits it.
//
// A short password or a mismatched confirmation is rejected before any
// request is made. The session is never written.
func RunSetPassword(ctx context.Context, password, confirm string, deps SetPasswordDeps) (SetPasswordResult, error) {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.CurrentUserID == nil {
		deps.CurrentUserID = func() string { return "" }
	}
	if deps.Submit == nil {
		return SetPasswordResult{}, deps.Errors.ClientNotReady
	}

	if utf8.RuneCountInString(password) < deps.MinLength {
		deps.MetricInc(deps.Metrics.SetPasswordRejected)
		return SetPasswordResult{}, deps.Errors.PasswordTooShort
	}
	if password != confirm {
		deps.MetricInc(deps.Metrics.SetPasswordRejected)
		return SetPasswordResult{}, deps.Errors.PasswordMismatch
	}

	message, err := deps.Submit(ctx, password, confirm)
	if err != nil {
		deps.EmitAudit(ctx, deps.Events.SetPasswordFailure, false, deps.CurrentUserID(), err, nil)
		return SetPasswordResult{}, err
	}

	if strings.TrimSpace(message) == "" {
		message = DefaultSetPasswordMessage
	}
	deps.MetricInc(deps.Metrics.SetPasswordSuccess)
	deps.EmitAudit(ctx, deps.Events.SetPasswordSuccess, true, deps.CurrentUserID(), nil, nil)
	return SetPasswordResult{
		Message:       message,
		Redirect:      deps.Redirect,
		RedirectAfter: deps.RedirectAfter,
	}, nil
}
