package examclient

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/owlenglish/examclient/api"
	internalflows "github.com/owlenglish/examclient/internal/flows"
	"github.com/owlenglish/examclient/session"
)

const (
	auditEventLoginSuccess       = "login_success"
	auditEventLoginFailure       = "login_failure"
	auditEventLoginRoleDenied    = "login_role_denied"
	auditEventOAuthSuccess       = "oauth_success"
	auditEventOAuthFailure       = "oauth_failure"
	auditEventSetPasswordSuccess = "set_password_success"
	auditEventSetPasswordFailure = "set_password_failure"
	auditEventLogout             = "logout"
	auditEventForcedLogout       = "forced_logout"
	auditEventRefreshSuccess     = "refresh_success"
	auditEventRefreshFailure     = "refresh_failure"
	auditEventPasswordChange     = "password_change"
)

// AuditErrorCode is the stable error classification written to audit events.
type AuditErrorCode string

const (
	auditErrUnauthorized       AuditErrorCode = "unauthorized"
	auditErrRejected           AuditErrorCode = "rejected"
	auditErrServerError        AuditErrorCode = "server_error"
	auditErrNetwork            AuditErrorCode = "network"
	auditErrRoleNotPermitted   AuditErrorCode = "role_not_permitted"
	auditErrPasswordPolicy     AuditErrorCode = "password_policy"
	auditErrInvalidCallback    AuditErrorCode = "invalid_callback"
	auditErrOAuthRejected      AuditErrorCode = "oauth_rejected"
	auditErrNotSignedIn        AuditErrorCode = "not_signed_in"
	auditErrInvalidResponse    AuditErrorCode = "invalid_response"
	auditErrBackendUnavailable AuditErrorCode = "backend_unavailable"
	auditErrRecordCorrupt      AuditErrorCode = "record_corrupt"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (c *Client) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if c == nil || c.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		ID:        uuid.NewString(),
		Timestamp: c.now().UTC(),
		EventType: eventType,
		UserID:    userID,
		Source:    sourceFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	c.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, api.ErrNetwork):
		return auditErrNetwork
	case errors.Is(err, ErrRoleNotPermitted):
		return auditErrRoleNotPermitted
	case errors.Is(err, ErrPasswordMismatch),
		errors.Is(err, ErrPasswordTooShort):
		return auditErrPasswordPolicy
	case errors.Is(err, ErrInvalidCallback):
		return auditErrInvalidCallback
	case errors.Is(err, ErrOAuthRejected):
		return auditErrOAuthRejected
	case errors.Is(err, ErrNotSignedIn):
		return auditErrNotSignedIn
	case errors.Is(err, internalflows.ErrIncompleteGrant):
		return auditErrInvalidResponse
	case errors.Is(err, session.ErrBackendUnavailable):
		return auditErrBackendUnavailable
	case errors.Is(err, session.ErrRecordCorrupt):
		return auditErrRecordCorrupt
	}

	if apiErr, ok := api.AsError(err); ok {
		switch {
		case apiErr.Status == http.StatusUnauthorized:
			return auditErrUnauthorized
		case apiErr.Status >= 500:
			return auditErrServerError
		default:
			return auditErrRejected
		}
	}
	return auditErrInternal
}

func (c *Client) metricInc(id MetricID) {
	if c == nil || c.metrics == nil {
		return
	}
	c.metrics.Inc(id)
}

func (c *Client) now() time.Time {
	if c == nil || c.clock == nil {
		return time.Now()
	}
	return c.clock()
}
