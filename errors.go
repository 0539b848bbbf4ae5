package examclient

import "errors"

var (
	// ErrClientNotReady is returned by methods of a Client that was not built
	// through [Builder.Build].
	ErrClientNotReady = errors.New("client not initialized")
	// ErrRoleNotPermitted is returned by Login when the signed-in role does not
	// satisfy the requested area. The session is cleared before it is returned.
	ErrRoleNotPermitted = errors.New("role not permitted for this area")
	// ErrPasswordMismatch is returned by SetPassword when the confirmation differs.
	ErrPasswordMismatch = errors.New("passwords do not match")
	// ErrPasswordTooShort is returned by SetPassword below the configured minimum length.
	ErrPasswordTooShort = errors.New("password too short")
	// ErrInvalidCallback is returned for an OAuth callback without usable sign-in data.
	ErrInvalidCallback = errors.New("invalid oauth callback")
	// ErrOAuthRejected is returned when the backend reported an OAuth error code.
	ErrOAuthRejected = errors.New("oauth sign-in rejected")
	// ErrNotSignedIn is returned by operations that need a token when there is none.
	ErrNotSignedIn = errors.New("not signed in")
	// ErrInvalidConfig wraps configuration validation failures.
	ErrInvalidConfig = errors.New("invalid config")
)
