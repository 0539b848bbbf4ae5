package examclient

import (
	"time"

	"github.com/owlenglish/examclient/permission"
	"github.com/owlenglish/examclient/session"
)

// LoginRequest carries password credentials.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest creates a learner account.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
}

// tokenResponse is the backend's answer to login, register and refresh.
type tokenResponse struct {
	AccessToken string        `json:"access_token"`
	TokenType   string        `json:"token_type"`
	User        *session.User `json:"user"`
}

// LoginOption adjusts one Login call.
type LoginOption func(*loginOptions)

type loginOptions struct {
	requirement permission.Requirement
}

// WithRequirement makes Login reject roles outside req. The default accepts
// any role.
func WithRequirement(req permission.Requirement) LoginOption {
	return func(o *loginOptions) { o.requirement = req }
}

// ForAdminArea is WithRequirement(permission.AdminArea()).
func ForAdminArea() LoginOption {
	return WithRequirement(permission.AdminArea())
}

// CallbackResult is the outcome of an OAuth callback: where to go next and
// what to tell the user.
type CallbackResult struct {
	Redirect string
	Message  string
	NewUser  bool
	User     *session.User
}

// SetPasswordResult tells the caller what to show and where to go after
// RedirectAfter.
type SetPasswordResult struct {
	Message       string
	Redirect      string
	RedirectAfter time.Duration
}

// LoginActivity is one entry of the login history.
type LoginActivity struct {
	ID        int64     `json:"id"`
	Provider  string    `json:"provider"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"user_agent"`
	Succeeded bool      `json:"succeeded"`
	CreatedAt time.Time `json:"created_at"`
}

// LoginHistory is one page of login activity, newest first.
type LoginHistory struct {
	Total int             `json:"total"`
	Skip  int             `json:"skip"`
	Limit int             `json:"limit"`
	Data  []LoginActivity `json:"data"`
}

// OTP channels and purposes accepted by the backend.
const (
	OTPChannelEmail    = "email"
	OTPPurposeRegister = "register"
	OTPPurposeLogin    = "login"
)

// OTPRequest asks the backend to send a one-time code.
type OTPRequest struct {
	Channel     string `json:"channel"`
	Destination string `json:"destination"`
	Email       string `json:"email,omitempty"`
	Purpose     string `json:"purpose"`
}

// OTPVerification submits a one-time code. Registration also carries the
// new account's password.
type OTPVerification struct {
	Destination string `json:"destination"`
	OTPCode     string `json:"otp_code"`
	Email       string `json:"email,omitempty"`
	Password    string `json:"password,omitempty"`
	Purpose     string `json:"purpose"`
}

// OTPResult is the backend's answer to an OTP call. SignedIn is set when the
// verification returned a session and the client stored it.
type OTPResult struct {
	Success  bool          `json:"success"`
	Message  string        `json:"message"`
	SignedIn bool          `json:"-"`
	User     *session.User `json:"-"`
}

type messageResponse struct {
	Message string `json:"message"`
}
