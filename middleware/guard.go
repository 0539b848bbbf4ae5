package middleware

import (
	"context"
	"net/http"
	"net/url"

	"github.com/owlenglish/examclient/permission"
	"github.com/owlenglish/examclient/session"
)

// Outcome is the result of a guard decision.
type Outcome uint8

const (
	// Allow renders the protected view.
	Allow Outcome = iota
	// RedirectLogin sends an anonymous visitor to the login view.
	RedirectLogin
	// RedirectDenied sends a signed-in visitor without the required role away.
	RedirectDenied
)

func (o Outcome) String() string {
	switch o {
	case Allow:
		return "allow"
	case RedirectLogin:
		return "redirect_login"
	case RedirectDenied:
		return "redirect_denied"
	default:
		return "unknown"
	}
}

// Decision is what [Decide] concluded, with the role it resolved.
type Decision struct {
	Outcome Outcome
	Role    permission.Role
}

// StateSource exposes the current session.
type StateSource interface {
	State() session.State
}

// Decide describes the guard decision for st under req.
//
// No token redirects to login. A token whose user role does not satisfy req
// is denied. A nil reg uses [permission.DefaultRegistry].
func Decide(st session.State, req permission.Requirement, reg *permission.Registry) Decision {
	if !st.Authenticated() {
		return Decision{Outcome: RedirectLogin, Role: permission.RoleUnknown}
	}
	if reg == nil {
		reg = permission.DefaultRegistry()
	}

	role := permission.RoleUnknown
	if st.User != nil {
		role = reg.Resolve(st.User.Role, st.User.RoleID)
	}
	if !permission.Authorize(role, req) {
		return Decision{Outcome: RedirectDenied, Role: role}
	}
	return Decision{Outcome: Allow, Role: role}
}

// GuardOptions configures [Guard] redirects.
type GuardOptions struct {
	// LoginPath defaults to "/login".
	LoginPath string
	// DeniedPath defaults to "/". The redirect carries denied=1.
	DeniedPath string
	Registry   *permission.Registry
}

type decisionContextKey struct{}

// DecisionFromContext returns the decision that admitted the request.
func DecisionFromContext(ctx context.Context) (Decision, bool) {
	d, ok := ctx.Value(decisionContextKey{}).(Decision)
	return d, ok
}

// Guard returns middleware that evaluates [Decide] on every request and
// redirects with 302 Found unless the outcome is [Allow].
func Guard(source StateSource, req permission.Requirement, opts GuardOptions) func(http.Handler) http.Handler {
	loginPath := opts.LoginPath
	if loginPath == "" {
		loginPath = "/login"
	}
	deniedPath := opts.DeniedPath
	if deniedPath == "" {
		deniedPath = "/"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var st session.State
			if source != nil {
				st = source.State()
			}

			d := Decide(st, req, opts.Registry)
			switch d.Outcome {
			case Allow:
				ctx := context.WithValue(r.Context(), decisionContextKey{}, d)
				next.ServeHTTP(w, r.WithContext(ctx))
			case RedirectLogin:
				http.Redirect(w, r, loginPath, http.StatusFound)
			default:
				http.Redirect(w, r, withDenied(deniedPath), http.StatusFound)
			}
		})
	}
}

func withDenied(path string) string {
	u, err := url.Parse(path)
	if err != nil {
		return path
	}
	q := u.Query()
	q.Set("denied", "1")
	u.RawQuery = q.Encode()
	return u.String()
}
