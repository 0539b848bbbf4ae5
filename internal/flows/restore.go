package flows

import (
	"context"

	"github.com/owlenglish/examclient/session"
)

// RestoreDeps captures startup restore dependencies.
type RestoreDeps struct {
	Load    func(ctx context.Context) error
	State   func() session.State
	FetchMe func(ctx context.Context) (*session.User, error)
	SetUser func(ctx context.Context, user *session.User) error

	Warn   func(string, ...any)
	Errors RestoreErrors
}

// RestoreErrors carries host-level sentinel errors used by the restore flow.
type RestoreErrors struct {
	ClientNotReady error
}

// RunRestore resumes the persisted session and refreshes the profile.
//
// Without a token it clears any stray profile. With one it fetches the
// current user; on failure the profile is cleared and the token kept, since
// an expired token is already cleared by the 401 handling of the transport.
func RunRestore(ctx context.Context, deps RestoreDeps) (session.State, error) {
	if deps.Warn == nil {
		deps.Warn = noopWarn
	}
	if deps.Load == nil || deps.State == nil || deps.FetchMe == nil || deps.SetUser == nil {
		return session.State{}, deps.Errors.ClientNotReady
	}

	if err := deps.Load(ctx); err != nil {
		return session.State{}, err
	}

	st := deps.State()
	if !st.Authenticated() {
		if st.User != nil {
			if err := deps.SetUser(ctx, nil); err != nil {
				return deps.State(), err
			}
		}
		return deps.State(), nil
	}

	user, err := deps.FetchMe(ctx)
	if err != nil {
		deps.Warn("examclient: restore profile failed", "error", err)
		if serr := deps.SetUser(ctx, nil); serr != nil {
			deps.Warn("examclient: clear profile failed", "error", serr)
		}
		return deps.State(), err
	}
	if err := deps.SetUser(ctx, user); err != nil {
		return deps.State(), err
	}
	return deps.State(), nil
}
