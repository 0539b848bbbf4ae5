package middleware

import (
	"net/http"

	"github.com/owlenglish/examclient/permission"
)

// RequireAdmin guards the administrative area. Anonymous visitors go to
// "/admin/login"; other roles go to "/".
func RequireAdmin(source StateSource, reg *permission.Registry) func(http.Handler) http.Handler {
	return Guard(source, permission.AdminArea(), GuardOptions{
		LoginPath:  "/admin/login",
		DeniedPath: "/",
		Registry:   reg,
	})
}

// RequireSignedIn guards views open to any signed-in user.
func RequireSignedIn(source StateSource) func(http.Handler) http.Handler {
	return Guard(source, permission.Authenticated(), GuardOptions{})
}
