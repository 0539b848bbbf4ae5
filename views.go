package examclient

// Views the flows redirect to. They match the web frontend routes so a caller
// serving those routes can redirect verbatim.
const (
	ViewLogin          = "/login"
	ViewAdminLogin     = "/admin/login"
	ViewHome           = "/"
	ViewAdminDashboard = "/admin/dashboard"
	ViewSetPassword    = "/set-password"
)
