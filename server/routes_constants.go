package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	RouteHome = "/"

	// Auth Routes - Login & Logout. The login page itself lives at LOGIN_ROUTE.
	RouteAuthLogin  = "/auth/login"
	RouteAuthLogout = "/auth/logout"

	// Auth Routes - Registration
	RouteRegister     = "/register"
	RouteAuthRegister = "/auth/register"

	// Protected pages
	RouteProfile    = "/profile"
	RouteItems      = "/items"
	RouteAdminUsers = "/admin/users"

	// API Routes
	RouteAPISession = "/api/session"
	RouteAPIProxy   = "/api/"
)
