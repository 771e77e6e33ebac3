package server

import (
	"net/http"

	"github.com/jrsteele09/storefront-session/users"
)

func (s *Server) initRoutes() error {
	pages, err := parsePages()
	if err != nil {
		return err
	}
	s.pages = pages

	s.RegisterRouteHandler("GET "+RouteHome+"{$}", ChainMiddleware(s.IndexHandler(), s.HTMLMiddleWare()...))

	// LOGIN
	s.RegisterRouteHandler("GET "+s.guard.LoginRoute(), ChainMiddleware(s.LoginPageUIHandler(), s.HTMLMiddleWare(s.NoStoreMiddleware)...))
	s.RegisterRouteHandler("POST "+RouteAuthLogin, ChainMiddleware(s.LoginSubmissionHandler(), s.FormMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.FormMiddleware()...))

	// REGISTRATION
	s.RegisterRouteHandler("GET "+RouteRegister, ChainMiddleware(s.RegisterPageUIHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteAuthRegister, ChainMiddleware(s.RegisterSubmissionHandler(), s.FormMiddleware()...))

	// Protected pages
	s.RegisterRouteHandler("GET "+RouteProfile, ChainMiddleware(s.ProfileHandler(), s.ProtectedMiddleware(users.RoleUser, users.RoleAdmin)...))
	s.RegisterRouteHandler("GET "+RouteItems, ChainMiddleware(s.ItemsHandler(), s.ProtectedMiddleware(users.RoleUser, users.RoleAdmin)...))
	s.RegisterRouteHandler("GET "+RouteAdminUsers, ChainMiddleware(s.AdminUsersHandler(), s.ProtectedMiddleware(users.RoleAdmin)...))

	// API routes
	s.RegisterRouteHandler("GET "+RouteAPISession, ChainMiddleware(s.SessionStateHandler(), s.APIMiddleware()...))
	if s.apiProxy != nil {
		s.RegisterRouteHandler(RouteAPIProxy, ChainMiddleware(s.apiProxy.ServeHTTP, s.APIMiddleware()...))
	} else {
		s.RegisterRouteHandler(RouteAPIProxy, ChainMiddleware(http.NotFound, s.APIMiddleware()...))
	}
	return nil
}
