package server

import (
	"net/http"
)

// IndexHandler sends visitors to the catalog; the guard takes it from there
func (s *Server) IndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		redirectSuccess(w, r, RouteItems)
	}
}

func (s *Server) ProfileHandler() http.HandlerFunc {
	return s.guardedPage(pageProfile, "Profile")
}

func (s *Server) ItemsHandler() http.HandlerFunc {
	return s.guardedPage(pageItems, "Items")
}

func (s *Server) AdminUsersHandler() http.HandlerFunc {
	return s.guardedPage(pageAdminUsers, "Users")
}

// guardedPage renders a page behind RequireRole with the identity it admitted
func (s *Server) guardedPage(page, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := s.newPageData(r, title)
		data.Identity = identityFromContext(r.Context())
		s.renderPage(w, page, http.StatusOK, data)
	}
}
