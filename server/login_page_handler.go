package server

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/jrsteele09/storefront-session/auth"
	apperrors "github.com/jrsteele09/storefront-session/internal/errors"
	"github.com/jrsteele09/storefront-session/session"
	"github.com/rs/zerolog/log"
)

// LoginPageUIHandler displays the login page. A user who is
// already logged in is sent to the catalog instead.
func (s *Server) LoginPageUIHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.session.CurrentIdentity() != nil {
			redirectSuccess(w, r, RouteItems)
			return
		}

		data := s.newPageData(r, "Login")
		data.Username = r.URL.Query().Get("username")
		s.renderPage(w, pageLogin, http.StatusOK, data)
	}
}

// LoginSubmissionHandler processes the login form submission
func (s *Server) LoginSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		username := strings.TrimSpace(r.FormValue("username"))
		password := r.FormValue("password")

		if err := s.session.SignIn(r.Context(), s.authAPI, username, password); err != nil {
			log.Warn().Err(err).Str("username", username).Msg("Login failed")
			redirectWithError(w, r, s.guard.LoginRoute(), loginErrorMessage(err), url.Values{"username": {username}})
			return
		}

		redirectSuccess(w, r, RouteItems)
	}
}

// loginErrorMessage turns a SignIn failure into something to show on the login page
func loginErrorMessage(err error) string {
	var apiErr *auth.APIError
	switch {
	case errors.Is(err, apperrors.ErrMissingCredentials):
		return "Username and password are required"
	case errors.As(err, &apiErr):
		return apiErr.Message
	case errors.Is(err, session.ErrSession):
		return "Login failed, please try again"
	default:
		return "The storefront is unreachable, please try again later"
	}
}

func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.session.Logout()
		redirectSuccess(w, r, s.guard.LoginRoute())
	}
}
