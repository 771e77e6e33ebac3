package server

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/jrsteele09/storefront-session/auth"
	"github.com/rs/zerolog/log"
)

// RegisterPageUIHandler renders the registration page
func (s *Server) RegisterPageUIHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		data := s.newPageData(r, "Register")
		data.Username = q.Get("username")
		data.Register = RegisterFormData{
			Name:      q.Get("name"),
			Surname:   q.Get("surname"),
			BirthDate: q.Get("birthDate"),
			Email:     q.Get("email"),
		}
		s.renderPage(w, pageRegister, http.StatusOK, data)
	}
}

// RegisterSubmissionHandler creates the account and sends the user to the login page
func (s *Server) RegisterSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		req := auth.RegisterRequest{
			Username:  strings.TrimSpace(r.FormValue("username")),
			Password:  r.FormValue("password"),
			Name:      strings.TrimSpace(r.FormValue("name")),
			Surname:   strings.TrimSpace(r.FormValue("surname")),
			BirthDate: strings.TrimSpace(r.FormValue("birthDate")),
			Email:     strings.TrimSpace(r.FormValue("email")),
		}

		// Everything but the password goes back into the form on error
		refill := url.Values{
			"username":  {req.Username},
			"name":      {req.Name},
			"surname":   {req.Surname},
			"birthDate": {req.BirthDate},
			"email":     {req.Email},
		}

		if err := s.authAPI.Register(r.Context(), req); err != nil {
			log.Warn().Err(err).Str("username", req.Username).Msg("Registration failed")
			redirectWithError(w, r, RouteRegister, registerErrorMessage(err), refill)
			return
		}

		log.Info().Str("username", req.Username).Msg("Registered new account")
		redirectWithMessage(w, r, s.guard.LoginRoute(), "Registration successful, please log in")
	}
}

func registerErrorMessage(err error) string {
	var apiErr *auth.APIError
	switch {
	case errors.Is(err, auth.ErrMissingFields):
		return "All fields are required"
	case errors.As(err, &apiErr):
		return apiErr.Message
	default:
		return "Registration failed, please try again later"
	}
}
