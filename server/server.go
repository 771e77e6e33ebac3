package server

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/jrsteele09/storefront-session/auth"
	"github.com/jrsteele09/storefront-session/guard"
	"github.com/jrsteele09/storefront-session/internal/config"
	"github.com/jrsteele09/storefront-session/session"
	"github.com/jrsteele09/storefront-session/token"
	"github.com/rs/zerolog/log"
)

// AuthAPI is the part of the backend the pages talk to directly
type AuthAPI interface {
	session.Authenticator
	Register(ctx context.Context, req auth.RegisterRequest) error
}

type Server struct {
	env      string // Environment (e.g., "DEV", "PROD")
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	session  *session.Context
	guard    *guard.Guard
	authAPI  AuthAPI
	apiProxy http.Handler // nil when API_BASE_URL is not set
	pages    map[string]*template.Template

	allowedOrigins config.AllowedOrigins
}

// New builds the web shell around the process's single session. store is
// only used to attach the access token to proxied /api/* requests.
func New(cfg config.Config, sess *session.Context, authAPI AuthAPI, store token.Store) (*Server, error) {
	s := &Server{
		env:     cfg.GetEnv(),
		mux:     http.NewServeMux(),
		config:  cfg,
		session: sess,
		guard:   guard.New(cfg.GetLoginRoute(), cfg.GetFallbackRoute()),
		authAPI: authAPI,

		allowedOrigins: cfg.GetAllowedOrigins(),
	}

	if apiBase := cfg.GetAPIBaseURL(); apiBase != "" {
		target, err := url.Parse(apiBase)
		if err != nil {
			return nil, fmt.Errorf("[Server New] invalid API_BASE_URL %q: %w", apiBase, err)
		}
		s.apiProxy = newAPIProxy(target, store, sess, s.guard.LoginRoute())
	}

	if err := s.initRoutes(); err != nil {
		return nil, fmt.Errorf("[Server New] failed to register routes: %w", err)
	}
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	log.Info().Msgf("[%-19s] %s", colourMethod(method), path)
}

func colourMethod(method string) string {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		return color + paddedMethod + ResetColor
	}
	return Gray + paddedMethod + ResetColor
}
