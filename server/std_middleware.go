package server

import (
	"net/http"
	"net/url"
	"runtime/debug"
	"time"

	"github.com/jrsteele09/storefront-session/users"
	"github.com/rs/zerolog/log"
)

func ChainMiddleware(routeFunction http.HandlerFunc, mw ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	chainedHandler := routeFunction
	// Apply middleware in reverse order
	for i := len(mw) - 1; i >= 0; i-- {
		chainedHandler = mw[i](chainedHandler) // Call the middleware function
	}
	return chainedHandler
}

func (s *Server) HTMLMiddleWare(mw ...func(http.HandlerFunc) http.HandlerFunc) []func(http.HandlerFunc) http.HandlerFunc {
	chainedMiddleWare := []func(http.HandlerFunc) http.HandlerFunc{
		s.LoggingMiddleware,
		s.RecoverMiddleware,
		s.FrameSecurityMiddleware,
	}
	chainedMiddleWare = append(chainedMiddleWare, mw...)
	return chainedMiddleWare
}

// ProtectedMiddleware is the HTML chain plus the role guard for a page
func (s *Server) ProtectedMiddleware(roles ...users.Role) []func(http.HandlerFunc) http.HandlerFunc {
	return s.HTMLMiddleWare(s.NoStoreMiddleware, s.RequireRole(roles...))
}

// FormMiddleware is the HTML chain for endpoints that change the session
func (s *Server) FormMiddleware() []func(http.HandlerFunc) http.HandlerFunc {
	return s.HTMLMiddleWare(s.NoStoreMiddleware, s.RejectCrossSiteMiddleware)
}

func (s *Server) APIMiddleware() []func(http.HandlerFunc) http.HandlerFunc {
	return []func(http.HandlerFunc) http.HandlerFunc{
		s.LoggingMiddleware,
		s.RecoverMiddleware,
		s.CorsMiddleware,
		s.RejectCrossSiteAPIMiddleware,
		s.NoStoreMiddleware,
	}
}

// statusRecorder remembers the status code written by the wrapped handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (s *Server) LoggingMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)

		if s.env == "DEV" {
			log.Info().Msgf("[%-19s] %s %s%d%s %s", colourMethod(r.Method), r.URL.Path,
				statusColour(rec.status), rec.status, ResetColor, time.Since(start).Round(time.Microsecond))
			return
		}
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	}
}

func (s *Server) FrameSecurityMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Prevent embedding on other sites
		w.Header().Set("X-Frame-Options", "SAMEORIGIN")
		w.Header().Set("Content-Security-Policy", "frame-ancestors 'self'")
		next(w, r)
	}
}

func (s *Server) RecoverMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.Error().
					Interface("panic", rec).
					Str("path", r.URL.Path).
					Bytes("stack", debug.Stack()).
					Msg("Recovered from panic")
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next(w, r)
	}
}

// NoStoreMiddleware keeps session dependent responses out of browser and proxy caches
func (s *Server) NoStoreMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next(w, r)
	}
}

// CorsMiddleware answers preflight requests and lets the allowed origins read
// API responses. Same-origin requests pass untouched.
func (s *Server) CorsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" || isSameOrigin(r, origin) {
			next(w, r)
			return
		}

		w.Header().Add("Vary", "Origin")
		isAllowed := s.allowedOrigins.IsAllowedOrigin(origin)

		// Preflight; a disallowed origin gets no CORS headers and the browser blocks the real request
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			if isAllowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", s.config.GetAllowedMethods())
				w.Header().Set("Access-Control-Allow-Headers", s.config.GetAllowedHeaders())
				w.Header().Set("Access-Control-Max-Age", "86400")
			}
			w.WriteHeader(http.StatusOK)
			return
		}

		if isAllowed {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		next(w, r)
	}
}

// RejectCrossSiteMiddleware refuses state-changing requests a browser sent
// from a site that is neither the shell nor an allowed origin.
func (s *Server) RejectCrossSiteMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if isSafeMethod(r.Method) || s.trustedOrigin(r) {
			next(w, r)
			return
		}
		logCrossSite(r)
		http.Error(w, "Cross-site request refused", http.StatusForbidden)
	}
}

// RejectCrossSiteAPIMiddleware guards every method: proxied requests carry the
// user's token, so even a cross-site GET must not reach the API.
func (s *Server) RejectCrossSiteAPIMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.trustedOrigin(r) {
			next(w, r)
			return
		}
		logCrossSite(r)
		writeJSON(w, http.StatusForbidden, map[string]string{"message": "Cross-site request refused"})
	}
}

// trustedOrigin reports whether r came from the shell's own pages, an allowed
// origin, or a client that is not a browser (no Origin, no Sec-Fetch-Site).
func (s *Server) trustedOrigin(r *http.Request) bool {
	if origin := r.Header.Get("Origin"); origin != "" {
		return isSameOrigin(r, origin) || s.allowedOrigins.IsAllowedOrigin(origin)
	}
	switch r.Header.Get("Sec-Fetch-Site") {
	case "cross-site", "same-site":
		return false
	}
	return true
}

func isSameOrigin(r *http.Request, origin string) bool {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false // includes the opaque "null" origin
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return u.Scheme == scheme && u.Host == r.Host
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

func logCrossSite(r *http.Request) {
	log.Warn().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Str("origin", r.Header.Get("Origin")).
		Str("sec_fetch_site", r.Header.Get("Sec-Fetch-Site")).
		Msg("Cross-site request refused")
}
