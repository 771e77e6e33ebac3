package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jrsteele09/storefront-session/guard"
	"github.com/jrsteele09/storefront-session/users"
	"github.com/rs/zerolog/log"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyIdentity stores the *users.Identity the guard admitted
	ContextKeyIdentity ContextKey = "identity"
)

// RequireRole guards an HTML route with the session's route guard. Roles are
// checked when the route is registered: an unknown or missing role panics.
//
// While the session is booting a placeholder page that refreshes itself is
// served; redirects use 303, or HX-Redirect for htmx requests.
func (s *Server) RequireRole(roles ...users.Role) func(http.HandlerFunc) http.HandlerFunc {
	required := users.NewRoleSet()
	for _, r := range roles {
		role, err := users.ParseRole(string(r))
		if err != nil {
			panic(fmt.Sprintf("RequireRole: %v", err))
		}
		required[role] = struct{}{}
	}
	if required.Empty() {
		panic("RequireRole: at least one role is required")
	}

	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			state := s.session.State()
			decision := s.guard.Decide(state, required)

			switch decision.Kind {
			case guard.Pending:
				w.Header().Set("Retry-After", "1")
				s.renderPage(w, pagePending, http.StatusOK, s.newPageData(r, "Loading"))
			case guard.Redirect:
				log.Debug().
					Str("path", r.URL.Path).
					Str("required", required.String()).
					Str("to", decision.Route).
					Msg("guard redirect")
				redirectSuccess(w, r, decision.Route)
			case guard.Allow:
				ctx := context.WithValue(r.Context(), ContextKeyIdentity, state.Identity)
				next(w, r.WithContext(ctx))
			}
		}
	}
}

// identityFromContext returns the identity RequireRole admitted, if any
func identityFromContext(ctx context.Context) *users.Identity {
	identity, _ := ctx.Value(ContextKeyIdentity).(*users.Identity)
	return identity
}
