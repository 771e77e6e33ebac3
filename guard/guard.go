// Package guard decides whether a protected view may be shown for the current session.
//
// The decision is advisory. The backend still authorizes every API call.
package guard

import (
	"fmt"

	"github.com/jrsteele09/storefront-session/session"
	"github.com/jrsteele09/storefront-session/users"
)

type Kind int

const (
	// Pending means the session is still booting; show a neutral placeholder
	Pending Kind = iota
	// Redirect means navigate to Decision.Route, replacing the current history entry
	Redirect
	// Allow means render the protected content
	Allow
)

func (k Kind) String() string {
	switch k {
	case Pending:
		return "pending"
	case Redirect:
		return "redirect"
	case Allow:
		return "allow"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

type Decision struct {
	Kind  Kind
	Route string // set for Redirect
}

type Guard struct {
	loginRoute    string
	fallbackRoute string
}

// New creates a guard sending anonymous users to loginRoute and users
// without a required role to fallbackRoute
func New(loginRoute, fallbackRoute string) *Guard {
	return &Guard{
		loginRoute:    loginRoute,
		fallbackRoute: fallbackRoute,
	}
}

func (g *Guard) LoginRoute() string {
	return g.loginRoute
}

func (g *Guard) FallbackRoute() string {
	return g.fallbackRoute
}

// Decide is a pure function of the state and the required roles.
// An empty role set is a wiring mistake and panics.
func (g *Guard) Decide(state session.State, required users.RoleSet) Decision {
	if required.Empty() {
		panic("guard: protected route requires at least one role")
	}

	switch {
	case state.Loading():
		return Decision{Kind: Pending}
	case state.Identity == nil:
		return Decision{Kind: Redirect, Route: g.loginRoute}
	case !required.Contains(state.Identity.Role):
		return Decision{Kind: Redirect, Route: g.fallbackRoute}
	default:
		return Decision{Kind: Allow}
	}
}
