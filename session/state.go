package session

import "github.com/jrsteele09/storefront-session/users"

type Status int

const (
	Initializing Status = iota
	Anonymous
	Authenticated
)

func (s Status) String() string {
	switch s {
	case Initializing:
		return "INITIALIZING"
	case Anonymous:
		return "ANONYMOUS"
	case Authenticated:
		return "AUTHENTICATED"
	default:
		return "UNKNOWN"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// State is a snapshot of the session. Identity is set only when Status is Authenticated.
type State struct {
	Status   Status          `json:"status"`
	Identity *users.Identity `json:"identity,omitempty"`
}

// Loading reports whether the boot validation is still pending.
// While loading, Identity is not authoritative.
func (s State) Loading() bool {
	return s.Status == Initializing
}

func (s State) equal(o State) bool {
	if s.Status != o.Status {
		return false
	}
	if s.Identity == nil || o.Identity == nil {
		return s.Identity == o.Identity
	}
	return *s.Identity == *o.Identity
}
