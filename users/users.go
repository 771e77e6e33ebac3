package users

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Role is one of the two roles the storefront backend assigns
type Role string

const (
	RoleAdmin Role = "ADMIN" // Manages users, items, orders and payments
	RoleUser  Role = "USER"  // Shops: browses items, keeps a cart, places orders
)

var knownRoles = []Role{RoleAdmin, RoleUser}

// ParseRole accepts exactly the role names the backend sends; anything else is an error
// so a typo can never turn into a role that happens to pass a membership check.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !slices.Contains(knownRoles, r) {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

func (r Role) String() string {
	return string(r)
}

func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("role must be a string: %w", err)
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// RoleSet is the set of roles a protected route accepts
type RoleSet map[Role]struct{}

func NewRoleSet(roles ...Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

func (s RoleSet) Contains(r Role) bool {
	_, ok := s[r]
	return ok
}

func (s RoleSet) Empty() bool {
	return len(s) == 0
}

func (s RoleSet) String() string {
	names := make([]string, 0, len(s))
	for _, r := range knownRoles {
		if s.Contains(r) {
			names = append(names, string(r))
		}
	}
	return strings.Join(names, ",")
}

// Identity is the backend-confirmed user behind a live access token.
// Only the session validator builds one.
type Identity struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	Valid    bool   `json:"valid"`
}

func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == RoleAdmin
}
