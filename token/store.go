package token

// Store persists the access/refresh token pair on the client.
// An absent token is reported as "" with a nil error. Implementations do not
// look inside the tokens; they are opaque strings.
type Store interface {
	// AccessToken returns the stored access token, "" when none is stored
	AccessToken() (string, error)

	// RefreshToken returns the stored refresh token, "" when none is stored
	RefreshToken() (string, error)

	// SetTokens replaces both tokens; readers never see one updated without the other
	SetTokens(accessToken, refreshToken string) error

	// Clear removes both tokens. Clearing an empty store is a no-op.
	Clear() error
}

// Credentials is the token pair issued by the backend on login
type Credentials struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func (c Credentials) Empty() bool {
	return c.AccessToken == "" && c.RefreshToken == ""
}
