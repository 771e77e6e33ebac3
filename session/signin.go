package session

import (
	"context"
	"fmt"
	"strings"

	apperrors "github.com/jrsteele09/storefront-session/internal/errors"
	"github.com/jrsteele09/storefront-session/token"
)

// Authenticator exchanges a username and password for a token pair. *auth.Client satisfies it.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*token.Credentials, error)
}

// SignIn runs the whole login flow: ask the backend for tokens, persist them,
// then Login with the new access token. Backend errors are returned unchanged
// so the caller can show the backend's message.
func (c *Context) SignIn(ctx context.Context, authn Authenticator, username, password string) error {
	if strings.TrimSpace(username) == "" || password == "" {
		return apperrors.ErrMissingCredentials
	}

	creds, err := authn.Login(ctx, username, password)
	if err != nil {
		return err
	}

	// Start the generation before the new pair lands in the store, so an older
	// attempt that settles in between cannot clear it.
	gen := c.begin()
	if err := c.store.SetTokens(creds.AccessToken, creds.RefreshToken); err != nil {
		return fmt.Errorf("[session SignIn] storing tokens: %w", err)
	}
	return c.login(ctx, gen, creds.AccessToken)
}
