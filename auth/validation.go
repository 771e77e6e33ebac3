package auth

import (
	"context"
	"fmt"

	"github.com/jrsteele09/storefront-session/token"
	"github.com/jrsteele09/storefront-session/users"
)

// TokenChecker asks the backend about a single access token
type TokenChecker interface {
	Validate(ctx context.Context, accessToken string) (*ValidateResponse, error)
}

var _ TokenChecker = (*Client)(nil)

// Validator resolves the stored access token into an Identity.
// A nil Identity with a nil error means "nobody is logged in".
type Validator struct {
	store   token.Store
	checker TokenChecker
}

func NewValidator(store token.Store, checker TokenChecker) *Validator {
	return &Validator{
		store:   store,
		checker: checker,
	}
}

// Validate checks the stored access token. With no stored token it returns
// immediately without calling the backend.
func (v *Validator) Validate(ctx context.Context) (*users.Identity, error) {
	accessToken, err := v.store.AccessToken()
	if err != nil {
		return nil, fmt.Errorf("%w: reading stored token: %w", ErrValidationFailed, err)
	}
	return v.ValidateToken(ctx, accessToken)
}

// ValidateToken checks an explicit access token, e.g. one just issued by login
func (v *Validator) ValidateToken(ctx context.Context, accessToken string) (*users.Identity, error) {
	if accessToken == "" {
		return nil, nil
	}

	resp, err := v.checker.Validate(ctx, accessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}
	if resp == nil || !resp.Valid {
		return nil, nil
	}

	identity, err := resp.Identity()
	if err != nil {
		return nil, fmt.Errorf("%w: malformed response: %w", ErrValidationFailed, err)
	}
	return identity, nil
}
