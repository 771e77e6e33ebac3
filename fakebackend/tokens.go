package fakebackend

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/storefront-session/internal/errors"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

const refreshTokenLength = 32 // bytes

// tokenClaims is what a valid access token resolves to
type tokenClaims struct {
	UserID   int64
	Username string
	Role     string
	JTI      string
	Expiry   time.Time
}

// revokedTokens remembers revoked token ids until the token would have expired anyway
type revokedTokens struct {
	revoked map[string]time.Time
	mu      sync.RWMutex
}

func newRevokedTokens() *revokedTokens {
	return &revokedTokens{
		revoked: make(map[string]time.Time),
	}
}

func (c *revokedTokens) Add(jti string, exp time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.revoked[jti] = exp
}

func (c *revokedTokens) IsRevoked(jti string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, exists := c.revoked[jti]
	return exists
}

func (c *revokedTokens) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := NowTimeFunc()
	for jti, exp := range c.revoked {
		if now.After(exp) {
			delete(c.revoked, jti)
		}
	}
}

// tokenIssuer creates access tokens as JWTs and refresh tokens as random hex strings
type tokenIssuer struct {
	signer  *hmacSigner
	expiry  time.Duration
	revoked *revokedTokens
}

func newTokenIssuer(secret string, expiry time.Duration) *tokenIssuer {
	return &tokenIssuer{
		signer:  newHMACSigner(secret),
		expiry:  expiry,
		revoked: newRevokedTokens(),
	}
}

func (t *tokenIssuer) CreateAccessToken(a Account) (string, error) {
	now := NowTimeFunc()
	claims := jwt.MapClaims{
		"sub":      strconv.FormatInt(a.ID, 10), // Storefront user id
		"username": a.Username,
		"role":     string(a.Role),
		"iat":      now.Unix(),
		"exp":      now.Add(t.expiry).Unix(),
		"jti":      uuid.New().String(), // Unique token ID for revocation
	}
	return t.signer.Sign(claims)
}

func (t *tokenIssuer) CreateRefreshToken() (string, error) {
	tokenBytes := make([]byte, refreshTokenLength)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(tokenBytes), nil
}

// Inspect verifies signature, expiry and revocation and returns the claims
func (t *tokenIssuer) Inspect(rawToken string) (*tokenClaims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, apperrors.ErrInvalidToken
	}

	token, err := jwt.ParseWithClaims(rawToken, jwt.MapClaims{}, t.signer.GetVerificationKey,
		jwt.WithTimeFunc(NowTimeFunc),
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.ErrTokenExpired
		}
		return nil, apperrors.Wrapf(apperrors.ErrInvalidToken, "%s", err.Error())
	}
	if !token.Valid {
		return nil, apperrors.ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, apperrors.ErrInvalidToken
	}

	sub, _ := claims["sub"].(string)
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidToken, "bad subject %q", sub)
	}
	username, _ := claims["username"].(string)
	role, _ := claims["role"].(string)
	jti, _ := claims["jti"].(string)
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, apperrors.ErrInvalidToken
	}

	if jti != "" && t.revoked.IsRevoked(jti) {
		return nil, apperrors.ErrTokenRevoked
	}

	return &tokenClaims{
		UserID:   userID,
		Username: username,
		Role:     role,
		JTI:      jti,
		Expiry:   exp.Time,
	}, nil
}

// Revoke marks an access token as no longer valid
func (t *tokenIssuer) Revoke(rawToken string) error {
	claims, err := t.Inspect(rawToken)
	if err != nil {
		return err
	}
	if claims.JTI == "" {
		return apperrors.Wrapf(apperrors.ErrInvalidToken, "token has no jti")
	}
	t.revoked.Cleanup()
	t.revoked.Add(claims.JTI, claims.Expiry)
	return nil
}
