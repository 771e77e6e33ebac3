// Package fakebackend is an in-memory stand-in for the storefront backend's
// auth API. It backs the mock-backend command and the client tests.
package fakebackend

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jrsteele09/storefront-session/auth"
	apperrors "github.com/jrsteele09/storefront-session/internal/errors"
	"github.com/jrsteele09/storefront-session/token"
	"github.com/jrsteele09/storefront-session/users"
	"github.com/rs/zerolog/log"
)

const (
	// AuthBase is where the auth endpoints are mounted
	AuthBase = "/api/auth"

	contentTypeJSON = "application/json"
)

// Backend serves POST /api/auth/{login,register,validate}
type Backend struct {
	mux      *http.ServeMux
	accounts *accountRepo
	tokens   *tokenIssuer

	validateCalls atomic.Int64
}

func New(signingSecret string, tokenExpiry time.Duration) *Backend {
	b := &Backend{
		mux:      http.NewServeMux(),
		accounts: newAccountRepo(),
		tokens:   newTokenIssuer(signingSecret, tokenExpiry),
	}
	b.mux.HandleFunc("POST "+AuthBase+auth.RouteLogin, b.LoginHandler())
	b.mux.HandleFunc("POST "+AuthBase+auth.RouteRegister, b.RegisterHandler())
	b.mux.HandleFunc("POST "+AuthBase+auth.RouteValidate, b.ValidateHandler())
	return b
}

func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mux.ServeHTTP(w, r)
}

// SeedAccount adds an active account with the given role
func (b *Backend) SeedAccount(username, password string, role users.Role) (Account, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return Account{}, err
	}
	return b.accounts.Insert(Account{
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		Active:       true,
	})
}

// SeedDefaults adds the admin/admin and user/user accounts used for local development
func (b *Backend) SeedDefaults() error {
	if _, err := b.SeedAccount("admin", "admin", users.RoleAdmin); err != nil {
		return err
	}
	_, err := b.SeedAccount("user", "user", users.RoleUser)
	return err
}

// Accounts lists every account, ordered by id
func (b *Backend) Accounts() []Account {
	return b.accounts.List()
}

// Revoke invalidates an issued access token before its expiry
func (b *Backend) Revoke(accessToken string) error {
	return b.tokens.Revoke(accessToken)
}

// Deactivate blocks an account; its live tokens stop validating
func (b *Backend) Deactivate(userID int64) error {
	return b.accounts.SetActive(userID, false)
}

// ValidateCalls reports how many validate requests reached the backend
func (b *Backend) ValidateCalls() int64 {
	return b.validateCalls.Load()
}

func (b *Backend) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.LoginRequest
		if err := decodeJSON(r, &req); err != nil {
			writeMessage(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.Username == "" || req.Password == "" {
			writeMessage(w, http.StatusBadRequest, "Username and password are required")
			return
		}

		account, err := b.authenticate(req.Username, req.Password)
		if errors.Is(err, apperrors.ErrInvalidCredentials) {
			writeMessage(w, http.StatusUnauthorized, "Invalid username or password")
			return
		}
		if !account.Active {
			writeMessage(w, http.StatusForbidden, "Account is inactive")
			return
		}

		accessToken, err := b.tokens.CreateAccessToken(account)
		if err != nil {
			log.Err(err).Msg("Failed to create access token")
			writeMessage(w, http.StatusInternalServerError, "Login failed")
			return
		}
		refreshToken, err := b.tokens.CreateRefreshToken()
		if err != nil {
			log.Err(err).Msg("Failed to create refresh token")
			writeMessage(w, http.StatusInternalServerError, "Login failed")
			return
		}

		log.Info().Int64("user_id", account.ID).Str("username", account.Username).Msg("login")
		writeJSON(w, http.StatusOK, token.Credentials{AccessToken: accessToken, RefreshToken: refreshToken})
	}
}

func (b *Backend) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.RegisterRequest
		if err := decodeJSON(r, &req); err != nil {
			writeMessage(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if err := req.Validate(); err != nil {
			writeMessage(w, http.StatusBadRequest, "All fields are required")
			return
		}
		if !strings.Contains(req.Email, "@") {
			writeMessage(w, http.StatusBadRequest, "Invalid email format")
			return
		}
		if _, err := time.Parse(time.DateOnly, req.BirthDate); err != nil {
			writeMessage(w, http.StatusBadRequest, "Birth date must be YYYY-MM-DD")
			return
		}

		hash, err := HashPassword(req.Password)
		if err != nil {
			log.Err(err).Msg("Failed to hash password")
			writeMessage(w, http.StatusInternalServerError, "Registration failed")
			return
		}

		account, err := b.accounts.Insert(Account{
			Username:     req.Username,
			PasswordHash: hash,
			Name:         req.Name,
			Surname:      req.Surname,
			BirthDate:    req.BirthDate,
			Email:        req.Email,
			Role:         users.RoleUser,
			Active:       true,
		})
		if errors.Is(err, apperrors.ErrUserExists) {
			writeMessage(w, http.StatusConflict, "Username already taken")
			return
		}
		if err != nil {
			writeMessage(w, http.StatusInternalServerError, "Registration failed")
			return
		}

		writeJSON(w, http.StatusCreated, account)
	}
}

// ValidateHandler answers {valid:false} for any token it cannot vouch for.
// Only a broken request body is an HTTP error.
func (b *Backend) ValidateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.validateCalls.Add(1)

		var req auth.ValidateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeMessage(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		claims, err := b.tokens.Inspect(req.Token)
		if err != nil {
			log.Debug().Err(err).Msg("validate: token rejected")
			writeJSON(w, http.StatusOK, auth.ValidateResponse{Valid: false})
			return
		}

		account, err := b.accounts.GetByID(claims.UserID)
		if err != nil || !account.Active {
			writeJSON(w, http.StatusOK, auth.ValidateResponse{Valid: false})
			return
		}

		writeJSON(w, http.StatusOK, auth.ValidateResponse{
			Valid:    true,
			UserID:   account.ID,
			Role:     string(account.Role),
			Username: account.Username,
		})
	}
}

// authenticate returns ErrInvalidCredentials for an unknown user or a wrong
// password alike. Inactive accounts still authenticate; the caller decides.
func (b *Backend) authenticate(username, password string) (Account, error) {
	account, err := b.accounts.GetByUsername(username)
	if err != nil || !CheckPasswordHash(password, account.PasswordHash) {
		return Account{}, apperrors.ErrInvalidCredentials
	}
	return account, nil
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperrors.Wrapf(apperrors.ErrInvalidRequest, "decoding %s body", r.URL.Path)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Err(err).Msg("Failed to write response")
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
