package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/storefront-session/token"
	"github.com/jrsteele09/storefront-session/users"
	"github.com/rs/zerolog/log"
)

const (
	RouteLogin    = "/login"
	RouteRegister = "/register"
	RouteValidate = "/validate"

	RequestIDHeader = "X-Request-ID"

	maxErrorBody = 4 << 10
)

// LoginRequest is the body of POST <auth-base>/login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest is the body of POST <auth-base>/register
type RegisterRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	Name      string `json:"name"`
	Surname   string `json:"surname"`
	BirthDate string `json:"birthDate"` // YYYY-MM-DD
	Email     string `json:"email"`
}

// Validate checks every field is filled in; the backend owns the real rules
func (r RegisterRequest) Validate() error {
	for _, v := range []string{r.Username, r.Password, r.Name, r.Surname, r.BirthDate, r.Email} {
		if strings.TrimSpace(v) == "" {
			return ErrMissingFields
		}
	}
	return nil
}

// ValidateRequest is the body of POST <auth-base>/validate
type ValidateRequest struct {
	Token string `json:"token"`
}

// ValidateResponse is the backend's verdict on a token. Valid=false is a
// normal answer for an expired or revoked token.
type ValidateResponse struct {
	Valid    bool   `json:"valid"`
	UserID   int64  `json:"userId"`
	Role     string `json:"role"`
	Username string `json:"username"`
}

// Identity converts a valid response; an unknown role makes the response malformed
func (r *ValidateResponse) Identity() (*users.Identity, error) {
	role, err := users.ParseRole(r.Role)
	if err != nil {
		return nil, err
	}
	return &users.Identity{
		UserID:   r.UserID,
		Username: r.Username,
		Role:     role,
		Valid:    r.Valid,
	}, nil
}

// Client talks to the storefront backend's auth API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the auth API rooted at baseURL (e.g. "http://localhost:8081/api/auth").
// A nil httpClient gets a plain client with a 10 second timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Login exchanges a username and password for a token pair
func (c *Client) Login(ctx context.Context, username, password string) (*token.Credentials, error) {
	resp, err := c.post(ctx, RouteLogin, LoginRequest{Username: username, Password: password})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, apiError(resp, "Login failed")
	}

	var creds token.Credentials
	if err := json.NewDecoder(resp.Body).Decode(&creds); err != nil {
		return nil, fmt.Errorf("[auth Login] decoding response: %w", err)
	}
	if creds.AccessToken == "" {
		return nil, fmt.Errorf("[auth Login] response carries no access token")
	}
	return &creds, nil
}

// Register creates a new shopper account
func (c *Client) Register(ctx context.Context, req RegisterRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	resp, err := c.post(ctx, RouteRegister, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return apiError(resp, "Registration failed")
	}
	return nil
}

// Validate asks the backend whether accessToken is live. A 401 or 403 is
// read as "not valid", the same as a {valid:false} body. Transport failures,
// other statuses and undecodable bodies come back as errors.
func (c *Client) Validate(ctx context.Context, accessToken string) (*ValidateResponse, error) {
	resp, err := c.post(ctx, RouteValidate, ValidateRequest{Token: accessToken})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		return &ValidateResponse{Valid: false}, nil
	case resp.StatusCode/100 != 2:
		return nil, apiError(resp, "Validation failed")
	}

	var out ValidateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("[auth Validate] decoding response: %w", err)
	}
	return &out, nil
}

func (c *Client) post(ctx context.Context, path string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("[auth post] encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("[auth post] creating request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)

	log.Debug().Str("request_id", requestID).Str("path", path).Msg("auth api request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("[auth post] %s: %w", path, err)
	}
	return resp, nil
}

// apiError extracts the backend's message from an error body: "message",
// then "error", then the raw text, then the fallback.
func apiError(resp *http.Response, fallback string) *APIError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	msg := ""
	if err := json.Unmarshal(raw, &body); err == nil {
		msg = body.Message
		if msg == "" {
			msg = body.Error
		}
	} else {
		msg = strings.TrimSpace(string(raw))
	}
	if msg == "" {
		msg = fallback
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}
