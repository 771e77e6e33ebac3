package token

import (
	"errors"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// ErrNoAccessToken is returned by the store-backed TokenSource when nothing is stored
var ErrNoAccessToken = errors.New("no access token stored")

type storeSource struct {
	store Store
}

// NewTokenSource exposes the stored access token as an oauth2.TokenSource.
// The store is read on every call so a login or logout takes effect immediately.
func NewTokenSource(store Store) oauth2.TokenSource {
	return storeSource{store: store}
}

func (s storeSource) Token() (*oauth2.Token, error) {
	access, err := s.store.AccessToken()
	if err != nil {
		return nil, err
	}
	if access == "" {
		return nil, ErrNoAccessToken
	}
	return &oauth2.Token{AccessToken: access, TokenType: "Bearer"}, nil
}

// Transport adds "Authorization: Bearer <access token>" to outgoing requests.
// Unlike oauth2.Transport, a missing token is not an error: the request goes
// out anonymously and the backend decides.
type Transport struct {
	Source oauth2.TokenSource
	Base   http.RoundTripper
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	tok, err := t.Source.Token()
	if errors.Is(err, ErrNoAccessToken) {
		return t.base().RoundTrip(req)
	}
	if err != nil {
		if req.Body != nil {
			req.Body.Close()
		}
		return nil, err
	}

	authed := req.Clone(req.Context())
	tok.SetAuthHeader(authed)
	return t.base().RoundTrip(authed)
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

// NewHTTPClient returns a client whose requests carry the stored access token
func NewHTTPClient(store Store, timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: &Transport{Source: NewTokenSource(store)},
	}
}
