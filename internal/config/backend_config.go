package config

import (
	"strings"
	"time"
)

type BackendConfig interface {
	GetAuthBaseURL() string
	GetAPIBaseURL() string
	GetRequestTimeout() time.Duration
}

type Backend struct{}

var _ BackendConfig = Backend{}

// GetAuthBaseURL returns the base of the backend auth API, e.g. "https://shop.example.com/api/auth".
// The validate, login and register endpoints hang off it.
func (Backend) GetAuthBaseURL() string {
	return strings.TrimRight(GetEnv("AUTH_BASE_URL", "http://localhost:8081/api/auth"), "/")
}

func (Backend) GetRequestTimeout() time.Duration {
	return GetDurationEnv("REQUEST_TIMEOUT", 10*time.Second)
}

// GetAPIBaseURL is the backend origin that /api/* requests from the web shell
// are proxied to, with the stored access token attached. Empty disables the proxy.
func (Backend) GetAPIBaseURL() string {
	return strings.TrimRight(GetEnv("API_BASE_URL", ""), "/")
}
