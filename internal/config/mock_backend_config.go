package config

import (
	"strings"
	"time"
)

type MockBackendConfig interface {
	GetMockBackendPort() string
	GetMockSigningSecret() string
	GetMockTokenExpiry() time.Duration
}

type MockBackend struct{}

var _ MockBackendConfig = MockBackend{}

func (MockBackend) GetMockBackendPort() string {
	port := GetEnv("MOCK_BACKEND_PORT", "8081")
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}
	return port
}

func (MockBackend) GetMockSigningSecret() string {
	return GetEnv("MOCK_SIGNING_SECRET", "storefront-dev-secret")
}

func (MockBackend) GetMockTokenExpiry() time.Duration {
	return GetDurationEnv("MOCK_TOKEN_EXPIRY", 15*time.Minute)
}
