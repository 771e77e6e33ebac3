package config

import "time"

// DefaultLoginRoute is served when LOGIN_ROUTE is not set
const DefaultLoginRoute = "/login"

type GuardConfig interface {
	GetLoginRoute() string
	GetFallbackRoute() string
	GetRevalidateInterval() time.Duration
}

type Guard struct{}

var _ GuardConfig = Guard{}

func (Guard) GetLoginRoute() string {
	return GetEnv("LOGIN_ROUTE", DefaultLoginRoute)
}

// GetFallbackRoute is where an authenticated user lacking the required role lands.
// Deployments differ: some send users to their profile, others to the catalog ("/items").
func (Guard) GetFallbackRoute() string {
	return GetEnv("FALLBACK_ROUTE", "/profile")
}

// GetRevalidateInterval of zero disables periodic revalidation
func (Guard) GetRevalidateInterval() time.Duration {
	return GetDurationEnv("REVALIDATE_INTERVAL", 0)
}
