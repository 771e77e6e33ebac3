package config

import (
	"net/url"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"
)

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type Cors struct{}

var _ CorsConfig = Cors{}

// AllowedOrigins holds the cross-origin sites, besides the shell itself, that
// may call the shell's endpoints on the user's behalf
type AllowedOrigins map[string]struct{}
type nullValue = struct{}

func (a AllowedOrigins) IsAllowedOrigin(origin string) bool {
	_, ok := a[origin]
	return ok
}

func (a AllowedOrigins) String() string {
	origins := make([]string, 0, len(a))
	for k := range a {
		origins = append(origins, k)
	}
	slices.Sort(origins)
	return strings.Join(origins, ", ")
}

// GetAllowedOrigins parses ALLOWED_ORIGINS, a comma separated list of origins
// such as "https://shop.example.com". Wildcards are not accepted: the shell
// attaches the user's token to proxied requests.
func (Cors) GetAllowedOrigins() AllowedOrigins {
	origins := AllowedOrigins{}
	for _, raw := range strings.Split(GetEnv("ALLOWED_ORIGINS", ""), ",") {
		origin := strings.TrimRight(strings.TrimSpace(raw), "/")
		if origin == "" {
			continue
		}
		u, err := url.Parse(origin)
		if origin == "*" || err != nil || u.Scheme == "" || u.Host == "" {
			log.Warn().Str("origin", origin).Msg("ALLOWED_ORIGINS: ignoring entry, expected scheme://host[:port]")
			continue
		}
		origins[origin] = nullValue{}
	}
	return origins
}

func (Cors) GetAllowedMethods() string {
	return "GET, POST, PUT, PATCH, DELETE"
}

func (Cors) GetAllowedHeaders() string {
	return "Content-Type, HX-Request, HX-Current-URL, HX-Target, HX-Trigger"
}
