package server

import (
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/jrsteele09/storefront-session/session"
	"github.com/jrsteele09/storefront-session/token"
	"github.com/rs/zerolog/log"
)

// newAPIProxy forwards /api/* to the storefront API with the stored access
// token as a bearer header. A 401 from the API triggers a revalidation, so a
// dead token ends the session and the next guarded page goes to login.
func newAPIProxy(target *url.URL, store token.Store, sess *session.Context, loginRoute string) *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			pr.Out.Header.Del("Cookie")
			pr.Out.Header.Del("Authorization")
		},
		Transport: &token.Transport{Source: token.NewTokenSource(store)},
		ModifyResponse: func(resp *http.Response) error {
			if resp.StatusCode != http.StatusUnauthorized {
				return nil
			}
			if err := sess.Revalidate(resp.Request.Context()); err != nil {
				log.Warn().Err(err).Msg("api proxy: revalidation after 401 failed")
			}
			if isHTMXRequest(resp.Request) && sess.CurrentIdentity() == nil {
				resp.Header.Set("HX-Redirect", loginRoute)
			}
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			log.Err(err).Str("path", r.URL.Path).Msg("api proxy: upstream request failed")
			writeJSON(w, http.StatusBadGateway, map[string]string{"message": "Storefront API unavailable"})
		},
	}
}
