package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/jonny/askuser-bot/pkg/apierror"
)

// BearerAuth rejects requests whose Authorization header does not carry token.
// An empty token disables the check.
func BearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scheme, value, ok := strings.Cut(r.Header.Get("Authorization"), " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") {
				w.Header().Set("WWW-Authenticate", `Bearer realm="askuser"`)
				apierror.Write(w, apierror.Unauthorized("missing bearer token"))
				return
			}
			if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(value)), []byte(token)) != 1 {
				apierror.Write(w, apierror.Unauthorized("invalid bearer token"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
