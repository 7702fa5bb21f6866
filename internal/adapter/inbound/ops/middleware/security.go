package middleware

import "net/http"

// opsHeaders suit an API that only serves health checks, metrics and JSON to
// scrapers and operators. Nothing it returns is meant for a browser.
var opsHeaders = map[string]string{
	"X-Content-Type-Options":       "nosniff",
	"X-Frame-Options":              "DENY",
	"Cache-Control":                "no-store",
	"Content-Security-Policy":      "default-src 'none'; frame-ancestors 'none'",
	"Referrer-Policy":              "no-referrer",
	"Cross-Origin-Resource-Policy": "same-origin",
}

// SecurityHeaders stamps opsHeaders onto every ops response, including the
// 401 and 429 bodies written before a handler runs.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for k, v := range opsHeaders {
			w.Header().Set(k, v)
		}
		next.ServeHTTP(w, r)
	})
}
