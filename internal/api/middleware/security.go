package middleware

import (
	"net/http"

	"github.com/fleetminder/fleetminder/internal/api/models"
)

// apiSecurityHeaders are sent on every response. The API only serves JSON to
// authenticated fleet owners, so nothing is framed, sniffed or cached.
var apiSecurityHeaders = map[string]string{
	"X-Content-Type-Options":    "nosniff",
	"X-Frame-Options":           "DENY",
	"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
	"Content-Security-Policy":   "default-src 'none'; frame-ancestors 'none'",
	"Referrer-Policy":           "no-referrer",
	"Cache-Control":             "no-store",
}

// SecurityHeaders sets the API response hardening headers. Handlers may
// still override any of them, e.g. Cache-Control on public ops endpoints.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		for name, value := range apiSecurityHeaders {
			h.Set(name, value)
		}
		next.ServeHTTP(w, r)
	})
}

// RequireTLS rejects plain-HTTP requests forwarded by the load balancer when
// enabled. Requests without X-Forwarded-Proto reached the server directly and
// are allowed.
func RequireTLS(enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" && proto != "https" {
				models.NewProblem(http.StatusForbidden, GetRequestID(r.Context()), "fleet data is only served over HTTPS").
					WithType(models.ProblemTypeTLSRequired, "TLS required").
					WithInstance(r.URL.Path).
					Write(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
