package middleware

import "net/http"

// RequireAdmin allows only the listed owners through. It must run after Auth.
// An empty allowlist rejects everyone.
func RequireAdmin(ownerIDs []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(ownerIDs))
	for _, id := range ownerIDs {
		if id != "" {
			allowed[id] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := allowed[GetOwnerID(r.Context())]; !ok {
				writeProblem(w, r, http.StatusForbidden, "administrator access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
