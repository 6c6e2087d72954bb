package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/fleetminder/fleetminder/internal/auth"
)

// TokenValidator resolves a bearer token to the owner it was issued for.
type TokenValidator interface {
	ValidateAccessToken(token string) (string, error)
}

type ownerIDKey struct{}

// bearerRealm is advertised in WWW-Authenticate challenges.
const bearerRealm = "fleetminder"

// Auth requires a valid bearer token and stores its owner ID in the context.
// Every fleet resource downstream is scoped by that owner.
func Auth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, problem := bearerToken(r.Header.Get("Authorization"))
			if problem != "" {
				challenge(w, r, "", problem)
				return
			}

			ownerID, err := validator.ValidateAccessToken(token)
			switch {
			case errors.Is(err, auth.ErrAccessTokenExpired):
				challenge(w, r, "invalid_token", "access token has expired")
				return
			case errors.Is(err, auth.ErrInvalidAccessToken):
				challenge(w, r, "invalid_token", "invalid access token")
				return
			case err != nil:
				challenge(w, r, "invalid_token", "authentication failed")
				return
			}

			annotateOwner(r.Context(), ownerID)
			next.ServeHTTP(w, r.WithContext(WithOwnerID(r.Context(), ownerID)))
		})
	}
}

// bearerToken extracts the token from an Authorization header. The scheme is
// matched case-insensitively. A non-empty second result explains a rejection.
func bearerToken(header string) (string, string) {
	if header == "" {
		return "", "missing authorization header"
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", "invalid authorization header format"
	}
	if token = strings.TrimSpace(token); token == "" {
		return "", "missing bearer token"
	}
	return token, ""
}

// challenge writes a 401 with an RFC 6750 WWW-Authenticate header.
func challenge(w http.ResponseWriter, r *http.Request, code, detail string) {
	value := `Bearer realm="` + bearerRealm + `"`
	if code != "" {
		value += `, error="` + code + `"`
	}
	w.Header().Set("WWW-Authenticate", value)
	writeProblem(w, r, http.StatusUnauthorized, detail)
}

// WithOwnerID returns a context carrying the authenticated owner ID.
func WithOwnerID(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ownerIDKey{}, ownerID)
}

// GetOwnerID returns the authenticated owner ID, or "" outside Auth.
func GetOwnerID(ctx context.Context) string {
	if id, ok := ctx.Value(ownerIDKey{}).(string); ok {
		return id
	}
	return ""
}
