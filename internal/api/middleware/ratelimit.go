package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimitConfig is a fixed-window request budget.
type RateLimitConfig struct {
	RequestLimit int
	WindowLength time.Duration
}

var (
	// StandardRateLimit covers vehicle, device and service record CRUD.
	StandardRateLimit = RateLimitConfig{RequestLimit: 100, WindowLength: time.Minute}

	// FeedRateLimit covers the notification feed and badge, which evaluate
	// every vehicle and device the owner has.
	FeedRateLimit = RateLimitConfig{RequestLimit: 30, WindowLength: time.Minute}

	// AdminRateLimit covers feature flag administration.
	AdminRateLimit = RateLimitConfig{RequestLimit: 10, WindowLength: time.Minute}

	// OpsRateLimit covers the unauthenticated status endpoint.
	OpsRateLimit = RateLimitConfig{RequestLimit: 60, WindowLength: time.Minute}
)

// RateLimitByIP limits by client address. Run chi's RealIP first so proxied
// requests are keyed by the original client.
func RateLimitByIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return cfg.limiter(httprate.KeyByRealIP)
}

// RateLimitByOwner limits by authenticated owner so one fleet shares a budget
// across devices. Unauthenticated requests fall back to the client address.
func RateLimitByOwner(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return cfg.limiter(func(r *http.Request) (string, error) {
		if ownerID := GetOwnerID(r.Context()); ownerID != "" {
			return "owner:" + ownerID, nil
		}
		return httprate.KeyByRealIP(r)
	})
}

func (cfg RateLimitConfig) limiter(key httprate.KeyFunc) func(http.Handler) http.Handler {
	retryAfter := strconv.Itoa(int(math.Ceil(cfg.WindowLength.Seconds())))

	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(key),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			// httprate does not expose the window reset, so a full window is advertised.
			w.Header().Set("Retry-After", retryAfter)
			writeProblem(w, r, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
		}),
	)
}
