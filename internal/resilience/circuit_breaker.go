// Package resilience wraps outbound HTTP deliveries, such as reminder digest
// webhooks, with circuit breakers and retries, and tracks the health of each
// delivery endpoint for the status endpoint.
package resilience

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// BreakerConfig configures the circuit breaker guarding one endpoint.
type BreakerConfig struct {
	// Name identifies the endpoint in logs and on the status endpoint.
	Name string

	// ConsecutiveFailures trips the breaker after this many failed calls in a row.
	// Default: 5
	ConsecutiveFailures uint32

	// OpenTimeout is how long the breaker stays open before letting a probe through.
	// Default: 60 seconds
	OpenTimeout time.Duration

	// HalfOpenProbes is the number of calls allowed while half-open.
	// Default: 1
	HalfOpenProbes uint32

	// ResetInterval clears the closed-state counts periodically. Zero never clears.
	ResetInterval time.Duration

	// Logger receives state transitions.
	Logger zerolog.Logger
}

// DefaultBreakerConfig returns the breaker configuration used for digest endpoints.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:                name,
		ConsecutiveFailures: 5,
		OpenTimeout:         60 * time.Second,
		HalfOpenProbes:      1,
		Logger:              zerolog.Nop(),
	}
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	if c.ConsecutiveFailures == 0 {
		c.ConsecutiveFailures = 5
	}
	if c.OpenTimeout == 0 {
		c.OpenTimeout = 60 * time.Second
	}
	if c.HalfOpenProbes == 0 {
		c.HalfOpenProbes = 1
	}
	return c
}

// newBreaker builds the gobreaker instance for an endpoint. Cancelled calls
// are not held against the endpoint.
func newBreaker(cfg BreakerConfig) *gobreaker.CircuitBreaker[*http.Response] {
	cfg = cfg.withDefaults()
	threshold := cfg.ConsecutiveFailures
	logger := cfg.Logger

	return gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{ //nolint:bodyclose // type param, not response
		Name:        cfg.Name,
		MaxRequests: cfg.HalfOpenProbes,
		Interval:    cfg.ResetInterval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			event := logger.Info()
			if to == gobreaker.StateOpen {
				event = logger.Warn()
			}
			event.
				Str("endpoint", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	})
}
