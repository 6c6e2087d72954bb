package resilience

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
)

var (
	// ErrCircuitOpen is returned without calling the endpoint while its breaker is open.
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// maxRetryAfter caps how long a Retry-After header can hold a delivery.
	maxRetryAfter = 30 * time.Second
)

// ClientConfig holds configuration for a delivery client.
type ClientConfig struct {
	// Name identifies the endpoint. It is also the registry key.
	Name string

	// Timeout bounds a single attempt.
	// Default: 10 seconds
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt.
	// Default: 3
	MaxRetries uint64

	// InitialInterval is the first retry delay.
	// Default: 200ms
	InitialInterval time.Duration

	// MaxInterval caps the exponential retry delay.
	// Default: 5 seconds
	MaxInterval time.Duration

	// UserAgent is sent on every request when the caller has not set one.
	UserAgent string

	// Breaker configures the circuit breaker. Name defaults to the client name.
	Breaker BreakerConfig

	// Transport overrides the HTTP transport. Optional.
	Transport http.RoundTripper
}

// DefaultClientConfig returns the delivery client defaults for an endpoint.
func DefaultClientConfig(name string) ClientConfig {
	return ClientConfig{
		Name:            name,
		Timeout:         10 * time.Second,
		MaxRetries:      3,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		UserAgent:       "fleetminder-worker",
		Breaker:         DefaultBreakerConfig(name),
	}
}

// Client sends requests to one endpoint. Network errors, 429 and 5xx
// responses are retried with exponential backoff; 5xx and network errors also
// count against the endpoint's circuit breaker.
type Client struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*http.Response]
	config     ClientConfig
}

// NewClient creates a new delivery client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = 200 * time.Millisecond
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = 5 * time.Second
	}
	if cfg.Breaker.Name == "" {
		cfg.Breaker.Name = cfg.Name
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
		},
		breaker: newBreaker(cfg.Breaker),
		config:  cfg,
	}
}

// StatusError is a retryable HTTP status returned by the endpoint.
type StatusError struct {
	StatusCode int
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("endpoint returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Do sends the request using its own context.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.DoWithContext(req.Context(), req)
}

// DoWithContext sends the request, retrying transient failures. When every
// attempt got a retryable status, the last response is returned without an
// error so the caller can inspect it. Requests with a body must have GetBody
// set so the body can be replayed; http.NewRequest does this for byte readers.
func (c *Client) DoWithContext(ctx context.Context, req *http.Request) (*http.Response, error) {
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		return nil, errors.New("request body cannot be replayed: GetBody is nil")
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.config.InitialInterval
	bo.MaxInterval = c.config.MaxInterval
	bo.MaxElapsedTime = 0

	policy := &retryAfterBackOff{BackOff: backoff.WithMaxRetries(bo, c.config.MaxRetries)}

	var last *http.Response
	operation := func() error {
		if last != nil {
			drain(last)
			last = nil
		}

		attempt, err := c.prepare(ctx, req)
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := c.breaker.Execute(func() (*http.Response, error) { //nolint:bodyclose // closed by caller or drain
			r, err := c.httpClient.Do(attempt)
			if err != nil {
				return nil, err
			}
			if r.StatusCode >= http.StatusInternalServerError {
				return r, statusError(r)
			}
			return r, nil
		})

		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			return backoff.Permanent(ErrCircuitOpen)
		case ctx.Err() != nil:
			if resp != nil {
				drain(resp)
			}
			return backoff.Permanent(ctx.Err())
		case err != nil:
			last = resp
			policy.hint(err)
			return err
		case resp.StatusCode == http.StatusTooManyRequests:
			last = resp
			serr := statusError(resp)
			policy.hint(serr)
			return serr
		}

		last = resp
		return nil
	}

	err := backoff.Retry(operation, backoff.WithContext(policy, ctx))
	if err != nil {
		var serr *StatusError
		if last != nil && errors.As(err, &serr) {
			return last, nil
		}
		if last != nil {
			drain(last)
		}
		return nil, err
	}
	return last, nil
}

// prepare clones the request for one attempt with a fresh body.
func (c *Client) prepare(ctx context.Context, req *http.Request) (*http.Request, error) {
	attempt := req.Clone(ctx)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("replay request body: %w", err)
		}
		attempt.Body = body
	}
	if c.config.UserAgent != "" && attempt.Header.Get("User-Agent") == "" {
		attempt.Header.Set("User-Agent", c.config.UserAgent)
	}
	return attempt, nil
}

// CircuitBreakerState returns the current state of the circuit breaker.
func (c *Client) CircuitBreakerState() gobreaker.State {
	return c.breaker.State()
}

// CircuitBreakerCounts returns the current counts of the circuit breaker.
func (c *Client) CircuitBreakerCounts() gobreaker.Counts {
	return c.breaker.Counts()
}

// Name returns the endpoint name.
func (c *Client) Name() string {
	return c.config.Name
}

func statusError(resp *http.Response) *StatusError {
	return &StatusError{
		StatusCode: resp.StatusCode,
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
	}
}

// parseRetryAfter reads a Retry-After header in seconds or HTTP-date form.
func parseRetryAfter(value string, now time.Time) time.Duration {
	if value == "" {
		return 0
	}

	var wait time.Duration
	if secs, err := strconv.Atoi(value); err == nil {
		wait = time.Duration(secs) * time.Second
	} else if at, err := http.ParseTime(value); err == nil {
		wait = at.Sub(now)
	}

	if wait < 0 {
		return 0
	}
	return min(wait, maxRetryAfter)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain for connection reuse
	_ = resp.Body.Close()
}

// retryAfterBackOff waits at least as long as the endpoint asked for.
type retryAfterBackOff struct {
	backoff.BackOff
	wait time.Duration
}

func (b *retryAfterBackOff) hint(err error) {
	var serr *StatusError
	if errors.As(err, &serr) {
		b.wait = serr.RetryAfter
	}
}

func (b *retryAfterBackOff) NextBackOff() time.Duration {
	next := b.BackOff.NextBackOff()
	if next == backoff.Stop {
		return next
	}
	wait := b.wait
	b.wait = 0
	return max(next, wait)
}
