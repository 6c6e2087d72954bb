package middleware

import (
	"errors"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/fleetminder/fleetminder/internal/api/middleware"

// durationBuckets are in seconds. Feed generation over a large fleet is the
// slowest request the API serves, so the upper buckets stay wide.
var durationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// Metrics records request instruments for the HTTP API.
type Metrics struct {
	duration metric.Float64Histogram
	requests metric.Int64Counter
	active   metric.Int64UpDownCounter
	bodySize metric.Int64Histogram
	rejected metric.Int64Counter
}

// NewMetrics registers the HTTP instruments on provider's meter.
func NewMetrics(provider metric.MeterProvider) (*Metrics, error) {
	meter := provider.Meter(meterName)
	m := &Metrics{}

	var errs []error
	var err error

	m.duration, err = meter.Float64Histogram("http.server.request.duration",
		metric.WithDescription("Time spent serving API requests"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...))
	errs = append(errs, err)

	m.requests, err = meter.Int64Counter("http.server.request.count",
		metric.WithDescription("API requests served"),
		metric.WithUnit("{request}"))
	errs = append(errs, err)

	m.active, err = meter.Int64UpDownCounter("http.server.active_requests",
		metric.WithDescription("API requests in progress"),
		metric.WithUnit("{request}"))
	errs = append(errs, err)

	m.bodySize, err = meter.Int64Histogram("http.server.response.body.size",
		metric.WithDescription("Size of API response bodies"),
		metric.WithUnit("By"))
	errs = append(errs, err)

	m.rejected, err = meter.Int64Counter("fleet.http.rejected",
		metric.WithDescription("Requests turned away by auth, admin or rate limit checks"),
		metric.WithUnit("{request}"))
	errs = append(errs, err)

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return m, nil
}

// Middleware records one observation per request, labelled by route pattern
// so path parameters such as vehicle IDs do not explode cardinality.
func (m *Metrics) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			method := attribute.String("http.request.method", r.Method)

			m.active.Add(ctx, 1, metric.WithAttributes(method))
			defer m.active.Add(ctx, -1, metric.WithAttributes(method))

			rec := newStatusRecorder(w)
			start := time.Now()
			next.ServeHTTP(rec, r)
			elapsed := time.Since(start)

			set := metric.WithAttributeSet(attribute.NewSet(
				method,
				attribute.String("http.route", routePattern(r)),
				attribute.Int("http.response.status_code", rec.status),
				attribute.String("http.response.status_class", statusClass(rec.status)),
			))

			m.duration.Record(ctx, elapsed.Seconds(), set)
			m.requests.Add(ctx, 1, set)
			m.bodySize.Record(ctx, rec.written, set)

			switch rec.status {
			case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests:
				m.rejected.Add(ctx, 1, set)
			}
		})
	}
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
