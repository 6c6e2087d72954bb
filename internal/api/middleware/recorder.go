package middleware

import (
	"context"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// statusRecorder captures the status code and body size of a response.
type statusRecorder struct {
	http.ResponseWriter
	status  int
	written int64
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *statusRecorder) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// routePattern returns the matched chi route pattern, or "unmatched" when
// no route handled the request. Raw paths carry vehicle and device IDs and
// must not be used as metric labels.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

// requestAnnotations collects facts learned deeper in the chain, such as the
// authenticated owner, so the outer access log can report them.
type requestAnnotations struct {
	mu      sync.Mutex
	ownerID string
}

type annotationsKey struct{}

func withAnnotations(ctx context.Context) (context.Context, *requestAnnotations) {
	a := &requestAnnotations{}
	return context.WithValue(ctx, annotationsKey{}, a), a
}

func (a *requestAnnotations) owner() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ownerID
}

// annotateOwner records the authenticated owner on the access log entry and
// the active span.
func annotateOwner(ctx context.Context, ownerID string) {
	if a, ok := ctx.Value(annotationsKey{}).(*requestAnnotations); ok {
		a.mu.Lock()
		a.ownerID = ownerID
		a.mu.Unlock()
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("enduser.id", ownerID))
}
