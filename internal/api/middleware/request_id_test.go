package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetminder/fleetminder/internal/api/middleware"
)

// captureRequestID runs a request through RequestID and returns the ID the
// handler saw along with the response header value.
func captureRequestID(t *testing.T, incoming string) (seen, echoed string) {
	t.Helper()
	handler := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = middleware.GetRequestID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/vehicles", http.NoBody)
	if incoming != "" {
		req.Header.Set(middleware.RequestIDHeader, incoming)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return seen, rec.Header().Get(middleware.RequestIDHeader)
}

func TestRequestID_Generated(t *testing.T) {
	seen, echoed := captureRequestID(t, "")

	assert.True(t, strings.HasPrefix(seen, "req_"), "got %q", seen)
	assert.Len(t, seen, len("req_")+22)
	assert.Equal(t, seen, echoed)
}

func TestRequestID_CallerIDs(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		kept     bool
	}{
		{"plain", "client-request-123", true},
		{"underscores and dots", "fleet_sync.42", true},
		{"too long", strings.Repeat("a", 65), false},
		{"whitespace", "abc def", false},
		{"header injection", "abc\r\nX-Evil: 1", false},
		{"unicode", "ид-1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen, echoed := captureRequestID(t, tt.incoming)
			if tt.kept {
				assert.Equal(t, tt.incoming, seen)
			} else {
				assert.NotEqual(t, tt.incoming, seen)
				assert.True(t, strings.HasPrefix(seen, "req_"))
			}
			assert.Equal(t, seen, echoed)
		})
	}
}

func TestRequestID_Unique(t *testing.T) {
	ids := make(map[string]struct{}, 50)
	for i := 0; i < 50; i++ {
		id := middleware.NewRequestID()
		_, dup := ids[id]
		require.False(t, dup, "duplicate request ID %s", id)
		ids[id] = struct{}{}
	}
}

func TestWithRequestID(t *testing.T) {
	assert.Empty(t, middleware.GetRequestID(context.Background()))

	ctx := middleware.WithRequestID(context.Background(), "digest-run-1")
	assert.Equal(t, "digest-run-1", middleware.GetRequestID(ctx))
}
