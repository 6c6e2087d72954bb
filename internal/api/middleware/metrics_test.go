package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/fleetminder/fleetminder/internal/api/middleware"
)

// meteredRouter serves a vehicle route and a guarded route through the
// metrics middleware, collecting into a manual reader.
func meteredRouter(t *testing.T) (http.Handler, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	metrics, err := middleware.NewMetrics(provider)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(metrics.Middleware())
	r.Get("/v1/vehicles/{vehicleId}", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id":"veh_1"}`))
	})
	r.Get("/v1/admin/flags", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	return r, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func TestMetrics_RecordsRoutePatternAndStatus(t *testing.T) {
	router, reader := meteredRouter(t)

	for _, id := range []string{"veh_1", "veh_2", "veh_3"} {
		req := httptest.NewRequest(http.MethodGet, "/v1/vehicles/"+id, http.NoBody)
		router.ServeHTTP(httptest.NewRecorder(), req)
	}

	data := collect(t, reader)
	count, ok := data["http.server.request.count"].(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, count.DataPoints, 1)

	dp := count.DataPoints[0]
	assert.Equal(t, int64(3), dp.Value)
	route, _ := dp.Attributes.Value("http.route")
	assert.Equal(t, "/v1/vehicles/{vehicleId}", route.AsString())
	status, _ := dp.Attributes.Value("http.response.status_code")
	assert.Equal(t, int64(http.StatusOK), status.AsInt64())
	class, _ := dp.Attributes.Value("http.response.status_class")
	assert.Equal(t, "2xx", class.AsString())

	size, ok := data["http.server.response.body.size"].(metricdata.Histogram[int64])
	require.True(t, ok)
	assert.Equal(t, int64(3*len(`{"id":"veh_1"}`)), size.DataPoints[0].Sum)

	_, rejected := data["fleet.http.rejected"]
	assert.False(t, rejected, "no rejection should be recorded for 200s")
}

func TestMetrics_CountsRejections(t *testing.T) {
	router, reader := meteredRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/flags", http.NoBody)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rejected, ok := collect(t, reader)["fleet.http.rejected"].(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, rejected.DataPoints, 1)
	assert.Equal(t, int64(1), rejected.DataPoints[0].Value)
}

func TestMetrics_UnmatchedRoute(t *testing.T) {
	router, reader := meteredRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/nope", http.NoBody)
	router.ServeHTTP(httptest.NewRecorder(), req)

	count, ok := collect(t, reader)["http.server.request.count"].(metricdata.Sum[int64])
	require.True(t, ok)
	route, _ := count.DataPoints[0].Attributes.Value("http.route")
	assert.Equal(t, "unmatched", route.AsString())
}
