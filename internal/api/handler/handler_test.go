package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetminder/fleetminder/internal/api/handler"
	"github.com/fleetminder/fleetminder/internal/api/middleware"
	"github.com/fleetminder/fleetminder/internal/api/models"
	"github.com/fleetminder/fleetminder/internal/device"
	"github.com/fleetminder/fleetminder/internal/notification"
	"github.com/fleetminder/fleetminder/internal/servicelog"
	"github.com/fleetminder/fleetminder/internal/vehicle"
)

const testOwner = "owner-1"

var now = time.Date(2025, 3, 14, 10, 30, 0, 0, time.UTC)

// testAPI wires the fleet handlers over in-memory storage.
type testAPI struct {
	router http.Handler
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	vehicleRepo := vehicle.NewInMemoryRepository()
	deviceRepo := device.NewInMemoryRepository()
	vehicles := vehicle.NewService(vehicleRepo)
	devices := device.NewService(deviceRepo, vehicleRepo)
	records := servicelog.NewService(servicelog.NewInMemoryRepository(), vehicles, devices, zerolog.Nop())
	notifications := notification.NewService(notification.ServiceConfig{
		Vehicles:   vehicleRepo,
		Devices:    deviceRepo,
		Dismissals: notification.NewInMemoryDismissalRepository(),
		Logger:     zerolog.Nop(),
		Now:        func() time.Time { return now },
	})

	vh := handler.NewVehicleHandler(vehicles, zerolog.Nop())
	dh := handler.NewDeviceHandler(devices, zerolog.Nop())
	sh := handler.NewServiceRecordHandler(records, zerolog.Nop())
	nh := handler.NewNotificationHandler(notifications, zerolog.Nop())

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			owner := req.Header.Get("X-Test-Owner")
			if owner == "" {
				owner = testOwner
			}
			next.ServeHTTP(w, req.WithContext(middleware.WithOwnerID(req.Context(), owner)))
		})
	})
	r.Route("/v1/vehicles", func(r chi.Router) {
		r.Get("/", vh.ListVehicles)
		r.Post("/", vh.CreateVehicle)
		r.Get("/{vehicleId}", vh.GetVehicle)
		r.Put("/{vehicleId}", vh.UpdateVehicle)
		r.Delete("/{vehicleId}", vh.DeleteVehicle)
	})
	r.Route("/v1/devices", func(r chi.Router) {
		r.Get("/", dh.ListDevices)
		r.Post("/", dh.CreateDevice)
		r.Get("/{deviceId}", dh.GetDevice)
		r.Put("/{deviceId}", dh.UpdateDevice)
		r.Delete("/{deviceId}", dh.DeleteDevice)
	})
	r.Route("/v1/service-records", func(r chi.Router) {
		r.Get("/", sh.ListServiceRecords)
		r.Post("/", sh.CreateServiceRecord)
		r.Get("/{recordId}", sh.GetServiceRecord)
		r.Delete("/{recordId}", sh.DeleteServiceRecord)
	})
	r.Route("/v1/notifications", func(r chi.Router) {
		r.Get("/", nh.ListNotifications)
		r.Get("/badge", nh.GetBadge)
		r.Post("/{notificationId}/dismiss", nh.DismissNotification)
		r.Delete("/{notificationId}/dismiss", nh.RestoreNotification)
	})

	return &testAPI{router: r}
}

func (a *testAPI) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	return a.send(t, testOwner, method, path, body)
}

func (a *testAPI) doAs(t *testing.T, owner, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	return a.send(t, owner, method, path, nil)
}

func (a *testAPI) send(t *testing.T, owner, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-Owner", owner)
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func dateIn(days int) string {
	return now.AddDate(0, 0, days).Format(models.DateLayout)
}

func (a *testAPI) createVehicle(t *testing.T, body map[string]interface{}) models.Vehicle {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/v1/vehicles", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[models.Vehicle](t, rec)
}

func TestPageParams_RejectsOutOfRangeLimit(t *testing.T) {
	api := newTestAPI(t)

	for _, limit := range []string{"0", "101", "abc"} {
		rec := api.do(t, http.MethodGet, "/v1/vehicles?limit="+limit, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "limit=%s", limit)

		problem := decode[models.Problem](t, rec)
		require.Len(t, problem.Errors, 1)
		assert.Equal(t, "limit", problem.Errors[0].Field)
	}
}

func TestDecodeBody_RejectsMalformedJSON(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/v1/vehicles", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodPost, "/v1/vehicles", `{"name":"Van","unknown":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
