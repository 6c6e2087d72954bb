package response_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetminder/fleetminder/internal/api/middleware"
	"github.com/fleetminder/fleetminder/internal/api/models"
	"github.com/fleetminder/fleetminder/internal/api/response"
)

// withRequestID returns a request whose context carries id, as RequestID would set it.
func withRequestID(method, path, id string) *http.Request {
	r := httptest.NewRequest(method, path, http.NoBody)
	if id == "" {
		return r
	}
	return r.WithContext(middleware.WithRequestID(r.Context(), id))
}

func TestJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	response.JSON(rec, withRequestID(http.MethodGet, "/v1/vehicles", "req_a"), http.StatusOK, map[string]int{"count": 2})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "req_a", rec.Header().Get("X-Request-Id"))
	assert.JSONEq(t, `{"count":2}`, rec.Body.String())
}

func TestJSON_NoRequestIDAndNilBody(t *testing.T) {
	rec := httptest.NewRecorder()
	response.JSON(rec, withRequestID(http.MethodGet, "/v1/vehicles", ""), http.StatusAccepted, nil)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Request-Id"))
	assert.Zero(t, rec.Body.Len())
}

func TestCreated(t *testing.T) {
	rec := httptest.NewRecorder()
	response.Created(rec, withRequestID(http.MethodPost, "/v1/vehicles", "req_b"), "/v1/vehicles/veh_1", map[string]string{"id": "veh_1"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "/v1/vehicles/veh_1", rec.Header().Get("Location"))
	assert.Equal(t, "req_b", rec.Header().Get("X-Request-Id"))
	assert.JSONEq(t, `{"id":"veh_1"}`, rec.Body.String())
}

func TestNoContent(t *testing.T) {
	rec := httptest.NewRecorder()
	response.NoContent(rec, withRequestID(http.MethodDelete, "/v1/devices/dev_1", "req_c"))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "req_c", rec.Header().Get("X-Request-Id"))
	assert.Empty(t, rec.Header().Get("Content-Type"))
}

func TestProblem(t *testing.T) {
	rec := httptest.NewRecorder()
	response.Problem(rec, withRequestID(http.MethodGet, "/v1/vehicles/veh_x", "req_d"), http.StatusNotFound, "vehicle not found")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	var p models.Problem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, models.ProblemType(http.StatusNotFound), p.Type)
	assert.Equal(t, "vehicle not found", p.Detail)
	assert.Equal(t, "/v1/vehicles/veh_x", p.Instance)
	assert.Equal(t, "req_d", p.TraceID)
}

func TestValidationFailed(t *testing.T) {
	rec := httptest.NewRecorder()
	errs := []models.FieldError{{Field: "expiresOn", Message: "must be a date", Code: "date"}}
	response.ValidationFailed(rec, withRequestID(http.MethodPost, "/v1/vehicles", "req_e"), errs)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var p models.Problem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, "request validation failed", p.Detail)
	assert.Equal(t, errs, p.Errors)
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Plate string `json:"plate"`
	}

	tests := []struct {
		name    string
		body    string
		want    string
		wantErr string
	}{
		{name: "valid", body: `{"plate":"AB12 CDE"}`, want: "AB12 CDE"},
		{name: "empty", body: "", wantErr: response.ErrEmptyBody.Error()},
		{name: "unknown field", body: `{"plate":"x","colour":"red"}`, wantErr: "unknown field"},
		{name: "trailing data", body: `{"plate":"x"}{"plate":"y"}`, wantErr: "trailing data"},
		{name: "malformed", body: `{"plate":`, wantErr: "invalid JSON body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got payload
			req := httptest.NewRequest(http.MethodPost, "/v1/vehicles", strings.NewReader(tt.body))
			err := response.DecodeJSON(httptest.NewRecorder(), req, &got)

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Plate)
		})
	}
}

func TestDecodeJSON_BodyTooLarge(t *testing.T) {
	big := `{"plate":"` + strings.Repeat("x", response.MaxBodyBytes) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/vehicles", bytes.NewBufferString(big))

	var v map[string]string
	err := response.DecodeJSON(httptest.NewRecorder(), req, &v)
	assert.ErrorContains(t, err, "request body too large")
}
