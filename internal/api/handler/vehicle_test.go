package handler_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetminder/fleetminder/internal/api/models"
)

func TestVehicleHandler_CRUD(t *testing.T) {
	api := newTestAPI(t)

	created := api.createVehicle(t, map[string]interface{}{
		"name":                "Delivery Van",
		"licensePlate":        "AB-123-C",
		"insuranceExpiryDate": dateIn(30),
	})
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Delivery Van", created.Name)
	require.NotNil(t, created.InsuranceExpiryDate)

	rec := api.do(t, http.MethodGet, "/v1/vehicles/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.ID, decode[models.Vehicle](t, rec).ID)

	rec = api.do(t, http.MethodPut, "/v1/vehicles/"+created.ID, map[string]interface{}{
		"name":  "Van 2",
		"clear": []string{"licensePlate"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[models.Vehicle](t, rec)
	assert.Equal(t, "Van 2", updated.Name)
	assert.Nil(t, updated.LicensePlate)

	rec = api.do(t, http.MethodGet, "/v1/vehicles", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[models.PagedVehicles](t, rec).Items, 1)

	rec = api.do(t, http.MethodDelete, "/v1/vehicles/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = api.do(t, http.MethodGet, "/v1/vehicles/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVehicleHandler_CreateValidation(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/v1/vehicles", map[string]interface{}{
		"insuranceReminderDays": 400,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	problem := decode[models.Problem](t, rec)
	fields := make([]string, 0, len(problem.Errors))
	for _, fe := range problem.Errors {
		fields = append(fields, fe.Field)
	}
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "insuranceReminderDays")
}

func TestVehicleHandler_OtherOwnerCannotRead(t *testing.T) {
	api := newTestAPI(t)
	created := api.createVehicle(t, map[string]interface{}{"name": "Truck"})

	rec := api.doAs(t, "owner-2", http.MethodGet, "/v1/vehicles/"+created.ID)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
