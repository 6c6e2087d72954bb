// Package handler provides HTTP handlers for the FleetMinder API.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/fleetminder/fleetminder/internal/api/middleware"
	"github.com/fleetminder/fleetminder/internal/api/models"
	"github.com/fleetminder/fleetminder/internal/api/response"
	"github.com/fleetminder/fleetminder/internal/device"
	"github.com/fleetminder/fleetminder/internal/featureflags"
	"github.com/fleetminder/fleetminder/internal/notification"
	"github.com/fleetminder/fleetminder/internal/servicelog"
	"github.com/fleetminder/fleetminder/internal/vehicle"
)

const maxPageLimit = 100

// pageParams reads the limit and cursor query parameters.
func pageParams(r *http.Request) (int, string, []models.FieldError) {
	q := r.URL.Query()
	cursor := q.Get("cursor")

	raw := q.Get("limit")
	if raw == "" {
		return 0, cursor, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > maxPageLimit {
		return 0, cursor, []models.FieldError{{
			Field:   "limit",
			Message: "must be between 1 and " + strconv.Itoa(maxPageLimit),
			Code:    "range",
		}}
	}
	return limit, cursor, nil
}

// decodeBody decodes the JSON request body, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := response.DecodeJSON(w, r, v); err != nil {
		response.Problem(w, r, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// writeError maps service errors onto problem responses.
func writeError(w http.ResponseWriter, r *http.Request, log zerolog.Logger, err error) {
	var (
		vehicleErr *vehicle.ValidationError
		deviceErr  *device.ValidationError
		recordErr  *servicelog.ValidationError
		flagErr    *featureflags.ValidationError
	)

	switch {
	case errors.As(err, &vehicleErr):
		response.ValidationFailed(w, r, vehicleErr.Errors)
	case errors.As(err, &deviceErr):
		response.ValidationFailed(w, r, deviceErr.Errors)
	case errors.As(err, &recordErr):
		response.ValidationFailed(w, r, recordErr.Errors)
	case errors.As(err, &flagErr):
		response.ValidationFailed(w, r, flagErr.Errors)
	case errors.Is(err, vehicle.ErrVehicleNotFound),
		errors.Is(err, device.ErrDeviceNotFound),
		errors.Is(err, servicelog.ErrRecordNotFound),
		errors.Is(err, notification.ErrNotificationNotFound),
		errors.Is(err, featureflags.ErrFlagNotFound):
		response.Problem(w, r, http.StatusNotFound, err.Error())
	default:
		log.Error().
			Err(err).
			Str("request_id", middleware.GetRequestID(r.Context())).
			Str("path", r.URL.Path).
			Msg("request failed")
		response.Problem(w, r, http.StatusInternalServerError, "an unexpected error occurred")
	}
}
