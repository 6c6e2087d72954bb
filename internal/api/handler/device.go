package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/fleetminder/fleetminder/internal/api/middleware"
	"github.com/fleetminder/fleetminder/internal/api/models"
	"github.com/fleetminder/fleetminder/internal/api/response"
	"github.com/fleetminder/fleetminder/internal/device"
)

// DeviceHandler handles device endpoints.
type DeviceHandler struct {
	service *device.Service
	logger  zerolog.Logger
}

// NewDeviceHandler creates a new DeviceHandler.
func NewDeviceHandler(service *device.Service, logger zerolog.Logger) *DeviceHandler {
	return &DeviceHandler{service: service, logger: logger}
}

// ListDevices handles GET /v1/devices - list devices, optionally for one vehicle.
func (h *DeviceHandler) ListDevices(w http.ResponseWriter, r *http.Request) {
	limit, cursor, errs := pageParams(r)
	if errs != nil {
		response.ValidationFailed(w, r, errs)
		return
	}

	devices, err := h.service.List(r.Context(), middleware.GetOwnerID(r.Context()), limit, cursor, r.URL.Query().Get("vehicleId"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, devices)
}

// CreateDevice handles POST /v1/devices.
func (h *DeviceHandler) CreateDevice(w http.ResponseWriter, r *http.Request) {
	var input models.DeviceCreateRequest
	if !decodeBody(w, r, &input) {
		return
	}

	d, err := h.service.Create(r.Context(), middleware.GetOwnerID(r.Context()), &input)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.Created(w, r, "/v1/devices/"+d.ID, d)
}

// GetDevice handles GET /v1/devices/{deviceId}.
func (h *DeviceHandler) GetDevice(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.Get(r.Context(), middleware.GetOwnerID(r.Context()), chi.URLParam(r, "deviceId"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, d)
}

// UpdateDevice handles PUT /v1/devices/{deviceId} - partial update.
func (h *DeviceHandler) UpdateDevice(w http.ResponseWriter, r *http.Request) {
	var input models.DeviceUpdateRequest
	if !decodeBody(w, r, &input) {
		return
	}

	d, err := h.service.Update(r.Context(), middleware.GetOwnerID(r.Context()), chi.URLParam(r, "deviceId"), &input)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, d)
}

// DeleteDevice handles DELETE /v1/devices/{deviceId}.
func (h *DeviceHandler) DeleteDevice(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), middleware.GetOwnerID(r.Context()), chi.URLParam(r, "deviceId")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.NoContent(w, r)
}
