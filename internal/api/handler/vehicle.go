package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/fleetminder/fleetminder/internal/api/middleware"
	"github.com/fleetminder/fleetminder/internal/api/models"
	"github.com/fleetminder/fleetminder/internal/api/response"
	"github.com/fleetminder/fleetminder/internal/vehicle"
)

// VehicleHandler handles vehicle endpoints.
type VehicleHandler struct {
	service *vehicle.Service
	logger  zerolog.Logger
}

// NewVehicleHandler creates a new VehicleHandler.
func NewVehicleHandler(service *vehicle.Service, logger zerolog.Logger) *VehicleHandler {
	return &VehicleHandler{service: service, logger: logger}
}

// ListVehicles handles GET /v1/vehicles - list the caller's vehicles.
func (h *VehicleHandler) ListVehicles(w http.ResponseWriter, r *http.Request) {
	limit, cursor, errs := pageParams(r)
	if errs != nil {
		response.ValidationFailed(w, r, errs)
		return
	}

	vehicles, err := h.service.List(r.Context(), middleware.GetOwnerID(r.Context()), limit, cursor)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, vehicles)
}

// CreateVehicle handles POST /v1/vehicles - add a vehicle.
func (h *VehicleHandler) CreateVehicle(w http.ResponseWriter, r *http.Request) {
	var input models.VehicleCreateRequest
	if !decodeBody(w, r, &input) {
		return
	}

	v, err := h.service.Create(r.Context(), middleware.GetOwnerID(r.Context()), &input)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.Created(w, r, "/v1/vehicles/"+v.ID, v)
}

// GetVehicle handles GET /v1/vehicles/{vehicleId}.
func (h *VehicleHandler) GetVehicle(w http.ResponseWriter, r *http.Request) {
	v, err := h.service.Get(r.Context(), middleware.GetOwnerID(r.Context()), chi.URLParam(r, "vehicleId"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, v)
}

// UpdateVehicle handles PUT /v1/vehicles/{vehicleId} - partial update.
func (h *VehicleHandler) UpdateVehicle(w http.ResponseWriter, r *http.Request) {
	var input models.VehicleUpdateRequest
	if !decodeBody(w, r, &input) {
		return
	}

	v, err := h.service.Update(r.Context(), middleware.GetOwnerID(r.Context()), chi.URLParam(r, "vehicleId"), &input)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, v)
}

// DeleteVehicle handles DELETE /v1/vehicles/{vehicleId}. Devices fitted to
// the vehicle are kept.
func (h *VehicleHandler) DeleteVehicle(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), middleware.GetOwnerID(r.Context()), chi.URLParam(r, "vehicleId")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.NoContent(w, r)
}
