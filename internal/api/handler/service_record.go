package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/fleetminder/fleetminder/internal/api/middleware"
	"github.com/fleetminder/fleetminder/internal/api/models"
	"github.com/fleetminder/fleetminder/internal/api/response"
	"github.com/fleetminder/fleetminder/internal/servicelog"
)

// ServiceRecordHandler handles service history endpoints.
type ServiceRecordHandler struct {
	service *servicelog.Service
	logger  zerolog.Logger
}

// NewServiceRecordHandler creates a new ServiceRecordHandler.
func NewServiceRecordHandler(service *servicelog.Service, logger zerolog.Logger) *ServiceRecordHandler {
	return &ServiceRecordHandler{service: service, logger: logger}
}

// ListServiceRecords handles GET /v1/service-records?vehicleId=.
func (h *ServiceRecordHandler) ListServiceRecords(w http.ResponseWriter, r *http.Request) {
	limit, cursor, errs := pageParams(r)
	if errs != nil {
		response.ValidationFailed(w, r, errs)
		return
	}

	records, err := h.service.List(r.Context(), middleware.GetOwnerID(r.Context()), limit, cursor, r.URL.Query().Get("vehicleId"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, records)
}

// CreateServiceRecord handles POST /v1/service-records. A nextDueDate moves
// the service expiry of the serviced vehicle or device.
func (h *ServiceRecordHandler) CreateServiceRecord(w http.ResponseWriter, r *http.Request) {
	var input models.ServiceRecordCreateRequest
	if !decodeBody(w, r, &input) {
		return
	}

	rec, err := h.service.Create(r.Context(), middleware.GetOwnerID(r.Context()), &input)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.Created(w, r, "/v1/service-records/"+rec.ID, rec)
}

// GetServiceRecord handles GET /v1/service-records/{recordId}.
func (h *ServiceRecordHandler) GetServiceRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.Get(r.Context(), middleware.GetOwnerID(r.Context()), chi.URLParam(r, "recordId"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, rec)
}

// DeleteServiceRecord handles DELETE /v1/service-records/{recordId}.
func (h *ServiceRecordHandler) DeleteServiceRecord(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), middleware.GetOwnerID(r.Context()), chi.URLParam(r, "recordId")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.NoContent(w, r)
}
