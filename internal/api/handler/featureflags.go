package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/fleetminder/fleetminder/internal/api/middleware"
	"github.com/fleetminder/fleetminder/internal/api/response"
	"github.com/fleetminder/fleetminder/internal/featureflags"
	"github.com/fleetminder/fleetminder/internal/validation"
)

// FeatureFlagsHandler serves the admin flag endpoints.
type FeatureFlagsHandler struct {
	service *featureflags.Service
	logger  zerolog.Logger
}

// NewFeatureFlagsHandler creates a new FeatureFlagsHandler.
func NewFeatureFlagsHandler(service *featureflags.Service, logger zerolog.Logger) *FeatureFlagsHandler {
	return &FeatureFlagsHandler{service: service, logger: logger}
}

// ListFeatureFlags handles GET /v1/admin/flags.
func (h *FeatureFlagsHandler) ListFeatureFlags(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, h.service.List(r.Context()))
}

// GetFeatureFlag handles GET /v1/admin/flags/{flagKey}.
func (h *FeatureFlagsHandler) GetFeatureFlag(w http.ResponseWriter, r *http.Request) {
	flag, err := h.service.Get(r.Context(), chi.URLParam(r, "flagKey"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, flag)
}

// UpsertFeatureFlags handles PUT /v1/admin/flags. The request is applied in
// full or not at all.
func (h *FeatureFlagsHandler) UpsertFeatureFlags(w http.ResponseWriter, r *http.Request) {
	var input featureflags.FlagUpdateRequest
	if !decodeBody(w, r, &input) {
		return
	}
	if errs := validation.Struct(&input); errs != nil {
		response.ValidationFailed(w, r, errs)
		return
	}

	updated, err := h.service.SetFlags(r.Context(), input.Updates, input.Reason)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	keys := make([]string, 0, len(updated))
	for _, f := range updated {
		keys = append(keys, f.Key)
	}
	h.logger.Info().
		Str("owner_id", middleware.GetOwnerID(r.Context())).
		Strs("flags", keys).
		Str("reason", input.Reason).
		Msg("feature flags updated")

	response.JSON(w, r, http.StatusOK, h.service.List(r.Context()))
}

// InvalidateCache handles POST /v1/admin/flags/invalidate.
func (h *FeatureFlagsHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	h.service.InvalidateCache()
	response.NoContent(w, r)
}
