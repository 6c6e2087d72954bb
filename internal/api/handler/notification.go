package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/fleetminder/fleetminder/internal/api/middleware"
	"github.com/fleetminder/fleetminder/internal/api/models"
	"github.com/fleetminder/fleetminder/internal/api/response"
	"github.com/fleetminder/fleetminder/internal/notification"
)

// NotificationHandler handles the reminder feed endpoints.
type NotificationHandler struct {
	service *notification.Service
	logger  zerolog.Logger
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(service *notification.Service, logger zerolog.Logger) *NotificationHandler {
	return &NotificationHandler{service: service, logger: logger}
}

// ListNotifications handles GET /v1/notifications - the sorted reminder feed.
func (h *NotificationHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	var opts notification.ListOptions
	if raw := r.URL.Query().Get("includeDismissed"); raw != "" {
		include, err := strconv.ParseBool(raw)
		if err != nil {
			response.ValidationFailed(w, r, []models.FieldError{{
				Field:   "includeDismissed",
				Message: "must be true or false",
				Code:    "boolean",
			}})
			return
		}
		opts.IncludeDismissed = include
	}

	list, err := h.service.List(r.Context(), middleware.GetOwnerID(r.Context()), opts)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, list)
}

// GetBadge handles GET /v1/notifications/badge - the urgent reminder count.
func (h *NotificationHandler) GetBadge(w http.ResponseWriter, r *http.Request) {
	badge, err := h.service.BadgeCount(r.Context(), middleware.GetOwnerID(r.Context()))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, badge)
}

// DismissNotification handles POST /v1/notifications/{notificationId}/dismiss.
func (h *NotificationHandler) DismissNotification(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.Dismiss(r.Context(), middleware.GetOwnerID(r.Context()), chi.URLParam(r, "notificationId"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, n)
}

// RestoreNotification handles DELETE /v1/notifications/{notificationId}/dismiss.
func (h *NotificationHandler) RestoreNotification(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Restore(r.Context(), middleware.GetOwnerID(r.Context()), chi.URLParam(r, "notificationId")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.NoContent(w, r)
}
