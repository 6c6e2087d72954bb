package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/fleetminder/fleetminder/internal/api/models"
	"github.com/fleetminder/fleetminder/internal/api/response"
	"github.com/fleetminder/fleetminder/internal/featureflags"
	"github.com/fleetminder/fleetminder/internal/resilience"
)

const readinessTimeout = 2 * time.Second

// OpsConfig holds dependencies for the operational endpoints.
type OpsConfig struct {
	Version   string
	BuildTime string

	// Pinger checks the database. A nil Pinger reports the database as not configured.
	Pinger func(ctx context.Context) error

	// Registry lists outbound delivery endpoints. Optional.
	Registry *resilience.Registry

	// Flags reports active degradation toggles. Optional.
	Flags *featureflags.Service

	Logger zerolog.Logger
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	cfg     OpsConfig
	started time.Time
	now     func() time.Time
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsConfig) *OpsHandler {
	return &OpsHandler{cfg: cfg, started: time.Now(), now: time.Now}
}

func (h *OpsHandler) health() models.Health {
	now := h.now()
	return models.Health{
		Status:        models.HealthStatusOK,
		Time:          models.Timestamp(now),
		Version:       h.cfg.Version,
		BuildTime:     h.cfg.BuildTime,
		UptimeSeconds: int64(now.Sub(h.started) / time.Second),
	}
}

// HealthCheck handles GET /v1/ops/health. It never touches dependencies.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, h.health())
}

// ReadinessCheck handles GET /v1/ops/ready.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.pingDatabase(r.Context()); err != nil {
		h.cfg.Logger.Warn().Err(err).Msg("readiness check failed")
		response.Problem(w, r, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	response.JSON(w, r, http.StatusOK, h.health())
}

// SystemStatus handles GET /v1/ops/status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Time:       models.Timestamp(h.now()),
		Subsystems: []models.SubsystemStatus{h.databaseStatus(r.Context())},
		Endpoints:  []models.EndpointStatus{},
	}

	if h.cfg.Registry != nil {
		for _, eh := range h.cfg.Registry.GetAllHealth() {
			status.Endpoints = append(status.Endpoints, endpointStatus(eh))
		}
	}

	if h.cfg.Flags != nil && h.cfg.Flags.IsReminderSendingDisabled(r.Context()) {
		status.ActiveDegradationFlags = append(status.ActiveDegradationFlags, featureflags.FlagDisableReminderSending)
	}

	status.Rollup()
	response.JSON(w, r, http.StatusOK, status)
}

func (h *OpsHandler) pingDatabase(ctx context.Context) error {
	if h.cfg.Pinger == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, readinessTimeout)
	defer cancel()
	return h.cfg.Pinger(ctx)
}

func (h *OpsHandler) databaseStatus(ctx context.Context) models.SubsystemStatus {
	sub := models.SubsystemStatus{Name: "database", Status: models.HealthStatusOK}
	if h.cfg.Pinger == nil {
		detail := "in-memory storage"
		sub.Detail = &detail
		return sub
	}
	if err := h.pingDatabase(ctx); err != nil {
		detail := err.Error()
		sub.Status = models.HealthStatusFail
		sub.Detail = &detail
	}
	return sub
}

func endpointStatus(eh *resilience.EndpointHealth) models.EndpointStatus {
	es := models.EndpointStatus{
		Name:                eh.Name,
		Status:              models.HealthStatusOK,
		CircuitState:        eh.CircuitState.String(),
		ConsecutiveFailures: eh.ConsecutiveFailures,
		TotalDeliveries:     eh.TotalDeliveries,
		TotalFailures:       eh.TotalFailures,
	}
	switch {
	case eh.IsUnhealthy():
		es.Status = models.HealthStatusFail
	case eh.IsDegraded():
		es.Status = models.HealthStatusDegraded
	}
	if eh.LastSuccessAt != nil {
		ts := models.Timestamp(*eh.LastSuccessAt)
		es.LastSuccessAt = &ts
	}
	if eh.LastFailureAt != nil {
		ts := models.Timestamp(*eh.LastFailureAt)
		es.LastFailureAt = &ts
	}
	if eh.LastError != "" {
		msg := eh.LastError
		es.Message = &msg
	}
	return es
}
