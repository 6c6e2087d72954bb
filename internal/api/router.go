// Package api provides the HTTP API for FleetMinder.
package api

import (
	"context"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/fleetminder/fleetminder/internal/api/handler"
	"github.com/fleetminder/fleetminder/internal/api/middleware"
	"github.com/fleetminder/fleetminder/internal/device"
	"github.com/fleetminder/fleetminder/internal/featureflags"
	"github.com/fleetminder/fleetminder/internal/notification"
	"github.com/fleetminder/fleetminder/internal/resilience"
	"github.com/fleetminder/fleetminder/internal/servicelog"
	"github.com/fleetminder/fleetminder/internal/vehicle"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version    string
	BuildTime  string
	Logger     zerolog.Logger
	Metrics    *middleware.Metrics
	RequireTLS bool

	TokenValidator      middleware.TokenValidator
	AdminOwnerIDs       []string
	DatabasePinger      func(ctx context.Context) error
	EndpointRegistry    *resilience.Registry
	VehicleService      *vehicle.Service
	DeviceService       *device.Service
	ServiceLogService   *servicelog.Service
	NotificationService *notification.Service
	FeatureFlagService  *featureflags.Service
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Order matters: the request ID and span must exist before logging,
	// and recovery must sit inside the logger so panics are logged as 500s.
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing())
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))
	r.Use(middleware.ContentTypeJSON)
	r.Use(middleware.RequireJSON)

	opsHandler := handler.NewOpsHandler(handler.OpsConfig{
		Version:   cfg.Version,
		BuildTime: cfg.BuildTime,
		Pinger:    cfg.DatabasePinger,
		Registry:  cfg.EndpointRegistry,
		Flags:     cfg.FeatureFlagService,
		Logger:    cfg.Logger,
	})
	vehicleHandler := handler.NewVehicleHandler(cfg.VehicleService, cfg.Logger)
	deviceHandler := handler.NewDeviceHandler(cfg.DeviceService, cfg.Logger)
	recordHandler := handler.NewServiceRecordHandler(cfg.ServiceLogService, cfg.Logger)
	notificationHandler := handler.NewNotificationHandler(cfg.NotificationService, cfg.Logger)
	featureFlagsHandler := handler.NewFeatureFlagsHandler(cfg.FeatureFlagService, cfg.Logger)

	authMiddleware := middleware.Auth(cfg.TokenValidator)

	// Rate limits are keyed by owner once authenticated
	standardRateLimit := middleware.RateLimitByOwner(middleware.StandardRateLimit) // 100 req/min
	feedRateLimit := middleware.RateLimitByOwner(middleware.FeedRateLimit)         // 30 req/min
	adminRateLimit := middleware.RateLimitByOwner(middleware.AdminRateLimit)       // 10 req/min

	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.With(middleware.RateLimitByIP(middleware.OpsRateLimit)).Get("/status", opsHandler.SystemStatus)
		})

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)

			r.Route("/vehicles", func(r chi.Router) {
				r.Use(standardRateLimit)
				r.Get("/", vehicleHandler.ListVehicles)
				r.Post("/", vehicleHandler.CreateVehicle)
				r.Route("/{vehicleId}", func(r chi.Router) {
					r.Get("/", vehicleHandler.GetVehicle)
					r.Put("/", vehicleHandler.UpdateVehicle)
					r.Delete("/", vehicleHandler.DeleteVehicle)
				})
			})

			r.Route("/devices", func(r chi.Router) {
				r.Use(standardRateLimit)
				r.Get("/", deviceHandler.ListDevices)
				r.Post("/", deviceHandler.CreateDevice)
				r.Route("/{deviceId}", func(r chi.Router) {
					r.Get("/", deviceHandler.GetDevice)
					r.Put("/", deviceHandler.UpdateDevice)
					r.Delete("/", deviceHandler.DeleteDevice)
				})
			})

			r.Route("/service-records", func(r chi.Router) {
				r.Use(standardRateLimit)
				r.Get("/", recordHandler.ListServiceRecords)
				r.Post("/", recordHandler.CreateServiceRecord)
				r.Route("/{recordId}", func(r chi.Router) {
					r.Get("/", recordHandler.GetServiceRecord)
					r.Delete("/", recordHandler.DeleteServiceRecord)
				})
			})

			// Feed endpoints run the reminder engine over the whole fleet
			r.Route("/notifications", func(r chi.Router) {
				r.Use(feedRateLimit)
				r.Get("/", notificationHandler.ListNotifications)
				r.Get("/badge", notificationHandler.GetBadge)
				r.Post("/{notificationId}/dismiss", notificationHandler.DismissNotification)
				r.Delete("/{notificationId}/dismiss", notificationHandler.RestoreNotification)
			})

			// Admin endpoints - allowlisted owners only
			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireAdmin(cfg.AdminOwnerIDs))
				r.Use(adminRateLimit)

				r.Route("/flags", func(r chi.Router) {
					r.Get("/", featureFlagsHandler.ListFeatureFlags)
					r.Put("/", featureFlagsHandler.UpsertFeatureFlags)
					r.Post("/invalidate", featureFlagsHandler.InvalidateCache)
					r.Get("/{flagKey}", featureFlagsHandler.GetFeatureFlag)
				})
			})
		})
	})

	return r
}
