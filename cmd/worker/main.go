// Package main provides the entrypoint for the FleetMinder reminder worker.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/fleetminder/fleetminder/internal/api/handler"
	"github.com/fleetminder/fleetminder/internal/api/middleware"
	"github.com/fleetminder/fleetminder/internal/api/response"
	"github.com/fleetminder/fleetminder/internal/database"
	"github.com/fleetminder/fleetminder/internal/device"
	"github.com/fleetminder/fleetminder/internal/featureflags"
	"github.com/fleetminder/fleetminder/internal/notification"
	"github.com/fleetminder/fleetminder/internal/resilience"
	"github.com/fleetminder/fleetminder/internal/telemetry"
	"github.com/fleetminder/fleetminder/internal/vehicle"
	"github.com/fleetminder/fleetminder/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "fleetminder-worker"

	_ = godotenv.Load()

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting FleetMinder worker")

	// Worker also exposes health endpoints for Cloud Run
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, err := telemetry.Init(ctx, telemetry.ConfigFromEnv(serviceName, Version))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	dbConfig := database.ConfigFromEnv()
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	if dbConfig.AutoMigrate {
		if err := database.Migrate(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("failed to apply migrations")
		}
	}

	vehicleRepo := vehicle.NewPostgresRepository(pool)
	deviceRepo := device.NewPostgresRepository(pool)

	ffService := featureflags.NewService(featureflags.ServiceConfig{
		Repository: featureflags.NewPostgresRepository(pool),
		Logger:     log,
		CacheTTL:   1 * time.Minute,
	})

	notificationService := notification.NewService(notification.ServiceConfig{
		Vehicles:   vehicleRepo,
		Devices:    deviceRepo,
		Dismissals: notification.NewPostgresDismissalRepository(pool),
		Thresholds: ffService,
		Logger:     log,
	})

	cfg := worker.ConfigFromEnv()
	registry := resilience.GlobalRegistry

	var pubsubClient *pubsub.Client
	if cfg.ProjectID != "" {
		pubsubClient, err = pubsub.NewClient(ctx, cfg.ProjectID)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create pubsub client")
		}
		defer pubsubClient.Close()
	}

	var publisher worker.Publisher
	switch {
	case pubsubClient != nil && cfg.DigestTopic != "":
		p := worker.NewPubSubPublisher(pubsubClient, cfg.DigestTopic)
		defer p.Stop()
		publisher = p
		log.Info().Str("topic", cfg.DigestTopic).Msg("publishing digests to pubsub")
	case cfg.WebhookURL != "":
		clientCfg := resilience.DefaultClientConfig("digest-webhook")
		clientCfg.UserAgent = "fleetminder-worker/" + Version
		clientCfg.Breaker.Logger = log
		publisher = worker.NewWebhookPublisher(cfg.WebhookURL, cfg.WebhookSecret, resilience.NewClient(clientCfg), registry)
		log.Info().
			Strs("endpoints", registry.EndpointNames()).
			Bool("signed", cfg.WebhookSecret != "").
			Msg("publishing digests to webhook")
	default:
		publisher = worker.NewLogPublisher(log)
		log.Warn().Msg("no digest destination configured - digests are only logged")
	}

	digestJob := worker.NewDigestJob(worker.DigestJobConfig{
		Config:    cfg.Digest,
		Logger:    log,
		Owners:    []worker.OwnerLister{vehicleRepo, deviceRepo},
		Feed:      notificationService,
		Publisher: publisher,
		Flags:     ffService,
	})

	scheduler, err := worker.NewScheduler(ctx, cfg.Schedule, digestJob, log)
	if err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.Schedule).Msg("invalid digest schedule")
	}
	scheduler.Start()
	log.Info().Str("schedule", cfg.Schedule).Msg("digest scheduler started")

	if pubsubClient != nil {
		pubsubHandler := worker.NewPubSubHandler(worker.PubSubConfig{
			Client:           pubsubClient,
			SubscriptionName: cfg.Subscription,
			DigestJob:        digestJob,
			Logger:           log,
		})
		go func() {
			if err := pubsubHandler.Start(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("pubsub handler stopped")
			}
		}()
	}

	opsHandler := handler.NewOpsHandler(handler.OpsConfig{
		Version:   Version,
		BuildTime: BuildTime,
		Pinger: func(ctx context.Context) error {
			return database.Ping(ctx, pool)
		},
		Registry: registry,
		Flags:    ffService,
		Logger:   log,
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(log))
	r.Get("/health", opsHandler.HealthCheck)
	r.Route("/v1/ops", func(r chi.Router) {
		r.Get("/health", opsHandler.HealthCheck)
		r.Get("/ready", opsHandler.ReadinessCheck)
		r.Get("/status", opsHandler.SystemStatus)
		r.Get("/digest", func(w http.ResponseWriter, r *http.Request) {
			response.JSON(w, r, http.StatusOK, digestJob.MetricsSnapshot())
		})
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker")
	cancel()

	// Wait for an in-flight digest run before closing the pool
	<-scheduler.Stop().Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}
