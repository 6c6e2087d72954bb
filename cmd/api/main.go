// Package main provides the entrypoint for the FleetMinder API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"

	"github.com/fleetminder/fleetminder/internal/api"
	"github.com/fleetminder/fleetminder/internal/api/middleware"
	"github.com/fleetminder/fleetminder/internal/auth"
	"github.com/fleetminder/fleetminder/internal/database"
	"github.com/fleetminder/fleetminder/internal/device"
	"github.com/fleetminder/fleetminder/internal/featureflags"
	"github.com/fleetminder/fleetminder/internal/notification"
	"github.com/fleetminder/fleetminder/internal/resilience"
	"github.com/fleetminder/fleetminder/internal/servicelog"
	"github.com/fleetminder/fleetminder/internal/telemetry"
	"github.com/fleetminder/fleetminder/internal/vehicle"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const (
	serviceName     = "fleetminder-api"
	devSigningKey   = "local-dev-signing-key-change-in-production"
	shutdownTimeout = 30 * time.Second
)

func main() {
	// A missing .env is fine outside local development
	_ = godotenv.Load()

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, log); err != nil {
		log.Error().Err(err).Msg("api exited")
		os.Exit(1)
	}
}

func run(ctx context.Context, log zerolog.Logger) error {
	log.Info().Str("build_time", BuildTime).Msg("starting FleetMinder API")

	telemetryCfg := telemetry.ConfigFromEnv(serviceName, Version)
	tp, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(flushCtx); err != nil {
			log.Error().Err(err).Msg("failed to flush telemetry")
		}
	}()
	if tp.Enabled() {
		log.Info().
			Str("otlp_endpoint", telemetryCfg.OTLPEndpoint).
			Float64("sample_ratio", telemetryCfg.SampleRatio).
			Msg("OpenTelemetry initialized")
	}

	httpMetrics, err := middleware.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		return fmt.Errorf("init http metrics: %w", err)
	}
	feedMetrics, err := notification.NewMetrics()
	if err != nil {
		return fmt.Errorf("init notification metrics: %w", err)
	}

	st, err := openStores(ctx, log)
	if err != nil {
		return err
	}
	defer st.close()

	jwtConfig := auth.JWTConfigFromEnv()
	if jwtConfig.SigningKey == "" {
		jwtConfig.SigningKey = devSigningKey
		log.Warn().Msg("JWT_SIGNING_KEY not set - using the development key")
	}

	vehicleService := vehicle.NewService(st.vehicles)
	deviceService := device.NewService(st.devices, st.vehicles)
	flags := featureflags.NewService(featureflags.ServiceConfig{
		Repository: st.flags,
		Logger:     log,
		CacheTTL:   time.Minute,
	})

	adminOwnerIDs := splitList(os.Getenv("ADMIN_OWNER_IDS"))
	if len(adminOwnerIDs) == 0 {
		log.Warn().Msg("ADMIN_OWNER_IDS not set - admin endpoints are closed")
	}

	router := api.NewRouter(api.RouterConfig{
		Version:           Version,
		BuildTime:         BuildTime,
		Logger:            log,
		Metrics:           httpMetrics,
		RequireTLS:        os.Getenv("REQUIRE_TLS") == "true",
		TokenValidator:    auth.NewJWTService(jwtConfig),
		AdminOwnerIDs:     adminOwnerIDs,
		DatabasePinger:    st.ping,
		EndpointRegistry:  resilience.GlobalRegistry,
		VehicleService:    vehicleService,
		DeviceService:     deviceService,
		ServiceLogService: servicelog.NewService(st.records, vehicleService, deviceService, log),
		NotificationService: notification.NewService(notification.ServiceConfig{
			Vehicles:   st.vehicles,
			Devices:    st.devices,
			Dismissals: st.dismissals,
			Thresholds: flags,
			Metrics:    feedMetrics,
			Logger:     log,
		}),
		FeatureFlagService: flags,
	})

	server := &http.Server{
		Addr:              ":" + envOr("APP_PORT", "8080"),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	log.Info().Msg("server stopped")
	return nil
}

// stores bundles the repositories behind one storage backend.
type stores struct {
	vehicles   vehicle.Repository
	devices    device.Repository
	records    servicelog.Repository
	dismissals notification.DismissalRepository
	flags      featureflags.Repository

	// ping is nil for the memory backend, which readiness reports as such.
	ping  func(context.Context) error
	close func()
}

// openStores selects the backend named by STORAGE_BACKEND: "postgres"
// (default) or "memory" for local runs without a database.
func openStores(ctx context.Context, log zerolog.Logger) (*stores, error) {
	switch backend := envOr("STORAGE_BACKEND", "postgres"); backend {
	case "memory":
		log.Warn().Msg("using in-memory storage - data is lost on restart")
		return &stores{
			vehicles:   vehicle.NewInMemoryRepository(),
			devices:    device.NewInMemoryRepository(),
			records:    servicelog.NewInMemoryRepository(),
			dismissals: notification.NewInMemoryDismissalRepository(),
			flags:      featureflags.NewInMemoryRepository(),
			close:      func() {},
		}, nil
	case "postgres":
		return openPostgres(ctx, log)
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q", backend)
	}
}

func openPostgres(ctx context.Context, log zerolog.Logger) (*stores, error) {
	cfg := database.ConfigFromEnv()
	pool, err := database.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	log.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Database).
		Msg("database connected")

	if cfg.AutoMigrate {
		if err := database.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		log.Info().Msg("database migrations applied")
	}

	return &stores{
		vehicles:   vehicle.NewPostgresRepository(pool),
		devices:    device.NewPostgresRepository(pool),
		records:    servicelog.NewPostgresRepository(pool),
		dismissals: notification.NewPostgresDismissalRepository(pool),
		flags:      featureflags.NewPostgresRepository(pool),
		ping:       pinger(pool),
		close:      pool.Close,
	}, nil
}

func pinger(pool *pgxpool.Pool) func(context.Context) error {
	return func(ctx context.Context) error {
		return database.Ping(ctx, pool)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// splitList parses a comma-separated environment value.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
