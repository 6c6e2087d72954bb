// Package worker provides background job processing for FleetMinder.
package worker

import (
	"os"
	"strconv"
	"time"
)

// DigestConfig holds configuration for the reminder digest job.
type DigestConfig struct {
	// Concurrency is the number of owners processed at once.
	// Default: 3
	Concurrency int

	// Timeout bounds building and publishing a single owner's digest.
	// Default: 30 seconds
	Timeout time.Duration
}

// DefaultDigestConfig returns the default digest configuration.
func DefaultDigestConfig() DigestConfig {
	return DigestConfig{
		Concurrency: 3,
		Timeout:     30 * time.Second,
	}
}

// Config holds the worker process configuration.
type Config struct {
	// ProjectID is the GCP project used for Pub/Sub. Pub/Sub is disabled when empty.
	ProjectID string

	// Subscription receives job messages (reminder_digest, health_check).
	Subscription string

	// DigestTopic is where digests are published. Takes precedence over WebhookURL.
	DigestTopic string

	// WebhookURL receives digests as JSON POSTs when no topic is set.
	WebhookURL string

	// WebhookSecret signs webhook deliveries. Unsigned when empty.
	WebhookSecret string

	// Schedule is the cron expression for the recurring digest run.
	// Default: @daily
	Schedule string

	Digest DigestConfig
}

// ConfigFromEnv creates a worker Config from environment variables.
func ConfigFromEnv() Config {
	digest := DefaultDigestConfig()
	if n, err := strconv.Atoi(os.Getenv("WORKER_CONCURRENCY")); err == nil && n > 0 {
		digest.Concurrency = n
	}
	if d, err := time.ParseDuration(os.Getenv("WORKER_DIGEST_TIMEOUT")); err == nil && d > 0 {
		digest.Timeout = d
	}

	return Config{
		ProjectID:     os.Getenv("PUBSUB_PROJECT_ID"),
		Subscription:  getEnvOrDefault("PUBSUB_SUBSCRIPTION", "fleetminder-worker"),
		DigestTopic:   os.Getenv("PUBSUB_DIGEST_TOPIC"),
		WebhookURL:    os.Getenv("DIGEST_WEBHOOK_URL"),
		WebhookSecret: os.Getenv("DIGEST_WEBHOOK_SECRET"),
		Schedule:      getEnvOrDefault("WORKER_DIGEST_SCHEDULE", "@daily"),
		Digest:        digest,
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
