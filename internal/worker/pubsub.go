package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// Job types accepted on the worker subscription.
const (
	JobTypeReminderDigest = "reminder_digest"
	JobTypeHealthCheck    = "health_check"
)

// PubSubHandler runs jobs requested on the worker subscription.
type PubSubHandler struct {
	subscriber *pubsub.Subscriber
	name       string
	digestJob  *DigestJob
	logger     zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	Client           *pubsub.Client
	SubscriptionName string
	DigestJob        *DigestJob
	Logger           zerolog.Logger
}

// JobMessage is a job request received on the worker subscription. The job
// type may also be sent as the "job_type" message attribute, which Cloud
// Scheduler pushes use with an empty body.
type JobMessage struct {
	JobType  string   `json:"job_type"`
	OwnerIDs []string `json:"owner_ids,omitempty"`
}

// jobTypeAttribute is the message attribute consulted when the body has no job type.
const jobTypeAttribute = "job_type"

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(cfg PubSubConfig) *PubSubHandler {
	subscriber := cfg.Client.Subscriber(cfg.SubscriptionName)

	subscriber.ReceiveSettings.MaxOutstandingMessages = 10
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &PubSubHandler{
		subscriber: subscriber,
		name:       cfg.SubscriptionName,
		digestJob:  cfg.DigestJob,
		logger:     cfg.Logger,
	}
}

// Start begins processing Pub/Sub messages. It blocks until ctx is done.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.name).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		h.handleMessage(ctx, msg)
	})
}

func (h *PubSubHandler) handleMessage(ctx context.Context, msg *pubsub.Message) {
	started := time.Now()
	logger := h.logger.With().
		Str("message_id", msg.ID).
		Time("published", msg.PublishTime).
		Logger()

	attempt := 1
	if msg.DeliveryAttempt != nil {
		attempt = *msg.DeliveryAttempt
	}
	logger.Debug().Int("delivery_attempt", attempt).Msg("received pubsub message")

	ack, err := h.dispatch(ctx, msg.Data, msg.Attributes)
	switch {
	case err != nil:
		logger.Error().Err(err).Int("delivery_attempt", attempt).Bool("retry", !ack).Msg("job failed")
	default:
		logger.Info().Dur("duration", time.Since(started)).Msg("job completed")
	}

	if ack {
		msg.Ack()
	} else {
		msg.Nack()
	}
}

// dispatch runs the job described by data and reports whether the message
// should be acknowledged. Malformed messages are nacked; unknown job types are
// acked so they are not redelivered.
func (h *PubSubHandler) dispatch(ctx context.Context, data []byte, attrs map[string]string) (bool, error) {
	job, err := parseJob(data, attrs)
	if err != nil {
		return false, err
	}

	switch job.JobType {
	case JobTypeReminderDigest:
		if err := h.handleDigest(ctx, job); err != nil {
			return false, err
		}
		return true, nil
	case JobTypeHealthCheck:
		if err := h.digestJob.HealthCheck(ctx); err != nil {
			return false, fmt.Errorf("health check: %w", err)
		}
		return true, nil
	default:
		h.logger.Warn().Str("job_type", job.JobType).Msg("unknown job type")
		return true, nil
	}
}

func (h *PubSubHandler) handleDigest(ctx context.Context, job JobMessage) error {
	var result *DigestResult
	if len(job.OwnerIDs) > 0 {
		result = h.digestJob.RunOwners(ctx, job.OwnerIDs)
	} else {
		var err error
		result, err = h.digestJob.Run(ctx)
		if err != nil {
			return err
		}
	}

	// Nack when most owners failed so the run is retried.
	if result.Failed > 0 && result.Failed >= result.Sent+result.Skipped {
		return fmt.Errorf("too many digest failures: %d/%d", result.Failed, result.Owners)
	}
	return nil
}

func parseJob(data []byte, attrs map[string]string) (JobMessage, error) {
	var job JobMessage
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &job); err != nil {
			return job, fmt.Errorf("parse message: %w", err)
		}
	}
	if job.JobType == "" {
		job.JobType = attrs[jobTypeAttribute]
	}
	return job, nil
}
