package worker

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/fleetminder/fleetminder/internal/resilience"
)

// Publisher delivers a digest to its destination.
type Publisher interface {
	Publish(ctx context.Context, digest *Digest) error
}

// PubSubPublisher publishes digests as JSON messages to a Pub/Sub topic.
type PubSubPublisher struct {
	publisher *pubsub.Publisher
	topic     string
}

// NewPubSubPublisher creates a publisher for the given topic.
func NewPubSubPublisher(client *pubsub.Client, topic string) *PubSubPublisher {
	return &PubSubPublisher{
		publisher: client.Publisher(topic),
		topic:     topic,
	}
}

// Publish sends the digest and waits for the server to acknowledge it.
func (p *PubSubPublisher) Publish(ctx context.Context, digest *Digest) error {
	data, err := json.Marshal(digest)
	if err != nil {
		return fmt.Errorf("encode digest: %w", err)
	}

	res := p.publisher.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"owner_id": digest.OwnerID,
			"type":     JobTypeReminderDigest,
		},
	})
	if _, err := res.Get(ctx); err != nil {
		return fmt.Errorf("publish to %s: %w", p.topic, err)
	}
	return nil
}

// Stop flushes pending messages.
func (p *PubSubPublisher) Stop() {
	p.publisher.Stop()
}

// SignatureHeader carries the HMAC of a webhook delivery.
const SignatureHeader = "X-FleetMinder-Signature"

// WebhookPublisher POSTs digests to an HTTP endpoint through a resilient client.
type WebhookPublisher struct {
	url      string
	secret   []byte
	client   *resilience.Client
	registry *resilience.Registry
	now      func() time.Time
}

// NewWebhookPublisher creates a webhook publisher and registers its client
// with the registry so its health shows up on the status endpoint. When
// secret is set, each delivery is signed.
func NewWebhookPublisher(url, secret string, client *resilience.Client, registry *resilience.Registry) *WebhookPublisher {
	if registry != nil {
		registry.Register(client)
	}
	return &WebhookPublisher{
		url:      url,
		secret:   []byte(secret),
		client:   client,
		registry: registry,
		now:      time.Now,
	}
}

// Publish sends the digest as a JSON POST.
func (p *WebhookPublisher) Publish(ctx context.Context, digest *Digest) error {
	err := p.post(ctx, digest)
	if p.registry != nil && ctx.Err() == nil {
		p.registry.Record(p.client.Name(), err)
	}
	return err
}

func (p *WebhookPublisher) post(ctx context.Context, digest *Digest) error {
	data, err := json.Marshal(digest)
	if err != nil {
		return fmt.Errorf("encode digest: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if len(p.secret) > 0 {
		req.Header.Set(SignatureHeader, Sign(p.secret, p.now(), data))
	}

	resp, err := p.client.DoWithContext(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain for connection reuse

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// Sign returns the signature header value for a payload: "t=<unix>,v1=<hex>",
// where v1 is the HMAC-SHA256 of "<unix>.<payload>".
func Sign(secret []byte, at time.Time, payload []byte) string {
	ts := strconv.FormatInt(at.Unix(), 10)
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(payload)
	return "t=" + ts + ",v1=" + hex.EncodeToString(mac.Sum(nil))
}

// LogPublisher writes digests to the log. Used when no destination is configured.
type LogPublisher struct {
	logger zerolog.Logger
}

// NewLogPublisher creates a log publisher.
func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs a digest summary.
func (p *LogPublisher) Publish(_ context.Context, digest *Digest) error {
	p.logger.Info().
		Str("owner_id", digest.OwnerID).
		Int("items", len(digest.Items)).
		Int("expired", digest.ExpiredCount).
		Int("urgent", digest.UrgentCount).
		Msg("reminder digest")
	return nil
}
