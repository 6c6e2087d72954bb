package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetminder/fleetminder/internal/reminder"
)

type ownersFunc func(ctx context.Context) ([]string, error)

func (f ownersFunc) ListOwners(ctx context.Context) ([]string, error) { return f(ctx) }

type feedFunc func(ctx context.Context, ownerID string) ([]reminder.Notification, error)

func (f feedFunc) Pending(ctx context.Context, ownerID string) ([]reminder.Notification, error) {
	return f(ctx, ownerID)
}

type countingPublisher struct{ count int }

func (p *countingPublisher) Publish(_ context.Context, _ *Digest) error {
	p.count++
	return nil
}

func newTestHandler(owners ownersFunc, feed feedFunc, pub Publisher) *PubSubHandler {
	job := NewDigestJob(DigestJobConfig{
		Config:    DigestConfig{Concurrency: 1},
		Logger:    zerolog.Nop(),
		Owners:    []OwnerLister{owners},
		Feed:      feed,
		Publisher: pub,
	})
	return &PubSubHandler{digestJob: job, logger: zerolog.Nop()}
}

func urgentFeed(_ context.Context, ownerID string) ([]reminder.Notification, error) {
	return []reminder.Notification{{ID: "insurance-" + ownerID, DaysRemaining: 1}}, nil
}

func TestDispatch_ReminderDigest(t *testing.T) {
	pub := &countingPublisher{}
	h := newTestHandler(
		func(context.Context) ([]string, error) { return []string{"owner1", "owner2"}, nil },
		urgentFeed,
		pub,
	)

	ack, err := h.dispatch(context.Background(), []byte(`{"job_type":"reminder_digest"}`), nil)
	require.NoError(t, err)
	assert.True(t, ack)
	assert.Equal(t, 2, pub.count)
}

func TestDispatch_ReminderDigestForOwners(t *testing.T) {
	pub := &countingPublisher{}
	h := newTestHandler(
		func(context.Context) ([]string, error) { return nil, errors.New("should not be called") },
		urgentFeed,
		pub,
	)

	ack, err := h.dispatch(context.Background(), []byte(`{"job_type":"reminder_digest","owner_ids":["owner9"]}`), nil)
	require.NoError(t, err)
	assert.True(t, ack)
	assert.Equal(t, 1, pub.count)
}

func TestDispatch_ReminderDigestAllFailed(t *testing.T) {
	h := newTestHandler(
		func(context.Context) ([]string, error) { return []string{"owner1"}, nil },
		func(context.Context, string) ([]reminder.Notification, error) { return nil, errors.New("db down") },
		&countingPublisher{},
	)

	ack, err := h.dispatch(context.Background(), []byte(`{"job_type":"reminder_digest"}`), nil)
	assert.Error(t, err)
	assert.False(t, ack)
}

func TestDispatch_HealthCheck(t *testing.T) {
	h := newTestHandler(
		func(context.Context) ([]string, error) { return []string{}, nil },
		urgentFeed,
		&countingPublisher{},
	)

	ack, err := h.dispatch(context.Background(), []byte(`{"job_type":"health_check"}`), nil)
	require.NoError(t, err)
	assert.True(t, ack)

	failing := newTestHandler(
		func(context.Context) ([]string, error) { return nil, errors.New("db down") },
		urgentFeed,
		&countingPublisher{},
	)
	ack, err = failing.dispatch(context.Background(), []byte(`{"job_type":"health_check"}`), nil)
	assert.Error(t, err)
	assert.False(t, ack)
}

func TestDispatch_MalformedAndUnknown(t *testing.T) {
	h := newTestHandler(
		func(context.Context) ([]string, error) { return nil, nil },
		urgentFeed,
		&countingPublisher{},
	)

	ack, err := h.dispatch(context.Background(), []byte(`not json`), nil)
	assert.Error(t, err)
	assert.False(t, ack)

	ack, err = h.dispatch(context.Background(), []byte(`{"job_type":"provider_refresh"}`), nil)
	assert.NoError(t, err)
	assert.True(t, ack)
}

func TestDispatch_JobTypeFromAttribute(t *testing.T) {
	pub := &countingPublisher{}
	h := newTestHandler(
		func(context.Context) ([]string, error) { return []string{"owner1"}, nil },
		urgentFeed,
		pub,
	)

	ack, err := h.dispatch(context.Background(), nil, map[string]string{"job_type": JobTypeReminderDigest})
	require.NoError(t, err)
	assert.True(t, ack)
	assert.Equal(t, 1, pub.count)
}

func TestParseJob(t *testing.T) {
	job, err := parseJob([]byte(`{"job_type":"health_check"}`), map[string]string{"job_type": "reminder_digest"})
	require.NoError(t, err)
	assert.Equal(t, JobTypeHealthCheck, job.JobType, "body wins over attribute")

	job, err = parseJob([]byte("  "), map[string]string{"job_type": "reminder_digest"})
	require.NoError(t, err)
	assert.Equal(t, JobTypeReminderDigest, job.JobType)

	_, err = parseJob([]byte("{"), nil)
	assert.Error(t, err)
}
