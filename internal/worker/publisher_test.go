package worker_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetminder/fleetminder/internal/api/models"
	"github.com/fleetminder/fleetminder/internal/resilience"
	"github.com/fleetminder/fleetminder/internal/worker"
)

func testDigest() *worker.Digest {
	return &worker.Digest{
		OwnerID:     "owner1",
		GeneratedAt: models.Timestamp(now),
		UrgentDays:  7,
		UrgentCount: 1,
		Items: []models.Notification{
			{ID: "insurance-veh_1", SourceEntityID: "veh_1", Category: models.NotificationCategoryInsurance, DaysRemaining: 3},
		},
	}
}

func webhookClient() *resilience.Client {
	return resilience.NewClient(resilience.ClientConfig{
		Name:            "digest-webhook",
		Timeout:         time.Second,
		MaxRetries:      1,
		InitialInterval: 10 * time.Millisecond,
	})
}

func TestWebhookPublisher_Publish(t *testing.T) {
	var received worker.Digest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Empty(t, r.Header.Get(worker.SignatureHeader))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	registry := resilience.NewRegistry()
	pub := worker.NewWebhookPublisher(server.URL, "", webhookClient(), registry)

	err := pub.Publish(context.Background(), testDigest())
	require.NoError(t, err)

	assert.Equal(t, "owner1", received.OwnerID)
	require.Len(t, received.Items, 1)
	assert.Equal(t, "insurance-veh_1", received.Items[0].ID)

	health := registry.GetHealth("digest-webhook")
	require.NotNil(t, health)
	assert.NotNil(t, health.LastSuccessAt)
	assert.Equal(t, 0, health.ConsecutiveFailures)
}

func TestWebhookPublisher_SignsDeliveries(t *testing.T) {
	secret := []byte("whsec_test")
	var signature string
	var body []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		signature = r.Header.Get(worker.SignatureHeader)
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	pub := worker.NewWebhookPublisher(server.URL, string(secret), webhookClient(), nil)
	require.NoError(t, pub.Publish(context.Background(), testDigest()))

	require.True(t, strings.HasPrefix(signature, "t="), signature)
	parts := strings.SplitN(strings.TrimPrefix(signature, "t="), ",v1=", 2)
	require.Len(t, parts, 2)

	ts, err := strconv.ParseInt(parts[0], 10, 64)
	require.NoError(t, err)
	assert.Equal(t, worker.Sign(secret, time.Unix(ts, 0), body), signature)
}

func TestSign(t *testing.T) {
	at := time.Unix(1710400000, 0)
	a := worker.Sign([]byte("secret"), at, []byte(`{"ownerId":"o1"}`))
	b := worker.Sign([]byte("secret"), at, []byte(`{"ownerId":"o2"}`))
	c := worker.Sign([]byte("other"), at, []byte(`{"ownerId":"o1"}`))

	assert.True(t, strings.HasPrefix(a, "t=1710400000,v1="))
	assert.Len(t, strings.TrimPrefix(a, "t=1710400000,v1="), 64)
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestWebhookPublisher_ClientError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	registry := resilience.NewRegistry()
	pub := worker.NewWebhookPublisher(server.URL, "", webhookClient(), registry)

	err := pub.Publish(context.Background(), testDigest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")

	health := registry.GetHealth("digest-webhook")
	require.NotNil(t, health)
	assert.NotNil(t, health.LastFailureAt)
	assert.Contains(t, health.LastError, "400")
	assert.Equal(t, 1, health.ConsecutiveFailures)
}

func TestWebhookPublisher_NoRegistry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	pub := worker.NewWebhookPublisher(server.URL, "", webhookClient(), nil)
	assert.NoError(t, pub.Publish(context.Background(), testDigest()))
}

func TestLogPublisher_Publish(t *testing.T) {
	pub := worker.NewLogPublisher(zerolog.Nop())
	assert.NoError(t, pub.Publish(context.Background(), testDigest()))
}
