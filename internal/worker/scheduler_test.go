package worker_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetminder/fleetminder/internal/worker"
)

func TestNewScheduler(t *testing.T) {
	job := worker.NewDigestJob(worker.DigestJobConfig{
		Logger:    zerolog.Nop(),
		Feed:      &stubFeed{},
		Publisher: &recordingPublisher{},
	})

	tests := []struct {
		name    string
		spec    string
		wantErr bool
	}{
		{name: "descriptor", spec: "@daily"},
		{name: "interval", spec: "@every 6h"},
		{name: "five field", spec: "0 7 * * 1-5"},
		{name: "invalid", spec: "every morning", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := worker.NewScheduler(context.Background(), tt.spec, job, zerolog.Nop())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 1, s.Entries())

			s.Start()
			<-s.Stop().Done()
		})
	}
}
