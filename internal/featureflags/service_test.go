package featureflags_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetminder/fleetminder/internal/featureflags"
	"github.com/fleetminder/fleetminder/internal/reminder"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time          { return c.now }
func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newService(repo featureflags.Repository) (*featureflags.Service, *clock) {
	c := &clock{now: time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)}
	svc := featureflags.NewService(featureflags.ServiceConfig{
		Repository: repo,
		Logger:     zerolog.Nop(),
		CacheTTL:   time.Minute,
		Now:        c.Now,
	})
	return svc, c
}

func TestService_Defaults(t *testing.T) {
	svc, _ := newService(featureflags.NewInMemoryRepository())
	ctx := context.Background()

	assert.False(t, svc.IsReminderSendingDisabled(ctx))
	assert.False(t, svc.IsDigestUpcomingIncluded(ctx))
	assert.Equal(t, reminder.DefaultUrgentDays, svc.BadgeUrgentDays(ctx))

	list := svc.List(ctx)
	require.Len(t, list.Items, 3)
	assert.Equal(t, featureflags.FlagBadgeUrgentDays, list.Items[0].Key)
	assert.Equal(t, featureflags.FlagDisableReminderSending, list.Items[2].Key)
	for _, f := range list.Items {
		assert.NotEmpty(t, f.Description, f.Key)
	}
}

func TestService_Get(t *testing.T) {
	svc, _ := newService(featureflags.NewInMemoryRepository(
		&featureflags.Flag{Key: "legacy_flag", Value: "on"},
	))
	ctx := context.Background()

	flag, err := svc.Get(ctx, featureflags.FlagBadgeUrgentDays)
	require.NoError(t, err)
	assert.Equal(t, float64(reminder.DefaultUrgentDays), flag.Value)

	// Stored keys outside the catalogue are still visible to admins.
	flag, err = svc.Get(ctx, "legacy_flag")
	require.NoError(t, err)
	assert.Equal(t, "on", flag.Value)

	_, err = svc.Get(ctx, "no_such_flag")
	assert.ErrorIs(t, err, featureflags.ErrFlagNotFound)
}

func TestService_SetFlags(t *testing.T) {
	repo := featureflags.NewInMemoryRepository()
	svc, c := newService(repo)
	ctx := context.Background()

	// Warm the cache so the update has to refresh it.
	require.False(t, svc.IsReminderSendingDisabled(ctx))

	updated, err := svc.SetFlags(ctx, []featureflags.FlagUpdate{
		{Key: featureflags.FlagDisableReminderSending, Value: true},
		{Key: featureflags.FlagBadgeUrgentDays, Value: float64(3)},
		{Key: featureflags.FlagDigestIncludeUpcoming, Value: true},
	}, "webhook endpoint down")
	require.NoError(t, err)
	require.Len(t, updated, 3)
	assert.Equal(t, "webhook endpoint down", updated[0].Reason)
	assert.Equal(t, c.now, updated[0].UpdatedAt)

	assert.True(t, svc.IsReminderSendingDisabled(ctx))
	assert.True(t, svc.IsDigestUpcomingIncluded(ctx))
	assert.Equal(t, 3, svc.BadgeUrgentDays(ctx))

	stored, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 3)
}

func TestService_SetFlagsValidation(t *testing.T) {
	repo := featureflags.NewInMemoryRepository()
	svc, _ := newService(repo)
	ctx := context.Background()

	_, err := svc.SetFlags(ctx, []featureflags.FlagUpdate{
		{Key: featureflags.FlagDisableReminderSending, Value: true},
		{Key: featureflags.FlagDisableReminderSending, Value: "yes"},
		{Key: featureflags.FlagBadgeUrgentDays, Value: 2.5},
		{Key: featureflags.FlagBadgeUrgentDays, Value: float64(45)},
		{Key: "paint_it_red", Value: true},
	}, "mixed")

	var verr *featureflags.ValidationError
	require.True(t, errors.As(err, &verr), "got %v", err)

	fields := make([]string, 0, len(verr.Errors))
	for _, fe := range verr.Errors {
		fields = append(fields, fe.Field)
	}
	assert.Equal(t, []string{"updates[1].value", "updates[2].value", "updates[3].value", "updates[4].key"}, fields)

	// Nothing is written when any update is rejected.
	stored, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestService_CacheTTLAndInvalidate(t *testing.T) {
	repo := featureflags.NewInMemoryRepository()
	svc, c := newService(repo)
	ctx := context.Background()

	require.False(t, svc.IsReminderSendingDisabled(ctx))

	// Written behind the service's back, e.g. by the other process.
	require.NoError(t, repo.Upsert(ctx, []*featureflags.Flag{
		{Key: featureflags.FlagDisableReminderSending, Value: true},
	}))
	assert.False(t, svc.IsReminderSendingDisabled(ctx), "cached value served within TTL")

	c.Advance(2 * time.Minute)
	assert.True(t, svc.IsReminderSendingDisabled(ctx), "reloaded after TTL")

	require.NoError(t, repo.Upsert(ctx, []*featureflags.Flag{
		{Key: featureflags.FlagDisableReminderSending, Value: false},
	}))
	svc.InvalidateCache()
	assert.False(t, svc.IsReminderSendingDisabled(ctx), "reloaded after invalidation")
}

func TestService_RepositoryFailure(t *testing.T) {
	repo := featureflags.NewInMemoryRepository(
		&featureflags.Flag{Key: featureflags.FlagDisableReminderSending, Value: true},
	)
	svc, c := newService(repo)
	ctx := context.Background()

	require.True(t, svc.IsReminderSendingDisabled(ctx))

	repo.FailWith(errors.New("connection refused"))
	c.Advance(2 * time.Minute)
	assert.True(t, svc.IsReminderSendingDisabled(ctx), "last snapshot kept")

	_, err := svc.SetFlags(ctx, []featureflags.FlagUpdate{
		{Key: featureflags.FlagDisableReminderSending, Value: false},
	}, "retry")
	assert.ErrorContains(t, err, "connection refused")
}

func TestService_RepositoryFailureBeforeFirstLoad(t *testing.T) {
	repo := featureflags.NewInMemoryRepository()
	repo.FailWith(errors.New("connection refused"))
	svc, _ := newService(repo)

	assert.False(t, svc.IsReminderSendingDisabled(context.Background()))
	assert.Equal(t, reminder.DefaultUrgentDays, svc.BadgeUrgentDays(context.Background()))
}

func TestService_BadgeUrgentDays(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  int
	}{
		{name: "configured", value: float64(14), want: 14},
		{name: "zero", value: float64(0), want: 0},
		{name: "negative falls back", value: float64(-2), want: reminder.DefaultUrgentDays},
		{name: "beyond reminder window falls back", value: float64(90), want: reminder.DefaultUrgentDays},
		{name: "fraction falls back", value: 1.5, want: reminder.DefaultUrgentDays},
		{name: "wrong type falls back", value: "soon", want: reminder.DefaultUrgentDays},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newService(featureflags.NewInMemoryRepository(
				&featureflags.Flag{Key: featureflags.FlagBadgeUrgentDays, Value: tt.value},
			))
			assert.Equal(t, tt.want, svc.BadgeUrgentDays(context.Background()))
		})
	}
}

func TestFlag_ValueHelpers(t *testing.T) {
	var missing *featureflags.Flag
	assert.True(t, missing.BoolValue(true))
	assert.Equal(t, 5, missing.IntValue(5))

	assert.True(t, (&featureflags.Flag{Value: true}).BoolValue(false))
	assert.True(t, (&featureflags.Flag{Value: float64(1)}).BoolValue(true), "numbers are not booleans")
	assert.Equal(t, 12, (&featureflags.Flag{Value: float64(12)}).IntValue(0))
	assert.Equal(t, 12, (&featureflags.Flag{Value: 12}).IntValue(0))
	assert.Equal(t, 0, (&featureflags.Flag{Value: "12"}).IntValue(0))
}

func TestInMemoryRepository_ReturnsCopies(t *testing.T) {
	repo := featureflags.NewInMemoryRepository(&featureflags.Flag{Key: "k", Value: true})
	ctx := context.Background()

	got, err := repo.List(ctx)
	require.NoError(t, err)
	got[0].Value = false

	again, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, true, again[0].Value)
}
