package notification_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/fleetminder/fleetminder/internal/device"
	"github.com/fleetminder/fleetminder/internal/notification"
	"github.com/fleetminder/fleetminder/internal/vehicle"
)

var now = time.Date(2025, 3, 14, 10, 30, 0, 0, time.UTC)

func at(days int) *time.Time {
	t := now.Add(time.Duration(days)*24*time.Hour + time.Hour)
	return &t
}

func intPtr(i int) *int       { return &i }
func strPtr(s string) *string { return &s }

type fixedThreshold int

func (f fixedThreshold) BadgeUrgentDays(context.Context) int { return int(f) }

type fixture struct {
	vehicles   *vehicle.InMemoryRepository
	devices    *device.InMemoryRepository
	dismissals *notification.InMemoryDismissalRepository
	service    *notification.Service
}

func newFixture(t *testing.T, thresholds notification.Thresholds) *fixture {
	t.Helper()
	f := &fixture{
		vehicles:   vehicle.NewInMemoryRepository(),
		devices:    device.NewInMemoryRepository(),
		dismissals: notification.NewInMemoryDismissalRepository(),
	}
	f.service = notification.NewService(notification.ServiceConfig{
		Vehicles:   f.vehicles,
		Devices:    f.devices,
		Dismissals: f.dismissals,
		Thresholds: thresholds,
		Logger:     zerolog.Nop(),
		Now:        func() time.Time { return now },
	})
	return f
}

func (f *fixture) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, f.vehicles.Create(ctx, &vehicle.Vehicle{
		ID:                   "veh_1",
		OwnerID:              "owner1",
		Name:                 "Truck 7",
		InsuranceExpiryDate:  at(10),
		InspectionExpiryDate: at(-3),
		ServiceExpiryDate:    at(90),
		CreatedAt:            now,
	}))
	require.NoError(t, f.vehicles.Create(ctx, &vehicle.Vehicle{
		ID:                  "veh_other",
		OwnerID:             "owner2",
		Name:                "Someone else's van",
		InsuranceExpiryDate: at(1),
		CreatedAt:           now,
	}))
	require.NoError(t, f.devices.Create(ctx, &device.Device{
		ID:                  "dev_1",
		OwnerID:             "owner1",
		VehicleID:           strPtr("veh_1"),
		Name:                "GPS unit",
		ServiceExpiryDate:   at(5),
		ServiceReminderDays: intPtr(14),
		CreatedAt:           now,
	}))
}

func TestService_List(t *testing.T) {
	f := newFixture(t, nil)
	f.seed(t)

	list, err := f.service.List(context.Background(), "owner1", notification.ListOptions{})
	require.NoError(t, err)

	require.Len(t, list.Items, 3)
	assert.Equal(t, "inspection-veh_1", list.Items[0].ID)
	assert.True(t, list.Items[0].IsExpired)
	assert.Equal(t, "service-dev_1", list.Items[1].ID)
	assert.Equal(t, 5, list.Items[1].DaysRemaining)
	require.NotNil(t, list.Items[1].ParentVehicleName)
	assert.Equal(t, "Truck 7", *list.Items[1].ParentVehicleName)
	assert.Equal(t, "insurance-veh_1", list.Items[2].ID)

	assert.Equal(t, 3, list.Total)
	assert.Equal(t, 1, list.ExpiredCount)
	assert.Equal(t, 2, list.UrgentCount)
	assert.Equal(t, now, list.GeneratedAt.Time())
}

func TestService_List_EmptyFleet(t *testing.T) {
	f := newFixture(t, nil)

	list, err := f.service.List(context.Background(), "nobody", notification.ListOptions{})
	require.NoError(t, err)
	assert.NotNil(t, list.Items)
	assert.Empty(t, list.Items)
}

func TestService_DismissAndRestore(t *testing.T) {
	f := newFixture(t, nil)
	f.seed(t)
	ctx := context.Background()

	dismissed, err := f.service.Dismiss(ctx, "owner1", "inspection-veh_1")
	require.NoError(t, err)
	assert.True(t, dismissed.Dismissed)

	list, err := f.service.List(ctx, "owner1", notification.ListOptions{})
	require.NoError(t, err)
	require.Len(t, list.Items, 2)
	assert.Equal(t, 0, list.ExpiredCount)

	all, err := f.service.List(ctx, "owner1", notification.ListOptions{IncludeDismissed: true})
	require.NoError(t, err)
	require.Len(t, all.Items, 3)
	assert.True(t, all.Items[0].Dismissed)
	assert.Equal(t, 3, all.Total)
	assert.Equal(t, 0, all.ExpiredCount, "dismissed entries are not counted")

	require.NoError(t, f.service.Restore(ctx, "owner1", "inspection-veh_1"))

	list, err = f.service.List(ctx, "owner1", notification.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, list.Items, 3)
}

func TestService_Dismiss_ResurfacesAfterDateChange(t *testing.T) {
	f := newFixture(t, nil)
	f.seed(t)
	ctx := context.Background()

	_, err := f.service.Dismiss(ctx, "owner1", "insurance-veh_1")
	require.NoError(t, err)

	v, err := f.vehicles.Get(ctx, "veh_1")
	require.NoError(t, err)
	v.InsuranceExpiryDate = at(20)
	require.NoError(t, f.vehicles.Update(ctx, v))

	pending, err := f.service.Pending(ctx, "owner1")
	require.NoError(t, err)

	ids := make([]string, 0, len(pending))
	for _, n := range pending {
		ids = append(ids, n.ID)
	}
	assert.Contains(t, ids, "insurance-veh_1")
}

func TestService_Dismiss_Unknown(t *testing.T) {
	f := newFixture(t, nil)
	f.seed(t)
	ctx := context.Background()

	_, err := f.service.Dismiss(ctx, "owner1", "service-veh_1")
	assert.ErrorIs(t, err, notification.ErrNotificationNotFound, "service is outside its window")

	_, err = f.service.Dismiss(ctx, "owner1", "insurance-veh_other")
	assert.ErrorIs(t, err, notification.ErrNotificationNotFound)

	err = f.service.Restore(ctx, "owner1", "insurance-veh_1")
	assert.True(t, errors.Is(err, notification.ErrNotificationNotFound))
}

func TestService_BadgeCount(t *testing.T) {
	tests := []struct {
		name       string
		thresholds notification.Thresholds
		want       int
		wantDays   int
	}{
		{name: "default threshold", thresholds: nil, want: 2, wantDays: 7},
		{name: "wider threshold", thresholds: fixedThreshold(10), want: 3, wantDays: 10},
		{name: "expired only", thresholds: fixedThreshold(0), want: 1, wantDays: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.thresholds)
			f.seed(t)

			badge, err := f.service.BadgeCount(context.Background(), "owner1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, badge.Count)
			assert.Equal(t, tt.wantDays, badge.UrgentDays)
		})
	}
}

func TestService_BadgeCount_IgnoresDismissed(t *testing.T) {
	f := newFixture(t, nil)
	f.seed(t)
	ctx := context.Background()

	_, err := f.service.Dismiss(ctx, "owner1", "inspection-veh_1")
	require.NoError(t, err)

	badge, err := f.service.BadgeCount(ctx, "owner1")
	require.NoError(t, err)
	assert.Equal(t, 1, badge.Count)
}

func TestMetrics_RecordsFeed(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	otel.SetMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))

	metrics, err := notification.NewMetrics()
	require.NoError(t, err)

	f := newFixture(t, nil)
	f.seed(t)
	f.service = notification.NewService(notification.ServiceConfig{
		Vehicles:   f.vehicles,
		Devices:    f.devices,
		Dismissals: f.dismissals,
		Metrics:    metrics,
		Logger:     zerolog.Nop(),
		Now:        func() time.Time { return now },
	})

	_, err = f.service.List(context.Background(), "owner1", notification.ListOptions{})
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "fleet.notifications.generated" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	assert.Equal(t, int64(3), total)
}
