package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/fleetminder/fleetminder/internal/api/models"
	"github.com/fleetminder/fleetminder/internal/device"
	"github.com/fleetminder/fleetminder/internal/reminder"
	"github.com/fleetminder/fleetminder/internal/vehicle"
)

// VehicleSource loads every vehicle of an owner.
type VehicleSource interface {
	ListAll(ctx context.Context, ownerID string) ([]*vehicle.Vehicle, error)
}

// DeviceSource loads every device of an owner.
type DeviceSource interface {
	ListAllByOwner(ctx context.Context, ownerID string) ([]*device.Device, error)
}

// Thresholds provides the runtime badge threshold.
type Thresholds interface {
	BadgeUrgentDays(ctx context.Context) int
}

// ServiceConfig holds configuration for the notification service.
type ServiceConfig struct {
	Vehicles   VehicleSource
	Devices    DeviceSource
	Dismissals DismissalRepository
	Thresholds Thresholds // optional; DefaultUrgentDays when nil
	Metrics    *Metrics   // optional
	Logger     zerolog.Logger
	Now        func() time.Time
}

// Service provides notification feed operations.
type Service struct {
	vehicles   VehicleSource
	devices    DeviceSource
	dismissals DismissalRepository
	thresholds Thresholds
	metrics    *Metrics
	logger     zerolog.Logger
	now        func() time.Time
}

// NewService creates a new notification service.
func NewService(cfg ServiceConfig) *Service {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		vehicles:   cfg.Vehicles,
		devices:    cfg.Devices,
		dismissals: cfg.Dismissals,
		thresholds: cfg.Thresholds,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
		now:        now,
	}
}

// feed is one engine run for an owner along with the owner's dismissal state.
type feed struct {
	generatedAt   time.Time
	notifications []reminder.Notification
	dismissed     map[string]bool
}

// generate runs the reminder engine over all of the owner's entities.
func (s *Service) generate(ctx context.Context, ownerID string) (*feed, error) {
	vehicles, err := s.vehicles.ListAll(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("load vehicles: %w", err)
	}

	devices, err := s.devices.ListAllByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("load devices: %w", err)
	}

	dismissals, err := s.dismissals.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("load dismissals: %w", err)
	}

	now := s.now()
	notifications := reminder.GenerateAt(now, vehicles, devices)
	s.metrics.recordFeed(ctx, notifications)

	byID := make(map[string]*Dismissal, len(dismissals))
	for _, d := range dismissals {
		byID[d.NotificationID] = d
	}

	dismissed := make(map[string]bool)
	for _, n := range notifications {
		if d, ok := byID[n.ID]; ok && d.Matches(n.DueDate) {
			dismissed[n.ID] = true
		}
	}

	s.logger.Debug().
		Str("owner_id", ownerID).
		Int("vehicles", len(vehicles)).
		Int("devices", len(devices)).
		Int("notifications", len(notifications)).
		Int("dismissed", len(dismissed)).
		Msg("notification feed generated")

	return &feed{generatedAt: now, notifications: notifications, dismissed: dismissed}, nil
}

// Pending returns the owner's notifications that have not been dismissed,
// in engine order.
func (s *Service) Pending(ctx context.Context, ownerID string) ([]reminder.Notification, error) {
	f, err := s.generate(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	out := make([]reminder.Notification, 0, len(f.notifications))
	for _, n := range f.notifications {
		if !f.dismissed[n.ID] {
			out = append(out, n)
		}
	}
	return out, nil
}

// List returns the owner's notification feed.
func (s *Service) List(ctx context.Context, ownerID string, opts ListOptions) (*models.NotificationList, error) {
	f, err := s.generate(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	urgentDays := s.urgentDays(ctx)
	result := &models.NotificationList{
		Items:       make([]models.Notification, 0, len(f.notifications)),
		GeneratedAt: models.Timestamp(f.generatedAt),
	}

	for _, n := range f.notifications {
		dismissed := f.dismissed[n.ID]
		if dismissed && !opts.IncludeDismissed {
			continue
		}

		result.Items = append(result.Items, ToAPI(n, dismissed))
		if dismissed {
			continue
		}
		if n.IsExpired {
			result.ExpiredCount++
		}
		if n.IsUrgent(urgentDays) {
			result.UrgentCount++
		}
	}
	result.Total = len(result.Items)

	return result, nil
}

// BadgeCount returns the number of non-dismissed notifications that are
// expired or due within the badge threshold.
func (s *Service) BadgeCount(ctx context.Context, ownerID string) (*models.NotificationBadge, error) {
	pending, err := s.Pending(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	urgentDays := s.urgentDays(ctx)
	return &models.NotificationBadge{
		Count:      reminder.CountUrgent(pending, urgentDays),
		UrgentDays: urgentDays,
		AsOf:       models.Timestamp(s.now()),
	}, nil
}

// Dismiss hides a notification until its due date changes.
func (s *Service) Dismiss(ctx context.Context, ownerID, notificationID string) (*models.Notification, error) {
	f, err := s.generate(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	for _, n := range f.notifications {
		if n.ID != notificationID {
			continue
		}

		err := s.dismissals.Upsert(ctx, &Dismissal{
			OwnerID:        ownerID,
			NotificationID: n.ID,
			DueDate:        n.DueDate,
			DismissedAt:    s.now(),
		})
		if err != nil {
			return nil, err
		}
		s.metrics.recordDismissal(ctx, n.Category)

		result := ToAPI(n, true)
		return &result, nil
	}

	return nil, ErrNotificationNotFound
}

// Restore removes a dismissal so the notification shows again.
func (s *Service) Restore(ctx context.Context, ownerID, notificationID string) error {
	err := s.dismissals.Delete(ctx, ownerID, notificationID)
	if errors.Is(err, ErrDismissalNotFound) {
		return ErrNotificationNotFound
	}
	return err
}

func (s *Service) urgentDays(ctx context.Context) int {
	if s.thresholds == nil {
		return reminder.DefaultUrgentDays
	}
	return s.thresholds.BadgeUrgentDays(ctx)
}

// ToAPI converts an engine notification to an API Notification.
func ToAPI(n reminder.Notification, dismissed bool) models.Notification {
	result := models.Notification{
		ID:               n.ID,
		SourceEntityID:   n.SourceEntityID,
		SourceEntityKind: models.SourceKind(n.SourceEntityKind),
		Category:         models.NotificationCategory(n.Category),
		DueDate:          models.Date(n.DueDate),
		DaysRemaining:    n.DaysRemaining,
		IsExpired:        n.IsExpired,
		Message:          n.Message,
		Dismissed:        dismissed,
	}
	if n.ParentVehicleID != "" {
		id := n.ParentVehicleID
		result.ParentVehicleID = &id
	}
	if n.ParentVehicleName != "" {
		name := n.ParentVehicleName
		result.ParentVehicleName = &name
	}
	return result
}
