package servicelog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fleetminder/fleetminder/internal/api/models"
	"github.com/fleetminder/fleetminder/internal/device"
	"github.com/fleetminder/fleetminder/internal/validation"
	"github.com/fleetminder/fleetminder/internal/vehicle"
)

// Vehicles is the subset of the vehicle service used to validate and roll forward service dates.
type Vehicles interface {
	Get(ctx context.Context, ownerID, vehicleID string) (*models.Vehicle, error)
	SetServiceExpiry(ctx context.Context, ownerID, vehicleID string, due time.Time) error
}

// Devices is the subset of the device service used to validate and roll forward service dates.
type Devices interface {
	Get(ctx context.Context, ownerID, deviceID string) (*models.Device, error)
	SetServiceExpiry(ctx context.Context, ownerID, deviceID string, due time.Time) error
}

// Service provides service record operations.
type Service struct {
	repo     Repository
	vehicles Vehicles
	devices  Devices
	logger   zerolog.Logger
	now      func() time.Time
}

// NewService creates a new service record service.
func NewService(repo Repository, vehicles Vehicles, devices Devices, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		vehicles: vehicles,
		devices:  devices,
		logger:   logger,
		now:      time.Now,
	}
}

// List retrieves a page of service records, optionally for a single vehicle.
func (s *Service) List(ctx context.Context, ownerID string, limit int, cursor, vehicleID string) (*models.PagedServiceRecords, error) {
	result, err := s.repo.List(ctx, ownerID, ListOptions{Limit: limit, Cursor: cursor, VehicleID: vehicleID})
	if err != nil {
		return nil, err
	}

	items := make([]models.ServiceRecord, 0, len(result.Items))
	for _, rec := range result.Items {
		items = append(items, toAPIRecord(rec))
	}

	var nextCursor *string
	if result.NextCursor != "" {
		nextCursor = &result.NextCursor
	}

	return &models.PagedServiceRecords{
		Items: items,
		Meta: models.PagedResponseMeta{
			Limit:      limit,
			NextCursor: nextCursor,
		},
	}, nil
}

// Get retrieves a service record by ID.
func (s *Service) Get(ctx context.Context, ownerID, recordID string) (*models.ServiceRecord, error) {
	rec, err := s.repo.Get(ctx, ownerID, recordID)
	if err != nil {
		return nil, err
	}

	result := toAPIRecord(rec)
	return &result, nil
}

// Create logs a completed service. When the record carries a next due date
// later than the target's current service expiry, the target's service expiry
// is moved to it so the pending reminder clears.
func (s *Service) Create(ctx context.Context, ownerID string, input *models.ServiceRecordCreateRequest) (*models.ServiceRecord, error) {
	if fieldErrors := validation.Struct(input); len(fieldErrors) > 0 {
		return nil, &ValidationError{Errors: fieldErrors}
	}

	target, fieldErrors, err := s.resolveTarget(ctx, ownerID, input)
	if err != nil {
		return nil, err
	}
	if len(fieldErrors) > 0 {
		return nil, &ValidationError{Errors: fieldErrors}
	}

	rec := &Record{
		ID:          "svc_" + uuid.New().String()[:22],
		OwnerID:     ownerID,
		VehicleID:   input.VehicleID,
		DeviceID:    input.DeviceID,
		PerformedAt: input.PerformedAt.Time(),
		Description: input.Description,
		Mileage:     input.Mileage,
		Cost:        input.Cost,
		NextDueDate: input.NextDueDate.TimePtr(),
		Notes:       input.Notes,
		CreatedAt:   s.now(),
	}

	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, err
	}

	if rec.NextDueDate != nil && (target.currentDue == nil || rec.NextDueDate.After(*target.currentDue)) {
		if err := target.roll(ctx, *rec.NextDueDate); err != nil {
			// A failed roll must leave no record behind.
			if delErr := s.repo.Delete(ctx, ownerID, rec.ID); delErr != nil {
				s.logger.Error().Err(delErr).Str("record_id", rec.ID).Msg("failed to remove service record after roll failure")
				return nil, fmt.Errorf("roll service expiry forward: %w", errors.Join(err, delErr))
			}
			return nil, fmt.Errorf("roll service expiry forward: %w", err)
		}
		s.logger.Debug().
			Str("record_id", rec.ID).
			Str("target_id", target.id).
			Time("next_due", *rec.NextDueDate).
			Msg("service expiry moved forward")
	}

	result := toAPIRecord(rec)
	return &result, nil
}

// Delete removes a service record. Expiry dates already moved by it are kept.
func (s *Service) Delete(ctx context.Context, ownerID, recordID string) error {
	return s.repo.Delete(ctx, ownerID, recordID)
}

type serviceTarget struct {
	id         string
	currentDue *time.Time
	roll       func(ctx context.Context, due time.Time) error
}

// resolveTarget finds the vehicle, or the device fitted to it, that the record services.
func (s *Service) resolveTarget(ctx context.Context, ownerID string, input *models.ServiceRecordCreateRequest) (*serviceTarget, []models.FieldError, error) {
	v, err := s.vehicles.Get(ctx, ownerID, input.VehicleID)
	if errors.Is(err, vehicle.ErrVehicleNotFound) {
		return nil, []models.FieldError{{Field: "vehicleId", Message: "does not reference a known vehicle", Code: "exists"}}, nil
	}
	if err != nil {
		return nil, nil, err
	}

	if input.DeviceID == nil {
		return &serviceTarget{
			id:         v.ID,
			currentDue: v.ServiceExpiryDate.TimePtr(),
			roll: func(ctx context.Context, due time.Time) error {
				return s.vehicles.SetServiceExpiry(ctx, ownerID, v.ID, due)
			},
		}, nil, nil
	}

	d, err := s.devices.Get(ctx, ownerID, *input.DeviceID)
	if errors.Is(err, device.ErrDeviceNotFound) {
		return nil, []models.FieldError{{Field: "deviceId", Message: "does not reference a known device", Code: "exists"}}, nil
	}
	if err != nil {
		return nil, nil, err
	}
	if d.VehicleID == nil || *d.VehicleID != v.ID {
		return nil, []models.FieldError{{Field: "deviceId", Message: "is not fitted to the given vehicle", Code: "mismatch"}}, nil
	}

	return &serviceTarget{
		id:         d.ID,
		currentDue: d.ServiceExpiryDate.TimePtr(),
		roll: func(ctx context.Context, due time.Time) error {
			return s.devices.SetServiceExpiry(ctx, ownerID, d.ID, due)
		},
	}, nil, nil
}

func toAPIRecord(rec *Record) models.ServiceRecord {
	return models.ServiceRecord{
		ID:          rec.ID,
		VehicleID:   rec.VehicleID,
		DeviceID:    rec.DeviceID,
		PerformedAt: models.Date(rec.PerformedAt),
		Description: rec.Description,
		Mileage:     rec.Mileage,
		Cost:        rec.Cost,
		NextDueDate: models.DatePtr(rec.NextDueDate),
		Notes:       rec.Notes,
		CreatedAt:   models.Timestamp(rec.CreatedAt),
	}
}

// ValidationError represents validation errors.
type ValidationError struct {
	Errors []models.FieldError
}

func (e *ValidationError) Error() string {
	return "validation failed"
}
