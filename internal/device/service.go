package device

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/fleetminder/fleetminder/internal/api/models"
	"github.com/fleetminder/fleetminder/internal/validation"
	"github.com/fleetminder/fleetminder/internal/vehicle"
)

// VehicleLookup resolves vehicles owned by an owner.
type VehicleLookup interface {
	GetByOwnerAndID(ctx context.Context, ownerID, vehicleID string) (*vehicle.Vehicle, error)
}

// Service provides device operations.
type Service struct {
	repo     Repository
	vehicles VehicleLookup
	now      func() time.Time
}

// NewService creates a new device service.
func NewService(repo Repository, vehicles VehicleLookup) *Service {
	return &Service{repo: repo, vehicles: vehicles, now: time.Now}
}

// List retrieves a page of devices for an owner, optionally only those fitted to vehicleID.
func (s *Service) List(ctx context.Context, ownerID string, limit int, cursor, vehicleID string) (*models.PagedDevices, error) {
	result, err := s.repo.ListByOwner(ctx, ownerID, ListOptions{Limit: limit, Cursor: cursor, VehicleID: vehicleID})
	if err != nil {
		return nil, err
	}

	names := make(map[string]*string)
	items := make([]models.Device, 0, len(result.Items))
	for _, d := range result.Items {
		item := toAPIDevice(d)
		if id := d.ParentVehicleID(); id != "" {
			name, ok := names[id]
			if !ok {
				name = s.vehicleName(ctx, ownerID, id)
				names[id] = name
			}
			item.VehicleName = name
		}
		items = append(items, item)
	}

	var nextCursor *string
	if result.NextCursor != "" {
		nextCursor = &result.NextCursor
	}

	return &models.PagedDevices{
		Items: items,
		Meta: models.PagedResponseMeta{
			Limit:      limit,
			NextCursor: nextCursor,
		},
	}, nil
}

// Get retrieves a device by ID for an owner.
func (s *Service) Get(ctx context.Context, ownerID, deviceID string) (*models.Device, error) {
	device, err := s.repo.Get(ctx, ownerID, deviceID)
	if err != nil {
		return nil, err
	}

	return s.withVehicleName(ctx, ownerID, device), nil
}

// Create creates a new device for an owner.
func (s *Service) Create(ctx context.Context, ownerID string, input *models.DeviceCreateRequest) (*models.Device, error) {
	fieldErrors := validation.Struct(input)
	if len(fieldErrors) == 0 && input.VehicleID != nil {
		fe, err := s.checkVehicle(ctx, ownerID, *input.VehicleID)
		if err != nil {
			return nil, err
		}
		fieldErrors = append(fieldErrors, fe...)
	}
	if len(fieldErrors) > 0 {
		return nil, &ValidationError{Errors: fieldErrors}
	}

	now := s.now()
	device := &Device{
		ID:                  "dev_" + uuid.New().String()[:22],
		OwnerID:             ownerID,
		VehicleID:           input.VehicleID,
		Name:                input.Name,
		Type:                input.Type,
		SerialNumber:        input.SerialNumber,
		ServiceExpiryDate:   input.ServiceExpiryDate.TimePtr(),
		ServiceReminderDays: input.ServiceReminderDays,
		Notes:               input.Notes,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := s.repo.Create(ctx, device); err != nil {
		return nil, err
	}

	return s.withVehicleName(ctx, ownerID, device), nil
}

// Update applies a partial update to a device owned by ownerID.
func (s *Service) Update(ctx context.Context, ownerID, deviceID string, input *models.DeviceUpdateRequest) (*models.Device, error) {
	device, err := s.repo.Get(ctx, ownerID, deviceID)
	if err != nil {
		return nil, err
	}

	fieldErrors := validation.Struct(input)
	if len(fieldErrors) == 0 && input.VehicleID != nil {
		fe, err := s.checkVehicle(ctx, ownerID, *input.VehicleID)
		if err != nil {
			return nil, err
		}
		fieldErrors = append(fieldErrors, fe...)
	}
	if len(fieldErrors) > 0 {
		return nil, &ValidationError{Errors: fieldErrors}
	}

	if input.VehicleID != nil {
		device.VehicleID = input.VehicleID
	}
	if input.Name != nil {
		device.Name = *input.Name
	}
	if input.Type != nil {
		device.Type = input.Type
	}
	if input.SerialNumber != nil {
		device.SerialNumber = input.SerialNumber
	}
	if input.ServiceExpiryDate != nil {
		device.ServiceExpiryDate = input.ServiceExpiryDate.TimePtr()
	}
	if input.ServiceReminderDays != nil {
		device.ServiceReminderDays = input.ServiceReminderDays
	}
	if input.Notes != nil {
		device.Notes = input.Notes
	}

	for _, field := range input.Clear {
		switch field {
		case "vehicleId":
			device.VehicleID = nil
		case "type":
			device.Type = nil
		case "serialNumber":
			device.SerialNumber = nil
		case "serviceExpiryDate":
			device.ServiceExpiryDate = nil
		case "serviceReminderDays":
			device.ServiceReminderDays = nil
		case "notes":
			device.Notes = nil
		}
	}
	device.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, device); err != nil {
		return nil, err
	}

	return s.withVehicleName(ctx, ownerID, device), nil
}

// SetServiceExpiry moves the service due date of a device owned by ownerID.
func (s *Service) SetServiceExpiry(ctx context.Context, ownerID, deviceID string, due time.Time) error {
	device, err := s.repo.Get(ctx, ownerID, deviceID)
	if err != nil {
		return err
	}

	device.ServiceExpiryDate = &due
	device.UpdatedAt = s.now()
	return s.repo.Update(ctx, device)
}

// Delete removes a device.
func (s *Service) Delete(ctx context.Context, ownerID, deviceID string) error {
	return s.repo.Delete(ctx, ownerID, deviceID)
}

// checkVehicle reports a field error when vehicleID is not one of the owner's vehicles.
func (s *Service) checkVehicle(ctx context.Context, ownerID, vehicleID string) ([]models.FieldError, error) {
	_, err := s.vehicles.GetByOwnerAndID(ctx, ownerID, vehicleID)
	if errors.Is(err, vehicle.ErrVehicleNotFound) {
		return []models.FieldError{{Field: "vehicleId", Message: "does not reference a known vehicle", Code: "exists"}}, nil
	}
	if err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *Service) withVehicleName(ctx context.Context, ownerID string, d *Device) *models.Device {
	result := toAPIDevice(d)
	if id := d.ParentVehicleID(); id != "" {
		result.VehicleName = s.vehicleName(ctx, ownerID, id)
	}
	return &result
}

// vehicleName returns nil when the vehicle no longer exists.
func (s *Service) vehicleName(ctx context.Context, ownerID, vehicleID string) *string {
	v, err := s.vehicles.GetByOwnerAndID(ctx, ownerID, vehicleID)
	if err != nil {
		return nil
	}
	name := v.DisplayName()
	return &name
}

// toAPIDevice converts a domain Device to an API Device.
func toAPIDevice(d *Device) models.Device {
	return models.Device{
		ID:                  d.ID,
		VehicleID:           d.VehicleID,
		Name:                d.Name,
		Type:                d.Type,
		SerialNumber:        d.SerialNumber,
		ServiceExpiryDate:   models.DatePtr(d.ServiceExpiryDate),
		ServiceReminderDays: d.ServiceReminderDays,
		Notes:               d.Notes,
		CreatedAt:           models.Timestamp(d.CreatedAt),
		UpdatedAt:           models.Timestamp(d.UpdatedAt),
	}
}

// ValidationError represents validation errors.
type ValidationError struct {
	Errors []models.FieldError
}

func (e *ValidationError) Error() string {
	return "validation failed"
}
