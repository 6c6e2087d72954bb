package vehicle

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/fleetminder/fleetminder/internal/api/models"
	"github.com/fleetminder/fleetminder/internal/validation"
)

// Service provides vehicle operations.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a new vehicle service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// List retrieves a page of vehicles for an owner.
func (s *Service) List(ctx context.Context, ownerID string, limit int, cursor string) (*models.PagedVehicles, error) {
	result, err := s.repo.List(ctx, ownerID, ListOptions{Limit: limit, Cursor: cursor})
	if err != nil {
		return nil, err
	}

	items := make([]models.Vehicle, 0, len(result.Items))
	for _, v := range result.Items {
		items = append(items, ToAPI(v))
	}

	var nextCursor *string
	if result.NextCursor != "" {
		nextCursor = &result.NextCursor
	}

	return &models.PagedVehicles{
		Items: items,
		Meta: models.PagedResponseMeta{
			Limit:      limit,
			NextCursor: nextCursor,
		},
	}, nil
}

// Get retrieves a vehicle by ID for an owner.
func (s *Service) Get(ctx context.Context, ownerID, vehicleID string) (*models.Vehicle, error) {
	v, err := s.repo.GetByOwnerAndID(ctx, ownerID, vehicleID)
	if err != nil {
		return nil, err
	}

	result := ToAPI(v)
	return &result, nil
}

// Create creates a new vehicle for an owner.
func (s *Service) Create(ctx context.Context, ownerID string, input *models.VehicleCreateRequest) (*models.Vehicle, error) {
	if fieldErrors := validation.Struct(input); len(fieldErrors) > 0 {
		return nil, &ValidationError{Errors: fieldErrors}
	}

	now := s.now()
	v := &Vehicle{
		ID:                     "veh_" + uuid.New().String()[:22],
		OwnerID:                ownerID,
		Name:                   input.Name,
		Make:                   input.Make,
		Model:                  input.Model,
		Year:                   input.Year,
		LicensePlate:           input.LicensePlate,
		VIN:                    input.VIN,
		Mileage:                input.Mileage,
		InsuranceExpiryDate:    input.InsuranceExpiryDate.TimePtr(),
		InsuranceReminderDays:  input.InsuranceReminderDays,
		InspectionExpiryDate:   input.InspectionExpiryDate.TimePtr(),
		InspectionReminderDays: input.InspectionReminderDays,
		ServiceExpiryDate:      input.ServiceExpiryDate.TimePtr(),
		ServiceReminderDays:    input.ServiceReminderDays,
		Notes:                  input.Notes,
		CreatedAt:              now,
		UpdatedAt:              now,
	}

	if err := s.repo.Create(ctx, v); err != nil {
		return nil, err
	}

	result := ToAPI(v)
	return &result, nil
}

// Update applies a partial update to a vehicle owned by ownerID.
func (s *Service) Update(ctx context.Context, ownerID, vehicleID string, input *models.VehicleUpdateRequest) (*models.Vehicle, error) {
	v, err := s.repo.GetByOwnerAndID(ctx, ownerID, vehicleID)
	if err != nil {
		return nil, err
	}

	if fieldErrors := validation.Struct(input); len(fieldErrors) > 0 {
		return nil, &ValidationError{Errors: fieldErrors}
	}

	if input.Name != nil {
		v.Name = *input.Name
	}
	setIf(&v.Make, input.Make)
	setIf(&v.Model, input.Model)
	setIf(&v.Year, input.Year)
	setIf(&v.LicensePlate, input.LicensePlate)
	setIf(&v.VIN, input.VIN)
	setIf(&v.Mileage, input.Mileage)
	setIf(&v.InsuranceExpiryDate, input.InsuranceExpiryDate.TimePtr())
	setIf(&v.InsuranceReminderDays, input.InsuranceReminderDays)
	setIf(&v.InspectionExpiryDate, input.InspectionExpiryDate.TimePtr())
	setIf(&v.InspectionReminderDays, input.InspectionReminderDays)
	setIf(&v.ServiceExpiryDate, input.ServiceExpiryDate.TimePtr())
	setIf(&v.ServiceReminderDays, input.ServiceReminderDays)
	setIf(&v.Notes, input.Notes)

	applyClear(v, input.Clear)
	v.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, v); err != nil {
		return nil, err
	}

	result := ToAPI(v)
	return &result, nil
}

// SetServiceExpiry moves the service due date of a vehicle owned by ownerID.
func (s *Service) SetServiceExpiry(ctx context.Context, ownerID, vehicleID string, due time.Time) error {
	v, err := s.repo.GetByOwnerAndID(ctx, ownerID, vehicleID)
	if err != nil {
		return err
	}

	v.ServiceExpiryDate = &due
	v.UpdatedAt = s.now()
	return s.repo.Update(ctx, v)
}

// Delete deletes a vehicle for an owner. Devices attached to it are kept.
func (s *Service) Delete(ctx context.Context, ownerID, vehicleID string) error {
	if _, err := s.repo.GetByOwnerAndID(ctx, ownerID, vehicleID); err != nil {
		return err
	}

	return s.repo.Delete(ctx, vehicleID)
}

// ToAPI converts a domain Vehicle to an API Vehicle.
func ToAPI(v *Vehicle) models.Vehicle {
	return models.Vehicle{
		ID:                     v.ID,
		Name:                   v.Name,
		Make:                   v.Make,
		Model:                  v.Model,
		Year:                   v.Year,
		LicensePlate:           v.LicensePlate,
		VIN:                    v.VIN,
		Mileage:                v.Mileage,
		InsuranceExpiryDate:    models.DatePtr(v.InsuranceExpiryDate),
		InsuranceReminderDays:  v.InsuranceReminderDays,
		InspectionExpiryDate:   models.DatePtr(v.InspectionExpiryDate),
		InspectionReminderDays: v.InspectionReminderDays,
		ServiceExpiryDate:      models.DatePtr(v.ServiceExpiryDate),
		ServiceReminderDays:    v.ServiceReminderDays,
		Notes:                  v.Notes,
		CreatedAt:              models.Timestamp(v.CreatedAt),
		UpdatedAt:              models.Timestamp(v.UpdatedAt),
	}
}

func applyClear(v *Vehicle, fields []string) {
	has := func(name string) bool { return slices.Contains(fields, name) }

	if has("make") {
		v.Make = nil
	}
	if has("model") {
		v.Model = nil
	}
	if has("year") {
		v.Year = nil
	}
	if has("licensePlate") {
		v.LicensePlate = nil
	}
	if has("vin") {
		v.VIN = nil
	}
	if has("mileage") {
		v.Mileage = nil
	}
	if has("insuranceExpiryDate") {
		v.InsuranceExpiryDate = nil
	}
	if has("insuranceReminderDays") {
		v.InsuranceReminderDays = nil
	}
	if has("inspectionExpiryDate") {
		v.InspectionExpiryDate = nil
	}
	if has("inspectionReminderDays") {
		v.InspectionReminderDays = nil
	}
	if has("serviceExpiryDate") {
		v.ServiceExpiryDate = nil
	}
	if has("serviceReminderDays") {
		v.ServiceReminderDays = nil
	}
	if has("notes") {
		v.Notes = nil
	}
}

func setIf[T any](dst **T, src *T) {
	if src != nil {
		*dst = src
	}
}

// ValidationError represents validation errors.
type ValidationError struct {
	Errors []models.FieldError
}

func (e *ValidationError) Error() string {
	return "validation failed"
}
