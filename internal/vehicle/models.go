// Package vehicle provides fleet vehicle records.
package vehicle

import (
	"errors"
	"time"

	"github.com/fleetminder/fleetminder/internal/reminder"
)

// Repository errors.
var (
	ErrVehicleNotFound = errors.New("vehicle not found")
)

// Vehicle represents a fleet vehicle and its tracked deadlines.
type Vehicle struct {
	ID                     string
	OwnerID                string
	Name                   string
	Make                   *string
	Model                  *string
	Year                   *int
	LicensePlate           *string
	VIN                    *string
	Mileage                *int
	InsuranceExpiryDate    *time.Time
	InsuranceReminderDays  *int
	InspectionExpiryDate   *time.Time
	InspectionReminderDays *int
	ServiceExpiryDate      *time.Time
	ServiceReminderDays    *int
	Notes                  *string
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// DisplayName returns the name shown in reminders, falling back to the plate.
func (v *Vehicle) DisplayName() string {
	if v.Name == "" && v.LicensePlate != nil {
		return *v.LicensePlate
	}
	return v.Name
}

// EntityID implements reminder.TrackedEntity.
func (v *Vehicle) EntityID() string { return v.ID }

// EntityName implements reminder.TrackedEntity.
func (v *Vehicle) EntityName() string { return v.DisplayName() }

// ExpiryAttributes implements reminder.TrackedEntity.
func (v *Vehicle) ExpiryAttributes() []reminder.ExpiryAttribute {
	return []reminder.ExpiryAttribute{
		{Category: reminder.CategoryInsurance, ExpiryDate: v.InsuranceExpiryDate, ReminderDays: v.InsuranceReminderDays},
		{Category: reminder.CategoryInspection, ExpiryDate: v.InspectionExpiryDate, ReminderDays: v.InspectionReminderDays},
		{Category: reminder.CategoryService, ExpiryDate: v.ServiceExpiryDate, ReminderDays: v.ServiceReminderDays},
	}
}

var _ reminder.TrackedEntity = (*Vehicle)(nil)

// ListOptions contains options for listing vehicles.
type ListOptions struct {
	Limit  int
	Cursor string
}

// ListResult contains the results of listing vehicles.
type ListResult struct {
	Items      []*Vehicle
	NextCursor string
}
