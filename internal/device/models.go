// Package device provides equipment records such as trackers, tachographs and
// fire extinguishers, optionally fitted to a vehicle.
package device

import (
	"errors"
	"time"

	"github.com/fleetminder/fleetminder/internal/reminder"
)

// Repository errors.
var (
	ErrDeviceNotFound = errors.New("device not found")
)

// Device represents a piece of equipment with its own service deadline.
type Device struct {
	ID                  string
	OwnerID             string
	VehicleID           *string
	Name                string
	Type                *string
	SerialNumber        *string
	ServiceExpiryDate   *time.Time
	ServiceReminderDays *int
	Notes               *string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// EntityID implements reminder.TrackedEntity.
func (d *Device) EntityID() string { return d.ID }

// EntityName implements reminder.TrackedEntity.
func (d *Device) EntityName() string { return d.Name }

// ExpiryAttributes implements reminder.TrackedEntity.
func (d *Device) ExpiryAttributes() []reminder.ExpiryAttribute {
	return []reminder.ExpiryAttribute{
		{Category: reminder.CategoryService, ExpiryDate: d.ServiceExpiryDate, ReminderDays: d.ServiceReminderDays},
	}
}

// ParentVehicleID implements reminder.TrackedDevice.
func (d *Device) ParentVehicleID() string {
	if d.VehicleID == nil {
		return ""
	}
	return *d.VehicleID
}

var _ reminder.TrackedDevice = (*Device)(nil)

// ListOptions contains options for listing devices.
type ListOptions struct {
	Limit     int
	Cursor    string
	VehicleID string
}

// ListResult contains the result of listing devices.
type ListResult struct {
	Items      []*Device
	NextCursor string
}
