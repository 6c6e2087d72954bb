// Package servicelog records completed services on vehicles and devices.
package servicelog

import (
	"errors"
	"time"
)

// Repository errors.
var (
	ErrRecordNotFound = errors.New("service record not found")
)

// Record is a single completed service.
type Record struct {
	ID          string
	OwnerID     string
	VehicleID   string
	DeviceID    *string
	PerformedAt time.Time
	Description string
	Mileage     *int
	Cost        *float64
	NextDueDate *time.Time
	Notes       *string
	CreatedAt   time.Time
}

// ListOptions contains options for listing service records.
type ListOptions struct {
	Limit     int
	Cursor    string
	VehicleID string
}

// ListResult contains the result of listing service records.
type ListResult struct {
	Items      []*Record
	NextCursor string
}
