// Package reminder derives the fleet notification feed from the expiry dates
// carried by vehicles and devices.
//
// The engine is a pure transform: it receives entity snapshots and a single
// reference instant, performs no I/O and keeps no state between calls. Callers
// own loading the entities, dismissal state and delivery.
package reminder

import "time"

// DefaultReminderDays is the reminder window used when an attribute has none set.
const DefaultReminderDays = 30

// DefaultUrgentDays is the threshold used by the navigation badge.
const DefaultUrgentDays = 7

// Category identifies which deadline an expiry attribute tracks.
type Category string

const (
	CategoryInsurance  Category = "insurance"
	CategoryInspection Category = "inspection"
	CategoryService    Category = "service"
)

// Label returns the display label for the category.
func (c Category) Label() string {
	switch c {
	case CategoryInsurance:
		return "Insurance"
	case CategoryInspection:
		return "Inspection"
	case CategoryService:
		return "Service"
	default:
		return string(c)
	}
}

// EntityKind identifies the type of entity a notification was derived from.
type EntityKind string

const (
	KindVehicle EntityKind = "vehicle"
	KindDevice  EntityKind = "device"
)

// ExpiryAttribute is a single time-bound attribute of a tracked entity.
// A nil ExpiryDate means the attribute is not tracked; it is never treated as expired.
type ExpiryAttribute struct {
	Category     Category
	ExpiryDate   *time.Time
	ReminderDays *int
}

// Window returns the effective reminder window in days.
func (a ExpiryAttribute) Window() int {
	if a.ReminderDays == nil {
		return DefaultReminderDays
	}
	return *a.ReminderDays
}

// TrackedEntity is anything carrying expiry attributes.
type TrackedEntity interface {
	EntityID() string
	EntityName() string
	ExpiryAttributes() []ExpiryAttribute
}

// TrackedDevice is a tracked entity that may reference an owning vehicle.
// The reference is only used to resolve a display name.
type TrackedDevice interface {
	TrackedEntity
	ParentVehicleID() string
}

// Notification is a single derived reminder. Notifications are rebuilt on
// every call and are never stored by the engine.
type Notification struct {
	ID                string
	SourceEntityID    string
	SourceEntityKind  EntityKind
	ParentVehicleID   string
	ParentVehicleName string
	Category          Category
	DueDate           time.Time
	DaysRemaining     int
	IsExpired         bool
	Message           string
}

// IsUrgent reports whether the notification is expired or due within urgentDays.
func (n Notification) IsUrgent(urgentDays int) bool {
	return n.IsExpired || n.DaysRemaining <= urgentDays
}
