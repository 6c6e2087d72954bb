package models

// NotificationCategory is the deadline a notification refers to.
type NotificationCategory string

const (
	NotificationCategoryInsurance  NotificationCategory = "insurance"
	NotificationCategoryInspection NotificationCategory = "inspection"
	NotificationCategoryService    NotificationCategory = "service"
)

// SourceKind is the kind of entity a notification was derived from.
type SourceKind string

const (
	SourceKindVehicle SourceKind = "vehicle"
	SourceKindDevice  SourceKind = "device"
)

// Notification is a reminder about an upcoming or missed deadline.
type Notification struct {
	ID                string               `json:"id"`
	SourceEntityID    string               `json:"sourceEntityId"`
	SourceEntityKind  SourceKind           `json:"sourceEntityKind"`
	ParentVehicleID   *string              `json:"parentVehicleId,omitempty"`
	ParentVehicleName *string              `json:"parentVehicleName,omitempty"`
	Category          NotificationCategory `json:"category"`
	DueDate           Date                 `json:"dueDate"`
	DaysRemaining     int                  `json:"daysRemaining"`
	IsExpired         bool                 `json:"isExpired"`
	Message           string               `json:"message"`
	Dismissed         bool                 `json:"dismissed"`
}

// NotificationList is the sorted notification feed for the caller's fleet.
type NotificationList struct {
	Items        []Notification `json:"items"`
	Total        int            `json:"total"`
	ExpiredCount int            `json:"expiredCount"`
	UrgentCount  int            `json:"urgentCount"`
	GeneratedAt  Timestamp      `json:"generatedAt"`
}

// NotificationBadge is the count shown on the navigation badge.
type NotificationBadge struct {
	Count      int       `json:"count"`
	UrgentDays int       `json:"urgentDays"`
	AsOf       Timestamp `json:"asOf"`
}
