package models

// ServiceRecord represents a completed service on a vehicle or one of its devices.
type ServiceRecord struct {
	ID          string    `json:"id"`
	VehicleID   string    `json:"vehicleId"`
	DeviceID    *string   `json:"deviceId,omitempty"`
	PerformedAt Date      `json:"performedAt"`
	Description string    `json:"description"`
	Mileage     *int      `json:"mileage,omitempty"`
	Cost        *float64  `json:"cost,omitempty"`
	NextDueDate *Date     `json:"nextDueDate,omitempty"`
	Notes       *string   `json:"notes,omitempty"`
	CreatedAt   Timestamp `json:"createdAt"`
}

// ServiceRecordCreateRequest is the request body for logging a service.
// When NextDueDate is set, the service expiry of the serviced vehicle (or
// device, when DeviceID is set) is moved to that date.
type ServiceRecordCreateRequest struct {
	VehicleID   string   `json:"vehicleId" validate:"required"`
	DeviceID    *string  `json:"deviceId,omitempty" validate:"omitempty,min=1"`
	PerformedAt *Date    `json:"performedAt" validate:"required"`
	Description string   `json:"description" validate:"required,max=200"`
	Mileage     *int     `json:"mileage,omitempty" validate:"omitempty,gte=0"`
	Cost        *float64 `json:"cost,omitempty" validate:"omitempty,gte=0"`
	NextDueDate *Date    `json:"nextDueDate,omitempty"`
	Notes       *string  `json:"notes,omitempty" validate:"omitempty,max=500"`
}

// PagedServiceRecords represents a paginated list of service records.
type PagedServiceRecords struct {
	Items []ServiceRecord   `json:"items"`
	Meta  PagedResponseMeta `json:"meta"`
}
