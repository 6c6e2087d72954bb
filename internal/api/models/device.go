package models

// Device represents a piece of equipment, usually fitted to a vehicle.
type Device struct {
	ID                  string    `json:"id"`
	VehicleID           *string   `json:"vehicleId,omitempty"`
	VehicleName         *string   `json:"vehicleName,omitempty"`
	Name                string    `json:"name"`
	Type                *string   `json:"type,omitempty"`
	SerialNumber        *string   `json:"serialNumber,omitempty"`
	ServiceExpiryDate   *Date     `json:"serviceExpiryDate,omitempty"`
	ServiceReminderDays *int      `json:"serviceReminderDays,omitempty"`
	Notes               *string   `json:"notes,omitempty"`
	CreatedAt           Timestamp `json:"createdAt"`
	UpdatedAt           Timestamp `json:"updatedAt"`
}

// DeviceCreateRequest is the request body for creating a device.
type DeviceCreateRequest struct {
	VehicleID           *string `json:"vehicleId,omitempty" validate:"omitempty,min=1"`
	Name                string  `json:"name" validate:"required,max=80"`
	Type                *string `json:"type,omitempty" validate:"omitempty,max=40"`
	SerialNumber        *string `json:"serialNumber,omitempty" validate:"omitempty,max=64"`
	ServiceExpiryDate   *Date   `json:"serviceExpiryDate,omitempty"`
	ServiceReminderDays *int    `json:"serviceReminderDays,omitempty" validate:"omitempty,gte=0,lte=365"`
	Notes               *string `json:"notes,omitempty" validate:"omitempty,max=500"`
}

// DeviceUpdateRequest is the request body for updating a device.
// Fields listed in Clear are reset to empty; clearing vehicleId detaches the device.
type DeviceUpdateRequest struct {
	VehicleID           *string  `json:"vehicleId,omitempty" validate:"omitempty,min=1"`
	Name                *string  `json:"name,omitempty" validate:"omitempty,min=1,max=80"`
	Type                *string  `json:"type,omitempty" validate:"omitempty,max=40"`
	SerialNumber        *string  `json:"serialNumber,omitempty" validate:"omitempty,max=64"`
	ServiceExpiryDate   *Date    `json:"serviceExpiryDate,omitempty"`
	ServiceReminderDays *int     `json:"serviceReminderDays,omitempty" validate:"omitempty,gte=0,lte=365"`
	Notes               *string  `json:"notes,omitempty" validate:"omitempty,max=500"`
	Clear               []string `json:"clear,omitempty" validate:"omitempty,dive,oneof=vehicleId type serialNumber serviceExpiryDate serviceReminderDays notes"`
}

// PagedDevices represents a paginated list of devices.
type PagedDevices struct {
	Items []Device          `json:"items"`
	Meta  PagedResponseMeta `json:"meta"`
}
