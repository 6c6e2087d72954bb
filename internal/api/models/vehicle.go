package models

// Vehicle represents a fleet vehicle.
type Vehicle struct {
	ID                     string    `json:"id"`
	Name                   string    `json:"name"`
	Make                   *string   `json:"make,omitempty"`
	Model                  *string   `json:"model,omitempty"`
	Year                   *int      `json:"year,omitempty"`
	LicensePlate           *string   `json:"licensePlate,omitempty"`
	VIN                    *string   `json:"vin,omitempty"`
	Mileage                *int      `json:"mileage,omitempty"`
	InsuranceExpiryDate    *Date     `json:"insuranceExpiryDate,omitempty"`
	InsuranceReminderDays  *int      `json:"insuranceReminderDays,omitempty"`
	InspectionExpiryDate   *Date     `json:"inspectionExpiryDate,omitempty"`
	InspectionReminderDays *int      `json:"inspectionReminderDays,omitempty"`
	ServiceExpiryDate      *Date     `json:"serviceExpiryDate,omitempty"`
	ServiceReminderDays    *int      `json:"serviceReminderDays,omitempty"`
	Notes                  *string   `json:"notes,omitempty"`
	CreatedAt              Timestamp `json:"createdAt"`
	UpdatedAt              Timestamp `json:"updatedAt"`
}

// VehicleCreateRequest is the request body for creating a vehicle.
type VehicleCreateRequest struct {
	Name                   string  `json:"name" validate:"required,max=80"`
	Make                   *string `json:"make,omitempty" validate:"omitempty,max=80"`
	Model                  *string `json:"model,omitempty" validate:"omitempty,max=80"`
	Year                   *int    `json:"year,omitempty" validate:"omitempty,gte=1900,lte=2100"`
	LicensePlate           *string `json:"licensePlate,omitempty" validate:"omitempty,max=20"`
	VIN                    *string `json:"vin,omitempty" validate:"omitempty,len=17,alphanum"`
	Mileage                *int    `json:"mileage,omitempty" validate:"omitempty,gte=0"`
	InsuranceExpiryDate    *Date   `json:"insuranceExpiryDate,omitempty"`
	InsuranceReminderDays  *int    `json:"insuranceReminderDays,omitempty" validate:"omitempty,gte=0,lte=365"`
	InspectionExpiryDate   *Date   `json:"inspectionExpiryDate,omitempty"`
	InspectionReminderDays *int    `json:"inspectionReminderDays,omitempty" validate:"omitempty,gte=0,lte=365"`
	ServiceExpiryDate      *Date   `json:"serviceExpiryDate,omitempty"`
	ServiceReminderDays    *int    `json:"serviceReminderDays,omitempty" validate:"omitempty,gte=0,lte=365"`
	Notes                  *string `json:"notes,omitempty" validate:"omitempty,max=500"`
}

// VehicleUpdateRequest is the request body for updating a vehicle.
// Only provided fields are changed. Fields listed in Clear are reset to empty,
// which stops tracking an expiry date or drops a custom reminder window.
type VehicleUpdateRequest struct {
	Name                   *string  `json:"name,omitempty" validate:"omitempty,min=1,max=80"`
	Make                   *string  `json:"make,omitempty" validate:"omitempty,max=80"`
	Model                  *string  `json:"model,omitempty" validate:"omitempty,max=80"`
	Year                   *int     `json:"year,omitempty" validate:"omitempty,gte=1900,lte=2100"`
	LicensePlate           *string  `json:"licensePlate,omitempty" validate:"omitempty,max=20"`
	VIN                    *string  `json:"vin,omitempty" validate:"omitempty,len=17,alphanum"`
	Mileage                *int     `json:"mileage,omitempty" validate:"omitempty,gte=0"`
	InsuranceExpiryDate    *Date    `json:"insuranceExpiryDate,omitempty"`
	InsuranceReminderDays  *int     `json:"insuranceReminderDays,omitempty" validate:"omitempty,gte=0,lte=365"`
	InspectionExpiryDate   *Date    `json:"inspectionExpiryDate,omitempty"`
	InspectionReminderDays *int     `json:"inspectionReminderDays,omitempty" validate:"omitempty,gte=0,lte=365"`
	ServiceExpiryDate      *Date    `json:"serviceExpiryDate,omitempty"`
	ServiceReminderDays    *int     `json:"serviceReminderDays,omitempty" validate:"omitempty,gte=0,lte=365"`
	Notes                  *string  `json:"notes,omitempty" validate:"omitempty,max=500"`
	Clear                  []string `json:"clear,omitempty" validate:"omitempty,dive,oneof=make model year licensePlate vin mileage insuranceExpiryDate insuranceReminderDays inspectionExpiryDate inspectionReminderDays serviceExpiryDate serviceReminderDays notes"`
}

// PagedVehicles represents a paginated list of vehicles.
type PagedVehicles struct {
	Items []Vehicle         `json:"items"`
	Meta  PagedResponseMeta `json:"meta"`
}
