package device

import "context"

// Repository defines the interface for device persistence.
type Repository interface {
	// Get retrieves a device by owner ID and device ID.
	Get(ctx context.Context, ownerID, deviceID string) (*Device, error)

	// ListByOwner retrieves a page of devices for an owner, newest first.
	// A non-empty VehicleID in opts restricts the page to devices fitted to that vehicle.
	ListByOwner(ctx context.Context, ownerID string, opts ListOptions) (*ListResult, error)

	// ListAllByOwner retrieves every device for an owner.
	ListAllByOwner(ctx context.Context, ownerID string) ([]*Device, error)

	// ListOwners returns the IDs of all owners with at least one device.
	ListOwners(ctx context.Context) ([]string, error)

	// Create creates a new device.
	Create(ctx context.Context, device *Device) error

	// Update updates an existing device.
	Update(ctx context.Context, device *Device) error

	// Delete deletes a device.
	Delete(ctx context.Context, ownerID, deviceID string) error
}
