package vehicle

import "context"

// Repository defines the interface for vehicle data persistence.
type Repository interface {
	// Get retrieves a vehicle by ID regardless of owner.
	Get(ctx context.Context, id string) (*Vehicle, error)

	// GetByOwnerAndID retrieves a vehicle by owner ID and vehicle ID.
	// Returns ErrVehicleNotFound if the vehicle doesn't exist or belongs to another owner.
	GetByOwnerAndID(ctx context.Context, ownerID, vehicleID string) (*Vehicle, error)

	// List retrieves a page of vehicles for an owner, newest first.
	List(ctx context.Context, ownerID string, opts ListOptions) (*ListResult, error)

	// ListAll retrieves every vehicle for an owner.
	ListAll(ctx context.Context, ownerID string) ([]*Vehicle, error)

	// ListOwners returns the IDs of all owners with at least one vehicle.
	ListOwners(ctx context.Context) ([]string, error)

	// Create creates a new vehicle.
	Create(ctx context.Context, vehicle *Vehicle) error

	// Update updates an existing vehicle.
	Update(ctx context.Context, vehicle *Vehicle) error

	// Delete deletes a vehicle by ID.
	Delete(ctx context.Context, id string) error
}
