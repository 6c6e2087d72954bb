package servicelog

import "context"

// Repository defines the interface for service record persistence.
type Repository interface {
	// Get retrieves a record by owner ID and record ID.
	Get(ctx context.Context, ownerID, recordID string) (*Record, error)

	// List retrieves a page of records for an owner, most recently performed first.
	List(ctx context.Context, ownerID string, opts ListOptions) (*ListResult, error)

	// Create creates a new record.
	Create(ctx context.Context, record *Record) error

	// Delete deletes a record.
	Delete(ctx context.Context, ownerID, recordID string) error
}
