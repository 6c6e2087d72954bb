package notification

import "context"

// DismissalRepository defines the interface for dismissal persistence.
type DismissalRepository interface {
	// ListByOwner retrieves all dismissals of an owner.
	ListByOwner(ctx context.Context, ownerID string) ([]*Dismissal, error)

	// Upsert records a dismissal, replacing any previous one for the same notification.
	Upsert(ctx context.Context, dismissal *Dismissal) error

	// Delete removes a dismissal. Returns ErrDismissalNotFound if there is none.
	Delete(ctx context.Context, ownerID, notificationID string) error
}
