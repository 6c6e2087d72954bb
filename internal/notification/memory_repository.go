package notification

import (
	"context"
	"sync"
)

type dismissalKey struct {
	ownerID        string
	notificationID string
}

// InMemoryDismissalRepository is an in-memory implementation of DismissalRepository.
// This is intended for testing. Production should use the PostgreSQL implementation.
type InMemoryDismissalRepository struct {
	mu         sync.RWMutex
	dismissals map[dismissalKey]Dismissal
}

// NewInMemoryDismissalRepository creates a new in-memory dismissal repository.
func NewInMemoryDismissalRepository() *InMemoryDismissalRepository {
	return &InMemoryDismissalRepository{
		dismissals: make(map[dismissalKey]Dismissal),
	}
}

// ListByOwner retrieves all dismissals of an owner.
func (r *InMemoryDismissalRepository) ListByOwner(_ context.Context, ownerID string) ([]*Dismissal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Dismissal, 0)
	for k, d := range r.dismissals {
		if k.ownerID == ownerID {
			dismissal := d
			out = append(out, &dismissal)
		}
	}
	return out, nil
}

// Upsert records a dismissal.
func (r *InMemoryDismissalRepository) Upsert(_ context.Context, dismissal *Dismissal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.dismissals[dismissalKey{dismissal.OwnerID, dismissal.NotificationID}] = *dismissal
	return nil
}

// Delete removes a dismissal.
func (r *InMemoryDismissalRepository) Delete(_ context.Context, ownerID, notificationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := dismissalKey{ownerID, notificationID}
	if _, ok := r.dismissals[key]; !ok {
		return ErrDismissalNotFound
	}
	delete(r.dismissals, key)
	return nil
}

var _ DismissalRepository = (*InMemoryDismissalRepository)(nil)
