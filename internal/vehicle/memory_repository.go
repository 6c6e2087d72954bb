package vehicle

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"
)

const defaultListLimit = 50

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use the PostgreSQL implementation.
type InMemoryRepository struct {
	mu       sync.RWMutex
	vehicles map[string]*Vehicle
}

// NewInMemoryRepository creates a new in-memory vehicle repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		vehicles: make(map[string]*Vehicle),
	}
}

// Get retrieves a vehicle by ID.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*Vehicle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.vehicles[id]
	if !ok {
		return nil, ErrVehicleNotFound
	}
	return copyVehicle(v), nil
}

// GetByOwnerAndID retrieves a vehicle by owner ID and vehicle ID.
func (r *InMemoryRepository) GetByOwnerAndID(_ context.Context, ownerID, vehicleID string) (*Vehicle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.vehicles[vehicleID]
	if !ok || v.OwnerID != ownerID {
		return nil, ErrVehicleNotFound
	}
	return copyVehicle(v), nil
}

// List retrieves a page of vehicles for an owner, newest first.
func (r *InMemoryRepository) List(_ context.Context, ownerID string, opts ListOptions) (*ListResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := r.ownedSorted(ownerID)

	if opts.Cursor != "" {
		idx := slices.IndexFunc(items, func(v *Vehicle) bool { return v.ID == opts.Cursor })
		if idx == -1 {
			items = nil
		} else {
			items = items[idx+1:]
		}
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	result := &ListResult{Items: items}
	if len(items) > limit {
		result.Items = items[:limit]
		result.NextCursor = items[limit-1].ID
	}
	return result, nil
}

// ListAll retrieves every vehicle for an owner.
func (r *InMemoryRepository) ListAll(_ context.Context, ownerID string) ([]*Vehicle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.ownedSorted(ownerID), nil
}

// ListOwners returns the IDs of all owners with at least one vehicle.
func (r *InMemoryRepository) ListOwners(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	owners := make([]string, 0)
	for _, v := range r.vehicles {
		if _, ok := seen[v.OwnerID]; ok {
			continue
		}
		seen[v.OwnerID] = struct{}{}
		owners = append(owners, v.OwnerID)
	}
	slices.Sort(owners)
	return owners, nil
}

// Create creates a new vehicle.
func (r *InMemoryRepository) Create(_ context.Context, vehicle *Vehicle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.vehicles[vehicle.ID] = copyVehicle(vehicle)
	return nil
}

// Update updates an existing vehicle.
func (r *InMemoryRepository) Update(_ context.Context, vehicle *Vehicle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.vehicles[vehicle.ID]; !ok {
		return ErrVehicleNotFound
	}
	r.vehicles[vehicle.ID] = copyVehicle(vehicle)
	return nil
}

// Delete deletes a vehicle by ID.
func (r *InMemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.vehicles[id]; !ok {
		return ErrVehicleNotFound
	}
	delete(r.vehicles, id)
	return nil
}

// ownedSorted returns copies of the owner's vehicles ordered newest first.
// Callers must hold the read lock.
func (r *InMemoryRepository) ownedSorted(ownerID string) []*Vehicle {
	items := make([]*Vehicle, 0)
	for _, v := range r.vehicles {
		if v.OwnerID == ownerID {
			items = append(items, copyVehicle(v))
		}
	}
	slices.SortFunc(items, func(a, b *Vehicle) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
	return items
}

// copyVehicle creates a deep copy of a vehicle.
func copyVehicle(v *Vehicle) *Vehicle {
	if v == nil {
		return nil
	}

	c := *v
	c.Make = copyPtr(v.Make)
	c.Model = copyPtr(v.Model)
	c.Year = copyPtr(v.Year)
	c.LicensePlate = copyPtr(v.LicensePlate)
	c.VIN = copyPtr(v.VIN)
	c.Mileage = copyPtr(v.Mileage)
	c.InsuranceExpiryDate = copyPtr(v.InsuranceExpiryDate)
	c.InsuranceReminderDays = copyPtr(v.InsuranceReminderDays)
	c.InspectionExpiryDate = copyPtr(v.InspectionExpiryDate)
	c.InspectionReminderDays = copyPtr(v.InspectionReminderDays)
	c.ServiceExpiryDate = copyPtr(v.ServiceExpiryDate)
	c.ServiceReminderDays = copyPtr(v.ServiceReminderDays)
	c.Notes = copyPtr(v.Notes)
	return &c
}

func copyPtr[T string | int | time.Time](p *T) *T {
	if p == nil {
		return nil
	}
	val := *p
	return &val
}
