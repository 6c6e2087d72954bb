package device

import (
	"context"
	"slices"
	"strings"
	"sync"
)

const defaultListLimit = 50

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use the PostgreSQL implementation.
type InMemoryRepository struct {
	mu      sync.RWMutex
	devices map[string]*Device
}

// NewInMemoryRepository creates a new in-memory device repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		devices: make(map[string]*Device),
	}
}

// Get retrieves a device by owner ID and device ID.
func (r *InMemoryRepository) Get(_ context.Context, ownerID, deviceID string) (*Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	device, ok := r.devices[deviceID]
	if !ok || device.OwnerID != ownerID {
		return nil, ErrDeviceNotFound
	}

	return copyDevice(device), nil
}

// ListByOwner retrieves a page of devices for an owner.
func (r *InMemoryRepository) ListByOwner(_ context.Context, ownerID string, opts ListOptions) (*ListResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := r.ownedSorted(ownerID)
	if opts.VehicleID != "" {
		items = slices.DeleteFunc(items, func(d *Device) bool { return d.ParentVehicleID() != opts.VehicleID })
	}

	if opts.Cursor != "" {
		idx := slices.IndexFunc(items, func(d *Device) bool { return d.ID == opts.Cursor })
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

// ListAllByOwner retrieves every device for an owner.
func (r *InMemoryRepository) ListAllByOwner(_ context.Context, ownerID string) ([]*Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.ownedSorted(ownerID), nil
}

// ListOwners returns the IDs of all owners with at least one device.
func (r *InMemoryRepository) ListOwners(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	owners := make([]string, 0)
	for _, device := range r.devices {
		if !slices.Contains(owners, device.OwnerID) {
			owners = append(owners, device.OwnerID)
		}
	}
	slices.Sort(owners)
	return owners, nil
}

// Create creates a new device.
func (r *InMemoryRepository) Create(_ context.Context, device *Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.devices[device.ID] = copyDevice(device)
	return nil
}

// Update updates an existing device.
func (r *InMemoryRepository) Update(_ context.Context, device *Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.devices[device.ID]; !ok {
		return ErrDeviceNotFound
	}

	r.devices[device.ID] = copyDevice(device)
	return nil
}

// Delete deletes a device.
func (r *InMemoryRepository) Delete(_ context.Context, ownerID, deviceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	device, ok := r.devices[deviceID]
	if !ok || device.OwnerID != ownerID {
		return ErrDeviceNotFound
	}

	delete(r.devices, deviceID)
	return nil
}

// ownedSorted returns copies of the owner's devices ordered newest first.
// Callers must hold the read lock.
func (r *InMemoryRepository) ownedSorted(ownerID string) []*Device {
	items := make([]*Device, 0)
	for _, device := range r.devices {
		if device.OwnerID == ownerID {
			items = append(items, copyDevice(device))
		}
	}
	slices.SortFunc(items, func(a, b *Device) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
	return items
}

// copyDevice creates a deep copy of a device.
func copyDevice(d *Device) *Device {
	if d == nil {
		return nil
	}

	deviceCopy := *d
	if d.VehicleID != nil {
		val := *d.VehicleID
		deviceCopy.VehicleID = &val
	}
	if d.Type != nil {
		val := *d.Type
		deviceCopy.Type = &val
	}
	if d.SerialNumber != nil {
		val := *d.SerialNumber
		deviceCopy.SerialNumber = &val
	}
	if d.ServiceExpiryDate != nil {
		val := *d.ServiceExpiryDate
		deviceCopy.ServiceExpiryDate = &val
	}
	if d.ServiceReminderDays != nil {
		val := *d.ServiceReminderDays
		deviceCopy.ServiceReminderDays = &val
	}
	if d.Notes != nil {
		val := *d.Notes
		deviceCopy.Notes = &val
	}

	return &deviceCopy
}
