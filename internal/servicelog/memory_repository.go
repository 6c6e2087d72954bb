package servicelog

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
	records map[string]*Record
}

// NewInMemoryRepository creates a new in-memory service record repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		records: make(map[string]*Record),
	}
}

// Get retrieves a record by owner ID and record ID.
func (r *InMemoryRepository) Get(_ context.Context, ownerID, recordID string) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[recordID]
	if !ok || rec.OwnerID != ownerID {
		return nil, ErrRecordNotFound
	}
	return copyRecord(rec), nil
}

// List retrieves a page of records for an owner.
func (r *InMemoryRepository) List(_ context.Context, ownerID string, opts ListOptions) (*ListResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]*Record, 0)
	for _, rec := range r.records {
		if rec.OwnerID != ownerID {
			continue
		}
		if opts.VehicleID != "" && rec.VehicleID != opts.VehicleID {
			continue
		}
		items = append(items, copyRecord(rec))
	}
	slices.SortFunc(items, func(a, b *Record) int {
		if c := b.PerformedAt.Compare(a.PerformedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})

	if opts.Cursor != "" {
		idx := slices.IndexFunc(items, func(rec *Record) bool { return rec.ID == opts.Cursor })
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

// Create creates a new record.
func (r *InMemoryRepository) Create(_ context.Context, record *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records[record.ID] = copyRecord(record)
	return nil
}

// Delete deletes a record.
func (r *InMemoryRepository) Delete(_ context.Context, ownerID, recordID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[recordID]
	if !ok || rec.OwnerID != ownerID {
		return ErrRecordNotFound
	}
	delete(r.records, recordID)
	return nil
}

func copyRecord(rec *Record) *Record {
	c := *rec
	if rec.DeviceID != nil {
		val := *rec.DeviceID
		c.DeviceID = &val
	}
	if rec.Mileage != nil {
		val := *rec.Mileage
		c.Mileage = &val
	}
	if rec.Cost != nil {
		val := *rec.Cost
		c.Cost = &val
	}
	if rec.NextDueDate != nil {
		val := *rec.NextDueDate
		c.NextDueDate = &val
	}
	if rec.Notes != nil {
		val := *rec.Notes
		c.Notes = &val
	}
	return &c
}
