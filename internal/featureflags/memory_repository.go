package featureflags

import (
	"context"
	"sort"
	"sync"
)

// InMemoryRepository keeps flags in a map. It backs tests and the
// database-less local mode.
type InMemoryRepository struct {
	mu    sync.RWMutex
	flags map[string]Flag

	// err, when set, is returned by every call.
	err error
}

// NewInMemoryRepository returns a repository seeded with the given flags.
func NewInMemoryRepository(seed ...*Flag) *InMemoryRepository {
	r := &InMemoryRepository{flags: make(map[string]Flag, len(seed))}
	for _, f := range seed {
		r.flags[f.Key] = *f
	}
	return r
}

// FailWith makes subsequent calls return err. Pass nil to recover.
func (r *InMemoryRepository) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// List returns copies of the stored flags ordered by key.
func (r *InMemoryRepository) List(_ context.Context) ([]*Flag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.err != nil {
		return nil, r.err
	}

	out := make([]*Flag, 0, len(r.flags))
	for _, f := range r.flags {
		f := f
		out = append(out, &f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Upsert stores copies of flags.
func (r *InMemoryRepository) Upsert(_ context.Context, flags []*Flag) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}

	for _, f := range flags {
		r.flags[f.Key] = *f
	}
	return nil
}

var _ Repository = (*InMemoryRepository)(nil)
