package featureflags

import (
	"context"
	"errors"
)

// ErrFlagNotFound is returned for keys that are neither stored nor known.
var ErrFlagNotFound = errors.New("feature flag not found")

// Repository stores flag overrides. The service always reads the full set,
// so there is no single-key lookup.
type Repository interface {
	List(ctx context.Context) ([]*Flag, error)

	// Upsert writes every flag or none of them.
	Upsert(ctx context.Context, flags []*Flag) error
}
