package featureflags

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/fleetminder/fleetminder/internal/api/models"
	"github.com/fleetminder/fleetminder/internal/reminder"
)

// ValidationError reports flag updates that were rejected.
type ValidationError struct {
	Errors []models.FieldError
}

func (e *ValidationError) Error() string {
	return "invalid feature flag update"
}

// ServiceConfig holds configuration for the feature flag service.
type ServiceConfig struct {
	Repository Repository
	Logger     zerolog.Logger

	// CacheTTL is how long a loaded snapshot is served. Default: 1 minute.
	CacheTTL time.Duration

	Now func() time.Time
}

// Service evaluates flags from a cached snapshot of the repository. When the
// repository cannot be read, the previous snapshot keeps being served and
// unknown values fall back to defaults.
type Service struct {
	repo   Repository
	logger zerolog.Logger
	ttl    time.Duration
	now    func() time.Time

	mu       sync.Mutex
	snapshot map[string]*Flag
	loadedAt time.Time
}

// NewService creates a new feature flag service.
func NewService(cfg ServiceConfig) *Service {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		repo:   cfg.Repository,
		logger: cfg.Logger,
		ttl:    cfg.CacheTTL,
		now:    cfg.Now,
	}
}

// Get returns the effective value of one flag.
func (s *Service) Get(ctx context.Context, key string) (*Flag, error) {
	if f, ok := s.current(ctx)[key]; ok {
		return f, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrFlagNotFound, key)
}

// List returns every effective flag ordered by key. Stored flags override
// defaults; stored keys that are no longer known are still listed.
func (s *Service) List(ctx context.Context) FlagList {
	current := s.current(ctx)
	list := FlagList{Items: make([]Flag, 0, len(current))}
	for _, f := range current {
		list.Items = append(list.Items, *f)
	}
	sort.Slice(list.Items, func(i, j int) bool { return list.Items[i].Key < list.Items[j].Key })
	return list
}

// SetFlags validates and stores updates in one write, then refreshes the
// cached snapshot. Only known flags with a value of the right type are accepted.
func (s *Service) SetFlags(ctx context.Context, updates []FlagUpdate, reason string) ([]*Flag, error) {
	var fieldErrs []models.FieldError
	now := s.now().UTC()
	flags := make([]*Flag, 0, len(updates))

	for i, u := range updates {
		field := fmt.Sprintf("updates[%d].value", i)
		def, ok := catalogue[u.Key]
		if !ok {
			fieldErrs = append(fieldErrs, models.FieldError{
				Field:   fmt.Sprintf("updates[%d].key", i),
				Message: "unknown feature flag " + u.Key,
				Code:    "unknown",
			})
			continue
		}
		value, msg := normalize(def.kind, u.Value)
		if msg != "" {
			fieldErrs = append(fieldErrs, models.FieldError{Field: field, Message: msg, Code: "type"})
			continue
		}
		flags = append(flags, &Flag{
			Key:         u.Key,
			Value:       value,
			Description: def.description,
			Reason:      reason,
			UpdatedAt:   now,
		})
	}
	if len(fieldErrs) > 0 {
		return nil, &ValidationError{Errors: fieldErrs}
	}

	if err := s.repo.Upsert(ctx, flags); err != nil {
		return nil, fmt.Errorf("store feature flags: %w", err)
	}

	// Snapshots are shared with readers, so a new map replaces the old one.
	s.mu.Lock()
	if s.snapshot != nil {
		next := make(map[string]*Flag, len(s.snapshot)+len(flags))
		for k, f := range s.snapshot {
			next[k] = f
		}
		for _, f := range flags {
			next[f.Key] = f
		}
		s.snapshot = next
	}
	s.mu.Unlock()

	return flags, nil
}

// InvalidateCache drops the snapshot so the next read reloads it.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadedAt = time.Time{}
}

// IsReminderSendingDisabled reports whether digest delivery is switched off.
func (s *Service) IsReminderSendingDisabled(ctx context.Context) bool {
	return s.current(ctx)[FlagDisableReminderSending].BoolValue(false)
}

// IsDigestUpcomingIncluded reports whether digests list non-urgent reminders too.
func (s *Service) IsDigestUpcomingIncluded(ctx context.Context) bool {
	return s.current(ctx)[FlagDigestIncludeUpcoming].BoolValue(false)
}

// BadgeUrgentDays returns the navigation badge threshold in days. Stored
// values outside [0, DefaultReminderDays] fall back to the default.
func (s *Service) BadgeUrgentDays(ctx context.Context) int {
	days := s.current(ctx)[FlagBadgeUrgentDays].IntValue(reminder.DefaultUrgentDays)
	if days < 0 || days > maxBadgeUrgentDays {
		return reminder.DefaultUrgentDays
	}
	return days
}

// current returns the effective flags, reloading the snapshot when it is stale.
func (s *Service) current(ctx context.Context) map[string]*Flag {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.snapshot != nil && now.Sub(s.loadedAt) < s.ttl {
		return s.snapshot
	}

	stored, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to load feature flags, serving cached values")
		if s.snapshot == nil {
			s.snapshot = DefaultFlags()
		}
		// Back off until the next TTL so a down database is not queried per request.
		s.loadedAt = now
		return s.snapshot
	}

	next := DefaultFlags()
	for _, f := range stored {
		if def, ok := catalogue[f.Key]; ok && f.Description == "" {
			f.Description = def.description
		}
		next[f.Key] = f
	}
	s.snapshot = next
	s.loadedAt = now
	return s.snapshot
}

// normalize checks an update value against the flag kind.
func normalize(kind valueKind, v any) (any, string) {
	switch kind {
	case kindBool:
		if b, ok := v.(bool); ok {
			return b, ""
		}
		return nil, "must be a boolean"
	case kindDays:
		probe := Flag{Value: v}
		days := probe.IntValue(-1)
		if days < 0 || days > maxBadgeUrgentDays {
			return nil, fmt.Sprintf("must be a whole number of days between 0 and %d", maxBadgeUrgentDays)
		}
		return float64(days), ""
	default:
		return nil, "unsupported flag type"
	}
}
