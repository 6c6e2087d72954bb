package worker

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/fleetminder/fleetminder/internal/api/models"
	"github.com/fleetminder/fleetminder/internal/notification"
	"github.com/fleetminder/fleetminder/internal/reminder"
)

// OwnerLister enumerates the owners that have tracked entities.
type OwnerLister interface {
	ListOwners(ctx context.Context) ([]string, error)
}

// FeedSource returns an owner's outstanding (non-dismissed) reminders.
type FeedSource interface {
	Pending(ctx context.Context, ownerID string) ([]reminder.Notification, error)
}

// Flags is the subset of runtime flags the digest job consults.
type Flags interface {
	IsReminderSendingDisabled(ctx context.Context) bool
	IsDigestUpcomingIncluded(ctx context.Context) bool
	BadgeUrgentDays(ctx context.Context) int
}

// Digest is the reminder summary sent for one owner.
type Digest struct {
	OwnerID      string                `json:"ownerId"`
	GeneratedAt  models.Timestamp      `json:"generatedAt"`
	UrgentDays   int                   `json:"urgentDays"`
	ExpiredCount int                   `json:"expiredCount"`
	UrgentCount  int                   `json:"urgentCount"`
	Items        []models.Notification `json:"items"`
}

// BuildDigest assembles a digest from an owner's pending reminders. Unless
// includeUpcoming is set only expired and urgent reminders are listed.
// It returns nil when there is nothing to report.
func BuildDigest(ownerID string, pending []reminder.Notification, urgentDays int, includeUpcoming bool, now time.Time) *Digest {
	d := &Digest{
		OwnerID:     ownerID,
		GeneratedAt: models.Timestamp(now),
		UrgentDays:  urgentDays,
		Items:       make([]models.Notification, 0, len(pending)),
	}

	for _, n := range pending {
		urgent := n.IsUrgent(urgentDays)
		if !urgent && !includeUpcoming {
			continue
		}
		if n.IsExpired {
			d.ExpiredCount++
		}
		if urgent {
			d.UrgentCount++
		}
		d.Items = append(d.Items, notification.ToAPI(n, false))
	}

	if len(d.Items) == 0 {
		return nil
	}
	return d
}

// DigestJob builds and publishes reminder digests for every owner.
type DigestJob struct {
	config    DigestConfig
	logger    zerolog.Logger
	owners    []OwnerLister
	feed      FeedSource
	publisher Publisher
	flags     Flags
	now       func() time.Time

	metrics *DigestMetrics
}

// DigestMetrics tracks digest job statistics.
type DigestMetrics struct {
	mu sync.RWMutex

	TotalRuns      int64
	DigestsSent    int64
	OwnersSkipped  int64
	FailedOwners   int64
	SuppressedRuns int64

	LastRunAt       time.Time
	LastRunDuration time.Duration
	TotalDuration   time.Duration
}

// DigestJobConfig holds configuration for creating a DigestJob.
type DigestJobConfig struct {
	Config    DigestConfig
	Logger    zerolog.Logger
	Owners    []OwnerLister
	Feed      FeedSource
	Publisher Publisher
	Flags     Flags // optional
	Now       func() time.Time
}

// NewDigestJob creates a new digest job.
func NewDigestJob(cfg DigestJobConfig) *DigestJob {
	config := cfg.Config
	defaults := DefaultDigestConfig()
	if config.Concurrency <= 0 {
		config.Concurrency = defaults.Concurrency
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &DigestJob{
		config:    config,
		logger:    cfg.Logger,
		owners:    cfg.Owners,
		feed:      cfg.Feed,
		publisher: cfg.Publisher,
		flags:     cfg.Flags,
		now:       now,
		metrics:   &DigestMetrics{},
	}
}

// DigestResult contains the result of a digest run.
type DigestResult struct {
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
	Owners     int
	Sent       int
	Skipped    int
	Failed     int
	Suppressed bool
	Errors     []DigestError
}

// DigestError records a failure for a single owner.
type DigestError struct {
	OwnerID string
	Error   string
}

// Run builds and publishes a digest for every known owner.
func (j *DigestJob) Run(ctx context.Context) (*DigestResult, error) {
	owners, err := j.listOwners(ctx)
	if err != nil {
		return nil, err
	}
	return j.run(ctx, owners), nil
}

// RunOwners builds and publishes digests for the given owners only.
func (j *DigestJob) RunOwners(ctx context.Context, ownerIDs []string) *DigestResult {
	return j.run(ctx, ownerIDs)
}

func (j *DigestJob) run(ctx context.Context, owners []string) *DigestResult {
	startTime := time.Now()
	result := &DigestResult{
		StartTime: startTime,
		Owners:    len(owners),
	}

	if j.flags != nil && j.flags.IsReminderSendingDisabled(ctx) {
		j.logger.Info().Int("owners", len(owners)).Msg("reminder sending disabled, skipping digest run")
		result.Suppressed = true
		result.Skipped = len(owners)
		result.EndTime = time.Now()
		result.Duration = result.EndTime.Sub(startTime)
		j.updateMetrics(result)
		return result
	}

	urgentDays := reminder.DefaultUrgentDays
	includeUpcoming := false
	if j.flags != nil {
		urgentDays = j.flags.BadgeUrgentDays(ctx)
		includeUpcoming = j.flags.IsDigestUpcomingIncluded(ctx)
	}

	j.logger.Info().
		Int("owners", len(owners)).
		Int("concurrency", j.config.Concurrency).
		Int("urgent_days", urgentDays).
		Msg("starting reminder digest job")

	ownersChan := make(chan string, len(owners))
	resultsChan := make(chan ownerResult, len(owners))

	var wg sync.WaitGroup
	for i := 0; i < j.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Owners still queued after cancellation count as failed.
			for ownerID := range ownersChan {
				select {
				case <-ctx.Done():
					resultsChan <- ownerResult{ownerID: ownerID, err: fmt.Errorf("digest run cancelled: %w", ctx.Err())}
				default:
					resultsChan <- j.digestOwner(ctx, ownerID, urgentDays, includeUpcoming)
				}
			}
		}()
	}

	for _, o := range owners {
		ownersChan <- o
	}
	close(ownersChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	for or := range resultsChan {
		switch {
		case or.err != nil:
			result.Failed++
			result.Errors = append(result.Errors, DigestError{OwnerID: or.ownerID, Error: or.err.Error()})
		case or.sent:
			result.Sent++
		default:
			result.Skipped++
		}
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)

	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("sent", result.Sent).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Msg("reminder digest job completed")

	return result
}

type ownerResult struct {
	ownerID string
	sent    bool
	err     error
}

func (j *DigestJob) digestOwner(ctx context.Context, ownerID string, urgentDays int, includeUpcoming bool) ownerResult {
	ownerCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	pending, err := j.feed.Pending(ownerCtx, ownerID)
	if err != nil {
		return ownerResult{ownerID: ownerID, err: fmt.Errorf("build feed: %w", err)}
	}

	digest := BuildDigest(ownerID, pending, urgentDays, includeUpcoming, j.now())
	if digest == nil {
		return ownerResult{ownerID: ownerID}
	}

	if err := j.publisher.Publish(ownerCtx, digest); err != nil {
		j.logger.Warn().Err(err).Str("owner_id", ownerID).Msg("failed to publish digest")
		return ownerResult{ownerID: ownerID, err: fmt.Errorf("publish: %w", err)}
	}

	return ownerResult{ownerID: ownerID, sent: true}
}

// listOwners returns the sorted union of owners from every lister.
func (j *DigestJob) listOwners(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	for _, l := range j.owners {
		ids, err := l.ListOwners(ctx)
		if err != nil {
			return nil, fmt.Errorf("list owners: %w", err)
		}
		for _, id := range ids {
			seen[id] = struct{}{}
		}
	}

	owners := make([]string, 0, len(seen))
	for id := range seen {
		owners = append(owners, id)
	}
	sort.Strings(owners)
	return owners, nil
}

// HealthCheck verifies that owners can be enumerated.
func (j *DigestJob) HealthCheck(ctx context.Context) error {
	_, err := j.listOwners(ctx)
	return err
}

func (j *DigestJob) updateMetrics(result *DigestResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalRuns++
	j.metrics.DigestsSent += int64(result.Sent)
	j.metrics.OwnersSkipped += int64(result.Skipped)
	j.metrics.FailedOwners += int64(result.Failed)
	if result.Suppressed {
		j.metrics.SuppressedRuns++
	}
	j.metrics.LastRunAt = result.EndTime
	j.metrics.LastRunDuration = result.Duration
	j.metrics.TotalDuration += result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *DigestJob) GetMetrics() DigestMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return DigestMetrics{
		TotalRuns:       j.metrics.TotalRuns,
		DigestsSent:     j.metrics.DigestsSent,
		OwnersSkipped:   j.metrics.OwnersSkipped,
		FailedOwners:    j.metrics.FailedOwners,
		SuppressedRuns:  j.metrics.SuppressedRuns,
		LastRunAt:       j.metrics.LastRunAt,
		LastRunDuration: j.metrics.LastRunDuration,
		TotalDuration:   j.metrics.TotalDuration,
	}
}

// MetricsSnapshot returns a snapshot of the current metrics as a map.
func (j *DigestJob) MetricsSnapshot() map[string]interface{} {
	m := j.GetMetrics()
	return map[string]interface{}{
		"total_runs":        m.TotalRuns,
		"digests_sent":      m.DigestsSent,
		"owners_skipped":    m.OwnersSkipped,
		"failed_owners":     m.FailedOwners,
		"suppressed_runs":   m.SuppressedRuns,
		"last_run_at":       m.LastRunAt,
		"last_run_duration": m.LastRunDuration.String(),
		"total_duration":    m.TotalDuration.String(),
	}
}
