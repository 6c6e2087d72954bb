package worker

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler runs the digest job on a cron schedule.
type Scheduler struct {
	cron   *cron.Cron
	job    *DigestJob
	logger zerolog.Logger
}

// NewScheduler registers the digest job under the given cron spec.
// Descriptors such as @daily and @every 6h are accepted.
func NewScheduler(ctx context.Context, spec string, job *DigestJob, logger zerolog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:   cron.New(cron.WithLogger(cron.DiscardLogger)),
		job:    job,
		logger: logger,
	}

	if _, err := s.cron.AddFunc(spec, func() { s.runOnce(ctx) }); err != nil {
		return nil, fmt.Errorf("invalid digest schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if _, err := s.job.Run(ctx); err != nil {
		s.logger.Error().Err(err).Msg("scheduled digest run failed")
	}
}

// Start starts the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the scheduler and returns a context that is done once any
// running job has finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// Entries returns the number of scheduled jobs.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}
