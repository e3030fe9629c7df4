// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// StagingCleaner removes stale unconfirmed pending rows.
type StagingCleaner interface {
	PurgeStale(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Scheduler manages background scheduled jobs using robfig/cron.
type Scheduler struct {
	cron      *cron.Cron
	cleaner   StagingCleaner
	retention time.Duration
	schedule  string
	onPurged  func(count int64)
	logger    *slog.Logger
}

// NewScheduler creates a new job scheduler.
func NewScheduler(cleaner StagingCleaner, schedule string, retention time.Duration, logger *slog.Logger) *Scheduler {
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	return &Scheduler{
		cron:      c,
		cleaner:   cleaner,
		retention: retention,
		schedule:  schedule,
		logger:    logger,
	}
}

// OnPurged registers a callback invoked with the purge count after each run.
func (s *Scheduler) OnPurged(fn func(count int64)) {
	s.onPurged = fn
}

// Start begins scheduled jobs.
func (s *Scheduler) Start() error {
	if s.schedule == "" {
		s.logger.Info("staging cleanup disabled, no schedule configured")
		return nil
	}

	if _, err := s.cron.AddFunc(s.schedule, s.purgeStaleStaging); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.Int("jobs", len(s.cron.Entries())),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow manually triggers the staging cleanup (for testing/admin).
func (s *Scheduler) RunNow() {
	go s.purgeStaleStaging()
}

func (s *Scheduler) purgeStaleStaging() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	purged, err := s.cleaner.PurgeStale(ctx, s.retention)
	if err != nil {
		s.logger.Error("failed to purge stale pending transactions", slog.Any("error", err))
		return
	}

	if purged > 0 {
		s.logger.Info("purged stale pending transactions",
			slog.Int64("count", purged),
			slog.Duration("retention", s.retention),
		)
	}
	if s.onPurged != nil {
		s.onPurged(purged)
	}
}
