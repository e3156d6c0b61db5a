/**
 * @description
 * Cron scheduler setup for the recurring ledger jobs.
 */
package app

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Scheduler manages the cron jobs.
type Scheduler struct {
	cron   *cron.Cron
	jobs   *Jobs
	logger *slog.Logger

	scheduleSpec   string
	collectionSpec string
	snapshotSpec   string
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(jobs *Jobs, logger *slog.Logger, scheduleSpec, collectionSpec, snapshotSpec string) *Scheduler {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger)))

	return &Scheduler{
		cron:           c,
		jobs:           jobs,
		logger:         logger,
		scheduleSpec:   scheduleSpec,
		collectionSpec: collectionSpec,
		snapshotSpec:   snapshotSpec,
	}
}

// Start registers the jobs and starts the cron scheduler.
func (s *Scheduler) Start() {
	if _, err := s.cron.AddFunc(s.scheduleSpec, s.jobs.ProcessDueScheduledTransfers); err != nil {
		s.logger.Error("failed to schedule due-transfer job", "error", err)
	} else {
		s.logger.Info("scheduled due-transfer job", "schedule", s.scheduleSpec)
	}

	if _, err := s.cron.AddFunc(s.collectionSpec, s.jobs.ProcessExpiredCollections); err != nil {
		s.logger.Error("failed to schedule collection expiry job", "error", err)
	} else {
		s.logger.Info("scheduled collection expiry job", "schedule", s.collectionSpec)
	}

	if _, err := s.cron.AddFunc(s.snapshotSpec, s.jobs.SnapshotTreasury); err != nil {
		s.logger.Error("failed to schedule treasury snapshot job", "error", err)
	} else {
		s.logger.Info("scheduled treasury snapshot job", "schedule", s.snapshotSpec)
	}

	s.cron.Start()
}

// Stop gracefully stops the cron scheduler.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
