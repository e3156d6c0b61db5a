/**
 * @description
 * Background jobs driven by the cron scheduler: executing due scheduled
 * transfers, closing community collections whose deadline has passed, and
 * persisting a treasury snapshot. Each run is idempotent; a schedule that
 * is not yet due or a collection already closed is simply skipped.
 *
 * @dependencies
 * - context, log/slog, time: Standard Go libraries.
 */

package app

import (
	"context"
	"log/slog"
	"time"
)

// Jobs bundles the recurring ledger maintenance tasks for the scheduler.
type Jobs struct {
	service *Service
	logger  *slog.Logger
	timeout time.Duration
}

func NewJobs(service *Service, logger *slog.Logger, timeout time.Duration) *Jobs {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Jobs{service: service, logger: logger, timeout: timeout}
}

// ProcessDueScheduledTransfers executes every scheduled transfer whose next
// execution time has arrived.
func (j *Jobs) ProcessDueScheduledTransfers() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	executed := j.service.RunDueScheduledTransfers(ctx)
	if executed > 0 {
		j.logger.Info("scheduled transfers executed", "count", executed, "duration", time.Since(start).String())
	}
}

// ProcessExpiredCollections closes collections past their deadline and pays
// the collected balance to each creator.
func (j *Jobs) ProcessExpiredCollections() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	expired := j.service.ExpireDueCollections(ctx)
	if expired > 0 {
		j.logger.Info("expired collections closed", "count", expired, "duration", time.Since(start).String())
	}
}

// SnapshotTreasury re-journals every fund row so the persisted snapshot heals
// from any journal writes dropped during outages.
func (j *Jobs) SnapshotTreasury() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	total := j.service.SnapshotTreasury(ctx)
	j.logger.Info("treasury snapshot persisted", "total_wei", total)
}
