// Package watchlist accumulates unreachability reports per worker and
// demotes workers that cross the failure threshold.
package watchlist

import (
	"context"
	"log/slog"
	"time"

	"github.com/gridstream-io/gridstream/common/models"
	"github.com/gridstream-io/gridstream/coordinator/internal/repository"
)

// Notifier is told when a worker has been demoted to offline.
// Implemented by the broadcaster.
type Notifier interface {
	NotifyTopologyChange(ctx context.Context, demoted *models.Worker)
}

// Tracker processes failure reports. Stale items are purged before each
// increment, so accumulation restarts naturally after a quiet period.
//
// The purge-then-increment read-modify-write is intentionally not
// serialized per worker id: concurrent reports for the same worker can
// race on the counter. The grid self-corrects through periodic
// re-broadcast, so the occasional lost increment is tolerated.
type Tracker struct {
	repo      repository.Repository
	notifier  Notifier
	threshold int
	window    time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// NewTracker creates a Tracker. threshold is the watch count at which a
// worker is marked offline; window is the failure-tolerance window beyond
// which items go stale.
func NewTracker(repo repository.Repository, notifier Notifier, threshold int, window time.Duration, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		repo:      repo,
		notifier:  notifier,
		threshold: threshold,
		window:    window,
		now:       time.Now,
		logger:    logger,
	}
}

// SetClock overrides the tracker's clock. Intended for tests.
func (t *Tracker) SetClock(now func() time.Time) {
	t.now = now
}

// Report processes one unreachability report for workerID. Missing or
// malformed watchlist state never surfaces to the caller; a missing item
// simply starts a new one.
func (t *Tracker) Report(ctx context.Context, workerID string) {
	now := t.now().UTC()

	// Stale reports must not accumulate toward the threshold.
	if err := t.repo.PurgeWatchlist(ctx, now.Add(-t.window)); err != nil {
		t.logger.Warn("watchlist purge failed", slog.String("error", err.Error()))
	}

	item, err := t.repo.GetWatchlistItem(ctx, workerID)
	if err != nil {
		item = &models.WatchlistItem{WorkerID: workerID, WatchCount: 0}
	}
	item.WatchCount++
	item.LastChanged = now

	if err := t.repo.UpsertWatchlistItem(ctx, item); err != nil {
		t.logger.Warn("watchlist upsert failed",
			slog.String("worker_id", workerID),
			slog.String("error", err.Error()))
		return
	}

	if item.WatchCount < t.threshold {
		return
	}

	worker, err := t.repo.GetWorker(ctx, workerID)
	if err != nil {
		t.logger.Warn("watched worker not in registry", slog.String("worker_id", workerID))
		return
	}
	if worker.Status == models.StatusOffline {
		return
	}

	if err := t.repo.UpdateWorkerStatus(ctx, workerID, models.StatusOffline, nil); err != nil {
		t.logger.Error("failed to demote worker",
			slog.String("worker_id", workerID),
			slog.String("error", err.Error()))
		return
	}
	worker.Status = models.StatusOffline

	t.logger.Info("worker demoted to offline",
		slog.String("worker_id", workerID),
		slog.String("personality", string(worker.Personality)),
		slog.Int("watch_count", item.WatchCount))

	if t.notifier != nil {
		t.notifier.NotifyTopologyChange(ctx, worker)
	}
}
