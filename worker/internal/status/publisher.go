// Package status publishes periodic worker heartbeats to the
// coordinator.
package status

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/gridstream-io/gridstream/common/models"
)

// Reporter is the slice of the coordinator client heartbeats need.
type Reporter interface {
	UpdateStatus(ctx context.Context, status models.WorkerStatus, info *models.SystemInfo) error
}

// Publisher drives the worker lifecycle: it announces waiting once,
// then flips to online on the first successful heartbeat and keeps
// refreshing the system-info snapshot every interval.
type Publisher struct {
	reporter Reporter
	interval time.Duration
	logger   *slog.Logger

	current models.WorkerStatus
	stop    chan struct{}
	stopped chan struct{}
}

func NewPublisher(reporter Reporter, interval time.Duration, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		reporter: reporter,
		interval: interval,
		logger:   logger,
		current:  models.StatusWaiting,
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// Start publishes an immediate first heartbeat, then one per interval.
// Call in a goroutine.
func (p *Publisher) Start(ctx context.Context) {
	defer close(p.stopped)

	p.publish(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.publish(ctx)
		case <-p.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop announces draining, signals the loop and waits for it.
func (p *Publisher) Stop() {
	close(p.stop)
	<-p.stopped

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.reporter.UpdateStatus(ctx, models.StatusDraining, Snapshot()); err != nil {
		p.logger.Warn("draining announcement failed", slog.String("error", err.Error()))
	}
}

func (p *Publisher) publish(ctx context.Context) {
	if err := p.reporter.UpdateStatus(ctx, p.current, Snapshot()); err != nil {
		p.logger.Warn("heartbeat failed",
			slog.String("status", string(p.current)),
			slog.String("error", err.Error()))
		return
	}

	if p.current == models.StatusWaiting {
		p.current = models.StatusOnline
		p.logger.Info("worker online")
		// Announce the transition right away instead of waiting a tick.
		if err := p.reporter.UpdateStatus(ctx, p.current, Snapshot()); err != nil {
			p.logger.Warn("online announcement failed", slog.String("error", err.Error()))
		}
	}
}

// Snapshot captures the system-info block carried on each heartbeat.
func Snapshot() *models.SystemInfo {
	hostname, _ := os.Hostname()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return &models.SystemInfo{
		Hostname:   hostname,
		OSType:     runtime.GOOS,
		PID:        os.Getpid(),
		Goroutines: runtime.NumGoroutine(),
		MemAllocMB: mem.Alloc / (1 << 20),
	}
}
