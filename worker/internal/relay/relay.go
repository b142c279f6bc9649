// Package relay implements the broadcaster personality: it accepts
// topology-change handoffs from the coordinator and nudges the affected
// workers to refresh their routing tables.
package relay

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gridstream-io/gridstream/common/models"
	"github.com/gridstream-io/gridstream/worker/internal/metrics"
)

// Relay queues nudge targets and delivers them asynchronously. Targets
// are deduplicated while queued; a delivered nudge leaves the queue, a
// failed one stays for the next flush pass. Handoff acceptance is
// therefore cheap and never blocks on slow callbacks.
type Relay struct {
	client   *http.Client
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	pending map[string]struct{}

	kick    chan struct{}
	stop    chan struct{}
	stopped chan struct{}
}

func New(interval, nudgeTimeout time.Duration, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{
		client:   &http.Client{Timeout: nudgeTimeout},
		interval: interval,
		logger:   logger,
		pending:  make(map[string]struct{}),
		kick:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// Accept queues the broadcast's targets and kicks the flush loop.
func (r *Relay) Accept(msg models.BroadcastMessage) {
	if msg.Type != models.BroadcastRoutes {
		r.logger.Warn("unknown broadcast type", slog.String("type", string(msg.Type)))
		return
	}

	r.mu.Lock()
	for _, target := range msg.Targets {
		r.pending[target] = struct{}{}
	}
	queued := len(r.pending)
	r.mu.Unlock()

	r.logger.Info("broadcast accepted",
		slog.Int("targets", len(msg.Targets)),
		slog.Int("queued", queued))

	select {
	case r.kick <- struct{}{}:
	default:
	}
}

// Pending returns the number of queued targets.
func (r *Relay) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Start runs the flush loop. Call in a goroutine.
func (r *Relay) Start(ctx context.Context) {
	defer close(r.stopped)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.kick:
			r.Flush(ctx)
		case <-ticker.C:
			r.Flush(ctx)
		case <-r.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop signals the loop to stop and waits for it to finish.
func (r *Relay) Stop() {
	close(r.stop)
	<-r.stopped
}

// Flush nudges every queued target once. Delivered targets leave the
// queue; unreachable ones are retried on the next pass.
func (r *Relay) Flush(ctx context.Context) {
	r.mu.Lock()
	targets := make([]string, 0, len(r.pending))
	for target := range r.pending {
		targets = append(targets, target)
	}
	r.mu.Unlock()

	for _, target := range targets {
		if err := r.nudge(ctx, target); err != nil {
			metrics.RelayNudges.WithLabelValues("failed").Inc()
			r.logger.Debug("nudge not delivered",
				slog.String("target", target),
				slog.String("error", err.Error()))
			continue
		}
		metrics.RelayNudges.WithLabelValues("ok").Inc()

		r.mu.Lock()
		delete(r.pending, target)
		r.mu.Unlock()
	}
}

// nudge sends the routes-refresh callback to one worker.
func (r *Relay) nudge(ctx context.Context, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, "http://"+target+"/v1/routes/refresh", nil)
	if err != nil {
		return err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}
