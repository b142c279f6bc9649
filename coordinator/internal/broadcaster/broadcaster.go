// Package broadcaster pushes topology-invalidation work to
// broadcaster-personality workers after a demotion.
package broadcaster

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gridstream-io/gridstream/common/models"
	"github.com/gridstream-io/gridstream/coordinator/internal/repository"
	"github.com/gridstream-io/gridstream/coordinator/internal/routing"
)

// Broadcaster computes, for a demoted worker, the set of upstream
// callback addresses that must refresh their routing topology, and hands
// that list to a broadcaster-personality worker for delivery. Handoff
// stops at the first relay that accepts; per-relay transport errors are
// swallowed. A periodic re-broadcast loop repeats the handoff while the
// demotion is within the configured horizon, so missed nudges heal on
// the next pass rather than through per-message retry.
type Broadcaster struct {
	repo     repository.Repository
	client   *http.Client
	interval time.Duration
	horizon  time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	recent  map[string]demotion
	stop    chan struct{}
	stopped chan struct{}
}

type demotion struct {
	worker *models.Worker
	at     time.Time
}

// New creates a Broadcaster. timeout bounds each relay handoff request.
func New(repo repository.Repository, interval, horizon, timeout time.Duration, logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		repo:     repo,
		client:   &http.Client{Timeout: timeout},
		interval: interval,
		horizon:  horizon,
		logger:   logger,
		recent:   make(map[string]demotion),
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// NotifyTopologyChange records the demotion and runs one broadcast pass.
func (b *Broadcaster) NotifyTopologyChange(ctx context.Context, demoted *models.Worker) {
	b.mu.Lock()
	b.recent[demoted.WorkerID] = demotion{worker: demoted, at: time.Now()}
	b.mu.Unlock()

	b.broadcast(ctx, demoted)
}

// Start begins the periodic re-broadcast loop. Call in a goroutine.
func (b *Broadcaster) Start(ctx context.Context) {
	defer close(b.stopped)

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.rebroadcast(ctx)
		case <-b.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop signals the loop to stop and waits for it to finish.
func (b *Broadcaster) Stop() {
	close(b.stop)
	<-b.stopped
}

// rebroadcast repeats the handoff for every demotion still within the
// horizon and forgets the rest.
func (b *Broadcaster) rebroadcast(ctx context.Context) {
	cutoff := time.Now().Add(-b.horizon)

	b.mu.Lock()
	var pending []*models.Worker
	for id, d := range b.recent {
		if d.at.Before(cutoff) {
			delete(b.recent, id)
			continue
		}
		pending = append(pending, d.worker)
	}
	b.mu.Unlock()

	for _, w := range pending {
		b.broadcast(ctx, w)
	}
}

func (b *Broadcaster) broadcast(ctx context.Context, demoted *models.Worker) {
	upstream := routing.Upstreams(demoted.Personality)
	if len(upstream) == 0 {
		return
	}

	workers, err := b.repo.ListWorkers(ctx)
	if err != nil {
		b.logger.Warn("broadcast: failed to list workers", slog.String("error", err.Error()))
		return
	}

	var callbacks []string
	var relays []*models.Worker
	for _, w := range workers {
		if !w.Status.Routable() || w.Callback == "" {
			continue
		}
		if w.Personality == models.PersonalityBroadcaster {
			relays = append(relays, w)
			continue
		}
		for _, p := range upstream {
			if w.Personality == p {
				callbacks = append(callbacks, w.Callback)
				break
			}
		}
	}

	if len(callbacks) == 0 {
		return
	}
	if len(relays) == 0 {
		b.logger.Warn("broadcast: no broadcaster worker registered",
			slog.String("demoted_worker", demoted.WorkerID))
		return
	}

	handed := false
	for _, relay := range relays {
		if err := b.handOff(ctx, relay, callbacks); err != nil {
			b.logger.Debug("broadcast handoff failed",
				slog.String("relay_worker", relay.WorkerID),
				slog.String("error", err.Error()))
			continue
		}
		handed = true
		break
	}

	b.logger.Info("topology change broadcast",
		slog.String("demoted_worker", demoted.WorkerID),
		slog.String("personality", string(demoted.Personality)),
		slog.Int("targets", len(callbacks)),
		slog.Bool("handed_off", handed))
}

// handOff delivers the callback list to one relay worker.
func (b *Broadcaster) handOff(ctx context.Context, relay *models.Worker, callbacks []string) error {
	envelope := models.BroadcastEnvelope{
		Broadcast: models.BroadcastMessage{
			Type:    models.BroadcastRoutes,
			Targets: callbacks,
		},
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		return err
	}

	url := "http://" + relay.Callback + "/v1/broadcast"
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("relay returned %d", resp.StatusCode)
	}
	return nil
}
