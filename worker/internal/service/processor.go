// Package service is the worker's processing pipeline: authenticate,
// correlate, then deliver each event according to this worker's
// personality.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gridstream-io/gridstream/common/griderr"
	"github.com/gridstream-io/gridstream/common/models"
	"github.com/gridstream-io/gridstream/worker/internal/correlator"
	"github.com/gridstream-io/gridstream/worker/internal/metrics"
	"github.com/gridstream-io/gridstream/worker/internal/ratelimit"
)

// Identity authenticates tenants. Implemented by identity.Service.
type Identity interface {
	GetValidatedTenant(ctx context.Context, tenantID, presentedToken string) (*models.Tenant, error)
}

// Forwarder delivers events to the next hop. Implemented by
// router.Router.
type Forwarder interface {
	Route(ctx context.Context, event *models.Event) error
}

// JobPublisher records durable delivery jobs. Implemented by
// jobs.Publisher.
type JobPublisher interface {
	Publish(ctx context.Context, event *models.Event) error
}

// DeadLetter captures events whose routing exhausted every candidate.
// Implemented by dlq.Queue.
type DeadLetter interface {
	Write(ctx context.Context, event *models.Event, cause error, reason string) error
}

// Indexer stores terminal events. Implemented by sink.Store.
type Indexer interface {
	Index(ctx context.Context, event *models.Event) error
}

// Processor runs the per-event pipeline. Optional stages (jobs, dlq,
// sink) may be nil and are skipped.
type Processor struct {
	personality models.Personality
	limiter     ratelimit.RateLimiter
	identity    Identity
	forwarder   Forwarder
	jobs        JobPublisher
	deadletter  DeadLetter
	indexer     Indexer
	logger      *slog.Logger
}

func NewProcessor(personality models.Personality, limiter ratelimit.RateLimiter, identity Identity, forwarder Forwarder, jobs JobPublisher, deadletter DeadLetter, indexer Indexer, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if limiter == nil {
		limiter = &ratelimit.NoOpRateLimiter{}
	}
	return &Processor{
		personality: personality,
		limiter:     limiter,
		identity:    identity,
		forwarder:   forwarder,
		jobs:        jobs,
		deadletter:  deadletter,
		indexer:     indexer,
		logger:      logger,
	}
}

// ErrRateLimited is returned when a tenant exceeds its intake rate.
var ErrRateLimited = errors.New("tenant rate limit exceeded")

// Ingest handles an event arriving from outside the grid: rate-limit,
// authenticate, correlate, then deliver.
func (p *Processor) Ingest(ctx context.Context, tenantID, presentedToken string, event *models.Event) error {
	allowed, err := p.limiter.Allow(ctx, tenantID)
	if err != nil {
		// A broken limiter must not take intake down with it.
		p.logger.Warn("rate limiter unavailable", slog.String("error", err.Error()))
	} else if !allowed {
		metrics.EventsTotal.WithLabelValues(string(p.personality), "rate_limited").Inc()
		return ErrRateLimited
	}

	tenant, err := p.identity.GetValidatedTenant(ctx, tenantID, presentedToken)
	if err != nil {
		metrics.EventsTotal.WithLabelValues(string(p.personality), "auth_failed").Inc()
		return err
	}

	if err := correlator.Correlate(tenant, event); err != nil {
		metrics.EventsTotal.WithLabelValues(string(p.personality), "invalid").Inc()
		return err
	}

	return p.Dispatch(ctx, event)
}

// Dispatch delivers an already-correlated event: record the durable job
// if one is due, then index terminally or route onward.
func (p *Processor) Dispatch(ctx context.Context, event *models.Event) error {
	if event.Durable() && p.jobs != nil {
		if err := p.jobs.Publish(ctx, event); err != nil {
			// Delivery still proceeds; the job record is the replay
			// safety net, not the delivery itself.
			p.logger.Error("durable job publish failed",
				slog.String("job_id", event.Correlation.JobID),
				slog.String("error", err.Error()))
		}
	}

	if p.personality == models.PersonalityStorage {
		if p.indexer == nil {
			metrics.EventsTotal.WithLabelValues(string(p.personality), "dropped").Inc()
			return errors.New("storage personality has no sink configured")
		}
		if err := p.indexer.Index(ctx, event); err != nil {
			metrics.EventsTotal.WithLabelValues(string(p.personality), "sink_failed").Inc()
			return err
		}
		metrics.EventsTotal.WithLabelValues(string(p.personality), "stored").Inc()
		return nil
	}

	if p.forwarder == nil {
		metrics.EventsTotal.WithLabelValues(string(p.personality), "terminal").Inc()
		return nil
	}

	if err := p.forwarder.Route(ctx, event); err != nil {
		var routeErr *griderr.RoutingError
		if errors.As(err, &routeErr) && p.deadletter != nil {
			if dlqErr := p.deadletter.Write(ctx, event, err, "no_route"); dlqErr != nil {
				p.logger.Error("dead letter write failed", slog.String("error", dlqErr.Error()))
			}
		}
		metrics.EventsTotal.WithLabelValues(string(p.personality), "route_failed").Inc()
		return err
	}

	metrics.EventsTotal.WithLabelValues(string(p.personality), "routed").Inc()
	return nil
}
