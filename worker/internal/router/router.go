// Package router forwards correlated events to the next hop in the
// grid, failing over across candidates deterministically.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/gridstream-io/gridstream/common/griderr"
	"github.com/gridstream-io/gridstream/common/models"
	"github.com/gridstream-io/gridstream/worker/internal/blacklist"
	"github.com/gridstream-io/gridstream/worker/internal/metrics"
	"github.com/gridstream-io/gridstream/worker/internal/transport"
)

// reportTimeout bounds the async best-effort failure report.
const reportTimeout = 5 * time.Second

// RouteSource fetches this worker's routing table and files failure
// reports. Implemented by coordclient.Client.
type RouteSource interface {
	FetchRoutes(ctx context.Context) (*models.RoutingTable, error)
	ReportUnreachable(ctx context.Context, workerID string) error
}

// Router holds the cached routing table and a connection pool. Routes
// are tried in table order: the primary service domain's candidates
// first, then the alternate's. A candidate that fails to connect or
// send is evicted from the pool, blacklisted, reported to the
// coordinator in the background, and skipped until its blacklist entry
// expires.
type Router struct {
	source    RouteSource
	transport transport.Transport
	blacklist *blacklist.Blacklist
	dataPort  int
	logger    *slog.Logger

	pool *pool

	mu    sync.Mutex
	table *models.RoutingTable
}

func New(source RouteSource, tr transport.Transport, bl *blacklist.Blacklist, dataPort int, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		source:    source,
		transport: tr,
		blacklist: bl,
		dataPort:  dataPort,
		logger:    logger,
		pool:      newPool(),
	}
}

// Route delivers the event to the first reachable candidate, walking
// the routing table in order. Returns a RoutingError once every live
// candidate in every service domain has been tried.
func (r *Router) Route(ctx context.Context, event *models.Event) error {
	table, err := r.routes(ctx)
	if err != nil {
		return err
	}

	tried := 0
	lastDomain := ""
	for _, route := range table.Routes {
		lastDomain = route.ServiceDomain
		for i := range route.Targets {
			target := &route.Targets[i]
			if r.blacklist.Contains(target.WorkerID) {
				continue
			}
			tried++

			if err := r.send(ctx, route.ServiceDomain, target, event); err != nil {
				r.fail(route.ServiceDomain, target, err)
				continue
			}
			metrics.RouteAttempts.WithLabelValues(route.ServiceDomain, "ok").Inc()
			return nil
		}
	}

	metrics.RouteExhaustions.WithLabelValues(lastDomain).Inc()
	return griderr.Routing(lastDomain, tried)
}

// Invalidate drops the cached routing table. The next Route call
// re-fetches from the coordinator.
func (r *Router) Invalidate() {
	r.mu.Lock()
	r.table = nil
	r.mu.Unlock()
	r.logger.Info("routing table invalidated")
}

// Close releases every pooled connection.
func (r *Router) Close() {
	r.pool.closeAll()
}

func (r *Router) routes(ctx context.Context) (*models.RoutingTable, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.table != nil {
		return r.table, nil
	}

	table, err := r.source.FetchRoutes(ctx)
	if err != nil {
		return nil, err
	}
	r.table = table
	return table, nil
}

func (r *Router) send(ctx context.Context, serviceDomain string, target *models.RouteTarget, event *models.Event) error {
	conn, pooled := r.pool.get(serviceDomain, target.WorkerID)
	if !pooled {
		var err error
		conn, err = r.transport.Connect(ctx, r.targetAddr(target))
		if err != nil {
			return fmt.Errorf("connect %s: %w", target.WorkerID, err)
		}
		r.pool.put(serviceDomain, target.WorkerID, conn)
	}

	if err := conn.Send(ctx, event); err != nil {
		return fmt.Errorf("send %s: %w", target.WorkerID, err)
	}
	return nil
}

func (r *Router) fail(serviceDomain string, target *models.RouteTarget, err error) {
	metrics.RouteAttempts.WithLabelValues(serviceDomain, "failed").Inc()
	r.pool.evict(serviceDomain, target.WorkerID)
	r.blacklist.Add(target.WorkerID)

	r.logger.Warn("downstream worker unreachable",
		slog.String("service_domain", serviceDomain),
		slog.String("worker_id", target.WorkerID),
		slog.String("error", err.Error()))

	// Best effort; the grid heals through the coordinator watchlist.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), reportTimeout)
		defer cancel()
		if err := r.source.ReportUnreachable(ctx, target.WorkerID); err != nil {
			r.logger.Debug("failure report not delivered",
				slog.String("worker_id", target.WorkerID),
				slog.String("error", err.Error()))
		}
	}()
}

// targetAddr prefers the registered IPv4 address, falling back to the
// hostname.
func (r *Router) targetAddr(target *models.RouteTarget) string {
	host := target.IPv4
	if host == "" {
		host = target.Hostname
	}
	return net.JoinHostPort(host, strconv.Itoa(r.dataPort))
}
