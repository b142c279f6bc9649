package repository

import (
	"context"
	"sync"
	"time"

	"github.com/gridstream-io/gridstream/common/models"
)

// InMemoryRepository is a development and test implementation of
// Repository backed by mutex-guarded maps.
type InMemoryRepository struct {
	tenants   map[string]*models.Tenant
	workers   map[string]*models.Worker
	watchlist map[string]*models.WatchlistItem
	mu        sync.RWMutex
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		tenants:   make(map[string]*models.Tenant),
		workers:   make(map[string]*models.Worker),
		watchlist: make(map[string]*models.WatchlistItem),
	}
}

func (r *InMemoryRepository) CreateTenant(ctx context.Context, tenant *models.Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tenants[tenant.TenantID]; exists {
		return ErrTenantExists
	}
	r.tenants[tenant.TenantID] = cloneTenant(tenant)
	return nil
}

func (r *InMemoryRepository) GetTenant(ctx context.Context, tenantID string) (*models.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tenant, exists := r.tenants[tenantID]
	if !exists {
		return nil, ErrTenantNotFound
	}
	return cloneTenant(tenant), nil
}

func (r *InMemoryRepository) ListTenants(ctx context.Context) ([]*models.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Tenant, 0, len(r.tenants))
	for _, tenant := range r.tenants {
		out = append(out, cloneTenant(tenant))
	}
	return out, nil
}

func (r *InMemoryRepository) UpdateTenantToken(ctx context.Context, tenantID string, token *models.Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tenant, exists := r.tenants[tenantID]
	if !exists {
		return ErrTenantNotFound
	}
	tok := *token
	tenant.Token = &tok
	return nil
}

func (r *InMemoryRepository) AddHost(ctx context.Context, tenantID string, host models.Host) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tenant, exists := r.tenants[tenantID]
	if !exists {
		return ErrTenantNotFound
	}
	tenant.Hosts = append(tenant.Hosts, host)
	return nil
}

func (r *InMemoryRepository) AddProducer(ctx context.Context, tenantID string, producer models.EventProducer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tenant, exists := r.tenants[tenantID]
	if !exists {
		return ErrTenantNotFound
	}
	tenant.Producers = append(tenant.Producers, producer)
	return nil
}

func (r *InMemoryRepository) CreateWorker(ctx context.Context, worker *models.Worker) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	w := *worker
	r.workers[worker.WorkerID] = &w
	return nil
}

func (r *InMemoryRepository) GetWorker(ctx context.Context, workerID string) (*models.Worker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	worker, exists := r.workers[workerID]
	if !exists {
		return nil, ErrWorkerNotFound
	}
	w := *worker
	return &w, nil
}

func (r *InMemoryRepository) ListWorkers(ctx context.Context) ([]*models.Worker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Worker, 0, len(r.workers))
	for _, worker := range r.workers {
		w := *worker
		out = append(out, &w)
	}
	return out, nil
}

func (r *InMemoryRepository) UpdateWorkerStatus(ctx context.Context, workerID string, status models.WorkerStatus, info *models.SystemInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	worker, exists := r.workers[workerID]
	if !exists {
		return ErrWorkerNotFound
	}
	worker.Status = status
	worker.LastSeen = time.Now().UTC()
	if info != nil {
		worker.SystemInfo = *info
	}
	return nil
}

func (r *InMemoryRepository) GetWatchlistItem(ctx context.Context, workerID string) (*models.WatchlistItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, exists := r.watchlist[workerID]
	if !exists {
		return nil, ErrWatchlistNotFound
	}
	it := *item
	return &it, nil
}

func (r *InMemoryRepository) UpsertWatchlistItem(ctx context.Context, item *models.WatchlistItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	it := *item
	r.watchlist[item.WorkerID] = &it
	return nil
}

func (r *InMemoryRepository) PurgeWatchlist(ctx context.Context, olderThan time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, item := range r.watchlist {
		if item.LastChanged.Before(olderThan) {
			delete(r.watchlist, id)
		}
	}
	return nil
}

func (r *InMemoryRepository) Close() {}

func cloneTenant(t *models.Tenant) *models.Tenant {
	out := *t
	out.Producers = append([]models.EventProducer(nil), t.Producers...)
	out.Hosts = append([]models.Host(nil), t.Hosts...)
	if t.Token != nil {
		tok := *t.Token
		out.Token = &tok
	}
	return &out
}
