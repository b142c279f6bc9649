package repository

import (
	"context"
	"errors"
	"time"

	"github.com/gridstream-io/gridstream/common/models"
)

var (
	ErrTenantExists      = errors.New("tenant already exists")
	ErrTenantNotFound    = errors.New("tenant not found")
	ErrWorkerNotFound    = errors.New("worker not found")
	ErrWatchlistNotFound = errors.New("watchlist item not found")
)

// Repository is the coordinator's persistence boundary.
type Repository interface {
	// Tenants
	CreateTenant(ctx context.Context, tenant *models.Tenant) error
	GetTenant(ctx context.Context, tenantID string) (*models.Tenant, error)
	ListTenants(ctx context.Context) ([]*models.Tenant, error)
	UpdateTenantToken(ctx context.Context, tenantID string, token *models.Token) error
	AddHost(ctx context.Context, tenantID string, host models.Host) error
	AddProducer(ctx context.Context, tenantID string, producer models.EventProducer) error

	// Workers (never deleted; status transitions only)
	CreateWorker(ctx context.Context, worker *models.Worker) error
	GetWorker(ctx context.Context, workerID string) (*models.Worker, error)
	ListWorkers(ctx context.Context) ([]*models.Worker, error)
	UpdateWorkerStatus(ctx context.Context, workerID string, status models.WorkerStatus, info *models.SystemInfo) error

	// Watchlist
	GetWatchlistItem(ctx context.Context, workerID string) (*models.WatchlistItem, error)
	UpsertWatchlistItem(ctx context.Context, item *models.WatchlistItem) error
	PurgeWatchlist(ctx context.Context, olderThan time.Time) error

	Close()
}
