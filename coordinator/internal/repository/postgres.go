package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gridstream-io/gridstream/common/models"
)

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(ctx context.Context, connString string) (*PostgresRepository, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

func (r *PostgresRepository) Close() {
	r.pool.Close()
}

func (r *PostgresRepository) CreateTenant(ctx context.Context, tenant *models.Tenant) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		INSERT INTO tenants (tenant_id, name, token_valid, token_previous, token_last_changed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query,
		tenant.TenantID, tenant.Name,
		tenant.Token.Valid, nullIfEmpty(tenant.Token.Previous), tenant.Token.LastChanged,
		tenant.CreatedAt,
	)

	if err != nil {
		// Unique constraint violation (23505)
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrTenantExists
		}
		return fmt.Errorf("failed to create tenant: %w", err)
	}

	return nil
}

func (r *PostgresRepository) GetTenant(ctx context.Context, tenantID string) (*models.Tenant, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		SELECT tenant_id, name, token_valid, token_previous, token_last_changed, created_at
		FROM tenants
		WHERE tenant_id = $1
	`

	tenant := &models.Tenant{Token: &models.Token{}}
	var previous *string
	err := r.pool.QueryRow(ctx, query, tenantID).Scan(
		&tenant.TenantID, &tenant.Name,
		&tenant.Token.Valid, &previous, &tenant.Token.LastChanged,
		&tenant.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	if previous != nil {
		tenant.Token.Previous = *previous
	}

	if err := r.loadHosts(ctx, tenant); err != nil {
		return nil, err
	}
	if err := r.loadProducers(ctx, tenant); err != nil {
		return nil, err
	}

	return tenant, nil
}

func (r *PostgresRepository) loadHosts(ctx context.Context, tenant *models.Tenant) error {
	query := `
		SELECT id, hostname, ip_address_v4, ip_address_v6, profile_id
		FROM hosts
		WHERE tenant_id = $1
		ORDER BY created_at
	`

	rows, err := r.pool.Query(ctx, query, tenant.TenantID)
	if err != nil {
		return fmt.Errorf("failed to list hosts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var host models.Host
		var ipv4, ipv6, profileID *string
		if err := rows.Scan(&host.ID, &host.Hostname, &ipv4, &ipv6, &profileID); err != nil {
			return fmt.Errorf("failed to scan host: %w", err)
		}
		host.IPv4 = deref(ipv4)
		host.IPv6 = deref(ipv6)
		host.ProfileID = deref(profileID)
		tenant.Hosts = append(tenant.Hosts, host)
	}
	return rows.Err()
}

func (r *PostgresRepository) loadProducers(ctx context.Context, tenant *models.Tenant) error {
	query := `
		SELECT id, name, pattern, durable, encrypted, sinks
		FROM producers
		WHERE tenant_id = $1
		ORDER BY created_at
	`

	rows, err := r.pool.Query(ctx, query, tenant.TenantID)
	if err != nil {
		return fmt.Errorf("failed to list producers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var producer models.EventProducer
		if err := rows.Scan(&producer.ID, &producer.Name, &producer.Pattern,
			&producer.Durable, &producer.Encrypted, &producer.Sinks); err != nil {
			return fmt.Errorf("failed to scan producer: %w", err)
		}
		tenant.Producers = append(tenant.Producers, producer)
	}
	return rows.Err()
}

func (r *PostgresRepository) ListTenants(ctx context.Context) ([]*models.Tenant, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		SELECT tenant_id, name, token_valid, token_previous, token_last_changed, created_at
		FROM tenants
		ORDER BY created_at
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []*models.Tenant
	for rows.Next() {
		tenant := &models.Tenant{Token: &models.Token{}}
		var previous *string
		if err := rows.Scan(&tenant.TenantID, &tenant.Name,
			&tenant.Token.Valid, &previous, &tenant.Token.LastChanged,
			&tenant.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		if previous != nil {
			tenant.Token.Previous = *previous
		}
		tenants = append(tenants, tenant)
	}
	return tenants, rows.Err()
}

func (r *PostgresRepository) UpdateTenantToken(ctx context.Context, tenantID string, token *models.Token) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		UPDATE tenants
		SET token_valid = $2, token_previous = $3, token_last_changed = $4
		WHERE tenant_id = $1
	`

	tag, err := r.pool.Exec(ctx, query, tenantID,
		token.Valid, nullIfEmpty(token.Previous), token.LastChanged)
	if err != nil {
		return fmt.Errorf("failed to update token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTenantNotFound
	}
	return nil
}

func (r *PostgresRepository) AddHost(ctx context.Context, tenantID string, host models.Host) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		INSERT INTO hosts (id, tenant_id, hostname, ip_address_v4, ip_address_v6, profile_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query,
		host.ID, tenantID, host.Hostname,
		nullIfEmpty(host.IPv4), nullIfEmpty(host.IPv6), nullIfEmpty(host.ProfileID))
	if err != nil {
		var pgErr *pgconn.PgError
		// Foreign key violation (23503) means the tenant does not exist
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrTenantNotFound
		}
		return fmt.Errorf("failed to add host: %w", err)
	}
	return nil
}

func (r *PostgresRepository) AddProducer(ctx context.Context, tenantID string, producer models.EventProducer) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		INSERT INTO producers (id, tenant_id, name, pattern, durable, encrypted, sinks)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		producer.ID, tenantID, producer.Name, producer.Pattern,
		producer.Durable, producer.Encrypted, producer.Sinks)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrTenantNotFound
		}
		return fmt.Errorf("failed to add producer: %w", err)
	}
	return nil
}

func (r *PostgresRepository) CreateWorker(ctx context.Context, worker *models.Worker) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	info, err := json.Marshal(worker.SystemInfo)
	if err != nil {
		return fmt.Errorf("failed to marshal system info: %w", err)
	}

	query := `
		INSERT INTO workers (worker_id, worker_token, hostname, callback,
			ip_address_v4, ip_address_v6, personality, status, system_info,
			registered_at, last_seen)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = r.pool.Exec(ctx, query,
		worker.WorkerID, worker.WorkerToken, worker.Hostname, worker.Callback,
		nullIfEmpty(worker.IPv4), nullIfEmpty(worker.IPv6),
		string(worker.Personality), string(worker.Status), info,
		worker.RegisteredAt, worker.LastSeen)
	if err != nil {
		return fmt.Errorf("failed to create worker: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetWorker(ctx context.Context, workerID string) (*models.Worker, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		SELECT worker_id, worker_token, hostname, callback,
			ip_address_v4, ip_address_v6, personality, status, system_info,
			registered_at, last_seen
		FROM workers
		WHERE worker_id = $1
	`

	worker, err := scanWorker(r.pool.QueryRow(ctx, query, workerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWorkerNotFound
		}
		return nil, fmt.Errorf("failed to get worker: %w", err)
	}
	return worker, nil
}

func (r *PostgresRepository) ListWorkers(ctx context.Context) ([]*models.Worker, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		SELECT worker_id, worker_token, hostname, callback,
			ip_address_v4, ip_address_v6, personality, status, system_info,
			registered_at, last_seen
		FROM workers
		ORDER BY registered_at
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list workers: %w", err)
	}
	defer rows.Close()

	var workers []*models.Worker
	for rows.Next() {
		worker, err := scanWorker(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan worker: %w", err)
		}
		workers = append(workers, worker)
	}
	return workers, rows.Err()
}

func (r *PostgresRepository) UpdateWorkerStatus(ctx context.Context, workerID string, status models.WorkerStatus, info *models.SystemInfo) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var tag pgconn.CommandTag
	var err error
	if info != nil {
		var encoded []byte
		encoded, err = json.Marshal(info)
		if err != nil {
			return fmt.Errorf("failed to marshal system info: %w", err)
		}
		tag, err = r.pool.Exec(ctx, `
			UPDATE workers
			SET status = $2, system_info = $3, last_seen = now()
			WHERE worker_id = $1
		`, workerID, string(status), encoded)
	} else {
		tag, err = r.pool.Exec(ctx, `
			UPDATE workers
			SET status = $2, last_seen = now()
			WHERE worker_id = $1
		`, workerID, string(status))
	}
	if err != nil {
		return fmt.Errorf("failed to update worker status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrWorkerNotFound
	}
	return nil
}

func (r *PostgresRepository) GetWatchlistItem(ctx context.Context, workerID string) (*models.WatchlistItem, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		SELECT worker_id, watch_count, last_changed
		FROM watchlist
		WHERE worker_id = $1
	`

	item := &models.WatchlistItem{}
	err := r.pool.QueryRow(ctx, query, workerID).Scan(
		&item.WorkerID, &item.WatchCount, &item.LastChanged)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWatchlistNotFound
		}
		return nil, fmt.Errorf("failed to get watchlist item: %w", err)
	}
	return item, nil
}

func (r *PostgresRepository) UpsertWatchlistItem(ctx context.Context, item *models.WatchlistItem) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		INSERT INTO watchlist (worker_id, watch_count, last_changed)
		VALUES ($1, $2, $3)
		ON CONFLICT (worker_id)
		DO UPDATE SET watch_count = $2, last_changed = $3
	`

	_, err := r.pool.Exec(ctx, query, item.WorkerID, item.WatchCount, item.LastChanged)
	if err != nil {
		return fmt.Errorf("failed to upsert watchlist item: %w", err)
	}
	return nil
}

func (r *PostgresRepository) PurgeWatchlist(ctx context.Context, olderThan time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, `DELETE FROM watchlist WHERE last_changed < $1`, olderThan)
	if err != nil {
		return fmt.Errorf("failed to purge watchlist: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorker(row rowScanner) (*models.Worker, error) {
	worker := &models.Worker{}
	var ipv4, ipv6 *string
	var personality, status string
	var info []byte

	err := row.Scan(&worker.WorkerID, &worker.WorkerToken, &worker.Hostname,
		&worker.Callback, &ipv4, &ipv6, &personality, &status, &info,
		&worker.RegisteredAt, &worker.LastSeen)
	if err != nil {
		return nil, err
	}

	worker.IPv4 = deref(ipv4)
	worker.IPv6 = deref(ipv6)
	worker.Personality = models.Personality(personality)
	worker.Status = models.WorkerStatus(status)
	if len(info) > 0 {
		if err := json.Unmarshal(info, &worker.SystemInfo); err != nil {
			return nil, fmt.Errorf("failed to unmarshal system info: %w", err)
		}
	}
	return worker, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
