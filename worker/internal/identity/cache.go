// Package identity caches validated tenant tokens and tenant graphs so
// the hot path authenticates without a coordinator round trip.
package identity

import (
	"context"
	"sync"
	"time"

	"github.com/gridstream-io/gridstream/common/models"
)

// DefaultTTL bounds how long cached identity is trusted.
const DefaultTTL = 900 * time.Second

type tokenEntry struct {
	token     *models.Token
	expiresAt time.Time
}

type tenantEntry struct {
	tenant    *models.Tenant
	expiresAt time.Time
}

// Cache holds TTL-bounded token and tenant entries. The clock is
// injectable for tests; entries past their TTL are invisible to readers
// and reaped by the background cleanup loop.
type Cache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	tokens  map[string]tokenEntry
	tenants map[string]tenantEntry
}

// NewCache creates a Cache. A non-positive ttl falls back to DefaultTTL.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		ttl:     ttl,
		now:     time.Now,
		tokens:  make(map[string]tokenEntry),
		tenants: make(map[string]tenantEntry),
	}
}

// SetClock overrides the cache clock. Intended for tests.
func (c *Cache) SetClock(now func() time.Time) {
	c.now = now
}

// PutToken caches a tenant's token record.
func (c *Cache) PutToken(tenantID string, token *models.Token) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[tenantID] = tokenEntry{token: token, expiresAt: c.now().Add(c.ttl)}
}

// Token returns the cached token for a tenant, or nil when absent or
// expired.
func (c *Cache) Token(tenantID string) *models.Token {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.tokens[tenantID]
	if !ok || c.now().After(entry.expiresAt) {
		return nil
	}
	return entry.token
}

// PutTenant caches a tenant graph.
func (c *Cache) PutTenant(tenant *models.Tenant) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tenants[tenant.TenantID] = tenantEntry{tenant: tenant, expiresAt: c.now().Add(c.ttl)}
}

// Tenant returns the cached tenant graph, or nil when absent or expired.
func (c *Cache) Tenant(tenantID string) *models.Tenant {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.tenants[tenantID]
	if !ok || c.now().After(entry.expiresAt) {
		return nil
	}
	return entry.tenant
}

// DeleteTenant drops a tenant's cached token and graph.
func (c *Cache) DeleteTenant(tenantID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tokens, tenantID)
	delete(c.tenants, tenantID)
}

// StartCleanup reaps expired entries every interval until ctx is done.
// Call in a goroutine.
func (c *Cache) StartCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-ctx.Done():
			return
		}
	}
}

func (c *Cache) cleanup() {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()
	for id, entry := range c.tokens {
		if now.After(entry.expiresAt) {
			delete(c.tokens, id)
		}
	}
	for id, entry := range c.tenants {
		if now.After(entry.expiresAt) {
			delete(c.tenants, id)
		}
	}
}
