// Package blacklist tracks downstream workers that recently failed, so
// the router skips them until the entry expires.
package blacklist

import (
	"sync"
	"time"

	"github.com/gridstream-io/gridstream/worker/internal/metrics"
)

type Blacklist struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]time.Time
}

func New(ttl time.Duration) *Blacklist {
	return &Blacklist{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]time.Time),
	}
}

// SetClock overrides the blacklist clock. Intended for tests.
func (b *Blacklist) SetClock(now func() time.Time) {
	b.now = now
}

// Add blacklists a worker id until the TTL elapses. Re-adding extends
// the expiry.
func (b *Blacklist) Add(workerID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[workerID] = b.now().Add(b.ttl)
	metrics.BlacklistedWorkers.Set(float64(len(b.entries)))
}

// Contains reports whether a worker id is currently blacklisted.
// Expired entries are dropped lazily.
func (b *Blacklist) Contains(workerID string) bool {
	b.mu.RLock()
	expiry, ok := b.entries[workerID]
	b.mu.RUnlock()
	if !ok {
		return false
	}

	if b.now().After(expiry) {
		b.mu.Lock()
		if exp, ok := b.entries[workerID]; ok && b.now().After(exp) {
			delete(b.entries, workerID)
			metrics.BlacklistedWorkers.Set(float64(len(b.entries)))
		}
		b.mu.Unlock()
		return false
	}
	return true
}

// Len returns the number of live entries, counting expired ones until
// they are reaped.
func (b *Blacklist) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}
