package router

import (
	"sync"

	"github.com/gridstream-io/gridstream/worker/internal/transport"
)

type poolKey struct {
	serviceDomain string
	workerID      string
}

// pool caches one live connection per (service domain, worker id) so
// repeated sends to the same downstream reuse the established socket.
type pool struct {
	mu    sync.Mutex
	conns map[poolKey]transport.Conn
}

func newPool() *pool {
	return &pool{conns: make(map[poolKey]transport.Conn)}
}

func (p *pool) get(serviceDomain, workerID string) (transport.Conn, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	conn, ok := p.conns[poolKey{serviceDomain, workerID}]
	return conn, ok
}

func (p *pool) put(serviceDomain, workerID string, conn transport.Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conns[poolKey{serviceDomain, workerID}] = conn
}

// evict drops and closes the pooled connection, if any.
func (p *pool) evict(serviceDomain, workerID string) {
	p.mu.Lock()
	conn, ok := p.conns[poolKey{serviceDomain, workerID}]
	if ok {
		delete(p.conns, poolKey{serviceDomain, workerID})
	}
	p.mu.Unlock()

	if ok {
		conn.Close()
	}
}

// closeAll closes every pooled connection.
func (p *pool) closeAll() {
	p.mu.Lock()
	conns := p.conns
	p.conns = make(map[poolKey]transport.Conn)
	p.mu.Unlock()

	for _, conn := range conns {
		conn.Close()
	}
}
