package classifier

import (
	"crypto/tls"
	"net"
	"net/http"
	"sync"
	"time"
)

// PoolConfig holds HTTP connection pool configuration for an HTTP-backed
// classifier adapter.
type PoolConfig struct {
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
	TLSHandshakeTimeout time.Duration
	DialTimeout         time.Duration
	KeepAlive           time.Duration
}

// DefaultPoolConfig returns sane defaults for a classifier adapter that
// talks to a single upstream host.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxIdleConns:        32,
		MaxIdleConnsPerHost: 8,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		DialTimeout:         10 * time.Second,
		KeepAlive:           30 * time.Second,
	}
}

// ConnectionPool manages shared HTTP transports for classifier adapters,
// keyed by adapter name, so each adapter reuses connections across
// classification calls instead of dialing fresh ones per request.
type ConnectionPool struct {
	mu         sync.RWMutex
	transports map[string]*http.Transport
	defaults   PoolConfig
}

// NewConnectionPool creates a pool using defaults for any adapter that
// doesn't have a dedicated configuration.
func NewConnectionPool(defaults PoolConfig) *ConnectionPool {
	return &ConnectionPool{
		transports: make(map[string]*http.Transport),
		defaults:   defaults,
	}
}

// GetClient returns a new *http.Client for adapterName with the given
// per-request timeout; every client for the same adapter shares one
// transport, which is created on first access.
func (p *ConnectionPool) GetClient(adapterName string, timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: p.getTransport(adapterName),
		Timeout:   timeout,
	}
}

func (p *ConnectionPool) getTransport(adapterName string) *http.Transport {
	p.mu.RLock()
	if t, ok := p.transports[adapterName]; ok {
		p.mu.RUnlock()
		return t
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	if t, ok := p.transports[adapterName]; ok {
		return t
	}

	dialer := &net.Dialer{Timeout: p.defaults.DialTimeout, KeepAlive: p.defaults.KeepAlive}
	t := &http.Transport{
		DialContext:         dialer.DialContext,
		MaxIdleConns:        p.defaults.MaxIdleConns,
		MaxIdleConnsPerHost: p.defaults.MaxIdleConnsPerHost,
		IdleConnTimeout:     p.defaults.IdleConnTimeout,
		TLSHandshakeTimeout: p.defaults.TLSHandshakeTimeout,
		TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
	}
	p.transports[adapterName] = t
	return t
}

// Close releases idle connections held by every adapter's transport.
func (p *ConnectionPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range p.transports {
		t.CloseIdleConnections()
	}
}
