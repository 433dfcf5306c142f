package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"hmsportal/internal/apiclient"
	"hmsportal/internal/metrics"
	"hmsportal/internal/service"
	"hmsportal/internal/storage"
)

const (
	clientPrefix   = "client:"
	restoreTimeout = 10 * time.Second
)

// Registry owns one Store per portal client. Stores are created on first use
// with their storage namespaced by client id, and evicted when idle; durable
// storage remains the source of truth, so an evicted store is simply restored
// again on the next request.
type Registry struct {
	base    storage.Storage
	auth    service.AuthService
	logger  zerolog.Logger
	metrics metrics.Recorder
	idleTTL time.Duration

	mu     sync.Mutex
	stores map[string]*Store

	installMu sync.Mutex
	installed map[*apiclient.Client]func()

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewRegistry creates a registry. A positive idleTTL starts a background
// cleanup loop; call Stop to end it.
func NewRegistry(base storage.Storage, auth service.AuthService, logger zerolog.Logger, rec metrics.Recorder, idleTTL time.Duration) *Registry {
	if rec == nil {
		rec = metrics.Nop{}
	}
	r := &Registry{
		base:      base,
		auth:      auth,
		logger:    logger,
		metrics:   rec,
		idleTTL:   idleTTL,
		stores:    make(map[string]*Store),
		installed: make(map[*apiclient.Client]func()),
		stopCh:    make(chan struct{}),
	}
	if idleTTL > 0 {
		go r.cleanupLoop()
	}
	return r
}

// Get returns the store of clientID, creating it and starting its restore on
// first use.
func (r *Registry) Get(clientID string) *Store {
	now := time.Now()

	r.mu.Lock()
	s, ok := r.stores[clientID]
	if !ok {
		s = NewStore(
			storage.Namespace(r.base, clientPrefix+clientID),
			r.auth,
			r.logger.With().Str("client_id", clientID).Logger(),
		)
		r.stores[clientID] = s
	}
	n := len(r.stores)
	r.mu.Unlock()

	s.touch(now)
	if !ok {
		r.metrics.SetActiveSessions(n)
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), restoreTimeout)
			defer cancel()
			s.Restore(ctx)
		}()
	}
	return s
}

// Forget drops the in-memory store of clientID.
func (r *Registry) Forget(clientID string) {
	r.mu.Lock()
	delete(r.stores, clientID)
	n := len(r.stores)
	r.mu.Unlock()
	r.metrics.SetActiveSessions(n)
}

// Len reports how many stores are held in memory.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}

// Stop ends the cleanup loop.
func (r *Registry) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
}

func (r *Registry) cleanupLoop() {
	interval := r.idleTTL / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case now := <-ticker.C:
			r.evictIdle(now)
		}
	}
}

func (r *Registry) evictIdle(now time.Time) int {
	r.mu.Lock()
	evicted := 0
	for id, s := range r.stores {
		if now.Sub(s.idleSince()) > r.idleTTL {
			delete(r.stores, id)
			evicted++
		}
	}
	n := len(r.stores)
	r.mu.Unlock()

	if evicted > 0 {
		r.metrics.SetActiveSessions(n)
		r.logger.Debug().Int("evicted", evicted).Int("remaining", n).Msg("evicted idle session stores")
	}
	return evicted
}
