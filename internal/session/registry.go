package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	flog "github.com/dharmasatrya/flightsession/internal/log"
	"github.com/dharmasatrya/flightsession/internal/metrics"
)

var ErrRegistryClosed = errors.New("session: registry closed")

// Factory builds a store with its own fetcher instances.
type Factory func() *Store

type entry struct {
	store    *Store
	lastSeen time.Time
}

// Registry keeps one Store per browser session and closes sessions that have
// been idle for longer than the configured TTL.
type Registry struct {
	factory Factory
	idleTTL time.Duration
	now     func() time.Time
	logger  zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*entry
	closed   bool
}

func NewRegistry(factory Factory, idleTTL time.Duration) *Registry {
	return &Registry{
		factory:  factory,
		idleTTL:  idleTTL,
		now:      time.Now,
		logger:   flog.WithComponent("registry"),
		sessions: make(map[string]*entry),
	}
}

// Get returns the store for id. A missing or unknown id starts a new session;
// the returned id is the one the caller must use from then on. Once the
// registry is closed no session is handed out.
func (r *Registry) Get(id string) (string, *Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return "", nil, ErrRegistryClosed
	}

	if e, ok := r.sessions[id]; ok && id != "" {
		e.lastSeen = r.now()
		return id, e.store, nil
	}

	id = uuid.NewString()
	e := &entry{store: r.factory(), lastSeen: r.now()}
	r.sessions[id] = e
	metrics.SetActiveSessions(len(r.sessions))
	r.logger.Debug().Str(flog.FieldSessionID, id).Msg("session started")
	return id, e.store, nil
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep closes every session idle for at least the TTL and reports how many
// were removed.
func (r *Registry) Sweep() int {
	if r.idleTTL <= 0 {
		return 0
	}

	r.mu.Lock()
	cutoff := r.now().Add(-r.idleTTL)
	var expired []*Store
	for id, e := range r.sessions {
		if !e.lastSeen.After(cutoff) {
			expired = append(expired, e.store)
			delete(r.sessions, id)
			r.logger.Debug().Str(flog.FieldSessionID, id).Msg("session expired")
		}
	}
	metrics.SetActiveSessions(len(r.sessions))
	r.mu.Unlock()

	for _, s := range expired {
		s.Close()
	}
	return len(expired)
}

// Run sweeps on every tick until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.logger.Info().Int("expired", n).Msg("swept idle sessions")
			}
		}
	}
}

func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	stores := make([]*Store, 0, len(r.sessions))
	for id, e := range r.sessions {
		stores = append(stores, e.store)
		delete(r.sessions, id)
	}
	metrics.SetActiveSessions(0)
	r.mu.Unlock()

	for _, s := range stores {
		s.Close()
	}
}
