package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Store tracks active sessions by ID and evicts ones idle past a
// deadline, so abandoned connections do not pin memory.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session

	idleAfter time.Duration
	sweepEach time.Duration

	// onEvict, when set, is called (outside the lock) for each evicted
	// session.
	onEvict func(*Session)
}

// StoreConfig holds tuning knobs for a [Store].
type StoreConfig struct {
	// IdleAfter is how long a session may go without activity before the
	// sweep evicts it. Default: 15m.
	IdleAfter time.Duration

	// SweepInterval is how often the eviction sweep runs. Default: 1m.
	SweepInterval time.Duration

	// OnEvict is invoked for each evicted session.
	OnEvict func(*Session)
}

// NewStore creates a session store. Call [Store.Run] to start the
// eviction sweep.
func NewStore(cfg StoreConfig) *Store {
	if cfg.IdleAfter <= 0 {
		cfg.IdleAfter = 15 * time.Minute
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	return &Store{
		sessions:  make(map[string]*Session),
		idleAfter: cfg.IdleAfter,
		sweepEach: cfg.SweepInterval,
		onEvict:   cfg.OnEvict,
	}
}

// Put registers a session.
func (st *Store) Put(sess *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[sess.ID] = sess
}

// Get returns the session with the given ID, or nil.
func (st *Store) Get(id string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.sessions[id]
}

// Remove deregisters a session.
func (st *Store) Remove(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

// Len returns the number of registered sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Run sweeps for idle sessions until ctx is canceled.
func (st *Store) Run(ctx context.Context) {
	ticker := time.NewTicker(st.sweepEach)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st.evictIdle(time.Now().UTC())
		}
	}
}

// evictIdle removes sessions whose last activity is older than the idle
// deadline as of now.
func (st *Store) evictIdle(now time.Time) {
	st.mu.Lock()
	var evicted []*Session
	for id, sess := range st.sessions {
		if now.Sub(sess.LastActivity()) >= st.idleAfter {
			delete(st.sessions, id)
			evicted = append(evicted, sess)
		}
	}
	st.mu.Unlock()

	// The session's orchestrator goroutine may still be live; only the
	// atomic accessors are safe to read from here.
	for _, sess := range evicted {
		slog.Info("evicted idle session",
			"session_id", sess.ID,
			"state", string(sess.ObservedState()),
			"last_activity", sess.LastActivity())
		if st.onEvict != nil {
			st.onEvict(sess)
		}
	}
}
