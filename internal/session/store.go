// Package session provides the per-user conversation state store.
//
// Stores hand out a version number with every read; writes carry the version
// back and fail with ErrVersionConflict when another transition committed in
// between. Callers re-read and recompute instead of overwriting blindly, so
// no transition is ever derived from stale state.
package session

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/ezoncs/salonbot/internal/models"
)

// ErrVersionConflict is returned by Save when the stored session changed
// since the version the caller read.
var ErrVersionConflict = errors.New("session version conflict")

// Store is the contract for session storage. Get never fails for an unseen
// sessionID; it returns a default session with version zero, which Save then
// creates.
type Store interface {
	Get(ctx context.Context, sessionID string) (models.Session, uint64, error)
	Save(ctx context.Context, sessionID string, s models.Session, version uint64) error
	Clear(ctx context.Context, sessionID string) error
	Close() error
}

// Default housekeeping intervals for the in-memory store.
const (
	DefaultTTL           = 24 * time.Hour
	DefaultSweepInterval = 10 * time.Minute
)

// Opts holds configuration options for the in-memory store.
type Opts struct {
	TTL           time.Duration
	SweepInterval time.Duration
	Clock         func() time.Time
}

// Option configures the in-memory store.
type Option func(*Opts)

// WithTTL sets how long an idle session is kept before eviction.
// A zero TTL disables eviction.
func WithTTL(ttl time.Duration) Option {
	return func(o *Opts) { o.TTL = ttl }
}

// WithSweepInterval sets how often the eviction janitor runs.
func WithSweepInterval(d time.Duration) Option {
	return func(o *Opts) { o.SweepInterval = d }
}

// WithClock injects a clock, used by tests to control eviction.
func WithClock(clock func() time.Time) Option {
	return func(o *Opts) { o.Clock = clock }
}

type entry struct {
	session  models.Session
	version  uint64
	lastSeen time.Time
}

// MemoryStore is the default volatile session store. Sessions are created
// lazily, versioned per entry, and evicted after sitting idle past the TTL.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*entry
	ttl     time.Duration
	clock   func() time.Time
	done    chan struct{}
	once    sync.Once
}

// NewMemoryStore creates an in-memory session store and starts its eviction
// janitor when a TTL is configured.
func NewMemoryStore(opts ...Option) *MemoryStore {
	cfg := Opts{
		TTL:           DefaultTTL,
		SweepInterval: DefaultSweepInterval,
		Clock:         time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &MemoryStore{
		entries: make(map[string]*entry),
		ttl:     cfg.TTL,
		clock:   cfg.Clock,
		done:    make(chan struct{}),
	}
	if cfg.TTL > 0 && cfg.SweepInterval > 0 {
		go s.janitor(cfg.SweepInterval)
	}
	slog.Debug("session.NewMemoryStore created", "ttl", cfg.TTL, "sweep_interval", cfg.SweepInterval)
	return s
}

// Get returns the stored session and its version, or a default session with
// version zero when the sessionID has not been seen.
func (s *MemoryStore) Get(ctx context.Context, sessionID string) (models.Session, uint64, error) {
	s.mu.RLock()
	e, ok := s.entries[sessionID]
	s.mu.RUnlock()

	if !ok {
		return models.NewSession(sessionID), 0, nil
	}
	// The Redis store round-trips through JSON, so callers there always get an
	// independent copy. Clone the map here so mutations on a read session stay
	// invisible until Save commits them.
	sess := e.session
	sess.Preferences = maps.Clone(sess.Preferences)
	return sess, e.version, nil
}

// Save commits a session at the given read version. Version zero creates the
// entry; any mismatch with the stored version fails with ErrVersionConflict.
func (s *MemoryStore) Save(ctx context.Context, sessionID string, sess models.Session, version uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Detach from the caller's map so later mutations on their copy cannot
	// reach the committed entry.
	sess.Preferences = maps.Clone(sess.Preferences)

	e, ok := s.entries[sessionID]
	if !ok {
		if version != 0 {
			return ErrVersionConflict
		}
		s.entries[sessionID] = &entry{session: sess, version: 1, lastSeen: s.clock()}
		return nil
	}
	if e.version != version {
		slog.Debug("session.MemoryStore Save conflict", "session_id", sessionID, "expected", version, "stored", e.version)
		return ErrVersionConflict
	}
	e.session = sess
	e.version++
	e.lastSeen = s.clock()
	return nil
}

// Clear removes a session entirely; the next Get starts fresh at version zero.
func (s *MemoryStore) Clear(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, sessionID)
	return nil
}

// Len returns the number of live sessions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close stops the eviction janitor.
func (s *MemoryStore) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

func (s *MemoryStore) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.evictIdle()
		case <-s.done:
			return
		}
	}
}

func (s *MemoryStore) evictIdle() {
	cutoff := s.clock().Add(-s.ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	var evicted int
	for id, e := range s.entries {
		if e.lastSeen.Before(cutoff) {
			delete(s.entries, id)
			evicted++
		}
	}
	if evicted > 0 {
		slog.Info("session.MemoryStore evicted idle sessions", "count", evicted, "remaining", len(s.entries))
	}
}
