package memory

import (
	"sync"
	"sync/atomic"
	"time"
)

// DefaultSweepBatch bounds how many due deadlines a single sweep pass
// inspects while holding the lock.
const DefaultSweepBatch = 256

type entry struct {
	key       string
	value     []byte
	expiresAt time.Time // zero means no expiry
	index     int       // position in the expiry queue, -1 when not queued
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// Stats is a point-in-time view of store counters.
type Stats struct {
	Keys    int
	Pending int
	Hits    uint64
	Misses  uint64
	Expired uint64
}

// Store is an in-memory key-value store with optional per-key expiry.
type Store struct {
	mu    sync.Mutex
	items map[string]*entry
	queue expiryQueue

	clock      Clock
	sweepBatch int

	hits    atomic.Uint64
	misses  atomic.Uint64
	expired atomic.Uint64
}

// Option configures the Store.
type Option func(*Store)

// WithClock replaces the clock used for expiry decisions.
func WithClock(c Clock) Option {
	return func(s *Store) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithSweepBatch sets how many due deadlines one sweep pass handles
// before releasing the lock.
func WithSweepBatch(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.sweepBatch = n
		}
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		items:      make(map[string]*entry),
		clock:      RealClock{},
		sweepBatch: DefaultSweepBatch,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns a copy of the live value stored under key.
// An entry found past its deadline is removed and reported as missing.
func (s *Store) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.items[key]
	if !ok {
		s.misses.Add(1)
		return nil, false
	}
	if e.expired(s.clock.Now()) {
		s.remove(e)
		s.expired.Add(1)
		s.misses.Add(1)
		return nil, false
	}

	s.hits.Add(1)
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, true
}

// Set stores value under key without expiry, clearing any previous deadline.
func (s *Store) Set(key string, value []byte) {
	s.set(key, value, time.Time{})
}

// SetWithTTL stores value under key and expires it ttl from now.
// A non-positive ttl yields an entry that is already expired.
func (s *Store) SetWithTTL(key string, value []byte, ttl time.Duration) {
	if ttl < 0 {
		ttl = 0
	}
	s.set(key, value, s.clock.Now().Add(ttl))
}

func (s *Store) set(key string, value []byte, expiresAt time.Time) {
	buf := make([]byte, len(value))
	copy(buf, value)

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.items[key]; ok {
		s.queue.unschedule(old)
	}
	e := &entry{key: key, value: buf, expiresAt: expiresAt, index: -1}
	s.items[key] = e
	if !expiresAt.IsZero() {
		s.queue.schedule(e)
	}
}

// remove drops e from the map and the expiry queue. Callers hold mu.
func (s *Store) remove(e *entry) {
	delete(s.items, e.key)
	s.queue.unschedule(e)
}

// Len returns the number of stored entries, including expired entries
// that have not been removed yet.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Stats returns the current counters.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	keys, pending := len(s.items), s.queue.Len()
	s.mu.Unlock()

	return Stats{
		Keys:    keys,
		Pending: pending,
		Hits:    s.hits.Load(),
		Misses:  s.misses.Load(),
		Expired: s.expired.Load(),
	}
}
