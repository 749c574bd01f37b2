// Package cache provides the TTL-based result cache keyed by request
// fingerprint. Completed pipeline results are served from here so repeat
// requests within the TTL never touch a provider.
package cache

import (
	"sync"
	"time"

	"github.com/postervoice/talkinghead-api/internal/stage"
)

// DefaultTTL is the fixed time-to-live for all entry kinds.
const DefaultTTL = 5 * time.Minute

// Entry holds a finished artifact set for one fingerprint.
type Entry struct {
	Script        string
	AudioURL      string
	AudioDuration float64
	VideoURL      string
	VideoDuration float64
	Sources       map[stage.Kind]stage.Source
	ExpiresAt     time.Time
}

// clone returns a copy safe to hand to callers.
func (e Entry) clone() Entry {
	sources := make(map[stage.Kind]stage.Source, len(e.Sources))
	for k, v := range e.Sources {
		sources[k] = v
	}
	e.Sources = sources
	return e
}

// Store is an in-memory TTL cache. An expired entry is indistinguishable from
// a miss: Get purges lazily and a background sweep removes the rest.
type Store struct {
	mu      sync.RWMutex
	entries map[string]Entry
	ttl     time.Duration
	now     func() time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
}

// Option configures a Store.
type Option func(*Store)

// WithTTL overrides the entry time-to-live. Used by tests; production code
// keeps DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a cache store and starts its background sweeper.
// Call Close to stop the sweeper.
func New(opts ...Option) *Store {
	s := &Store{
		entries: make(map[string]Entry),
		ttl:     DefaultTTL,
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	go s.sweep()
	return s
}

// Get returns the live entry for a fingerprint. An entry past its expiry is
// purged and reported as a miss.
func (s *Store) Get(fingerprint string) (Entry, bool) {
	s.mu.RLock()
	e, ok := s.entries[fingerprint]
	s.mu.RUnlock()
	if !ok {
		return Entry{}, false
	}

	if !s.now().Before(e.ExpiresAt) {
		s.mu.Lock()
		// Re-check under the write lock; a Put may have refreshed it.
		if cur, ok := s.entries[fingerprint]; ok && !s.now().Before(cur.ExpiresAt) {
			delete(s.entries, fingerprint)
		}
		s.mu.Unlock()
		return Entry{}, false
	}

	return e.clone(), true
}

// Put stores an entry under the fingerprint with the configured TTL.
func (s *Store) Put(fingerprint string, e Entry) {
	e = e.clone()
	e.ExpiresAt = s.now().Add(s.ttl)

	s.mu.Lock()
	s.entries[fingerprint] = e
	s.mu.Unlock()
}

// Len returns the number of stored entries, expired or not.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close stops the background sweeper.
func (s *Store) Close() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
}

// sweep periodically purges expired entries.
func (s *Store) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.purgeExpired()
		}
	}
}

// purgeExpired removes every entry past its expiry.
func (s *Store) purgeExpired() {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	for fp, e := range s.entries {
		if !now.Before(e.ExpiresAt) {
			delete(s.entries, fp)
		}
	}
}
