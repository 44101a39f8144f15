// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache stores citation resolutions keyed by author string and
// year, with a freshness window. Every write is persisted immediately
// through a Backend; stale entries are removed lazily when read.
package cache

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/citelink/pkg/types"
)

// DefaultTTL is how long a cached resolution stays fresh.
const DefaultTTL = 30 * 24 * time.Hour

// Backend persists the whole cache. Save replaces everything previously
// saved. Backends need not be safe for concurrent use.
type Backend interface {
	Load() (map[string]types.CacheEntry, error)
	Save(entries map[string]types.CacheEntry) error
	Remove() error
}

// Cache is an in-memory view of a Backend with TTL expiry. It is meant to
// be owned by one task at a time.
type Cache struct {
	backend Backend
	entries map[string]types.CacheEntry
	ttl     time.Duration
	now     func() time.Time
	log     zerolog.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL overrides DefaultTTL. Non-positive values are ignored.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithLogger sets the logger for persistence failures.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Cache) { c.log = l }
}

// New loads the backend's entries and returns a Cache over them. A load
// failure is logged and the cache starts empty.
func New(backend Backend, opts ...Option) *Cache {
	c := &Cache{
		backend: backend,
		ttl:     DefaultTTL,
		now:     time.Now,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	entries, err := backend.Load()
	if err != nil {
		c.log.Warn().Err(err).Msg("citation cache load failed, starting empty")
	}
	if entries == nil {
		entries = make(map[string]types.CacheEntry)
	}
	c.entries = entries
	return c
}

// Get returns the fresh entry for authors and year. A stale entry is
// deleted, the deletion persisted, and reported as a miss.
func (c *Cache) Get(authors string, year int) (types.CacheEntry, bool) {
	key := types.CacheKey(authors, year)
	entry, ok := c.entries[key]
	if !ok {
		return types.CacheEntry{}, false
	}
	if c.isFresh(entry.Timestamp) {
		return entry, true
	}

	delete(c.entries, key)
	c.persist()
	return types.CacheEntry{}, false
}

// Put records a resolution (empty doi/url for a failed lookup) with the
// current time and persists the cache.
func (c *Cache) Put(authors string, year int, doi, url string) {
	c.entries[types.CacheKey(authors, year)] = types.CacheEntry{
		Authors:   authors,
		Year:      year,
		DOI:       doi,
		URL:       url,
		Timestamp: c.now(),
	}
	c.persist()
}

// Clear drops every entry and removes the backing storage.
func (c *Cache) Clear() error {
	c.entries = make(map[string]types.CacheEntry)
	return c.backend.Remove()
}

// Len returns the number of entries held, fresh or not.
func (c *Cache) Len() int {
	return len(c.entries)
}

// isFresh reports whether ts is younger than the TTL. A zero timestamp
// (missing or unparseable on disk) is never fresh.
func (c *Cache) isFresh(ts time.Time) bool {
	if ts.IsZero() {
		return false
	}
	return c.now().Sub(ts) < c.ttl
}

// persist writes the entries through the backend. Failures leave the
// in-memory state intact.
func (c *Cache) persist() {
	if err := c.backend.Save(c.entries); err != nil {
		c.log.Warn().Err(err).Msg("citation cache write failed")
	}
}
