// Package audiocache keeps recently synthesized audio keyed by the
// normalized reply text, so repeated replies skip the TTS round trip.
package audiocache

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/bottega-vr/bottega/pkg/audio"
)

const (
	// DefaultMaxEntries bounds the cache size.
	DefaultMaxEntries = 50

	// DefaultTTL is how long an entry stays servable.
	DefaultTTL = time.Hour
)

type entry struct {
	buf      *audio.Buffer
	storedAt time.Time
}

// Cache is a bounded TTL cache of synthesized audio. Keys are normalized
// by trimming whitespace and lower-casing, so replies differing only in
// case or padding share an entry. Safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	max     int
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithMaxEntries bounds the cache to n entries. Values below 1 keep the
// default.
func WithMaxEntries(n int) Option {
	return func(c *Cache) {
		if n >= 1 {
			c.max = n
		}
	}
}

// WithTTL sets the entry lifetime. Non-positive values keep the default.
func WithTTL(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.ttl = d
		}
	}
}

// WithClock replaces the time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// WithLogger sets the logger for eviction events.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = l
	}
}

// New creates an audio cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]entry),
		max:     DefaultMaxEntries,
		ttl:     DefaultTTL,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Key returns the normalized cache key for a reply text.
func Key(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// Get returns the cached audio for text, or nil when absent or expired.
// Expired entries are removed on access.
func (c *Cache) Get(text string) *audio.Buffer {
	key := Key(text)
	if key == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil
	}
	if c.now().Sub(e.storedAt) > c.ttl {
		delete(c.entries, key)
		return nil
	}
	return e.buf
}

// Put stores audio under the normalized text key. Empty keys and nil or
// empty buffers are ignored. When full, the entry with the oldest store
// timestamp is evicted first.
func (c *Cache) Put(text string, buf *audio.Buffer) {
	key := Key(text)
	if key == "" || buf.Empty() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok && len(c.entries) >= c.max {
		c.evictOldestLocked()
	}
	c.entries[key] = entry{buf: buf, storedAt: c.now()}
}

// Len returns the number of entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// PurgeExpired removes all expired entries and returns how many were
// dropped. Run it periodically so idle entries do not pin audio buffers
// for the full TTL plus the time until next access.
func (c *Cache) PurgeExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	dropped := 0
	for key, e := range c.entries {
		if now.Sub(e.storedAt) > c.ttl {
			delete(c.entries, key)
			dropped++
		}
	}
	if dropped > 0 {
		c.logger.Debug("purged expired audio cache entries", "count", dropped)
	}
	return dropped
}

// Clear drops all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

func (c *Cache) evictOldestLocked() {
	var oldestKey string
	var oldestAt time.Time
	first := true
	for key, e := range c.entries {
		if first || e.storedAt.Before(oldestAt) {
			oldestKey, oldestAt = key, e.storedAt
			first = false
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
		c.logger.Debug("evicted oldest audio cache entry", "key", oldestKey)
	}
}
