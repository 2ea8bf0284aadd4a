// Package cache provides a small in-process TTL cache used for embedding
// vectors and full query responses. Entries expire lazily on read and are
// swept by a background janitor. Writes are last-writer-wins.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"
)

// DefaultTTL is the lifetime applied by Set. Query responses over a slowly
// changing corpus stay useful for about an hour.
const DefaultTTL = time.Hour

// defaultSweepInterval is how often the janitor scans for expired entries.
const defaultSweepInterval = 5 * time.Minute

// entry pairs a cached value with its expiry deadline.
type entry struct {
	value     any
	expiresAt time.Time
}

// TTL is a mutex-guarded map cache with per-entry expiry. Safe for
// concurrent use.
type TTL struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration

	// now is replaceable for tests.
	now func() time.Time
}

// NewTTL returns a cache whose entries live for ttl. A non-positive ttl
// falls back to DefaultTTL.
func NewTTL(ttl time.Duration) *TTL {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &TTL{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the value stored under key, or (nil, false) if the key is
// absent or expired. Expired entries are removed on access.
func (c *TTL) Get(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(e.expiresAt) {
		c.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have renewed it.
		if cur, ok := c.entries[key]; ok && c.now().After(cur.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

// Set stores value under key with the cache's TTL, replacing any existing
// entry.
func (c *TTL) Set(key string, value any) {
	c.mu.Lock()
	c.entries[key] = entry{value: value, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

// Delete removes the entry for key if present.
func (c *TTL) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Len returns the number of entries currently held, including any expired
// entries the janitor has not swept yet.
func (c *TTL) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// StartJanitor sweeps expired entries every interval until ctx is cancelled.
// A non-positive interval uses a 5 minute default. It spawns its own
// goroutine; call it once.
func (c *TTL) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.sweep()
			}
		}
	}()
}

// sweep removes all expired entries.
func (c *TTL) sweep() {
	now := c.now()
	c.mu.Lock()
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
		}
	}
	c.mu.Unlock()
}

// Fingerprint derives a stable cache key from its parts. Parts are joined
// with a NUL separator so adjacent parts cannot collide, then hashed, so
// keys stay fixed-length regardless of input size.
func Fingerprint(parts ...string) string {
	h := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(h[:])
}
