package fingerprint

import "sync"

// Cache stores computed fingerprints keyed by (artifact, version).
// Fingerprints are pure functions of content, so concurrent
// recomputation and Put calls for the same key are idempotent; there is
// no lost-update hazard. The interface is explicit rather than implicit
// memoization so invalidation and concurrency are the caller's to test.
type Cache interface {
	Get(artifactID, versionID string) (*Fingerprint, bool)
	Put(fp *Fingerprint)
	Invalidate(artifactID, versionID string)
}

type cacheKey struct {
	artifact string
	version  string
}

// MemoryCache is a map-backed Cache safe for concurrent use.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[cacheKey]*Fingerprint
}

// NewMemoryCache returns an empty cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[cacheKey]*Fingerprint)}
}

// Get returns the cached fingerprint for (artifactID, versionID).
func (c *MemoryCache) Get(artifactID, versionID string) (*Fingerprint, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fp, ok := c.entries[cacheKey{artifactID, versionID}]
	return fp, ok
}

// Put stores a fingerprint under its own (artifact, version) key.
func (c *MemoryCache) Put(fp *Fingerprint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey{fp.ArtifactID, fp.VersionID}] = fp
}

// Invalidate drops one entry.
func (c *MemoryCache) Invalidate(artifactID, versionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, cacheKey{artifactID, versionID})
}

// Len reports the number of cached fingerprints.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
