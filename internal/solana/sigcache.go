package solana

import (
	"sync"
	"time"
)

// SignatureCache is a per-address TTL cache of fetched signature lists.
// Values are immutable snapshots; a returned slice must not be mutated.
type SignatureCache struct {
	mu      sync.Mutex
	entries map[string]sigCacheEntry
	ttl     time.Duration
	metrics *Metrics
	now     func() time.Time
}

type sigCacheEntry struct {
	signatures []Signature
	fetchedAt  time.Time
}

// NewSignatureCache creates a cache with the given TTL (default 60s).
func NewSignatureCache(ttl time.Duration, metrics *Metrics) *SignatureCache {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &SignatureCache{
		entries: make(map[string]sigCacheEntry),
		ttl:     ttl,
		metrics: metrics,
		now:     time.Now,
	}
}

// Get returns the cached list for addr iff the entry is fresh and holds at
// least minSize signatures. On any miss the stale entry is evicted.
func (c *SignatureCache) Get(addr string, minSize int) ([]Signature, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[addr]
	if !ok {
		c.metrics.RecordCacheMiss()
		return nil, false
	}
	if c.now().Sub(entry.fetchedAt) >= c.ttl || len(entry.signatures) < minSize {
		delete(c.entries, addr)
		c.metrics.RecordCacheMiss()
		return nil, false
	}

	c.metrics.RecordCacheHit()
	return entry.signatures, true
}

// Put replaces the entry for addr unconditionally. Last writer wins.
func (c *SignatureCache) Put(addr string, signatures []Signature) {
	snapshot := make([]Signature, len(signatures))
	copy(snapshot, signatures)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[addr] = sigCacheEntry{signatures: snapshot, fetchedAt: c.now()}
}

// Len returns the number of live entries (stale ones included until touched).
func (c *SignatureCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
