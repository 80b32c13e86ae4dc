package blacklist

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Verdict statuses. "unknown" means the checker has no data to judge with,
// not that the address is suspicious.
const (
	StatusClean   = "clean"
	StatusFlagged = "flagged"
	StatusUnknown = "unknown"
)

// Verdict is the result of a blacklist lookup.
type Verdict struct {
	Status     string   `json:"status"`
	Sources    []string `json:"sources,omitempty"`
	Confidence float64  `json:"confidence"`
	Reason     string   `json:"reason,omitempty"`
}

// Score maps the verdict onto the 0..1 scale the consensus aggregator
// consumes.
func (v Verdict) Score() float64 {
	if v.Status == StatusFlagged {
		return 1.0
	}
	return 0.0
}

// Flagged reports whether the verdict marks the address as blacklisted.
func (v Verdict) Flagged() bool { return v.Status == StatusFlagged }

// cacheFile is the on-disk snapshot format.
type cacheFile struct {
	SavedAt   time.Time `json:"saved_at"`
	Count     int       `json:"count"`
	Addresses []string  `json:"addresses"`
}

// Checker holds the in-memory blacklist set. Lookups are lock-read-only and
// never touch the network; the refresher is the sole writer.
type Checker struct {
	mu      sync.RWMutex
	entries map[string][]string
	primed  bool

	cachePath string
	ttl       time.Duration
	source    ReputationSource
	logger    *log.Logger
}

// New builds a checker primed from the cache file at cachePath, if the file
// exists and is younger than ttl. A missing or malformed file is equivalent
// to an empty cache.
func New(cachePath string, ttl time.Duration, source ReputationSource) *Checker {
	if ttl <= 0 {
		ttl = time.Hour
	}
	c := &Checker{
		entries:   make(map[string][]string),
		cachePath: cachePath,
		ttl:       ttl,
		source:    source,
		logger:    log.New(log.Writer(), "[BLACKLIST] ", log.LstdFlags),
	}
	c.loadCache()
	return c
}

// IsBlacklisted looks addr up in the in-memory set. It never blocks on the
// network; a stale or empty set is acceptable.
func (c *Checker) IsBlacklisted(addr string) Verdict {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if sources, ok := c.entries[addr]; ok {
		return Verdict{
			Status:     StatusFlagged,
			Sources:    append([]string(nil), sources...),
			Confidence: 0.95,
			Reason:     "address present in blacklist set",
		}
	}
	if !c.primed {
		return Verdict{
			Status:     StatusUnknown,
			Confidence: 0.0,
			Reason:     "blacklist set not primed",
		}
	}
	return Verdict{Status: StatusClean, Confidence: 0.9}
}

// Count returns the number of addresses currently in the set.
func (c *Checker) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Refresh pulls the current list from the reputation source, swaps the
// in-memory set, and writes the cache file back atomically.
func (c *Checker) Refresh(ctx context.Context) error {
	if c.source == nil {
		return nil
	}
	entries, err := c.source.Fetch(ctx)
	if err != nil {
		c.logger.Printf("⚠️ Refresh failed, keeping current set: %v", err)
		return err
	}

	next := make(map[string][]string, len(entries))
	for _, e := range entries {
		src := e.Source
		if src == "" {
			src = c.source.Name()
		}
		next[e.Address] = append(next[e.Address], src)
	}

	c.mu.Lock()
	c.entries = next
	c.primed = true
	c.mu.Unlock()

	if err := c.saveCache(); err != nil {
		c.logger.Printf("⚠️ Cache write failed: %v", err)
	}
	c.logger.Printf("🔄 Blacklist refreshed: %d addresses from %s", len(next), c.source.Name())
	return nil
}

// StartRefresher runs Refresh on the given interval until ctx is cancelled.
// Failures are logged and retried on the next tick.
func (c *Checker) StartRefresher(ctx context.Context, interval time.Duration) {
	if c.source == nil || interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = c.Refresh(ctx)
			}
		}
	}()
}

func (c *Checker) loadCache() {
	if c.cachePath == "" {
		return
	}
	raw, err := os.ReadFile(c.cachePath)
	if err != nil {
		return
	}
	var snapshot cacheFile
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		c.logger.Printf("⚠️ Cache file %s is malformed, starting empty", c.cachePath)
		return
	}
	if time.Since(snapshot.SavedAt) > c.ttl {
		c.logger.Printf("⏰ Cache file %s is older than TTL, starting empty", c.cachePath)
		return
	}

	entries := make(map[string][]string, len(snapshot.Addresses))
	for _, addr := range snapshot.Addresses {
		entries[addr] = []string{"local_cache"}
	}

	c.mu.Lock()
	c.entries = entries
	c.primed = true
	c.mu.Unlock()
	c.logger.Printf("📁 Blacklist primed from cache: %d addresses", len(entries))
}

// saveCache writes the current set to the cache file via write-temp-rename
// so readers never observe a half-written file.
func (c *Checker) saveCache() error {
	if c.cachePath == "" {
		return nil
	}

	c.mu.RLock()
	addresses := make([]string, 0, len(c.entries))
	for addr := range c.entries {
		addresses = append(addresses, addr)
	}
	c.mu.RUnlock()

	raw, err := json.Marshal(cacheFile{
		SavedAt:   time.Now().UTC(),
		Count:     len(addresses),
		Addresses: addresses,
	})
	if err != nil {
		return err
	}

	dir := filepath.Dir(c.cachePath)
	tmp, err := os.CreateTemp(dir, "blacklist-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), c.cachePath)
}
