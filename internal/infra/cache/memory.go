package cache

import (
	"context"
	"sync"
	"time"

	"github.com/BruksfildServices01/homeservices-coverage/internal/domain/coverage"
	"github.com/BruksfildServices01/homeservices-coverage/internal/metrics"
)

type entry struct {
	codes   []string
	expires time.Time
}

// MemoryCoverageCache is the single-process fallback when no redis is
// configured.
type MemoryCoverageCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[uint]entry
	gens    map[uint]uint64
	now     func() time.Time
}

func NewMemoryCoverageCache(ttl time.Duration) *MemoryCoverageCache {
	return &MemoryCoverageCache{
		ttl:     ttl,
		entries: make(map[uint]entry),
		gens:    make(map[uint]uint64),
		now:     time.Now,
	}
}

var _ coverage.Cache = (*MemoryCoverageCache)(nil)

func (c *MemoryCoverageCache) Get(ctx context.Context, workerID uint) (coverage.CacheRead, error) {
	c.mu.RLock()
	e, ok := c.entries[workerID]
	gen := c.gens[workerID]
	c.mu.RUnlock()

	if !ok || (c.ttl > 0 && c.now().After(e.expires)) {
		metrics.CacheMissesTotal.Inc()
		return coverage.CacheRead{Gen: gen}, nil
	}
	metrics.CacheHitsTotal.Inc()
	return coverage.CacheRead{Codes: append([]string(nil), e.codes...), Hit: true, Gen: gen}, nil
}

func (c *MemoryCoverageCache) Set(ctx context.Context, workerID uint, gen uint64, codes []string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[workerID] != gen {
		return false, nil
	}
	c.entries[workerID] = entry{
		codes:   append([]string{}, codes...),
		expires: c.now().Add(c.ttl),
	}
	return true, nil
}

func (c *MemoryCoverageCache) Invalidate(ctx context.Context, workerID uint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[workerID]++
	delete(c.entries, workerID)
	return nil
}
