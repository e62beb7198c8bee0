package recurrence

import (
	"sync/atomic"
	"time"

	"github.com/cyp0633/calrecur/period"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// CacheEntry represents a cached recurrence result
type CacheEntry struct {
	Periods []period.Period // Expanded instances, for ExpandPeriods
	Found   bool            // For HasOccurrenceInRange
}

// RecurrenceCache provides caching for recurrence expansion and validation results
type RecurrenceCache struct {
	entries *expirable.LRU[string, CacheEntry]
	hits    atomic.Int64
	misses  atomic.Int64
}

// CacheConfig holds configuration for the recurrence cache
type CacheConfig struct {
	TTL        time.Duration // How long entries stay valid
	MaxEntries int           // Maximum number of entries before eviction
}

// DefaultCacheConfig provides sensible defaults for recurrence caching
var DefaultCacheConfig = CacheConfig{
	TTL:        15 * time.Minute, // Cache results for 15 minutes
	MaxEntries: 1000,             // Keep up to 1000 cached results
}

// NewRecurrenceCache creates a new recurrence cache with the given configuration
func NewRecurrenceCache(config CacheConfig) *RecurrenceCache {
	return &RecurrenceCache{
		entries: expirable.NewLRU[string, CacheEntry](config.MaxEntries, nil, config.TTL),
	}
}

// Get retrieves a cached result if it exists and hasn't expired
func (c *RecurrenceCache) Get(operation string, set RecurrenceSet, window period.Period) (CacheEntry, bool) {
	entry, ok := c.entries.Get(set.key(operation, window))
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return entry, ok
}

// Set stores a result in the cache
func (c *RecurrenceCache) Set(operation string, set RecurrenceSet, window period.Period, entry CacheEntry) {
	c.entries.Add(set.key(operation, window), entry)
}

// Close clears the cache
func (c *RecurrenceCache) Close() {
	c.entries.Purge()
}

// Stats returns cache statistics
func (c *RecurrenceCache) Stats() CacheStats {
	return CacheStats{
		ActiveEntries: c.entries.Len(),
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
	}
}

// CacheStats provides information about cache performance
type CacheStats struct {
	ActiveEntries int
	Hits          int64
	Misses        int64
}
