package recurrence

import (
	"crypto/sha256"
	"encoding/hex"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// RecurrenceCache caches range checks and expansions. Entries expire after the
// configured TTL and the least recently used entry is evicted once the cache
// is full.
type RecurrenceCache struct {
	lru *expirable.LRU[string, any]

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
	purging   atomic.Bool
}

// CacheConfig holds configuration for the recurrence cache
type CacheConfig struct {
	TTL        time.Duration // How long entries stay valid (0 = no expiry)
	MaxEntries int           // Maximum number of entries (0 = unbounded)
}

// DefaultCacheConfig provides sensible defaults for recurrence caching
var DefaultCacheConfig = CacheConfig{
	TTL:        15 * time.Minute,
	MaxEntries: 1000,
}

// NewRecurrenceCache creates a new recurrence cache with the given configuration
func NewRecurrenceCache(config CacheConfig) *RecurrenceCache {
	c := &RecurrenceCache{}
	c.lru = expirable.NewLRU[string, any](config.MaxEntries, func(string, any) {
		if !c.purging.Load() {
			c.evictions.Add(1)
		}
	}, config.TTL)
	return c
}

// cacheKey hashes everything the result depends on.
func cacheKey(operation string, masterStart, masterEnd time.Time, recInfo RecurrenceInfo, rangeStart, rangeEnd time.Time) string {
	h := sha256.New()
	write := func(s string) {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	writeTime := func(t time.Time) {
		write(t.Format(time.RFC3339Nano))
	}

	write(operation)
	// Occurrences are generated in the master's wall time, so two zones
	// with the same offset today still expand differently.
	writeTime(masterStart)
	write(masterStart.Location().String())
	writeTime(masterEnd)
	write(masterEnd.Location().String())
	writeTime(rangeStart)
	writeTime(rangeEnd)

	write("RRULE")
	for _, r := range recInfo.RRULE {
		write(r)
	}
	write("EXRULE")
	for _, r := range recInfo.EXRULE {
		write(r)
	}
	write("RDATE")
	for _, d := range recInfo.RDATE {
		writeTime(d)
	}
	write("EXDATE")
	for _, d := range recInfo.EXDATE {
		writeTime(d)
	}
	if recInfo.RecurrenceID != nil {
		write("RECURRENCE-ID")
		writeTime(*recInfo.RecurrenceID)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get retrieves a cached result if it exists and hasn't expired
func (c *RecurrenceCache) Get(operation string, masterStart, masterEnd time.Time, recInfo RecurrenceInfo, rangeStart, rangeEnd time.Time) (any, bool) {
	v, ok := c.lru.Get(cacheKey(operation, masterStart, masterEnd, recInfo, rangeStart, rangeEnd))
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return v, ok
}

// Set stores a result in the cache
func (c *RecurrenceCache) Set(operation string, masterStart, masterEnd time.Time, recInfo RecurrenceInfo, rangeStart, rangeEnd time.Time, result any) {
	c.lru.Add(cacheKey(operation, masterStart, masterEnd, recInfo, rangeStart, rangeEnd), result)
}

// Close clears the cache. Entries dropped here are not counted as
// evictions.
func (c *RecurrenceCache) Close() {
	c.purging.Store(true)
	defer c.purging.Store(false)
	c.lru.Purge()
}

// Stats returns cache statistics
func (c *RecurrenceCache) Stats() CacheStats {
	total := c.lru.Len()
	active := len(c.lru.Keys())
	return CacheStats{
		TotalEntries:   total,
		ExpiredEntries: max(total-active, 0),
		ActiveEntries:  active,
		Hits:           c.hits.Load(),
		Misses:         c.misses.Load(),
		Evictions:      c.evictions.Load(),
	}
}

// CacheStats provides information about cache performance
type CacheStats struct {
	TotalEntries   int
	ExpiredEntries int
	ActiveEntries  int
	Hits           int64
	Misses         int64
	Evictions      int64
}
