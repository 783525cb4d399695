package cache

import "time"

// Cache is a key-value store whose entries may expire.
type Cache[K comparable, V any] interface {
	// Get returns the value and whether it was present and not expired.
	Get(key K) (V, bool)

	// Set stores the value. A ttl <= 0 falls back to the cache default, and
	// when that is zero too the entry never expires.
	Set(key K, value V, ttl time.Duration)

	// GetOrLoad returns the cached value or calls load, caching its result
	// when load succeeds.
	GetOrLoad(key K, load func() (V, error)) (V, error)

	Delete(key K)

	// Len returns the number of non-expired items currently stored.
	Len() int

	Clear()

	// PurgeExpired scans and removes expired entries.
	PurgeExpired()
}
