// Package cache provides a small expirable LRU used to avoid re-fetching
// track payloads that were already retrieved during a run.
package cache

// EvictCallback is called when an entry is evicted from the cache.
type EvictCallback func(key string, value []byte)

// Cache defines the interface for key-value caching with LRU semantics.
type Cache interface {
	// Get retrieves a value by key. Returns the value and true if found, or nil and false if not.
	Get(key string) ([]byte, bool)

	// Set stores a value with the given key. If the key already exists, it is overwritten.
	Set(key string, value []byte)

	// Contains checks whether a key exists in the cache without affecting LRU ordering.
	Contains(key string) bool

	// Len returns the number of entries currently in the cache.
	Len() int

	// Close releases any resources held by the cache. For in-memory caches, this is a no-op.
	Close() error
}
