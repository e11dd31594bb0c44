package cache

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// memoryCache wraps hashicorp/golang-lru/v2/expirable to implement the Cache interface.
type memoryCache struct {
	inner *lru.LRU[string, []byte]
}

// NewMemory creates an in-memory cache holding at most size entries, each
// expiring after ttl. A zero ttl disables expiry.
func NewMemory(size int, ttl time.Duration, onEvict EvictCallback) Cache {
	var evict func(string, []byte)
	if onEvict != nil {
		evict = func(key string, value []byte) {
			onEvict(key, value)
		}
	}
	return &memoryCache{
		inner: lru.NewLRU[string, []byte](size, evict, ttl),
	}
}

func (m *memoryCache) Get(key string) ([]byte, bool) {
	return m.inner.Get(key)
}

func (m *memoryCache) Set(key string, value []byte) {
	m.inner.Add(key, value)
}

func (m *memoryCache) Contains(key string) bool {
	return m.inner.Contains(key)
}

func (m *memoryCache) Len() int {
	return m.inner.Len()
}

func (m *memoryCache) Close() error {
	return nil
}
