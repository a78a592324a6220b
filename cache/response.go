package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	dristretto "github.com/dgraph-io/ristretto"
)

// ResponseCache stores formatted completions keyed by owner and a hash of
// the request content. Entries expire on their own; InvalidateAll drops
// everything at once when the prompt contract changes.
type ResponseCache struct {
	cache *dristretto.Cache
	ttl   time.Duration
}

// NewResponseCache creates a completion cache with the given entry TTL.
func NewResponseCache(ttl time.Duration) (*ResponseCache, error) {
	cache, err := dristretto.NewCache(&dristretto.Config{
		NumCounters: 1e6,
		MaxCost:     64 << 20, // 64 MiB of cached completions
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &ResponseCache{cache: cache, ttl: ttl}, nil
}

// Get returns the cached completion for (owner, content) if present.
func (c *ResponseCache) Get(owner, content string) (string, bool) {
	v, ok := c.cache.Get(cacheKey(owner, content))
	if !ok {
		return "", false
	}
	return v.(string), true
}

// Set caches a completion for (owner, content).
func (c *ResponseCache) Set(owner, content, completion string) {
	c.cache.SetWithTTL(cacheKey(owner, content), completion, int64(len(completion)), c.ttl)
	c.cache.Wait()
}

// InvalidateAll drops every cached completion.
func (c *ResponseCache) InvalidateAll() {
	c.cache.Clear()
}

// Close releases the cache.
func (c *ResponseCache) Close() {
	c.cache.Close()
}

func cacheKey(owner, content string) string {
	sum := sha256.Sum256([]byte(content))
	return owner + ":" + hex.EncodeToString(sum[:])
}
